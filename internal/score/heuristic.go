package score

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/webrecap/webrecap/internal/model"
)

var (
	upperRe       = regexp.MustCompile(`[A-Z]`)
	navTitleRe    = regexp.MustCompile(`(?i)(home|menu|nav|click|here)`)
	paragraphRe   = regexp.MustCompile(`\n\s*\n`)
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
)

func (s *Scorer) heuristicScore(candidate *model.Candidate) float64 {
	title := candidate.Metadata.Title
	content := candidate.Content
	score := 0.0

	switch {
	case len(title) > 30 && isQualityTitle(title):
		score += 0.25
	case len(title) > 10:
		score += 0.15
	case len(title) > 0:
		score += 0.08
	}

	switch {
	case len(content) > 2000:
		score += 0.35
	case len(content) > 1000:
		score += 0.28
	case len(content) > 500:
		score += 0.20
	case len(content) > 200:
		score += 0.12
	case len(content) > 50:
		score += 0.06
	}

	score += structureScore(content, candidate.Source)
	score += metadataScore(candidate.Metadata)
	score = applyPenalties(score, content, title, s.cfg.MinContentLength)

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func isQualityTitle(title string) bool {
	hasCapitalization := upperRe.MatchString(title)
	hasProperWords := len(strings.Fields(title)) >= 3
	notAllCaps := title != strings.ToUpper(title)
	notNavigation := !navTitleRe.MatchString(title)
	return hasCapitalization && hasProperWords && notAllCaps && notNavigation
}

func structureScore(content string, source string) float64 {
	score := 0.0
	markers := []struct {
		marker string
		bonus  float64
	}{
		{"[TITLE]", 0.05},
		{"[POST]", 0.05},
		{"[ARTICLE]", 0.05},
		{"[TRANSCRIPT]", 0.05},
		{"[COMMENT]", 0.02},
		{"<h1>", 0.03},
		{"<h2>", 0.02},
		{"<p>", 0.02},
	}
	for _, m := range markers {
		if strings.Contains(content, m.marker) {
			score += m.bonus
		}
	}

	switch source {
	case model.StrategyJSONAPI:
		score += 0.08
	case model.StrategyStructuredData:
		score += 0.06
	case model.StrategyReadability:
		score += 0.04
	case model.StrategyHTMLParsing:
		score += 0.03
	}

	if len(paragraphRe.FindAllString(content, -1)) > 2 {
		score += 0.03
	}
	longSentences := 0
	for _, sentence := range sentenceSplit.Split(content, -1) {
		if len(strings.TrimSpace(sentence)) > 20 {
			longSentences++
		}
	}
	if longSentences > 3 {
		score += 0.03
	}

	if score > 0.25 {
		score = 0.25
	}
	return score
}

func metadataScore(md model.CandidateMetadata) float64 {
	score := 0.0
	if md.PublishedAt != "" || md.StartedAt != "" {
		score += 0.05
	}
	if md.Author != "" {
		score += 0.03
	}
	if isHTTPURL(md.URL) {
		score += 0.03
	}
	if md.Description != "" {
		score += 0.02
	}
	if len(md.Tags) > 0 {
		score += 0.01
	}
	if md.Image != "" {
		score += 0.01
	}
	if score > 0.15 {
		score = 0.15
	}
	return score
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func applyPenalties(score float64, content string, title string, minContentLength int) float64 {
	if len(content) < minContentLength {
		score *= 0.3
	}

	words := strings.Fields(strings.ToLower(content))
	unique := make(map[string]struct{}, len(words))
	for _, word := range words {
		unique[word] = struct{}{}
	}
	total := len(words)
	if total == 0 {
		total = 1
	}
	if float64(len(unique))/float64(total) < 0.3 {
		score *= 0.7
	}

	lowerTitle := strings.ToLower(title)
	lowerContent := strings.ToLower(content)
	for _, indicator := range []string{"menu", "navigation", "sidebar", "footer", "header"} {
		if strings.Contains(lowerTitle, indicator) || strings.Contains(lowerContent, indicator+" item") {
			score *= 0.8
			break
		}
	}
	for _, indicator := range []string{"404", "not found", "error", "page not available"} {
		if strings.Contains(lowerTitle, indicator) || strings.Contains(lowerContent, indicator) {
			score *= 0.1
			break
		}
	}
	return score
}
