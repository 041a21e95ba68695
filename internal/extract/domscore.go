package extract

import (
	"context"
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/standardize"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var (
	punctRe     = regexp.MustCompile(`[.,;:!?]`)
	hiddenRe    = regexp.MustCompile(`display:\s*none|visibility:\s*hidden`)
	sentenceRe  = regexp.MustCompile(`(?s)(?:[.!?])\s+`)
	jsonBlobRe  = regexp.MustCompile(`^[\{\[]`)
	jsonCharsRe = regexp.MustCompile(`[{\[,:}\]]`)
)

// junkTokens in class or id attributes disqualify a node outright.
var junkTokens = []string{
	"footer", "header", "nav", "menu", "subscribe", "signin", "login", "paywall", "cookie",
	"banner", "overlay", "modal", "popup", "consent", "newsletter", "sidebar", "share",
	"social", "comments", "ad", "advert", "gsi_overlay", "onettap", "onettapoverlay",
}

var junkRoles = map[string]bool{
	"navigation":    true,
	"banner":        true,
	"complementary": true,
	"contentinfo":   true,
}

type domCandidate struct {
	node   *html.Node
	text   string
	score  float64
	source string
}

// HTMLParsing walks the DOM with the weighted heuristic scorer, merges the
// selector hits with the top-scored subtrees, and joins the winners. Listing
// pages with no scoring winner fall back to article-card extraction.
func HTMLParsing(ctx context.Context, doc *goquery.Document, rawURL string, cfg SiteConfig) (*model.Candidate, error) {
	var all []domCandidate
	all = append(all, selectorCandidates(doc, cfg)...)

	var scored []domCandidate
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Each(func(_ int, sel *goquery.Selection) {
		scoreSubtrees(sel, cfg, &scored)
	})
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > 20 {
		scored = scored[:20]
	}
	all = append(all, scored...)

	logutil.GetLogger(ctx).Debug("dom scoring candidates",
		zap.String("url", rawURL),
		zap.Int("selector_count", len(all)-len(scored)),
		zap.Int("scored_count", len(scored)))

	if len(all) == 0 {
		if cards := articleCards(doc, rawURL); cards != nil {
			return cards, nil
		}
		return nil, nil
	}

	merged := mergeFragments(all)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].score > merged[j].score })
	if len(merged) > 10 {
		merged = merged[:10]
	}

	var parts []string
	for _, candidate := range merged {
		if len(candidate.text) > cfg.Thresholds.MinTextLength {
			parts = append(parts, candidate.text)
		}
	}
	content := strings.Join(parts, " | ")
	if strings.TrimSpace(content) == "" && len(merged) > 0 {
		content = merged[0].text
	}
	if len(content) < cfg.Thresholds.MinTextLength {
		if cards := articleCards(doc, rawURL); cards != nil {
			return cards, nil
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	res := standardize.Posts([]standardize.Post{{
		Title:   pageTitle(doc),
		Content: content,
		URL:     rawURL,
	}}, rawURL, model.StrategyHTMLParsing, standardize.ModeFlatWithRoles)
	if res == nil {
		return nil, nil
	}
	return &model.Candidate{
		Source:   model.StrategyHTMLParsing,
		Metadata: res.Metadata,
		Content:  res.FlatWithRoles,
	}, nil
}

func selectorCandidates(doc *goquery.Document, cfg SiteConfig) []domCandidate {
	var results []domCandidate
	for _, selector := range cfg.Content {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if shouldSkip(sel, cfg) {
				return
			}
			text := plainText(sel)
			if len(text) > cfg.Thresholds.MinTextLength {
				results = append(results, domCandidate{
					node:   sel.Get(0),
					text:   standardize.Sanitize(text),
					score:  float64(len(text))*0.1 + 500,
					source: "selector",
				})
			}
		})
	}
	return results
}

// scoreSubtrees walks the element tree with an explicit work-stack instead of
// recursion, so pathological nesting depth cannot blow the goroutine stack.
// Elements are collected in document order, then scored in reverse so every
// node's children are final before the node itself; junk subtrees are pruned
// before their children are ever visited.
func scoreSubtrees(root *goquery.Selection, cfg SiteConfig, out *[]domCandidate) {
	type frame struct {
		sel    *goquery.Selection
		parent int
	}
	var order []frame
	stack := []frame{{sel: root, parent: -1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.sel.Length() == 0 || shouldSkip(f.sel, cfg) {
			continue
		}
		if junkRoles[strings.ToLower(f.sel.AttrOr("role", ""))] {
			continue
		}
		clsID := strings.ToLower(f.sel.AttrOr("class", "") + " " + f.sel.AttrOr("id", ""))
		junk := false
		for _, token := range junkTokens {
			if strings.Contains(clsID, token) {
				junk = true
				break
			}
		}
		if junk {
			continue
		}
		idx := len(order)
		order = append(order, f)
		children := f.sel.Children()
		for i := children.Length() - 1; i >= 0; i-- {
			stack = append(stack, frame{sel: children.Eq(i), parent: idx})
		}
	}

	childBonus := make([]float64, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		score := scoreElement(order[i].sel, cfg, childBonus[i], out)
		if p := order[i].parent; p >= 0 {
			childBonus[p] += score * cfg.Weights.ChildScoreMult
		}
	}
}

// scoreElement applies the weighted heuristic to one element, appending it to
// out when it qualifies. The returned score feeds the parent's children bonus;
// a gated-out element contributes nothing upward even when its children scored.
func scoreElement(sel *goquery.Selection, cfg SiteConfig, childrenScore float64, out *[]domCandidate) float64 {
	text := plainText(sel)
	textLen := len(text)
	if textLen < cfg.Thresholds.MinTextLength {
		return 0
	}

	var linkTextLen int
	sel.Find("a").Each(func(_ int, link *goquery.Selection) {
		linkTextLen += len(link.Text())
	})
	linkDensity := float64(linkTextLen) / math.Max(float64(textLen), 1)
	if linkDensity > cfg.Thresholds.MaxLinkDensity {
		return 0
	}

	paragraphs := sel.Find("p").Length()
	childCount := sel.Children().Length()
	if childCount == 0 {
		childCount = 1
	}
	paragraphRatio := float64(paragraphs) / float64(childCount)
	punctDensity := float64(len(punctRe.FindAllString(text, -1))) / math.Max(float64(textLen), 1)

	rawScore := float64(textLen) * cfg.Weights.TextLenPerChar
	rawScore += punctDensity * cfg.Weights.PunctDensity
	rawScore -= linkDensity * cfg.Weights.LinkDensityPenalty

	if textLen > cfg.Thresholds.MinDetailsLength && paragraphRatio > 0.5 {
		rawScore += float64(textLen) * (1 - linkDensity)
		rawScore += 50 * punctDensity
	}

	tag := goquery.NodeName(sel)
	for _, good := range cfg.GoodTags {
		if tag == good {
			rawScore += cfg.Weights.TagBoost
			break
		}
	}
	for _, bad := range cfg.BadTags {
		if tag == bad {
			rawScore -= cfg.Weights.TagPenalty
			break
		}
	}
	if sel.Find("h1, h2, h3").Length() > 0 && sel.Find("p").Length() > 0 {
		rawScore += cfg.Weights.HeadingSnippetBoost
	}

	score := rawScore/math.Log(float64(textLen)+2) + childrenScore
	*out = append(*out, domCandidate{
		node:   sel.Get(0),
		text:   standardize.Sanitize(text),
		score:  score,
		source: "scoring",
	})
	return score
}

func shouldSkip(sel *goquery.Selection, cfg SiteConfig) bool {
	tag := goquery.NodeName(sel)
	for _, bad := range cfg.BadTags {
		if tag == bad {
			return true
		}
	}
	if hiddenRe.MatchString(sel.AttrOr("style", "")) {
		return true
	}
	if looksLikeJSONBlob(sel.Text()) {
		return true
	}
	for _, selector := range cfg.Skip {
		if sel.Is(selector) {
			return true
		}
	}
	return false
}

func looksLikeJSONBlob(text string) bool {
	trimmed := strings.TrimSpace(text)
	return len(trimmed) > 200 &&
		jsonBlobRe.MatchString(trimmed) &&
		jsonCharsRe.MatchString(trimmed) &&
		strings.Count(trimmed, "\n") < 3
}

// plainText extracts visible text, skipping script-like subtrees.
func plainText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var sb strings.Builder
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if node.Type == html.TextNode {
			if text := strings.TrimSpace(node.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(sel.Get(0))
	return sb.String()
}

// mergeFragments dedups candidates that share a node, combining their text
// (sentence-deduplicated) and summing scores.
func mergeFragments(candidates []domCandidate) []domCandidate {
	byNode := make(map[*html.Node]int)
	var merged []domCandidate
	for _, candidate := range candidates {
		idx, seen := byNode[candidate.node]
		if !seen {
			byNode[candidate.node] = len(merged)
			merged = append(merged, candidate)
			continue
		}
		combined := merged[idx].text + " " + candidate.text
		merged[idx].text = standardize.Sanitize(dedupSentences(combined))
		merged[idx].score += candidate.score
	}
	return merged
}

func dedupSentences(text string) string {
	seen := make(map[string]struct{})
	var out []string
	for _, sentence := range sentenceRe.Split(text, -1) {
		if _, ok := seen[sentence]; ok {
			continue
		}
		seen[sentence] = struct{}{}
		out = append(out, sentence)
	}
	return strings.Join(out, " ")
}

type articleCard struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Author  string `json:"author,omitempty"`
}

// articleCards handles listing and index pages: repeated title+link+snippet
// card patterns become the content when no article body exists.
func articleCards(doc *goquery.Document, rawURL string) *model.Candidate {
	var cards []articleCard
	doc.Find("h3.title a, h2.title a").Each(func(_ int, link *goquery.Selection) {
		title := strings.TrimSpace(link.Text())
		href := link.AttrOr("href", "")
		if title == "" || href == "" {
			return
		}
		card := articleCard{Title: title, URL: href}
		parent := link.Closest(".element, .main-row-element, .row, div")
		if parent.Length() > 0 {
			card.Snippet = strings.TrimSpace(parent.Find(".sub-text").First().Text())
			card.Author = strings.TrimSpace(parent.Find(".author-name").First().Text())
		}
		cards = append(cards, card)
	})
	if len(cards) == 0 {
		return nil
	}
	blob, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return nil
	}
	res := standardize.Posts([]standardize.Post{{
		Title:   pageTitle(doc),
		Content: string(blob),
		URL:     rawURL,
	}}, rawURL, model.StrategyHTMLParsing, standardize.ModeFlatWithRoles)
	if res == nil {
		return nil
	}
	return &model.Candidate{
		Source:   model.StrategyHTMLParsing,
		Metadata: res.Metadata,
		Content:  res.FlatWithRoles,
	}
}

func pageTitle(doc *goquery.Document) string {
	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
