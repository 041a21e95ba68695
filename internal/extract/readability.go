package extract

import (
	"context"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/standardize"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// junkIndicators catch paywall and consent overlays that readability
// sometimes mistakes for article text.
var junkIndicators = []string{
	"sign in", "subscribe", "login", "unlock member-only",
	"newsletter", "cookie", "consent", "one tap", "gsi_overlay",
}

// Readability extracts the main article with the readability algorithm.
// Results under 200 chars or dominated by junk phrases are rejected.
func Readability(ctx context.Context, html string, rawURL string) (*model.Candidate, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) <= 200 {
		logutil.GetLogger(ctx).Info("readability candidate too short",
			zap.String("url", rawURL),
			zap.Int("length", len(text)))
		return nil, nil
	}
	lower := strings.ToLower(text)
	for _, junk := range junkIndicators {
		if strings.Contains(lower, junk) {
			logutil.GetLogger(ctx).Info("readability candidate looks like junk",
				zap.String("url", rawURL),
				zap.String("indicator", junk))
			return nil, nil
		}
	}
	res := standardize.Posts([]standardize.Post{{
		Title:   article.Title,
		Content: text,
		URL:     rawURL,
	}}, rawURL, model.StrategyReadability, standardize.ModeFlatWithRoles)
	if res == nil {
		return nil, nil
	}
	return &model.Candidate{
		Source:   model.StrategyReadability,
		Metadata: res.Metadata,
		Content:  res.FlatWithRoles,
	}, nil
}
