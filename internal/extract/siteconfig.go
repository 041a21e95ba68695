package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SiteConfig tunes the DOM scorer for a class of sites.
type SiteConfig struct {
	Weights    ScoreWeights
	Thresholds ScoreThresholds
	GoodTags   []string
	BadTags    []string
	Content    []string
	Skip       []string
}

type ScoreWeights struct {
	TextLenPerChar      float64
	PunctDensity        float64
	LinkDensityPenalty  float64
	ChildScoreMult      float64
	TagBoost            float64
	TagPenalty          float64
	HeadingSnippetBoost float64
}

type ScoreThresholds struct {
	MinTextLength    int
	MinDetailsLength int
	MaxLinkDensity   float64
}

func baseConfig() SiteConfig {
	return SiteConfig{
		Weights: ScoreWeights{
			TextLenPerChar:      0.05,
			PunctDensity:        200,
			LinkDensityPenalty:  300,
			ChildScoreMult:      0.3,
			TagBoost:            500,
			TagPenalty:          500,
			HeadingSnippetBoost: 600,
		},
		Thresholds: ScoreThresholds{
			MinTextLength:    50,
			MinDetailsLength: 200,
			MaxLinkDensity:   0.5,
		},
		GoodTags: []string{"article", "main", "section"},
		BadTags:  []string{"nav", "aside", "footer", "script", "style", "noscript", "header"},
		Content: []string{
			"article",
			`[role="main"]`,
			"main",
			".content",
			".post-content",
			".entry-content",
			".article-content",
			".story-body",
		},
		Skip: []string{
			".advertisement",
			".ads",
			".sidebar",
			".related",
			".comments",
			".social-share",
			"nav",
			"footer",
			"header",
		},
	}
}

// siteOverrides keyed by detected site type; a match replaces the content
// selectors and tweaks the weights, everything else stays from base.
var siteOverrides = map[string]func(*SiteConfig){
	"reddit": func(c *SiteConfig) {
		c.Content = []string{`[data-test-id="post-content"]`, ".usertext-body", `[data-click-id="text"]`, ".md"}
		c.Skip = append(c.Skip, ".promoted", ".subreddit-rules")
	},
	"hackernews": func(c *SiteConfig) {
		c.Content = []string{".comment", ".toptext"}
	},
	"github": func(c *SiteConfig) {
		c.Content = []string{".readme", ".markdown-body", ".Box-body"}
	},
	"stackoverflow": func(c *SiteConfig) {
		c.Content = []string{".s-prose", ".post-text", ".question-hyperlink"}
	},
	"devto": func(c *SiteConfig) {
		c.Content = []string{"#article-body", ".crayons-article__body"}
	},
	"news": func(c *SiteConfig) {
		c.Weights.HeadingSnippetBoost = 800
		c.Weights.TagBoost = 600
		c.Content = []string{".story-body", ".article-body", ".post-content", `[data-module="ArticleBody"]`, ".content-body"}
	},
	"ecommerce": func(c *SiteConfig) {
		c.Weights.TagBoost = 300
		c.Weights.HeadingSnippetBoost = 200
		c.Thresholds.MinDetailsLength = 100
		c.Content = []string{".product-description", ".product-details", ".product-info", `[data-testid="product-description"]`}
	},
	"blog": func(c *SiteConfig) {
		c.Weights.TagBoost = 600
		c.Weights.HeadingSnippetBoost = 500
		c.Content = []string{".post-content", ".entry-content", ".blog-post", "article .content"}
	},
}

// ConfigForSite returns the base config overlaid with site-specific tuning.
func ConfigForSite(siteType string) SiteConfig {
	cfg := baseConfig()
	if override, ok := siteOverrides[siteType]; ok {
		override(&cfg)
	}
	return cfg
}

var bylineRe = regexp.MustCompile(`by\s+[A-Z][a-z]+`)

// DetectSiteType classifies a page by hostname first, then by DOM markers.
func DetectSiteType(rawURL string, doc *goquery.Document) string {
	if u, err := url.Parse(rawURL); err == nil {
		hostname := strings.ToLower(u.Hostname())
		switch {
		case strings.Contains(hostname, "reddit.com"):
			return "reddit"
		case strings.Contains(hostname, "news.ycombinator.com"):
			return "hackernews"
		case strings.Contains(hostname, "github.com"):
			return "github"
		case strings.Contains(hostname, "stackoverflow.com"):
			return "stackoverflow"
		case strings.Contains(hostname, "dev.to"):
			return "devto"
		case strings.Contains(hostname, "medium.com"):
			return "blog"
		}
	}
	if doc == nil {
		return "base"
	}
	for _, selector := range []string{".product-price", ".add-to-cart", ".buy-now", `[data-testid="price"]`, ".checkout"} {
		if doc.Find(selector).Length() > 0 {
			return "ecommerce"
		}
	}
	for _, selector := range []string{`meta[property="article:published_time"]`, ".byline", ".author", ".published-date", `[data-module="ArticleBody"]`} {
		if doc.Find(selector).Length() > 0 {
			return "news"
		}
	}
	for _, selector := range []string{".post-content", ".entry-content", ".blog-post", "article.post", ".wp-block-post"} {
		if doc.Find(selector).Length() > 0 {
			return "blog"
		}
	}
	if bylineRe.MatchString(doc.Find("body").Text()) {
		return "news"
	}
	return "base"
}
