package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"github.com/webrecap/webrecap/internal/model"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestDetectSiteType_Hostnames(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.reddit.com/r/golang/comments/abc", "reddit"},
		{"https://news.ycombinator.com/item?id=1", "hackernews"},
		{"https://github.com/owner/repo", "github"},
		{"https://stackoverflow.com/questions/1", "stackoverflow"},
		{"https://dev.to/user/post", "devto"},
		{"https://medium.com/@user/story", "blog"},
		{"https://example.com/page", "base"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DetectSiteType(tc.url, nil), tc.url)
	}
}

func TestDetectSiteType_DOMMarkers(t *testing.T) {
	ecommerce := parseDoc(t, `<html><body><button class="add-to-cart">Buy</button></body></html>`)
	require.Equal(t, "ecommerce", DetectSiteType("https://example.com/item", ecommerce))

	news := parseDoc(t, `<html><head><meta property="article:published_time" content="2024-01-01"></head><body></body></html>`)
	require.Equal(t, "news", DetectSiteType("https://example.com/story", news))

	blog := parseDoc(t, `<html><body><div class="entry-content">words</div></body></html>`)
	require.Equal(t, "blog", DetectSiteType("https://example.com/post", blog))

	byline := parseDoc(t, `<html><body><p>Reported by Smith from the scene.</p></body></html>`)
	require.Equal(t, "news", DetectSiteType("https://example.com/report", byline))

	plain := parseDoc(t, `<html><body><p>nothing notable here</p></body></html>`)
	require.Equal(t, "base", DetectSiteType("https://example.com/misc", plain))
}

func TestConfigForSite_Overrides(t *testing.T) {
	base := ConfigForSite("unknown")
	require.Contains(t, base.Content, "article")
	require.Equal(t, 200, base.Thresholds.MinDetailsLength)

	reddit := ConfigForSite("reddit")
	require.Contains(t, reddit.Content, ".md")
	require.NotContains(t, reddit.Content, "article")
	require.Contains(t, reddit.Skip, ".promoted")

	ecommerce := ConfigForSite("ecommerce")
	require.Equal(t, 100, ecommerce.Thresholds.MinDetailsLength)
	require.Contains(t, ecommerce.Content, ".product-description")
}

const articlePageHTML = `<html>
<head>
<title>Migrating the billing pipeline</title>
<script>window.tracker = {"secretbeacon": true};</script>
</head>
<body>
<article>
<h1>Migrating the billing pipeline</h1>
<p>The migration started with the ledger tables. Every invoice row carried a
tenant column that the old pipeline ignored, so the first step was a backfill
that walked the full history and stamped each record. That took three nights
of batched updates before the cutover could even be scheduled.</p>
<p>Once the backfill settled, the dual write phase began. Both the old queue
and the new stream received every mutation, and a reconciliation job compared
the two stores hourly. Divergence dropped below one row per million within a
week, which was the agreed threshold for flipping reads.</p>
<p>The final cutover happened on a quiet Tuesday morning. Reads moved first,
writes an hour later, and the old pipeline ran in shadow mode for another
month before it was retired for good.</p>
</article>
</body>
</html>`

func TestHTMLParsing_ArticlePage(t *testing.T) {
	doc := parseDoc(t, articlePageHTML)
	cfg := ConfigForSite("base")

	candidate, err := HTMLParsing(context.Background(), doc, "https://example.com/billing", cfg)
	require.NoError(t, err)
	require.NotNil(t, candidate)
	require.Equal(t, model.StrategyHTMLParsing, candidate.Source)
	require.Contains(t, candidate.Content, "[TITLE]")
	require.Contains(t, candidate.Content, "Migrating the billing pipeline")
	require.Contains(t, candidate.Content, "reconciliation job compared")
	require.NotContains(t, candidate.Content, "secretbeacon")
}

func TestHTMLParsing_ListingFallsBackToCards(t *testing.T) {
	doc := parseDoc(t, `<html>
<head><title>Front page</title></head>
<body>
<div class="element"><h3 class="title"><a href="/a">Kernel scheduler rewrite lands</a></h3>
<span class="sub-text">After two years of review</span></div>
<div class="element"><h3 class="title"><a href="/b">Compiler gets incremental mode</a></h3></div>
</body>
</html>`)

	candidate, err := HTMLParsing(context.Background(), doc, "https://example.com/", ConfigForSite("base"))
	require.NoError(t, err)
	require.NotNil(t, candidate)
	require.Equal(t, model.StrategyHTMLParsing, candidate.Source)
	require.Contains(t, candidate.Content, "Kernel scheduler rewrite lands")
	require.Contains(t, candidate.Content, "Compiler gets incremental mode")
	require.Contains(t, candidate.Content, "After two years of review")
}

func TestHTMLParsing_DeeplyNestedMarkup(t *testing.T) {
	// Wrapper depth far beyond anything a sane page produces; the scorer
	// must walk it without recursing and still surface the buried body.
	var sb strings.Builder
	sb.WriteString(`<html><head><title>Buried body</title></head><body>`)
	sb.WriteString(strings.Repeat(`<div>`, 2000))
	sb.WriteString(`<article><p>The archive import ran for eleven hours before the first
checkpoint landed. Every batch carried a manifest that the loader verified
against the source digest, and a single mismatch would have restarted the
whole run from the previous checkpoint. None appeared, and the final tally
matched the source system to the row.</p></article>`)
	sb.WriteString(strings.Repeat(`</div>`, 2000))
	sb.WriteString(`</body></html>`)

	doc := parseDoc(t, sb.String())
	candidate, err := HTMLParsing(context.Background(), doc, "https://example.com/archive", ConfigForSite("base"))
	require.NoError(t, err)
	require.NotNil(t, candidate)
	require.Contains(t, candidate.Content, "eleven hours before the first")
}

func TestHTMLParsing_EmptyPage(t *testing.T) {
	doc := parseDoc(t, `<html><body></body></html>`)
	candidate, err := HTMLParsing(context.Background(), doc, "https://example.com/", ConfigForSite("base"))
	require.NoError(t, err)
	require.Nil(t, candidate)
}

func TestLooksLikeJSONBlob(t *testing.T) {
	blob := `{"items": [` + strings.Repeat(`{"id": 1, "state": "ok"},`, 20) + `{"id": 2}]}`
	require.True(t, looksLikeJSONBlob(blob))

	prose := strings.Repeat("A perfectly ordinary sentence about nothing in particular. ", 5)
	require.False(t, looksLikeJSONBlob(prose))

	require.False(t, looksLikeJSONBlob(`{"short": true}`))
}

func TestPlainText_SkipsScriptSubtrees(t *testing.T) {
	doc := parseDoc(t, `<html><body><div id="root">visible words<script>var hidden = 1;</script> more words</div></body></html>`)
	text := plainText(doc.Find("#root"))
	require.Equal(t, "visible words more words", text)
}

func TestPageTitle_PrefersOpenGraph(t *testing.T) {
	doc := parseDoc(t, `<html><head><meta property="og:title" content="OG Headline"><title>Document Title</title></head></html>`)
	require.Equal(t, "OG Headline", pageTitle(doc))

	plain := parseDoc(t, `<html><head><title> Document Title </title></head></html>`)
	require.Equal(t, "Document Title", pageTitle(plain))
}

func TestStructuredData_Article(t *testing.T) {
	doc := parseDoc(t, `<html><head>
<script type="application/ld+json">
{"@type": "NewsArticle",
 "headline": "Storage engine rewrite ships",
 "author": {"@type": "Person", "name": "R. Case"},
 "datePublished": "2024-05-01",
 "articleBody": "The rewritten storage engine replaces the page cache with a log structured design. Compactions now run in a background pool and the write amplification dropped by half in the benchmark suite."}
</script>
</head><body></body></html>`)

	candidate, err := StructuredData(context.Background(), doc, "https://example.com/engine")
	require.NoError(t, err)
	require.NotNil(t, candidate)
	require.Equal(t, model.StrategyStructuredData, candidate.Source)
	require.Contains(t, candidate.Content, "Storage engine rewrite ships")
	require.Contains(t, candidate.Content, "log structured design")
	require.Contains(t, candidate.Content, "R. Case")
}

func TestStructuredData_ShortContentRejected(t *testing.T) {
	doc := parseDoc(t, `<html><head>
<script type="application/ld+json">{"@type": "Product", "name": "Widget", "description": "tiny"}</script>
</head><body></body></html>`)

	candidate, err := StructuredData(context.Background(), doc, "https://example.com/widget")
	require.NoError(t, err)
	require.Nil(t, candidate)
}

func TestStructuredData_MalformedBlockIgnored(t *testing.T) {
	doc := parseDoc(t, `<html><head>
<script type="application/ld+json">{not json at all</script>
</head><body></body></html>`)

	candidate, err := StructuredData(context.Background(), doc, "https://example.com/broken")
	require.NoError(t, err)
	require.Nil(t, candidate)
}

func TestReadability_ExtractsArticle(t *testing.T) {
	candidate, err := Readability(context.Background(), articlePageHTML, "https://example.com/billing")
	require.NoError(t, err)
	require.NotNil(t, candidate)
	require.Equal(t, model.StrategyReadability, candidate.Source)
	require.Contains(t, candidate.Content, "ledger tables")
}

func TestReadability_RejectsShortPages(t *testing.T) {
	candidate, err := Readability(context.Background(), `<html><body><p>almost nothing</p></body></html>`, "https://example.com/empty")
	require.NoError(t, err)
	require.Nil(t, candidate)
}

func TestReadability_RejectsJunkOverlays(t *testing.T) {
	body := strings.Repeat("<p>Subscribe to continue reading this story and unlock every feature of the site today. </p>", 5)
	candidate, err := Readability(context.Background(), "<html><body><article>"+body+"</article></body></html>", "https://example.com/wall")
	require.NoError(t, err)
	require.Nil(t, candidate)
}
