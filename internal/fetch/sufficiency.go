package fetch

import (
	"regexp"
	"strings"

	"github.com/webrecap/webrecap/internal/config"
)

// Verdict explains why HTML was or was not judged good enough to extract
// from without rendering.
type Verdict struct {
	Sufficient   bool
	Reason       string
	VisibleChars int
	Density      float64
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
)

// shellSignatures mark SPA app shells that carry no server-rendered content.
var shellSignatures = []string{
	"<app-root",
	"<shreddit-app",
	`<div id="root"`,
	`<div id="__next"`,
}

// Check applies the static-HTML sufficiency heuristics: minimum markup size,
// minimum visible text, text density and app-shell detection.
func Check(html string, cfg config.FetchConfig) Verdict {
	if len(html) < cfg.MinMarkupLength {
		return Verdict{Reason: "markup too short"}
	}
	for _, sig := range shellSignatures {
		if strings.Contains(html, sig) {
			return Verdict{Reason: "app shell detected"}
		}
	}
	visible := VisibleText(html)
	chars := len(visible)
	density := float64(chars) / float64(len(html))
	verdict := Verdict{VisibleChars: chars, Density: density}
	if chars < cfg.MinVisibleChars {
		verdict.Reason = "too little visible text"
		return verdict
	}
	if density < cfg.MinTextDensity {
		verdict.Reason = "text density too low"
		return verdict
	}
	verdict.Sufficient = true
	return verdict
}

// VisibleText strips scripts, styles and tags, leaving roughly what a
// reader would see.
func VisibleText(html string) string {
	text := scriptRe.ReplaceAllString(html, "")
	text = styleRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
