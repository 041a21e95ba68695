package standardize

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	markupRe     = regexp.MustCompile(`(?is)<!--.*?-->|<script.*?>.*?</script>|<style.*?>.*?</style>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	quotingRe    = regexp.MustCompile(`["'\\/]`)
	junkRe       = regexp.MustCompile(`[*\[\]\x{00A0}\x{266A}]`)
	dashRunRe    = regexp.MustCompile(`---|--`)
	pipeRe       = regexp.MustCompile(`\s*\|\s*`)
)

// Sanitize strips markup remnants, quoting characters and scrape junk, then
// collapses whitespace. The output is safe to embed inside prompt text and
// JSON string literals.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	text = markupRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = quotingRe.ReplaceAllString(text, "")
	text = junkRe.ReplaceAllString(text, "")
	text = dashRunRe.ReplaceAllString(text, "")
	text = pipeRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// secondsToMins renders seconds as "m.ss", the compact timestamp used in
// transcript fragments.
func secondsToMins(seconds float64) string {
	totalSec := int(math.Trunc(seconds))
	return fmt.Sprintf("%d.%02d", totalSec/60, totalSec%60)
}
