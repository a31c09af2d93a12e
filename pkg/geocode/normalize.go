package geocode

import (
	"regexp"
	"strings"
)

// abbreviation rewrites applied in order via whole-word substitution.
var abbreviations = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\bstreet\b`), "st"},
	{regexp.MustCompile(`\bboulevard\b`), "blvd"},
	{regexp.MustCompile(`\bavenue\b`), "ave"},
	{regexp.MustCompile(`\bdrive\b`), "dr"},
	{regexp.MustCompile(`\broad\b`), "rd"},
	{regexp.MustCompile(`\blane\b`), "ln"},
	{regexp.MustCompile(`\bcourt\b`), "ct"},
	{regexp.MustCompile(`\bsaint\b`), "st"},
	{regexp.MustCompile(`\bsan francisco\b`), "sf"},
}

var (
	spaceRe = regexp.MustCompile(`\s+`)
	punctRe = regexp.MustCompile(`[,.]`)
)

// Normalize canonicalizes a free-text address into a cache key:
// lowercase, trimmed, internal whitespace collapsed, street-suffix and
// city abbreviations substituted whole-word, commas and periods stripped.
// Normalize is pure and idempotent; two raw strings normalizing to the
// same key are treated as the same location.
func Normalize(address string) string {
	s := strings.ToLower(strings.TrimSpace(address))
	s = spaceRe.ReplaceAllString(s, " ")
	for _, a := range abbreviations {
		s = a.re.ReplaceAllString(s, a.repl)
	}
	s = punctRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
