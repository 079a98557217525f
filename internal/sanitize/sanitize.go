// Package sanitize normalizes AI-generated copy before it is returned to
// callers or persisted. All functions are pure and safe for concurrent use.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	codeFence = regexp.MustCompile("(?s)```.*?```")
	labelLine = regexp.MustCompile(`(?i)^\s*(copy|saída)\s*:\s*`)
	bold      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italic    = regexp.MustCompile(`\*(.+?)\*`)
	heading   = regexp.MustCompile(`(?m)^#+\s*`)

	// Policy rule: persona age ranges ("de 25 a 40 anos") are internal
	// targeting metadata and must never leak into generated copy.
	ageRange = regexp.MustCompile(`(?i)\bde\s*\d{2}\s*(a|à|até|-)\s*\d{2}(\s*anos?)?\b`)
)

// Clean strips formatting artifacts and policy-violating fragments from
// generated text. Rules are applied in a fixed order within each pass, and
// passes repeat until the text stops changing, so removing one layer of
// markup (bold markers around a label line, say) exposes the next layer to
// the earlier rules. Every rule strictly shrinks the text when it matches,
// so the loop terminates after at most len(raw) passes; running to the
// fixpoint makes Clean idempotent.
func Clean(raw string) string {
	out := raw
	for {
		next := pass(out)
		if next == out {
			return out
		}
		out = next
	}
}

// pass applies every normalization rule once, in order. Later rules assume
// earlier ones already removed confounding syntax.
func pass(text string) string {
	text = codeFence.ReplaceAllString(text, "")
	text = labelLine.ReplaceAllString(text, "")
	text = bold.ReplaceAllString(text, "$1")
	text = italic.ReplaceAllString(text, "$1")
	text = heading.ReplaceAllString(text, "")
	text = ageRange.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
