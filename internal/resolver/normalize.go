package resolver

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a venue name for comparison: NFC, case folded,
// inner whitespace collapsed to single spaces and the ends trimmed.
func Normalize(name string) string {
	s := norm.NFC.String(name)
	// Casers carry state; one per call keeps Normalize safe for concurrent use.
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}
