package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const defaultExitMarker = "EXITOUT"

// NormalizeLabel folds a reader label into its canonical key: NFKC, trimmed,
// upper-cased. Cluster rules, visits and kiosk topics are all keyed by it.
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(norm.NFKC.String(label))
	if label == "" {
		return ""
	}
	// Casers keep internal state and must not be shared across goroutines.
	return cases.Upper(language.Und).String(label)
}
