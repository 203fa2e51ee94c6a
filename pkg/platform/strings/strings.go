// Package strings provides identifier and label normalization shared by the
// registry, registration and voting modules.
package strings

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeDocument canonicalizes an identity document for comparison:
// surrounding whitespace is trimmed, the text is NFKC-normalized and
// Unicode case-folded. Interior characters are kept as entered.
//
// Example:
//
//	NormalizeDocument("  ab-12 ") == NormalizeDocument("AB-12")
func NormalizeDocument(doc string) string {
	trimmed := strings.TrimSpace(doc)
	if trimmed == "" {
		return ""
	}
	// Casers are stateful; one per call keeps this safe for concurrent use.
	return cases.Fold().String(norm.NFKC.String(trimmed))
}

// SameDocument reports whether two documents identify the same person.
// Empty documents never match.
func SameDocument(a, b string) bool {
	na := NormalizeDocument(a)
	if na == "" {
		return false
	}
	return na == NormalizeDocument(b)
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  apt-101 ", "apt-102", "apt-101", "", "  "})
//	// Returns: []string{"apt-101", "apt-102"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// Contains reports whether values holds v after trimming both sides.
func Contains(values []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, candidate := range values {
		if strings.TrimSpace(candidate) == v {
			return true
		}
	}
	return false
}

// Remove returns values without any element equal to v (trimmed comparison).
func Remove(values []string, v string) []string {
	v = strings.TrimSpace(v)
	out := make([]string, 0, len(values))
	for _, candidate := range values {
		if strings.TrimSpace(candidate) == v {
			continue
		}
		out = append(out, candidate)
	}
	return out
}
