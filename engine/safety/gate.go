// Package safety screens raw query text for protected content before it
// can reach the embedding provider or the vector index.
package safety

import "regexp"

// A contiguous run of 8 or more digits is treated as a folio number.
// Devanagari digits count, since Hindi queries may carry them.
var folioRun = regexp.MustCompile(`[0-9०-९]{8,}`)

// Scan reports whether raw contains protected content. It runs before any
// embedding or retrieval, independent of language.
func Scan(raw string) bool {
	return folioRun.MatchString(raw)
}

// Redact masks protected digit runs so the text is safe to log. Query text
// must never be logged or surfaced in an error without passing through here.
func Redact(s string) string {
	return folioRun.ReplaceAllString(s, "********")
}
