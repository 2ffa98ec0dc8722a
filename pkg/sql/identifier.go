package sql

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	// IdentifierPrefix is prepended to names that would not start with a letter.
	IdentifierPrefix = "col_"
	// PlaceholderIdentifier replaces names with no word characters at all.
	PlaceholderIdentifier = "unnamed_column"
)

var (
	nonWordPattern    = regexp.MustCompile(`\W+`)
	underscoreRunExpr = regexp.MustCompile(`_+`)
)

// NormalizeIdentifier turns an arbitrary sheet or column header into an ASCII
// identifier that every supported dialect accepts unquoted: word characters
// only, no repeated or edge underscores, leading letter. Normalizing an already
// normalized name returns it unchanged.
func NormalizeIdentifier(name string) string {
	cleaned := nonWordPattern.ReplaceAllString(name, "_")
	cleaned = underscoreRunExpr.ReplaceAllString(cleaned, "_")
	cleaned = strings.Trim(cleaned, "_")

	if cleaned == "" {
		return PlaceholderIdentifier
	}
	if !unicode.IsLetter(rune(cleaned[0])) {
		cleaned = IdentifierPrefix + cleaned
	}
	return cleaned
}

// UniqueIdentifiers normalizes each name and appends _2, _3, ... to later
// duplicates so every result is distinct.
func UniqueIdentifiers(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		base := NormalizeIdentifier(name)
		candidate := base
		for n := 2; seen[strings.ToLower(candidate)]; n++ {
			candidate = base + "_" + strconv.Itoa(n)
		}
		seen[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}
