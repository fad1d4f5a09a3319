// Package slug derives URL-safe identifiers from display names and resolves
// collisions against the identifiers already in use.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is used when a name has no letters or digits at all.
const Fallback = "place"

var (
	separatorRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	ampersandRegex = regexp.MustCompile(`\s*&\s*`)
)

// LookupFunc returns the existing slugs that may collide with base. It may
// over-report; Assign filters the result with the collision pattern.
type LookupFunc func(ctx context.Context, base string) ([]string, error)

// Fold strips diacritics ("Crème" becomes "Creme") without changing case
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// Normalize turns a display name into a lowercase hyphenated token with
// diacritics removed.
func Normalize(name string) string {
	s := ampersandRegex.ReplaceAllString(Fold(name), " and ")
	s = separatorRegex.ReplaceAllString(s, "-")
	s = strings.Trim(strings.ToLower(s), "-")
	if s == "" {
		return Fallback
	}
	return s
}

// Pattern matches base and base-N, case-insensitively.
func Pattern(base string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^(` + regexp.QuoteMeta(base) + `)(-[0-9]+)?$`)
}

// Assign picks the slug for name. With k existing matches of the base the
// candidate is base-(k+1); a candidate that is already taken (a gap left by
// a rename) moves past the highest suffix in use.
func Assign(ctx context.Context, name string, lookup LookupFunc) (string, error) {
	base := Normalize(name)

	existing, err := lookup(ctx, base)
	if err != nil {
		return "", err
	}

	pattern := Pattern(base)
	taken := make(map[string]struct{}, len(existing))
	highest := 0
	for _, s := range existing {
		m := pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		taken[strings.ToLower(s)] = struct{}{}
		n := 1
		if m[2] != "" {
			n, _ = strconv.Atoi(m[2][1:])
		}
		if n > highest {
			highest = n
		}
	}

	if len(taken) == 0 {
		return base, nil
	}

	candidate := fmt.Sprintf("%s-%d", base, len(taken)+1)
	if _, clash := taken[candidate]; clash {
		candidate = fmt.Sprintf("%s-%d", base, highest+1)
	}
	return candidate, nil
}
