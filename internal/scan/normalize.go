// Package scan turns raw scanner or keyboard input into a catalog match.
package scan

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// MaxVariants bounds the size of the set returned by Variants.
const MaxVariants = 8

var separators = []rune{'-', '_', '.'}

// apostrophes emitted by scanners configured with the wrong keyboard layout
const apostrophes = "'’`´"

// Normalize canonicalizes a code: width and accent folding, then only
// ASCII letters, digits and - _ . survive, upper-cased.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	folded := fold(raw)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func fold(s string) string {
	t := transform.Chain(width.Fold, norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Variants returns the lookup forms of raw, canonical first, without duplicates.
func Variants(raw string) []string {
	canonical := Normalize(raw)
	set := newVariantSet()
	set.add(canonical)
	set.add(replaceSeparators(canonical, '-'))
	set.add(replaceSeparators(canonical, '_'))
	set.add(replaceSeparators(canonical, '.'))
	set.add(stripSeparators(canonical))
	set.add(strings.ToUpper(strings.TrimSpace(raw)))

	if strings.ContainsAny(raw, apostrophes) {
		substituted := strings.Map(func(r rune) rune {
			if strings.ContainsRune(apostrophes, r) {
				return '-'
			}
			return r
		}, raw)
		set.add(Normalize(substituted))

		stripped := strings.Map(func(r rune) rune {
			if strings.ContainsRune(apostrophes, r) {
				return -1
			}
			return r
		}, raw)
		set.add(strings.ToUpper(strings.TrimSpace(stripped)))
	}
	return set.items
}

func replaceSeparators(s string, to rune) string {
	return strings.Map(func(r rune) rune {
		for _, sep := range separators {
			if r == sep {
				return to
			}
		}
		return r
	}, s)
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		for _, sep := range separators {
			if r == sep {
				return -1
			}
		}
		return r
	}, s)
}

type variantSet struct {
	seen  map[string]struct{}
	items []string
}

func newVariantSet() *variantSet {
	return &variantSet{seen: make(map[string]struct{}, MaxVariants)}
}

// add keeps the first variant even when empty so the set is never empty.
func (v *variantSet) add(s string) {
	if len(v.items) >= MaxVariants {
		return
	}
	if s == "" && len(v.items) > 0 {
		return
	}
	if _, ok := v.seen[s]; ok {
		return
	}
	v.seen[s] = struct{}{}
	v.items = append(v.items, s)
}
