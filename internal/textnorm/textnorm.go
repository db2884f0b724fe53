// Package textnorm provides the shared text cleaning, normalization, and
// tokenization used by both the hard-rule gate and the statistical classifier.
// All functions are pure and treat empty input as the empty string.
package textnorm

import "strings"

// #region clean

// Clean collapses whitespace runs to a single space and trims the result.
// It does not lowercase or strip punctuation.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// #endregion clean

// #region normalize

// Normalize lowercases the input and replaces every run of characters outside
// the allow-list (Latin letters, Cyrillic letters incl. ё, digits) with a
// single space, then collapses whitespace. Robust against punctuation-based
// obfuscation. Idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lower))
	prevSpace := false
	for _, r := range lower {
		if isAllowed(r) {
			b.WriteRune(r)
			prevSpace = false
		} else if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// #endregion normalize

// #region tokenize

// Tokenize extracts maximal runs of letters (Latin or Cyrillic) or digits
// from the lowercased input, order-preserving. A run of letters and a run of
// digits are separate tokens.
func Tokenize(s string) []string {
	lower := strings.ToLower(s)
	var tokens []string
	var cur []rune
	curDigit := false
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range lower {
		switch {
		case isLetter(r):
			if curDigit {
				flush()
			}
			curDigit = false
			cur = append(cur, r)
		case isDigit(r):
			if !curDigit {
				flush()
			}
			curDigit = true
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// #endregion tokenize

// #region char-classes

func isLetter(r rune) bool {
	if r >= 'a' && r <= 'z' {
		return true
	}
	if r >= 'а' && r <= 'я' {
		return true
	}
	return r == 'ё'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAllowed(r rune) bool {
	return isLetter(r) || isDigit(r)
}

// #endregion char-classes
