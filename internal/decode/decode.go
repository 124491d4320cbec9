// Package decode turns raw script bytes into analyzable text.
//
// Decoding is best effort and never fails: invalid UTF-8 bytes are dropped
// (the text the analyzers see is what a lenient reader would see), and
// code points that hide or reorder content on screen are reported so the
// caller can log them. Hidden characters do not influence scoring.
package decode

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxHidden bounds how many hidden-character findings are kept per input.
// HiddenTotal still counts every occurrence.
const MaxHidden = 32

// Hidden is a single code point that renders differently from how it reads.
type Hidden struct {
	Category    string `json:"category"` // "zero-width", "bidi-override", "tag-char", "homoglyph-cyrillic", "homoglyph-greek"
	Description string `json:"description"`
	Position    int    `json:"position"` // byte offset in the raw input
	Codepoint   string `json:"codepoint"`
}

// Text is the decoded form of an input.
type Text struct {
	// Text has every invalid UTF-8 byte removed. Valid code points, hidden
	// ones included, are kept as-is.
	Text string

	// Dropped counts the invalid bytes removed from the input.
	Dropped int

	// Hidden lists up to MaxHidden hidden-character findings.
	Hidden      []Hidden
	HiddenTotal int
}

// Clean reports whether the input decoded without dropping bytes and
// without hidden characters.
func (t Text) Clean() bool {
	return t.Dropped == 0 && t.HiddenTotal == 0
}

// Bytes decodes raw into Text.
func Bytes(raw []byte) Text {
	if utf8.Valid(raw) && isASCII(raw) {
		return Text{Text: string(raw)}
	}

	var out Text
	var sb strings.Builder
	sb.Grow(len(raw))

	i := 0
	for i < len(raw) {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size == 1 {
			out.Dropped++
			i++
			continue
		}
		if h, found := classifyRune(r, i); found {
			out.HiddenTotal++
			if len(out.Hidden) < MaxHidden {
				out.Hidden = append(out.Hidden, h)
			}
		}
		sb.WriteRune(r)
		i += size
	}

	out.Text = sb.String()
	return out
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func classifyRune(r rune, pos int) (Hidden, bool) {
	cp := fmt.Sprintf("U+%04X", r)

	switch {
	case isZeroWidth(r):
		return Hidden{
			Category:    "zero-width",
			Description: fmt.Sprintf("Zero-width character %s can hide content from display", cp),
			Position:    pos,
			Codepoint:   cp,
		}, true
	case isBidiOverride(r):
		return Hidden{
			Category:    "bidi-override",
			Description: fmt.Sprintf("Bidirectional override %s can make displayed text differ from executed text", cp),
			Position:    pos,
			Codepoint:   cp,
		}, true
	case r >= 0xE0001 && r <= 0xE007F:
		return Hidden{
			Category:    "tag-char",
			Description: fmt.Sprintf("Unicode tag character %s can smuggle hidden content", cp),
			Position:    pos,
			Codepoint:   cp,
		}, true
	}

	if cat, desc := checkHomoglyph(r); cat != "" {
		return Hidden{Category: cat, Description: desc, Position: pos, Codepoint: cp}, true
	}
	return Hidden{}, false
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', // ZERO WIDTH SPACE
		'\u200C', // ZERO WIDTH NON-JOINER
		'\u200D', // ZERO WIDTH JOINER
		'\u2060', // WORD JOINER
		'\u180E', // MONGOLIAN VOWEL SEPARATOR
		'\u200E', // LEFT-TO-RIGHT MARK
		'\u200F': // RIGHT-TO-LEFT MARK
		return true
	}
	return false
}

func isBidiOverride(r rune) bool {
	switch r {
	case '\u202A', '\u202B', '\u202C', '\u202D', '\u202E',
		'\u2066', '\u2067', '\u2068', '\u2069':
		return true
	}
	return false
}

// checkHomoglyph flags Cyrillic and Greek letters that pass for Latin ones,
// the usual trick for making "сurl" look like "curl".
func checkHomoglyph(r rune) (category string, description string) {
	if r < 0x0370 {
		return "", ""
	}
	cp := fmt.Sprintf("U+%04X", r)

	if unicode.Is(unicode.Cyrillic, r) {
		if latin, ok := cyrillicHomoglyphs[r]; ok {
			return "homoglyph-cyrillic",
				fmt.Sprintf("Cyrillic %s looks like Latin '%c'", cp, latin)
		}
	}
	if unicode.Is(unicode.Greek, r) {
		if latin, ok := greekHomoglyphs[r]; ok {
			return "homoglyph-greek",
				fmt.Sprintf("Greek %s looks like Latin '%c'", cp, latin)
		}
	}
	return "", ""
}

var cyrillicHomoglyphs = map[rune]rune{
	'а': 'a', 'А': 'A', 'В': 'B', 'с': 'c', 'С': 'C', 'е': 'e', 'Е': 'E',
	'Н': 'H', 'і': 'i', 'І': 'I', 'К': 'K', 'М': 'M', 'о': 'o', 'О': 'O',
	'р': 'p', 'Р': 'P', 'Т': 'T', 'х': 'x', 'Х': 'X', 'у': 'y', 'У': 'Y',
}

var greekHomoglyphs = map[rune]rune{
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I', 'Κ': 'K', 'Μ': 'M',
	'Ν': 'N', 'Ο': 'O', 'ο': 'o', 'Ρ': 'P', 'Τ': 'T', 'Χ': 'X', 'Υ': 'Y',
	'Ζ': 'Z',
}
