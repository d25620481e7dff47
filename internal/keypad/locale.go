package keypad

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Glyphs are the grouping and decimal separators of a locale.
type Glyphs struct {
	Group   string
	Decimal string
}

// DefaultGlyphs are the separators the keypad works with internally.
var DefaultGlyphs = Glyphs{Group: groupSeparator, Decimal: decimalPoint}

var glyphCache sync.Map // language.Tag -> Glyphs

// GlyphsFor derives the separators of tag by formatting a sample number
// with the locale's CLDR rules.
func GlyphsFor(tag language.Tag) Glyphs {
	if g, ok := glyphCache.Load(tag); ok {
		return g.(Glyphs)
	}

	sample := message.NewPrinter(tag).Sprintf("%v", number.Decimal(1234567.5, number.MinFractionDigits(1), number.MaxFractionDigits(1)))

	// Collect the runs of non-digits between digits; bidi marks before the
	// first digit or after the last one are not separators.
	var seps []string
	var cur strings.Builder
	seenDigit := false
	for _, r := range sample {
		if unicode.IsDigit(r) {
			if cur.Len() > 0 {
				seps = append(seps, cur.String())
				cur.Reset()
			}
			seenDigit = true
			continue
		}
		if seenDigit {
			cur.WriteRune(r)
		}
	}

	g := DefaultGlyphs
	switch len(seps) {
	case 0:
	case 1:
		g = Glyphs{Group: "", Decimal: seps[0]}
	default:
		g = Glyphs{Group: seps[0], Decimal: seps[len(seps)-1]}
	}

	glyphCache.Store(tag, g)
	return g
}

// Localize rewrites the separators of a display text for tag. The error
// sentinel is returned unchanged.
func Localize(text string, tag language.Tag) string {
	if text == ErrorText || text == "" {
		return text
	}

	g := GlyphsFor(tag)
	if g == DefaultGlyphs {
		return text
	}

	var b strings.Builder
	for _, r := range text {
		switch string(r) {
		case groupSeparator:
			b.WriteString(g.Group)
		case decimalPoint:
			b.WriteString(g.Decimal)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseLocale parses a BCP 47 tag; the empty string means English.
func ParseLocale(s string) (language.Tag, error) {
	if s == "" {
		return language.English, nil
	}
	return language.Parse(s)
}
