package keypad

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// MaxIntegerDigits bounds the integer part of any displayed number.
	MaxIntegerDigits = 20
	// MaxFractionDigits bounds the fractional part of any displayed number.
	MaxFractionDigits = 20

	groupSeparator = ","
	decimalPoint   = "."
	minusSign      = "-"
)

// ErrUnrepresentable is returned by Format for values that do not fit the
// display bounds, and for NaN or infinities.
var ErrUnrepresentable = errors.New("number not representable on display")

// saturated is the largest magnitude the display can show.
var saturated = strings.Repeat("9", MaxIntegerDigits)

// Format renders v in fixed decimal notation with grouped integer digits.
//
// Values whose integer part needs more than MaxIntegerDigits digits are
// clamped to the largest representable magnitude of the same sign; the
// clamped text is returned together with an error wrapping
// ErrUnrepresentable. Fractions finer than MaxFractionDigits are rounded.
func Format(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrorText, fmt.Errorf("format %v: %w", v, ErrUnrepresentable)
	}

	text := strconv.FormatFloat(v, 'f', -1, 64)
	if _, frac, ok := strings.Cut(text, decimalPoint); ok && len(frac) > MaxFractionDigits {
		text = strconv.FormatFloat(v, 'f', MaxFractionDigits, 64)
		text = strings.TrimRight(text, "0")
		text = strings.TrimSuffix(text, decimalPoint)
	}

	negative := strings.HasPrefix(text, minusSign)
	text = strings.TrimPrefix(text, minusSign)
	if text == "0" {
		negative = false
	}

	intPart, frac, hasFrac := strings.Cut(text, decimalPoint)

	var err error
	if len(intPart) > MaxIntegerDigits {
		err = fmt.Errorf("format %g: %d integer digits: %w", v, len(intPart), ErrUnrepresentable)
		intPart, frac, hasFrac = saturated, "", false
	}

	var b strings.Builder
	if negative {
		b.WriteString(minusSign)
	}
	b.WriteString(group(intPart))
	if hasFrac {
		b.WriteString(decimalPoint)
		b.WriteString(frac)
	}
	return b.String(), err
}

// group inserts a separator every three digits from the right.
func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(groupSeparator)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Parse strips grouping from text and parses it as a decimal number. It
// reports false, rather than an error, for anything that is not a plain
// decimal literal: callers treat that as a keystroke to ignore.
func Parse(text string) (float64, bool) {
	plain := StripGrouping(text)
	if !isDecimalLiteral(plain) {
		return 0, false
	}

	v, err := strconv.ParseFloat(plain, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// StripGrouping removes grouping separators. It is idempotent.
func StripGrouping(text string) string {
	return strings.ReplaceAll(text, groupSeparator, "")
}

// isDecimalLiteral accepts an optional leading minus, digits and at most one
// decimal point, with at least one digit overall. strconv.ParseFloat alone
// would also accept exponents, hex floats and "Inf".
func isDecimalLiteral(s string) bool {
	s = strings.TrimPrefix(s, minusSign)

	digits, points := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case string(r) == decimalPoint:
			points++
		default:
			return false
		}
	}
	return digits > 0 && points <= 1
}

// splitDigits returns the integer and fractional digit runs of a display
// text, without sign or grouping.
func splitDigits(text string) (intPart, frac string, hasPoint bool) {
	plain := strings.TrimPrefix(StripGrouping(text), minusSign)
	return strings.Cut(plain, decimalPoint)
}
