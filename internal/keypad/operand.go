package keypad

import (
	"math"
	"strings"
)

// ErrorText is the operand text shown while the machine is frozen after a
// failed evaluation.
const ErrorText = "NaN"

// Operand is a number as the display shows it, together with its value.
// Value is NaN only when Text is ErrorText.
type Operand struct {
	Text  string
	Value float64
}

// OperandBuffer accumulates the operand currently being typed.
type OperandBuffer struct {
	text string
}

// NewOperandBuffer returns a buffer holding "0".
func NewOperandBuffer() *OperandBuffer {
	return &OperandBuffer{text: "0"}
}

// Text returns the buffer as displayed.
func (b *OperandBuffer) Text() string {
	return b.text
}

// IsError reports whether the buffer holds the error sentinel.
func (b *OperandBuffer) IsError() bool {
	return b.text == ErrorText
}

// AppendDigit adds d to the operand and reports whether it was accepted.
//
// Without a decimal point the typed digits are regrouped with leading zeros
// dropped. The text is built from the digits themselves, never from a float,
// so every typed digit survives up to MaxIntegerDigits. Once a decimal point
// is present the raw text is kept so that trailing fractional zeros stay
// visible.
func (b *OperandBuffer) AppendDigit(d rune) bool {
	if b.IsError() || d < '0' || d > '9' {
		return false
	}

	next := b.text + string(d)
	if !isDecimalLiteral(StripGrouping(next)) {
		return false
	}

	intPart, frac, hasPoint := splitDigits(next)
	if hasPoint {
		if len(frac) > MaxFractionDigits || len(strings.TrimLeft(intPart, "0")) > MaxIntegerDigits {
			return false
		}
		b.text = next
		return true
	}

	digits := strings.TrimLeft(intPart, "0")
	if digits == "" {
		digits = "0"
	}
	if len(digits) > MaxIntegerDigits {
		return false
	}

	text := group(digits)
	if digits != "0" && strings.HasPrefix(b.text, minusSign) {
		text = minusSign + text
	}
	b.text = text
	return true
}

// AppendDecimalPoint adds a decimal point unless one is already present.
func (b *OperandBuffer) AppendDecimalPoint() bool {
	if b.IsError() || strings.Contains(StripGrouping(b.text), decimalPoint) {
		return false
	}
	b.text += decimalPoint
	return true
}

// CurrentValue parses the buffer. It reports false for the error sentinel.
func (b *OperandBuffer) CurrentValue() (float64, bool) {
	return Parse(b.text)
}

// Operand snapshots the buffer.
func (b *OperandBuffer) Operand() Operand {
	v, ok := b.CurrentValue()
	if !ok {
		v = math.NaN()
	}
	return Operand{Text: b.text, Value: v}
}

// Reset replaces the buffer wholesale.
func (b *OperandBuffer) Reset(text string) {
	b.text = text
}

// ToggleSign negates a non-zero operand. A present sign is removed by
// dropping every minus character, so a doubled sign cannot survive.
func (b *OperandBuffer) ToggleSign() bool {
	if b.IsError() {
		return false
	}
	v, ok := Parse(strings.ReplaceAll(b.text, minusSign, ""))
	if !ok || v == 0 {
		return false
	}

	if strings.Contains(b.text, minusSign) {
		b.text = strings.ReplaceAll(b.text, minusSign, "")
	} else {
		b.text = minusSign + b.text
	}
	return true
}
