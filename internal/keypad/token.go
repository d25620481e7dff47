package keypad

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKey is returned by ParseKey for labels that name no key.
var ErrUnknownKey = errors.New("unknown key")

// Operator is a binary arithmetic operator symbol.
type Operator int

const (
	NoOperator Operator = iota
	Add
	Subtract
	Multiply
	Divide
)

func (o Operator) String() string {
	switch o {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "×"
	case Divide:
		return "÷"
	default:
		return ""
	}
}

// MarshalText renders the operator symbol.
func (o Operator) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ParseOperator accepts the display symbols and their common ASCII and
// typographic equivalents.
func ParseOperator(s string) (Operator, bool) {
	switch s {
	case "+":
		return Add, true
	case "-", "−":
		return Subtract, true
	case "×", "x", "*":
		return Multiply, true
	case "÷", "/":
		return Divide, true
	default:
		return NoOperator, false
	}
}

// Kind classifies an input token.
type Kind int

const (
	KindDigit Kind = iota
	KindDecimalPoint
	KindOperator
	KindSignToggle
	KindClear
	KindClearEntry
	KindEquals
)

func (k Kind) String() string {
	switch k {
	case KindDigit:
		return "digit"
	case KindDecimalPoint:
		return "decimal_point"
	case KindOperator:
		return "operator"
	case KindSignToggle:
		return "sign_toggle"
	case KindClear:
		return "clear"
	case KindClearEntry:
		return "clear_entry"
	case KindEquals:
		return "equals"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Token is one classified key press.
type Token struct {
	Kind     Kind
	Digit    rune
	Operator Operator
}

var (
	DecimalPointKey = Token{Kind: KindDecimalPoint}
	SignToggleKey   = Token{Kind: KindSignToggle}
	ClearKey        = Token{Kind: KindClear}
	ClearEntryKey   = Token{Kind: KindClearEntry}
	EqualsKey       = Token{Kind: KindEquals}
)

// DigitKey returns the token for digit d ('0'..'9').
func DigitKey(d rune) Token {
	return Token{Kind: KindDigit, Digit: d}
}

// OperatorKey returns the token for op.
func OperatorKey(op Operator) Token {
	return Token{Kind: KindOperator, Operator: op}
}

// String returns the canonical key label.
func (t Token) String() string {
	switch t.Kind {
	case KindDigit:
		return string(t.Digit)
	case KindDecimalPoint:
		return decimalPoint
	case KindOperator:
		return t.Operator.String()
	case KindSignToggle:
		return "±"
	case KindClear:
		return "AC"
	case KindClearEntry:
		return "CE"
	case KindEquals:
		return "="
	default:
		return t.Kind.String()
	}
}

// ParseKey classifies a key label as sent by a keypad.
func ParseKey(label string) (Token, error) {
	label = strings.TrimSpace(label)

	if len(label) == 1 && label[0] >= '0' && label[0] <= '9' {
		return DigitKey(rune(label[0])), nil
	}
	if op, ok := ParseOperator(label); ok {
		return OperatorKey(op), nil
	}

	switch strings.ToUpper(label) {
	case decimalPoint:
		return DecimalPointKey, nil
	case "±", "+/-", "NEG":
		return SignToggleKey, nil
	case "AC", "C":
		return ClearKey, nil
	case "CE":
		return ClearEntryKey, nil
	case "=":
		return EqualsKey, nil
	}
	return Token{}, fmt.Errorf("%w: %q", ErrUnknownKey, label)
}

// ParseKeys classifies every label, failing on the first unknown one.
func ParseKeys(labels []string) ([]Token, error) {
	tokens := make([]Token, 0, len(labels))
	for i, label := range labels {
		tok, err := ParseKey(label)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
