// Package evaluator computes flat calculator expressions left to right.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go-chi-calculator/internal/keypad"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrDivisionByZero      = errors.New("division by zero")
	ErrMalformedExpression = errors.New("malformed expression")
	ErrUnknownOperator     = errors.New("unknown operator")
	ErrOverflow            = errors.New("result overflows")
)

// tracer is the evaluator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("evaluator")

// Step applies Operator with Operand to the running total.
type Step struct {
	Operator keypad.Operator
	Operand  float64
}

// Expression is a first operand followed by steps, with no precedence.
type Expression struct {
	First float64
	Steps []Step
}

// Evaluator implements keypad.Evaluator.
type Evaluator struct{}

// New returns an Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate parses tokens and folds the steps left to right, creating a
// child span for every step.
func (e *Evaluator) Evaluate(ctx context.Context, tokens string) (float64, error) {
	ctx, span := tracer.Start(ctx, "evaluator.evaluate",
		trace.WithAttributes(attribute.String("evaluator.tokens", tokens)),
	)
	defer span.End()

	expr, err := Parse(tokens)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return 0, err
	}
	span.SetAttributes(attribute.Int("evaluator.steps_count", len(expr.Steps)))

	running := expr.First
	for i, step := range expr.Steps {
		_, stepSpan := tracer.Start(ctx, fmt.Sprintf("evaluator.step.%d", i),
			trace.WithAttributes(
				attribute.Int("evaluator.step.index", i),
				attribute.String("evaluator.step.operator", step.Operator.String()),
				attribute.Float64("evaluator.step.input", running),
				attribute.Float64("evaluator.step.operand", step.Operand),
			),
		)

		next, err := Apply(step.Operator, running, step.Operand)
		if err != nil {
			err = fmt.Errorf("step %d: %w", i, err)
			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, err.Error())
			stepSpan.End()

			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("failed at step %d", i))
			return 0, err
		}

		stepSpan.SetAttributes(attribute.Float64("evaluator.step.result", next))
		stepSpan.SetStatus(codes.Ok, "")
		stepSpan.End()
		running = next
	}

	span.SetAttributes(attribute.Float64("evaluator.result", running))
	span.SetStatus(codes.Ok, "")
	return running, nil
}

// Apply computes a op b.
func Apply(op keypad.Operator, a, b float64) (float64, error) {
	var r float64
	switch op {
	case keypad.Add:
		r = a + b
	case keypad.Subtract:
		r = a - b
	case keypad.Multiply:
		r = a * b
	case keypad.Divide:
		if b == 0 {
			return 0, fmt.Errorf("%w: %g ÷ %g", ErrDivisionByZero, a, b)
		}
		r = a / b
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperator, op.String())
	}

	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0, fmt.Errorf("%w: %g %s %g", ErrOverflow, a, op, b)
	}
	return r, nil
}

// Parse reads a token string of the form "12+3×-4". Grouping separators and
// spaces are ignored. Operands may carry a leading minus.
func Parse(tokens string) (Expression, error) {
	s := strings.ReplaceAll(keypad.StripGrouping(tokens), " ", "")
	if s == "" {
		return Expression{}, fmt.Errorf("%w: empty", ErrMalformedExpression)
	}

	first, rest, err := readOperand(s)
	if err != nil {
		return Expression{}, err
	}

	expr := Expression{First: first}
	for rest != "" {
		r, size := utf8.DecodeRuneInString(rest)
		op, ok := keypad.ParseOperator(string(r))
		if !ok {
			return Expression{}, fmt.Errorf("%w: %q", ErrUnknownOperator, string(r))
		}

		var v float64
		v, rest, err = readOperand(rest[size:])
		if err != nil {
			return Expression{}, err
		}
		expr.Steps = append(expr.Steps, Step{Operator: op, Operand: v})
	}
	return expr, nil
}

// readOperand consumes one decimal literal from the front of s.
func readOperand(s string) (float64, string, error) {
	end := 0
	if strings.HasPrefix(s, "-") {
		end++
	}
	digits, points := 0, 0
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			digits++
		} else if c == '.' && points == 0 {
			points++
		} else {
			break
		}
		end++
	}
	if digits == 0 {
		return 0, "", fmt.Errorf("%w: operand expected at %q", ErrMalformedExpression, s)
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrMalformedExpression, err)
	}
	return v, s[end:], nil
}
