package calculator

import (
	"context"
	"errors"
	"time"

	"go-chi-calculator/internal/evaluator"
	"go-chi-calculator/internal/keypad"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// instrumentedEvaluator records metrics and logs around every evaluation a
// session machine requests.
type instrumentedEvaluator struct {
	next   keypad.Evaluator
	logger *zap.Logger
}

func newInstrumentedEvaluator(next keypad.Evaluator, logger *zap.Logger) keypad.Evaluator {
	return &instrumentedEvaluator{next: next, logger: logger}
}

func (e *instrumentedEvaluator) Evaluate(ctx context.Context, tokens string) (float64, error) {
	start := time.Now()
	result, err := e.next.Evaluate(ctx, tokens)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	attrs := metric.WithAttributes(attribute.String("operation", "evaluate"))
	if err != nil {
		errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", "evaluate"),
			attribute.String("reason", errorReason(err)),
		))
		e.logger.Warn("evaluation failed",
			zap.String("tokens", tokens),
			zap.Error(err),
			zap.Float64("duration_ms", elapsed),
		)
		return 0, err
	}

	evalCounter.Add(ctx, 1, attrs)
	evalHistogram.Record(ctx, elapsed, attrs)
	resultGauge.Record(ctx, result, attrs)

	e.logger.Info("expression evaluated",
		zap.String("tokens", tokens),
		zap.Float64("result", result),
		zap.Float64("duration_ms", elapsed),
	)
	return result, nil
}

// errorReason maps evaluator errors to a low-cardinality metric label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, evaluator.ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, evaluator.ErrOverflow):
		return "overflow"
	case errors.Is(err, evaluator.ErrMalformedExpression), errors.Is(err, evaluator.ErrUnknownOperator):
		return "malformed"
	default:
		return "other"
	}
}
