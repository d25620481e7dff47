package main

import (
	"context"
	"errors"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/observability"
)

// initTelemetry starts the OTel providers and creates the calculator's
// metric instruments. The returned function shuts the providers down. With
// OTel disabled only the instruments are created, on the global no-op meter.
func initTelemetry(ctx context.Context, disabled bool) (func(context.Context) error, error) {
	if disabled {
		return func(context.Context) error { return nil }, calculator.InitMetrics()
	}

	telemetry, err := observability.StartTelemetry(ctx)
	if err != nil {
		return nil, err
	}

	if err := calculator.InitMetrics(); err != nil {
		return nil, errors.Join(err, telemetry.Shutdown(ctx))
	}

	return telemetry.Shutdown, nil
}
