package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTelemetryShutdownReverseOrderAndJoinsErrors(t *testing.T) {
	var order []string
	errLogs := errors.New("logs exporter unreachable")

	tel := &Telemetry{shutdowns: []func(context.Context) error{
		func(context.Context) error { order = append(order, "traces"); return nil },
		func(context.Context) error { order = append(order, "metrics"); return nil },
		func(context.Context) error { order = append(order, "logs"); return errLogs },
	}}

	err := tel.Shutdown(context.Background())
	assert.ErrorIs(t, err, errLogs)
	assert.Equal(t, []string{"logs", "metrics", "traces"}, order)

	assert.NoError(t, tel.Shutdown(context.Background()), "second shutdown is a no-op")
}
