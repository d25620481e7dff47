package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/evaluator"
	"go-chi-calculator/internal/keypad"
	"go-chi-calculator/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunDrainsRequestsBeforeClosingSessions(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	store := calculator.NewStore(evaluator.New(), time.Hour, zap.NewNop())
	t.Cleanup(store.Close)
	session := store.Create(context.Background())

	started := make(chan struct{})
	doErr := make(chan error, 1)
	srv := &http.Server{
		Addr: ln.Addr().String(),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			// Still working on the session after shutdown has begun.
			time.Sleep(100 * time.Millisecond)
			doErr <- session.Do(context.Background(), func(ctx context.Context, m *keypad.Machine) {
				m.Handle(ctx, keypad.DigitKey('7'))
			})
			w.WriteHeader(http.StatusNoContent)
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- run(ctx, srv, ln, store, 5*time.Second) }()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-started
	cancel()

	require.NoError(t, <-runErr)
	assert.NoError(t, <-doErr, "in-flight request should still reach its session")
	assert.Equal(t, http.StatusNoContent, <-status)
	assert.Equal(t, 0, store.Len(), "sessions are closed once the server has drained")
}

func TestServeLogsFailureBeforeReturning(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	oldLogger := observability.Logger
	observability.Logger = zap.New(core)
	t.Cleanup(func() { observability.Logger = oldLogger })

	err := serve(config{
		Addr:            "256.0.0.1:bad",
		ShutdownTimeout: time.Second,
		SessionTTL:      time.Minute,
		OTelDisabled:    true,
	})
	require.Error(t, err)

	entries := logs.FilterMessage("server stopped").All()
	require.Len(t, entries, 1, "the failure is logged while the logger is still live")
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
}
