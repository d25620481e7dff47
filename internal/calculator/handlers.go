package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/keypad"
	"go-chi-calculator/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Handler serves the keypad session API.
type Handler struct {
	store *Store
	eval  keypad.Evaluator
}

// NewHandler returns a Handler over st. eval backs the stateless
// /calculator/evaluate endpoint.
func NewHandler(st *Store, eval keypad.Evaluator) *Handler {
	return &Handler{store: st, eval: eval}
}

// ---------------------------------------------------------------------------
// Handlers: keypad sessions
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "calculator.session.create")
	defer span.End()

	tag, err := localeFromRequest(r)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "create_session", "invalid locale", err, http.StatusBadRequest, w)
		return
	}

	s := h.store.Create(ctx)
	span.SetAttributes(attribute.String("calculator.session.id", s.ID))

	var resp SessionResponse
	err = s.Do(ctx, func(ctx context.Context, m *keypad.Machine) {
		resp = sessionResponse(s.ID, m, nil, tag)
	})
	if err != nil {
		// Nobody has seen the ID yet; a concurrent store Close may already
		// have removed it.
		_ = h.store.Delete(context.WithoutCancel(ctx), s.ID)
		recordSessionError(ctx, span, logger, "create_session", err, w)
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusCreated, resp)
}

// GetSession handles GET /calculator/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "calculator.session.get")
	defer span.End()

	tag, err := localeFromRequest(r)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "get_session", "invalid locale", err, http.StatusBadRequest, w)
		return
	}

	s, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		recordSessionError(ctx, span, logger, "get_session", err, w)
		return
	}

	var resp SessionResponse
	err = s.Do(ctx, func(ctx context.Context, m *keypad.Machine) {
		resp = sessionResponse(s.ID, m, nil, tag)
	})
	if err != nil {
		recordSessionError(ctx, span, logger, "get_session", err, w)
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, resp)
}

// PressKeys handles POST /calculator/sessions/{id}/keys. Applies a batch of
// key presses in order, creating a child span for every key.
func (h *Handler) PressKeys(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "calculator.keys")
	defer span.End()

	tag, err := localeFromRequest(r)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "press_keys", "invalid locale", err, http.StatusBadRequest, w)
		return
	}

	s, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		recordSessionError(ctx, span, logger, "press_keys", err, w)
		return
	}
	span.SetAttributes(attribute.String("calculator.session.id", s.ID))

	// Decode and classify every key before touching the session.
	var req KeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "press_keys", "invalid request body", err, http.StatusBadRequest, w)
		return
	}
	if len(req.Keys) == 0 {
		observability.RecordError(ctx, span, logger, errorCounter, "press_keys", "no keys provided", fmt.Errorf("keys array is empty"), http.StatusBadRequest, w)
		return
	}
	tokens, err := keypad.ParseKeys(req.Keys)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "press_keys", err.Error(), err, http.StatusBadRequest, w)
		return
	}
	span.SetAttributes(attribute.Int("calculator.keys_count", len(tokens)))

	var resp SessionResponse
	err = s.Do(ctx, func(ctx context.Context, m *keypad.Machine) {
		var committed []keypad.Entry
		for i, tok := range tokens {
			keyCtx, keySpan := tracer.Start(ctx, fmt.Sprintf("calculator.key.%d", i),
				trace.WithAttributes(
					attribute.Int("calculator.key.index", i),
					attribute.String("calculator.key.label", tok.String()),
					attribute.String("calculator.key.kind", tok.Kind.String()),
					attribute.String("calculator.state.before", m.State().String()),
				),
			)

			display, c := m.Handle(keyCtx, tok)
			committed = append(committed, c...)

			keysCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", tok.Kind.String())))

			keySpan.SetAttributes(
				attribute.String("calculator.state.after", m.State().String()),
				attribute.String("calculator.display.operand", display.OperandText),
				attribute.Int("calculator.committed_count", len(c)),
			)
			if display.Mode == keypad.ModeError {
				keySpan.SetStatus(codes.Error, "display frozen")
			}
			keySpan.End()
		}
		resp = sessionResponse(s.ID, m, committed, tag)
	})
	if err != nil {
		recordSessionError(ctx, span, logger, "press_keys", err, w)
		return
	}

	span.SetStatus(codes.Ok, "")
	logger.Info("keys applied",
		zap.String("session_id", s.ID),
		zap.Int("keys", len(tokens)),
		zap.Int("committed", len(resp.Committed)),
		zap.String("operand", resp.Display.Operand),
		zap.String("mode", resp.Display.Mode),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)
	handlers.WriteJSON(w, http.StatusOK, resp)
}

// DeleteSession handles DELETE /calculator/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "calculator.session.delete")
	defer span.End()

	if err := h.store.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		recordSessionError(ctx, span, logger, "delete_session", err, w)
		return
	}

	span.SetStatus(codes.Ok, "")
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Handler: stateless evaluation
// ---------------------------------------------------------------------------

// Evaluate handles POST /calculator/evaluate. Evaluates a finished token
// string without a session.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "calculator.evaluate")
	defer span.End()

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", "invalid request body", err, http.StatusBadRequest, w)
		return
	}
	if req.Expression == "" {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", "no expression provided", fmt.Errorf("expression is empty"), http.StatusBadRequest, w)
		return
	}
	span.SetAttributes(attribute.String("calculator.expression", req.Expression))

	start := time.Now()
	result, err := h.eval.Evaluate(ctx, req.Expression)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", err.Error(), err, http.StatusUnprocessableEntity, w)
		return
	}

	display, err := keypad.Format(result)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", "result not representable", err, http.StatusUnprocessableEntity, w)
		return
	}

	attrs := metric.WithAttributes(attribute.String("operation", "evaluate"))
	evalCounter.Add(ctx, 1, attrs)
	evalHistogram.Record(ctx, elapsed, attrs)
	resultGauge.Record(ctx, result, attrs)

	span.AddEvent("computation.complete", trace.WithAttributes(
		attribute.Float64("result", result),
		attribute.Float64("duration_ms", elapsed),
	))
	span.SetAttributes(attribute.Float64("calculator.result", result))
	span.SetStatus(codes.Ok, "")

	logger.Info("expression evaluated",
		zap.String("expression", req.Expression),
		zap.Float64("result", result),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, EvaluateResponse{
		Expression: req.Expression,
		Result:     result,
		Display:    display,
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func startSpan(r *http.Request, name string) (context.Context, trace.Span, *zap.Logger) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("request.id", observability.RequestIDFromContext(ctx)),
		),
	)
	return ctx, span, observability.LoggerWithTrace(ctx)
}

func recordSessionError(ctx context.Context, span trace.Span, logger *zap.Logger, opName string, err error, w http.ResponseWriter) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionClosed):
		observability.RecordError(ctx, span, logger, errorCounter, opName, "session not found", err, http.StatusNotFound, w)
	default:
		observability.RecordError(ctx, span, logger, errorCounter, opName, "session unavailable", err, http.StatusServiceUnavailable, w)
	}
}

func localeFromRequest(r *http.Request) (language.Tag, error) {
	return keypad.ParseLocale(r.URL.Query().Get("locale"))
}

func sessionResponse(id string, m *keypad.Machine, committed []keypad.Entry, tag language.Tag) SessionResponse {
	resp := SessionResponse{
		SessionID: id,
		Display:   newDisplay(m.Display(), tag),
		History:   newEntries(m.History(), tag),
		Tokens:    m.TokenString(),
	}
	if len(committed) > 0 {
		resp.Committed = newEntries(committed, tag)
	}
	return resp
}
