package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/evaluator"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	observability.Logger = zap.NewNop()
	require.NoError(t, calculator.InitMetrics())

	eval := evaluator.New()
	store := calculator.NewStore(eval, time.Hour, zap.NewNop())
	t.Cleanup(store.Close)

	require.NoError(t, calculator.RegisterPrometheus(store))

	return NewRouter(calculator.NewHandler(store, eval))
}

func TestNewRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestNewRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/metrics", nil), router)

	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "calculator_sessions_live")
}

func TestNewRouterKeypadSessionSetsHeaderAndOmitsRequestIDInBody(t *testing.T) {
	router := newTestRouter(t)

	w := testutil.ExecuteJSON(t, router, http.MethodPost, "/calculator/sessions", nil)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	requestID := w.Result().Header.Get("X-Request-ID")
	require.NotEmpty(t, requestID, "X-Request-ID header should be set")
	_, err := uuid.Parse(requestID)
	assert.NoError(t, err, "X-Request-ID should be a UUID, got %q", requestID)

	var created calculator.SessionResponse
	testutil.DecodeJSONBody(t, w.Result().Body, &created)

	w = testutil.ExecuteJSON(t, router, http.MethodPost, "/calculator/sessions/"+created.SessionID+"/keys",
		calculator.KeysRequest{Keys: []string{"1", "2", "+", "3", "="}})
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var payload map[string]any
	testutil.DecodeJSONBody(t, w.Result().Body, &payload)

	assert.NotContains(t, payload, "request_id", "success bodies carry no request_id")

	display, ok := payload["display"].(map[string]any)
	require.True(t, ok, "display should be an object, got %#v", payload["display"])
	assert.Equal(t, "15", display["operand"])
}
