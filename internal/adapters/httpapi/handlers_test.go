package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/quantpro/internal/adapters/httpapi"
	"github.com/alejandrodnm/quantpro/internal/application/replay"
	"github.com/alejandrodnm/quantpro/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSource struct {
	snap domain.Snapshot
	err  error
}

func (s *stubSource) Load(context.Context) (domain.Snapshot, error) { return s.snap, s.err }

func day(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }

func params() domain.Params {
	return domain.NewParams(0.30, domain.VolatilityCaps{LongCap: 25, ShortCap: 32}, 2, 20000,
		map[string]float64{"SX50E": 10},
		map[string]string{"SX50E": "EUROSTOXX 50"},
	)
}

func snapshot(keys ...string) domain.Snapshot {
	snap := domain.Snapshot{
		Indices: map[string]domain.InstrumentSeries{},
		Live:    domain.LiveQuote{SPChange: 0.6, NKChange: 0.3, FutChange: 0.0, VIX: 18},
	}
	for _, k := range keys {
		snap.Indices[k] = domain.InstrumentSeries{
			Key:   k,
			Entry: 5100,
			Bars: []domain.Bar{
				{Date: day(13), Open: 5000, Close: 5010, Momentum: 0.5, Volatility: 20},  // +80
				{Date: day(14), Open: 5000, Close: 5005, Momentum: -0.4, Volatility: 20}, // -70
				{Date: day(15), Open: 5000, Close: 5050, Momentum: 0.9, Volatility: 18},  // +480
				{Date: day(16), Open: 5100, Close: 5100, Momentum: -0.6, Volatility: 21},
			},
		}
	}
	return snap
}

func newRouter(t *testing.T, src *stubSource) *gin.Engine {
	t.Helper()
	sess, err := replay.NewSession(snapshot("SX50E"), params())
	require.NoError(t, err)
	var h *httpapi.Handler
	if src != nil {
		h = httpapi.NewHandler(sess, src, params())
	} else {
		h = httpapi.NewHandler(sess, nil, params())
	}
	return httpapi.NewRouter(h, httpapi.Config{AllowedOrigins: []string{"http://dash.local"}})
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httpapi.ErrorDetail {
	t.Helper()
	var resp httpapi.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListInstruments(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodGet, "/api/v1/instruments", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp httpapi.InstrumentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Instruments, 1)
	assert.Equal(t, "SX50E", resp.Instruments[0].Key)
	assert.Equal(t, "EUROSTOXX 50", resp.Instruments[0].Name)
	assert.Equal(t, "2026-10-13", resp.Instruments[0].From)
	assert.Equal(t, "2026-10-16", resp.Instruments[0].To)
	assert.InDelta(t, 0.3, resp.Live.Momentum, 1e-9)
	assert.InDelta(t, 0.30, resp.Threshold, 1e-9)
}

func TestReplay(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodPost, "/api/v1/replay", map[string]any{"instrument": "SX50E"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp httpapi.ReplayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SHORT", resp.Signal)
	assert.Equal(t, "MAX", resp.Window)
	assert.Equal(t, "2026-10-16", resp.LiveDate)
	assert.Equal(t, 3, resp.KPI.Trades)
	assert.InDelta(t, 490, resp.KPI.TotalPnL, 1e-9)
	require.Len(t, resp.Trades, 3)
	assert.Equal(t, "2026-10-15", resp.Trades[0].Date)
	assert.Equal(t, "LONG", resp.Trades[0].Direction)
	require.Len(t, resp.Equity, 3)
	assert.InDelta(t, 20490, resp.Equity[2].Equity, 1e-9)
	require.Len(t, resp.Yearly, 1)
	assert.Equal(t, 2026, resp.Yearly[0].Year)
}

func TestReplay_ThresholdAndWindow(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodPost, "/api/v1/replay",
		map[string]any{"instrument": "SX50E", "threshold": 0.45, "window": "2"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp httpapi.ReplayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 0.45, resp.Threshold, 1e-9)
	assert.Equal(t, "2d", resp.Window)
	// -0.4 ya no califica con 0.45; solo queda el +480
	assert.Equal(t, 1, resp.KPI.Trades)
	assert.Equal(t, "SHORT", resp.Signal)
}

func TestReplay_Errors(t *testing.T) {
	r := newRouter(t, nil)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing instrument", map[string]any{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"negative threshold", map[string]any{"instrument": "SX50E", "threshold": -1}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad window", map[string]any{"instrument": "SX50E", "window": "forever"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown instrument", map[string]any{"instrument": "NOPE"}, http.StatusNotFound, "MISSING_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/replay", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestReload(t *testing.T) {
	src := &stubSource{snap: snapshot("SX50E", "DAX")}
	r := newRouter(t, src)

	w := do(r, http.MethodPost, "/api/v1/reload", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp httpapi.ReloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Instruments)

	w = do(r, http.MethodPost, "/api/v1/replay", map[string]any{"instrument": "DAX"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReload_FailureKeepsSession(t *testing.T) {
	src := &stubSource{err: domain.MalformedInput("", errors.New("bad json"))}
	r := newRouter(t, src)

	w := do(r, http.MethodPost, "/api/v1/reload", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "MALFORMED_INPUT", decodeError(t, w).Code)

	w = do(r, http.MethodPost, "/api/v1/replay", map[string]any{"instrument": "SX50E"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReload_Disabled(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodPost, "/api/v1/reload", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, "RELOAD_DISABLED", decodeError(t, w).Code)
}

func TestNoRoute(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}

func TestErrorHandler_Panic(t *testing.T) {
	r := newRouter(t, nil)
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, "INTERNAL_ERROR", detail.Code)
	assert.Equal(t, "boom", detail.Message)
}

func TestCORS(t *testing.T) {
	r := newRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://dash.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://dash.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/replay", nil)
	req.Header.Set("Origin", "http://dash.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://dash.local", w.Header().Get("Access-Control-Allow-Origin"))
}
