package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/quantpro/internal/adapters/notify"
	"github.com/alejandrodnm/quantpro/internal/domain"
)

func makeReport() domain.Report {
	return domain.Report{
		GeneratedAt:  time.Date(2026, 10, 16, 7, 45, 0, 0, time.UTC),
		Threshold:    0.30,
		LiveMomentum: 0.42,
		LiveVIX:      17.3,
		Instruments: []domain.InstrumentReport{
			{
				Key:        "SX50E",
				Name:       "EUROSTOXX 50",
				Signal:     domain.SignalLong,
				Entry:      5012.4,
				Momentum:   0.51,
				Volatility: 17.3,
				Recent: []domain.Trade{
					{Date: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), Direction: domain.DirectionShort, PnL: -230},
					{Date: time.Date(2026, 10, 9, 0, 0, 0, 0, time.UTC), Direction: domain.DirectionLong, PnL: 1250},
				},
				Yearly: []domain.YearlyStats{
					{Year: 2026, TotalPnL: 4520, Wins: []float64{3000, 2000}, Losses: []float64{480}, ProfitFactor: 10.42},
				},
				FinalEquity: 24520,
			},
		},
		Skipped: []domain.InstrumentFailure{{Key: "DAX", Code: "MISSING_INPUT", Err: "missing input (DAX): empty history"}},
	}
}

func TestConsole_Notify_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.Notify(context.Background(), makeReport()))

	out := buf.String()
	assert.Contains(t, out, "EUROSTOXX 50")
	assert.Contains(t, out, "LONG")
	assert.Contains(t, out, "5,012.4")
	assert.Contains(t, out, "+4,520")
	assert.Contains(t, out, "10.42")
	assert.Contains(t, out, "-230")
	assert.Contains(t, out, "DAX skipped [MISSING_INPUT]")
}

func TestConsole_Notify_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, n.Notify(context.Background(), makeReport()))

	out := buf.String()
	assert.Contains(t, out, "[07:45:00]")
	assert.Contains(t, out, "SX50E LONG @5,012.4")
}

func TestConsole_Notify_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.Notify(context.Background(), domain.Report{}))
	assert.Contains(t, buf.String(), "no instruments to report")
}

func TestConsole_PrintHistory(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	n.PrintHistory(nil)
	assert.Contains(t, buf.String(), "No stored runs")

	buf.Reset()
	n.PrintHistory([]domain.RunRecord{{
		ID:          "0b5e2c1a-aaaa-bbbb-cccc-1234567890ab",
		GeneratedAt: time.Date(2026, 10, 16, 7, 45, 0, 0, time.UTC),
		Threshold:   0.3,
		Signals:     []domain.SignalRecord{{Instrument: "DAX", Signal: domain.SignalShort}},
	}})
	out := buf.String()
	assert.Contains(t, out, "0b5e2c1a")
	assert.Contains(t, out, "DAX SHORT")
}

// --- Telegram ---

func TestFormatTelegram(t *testing.T) {
	msg := notify.FormatTelegram(makeReport(), "https://example.org/dash/")

	assert.True(t, strings.HasPrefix(msg, "🌐 *DASHBOARD LIVE:* [OPEN](https://example.org/dash/)"))
	assert.Contains(t, msg, "Average momentum: *0.42%*")
	assert.Contains(t, msg, "*EUROSTOXX 50*")
	assert.Contains(t, msg, "Signal: LONG 🟢")
	assert.Contains(t, msg, "Entry: *5,012.4*")
	// el más reciente primero
	first := strings.Index(msg, "2026-10-14 (SHORT): *-230€*")
	second := strings.Index(msg, "2026-10-09 (LONG): *1,250€*")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
	assert.Contains(t, msg, "2026: +4,520€ | PF 10.42 | 3 trades")
	assert.Contains(t, msg, "DAX not available (MISSING_INPUT)")
}

func TestFormatTelegram_NoDashboard(t *testing.T) {
	msg := notify.FormatTelegram(domain.Report{}, "")
	assert.True(t, strings.HasPrefix(msg, "🏛 *QUANT-PRO STRATEGY REPORT*"))
}

func TestTelegram_Notify_PostsMarkdown(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := notify.NewTelegramWithBase(srv.URL, "TOKEN", "42", "")
	require.NoError(t, n.Notify(context.Background(), makeReport()))

	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "Markdown", got["parse_mode"])
	assert.Contains(t, got["text"], "EUROSTOXX 50")
}

func TestTelegram_Notify_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n := notify.NewTelegramWithBase(srv.URL, "TOKEN", "42", "")
	err := n.Notify(context.Background(), makeReport())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
