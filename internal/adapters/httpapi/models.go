package httpapi

import (
	"time"

	"github.com/alejandrodnm/quantpro/internal/application/replay"
	"github.com/alejandrodnm/quantpro/internal/domain"
)

const dateLayout = "2006-01-02"

// ReplayRequest es el body de POST /api/v1/replay.
type ReplayRequest struct {
	Instrument string   `json:"instrument" binding:"required"`
	Threshold  *float64 `json:"threshold,omitempty"` // en %, nil = configurado
	Window     string   `json:"window,omitempty"`    // 1M, 3M, 6M, 1Y, MAX o días
}

// ReplayResponse es la vista que dibuja el dashboard.
type ReplayResponse struct {
	Instrument string        `json:"instrument"`
	Name       string        `json:"name"`
	Threshold  float64       `json:"threshold"`
	Window     string        `json:"window"`
	Signal     string        `json:"signal"`
	Entry      float64       `json:"entry"`
	LiveDate   string        `json:"live_date,omitempty"`
	KPI        KPI           `json:"kpi"`
	Yearly     []YearRow     `json:"yearly"`
	Trades     []TradeRow    `json:"trades"`
	Equity     []EquityPoint `json:"equity"`
}

// KPI es el resumen combinado del replay.
type KPI struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"win_rate"`
	TotalPnL     float64 `json:"total_pnl"`
	ProfitFactor float64 `json:"profit_factor"`
}

// YearRow son las estadísticas de un año.
type YearRow struct {
	Year         int     `json:"year"`
	Trades       int     `json:"trades"`
	WinRate      float64 `json:"win_rate"`
	TotalPnL     float64 `json:"total_pnl"`
	ProfitFactor float64 `json:"profit_factor"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
}

// TradeRow es un trade simulado.
type TradeRow struct {
	Date       string  `json:"date"`
	Direction  string  `json:"direction"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Points     float64 `json:"points"`
	PnL        float64 `json:"pnl"`
}

// EquityPoint es un punto de la curva de capital.
type EquityPoint struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
	Close  float64 `json:"close"`
}

// InstrumentsResponse es la respuesta de GET /api/v1/instruments.
type InstrumentsResponse struct {
	Instruments []InstrumentInfo `json:"instruments"`
	Threshold   float64          `json:"threshold"`
	Live        LiveInfo         `json:"live"`
	LoadedAt    time.Time        `json:"loaded_at"`
}

// InstrumentInfo describe un instrumento disponible.
type InstrumentInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Bars int    `json:"bars"`
	From string `json:"from"`
	To   string `json:"to"`
}

// LiveInfo es el nowcast de los mercados predictores.
type LiveInfo struct {
	SPChange  float64 `json:"sp_chg"`
	NKChange  float64 `json:"nk_chg"`
	FutChange float64 `json:"fut_chg"`
	VIX       float64 `json:"vix"`
	Momentum  float64 `json:"momentum"`
}

// ReloadResponse es la respuesta de POST /api/v1/reload.
type ReloadResponse struct {
	Status      string    `json:"status"`
	Instruments int       `json:"instruments"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// ErrorResponse representa una respuesta de error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contiene la información del error.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func toReplayResponse(v replay.View) ReplayResponse {
	resp := ReplayResponse{
		Instrument: v.Instrument,
		Name:       v.Name,
		Threshold:  v.Threshold,
		Window:     v.Window,
		Signal:     v.Signal.String(),
		Entry:      v.Entry,
		KPI: KPI{
			Trades:       v.KPI.Trades,
			Wins:         v.KPI.Wins,
			WinRate:      v.KPI.WinRate,
			TotalPnL:     v.KPI.TotalPnL,
			ProfitFactor: v.KPI.ProfitFactor,
		},
		Yearly: make([]YearRow, 0, len(v.Yearly)),
		Trades: make([]TradeRow, 0, len(v.Trades)),
		Equity: make([]EquityPoint, 0, len(v.Equity)),
	}
	if !v.LiveDate.IsZero() {
		resp.LiveDate = v.LiveDate.Format(dateLayout)
	}
	for _, y := range v.Yearly {
		resp.Yearly = append(resp.Yearly, yearRow(y))
	}
	for _, t := range v.Trades {
		resp.Trades = append(resp.Trades, TradeRow{
			Date:       t.Date.Format(dateLayout),
			Direction:  string(t.Direction),
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Points:     t.Points,
			PnL:        t.PnL,
		})
	}
	for _, e := range v.Equity {
		resp.Equity = append(resp.Equity, EquityPoint{
			Date:   e.Date.Format(dateLayout),
			Equity: e.Equity,
			Close:  e.Close,
		})
	}
	return resp
}

func yearRow(y domain.YearlyStats) YearRow {
	return YearRow{
		Year:         y.Year,
		Trades:       y.Trades(),
		WinRate:      y.WinRate(),
		TotalPnL:     y.TotalPnL,
		ProfitFactor: y.ProfitFactor,
		AvgWin:       y.AvgWin,
		AvgLoss:      y.AvgLoss,
	}
}

func toInstrumentsResponse(s *replay.Session) InstrumentsResponse {
	infos := s.Instruments()
	resp := InstrumentsResponse{
		Instruments: make([]InstrumentInfo, 0, len(infos)),
		Threshold:   s.Threshold(),
		LoadedAt:    s.LoadedAt(),
	}
	for _, in := range infos {
		resp.Instruments = append(resp.Instruments, InstrumentInfo{
			Key:  in.Key,
			Name: in.Name,
			Bars: in.Bars,
			From: in.From.Format(dateLayout),
			To:   in.To.Format(dateLayout),
		})
	}
	live := s.Live()
	resp.Live = LiveInfo{
		SPChange:  live.SPChange,
		NKChange:  live.NKChange,
		FutChange: live.FutChange,
		VIX:       live.VIX,
		Momentum:  live.Momentum(),
	}
	return resp
}
