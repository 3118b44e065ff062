package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alejandrodnm/quantpro/internal/domain"
	"github.com/alejandrodnm/quantpro/internal/tracing"
)

// ErrInvalidRequest indica parámetros de replay fuera de rango.
var ErrInvalidRequest = errors.New("invalid replay request")

// Session mantiene un snapshot inmutable y recalcula el pipeline completo en
// cada petición. Es segura para uso concurrente: nunca muta su estado.
type Session struct {
	snap     domain.Snapshot
	params   domain.Params
	loadedAt time.Time
}

// Request es una petición de replay. Threshold nil = umbral configurado.
// Window acepta los presets de domain.ParseWindow.
type Request struct {
	Instrument string
	Threshold  *float64
	Window     string
}

// InstrumentInfo describe un instrumento disponible para replay.
type InstrumentInfo struct {
	Key  string
	Name string
	Bars int
	From time.Time
	To   time.Time
}

// View es el resultado de un replay: lo que el dashboard dibuja.
type View struct {
	Instrument string
	Name       string
	Threshold  float64
	Window     string
	Trades     []domain.Trade // el más reciente primero
	Equity     []domain.EquityPoint
	KPI        domain.Summary
	Yearly     []domain.YearlyStats
	Signal     domain.Signal
	Entry      float64
	LiveDate   time.Time
}

// NewSession valida los parámetros y fija el snapshot.
func NewSession(snap domain.Snapshot, params domain.Params) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("replay.NewSession: %w", err)
	}
	if len(snap.Indices) == 0 {
		return nil, domain.MissingInput("", "snapshot has no instruments")
	}
	return &Session{snap: snap, params: params, loadedAt: time.Now()}, nil
}

// LoadedAt devuelve cuándo se creó la sesión.
func (s *Session) LoadedAt() time.Time { return s.loadedAt }

// Live devuelve el nowcast del snapshot.
func (s *Session) Live() domain.LiveQuote { return s.snap.Live }

// Threshold devuelve el umbral configurado.
func (s *Session) Threshold() float64 { return s.params.Threshold }

// Instruments lista los instrumentos con historia, ordenados por key.
func (s *Session) Instruments() []InstrumentInfo {
	out := make([]InstrumentInfo, 0, len(s.snap.Indices))
	for _, k := range s.snap.Keys() {
		series := s.snap.Indices[k]
		if len(series.Bars) == 0 {
			continue
		}
		out = append(out, InstrumentInfo{
			Key:  k,
			Name: s.params.DisplayName(k),
			Bars: len(series.Bars),
			From: series.Bars[0].Date,
			To:   series.Bars[len(series.Bars)-1].Date,
		})
	}
	return out
}

// Replay recalcula señales, trades y estadísticas para la petición.
func (s *Session) Replay(ctx context.Context, req Request) (View, error) {
	_, span := tracing.StartSpan(ctx, "replay.recompute", attribute.String("instrument", req.Instrument))
	defer span.End()

	p := s.params
	if req.Threshold != nil {
		if *req.Threshold < 0 {
			return View{}, fmt.Errorf("replay.Replay: %w: threshold must be >= 0, got %v", ErrInvalidRequest, *req.Threshold)
		}
		p = p.WithThreshold(*req.Threshold)
	}
	w, err := domain.ParseWindow(req.Window)
	if err != nil {
		return View{}, fmt.Errorf("replay.Replay: %w: %w", ErrInvalidRequest, err)
	}

	series, err := s.snap.Series(req.Instrument)
	if err != nil {
		return View{}, fmt.Errorf("replay.Replay: %w", err)
	}

	bt := domain.Run(series, p, w)
	span.SetAttributes(attribute.Int("trades", bt.Summary.Trades), attribute.Float64("threshold", p.Threshold))

	return View{
		Instrument: req.Instrument,
		Name:       p.DisplayName(req.Instrument),
		Threshold:  p.Threshold,
		Window:     w.String(),
		Trades:     domain.Reversed(bt.Journal.Trades),
		Equity:     bt.Journal.Equity,
		KPI:        bt.Summary,
		Yearly:     bt.Yearly,
		Signal:     bt.Signal,
		Entry:      series.Entry,
		LiveDate:   bt.Live.Date,
	}, nil
}
