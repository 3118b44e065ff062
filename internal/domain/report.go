package domain

import "time"

// InstrumentReport es lo que la notificación necesita de un instrumento.
type InstrumentReport struct {
	Key         string
	Name        string
	Signal      Signal
	Entry       float64
	Momentum    float64 // momentum de la sesión en curso
	Volatility  float64
	LiveDate    time.Time
	Recent      []Trade       // últimos N, el más reciente primero
	Yearly      []YearlyStats // años objetivo con trades, más reciente primero
	Summary     Summary       // toda la historia
	FinalEquity float64
}

// InstrumentFailure registra un instrumento que no se pudo procesar.
type InstrumentFailure struct {
	Key  string
	Code string
	Err  string
}

// Report es el resultado de una ejecución batch.
type Report struct {
	GeneratedAt  time.Time
	Threshold    float64
	LiveMomentum float64
	LiveVIX      float64
	Instruments  []InstrumentReport
	Skipped      []InstrumentFailure
}

// SignalRecord es la parte persistida del reporte de un instrumento.
type SignalRecord struct {
	Instrument string
	Signal     Signal
	Entry      float64
	Momentum   float64
	TotalPnL   float64
	Trades     int
	Recent     []Trade
}

// RunRecord es una ejecución batch tal como queda guardada.
type RunRecord struct {
	ID           string
	GeneratedAt  time.Time
	Threshold    float64
	LiveMomentum float64
	Signals      []SignalRecord
	Skipped      int
}

// Record convierte el reporte en lo que se persiste por ejecución.
func (r Report) Record(id string) RunRecord {
	rec := RunRecord{
		ID:           id,
		GeneratedAt:  r.GeneratedAt,
		Threshold:    r.Threshold,
		LiveMomentum: r.LiveMomentum,
		Signals:      make([]SignalRecord, 0, len(r.Instruments)),
		Skipped:      len(r.Skipped),
	}
	for _, ir := range r.Instruments {
		rec.Signals = append(rec.Signals, SignalRecord{
			Instrument: ir.Key,
			Signal:     ir.Signal,
			Entry:      ir.Entry,
			Momentum:   ir.Momentum,
			TotalPnL:   ir.Summary.TotalPnL,
			Trades:     ir.Summary.Trades,
			Recent:     ir.Recent,
		})
	}
	return rec
}
