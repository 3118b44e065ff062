package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

const dateLayout = "2006-01-02"

// wireSnapshot es el formato JSON que publica el dashboard.
// m viene como fracción (0.005 = 0.5%).
type wireSnapshot struct {
	Indices map[string]wireIndex `json:"indices"`
	Live    wireLive             `json:"live"`
}

type wireIndex struct {
	History []wireBar `json:"history"`
	Entry   *float64  `json:"entry,omitempty"`
}

type wireBar struct {
	D   string   `json:"d"`
	M   *float64 `json:"m"`
	V   *float64 `json:"v"`
	In  *float64 `json:"in"`
	Out *float64 `json:"out"`
}

type wireLive struct {
	SPVal  float64 `json:"sp_val"`
	SPDt   string  `json:"sp_dt"`
	SPChg  float64 `json:"sp_chg"`
	NKVal  float64 `json:"nk_val"`
	NKDt   string  `json:"nk_dt"`
	NKChg  float64 `json:"nk_chg"`
	FutChg float64 `json:"fut_chg"`
	VIX    float64 `json:"vix"`
}

// Decode convierte el JSON del snapshot al modelo de dominio.
// Filas con campos faltantes se descartan; fechas inválidas o desordenadas
// hacen fallar el instrumento entero como MalformedInput.
func Decode(data []byte) (domain.Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.Snapshot{}, domain.MalformedInput("", fmt.Errorf("decode json: %w", err))
	}
	if len(w.Indices) == 0 {
		return domain.Snapshot{}, domain.MissingInput("", "snapshot has no indices")
	}

	snap := domain.Snapshot{
		Indices: make(map[string]domain.InstrumentSeries, len(w.Indices)),
		Live: domain.LiveQuote{
			SPValue:   w.Live.SPVal,
			SPStatus:  w.Live.SPDt,
			SPChange:  w.Live.SPChg,
			NKValue:   w.Live.NKVal,
			NKStatus:  w.Live.NKDt,
			NKChange:  w.Live.NKChg,
			FutChange: w.Live.FutChg,
			VIX:       w.Live.VIX,
		},
	}
	var errs []error
	for key, idx := range w.Indices {
		s, err := decodeIndex(key, idx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snap.Indices[key] = s
	}
	if len(snap.Indices) == 0 {
		return domain.Snapshot{}, errors.Join(errs...)
	}
	for _, err := range errs {
		// el instrumento queda fuera del snapshot; el reporte lo lista como faltante
		slog.Warn("instrument dropped from snapshot", "err", err)
	}
	return snap, nil
}

func decodeIndex(key string, idx wireIndex) (domain.InstrumentSeries, error) {
	s := domain.InstrumentSeries{Key: key, Bars: make([]domain.Bar, 0, len(idx.History))}
	dropped := 0
	var prev time.Time
	for i, b := range idx.History {
		date, err := time.Parse(dateLayout, b.D)
		if err != nil {
			return domain.InstrumentSeries{}, domain.MalformedInput(key, fmt.Errorf("row %d: %w", i, err))
		}
		if !prev.IsZero() && !date.After(prev) {
			return domain.InstrumentSeries{}, domain.MalformedInput(key,
				fmt.Errorf("row %d: date %s not after %s", i, b.D, prev.Format(dateLayout)))
		}
		prev = date
		if b.M == nil || b.V == nil || b.In == nil || b.Out == nil {
			dropped++
			continue
		}
		s.Bars = append(s.Bars, domain.Bar{
			Date:       date,
			Open:       *b.In,
			Close:      *b.Out,
			Momentum:   *b.M * 100,
			Volatility: *b.V,
		})
	}
	if dropped > 0 {
		slog.Debug("incomplete rows dropped", "instrument", key, "rows", dropped)
	}
	switch {
	case idx.Entry != nil:
		s.Entry = *idx.Entry
	case len(s.Bars) > 0:
		s.Entry = s.Bars[len(s.Bars)-1].Open
	}
	return s, nil
}

// Encode serializa el snapshot al formato del dashboard (m como fracción).
func Encode(snap domain.Snapshot) ([]byte, error) {
	w := wireSnapshot{
		Indices: make(map[string]wireIndex, len(snap.Indices)),
		Live: wireLive{
			SPVal:  snap.Live.SPValue,
			SPDt:   snap.Live.SPStatus,
			SPChg:  snap.Live.SPChange,
			NKVal:  snap.Live.NKValue,
			NKDt:   snap.Live.NKStatus,
			NKChg:  snap.Live.NKChange,
			FutChg: snap.Live.FutChange,
			VIX:    snap.Live.VIX,
		},
	}
	for key, s := range snap.Indices {
		idx := wireIndex{History: make([]wireBar, 0, len(s.Bars))}
		entry := s.Entry
		idx.Entry = &entry
		for _, b := range s.Bars {
			m, v, in, out := b.Momentum/100, b.Volatility, b.Open, b.Close
			idx.History = append(idx.History, wireBar{
				D: b.Date.Format(dateLayout), M: &m, V: &v, In: &in, Out: &out,
			})
		}
		w.Indices[key] = idx
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("snapshot.Encode: %w", err)
	}
	return data, nil
}
