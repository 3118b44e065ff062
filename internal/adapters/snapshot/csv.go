package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

// PredictorColumn es una columna de cierres de un mercado predictor.
// Lag desplaza su retorno n días para alinear horarios de cierre.
type PredictorColumn struct {
	Column string
	Lag    int
}

// Layout describe el CSV de cierres crudo: una fila por fecha, columnas
// <KEY>_open / <KEY>_close por instrumento, una columna por predictor y una
// de volatilidad.
type Layout struct {
	DateColumn  string
	DateFormat  string
	Predictors  []PredictorColumn
	Volatility  string
	Instruments []string
	// Posiciones de SP, NK y futuro en Predictors, para el nowcast.
	SPIndex, NKIndex, FutIndex int
}

// DefaultLayout es el layout del motor original: S&P retrasado un día,
// Nikkei y futuro del S&P del mismo día, VIX como volatilidad.
func DefaultLayout() Layout {
	return Layout{
		DateColumn: "date",
		DateFormat: dateLayout,
		Predictors: []PredictorColumn{
			{Column: "SPX", Lag: 1},
			{Column: "N225", Lag: 0},
			{Column: "ES", Lag: 0},
		},
		Volatility:  "VIX",
		Instruments: []string{"SX50E", "DAX", "CAC", "IBEX", "FTSEMIB"},
		SPIndex:     0,
		NKIndex:     1,
		FutIndex:    2,
	}
}

// BuildFromCSV construye el snapshot a partir del CSV crudo. Los huecos se
// rellenan con el último valor conocido antes de calcular retornos.
func BuildFromCSV(r io.Reader, layout Layout) (domain.Snapshot, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return domain.Snapshot{}, domain.MalformedInput("", fmt.Errorf("read csv: %w", err))
	}
	if len(rows) < 2 {
		return domain.Snapshot{}, domain.MissingInput("", "csv has no data rows")
	}

	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[strings.TrimSpace(h)] = i
	}
	data := rows[1:]

	dateIdx, ok := header[layout.DateColumn]
	if !ok {
		return domain.Snapshot{}, domain.MalformedInput("", fmt.Errorf("missing column %q", layout.DateColumn))
	}
	dates := make([]time.Time, len(data))
	for i, row := range data {
		d, err := time.Parse(layout.DateFormat, strings.TrimSpace(row[dateIdx]))
		if err != nil {
			return domain.Snapshot{}, domain.MalformedInput("", fmt.Errorf("row %d: %w", i+2, err))
		}
		if i > 0 && !d.After(dates[i-1]) {
			return domain.Snapshot{}, domain.MalformedInput("",
				fmt.Errorf("row %d: date %s not after %s", i+2, d.Format(dateLayout), dates[i-1].Format(dateLayout)))
		}
		dates[i] = d
	}

	col := func(name string) ([]float64, error) {
		idx, ok := header[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		out, err := parseColumn(data, idx)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		return forwardFill(out), nil
	}

	predCloses := make([][]float64, len(layout.Predictors))
	predReturns := make([][]float64, len(layout.Predictors))
	for i, p := range layout.Predictors {
		closes, err := col(p.Column)
		if err != nil {
			return domain.Snapshot{}, domain.MalformedInput("", err)
		}
		predCloses[i] = closes
		predReturns[i] = domain.Lag(domain.PctChange(closes), p.Lag)
	}
	vol, err := col(layout.Volatility)
	if err != nil {
		return domain.Snapshot{}, domain.MalformedInput("", err)
	}

	predictors := make([]domain.PredictorSet, len(data))
	for i := range data {
		ret := make([]float64, len(predReturns))
		for j := range predReturns {
			ret[j] = predReturns[j][i]
		}
		predictors[i] = domain.PredictorSet{Date: dates[i], Returns: ret, Volatility: vol[i]}
	}

	snap := domain.Snapshot{Indices: make(map[string]domain.InstrumentSeries, len(layout.Instruments))}
	var errs []error
	for _, key := range layout.Instruments {
		opens, err := col(key + "_open")
		if err == nil {
			var closes []float64
			closes, err = col(key + "_close")
			if err == nil {
				s, dropped := domain.BuildSeries(key, pricePoints(dates, opens, closes), predictors)
				slog.Debug("series built", "instrument", key, "bars", len(s.Bars), "dropped", dropped)
				snap.Indices[key] = s
				continue
			}
		}
		errs = append(errs, domain.MalformedInput(key, err))
	}
	if len(snap.Indices) == 0 {
		return domain.Snapshot{}, errors.Join(errs...)
	}
	for _, err := range errs {
		slog.Warn("instrument skipped in csv", "err", err)
	}

	snap.Live = liveQuote(dates, predCloses, vol, layout)
	return snap, nil
}

func parseColumn(rows [][]string, idx int) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if idx >= len(row) {
			out[i] = math.NaN()
			continue
		}
		cell := strings.TrimSpace(row[idx])
		if cell == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out[i] = v
	}
	return out, nil
}

// forwardFill reemplaza NaN por el último valor válido anterior.
func forwardFill(values []float64) []float64 {
	last := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = last
			continue
		}
		last = v
	}
	return values
}

func pricePoints(dates []time.Time, opens, closes []float64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(dates))
	for i := range dates {
		out[i] = domain.PricePoint{Date: dates[i], Open: opens[i], Close: closes[i]}
	}
	return out
}

// liveQuote arma el nowcast con la última fila. Con datos diarios el cambio
// del futuro es el del último día, no la ventana nocturna.
func liveQuote(dates []time.Time, closes [][]float64, vol []float64, l Layout) domain.LiveQuote {
	n := len(dates) - 1
	last := func(i int) float64 {
		if i < 0 || i >= len(closes) || math.IsNaN(closes[i][n]) {
			return 0
		}
		return closes[i][n]
	}
	unlagged := func(i int) float64 {
		if i < 0 || i >= len(closes) {
			return 0
		}
		chg := domain.PctChange(closes[i])
		if math.IsNaN(chg[n]) {
			return 0
		}
		return chg[n]
	}
	status := "CLOSE: " + dates[n].Format("02 Jan")
	q := domain.LiveQuote{
		SPValue:   last(l.SPIndex),
		SPStatus:  status,
		SPChange:  unlagged(l.SPIndex),
		NKValue:   last(l.NKIndex),
		NKStatus:  status,
		NKChange:  unlagged(l.NKIndex),
		FutChange: unlagged(l.FutIndex),
	}
	if !math.IsNaN(vol[n]) {
		q.VIX = vol[n]
	}
	return q
}
