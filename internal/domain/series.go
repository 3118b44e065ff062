package domain

import (
	"math"
	"time"
)

// PricePoint es un día de un instrumento.
type PricePoint struct {
	Date  time.Time
	Open  float64
	Close float64
}

// PredictorSet son los retornos (%) de los mercados predictores para una fecha,
// ya alineados. Volatility es el valor del índice de volatilidad ese día.
type PredictorSet struct {
	Date       time.Time
	Returns    []float64
	Volatility float64
}

// Bar es un día anotado: precios + momentum compuesto + volatilidad.
type Bar struct {
	Date       time.Time
	Open       float64
	Close      float64
	Momentum   float64 // en porcentaje
	Volatility float64
}

// InstrumentSeries es la historia diaria de un instrumento, ordenada por fecha.
// La última barra es la sesión en curso: nunca se simula, solo se usa para
// la señal actual.
type InstrumentSeries struct {
	Key   string
	Bars  []Bar
	Entry float64 // nivel de entrada de la sesión en curso (open)
}

// Historical devuelve todas las barras excepto la última.
func (s InstrumentSeries) Historical() []Bar {
	if len(s.Bars) == 0 {
		return nil
	}
	return s.Bars[:len(s.Bars)-1]
}

// Live devuelve la última barra (sesión en curso).
func (s InstrumentSeries) Live() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// CompositeMomentum es la media aritmética de los retornos predictores.
func CompositeMomentum(returns ...float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	return sum / float64(len(returns))
}

// PctChange devuelve el retorno porcentual día a día. El primer valor es NaN.
func PctChange(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if i == 0 || closes[i-1] == 0 || isMissing(closes[i-1]) || isMissing(closes[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (closes[i]/closes[i-1] - 1) * 100
	}
	return out
}

// Lag desplaza la serie n posiciones hacia adelante (equivalente a shift(n)).
// Se usa para alinear un mercado que cierra después que el instrumento objetivo.
func Lag(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i-n < 0 || i-n >= len(values) {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i-n]
	}
	return out
}

// BuildSeries une precios y predictores por fecha y calcula el momentum.
// Las fechas sin precio, sin predictores o con algún valor faltante se
// descartan (fila incompleta). Devuelve también cuántas filas se descartaron.
func BuildSeries(key string, prices []PricePoint, predictors []PredictorSet) (InstrumentSeries, int) {
	byDate := make(map[time.Time]PredictorSet, len(predictors))
	for _, p := range predictors {
		byDate[dayKey(p.Date)] = p
	}

	s := InstrumentSeries{Key: key, Bars: make([]Bar, 0, len(prices))}
	dropped := 0
	for _, pp := range prices {
		ps, ok := byDate[dayKey(pp.Date)]
		if !ok || !completeRow(pp, ps) {
			dropped++
			continue
		}
		s.Bars = append(s.Bars, Bar{
			Date:       pp.Date,
			Open:       pp.Open,
			Close:      pp.Close,
			Momentum:   CompositeMomentum(ps.Returns...),
			Volatility: ps.Volatility,
		})
	}
	if n := len(s.Bars); n > 0 {
		s.Entry = s.Bars[n-1].Open
	}
	return s, dropped
}

func completeRow(pp PricePoint, ps PredictorSet) bool {
	if isMissing(pp.Open) || isMissing(pp.Close) || isMissing(ps.Volatility) {
		return false
	}
	if len(ps.Returns) == 0 {
		return false
	}
	for _, r := range ps.Returns {
		if isMissing(r) {
			return false
		}
	}
	return true
}

func isMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func dayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
