package domain

import (
	"math"
	"sort"
	"time"
)

// YearlyStats agrega los trades de un año natural.
type YearlyStats struct {
	Year         int
	TotalPnL     float64
	Wins         []float64 // pnl > 0
	Losses       []float64 // abs(pnl) de los trades con pnl <= 0
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64
}

// Trades devuelve el número de trades del año.
func (y YearlyStats) Trades() int { return len(y.Wins) + len(y.Losses) }

// WinRate devuelve wins/trades en [0,1].
func (y YearlyStats) WinRate() float64 {
	if y.Trades() == 0 {
		return 0
	}
	return float64(len(y.Wins)) / float64(y.Trades())
}

// Summary es el KPI combinado sobre un conjunto de trades.
type Summary struct {
	Trades       int
	Wins         int
	WinRate      float64 // [0,1]
	TotalPnL     float64
	GrossProfit  float64
	GrossLoss    float64
	ProfitFactor float64
}

// TargetYears devuelve el año de now y los back años anteriores, más reciente primero.
func TargetYears(now time.Time, back int) []int {
	if back < 0 {
		back = 0
	}
	years := make([]int, 0, back+1)
	for i := 0; i <= back; i++ {
		years = append(years, now.Year()-i)
	}
	return years
}

// AggregateYears agrupa los trades por año natural y calcula las estadísticas
// de los años pedidos. Los años sin trades no aparecen en la salida.
// La salida respeta el orden de years.
func AggregateYears(trades []Trade, years []int) []YearlyStats {
	wanted := make(map[int]bool, len(years))
	for _, y := range years {
		wanted[y] = true
	}
	buckets := bucketByYear(trades, func(y int) bool { return wanted[y] })

	out := make([]YearlyStats, 0, len(years))
	seen := make(map[int]bool, len(years))
	for _, y := range years {
		if seen[y] {
			continue
		}
		seen[y] = true
		if b, ok := buckets[y]; ok {
			out = append(out, b.finish())
		}
	}
	return out
}

// AggregateAll es AggregateYears sobre todos los años presentes (ascendente)
// más el resumen combinado.
func AggregateAll(trades []Trade) ([]YearlyStats, Summary) {
	buckets := bucketByYear(trades, func(int) bool { return true })
	years := make([]int, 0, len(buckets))
	for y := range buckets {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearlyStats, 0, len(years))
	for _, y := range years {
		out = append(out, buckets[y].finish())
	}
	return out, Summarize(trades)
}

// Summarize calcula el KPI combinado de la lista de trades.
func Summarize(trades []Trade) Summary {
	s := Summary{Trades: len(trades)}
	for _, t := range trades {
		s.TotalPnL += t.PnL
		if t.PnL > 0 {
			s.Wins++
			s.GrossProfit += t.PnL
		} else {
			s.GrossLoss += math.Abs(t.PnL)
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	s.ProfitFactor = ProfitFactor(s.GrossProfit, s.GrossLoss)
	return s
}

// ProfitFactor = grossProfit / grossLoss. Sin pérdidas devuelve grossProfit
// (nunca infinito).
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss > 0 {
		return grossProfit / grossLoss
	}
	return grossProfit
}

type yearBucket struct {
	year   int
	total  float64
	wins   []float64
	losses []float64
}

func bucketByYear(trades []Trade, keep func(int) bool) map[int]*yearBucket {
	buckets := make(map[int]*yearBucket)
	for _, t := range trades {
		y := t.Date.Year()
		if !keep(y) {
			continue
		}
		b, ok := buckets[y]
		if !ok {
			b = &yearBucket{year: y}
			buckets[y] = b
		}
		b.total += t.PnL
		if t.PnL > 0 {
			b.wins = append(b.wins, t.PnL)
		} else {
			b.losses = append(b.losses, math.Abs(t.PnL))
		}
	}
	return buckets
}

func (b *yearBucket) finish() YearlyStats {
	gp, gl := sum(b.wins), sum(b.losses)
	return YearlyStats{
		Year:         b.year,
		TotalPnL:     b.total,
		Wins:         b.wins,
		Losses:       b.losses,
		ProfitFactor: ProfitFactor(gp, gl),
		AvgWin:       mean(b.wins),
		AvgLoss:      mean(b.losses),
	}
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}
