package domain

import "time"

// Direction es el lado de un trade simulado.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Trade es una operación intradía simulada: entra en el open, sale en el close.
type Trade struct {
	Date       time.Time
	Direction  Direction
	EntryPrice float64
	ExitPrice  float64
	Points     float64 // ya descontado el coste de transacción
	PnL        float64 // Points × multiplicador
}

// EquityPoint es el capital acumulado al cierre de un día.
type EquityPoint struct {
	Date   time.Time
	Equity float64
	Close  float64 // cierre del índice, para dibujarlo junto a la equity
}

// Journal es el resultado de simular la historia de un instrumento.
type Journal struct {
	Instrument  string
	Trades      []Trade       // orden cronológico
	Equity      []EquityPoint // un punto por día histórico
	FinalEquity float64
}

// Simulate reproduce las barras dadas a través del clasificador.
// Las barras deben ser solo históricas (sin la sesión en curso): usar
// InstrumentSeries.Historical(). No muta la entrada.
func Simulate(bars []Bar, p Params, instrument string) Journal {
	mult := p.Multiplier(instrument)
	equity := p.StartingCapital

	j := Journal{
		Instrument: instrument,
		Equity:     make([]EquityPoint, 0, len(bars)),
	}
	for _, b := range bars {
		if t, ok := tradeFor(b, p, mult); ok {
			j.Trades = append(j.Trades, t)
			equity += t.PnL
		}
		j.Equity = append(j.Equity, EquityPoint{Date: b.Date, Equity: equity, Close: b.Close})
	}
	j.FinalEquity = equity
	return j
}

func tradeFor(b Bar, p Params, mult float64) (Trade, bool) {
	var points float64
	var dir Direction
	switch Classify(b.Momentum, b.Volatility, p) {
	case SignalLong:
		dir = DirectionLong
		points = b.Close - b.Open - p.TransactionCost
	case SignalShort:
		dir = DirectionShort
		points = b.Open - b.Close - p.TransactionCost
	default:
		return Trade{}, false
	}
	return Trade{
		Date:       b.Date,
		Direction:  dir,
		EntryPrice: b.Open,
		ExitPrice:  b.Close,
		Points:     points,
		PnL:        points * mult,
	}, true
}

// RecentTrades devuelve los últimos n trades, el más reciente primero.
func RecentTrades(trades []Trade, n int) []Trade {
	if n <= 0 || len(trades) == 0 {
		return nil
	}
	if n > len(trades) {
		n = len(trades)
	}
	out := make([]Trade, 0, n)
	for i := len(trades) - 1; i >= len(trades)-n; i-- {
		out = append(out, trades[i])
	}
	return out
}

// Reversed devuelve los trades del más reciente al más antiguo.
func Reversed(trades []Trade) []Trade {
	return RecentTrades(trades, len(trades))
}

// CurrentSignal clasifica la sesión en curso (última barra). Se reporta pero
// nunca se convierte en Trade.
func CurrentSignal(s InstrumentSeries, p Params) (Signal, Bar, bool) {
	live, ok := s.Live()
	if !ok {
		return SignalFlat, Bar{}, false
	}
	return Classify(live.Momentum, live.Volatility, p), live, true
}
