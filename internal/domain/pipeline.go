package domain

// Backtest es la salida del pipeline para un instrumento.
type Backtest struct {
	Journal Journal
	Yearly  []YearlyStats // todos los años presentes, ascendente
	Summary Summary
	Signal  Signal // señal de la sesión en curso
	Live    Bar
	HasLive bool
}

// Run ejecuta clasificador → simulador → agregador sobre la serie.
// Es la única implementación: el reporte batch y el replay la llaman igual.
// La ventana se aplica a la parte histórica (la sesión en curso queda fuera
// de la simulación siempre).
func Run(s InstrumentSeries, p Params, w Window) Backtest {
	j := Simulate(w.Apply(s.Historical()), p, s.Key)
	yearly, summary := AggregateAll(j.Trades)
	sig, live, ok := CurrentSignal(s, p)
	return Backtest{
		Journal: j,
		Yearly:  yearly,
		Summary: summary,
		Signal:  sig,
		Live:    live,
		HasLive: ok,
	}
}
