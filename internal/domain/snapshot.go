package domain

import "sort"

// LiveQuote son los datos de nowcast de los mercados predictores.
type LiveQuote struct {
	SPValue   float64
	SPStatus  string
	SPChange  float64 // %
	NKValue   float64
	NKStatus  string
	NKChange  float64 // %
	FutChange float64 // % del futuro S&P en la ventana 00-08 CET
	VIX       float64
}

// Momentum es el momentum medio del nowcast.
func (l LiveQuote) Momentum() float64 {
	return CompositeMomentum(l.SPChange, l.NKChange, l.FutChange)
}

// Snapshot es la entrada completa del pipeline: series alineadas por
// instrumento + nowcast. Se trata como inmutable una vez construido.
type Snapshot struct {
	Indices map[string]InstrumentSeries
	Live    LiveQuote
}

// Keys devuelve las keys de instrumentos ordenadas.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.Indices))
	for k := range s.Indices {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Series devuelve la serie de un instrumento o ErrMissingInput si no existe
// o está vacía.
func (s Snapshot) Series(key string) (InstrumentSeries, error) {
	series, ok := s.Indices[key]
	if !ok {
		return InstrumentSeries{}, MissingInput(key, "instrument not in snapshot")
	}
	if len(series.Bars) == 0 {
		return InstrumentSeries{}, MissingInput(key, "empty history")
	}
	return series, nil
}
