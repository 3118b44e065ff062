package domain

// Signal es la decisión de trading para un día.
type Signal int

const (
	SignalFlat Signal = iota
	SignalLong
	SignalShort
)

// String devuelve el nombre de la señal.
func (s Signal) String() string {
	switch s {
	case SignalLong:
		return "LONG"
	case SignalShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Icon devuelve el indicador visual de la señal.
func (s Signal) Icon() string {
	switch s {
	case SignalLong:
		return "🟢"
	case SignalShort:
		return "🔴"
	default:
		return "⚪"
	}
}

// Classify mapea momentum + volatilidad a una señal.
//
//	LONG  si momentum >  threshold y volatility < LongCap
//	SHORT si momentum < -threshold y volatility < ShortCap
//	FLAT  en cualquier otro caso
//
// Si el momentum califica pero el filtro de volatilidad falla, la señal se
// suprime (FLAT), nunca se invierte.
func Classify(momentum, volatility float64, p Params) Signal {
	switch {
	case momentum > p.Threshold && volatility < p.Caps.LongCap:
		return SignalLong
	case momentum < -p.Threshold && volatility < p.Caps.ShortCap:
		return SignalShort
	default:
		return SignalFlat
	}
}

// ParseSignal es la inversa de String. Valores desconocidos son FLAT.
func ParseSignal(s string) Signal {
	switch s {
	case "LONG":
		return SignalLong
	case "SHORT":
		return SignalShort
	default:
		return SignalFlat
	}
}
