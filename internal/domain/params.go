package domain

import (
	"errors"
	"fmt"
	"maps"
)

const (
	DefaultThreshold       = 0.30  // % de momentum para abrir posición
	DefaultLongCap         = 25.0  // VIX máximo para LONG
	DefaultShortCap        = 32.0  // VIX máximo para SHORT
	DefaultTransactionCost = 2.0   // puntos por operación (entrada + salida)
	DefaultStartingCapital = 20000 // capital inicial de la equity curve
	DefaultRecentTrades    = 2
	DefaultYearsBack       = 2 // año actual + 2 anteriores
)

// VolatilityCaps son los techos del filtro de volatilidad.
// La señal solo se dispara si la volatilidad del día está por DEBAJO del techo.
type VolatilityCaps struct {
	LongCap  float64
	ShortCap float64
}

// Params es la configuración explícita de todo el pipeline.
// Se pasa por valor a cada cálculo; nunca se lee de estado global.
type Params struct {
	Threshold       float64 // en porcentaje: 0.30 = 0.30%
	Caps            VolatilityCaps
	TransactionCost float64
	StartingCapital float64
	RecentTrades    int
	YearsBack       int

	multipliers  map[string]float64
	displayNames map[string]string
}

// NewParams construye Params copiando los mapas, así el llamador no puede
// mutarlos después.
func NewParams(threshold float64, caps VolatilityCaps, cost, capital float64,
	multipliers map[string]float64, names map[string]string,
) Params {
	return Params{
		Threshold:       threshold,
		Caps:            caps,
		TransactionCost: cost,
		StartingCapital: capital,
		RecentTrades:    DefaultRecentTrades,
		YearsBack:       DefaultYearsBack,
		multipliers:     maps.Clone(multipliers),
		displayNames:    maps.Clone(names),
	}
}

// DefaultParams devuelve la configuración de referencia.
func DefaultParams() Params {
	return NewParams(
		DefaultThreshold,
		VolatilityCaps{LongCap: DefaultLongCap, ShortCap: DefaultShortCap},
		DefaultTransactionCost,
		DefaultStartingCapital,
		map[string]float64{"SX50E": 10, "DAX": 25, "FTSEMIB": 5, "CAC": 10, "IBEX": 10},
		map[string]string{"SX50E": "EUROSTOXX 50", "DAX": "DAX 40", "FTSEMIB": "FTSE MIB"},
	)
}

// Multiplier devuelve el valor monetario de un punto del instrumento.
// Instrumentos sin multiplicador configurado valen 1 por punto.
func (p Params) Multiplier(instrument string) float64 {
	if m, ok := p.multipliers[instrument]; ok {
		return m
	}
	return 1
}

// Multipliers devuelve una copia de la tabla de multiplicadores.
func (p Params) Multipliers() map[string]float64 { return maps.Clone(p.multipliers) }

// DisplayNames devuelve una copia de la tabla de nombres.
func (p Params) DisplayNames() map[string]string { return maps.Clone(p.displayNames) }

// DisplayName devuelve el nombre legible, o la key si no hay uno configurado.
func (p Params) DisplayName(instrument string) string {
	if n, ok := p.displayNames[instrument]; ok && n != "" {
		return n
	}
	return instrument
}

// HasDisplayName indica si el instrumento tiene nombre configurado.
func (p Params) HasDisplayName(instrument string) bool {
	_, ok := p.displayNames[instrument]
	return ok
}

// WithThreshold devuelve una copia con otro umbral. Usado por el replay.
func (p Params) WithThreshold(threshold float64) Params {
	p.Threshold = threshold
	return p
}

// Validate comprueba que la configuración tenga sentido.
func (p Params) Validate() error {
	var errs []error
	if p.Threshold < 0 {
		errs = append(errs, fmt.Errorf("threshold must be >= 0, got %v", p.Threshold))
	}
	if p.Caps.LongCap <= 0 || p.Caps.ShortCap <= 0 {
		errs = append(errs, errors.New("volatility caps must be > 0"))
	}
	if p.TransactionCost < 0 {
		errs = append(errs, fmt.Errorf("transaction cost must be >= 0, got %v", p.TransactionCost))
	}
	if p.StartingCapital <= 0 {
		errs = append(errs, fmt.Errorf("starting capital must be > 0, got %v", p.StartingCapital))
	}
	if p.RecentTrades < 0 {
		errs = append(errs, fmt.Errorf("recent trades must be >= 0, got %d", p.RecentTrades))
	}
	if p.YearsBack < 0 {
		errs = append(errs, fmt.Errorf("years back must be >= 0, got %d", p.YearsBack))
	}
	for k, m := range p.multipliers {
		if m <= 0 {
			errs = append(errs, fmt.Errorf("multiplier for %s must be > 0, got %v", k, m))
		}
	}
	return errors.Join(errs...)
}
