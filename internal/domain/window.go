package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Window recorta la historia a los últimos N días de trading. Days == 0 = todo.
type Window struct {
	Days int
}

// Presets del zoom del dashboard.
var windowPresets = map[string]int{
	"1M":  22,
	"3M":  66,
	"6M":  132,
	"1Y":  252,
	"MAX": 0,
	"ALL": 0,
}

// ParseWindow acepta un preset (1M, 3M, 6M, 1Y, MAX) o un número de días.
func ParseWindow(s string) (Window, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Window{}, nil
	}
	if days, ok := windowPresets[s]; ok {
		return Window{Days: days}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Window{}, fmt.Errorf("invalid window %q: want 1M, 3M, 6M, 1Y, MAX or a day count", s)
	}
	return Window{Days: n}, nil
}

// Apply devuelve las últimas Days barras (sin copiar).
func (w Window) Apply(bars []Bar) []Bar {
	if w.Days <= 0 || w.Days >= len(bars) {
		return bars
	}
	return bars[len(bars)-w.Days:]
}

func (w Window) String() string {
	if w.Days <= 0 {
		return "MAX"
	}
	return strconv.Itoa(w.Days) + "d"
}
