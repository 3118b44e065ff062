package notify

import (
	"strings"

	"github.com/shopspring/decimal"
)

// money formatea un importe con separador de miles y places decimales,
// p.ej. money(-12345.678, 0) = "-12,346".
func money(v float64, places int32) string {
	d := decimal.NewFromFloat(v).Round(places)
	sign := ""
	if d.IsNegative() {
		sign, d = "-", d.Abs()
	}
	intPart, frac, hasFrac := strings.Cut(d.StringFixed(places), ".")

	var sb strings.Builder
	sb.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	if hasFrac {
		sb.WriteByte('.')
		sb.WriteString(frac)
	}
	return sb.String()
}

// signedMoney antepone "+" a los importes positivos.
func signedMoney(v float64, places int32) string {
	if decimal.NewFromFloat(v).Round(places).IsPositive() {
		return "+" + money(v, places)
	}
	return money(v, places)
}
