package tax

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 montos: 2 decimales, half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundPercent factor × 100 con 2 decimales.
func RoundPercent(factor decimal.Decimal) decimal.Decimal {
	return factor.Mul(hundred).Round(2)
}

// RoundFactor factores de cargos/descuentos (5 decimales).
func RoundFactor(d decimal.Decimal) decimal.Decimal {
	return d.Round(5)
}

// RoundWeight peso bruto: solo se redondea si la escala supera 3 decimales.
func RoundWeight(d decimal.Decimal) decimal.Decimal {
	if -d.Exponent() > 3 {
		return d.Round(3)
	}
	return d
}

// Format2 representación textual con exactamente 2 decimales.
func Format2(d decimal.Decimal) string {
	return d.StringFixed(2)
}
