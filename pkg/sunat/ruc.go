package sunat

import (
	"fmt"
	"unicode"
)

// pesos del módulo 11 aplicados a los 10 primeros dígitos del RUC, de izquierda a derecha.
var rucWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// ValidateRUC valida longitud, prefijo y dígito verificador de un RUC.
// Acepta el RUC con espacios o guiones ("20100070970", "20-10007097-0").
func ValidateRUC(taxID string) error {
	digits := extractDigits(taxID)
	if len(digits) != 11 {
		return fmt.Errorf("sunat: RUC debe tener 11 dígitos, se encontraron %d", len(digits))
	}
	switch string(digits[:2]) {
	case "10", "15", "17", "20":
	default:
		return fmt.Errorf("sunat: prefijo de RUC inválido %q", string(digits[:2]))
	}
	expected, err := ComputeRUCCheckDigit(string(digits[:10]))
	if err != nil {
		return err
	}
	if digits[10] != expected {
		return fmt.Errorf("sunat: dígito verificador del RUC inválido: esperado %c, recibido %c", expected, digits[10])
	}
	return nil
}

// ValidRUC atajo booleano de ValidateRUC.
func ValidRUC(taxID string) bool {
	return ValidateRUC(taxID) == nil
}

// ComputeRUCCheckDigit calcula el dígito verificador para los 10 primeros dígitos del RUC.
func ComputeRUCCheckDigit(taxID string) (byte, error) {
	digits := extractDigits(taxID)
	if len(digits) < 10 {
		return 0, fmt.Errorf("sunat: se requieren 10 dígitos para calcular el verificador, se encontraron %d", len(digits))
	}
	var sum int
	for i, d := range digits[:10] {
		sum += int(d-'0') * rucWeights[i]
	}
	check := 11 - sum%11
	switch check {
	case 10:
		check = 0
	case 11:
		check = 1
	}
	return byte('0' + check), nil
}

// Digits devuelve solo los dígitos de s.
func Digits(s string) string {
	return string(extractDigits(s))
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
