package entity

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Prefijo de todas las claves de configuración de facturación electrónica.
const PropertyPrefix = "ElectronicBilling."

// Properties configuración clave→valor de un tenant. Solo lectura en tiempo de ejecución.
type Properties map[string]string

// Key arma una clave con el prefijo ElectronicBilling.
func Key(parts ...string) string {
	return PropertyPrefix + strings.Join(parts, ".")
}

// Get devuelve el valor y si existe (valores en blanco cuentan como ausentes).
func (p Properties) Get(key string) (string, bool) {
	v, ok := p[key]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// String devuelve el valor o def.
func (p Properties) String(key, def string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return def
}

// Bool interpreta "true", "1", "yes", "si"; def si no está o no se reconoce.
func (p Properties) Bool(key string, def bool) bool {
	v, ok := p.Get(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "si", "sí":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

// Int valor entero o def.
func (p Properties) Int(key string, def int) int {
	v, ok := p.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Decimal valor decimal o def.
func (p Properties) Decimal(key string, def decimal.Decimal) decimal.Decimal {
	v, ok := p.Get(key)
	if !ok {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

// WithPrefix subconjunto de claves que empiezan con prefix (sin recortar).
func (p Properties) WithPrefix(prefix string) Properties {
	out := Properties{}
	for k, v := range p {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}
