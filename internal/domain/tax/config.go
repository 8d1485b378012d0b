// Package tax deriva tributos, cargos y descuentos de un desglose de impuestos
// con la disciplina de redondeo que exige SUNAT (2 decimales, half-up).
package tax

import (
	"sort"
	"strings"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/shopspring/decimal"
)

// Mapping traduce un impuesto interno a los códigos del catálogo 05.
type Mapping struct {
	Key                 string
	ID                  string // catálogo 05 (1000, 9997...)
	Name                string // IGV, EXO...
	TaxTypeCode         string // VAT, FRE...
	ExemptionReasonCode string // catálogo 07, solo en línea
	Charge              bool   // percepción/detracción: se emite como cargo y no como tributo
	ChargeReasonCode    string // catálogo 53
}

// RetentionConfig retención del IGV para agentes de retención.
type RetentionConfig struct {
	Active     bool
	Threshold  decimal.Decimal
	Percent    decimal.Decimal
	ReasonCode string
}

// FreeOfChargeConfig esquema fijo para operaciones gratuitas.
type FreeOfChargeConfig struct {
	TaxID               string
	Name                string
	TaxTypeCode         string
	ExemptionReasonCode string
}

// Config configuración tributaria de un tenant.
type Config struct {
	Mappings           map[string]Mapping
	Retention          RetentionConfig
	DiscountReasonCode string
	FreeOfCharge       FreeOfChargeConfig
}

// DefaultKey clave del mapeo por defecto (IGV gravado).
const DefaultKey = "IGV"

// DefaultConfig IGV gravado, retención inactiva (umbral 700, 3 %), descuento 02 y gratuito 9996.
func DefaultConfig() Config {
	igv := sunat.TaxSchemes[sunat.TaxIGV]
	free := sunat.TaxSchemes[sunat.TaxFree]
	return Config{
		Mappings: map[string]Mapping{
			DefaultKey: {
				Key:                 DefaultKey,
				ID:                  sunat.TaxIGV,
				Name:                igv.Name,
				TaxTypeCode:         igv.TaxTypeCode,
				ExemptionReasonCode: sunat.ExemptionTaxed,
			},
		},
		Retention: RetentionConfig{
			Threshold:  decimal.NewFromInt(700),
			Percent:    decimal.RequireFromString("0.03"),
			ReasonCode: sunat.ChargeReasonRetention,
		},
		DiscountReasonCode: sunat.ChargeReasonGlobalDiscount,
		FreeOfCharge: FreeOfChargeConfig{
			TaxID:               sunat.TaxFree,
			Name:                free.Name,
			TaxTypeCode:         free.TaxTypeCode,
			ExemptionReasonCode: sunat.ExemptionExemptFree,
		},
	}
}

// LoadConfig lee ElectronicBilling.TaxMapping.*, Retention.*, Discount.* y FreeOfCharge.*
// sobre los valores por defecto.
func LoadConfig(p entity.Properties) Config {
	cfg := DefaultConfig()

	prefix := entity.Key("TaxMapping") + "."
	for _, key := range mappingKeys(p, prefix) {
		base := prefix + key + "."
		id := p.String(base+"Id", "")
		scheme := sunat.TaxSchemes[id]
		m := Mapping{
			Key:                 key,
			ID:                  id,
			Name:                p.String(base+"Name", scheme.Name),
			TaxTypeCode:         p.String(base+"TaxTypeCode", scheme.TaxTypeCode),
			ExemptionReasonCode: p.String(base+"ExemptionReasonCode", ""),
			Charge:              p.Bool(base+"Charge", false),
			ChargeReasonCode:    p.String(base+"ChargeReasonCode", sunat.ChargeReasonPerception),
		}
		if m.ID == "" && !m.Charge {
			continue
		}
		cfg.Mappings[key] = m
	}

	cfg.Retention.Active = p.Bool(entity.Key("Retention", "Active"), false)
	cfg.Retention.Threshold = p.Decimal(entity.Key("Retention", "Threshold"), cfg.Retention.Threshold)
	cfg.Retention.Percent = p.Decimal(entity.Key("Retention", "Percent"), cfg.Retention.Percent)
	cfg.Retention.ReasonCode = p.String(entity.Key("Retention", "ReasonCode"), cfg.Retention.ReasonCode)

	cfg.DiscountReasonCode = p.String(entity.Key("Discount", "ReasonCode"), cfg.DiscountReasonCode)

	cfg.FreeOfCharge.TaxID = p.String(entity.Key("FreeOfCharge", "TaxId"), cfg.FreeOfCharge.TaxID)
	cfg.FreeOfCharge.Name = p.String(entity.Key("FreeOfCharge", "TaxName"), cfg.FreeOfCharge.Name)
	cfg.FreeOfCharge.TaxTypeCode = p.String(entity.Key("FreeOfCharge", "TaxTypeCode"), cfg.FreeOfCharge.TaxTypeCode)
	cfg.FreeOfCharge.ExemptionReasonCode = p.String(entity.Key("FreeOfCharge", "ExemptionReasonCode"), cfg.FreeOfCharge.ExemptionReasonCode)
	return cfg
}

// mappingKeys claves distintas bajo el prefijo, ordenadas.
func mappingKeys(p entity.Properties, prefix string) []string {
	seen := map[string]struct{}{}
	for k := range p.WithPrefix(prefix) {
		rest := strings.TrimPrefix(k, prefix)
		idx := strings.LastIndex(rest, ".")
		if idx <= 0 {
			continue
		}
		seen[rest[:idx]] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
