package tax

import (
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Level contexto del cálculo: línea o documento.
type Level int

const (
	LevelLine Level = iota
	LevelDocument
)

// Entry tributo listo para cac:TaxSubtotal.
type Entry struct {
	ID                  string
	Name                string
	TaxTypeCode         string
	ExemptionReasonCode string // solo se serializa en línea
	Taxable             decimal.Decimal
	Amount              decimal.Decimal
	Percent             decimal.Decimal
}

// AllowanceCharge cargo (Charge=true) o descuento (Charge=false) para cac:AllowanceCharge.
type AllowanceCharge struct {
	Charge     bool
	ReasonCode string
	Factor     decimal.Decimal
	Amount     decimal.Decimal
	Base       decimal.Decimal
}

// Result tributos y cargos derivados de un desglose.
type Result struct {
	Taxes   []Entry
	Charges []AllowanceCharge
}

// TaxAmount suma de los montos de tributo.
func (r Result) TaxAmount() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Taxes {
		total = total.Add(e.Amount)
	}
	return total
}

// Calculator servicio de dominio sin estado, parametrizado por la configuración del tenant.
type Calculator struct {
	cfg Config
}

// NewCalculator crea un calculador con la configuración dada.
func NewCalculator(cfg Config) *Calculator {
	if cfg.Mappings == nil {
		cfg.Mappings = DefaultConfig().Mappings
	}
	return &Calculator{cfg: cfg}
}

// Config configuración efectiva.
func (c *Calculator) Config() Config { return c.cfg }

// Compute traduce el desglose. Claves sin mapeo se omiten; los impuestos mapeados como
// cargo se emiten como cargo de documento y se ignoran a nivel de línea.
func (c *Calculator) Compute(b entity.TaxBreakdown, level Level) Result {
	var res Result
	for _, t := range b {
		m, ok := c.mapping(t)
		if !ok {
			continue
		}
		if m.Charge {
			if level == LevelDocument {
				res.Charges = append(res.Charges, AllowanceCharge{
					Charge:     true,
					ReasonCode: m.ChargeReasonCode,
					Factor:     RoundFactor(t.Factor),
					Amount:     Round2(t.Amount),
					Base:       Round2(t.Base),
				})
			}
			continue
		}
		e := Entry{
			ID:          m.ID,
			Name:        m.Name,
			TaxTypeCode: m.TaxTypeCode,
			Taxable:     t.Base,
			Amount:      t.Amount,
			Percent:     RoundPercent(t.Factor),
		}
		if level == LevelLine {
			e.ExemptionReasonCode = m.ExemptionReasonCode
		}
		res.Taxes = merge(res.Taxes, e)
	}
	roundEntries(res.Taxes)
	return res
}

// FreeOfCharge recalcula el desglose con el esquema gratuito fijo: monto 0, base referencial,
// porcentaje 0 y motivo de exoneración en cada entrada (en ambos niveles).
func (c *Calculator) FreeOfCharge(b entity.TaxBreakdown, _ Level) Result {
	var res Result
	foc := c.cfg.FreeOfCharge
	for _, t := range b {
		if m, ok := c.mapping(t); ok && m.Charge {
			continue
		}
		res.Taxes = merge(res.Taxes, Entry{
			ID:                  foc.TaxID,
			Name:                foc.Name,
			TaxTypeCode:         foc.TaxTypeCode,
			ExemptionReasonCode: foc.ExemptionReasonCode,
			Taxable:             t.Base,
			Amount:              decimal.Zero,
			Percent:             decimal.Zero,
		})
	}
	roundEntries(res.Taxes)
	return res
}

// Discount agrupa los precios netos negativos en un único descuento global.
// Retorna nil si no hay negativos.
func (c *Calculator) Discount(netPrices []decimal.Decimal) *AllowanceCharge {
	neg, pos := decimal.Zero, decimal.Zero
	for _, p := range netPrices {
		if p.IsNegative() {
			neg = neg.Add(p.Abs())
		} else {
			pos = pos.Add(p)
		}
	}
	if neg.IsZero() {
		return nil
	}
	factor := decimal.Zero
	if pos.IsPositive() {
		factor = RoundFactor(neg.Div(pos))
	}
	return &AllowanceCharge{
		Charge:     false,
		ReasonCode: c.cfg.DiscountReasonCode,
		Factor:     factor,
		Amount:     Round2(neg),
		Base:       Round2(pos),
	}
}

// Retention cargo de retención: activo, agente de retención y total > umbral (estricto).
func (c *Calculator) Retention(withholdingAgent bool, crossTotal decimal.Decimal) *AllowanceCharge {
	r := c.cfg.Retention
	if !r.Active || !withholdingAgent || !crossTotal.GreaterThan(r.Threshold) {
		return nil
	}
	return &AllowanceCharge{
		Charge:     true,
		ReasonCode: r.ReasonCode,
		Factor:     r.Percent,
		Amount:     Round2(crossTotal.Mul(r.Percent)),
		Base:       Round2(crossTotal),
	}
}

func (c *Calculator) mapping(t entity.TaxAmount) (Mapping, bool) {
	key := t.Key
	if key == "" {
		key = t.TypeID
	}
	m, ok := c.cfg.Mappings[key]
	return m, ok
}

// merge acumula entradas con el mismo código de tributo.
func merge(entries []Entry, e Entry) []Entry {
	for i := range entries {
		if entries[i].ID == e.ID && entries[i].ExemptionReasonCode == e.ExemptionReasonCode {
			entries[i].Taxable = entries[i].Taxable.Add(e.Taxable)
			entries[i].Amount = entries[i].Amount.Add(e.Amount)
			return entries
		}
	}
	return append(entries, e)
}

func roundEntries(entries []Entry) {
	for i := range entries {
		entries[i].Taxable = Round2(entries[i].Taxable)
		entries[i].Amount = Round2(entries[i].Amount)
	}
}
