// Package ubl modelo canónico en memoria de un comprobante UBL 2.1 antes de serializarlo.
package ubl

import (
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// Address dirección con ubigeo (código de 6 dígitos INEI).
type Address struct {
	Line            string
	Ubigeo          string
	CountryCode     string
	AddressTypeCode string // código de establecimiento anexo ("0000" sede principal)
}

// Party emisor, receptor o transportista.
type Party struct {
	IDType    string // catálogo 06
	ID        string
	Name      string
	TradeName string
	Address   *Address
}

// Line ítem del comprobante.
type Line struct {
	Index          int
	ProductCode    string
	Description    string
	UnitCode       string
	Quantity       decimal.Decimal
	NetUnitPrice   decimal.Decimal
	CrossUnitPrice decimal.Decimal
	NetPrice       decimal.Decimal
	CrossPrice     decimal.Decimal
	PriceTypeCode  string          // catálogo 16
	ReferencePrice decimal.Decimal // valor referencial (operaciones gratuitas)
	Taxes          []tax.Entry
}

// TaxAmount suma de tributos de la línea.
func (l Line) TaxAmount() decimal.Decimal {
	total := decimal.Zero
	for _, t := range l.Taxes {
		total = total.Add(t.Amount)
	}
	return total
}

// Installment cuota de pago.
type Installment struct {
	ID      string // Cuota001...
	DueDate time.Time
	Amount  decimal.Decimal
}

// PaymentTerms forma de pago (Contado / Credito).
type PaymentTerms struct {
	Method       string
	Amount       decimal.Decimal // monto pendiente cuando es crédito
	Installments []Installment
}

// BillingReference comprobante afectado por una nota de crédito.
type BillingReference struct {
	TypeCode string
	Number   string
	Date     time.Time
}

// Driver conductor principal.
type Driver struct {
	IDType     string
	ID         string
	FirstName  string
	FamilyName string
	License    string
}

// Vehicle vehículo principal.
type Vehicle struct {
	Plate       string
	Certificate string
	Minor       bool
}

// Shipment datos de traslado de la guía de remisión.
type Shipment struct {
	ReasonCode string // catálogo 20
	Mode       string // catálogo 18
	StartDate  time.Time
	Weight     decimal.Decimal
	WeightUnit string
	Carrier    *Party // solo transporte público
	Driver     *Driver
	Vehicle    *Vehicle
	Despatch   Address
	Arrival    Address
}

// SummaryLine boleta (o nota asociada) dentro de un resumen diario.
type SummaryLine struct {
	Index          int
	TypeCode       string
	Number         string
	CustomerIDType string
	CustomerID     string
	Currency       string
	StatusCode     string // 1 adicionar, 2 modificar, 3 anular
	Total          decimal.Decimal
	TaxableAmount  decimal.Decimal
	Taxes          []tax.Entry
}

// Document modelo común a los tipos de comprobante; cada tipo usa el subconjunto que le aplica.
type Document struct {
	Number        string
	TypeCode      string // catálogo 01
	Currency      string
	IssueDate     time.Time
	DueDate       *time.Time
	ReferenceDate time.Time // resumen diario: fecha de emisión de los miembros
	Note          string

	NetTotal     decimal.Decimal
	CrossTotal   decimal.Decimal
	PayableTotal decimal.Decimal

	Supplier Party
	Customer Party

	Lines            []Line
	Taxes            []tax.Entry
	AllowanceCharges []tax.AllowanceCharge
	Retention        *tax.AllowanceCharge // se informa pero no altera el importe a pagar
	PaymentTerms     *PaymentTerms

	BillingReference *BillingReference
	CreditReasonCode string
	CreditReason     string

	Shipment     *Shipment
	SummaryLines []SummaryLine
}

// TaxTotal suma de los tributos a nivel de documento.
func (d *Document) TaxTotal() decimal.Decimal {
	total := decimal.Zero
	for _, t := range d.Taxes {
		total = total.Add(t.Amount)
	}
	return total
}

// Allowances descuentos (ChargeIndicator=false).
func (d *Document) Allowances() decimal.Decimal {
	return d.sumCharges(false)
}

// Charges cargos (ChargeIndicator=true).
func (d *Document) Charges() decimal.Decimal {
	return d.sumCharges(true)
}

func (d *Document) sumCharges(charge bool) decimal.Decimal {
	total := decimal.Zero
	for _, ac := range d.AllowanceCharges {
		if ac.Charge == charge {
			total = total.Add(ac.Amount)
		}
	}
	return total
}
