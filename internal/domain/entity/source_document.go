package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceType tipo del documento comercial de origen.
type SourceType string

const (
	SourceInvoice              SourceType = "Invoice"
	SourceReceipt              SourceType = "Receipt"
	SourceCreditNote           SourceType = "CreditNote"
	SourceReminder             SourceType = "Reminder"
	SourceDeliveryNote         SourceType = "DeliveryNote"
	SourceRetentionCertificate SourceType = "RetentionCertificate"
)

// SourceTypes cada uno tiene su propio flag de habilitación por tenant.
var SourceTypes = []SourceType{
	SourceInvoice, SourceReceipt, SourceCreditNote,
	SourceReminder, SourceDeliveryNote, SourceRetentionCertificate,
}

// TaxAmount una entrada del desglose de impuestos de un documento o posición.
type TaxAmount struct {
	CategoryID string          `json:"categoryId"`
	TypeID     string          `json:"typeId"`
	Key        string          `json:"key"` // identificador usado en ElectronicBilling.TaxMapping.<key>
	Base       decimal.Decimal `json:"base"`
	Amount     decimal.Decimal `json:"amount"`
	Factor     decimal.Decimal `json:"factor"`
}

// TaxBreakdown desglose ordenado.
type TaxBreakdown []TaxAmount

// Position línea del documento comercial.
type Position struct {
	Index          int
	ProductID      string
	ProductCode    string
	Description    string
	UnitCode       string
	Quantity       decimal.Decimal
	NetUnitPrice   decimal.Decimal
	CrossUnitPrice decimal.Decimal
	NetPrice       decimal.Decimal
	CrossPrice     decimal.Decimal
	Taxes          TaxBreakdown
}

// Installment cuota de pago a crédito.
type Installment struct {
	DueDate time.Time       `json:"dueDate"`
	Amount  decimal.Decimal `json:"amount"`
}

// Payment forma de pago: contado o crédito con cronograma de cuotas.
type Payment struct {
	Credit       bool          `json:"credit"`
	Installments []Installment `json:"installments,omitempty"`
}

// Driver conductor de una guía de remisión.
type Driver struct {
	IDType     string `json:"idType"`
	IDNumber   string `json:"idNumber"`
	FirstName  string `json:"firstName"`
	FamilyName string `json:"familyName"`
	License    string `json:"license"`
}

// Vehicle vehículo principal del traslado.
type Vehicle struct {
	Plate       string `json:"plate"`
	Certificate string `json:"certificate,omitempty"` // Constancia de inscripción MTC
	Minor       bool   `json:"minor"`                 // Vehículo de categoría M1 o L
}

// Shipment datos de traslado de una guía de remisión.
type Shipment struct {
	CarrierContactID    string           `json:"carrierContactId,omitempty"`
	StartDate           time.Time        `json:"startDate"`
	TransferReason      string           `json:"transferReason,omitempty"`
	Driver              *Driver          `json:"driver,omitempty"`
	Vehicle             *Vehicle         `json:"vehicle,omitempty"`
	DepartureLocationID string           `json:"departureLocationId"`
	ArrivalLocationID   string           `json:"arrivalLocationId"`
	Weight              *decimal.Decimal `json:"weight,omitempty"`
}

// SourceDocument documento comercial de origen (solo lectura para este sistema).
type SourceDocument struct {
	ID               string
	TenantID         string
	Type             SourceType
	Name             string
	Date             time.Time
	DueDate          *time.Time
	Currency         string
	NetTotal         decimal.Decimal
	CrossTotal       decimal.Decimal
	ContactID        string
	FreeOfCharge     bool
	Taxes            TaxBreakdown
	Positions        []Position
	Payment          Payment
	CreditReasonCode string
	Note             string
	Shipment         *Shipment
}
