package entity

import (
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
)

// DocumentType tipo de comprobante electrónico (conjunto cerrado).
type DocumentType string

const (
	TypeInvoice      DocumentType = "Invoice"
	TypeReceipt      DocumentType = "Receipt"
	TypeCreditNote   DocumentType = "CreditNote"
	TypeDeliveryNote DocumentType = "DeliveryNote"
	TypeSummary      DocumentType = "Summary"
)

// DocumentTypes todos los tipos soportados, en orden de procesamiento.
var DocumentTypes = []DocumentType{TypeInvoice, TypeReceipt, TypeCreditNote, TypeDeliveryNote, TypeSummary}

// Valid indica si t pertenece al conjunto cerrado.
func (t DocumentType) Valid() bool {
	_, ok := docTypeCodes[t]
	return ok
}

// Code devuelve el código del catálogo 01 ("01", "03", "07", "09", "RC").
func (t DocumentType) Code() string {
	return docTypeCodes[t]
}

var docTypeCodes = map[DocumentType]string{
	TypeInvoice:      sunat.DocTypeInvoice,
	TypeReceipt:      sunat.DocTypeReceipt,
	TypeCreditNote:   sunat.DocTypeCreditNote,
	TypeDeliveryNote: sunat.DocTypeDeliveryNote,
	TypeSummary:      sunat.DocTypeSummary,
}

// Status estado del comprobante frente a SUNAT.
type Status string

const (
	StatusPending    Status = "Pending"    // Creado, aún sin aceptación
	StatusIssued     Status = "Issued"     // Enviado, respuesta pendiente (ticket o CDR por consultar)
	StatusSuccessful Status = "Successful" // Aceptado (código de respuesta 0)
	StatusRejected   Status = "Rejected"   // Rechazado por SUNAT
	StatusAborted    Status = "Aborted"    // Descartado (verificación o anulación administrativa)
)

// ParseStatus convierte un string a Status; ok=false si no es un estado conocido.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := transitions[st]
	return st, ok
}

// transitions tabla única de transiciones permitidas.
var transitions = map[Status][]Status{
	StatusPending:    {StatusIssued, StatusRejected, StatusAborted},
	StatusIssued:     {StatusSuccessful, StatusRejected, StatusAborted},
	StatusSuccessful: {StatusAborted},
	StatusRejected:   {StatusAborted},
	StatusAborted:    {},
}

// CanTransition indica si el cambio from → to está permitido.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal Successful, Rejected y Aborted no vuelven a procesarse.
func (s Status) IsTerminal() bool {
	return s == StatusSuccessful || s == StatusRejected || s == StatusAborted
}

// Canales de transmisión.
const (
	ChannelSOAP    = "soap"
	ChannelREST    = "rest"
	ChannelSummary = "summary"
)

// ElectronicDocument comprobante electrónico derivado de exactamente un documento fuente
// (o, para Summary, de sus miembros).
type ElectronicDocument struct {
	ID               string
	TenantID         string
	Type             DocumentType
	Status           Status
	SourceDocumentID string // vacío para Summary
	SourceName       string // número del comprobante (F001-123, RC-20240105-1)
	Channel          string
	Ticket           string // ticket asíncrono (sendSummary / REST)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
