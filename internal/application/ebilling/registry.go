package ebilling

import (
	"context"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
)

// AssembleFunc ensamblador de un tipo de comprobante.
type AssembleFunc func(ctx context.Context, in AssemblyInput) (*ubl.Document, error)

// Strategy comportamiento de un tipo de comprobante para un tenant.
type Strategy struct {
	Type         entity.DocumentType
	Active       bool
	CreateUBL    bool
	CreateReport bool
	Channel      string
	Encoding     string
	Assemble     AssembleFunc
}

// Registry tabla tipo → ensamblador. Los flags salen de las propiedades del tenant.
type Registry struct {
	assemblers map[entity.DocumentType]AssembleFunc
}

// NewRegistry registra los ensambladores del conjunto cerrado de tipos.
func NewRegistry(a *Assembler) *Registry {
	return &Registry{assemblers: map[entity.DocumentType]AssembleFunc{
		entity.TypeInvoice:      a.assembleSale,
		entity.TypeReceipt:      a.assembleSale,
		entity.TypeCreditNote:   a.assembleCreditNote,
		entity.TypeDeliveryNote: a.assembleDeliveryNote,
		entity.TypeSummary:      a.assembleSummary,
	}}
}

// Register reemplaza el ensamblador de un tipo.
func (r *Registry) Register(t entity.DocumentType, fn AssembleFunc) {
	r.assemblers[t] = fn
}

// Resolve ok=false para tipos desconocidos: no hay documento ni transmisión.
func (r *Registry) Resolve(t entity.DocumentType, props entity.Properties) (Strategy, bool) {
	fn, ok := r.assemblers[t]
	if !ok || !t.Valid() {
		return Strategy{}, false
	}
	ts := typeSettings(props, t)
	return Strategy{
		Type:         t,
		Active:       ts.Active,
		CreateUBL:    ts.CreateUBL,
		CreateReport: ts.CreateReport,
		Channel:      ts.Channel,
		Encoding:     ts.Encoding,
		Assemble:     fn,
	}, true
}
