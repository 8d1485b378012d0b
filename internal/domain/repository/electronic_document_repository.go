package repository

import (
	"context"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
)

// ElectronicDocumentRepository puerto de persistencia de comprobantes electrónicos.
// Create devuelve domain.ErrDuplicate si el documento fuente ya tiene comprobante.
type ElectronicDocumentRepository interface {
	Create(ctx context.Context, doc *entity.ElectronicDocument) error
	GetByID(ctx context.Context, id string) (*entity.ElectronicDocument, error)
	// GetBySource nil, nil si el documento fuente aún no tiene comprobante.
	GetBySource(ctx context.Context, sourceDocumentID string) (*entity.ElectronicDocument, error)
	// UpdateStatus actualización condicional: falla con domain.ErrConflict si el estado actual no es from.
	UpdateStatus(ctx context.Context, id string, from, to entity.Status) error
	SetTicket(ctx context.Context, id, ticket string) error
	ListByStatus(ctx context.Context, tenantID string, status entity.Status) ([]*entity.ElectronicDocument, error)
	// Delete elimina en cascada logs, archivos y membresías de resumen.
	Delete(ctx context.Context, id string) error

	// NextSummarySequence correlativo diario del resumen (RC-YYYYMMDD-N).
	NextSummarySequence(ctx context.Context, tenantID string, day time.Time) (int, error)
	// AddSummaryMembers domain.ErrDuplicate si algún comprobante ya pertenece a otro resumen.
	AddSummaryMembers(ctx context.Context, summaryID string, memberIDs []string) error
	// ListUnsummarized Pending del canal summary que todavía no pertenecen a ningún resumen.
	ListUnsummarized(ctx context.Context, tenantID string) ([]*entity.ElectronicDocument, error)
	ListSummaryMembers(ctx context.Context, summaryID string) ([]*entity.ElectronicDocument, error)
}

// TxRunner ejecuta fn dentro de una transacción con el repositorio atado a ella.
type TxRunner interface {
	Run(ctx context.Context, fn func(repo ElectronicDocumentRepository) error) error
}
