package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
)

var _ repository.ElectronicDocumentRepository = (*ElectronicDocumentRepository)(nil)

const documentsTable = "electronic_documents"

var documentColumns = []string{
	"d.id", "d.tenant_id", "d.type", "d.status", "d.source_document_id",
	"d.source_name", "d.channel", "d.ticket", "d.created_at", "d.updated_at",
}

// documentRow fila de electronic_documents. source_document_id es NULL para resúmenes
// (el índice único solo cubre documentos con fuente).
type documentRow struct {
	ID               string    `db:"id"`
	TenantID         string    `db:"tenant_id"`
	Type             string    `db:"type"`
	Status           string    `db:"status"`
	SourceDocumentID *string   `db:"source_document_id"`
	SourceName       string    `db:"source_name"`
	Channel          string    `db:"channel"`
	Ticket           string    `db:"ticket"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r documentRow) toEntity() *entity.ElectronicDocument {
	d := &entity.ElectronicDocument{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Type:       entity.DocumentType(r.Type),
		Status:     entity.Status(r.Status),
		SourceName: r.SourceName,
		Channel:    r.Channel,
		Ticket:     r.Ticket,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.SourceDocumentID != nil {
		d.SourceDocumentID = *r.SourceDocumentID
	}
	return d
}

func toEntities(rows []documentRow) []*entity.ElectronicDocument {
	out := make([]*entity.ElectronicDocument, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntity())
	}
	return out
}

// ElectronicDocumentRepository implementación en PostgreSQL.
type ElectronicDocumentRepository struct {
	db Querier
}

// NewElectronicDocumentRepository construye el repo sobre el pool o una tx.
func NewElectronicDocumentRepository(db Querier) *ElectronicDocumentRepository {
	return &ElectronicDocumentRepository{db: db}
}

func (r *ElectronicDocumentRepository) Create(ctx context.Context, doc *entity.ElectronicDocument) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	b := psql.Insert(documentsTable).
		Columns("id", "tenant_id", "type", "status", "source_document_id",
			"source_name", "channel", "ticket", "created_at", "updated_at").
		Values(doc.ID, doc.TenantID, string(doc.Type), string(doc.Status), nullable(doc.SourceDocumentID),
			doc.SourceName, doc.Channel, doc.Ticket, doc.CreatedAt, doc.UpdatedAt)
	_, err := exec(ctx, r.db, b, "insertar comprobante")
	return err
}

func (r *ElectronicDocumentRepository) GetByID(ctx context.Context, id string) (*entity.ElectronicDocument, error) {
	var row documentRow
	b := psql.Select(documentColumns...).From(documentsTable + " d").Where(sq.Eq{"d.id": id})
	if err := get(ctx, r.db, &row, b, "comprobante"); err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

func (r *ElectronicDocumentRepository) GetBySource(ctx context.Context, sourceDocumentID string) (*entity.ElectronicDocument, error) {
	var row documentRow
	b := psql.Select(documentColumns...).From(documentsTable + " d").
		Where(sq.Eq{"d.source_document_id": sourceDocumentID})
	err := get(ctx, r.db, &row, b, "comprobante por fuente")
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

// UpdateStatus UPDATE condicional sobre el estado actual. Sin filas: ErrNotFound si el
// comprobante no existe, ErrConflict si alguien más lo movió.
func (r *ElectronicDocumentRepository) UpdateStatus(ctx context.Context, id string, from, to entity.Status) error {
	b := psql.Update(documentsTable).
		Set("status", string(to)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "status": string(from)})
	n, err := exec(ctx, r.db, b, "actualizar estado")
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s ya no está en %s", domain.ErrConflict, id, from)
}

func (r *ElectronicDocumentRepository) SetTicket(ctx context.Context, id, ticket string) error {
	b := psql.Update(documentsTable).
		Set("ticket", ticket).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id})
	n, err := exec(ctx, r.db, b, "guardar ticket")
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ElectronicDocumentRepository) ListByStatus(ctx context.Context, tenantID string, status entity.Status) ([]*entity.ElectronicDocument, error) {
	var rows []documentRow
	b := psql.Select(documentColumns...).From(documentsTable+" d").
		Where(sq.Eq{"d.tenant_id": tenantID, "d.status": string(status)}).
		OrderBy("d.created_at", "d.source_name")
	if err := selectAll(ctx, r.db, &rows, b, "comprobantes por estado"); err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

// Delete logs, archivos y membresías caen por ON DELETE CASCADE.
func (r *ElectronicDocumentRepository) Delete(ctx context.Context, id string) error {
	n, err := exec(ctx, r.db, psql.Delete(documentsTable).Where(sq.Eq{"id": id}), "eliminar comprobante")
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ── Resúmenes diarios ─────────────────────────────────────────────────────

func (r *ElectronicDocumentRepository) NextSummarySequence(ctx context.Context, tenantID string, day time.Time) (int, error) {
	b := psql.Insert("summary_sequences").
		Columns("tenant_id", "day", "last").
		Values(tenantID, day.Format(time.DateOnly), 1).
		Suffix("ON CONFLICT (tenant_id, day) DO UPDATE SET last = summary_sequences.last + 1 RETURNING last")
	var seq int
	if err := get(ctx, r.db, &seq, b, "correlativo de resumen"); err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *ElectronicDocumentRepository) AddSummaryMembers(ctx context.Context, summaryID string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return nil
	}
	b := psql.Insert("summary_members").Columns("summary_id", "document_id", "position")
	for i, id := range memberIDs {
		b = b.Values(summaryID, id, i+1)
	}
	_, err := exec(ctx, r.db, b, "insertar miembros de resumen")
	return err
}

// ListUnsummarized anti-join con summary_members: un comprobante se declara en un solo resumen.
func (r *ElectronicDocumentRepository) ListUnsummarized(ctx context.Context, tenantID string) ([]*entity.ElectronicDocument, error) {
	var rows []documentRow
	b := psql.Select(documentColumns...).From(documentsTable+" d").
		Where(sq.Eq{
			"d.tenant_id": tenantID,
			"d.status":    string(entity.StatusPending),
			"d.channel":   entity.ChannelSummary,
		}).
		Where(sq.NotEq{"d.type": string(entity.TypeSummary)}).
		Where("NOT EXISTS (SELECT 1 FROM summary_members m WHERE m.document_id = d.id)").
		OrderBy("d.created_at", "d.source_name")
	if err := selectAll(ctx, r.db, &rows, b, "comprobantes sin resumen"); err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

func (r *ElectronicDocumentRepository) ListSummaryMembers(ctx context.Context, summaryID string) ([]*entity.ElectronicDocument, error) {
	var rows []documentRow
	b := psql.Select(documentColumns...).From(documentsTable + " d").
		Join("summary_members m ON m.document_id = d.id").
		Where(sq.Eq{"m.summary_id": summaryID}).
		OrderBy("m.position")
	if err := selectAll(ctx, r.db, &rows, b, "miembros de resumen"); err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}
