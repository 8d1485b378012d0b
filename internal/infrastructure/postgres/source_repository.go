package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
)

var _ repository.SourceDocumentRepository = (*SourceDocumentRepository)(nil)

var sourceColumns = []string{
	"s.id", "s.tenant_id", "s.type", "s.name", "s.date", "s.due_date", "s.currency",
	"s.net_total", "s.cross_total", "s.contact_id", "s.free_of_charge", "s.taxes",
	"s.payment", "s.credit_reason_code", "s.note", "s.shipment",
}

type sourceRow struct {
	ID               string              `db:"id"`
	TenantID         string              `db:"tenant_id"`
	Type             string              `db:"type"`
	Name             string              `db:"name"`
	Date             time.Time           `db:"date"`
	DueDate          *time.Time          `db:"due_date"`
	Currency         string              `db:"currency"`
	NetTotal         decimal.Decimal     `db:"net_total"`
	CrossTotal       decimal.Decimal     `db:"cross_total"`
	ContactID        *string             `db:"contact_id"`
	FreeOfCharge     bool                `db:"free_of_charge"`
	Taxes            entity.TaxBreakdown `db:"taxes"`
	Payment          entity.Payment      `db:"payment"`
	CreditReasonCode string              `db:"credit_reason_code"`
	Note             string              `db:"note"`
	Shipment         *entity.Shipment    `db:"shipment"`
}

type positionRow struct {
	DocumentID     string              `db:"document_id"`
	Index          int                 `db:"idx"`
	ProductID      *string             `db:"product_id"`
	ProductCode    string              `db:"product_code"`
	Description    string              `db:"description"`
	UnitCode       string              `db:"unit_code"`
	Quantity       decimal.Decimal     `db:"quantity"`
	NetUnitPrice   decimal.Decimal     `db:"net_unit_price"`
	CrossUnitPrice decimal.Decimal     `db:"cross_unit_price"`
	NetPrice       decimal.Decimal     `db:"net_price"`
	CrossPrice     decimal.Decimal     `db:"cross_price"`
	Taxes          entity.TaxBreakdown `db:"taxes"`
}

func (r sourceRow) toEntity() *entity.SourceDocument {
	s := &entity.SourceDocument{
		ID:               r.ID,
		TenantID:         r.TenantID,
		Type:             entity.SourceType(r.Type),
		Name:             r.Name,
		Date:             r.Date,
		DueDate:          r.DueDate,
		Currency:         r.Currency,
		NetTotal:         r.NetTotal,
		CrossTotal:       r.CrossTotal,
		FreeOfCharge:     r.FreeOfCharge,
		Taxes:            r.Taxes,
		Payment:          r.Payment,
		CreditReasonCode: r.CreditReasonCode,
		Note:             r.Note,
		Shipment:         r.Shipment,
	}
	if r.ContactID != nil {
		s.ContactID = *r.ContactID
	}
	return s
}

// SourceDocumentRepository lectura de source_documents y source_positions (datos del ERP).
type SourceDocumentRepository struct {
	db Querier
}

func NewSourceDocumentRepository(db Querier) *SourceDocumentRepository {
	return &SourceDocumentRepository{db: db}
}

func (r *SourceDocumentRepository) GetByID(ctx context.Context, id string) (*entity.SourceDocument, error) {
	var row sourceRow
	b := psql.Select(sourceColumns...).From("source_documents s").Where(sq.Eq{"s.id": id})
	if err := get(ctx, r.db, &row, b, "documento fuente"); err != nil {
		return nil, err
	}
	docs, err := r.withPositions(ctx, []sourceRow{row})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

// ListWithoutElectronic anti-join con electronic_documents; el índice único sobre
// source_document_id hace que el NOT EXISTS sea un index lookup.
func (r *SourceDocumentRepository) ListWithoutElectronic(ctx context.Context, tenantID string, types []entity.SourceType) ([]*entity.SourceDocument, error) {
	if len(types) == 0 {
		return nil, nil
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	var rows []sourceRow
	b := psql.Select(sourceColumns...).From("source_documents s").
		Where(sq.Eq{"s.tenant_id": tenantID, "s.type": names}).
		Where("NOT EXISTS (SELECT 1 FROM electronic_documents d WHERE d.source_document_id = s.id)").
		OrderBy("s.date", "s.name")
	if err := selectAll(ctx, r.db, &rows, b, "documentos sin comprobante"); err != nil {
		return nil, err
	}
	return r.withPositions(ctx, rows)
}

func (r *SourceDocumentRepository) ListOrigins(ctx context.Context, sourceDocumentID string) ([]*entity.SourceDocument, error) {
	var rows []sourceRow
	b := psql.Select(sourceColumns...).From("source_documents s").
		Join("source_links l ON l.origin_id = s.id").
		Where(sq.Eq{"l.document_id": sourceDocumentID}).
		OrderBy("s.date", "s.name")
	if err := selectAll(ctx, r.db, &rows, b, "documentos de origen"); err != nil {
		return nil, err
	}
	return r.withPositions(ctx, rows)
}

// withPositions carga las posiciones de todos los documentos en una sola consulta.
func (r *SourceDocumentRepository) withPositions(ctx context.Context, rows []sourceRow) ([]*entity.SourceDocument, error) {
	if len(rows) == 0 {
		return []*entity.SourceDocument{}, nil
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	var positions []positionRow
	b := psql.Select("document_id", "idx", "product_id", "product_code", "description", "unit_code",
		"quantity", "net_unit_price", "cross_unit_price", "net_price", "cross_price", "taxes").
		From("source_positions").
		Where(sq.Eq{"document_id": ids}).
		OrderBy("document_id", "idx")
	if err := selectAll(ctx, r.db, &positions, b, "posiciones"); err != nil {
		return nil, err
	}
	byDoc := make(map[string][]entity.Position, len(rows))
	for _, p := range positions {
		pos := entity.Position{
			Index:          p.Index,
			ProductCode:    p.ProductCode,
			Description:    p.Description,
			UnitCode:       p.UnitCode,
			Quantity:       p.Quantity,
			NetUnitPrice:   p.NetUnitPrice,
			CrossUnitPrice: p.CrossUnitPrice,
			NetPrice:       p.NetPrice,
			CrossPrice:     p.CrossPrice,
			Taxes:          p.Taxes,
		}
		if p.ProductID != nil {
			pos.ProductID = *p.ProductID
		}
		byDoc[p.DocumentID] = append(byDoc[p.DocumentID], pos)
	}
	out := make([]*entity.SourceDocument, 0, len(rows))
	for _, row := range rows {
		s := row.toEntity()
		s.Positions = byDoc[row.ID]
		out = append(out, s)
	}
	return out, nil
}
