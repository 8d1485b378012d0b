package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
)

var (
	_ repository.TenantRepository     = (*TenantRepository)(nil)
	_ repository.PropertiesRepository = (*PropertiesRepository)(nil)
)

type tenantRow struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	TaxID        string  `db:"tax_id"`
	LegalName    string  `db:"legal_name"`
	TradeName    string  `db:"trade_name"`
	Address      string  `db:"address"`
	Ubigeo       string  `db:"ubigeo"`
	OwnContactID *string `db:"own_contact_id"`
	Active       bool    `db:"active"`
}

func (r tenantRow) toEntity() *entity.Tenant {
	t := &entity.Tenant{
		ID: r.ID, Name: r.Name, TaxID: r.TaxID, LegalName: r.LegalName,
		TradeName: r.TradeName, Address: r.Address, Ubigeo: r.Ubigeo, Active: r.Active,
	}
	if r.OwnContactID != nil {
		t.OwnContactID = *r.OwnContactID
	}
	return t
}

var tenantColumns = []string{
	"id", "name", "tax_id", "legal_name", "trade_name", "address", "ubigeo", "own_contact_id", "active",
}

// TenantRepository empresas emisoras.
type TenantRepository struct {
	db Querier
}

func NewTenantRepository(db Querier) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	var row tenantRow
	if err := get(ctx, r.db, &row, psql.Select(tenantColumns...).From("tenants").Where(sq.Eq{"id": id}), "tenant"); err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

// ListActive ordenados por id para que el recorrido del worker sea estable.
func (r *TenantRepository) ListActive(ctx context.Context) ([]*entity.Tenant, error) {
	var rows []tenantRow
	b := psql.Select(tenantColumns...).From("tenants").Where(sq.Eq{"active": true}).OrderBy("id")
	if err := selectAll(ctx, r.db, &rows, b, "tenants activos"); err != nil {
		return nil, err
	}
	out := make([]*entity.Tenant, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

// PropertiesRepository claves ElectronicBilling.* de tenant_properties.
type PropertiesRepository struct {
	db Querier
}

func NewPropertiesRepository(db Querier) *PropertiesRepository {
	return &PropertiesRepository{db: db}
}

func (r *PropertiesRepository) Load(ctx context.Context, tenantID string) (entity.Properties, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	b := psql.Select("key", "value").From("tenant_properties").
		Where(sq.Eq{"tenant_id": tenantID}).
		Where(sq.Like{"key": entity.PropertyPrefix + "%"})
	if err := selectAll(ctx, r.db, &rows, b, "propiedades"); err != nil {
		return nil, err
	}
	props := make(entity.Properties, len(rows))
	for _, kv := range rows {
		props[kv.Key] = kv.Value
	}
	return props, nil
}
