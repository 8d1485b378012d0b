package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
)

var (
	_ repository.ContactRepository  = (*ContactRepository)(nil)
	_ repository.LocationRepository = (*LocationRepository)(nil)
)

type contactRow struct {
	ID               string `db:"id"`
	TenantID         string `db:"tenant_id"`
	Name             string `db:"name"`
	TaxNumber        string `db:"tax_number"`
	IDNumber         string `db:"id_number"`
	IDType           string `db:"id_type"`
	Organization     bool   `db:"organization"`
	WithholdingAgent bool   `db:"withholding_agent"`
	Address          string `db:"address"`
	Ubigeo           string `db:"ubigeo"`
}

// ContactRepository clientes y transportistas.
type ContactRepository struct {
	db Querier
}

func NewContactRepository(db Querier) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (*entity.Contact, error) {
	var row contactRow
	b := psql.Select("id", "tenant_id", "name", "tax_number", "id_number", "id_type",
		"organization", "withholding_agent", "address", "ubigeo").
		From("contacts").Where(sq.Eq{"id": id})
	if err := get(ctx, r.db, &row, b, "contacto"); err != nil {
		return nil, err
	}
	c := entity.Contact(row)
	return &c, nil
}

type locationRow struct {
	ID          string `db:"id"`
	TenantID    string `db:"tenant_id"`
	AddressLine string `db:"address_line"`
	Ubigeo      string `db:"ubigeo"`
}

// LocationRepository puntos de partida/llegada de guías.
type LocationRepository struct {
	db Querier
}

func NewLocationRepository(db Querier) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	var row locationRow
	b := psql.Select("id", "tenant_id", "address_line", "ubigeo").
		From("locations").Where(sq.Eq{"id": id})
	if err := get(ctx, r.db, &row, b, "ubicación"); err != nil {
		return nil, err
	}
	l := entity.Location(row)
	return &l, nil
}
