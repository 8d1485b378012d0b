package postgres

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
)

var _ repository.UnitConverter = (*UnitConverter)(nil)

// UnitConverter factores de unit_conversions. Una fila con product_id NULL aplica
// a todos los productos; la específica del producto tiene prioridad.
type UnitConverter struct {
	db Querier
}

func NewUnitConverter(db Querier) *UnitConverter {
	return &UnitConverter{db: db}
}

func (c *UnitConverter) Convert(ctx context.Context, productID string, quantity decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, bool, error) {
	if productID == "" {
		return decimal.Zero, false, nil
	}
	if fromUnit == toUnit {
		return quantity, true, nil
	}
	var factor decimal.Decimal
	b := psql.Select("factor").From("unit_conversions").
		Where(sq.Eq{"from_unit": fromUnit, "to_unit": toUnit}).
		Where(sq.Or{sq.Eq{"product_id": productID}, sq.Eq{"product_id": nil}}).
		OrderBy("product_id NULLS LAST").
		Limit(1)
	err := get(ctx, c.db, &factor, b, "conversión de unidad")
	if errors.Is(err, domain.ErrNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return quantity.Mul(factor), true, nil
}
