package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// nullable cadena vacía → NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// get ejecuta b y escanea una fila en dst; ErrNotFound si no hay filas.
func get(ctx context.Context, q Querier, dst any, b sq.Sqlizer, what string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("armar consulta %s: %w", what, err)
	}
	if err := pgxscan.Get(ctx, q, dst, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("consultar %s: %w", what, err)
	}
	return nil
}

func selectAll(ctx context.Context, q Querier, dst any, b sq.Sqlizer, what string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("armar consulta %s: %w", what, err)
	}
	if err := pgxscan.Select(ctx, q, dst, query, args...); err != nil {
		return fmt.Errorf("listar %s: %w", what, err)
	}
	return nil
}

// exec ejecuta b y devuelve las filas afectadas.
func exec(ctx context.Context, q Querier, b sq.Sqlizer, what string) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("armar sentencia %s: %w", what, err)
	}
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrDuplicate
		}
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return tag.RowsAffected(), nil
}
