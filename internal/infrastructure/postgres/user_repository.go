package postgres

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepository)(nil)

type userRow struct {
	ID           string    `db:"id"`
	TenantID     string    `db:"tenant_id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	Role         string    `db:"role"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// UserRepository usuarios del API administrativo. El email se guarda en minúsculas.
type UserRepository struct {
	db Querier
}

func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	b := psql.Insert("users").
		Columns("id", "tenant_id", "email", "password_hash", "name", "role", "status", "created_at", "updated_at").
		Values(u.ID, u.TenantID, strings.ToLower(u.Email), u.PasswordHash, u.Name, u.Role, u.Status, u.CreatedAt, u.UpdatedAt)
	_, err := exec(ctx, r.db, b, "insertar usuario")
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var row userRow
	b := psql.Select("id", "tenant_id", "email", "password_hash", "name", "role", "status", "created_at", "updated_at").
		From("users").Where(sq.Eq{"email": strings.ToLower(email)})
	if err := get(ctx, r.db, &row, b, "usuario"); err != nil {
		return nil, err
	}
	u := entity.User(row)
	return &u, nil
}
