package repository

import (
	"context"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
)

// UserRepository usuarios del API. El email es único globalmente.
type UserRepository interface {
	// Create domain.ErrDuplicate si el email ya existe.
	Create(ctx context.Context, user *entity.User) error
	// GetByEmail domain.ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}
