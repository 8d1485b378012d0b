package entity

import "time"

// Roles del API administrativo.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// Estados de usuario.
const (
	UserActive   = "active"
	UserInactive = "inactive"
)

// User operador del API administrativo (pertenece a un Tenant).
type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string // bcrypt
	Name         string
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
