package auth_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/auth"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/dto"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/jwt"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := m.users[key]; ok {
		return domain.ErrDuplicate
	}
	m.users[key] = u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

const secret = "test-secret"

func newUC() (*auth.AuthUseCase, *memUsers) {
	users := &memUsers{users: map[string]*entity.User{}}
	return auth.NewAuthUseCase(users, auth.JWTConfig{Secret: secret, ExpMinutes: 10, Issuer: "ebilling"}), users
}

func TestRegisterYLogin(t *testing.T) {
	uc, users := newUC()
	ctx := context.Background()

	u, err := uc.RegisterUser(ctx, "t1", dto.RegisterRequest{Email: "ops@empresa.pe", Password: "clave-segura"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleOperator, u.Role)
	assert.Equal(t, "ops@empresa.pe", u.Name)
	assert.NotEqual(t, "clave-segura", users.users["ops@empresa.pe"].PasswordHash)

	out, err := uc.Login(ctx, dto.LoginRequest{Email: "ops@empresa.pe", Password: "clave-segura"})
	require.NoError(t, err)
	claims, err := jwt.Parse(secret, out.Token)
	require.NoError(t, err)
	assert.Equal(t, "t1", claims.TenantID)
	assert.Equal(t, entity.RoleOperator, claims.Role)

	_, err = uc.RegisterUser(ctx, "t1", dto.RegisterRequest{Email: "ops@empresa.pe", Password: "otra-clave"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestLogin_Rechazos(t *testing.T) {
	uc, users := newUC()
	ctx := context.Background()
	_, err := uc.RegisterUser(ctx, "t1", dto.RegisterRequest{Email: "admin@empresa.pe", Password: "clave-segura", Role: entity.RoleAdmin})
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "admin@empresa.pe", Password: "incorrecta"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "nadie@empresa.pe", Password: "clave-segura"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "no se distingue usuario inexistente")

	users.users["admin@empresa.pe"].Status = entity.UserInactive
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "admin@empresa.pe", Password: "clave-segura"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
