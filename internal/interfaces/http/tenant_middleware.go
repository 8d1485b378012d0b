package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/dto"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
)

// tenantLookup lo cumple repository.TenantRepository.
type tenantLookup interface {
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
}

// RequireActiveTenant bloquea las rutas de comprobantes si el tenant del token no existe
// o está desactivado. Va DESPUÉS de AuthMiddleware.
//
//   - 403 TENANT_INACTIVE → tenant inexistente o inactivo.
//   - 503 TENANT_CHECK_FAILED → fallo al consultar la DB.
func RequireActiveTenant(tenants tenantLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := GetTenantID(c)
		if tenantID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "tenant_id no encontrado en el token",
			})
		}

		t, err := tenants.GetByID(c.UserContext(), tenantID)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && !t.Active) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "TENANT_INACTIVE",
				Message: "la facturación electrónica no está activa para este tenant",
			})
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "TENANT_CHECK_FAILED",
				Message: "no se pudo verificar el tenant, intente más tarde",
			})
		}
		return c.Next()
	}
}
