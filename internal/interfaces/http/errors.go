package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/dto"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
)

// errorStatus domain error → HTTP. El orden importa: un error puede envolver varios.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrLocked, fiber.StatusConflict, "LOCKED"},
	{domain.ErrConfiguration, fiber.StatusUnprocessableEntity, "CONFIGURATION"},
}

func writeError(c *fiber.Ctx, err error) error {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return c.Status(e.status).JSON(dto.ErrorResponse{Code: e.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
