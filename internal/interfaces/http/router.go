package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/auth"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	EDocs     EDocService
	Auth      *auth.AuthUseCase
	Tenants   tenantLookup // opcional; nil no verifica el tenant
	JWTSecret string
}

// Router registra las rutas de la API. Salvo el login, todo /api requiere Bearer Token;
// las operaciones destructivas solo el rol admin.
func Router(app *fiber.App, deps RouterDeps) {
	adminOnly := RequireRole(jwt.RoleAdmin)
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleOperator)

	if deps.Auth != nil {
		ah := NewAuthHandler(deps.Auth)
		app.Post("/api/auth/login", ah.Login)
		app.Post("/api/auth/users", AuthMiddleware(deps.JWTSecret), adminOnly, ah.Register)
	}

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	if deps.Tenants != nil {
		api.Use(RequireActiveTenant(deps.Tenants))
	}

	h := NewEDocHandler(deps.EDocs)

	edocs := api.Group("/edocs")
	edocs.Post("/sources/:sourceId", anyRole, h.CreateForSource)
	edocs.Get("/:id", anyRole, h.Get)
	edocs.Post("/:id/resend", anyRole, h.Resend)
	edocs.Post("/:id/poll", anyRole, h.Poll)
	edocs.Post("/:id/cancel", adminOnly, h.Cancel)
	edocs.Delete("/:id", adminOnly, h.Delete)

	api.Post("/summaries", anyRole, h.ConsolidateSummaries)
	api.Post("/reconcile", adminOnly, h.Reconcile)
}
