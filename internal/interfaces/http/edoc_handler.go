package http

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/dto"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/ebilling"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
)

// EDocService operaciones administrativas; lo implementa *ebilling.Service.
type EDocService interface {
	CreateForSource(ctx context.Context, tenantID, sourceID string) (*entity.ElectronicDocument, ebilling.Outcome, error)
	Get(ctx context.Context, tenantID, id string) (*ebilling.DocumentDetail, error)
	Resend(ctx context.Context, tenantID, id string) (*entity.ElectronicDocument, ebilling.Outcome, error)
	Poll(ctx context.Context, tenantID, id string) (*entity.ElectronicDocument, ebilling.Outcome, error)
	Cancel(ctx context.Context, tenantID, id, reason string) (*entity.ElectronicDocument, error)
	Delete(ctx context.Context, tenantID, id string) error
	ConsolidateSummaries(ctx context.Context, tenantID string) ([]ebilling.SummaryResult, error)
	Reconcile(ctx context.Context, tenantID string) (ebilling.TenantReport, error)
}

var _ EDocService = (*ebilling.Service)(nil)

// EDocHandler API administrativo de comprobantes electrónicos. Todo se acota al tenant del token.
type EDocHandler struct {
	svc      EDocService
	validate *validator.Validate
}

// NewEDocHandler construye el handler.
func NewEDocHandler(svc EDocService) *EDocHandler {
	return &EDocHandler{svc: svc, validate: validator.New()}
}

// CreateForSource crea y envía el comprobante de un documento fuente.
// POST /api/edocs/sources/:sourceId
func (h *EDocHandler) CreateForSource(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	doc, o, err := h.svc.CreateForSource(c.UserContext(), tenantID, c.Params("sourceId"))
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if doc == nil {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(processResponse(doc, o))
}

// GET /api/edocs/:id
func (h *EDocHandler) Get(c *fiber.Ctx) error {
	det, err := h.svc.Get(c.UserContext(), GetTenantID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(detailResponse(det))
}

// Resend reintenta un comprobante Pending.
// POST /api/edocs/:id/resend
func (h *EDocHandler) Resend(c *fiber.Ctx) error {
	doc, o, err := h.svc.Resend(c.UserContext(), GetTenantID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(processResponse(doc, o))
}

// POST /api/edocs/:id/poll
func (h *EDocHandler) Poll(c *fiber.Ctx) error {
	doc, o, err := h.svc.Poll(c.UserContext(), GetTenantID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(processResponse(doc, o))
}

// Cancel anulación administrativa (solo admin).
// POST /api/edocs/:id/cancel
func (h *EDocHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.validate.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	doc, err := h.svc.Cancel(c.UserContext(), GetTenantID(c), c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(documentResponse(doc))
}

// DELETE /api/edocs/:id
func (h *EDocHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), GetTenantID(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ConsolidateSummaries genera y envía los resúmenes diarios pendientes.
// POST /api/summaries
func (h *EDocHandler) ConsolidateSummaries(c *fiber.Ctx) error {
	res, err := h.svc.ConsolidateSummaries(c.UserContext(), GetTenantID(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.SummaryResponse, 0, len(res))
	for _, r := range res {
		out = append(out, dto.SummaryResponse{
			Document: *documentResponse(r.Summary),
			Members:  r.Members,
			Outcome:  outcomeResponse(r.Outcome),
		})
	}
	return c.JSON(out)
}

// Reconcile corrida inmediata del reconciliador para el tenant.
// POST /api/reconcile
func (h *EDocHandler) Reconcile(c *fiber.Ctx) error {
	rep, err := h.svc.Reconcile(c.UserContext(), GetTenantID(c))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.ReconcileResponse{
		TenantID:     rep.TenantID,
		Created:      stepResponses(rep.Created),
		Submitted:    stepResponses(rep.Submitted),
		Consolidated: stepResponses(rep.Consolidated),
		Polled:       stepResponses(rep.Polled),
		Skipped:      rep.Skipped,
	}
	if rep.Err != nil {
		out.Error = rep.Err.Error()
	}
	return c.JSON(out)
}

// ── mapeo a DTOs ──

func documentResponse(d *entity.ElectronicDocument) *dto.DocumentResponse {
	if d == nil {
		return nil
	}
	return &dto.DocumentResponse{
		ID:               d.ID,
		Type:             string(d.Type),
		Status:           string(d.Status),
		SourceDocumentID: d.SourceDocumentID,
		Name:             d.SourceName,
		Channel:          d.Channel,
		Ticket:           d.Ticket,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func outcomeResponse(o ebilling.Outcome) dto.OutcomeResponse {
	return dto.OutcomeResponse{Kind: o.Kind.String(), Reason: o.Reason}
}

func processResponse(d *entity.ElectronicDocument, o ebilling.Outcome) dto.ProcessResponse {
	return dto.ProcessResponse{Document: documentResponse(d), Outcome: outcomeResponse(o)}
}

func detailResponse(det *ebilling.DocumentDetail) dto.DocumentDetailResponse {
	out := dto.DocumentDetailResponse{
		DocumentResponse: *documentResponse(det.Document),
		Responses:        make([]dto.FileResponse, 0, len(det.Responses)),
		Logs:             make([]dto.LogResponse, 0, len(det.Logs)),
	}
	if det.UBL != nil {
		out.UBL = &dto.FileResponse{ID: det.UBL.ID, FileName: det.UBL.FileName, Hash: det.UBL.Hash, CreatedAt: det.UBL.CreatedAt}
	}
	for _, r := range det.Responses {
		out.Responses = append(out.Responses, dto.FileResponse{ID: r.ID, FileName: r.FileName, CreatedAt: r.CreatedAt})
	}
	for _, l := range det.Logs {
		out.Logs = append(out.Logs, dto.LogResponse{Code: l.Code, Description: l.Description, Details: l.Details, CreatedAt: l.CreatedAt})
	}
	return out
}

func stepResponses(in []ebilling.DocReport) []dto.StepResponse {
	out := make([]dto.StepResponse, 0, len(in))
	for _, r := range in {
		out = append(out, dto.StepResponse{DocumentID: r.DocumentID, Name: r.Name, Outcome: outcomeResponse(r.Outcome)})
	}
	return out
}
