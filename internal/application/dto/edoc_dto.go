package dto

import "time"

// CancelRequest body para POST /api/edocs/:id/cancel.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=250"`
}

// DocumentResponse comprobante electrónico en respuestas.
type DocumentResponse struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	SourceDocumentID string    `json:"source_document_id,omitempty"`
	Name             string    `json:"name"`
	Channel          string    `json:"channel"`
	Ticket           string    `json:"ticket,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OutcomeResponse resultado tipado de una operación (ok, skipped, failed).
type OutcomeResponse struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason,omitempty"`
}

// ProcessResponse comprobante y resultado de crear/reenviar/consultar.
type ProcessResponse struct {
	Document *DocumentResponse `json:"document,omitempty"`
	Outcome  OutcomeResponse   `json:"outcome"`
}

// FileResponse metadatos de UBL o respuesta de SUNAT.
type FileResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	Hash      string    `json:"hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LogResponse entrada de bitácora.
type LogResponse struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Details     []string  `json:"details,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DocumentDetailResponse GET /api/edocs/:id.
type DocumentDetailResponse struct {
	DocumentResponse
	UBL       *FileResponse  `json:"ubl,omitempty"`
	Responses []FileResponse `json:"responses"`
	Logs      []LogResponse  `json:"logs"`
}

// SummaryResponse un resumen diario generado.
type SummaryResponse struct {
	Document DocumentResponse `json:"document"`
	Members  int              `json:"members"`
	Outcome  OutcomeResponse  `json:"outcome"`
}

// StepResponse resultado de un paso del reconciliador sobre un comprobante.
type StepResponse struct {
	DocumentID string          `json:"document_id"`
	Name       string          `json:"name"`
	Outcome    OutcomeResponse `json:"outcome"`
}

// ReconcileResponse POST /api/reconcile.
type ReconcileResponse struct {
	TenantID     string         `json:"tenant_id"`
	Created      []StepResponse `json:"created"`
	Submitted    []StepResponse `json:"submitted"`
	Consolidated []StepResponse `json:"consolidated"`
	Polled       []StepResponse `json:"polled"`
	Skipped      string         `json:"skipped,omitempty"`
	Error        string         `json:"error,omitempty"`
}
