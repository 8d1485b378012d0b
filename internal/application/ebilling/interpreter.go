package ebilling

import (
	"context"
	"fmt"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/google/uuid"
)

// Códigos de LogEntry que no vienen de SUNAT.
const (
	LogCodeAssembly  = "ASSEMBLY"
	LogCodeSign      = "SIGN"
	LogCodeTransport = "TRANSPORT"
	LogCodeMalformed = "MALFORMED"
	LogCodePublish   = "PUBLISH"
	LogCodeTicket    = "TICKET"
	LogCodeCancel    = "CANCEL"
)

// Interpreter aplica la constancia de SUNAT: siempre deja LogEntry y solo él cambia estados.
type Interpreter struct {
	docs repository.ElectronicDocumentRepository
	logs repository.LogRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewInterpreter(docs repository.ElectronicDocumentRepository, logs repository.LogRepository, log *logger.Logger) *Interpreter {
	return &Interpreter{
		docs: docs,
		logs: logs,
		log:  log.WithComponent("ebilling.interpreter"),
		now:  time.Now,
	}
}

// Apply código "0" → Successful. Otro código deja el estado, salvo Rejection.Active con código
// en el rango de rechazo (2000-3999), que lleva a Rejected.
func (i *Interpreter) Apply(ctx context.Context, props entity.Properties, doc *entity.ElectronicDocument, ack *entity.Acknowledgment) Outcome {
	if ack == nil {
		return Failed(fmt.Errorf("%w: constancia vacía", domain.ErrMalformedResponse))
	}
	if err := i.Record(ctx, doc, ack.Code, ack.Description, ack.LogDetails()...); err != nil {
		return Failed(err)
	}

	if ack.Accepted() {
		if err := i.Transition(ctx, doc, entity.StatusSuccessful); err != nil {
			return Failed(err)
		}
		return Ok()
	}

	if rejectionActive(props) {
		if n, err := ack.NumericCode(); err == nil && n >= psunat.RejectionRangeFrom && n <= psunat.RejectionRangeTo {
			if err := i.Transition(ctx, doc, entity.StatusRejected); err != nil {
				return Failed(err)
			}
			return Ok()
		}
	}
	i.log.Info().Str("document_id", doc.ID).Str("code", ack.Code).Msg("constancia sin aceptación, estado sin cambio")
	return Skipped("código %s: %s", ack.Code, ack.Description)
}

// Transition lleva doc al estado to. Pending pasa por Issued antes de un estado final.
func (i *Interpreter) Transition(ctx context.Context, doc *entity.ElectronicDocument, to entity.Status) error {
	if doc.Status == to {
		return nil
	}
	if doc.Status == entity.StatusPending && (to == entity.StatusSuccessful || to == entity.StatusRejected) {
		if err := i.step(ctx, doc, entity.StatusIssued); err != nil {
			return err
		}
	}
	return i.step(ctx, doc, to)
}

func (i *Interpreter) step(ctx context.Context, doc *entity.ElectronicDocument, to entity.Status) error {
	from := doc.Status
	if !entity.CanTransition(from, to) {
		return fmt.Errorf("%w: %s → %s", domain.ErrInvalidTransition, from, to)
	}
	if err := i.docs.UpdateStatus(ctx, doc.ID, from, to); err != nil {
		return fmt.Errorf("estado %s → %s de %s: %w", from, to, doc.SourceName, err)
	}
	doc.Status = to
	doc.UpdatedAt = i.now()
	i.log.Info().Str("document_id", doc.ID).Str("from", string(from)).Str("to", string(to)).Msg("cambio de estado")
	return nil
}

// Record agrega una entrada a la bitácora del comprobante.
func (i *Interpreter) Record(ctx context.Context, doc *entity.ElectronicDocument, code, description string, details ...string) error {
	e := &entity.LogEntry{
		ID:          uuid.New().String(),
		DocumentID:  doc.ID,
		Code:        code,
		Description: description,
		Details:     details,
		CreatedAt:   i.now(),
	}
	if err := i.logs.Append(ctx, e); err != nil {
		return fmt.Errorf("bitácora de %s: %w", doc.SourceName, err)
	}
	return nil
}

// Fail deja constancia de un error de E/S o parseo y lo devuelve como Failed. El estado no cambia.
func (i *Interpreter) Fail(ctx context.Context, doc *entity.ElectronicDocument, code string, err error) Outcome {
	i.log.Warn().Err(err).Str("document_id", doc.ID).Str("code", code).Msg("paso fallido")
	if rerr := i.Record(ctx, doc, code, err.Error()); rerr != nil {
		i.log.Error().Err(rerr).Str("document_id", doc.ID).Msg("no se pudo registrar en bitácora")
	}
	return Failed(err)
}
