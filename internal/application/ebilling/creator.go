package ebilling

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	"github.com/google/uuid"
)

// Creator motor de mapeo y creación de comprobantes electrónicos.
type Creator struct {
	sources   repository.SourceDocumentRepository
	docs      repository.ElectronicDocumentRepository
	tx        repository.TxRunner
	listeners Listeners
	conds     *conditions
	log       *logger.Logger
	now       func() time.Time
}

// NewCreator construye el motor. listeners se notifican en el orden dado.
func NewCreator(
	sources repository.SourceDocumentRepository,
	docs repository.ElectronicDocumentRepository,
	tx repository.TxRunner,
	listeners Listeners,
	log *logger.Logger,
) (*Creator, error) {
	conds, err := newConditions()
	if err != nil {
		return nil, err
	}
	return &Creator{
		sources:   sources,
		docs:      docs,
		tx:        tx,
		listeners: listeners,
		conds:     conds,
		log:       log.WithComponent("ebilling.creator"),
		now:       time.Now,
	}, nil
}

// Create crea el comprobante electrónico de src. Devuelve nil salvo cuando el comprobante
// queda creado y procesable (Outcome Ok).
func (c *Creator) Create(ctx context.Context, tenant *entity.Tenant, props entity.Properties, src *entity.SourceDocument) (*entity.ElectronicDocument, Outcome) {
	if !sourceActive(props, src.Type) {
		return nil, Skipped("tipo %s no habilitado", src.Type)
	}
	etype, ok := mappedType(props, src.Type)
	if !ok {
		return nil, Skipped("tipo %s sin mapeo a comprobante electrónico", src.Type)
	}

	existing, err := c.docs.GetBySource(ctx, src.ID)
	if err != nil {
		return nil, Failed(fmt.Errorf("buscar comprobante existente: %w", err))
	}
	if existing != nil {
		return nil, Skipped("el documento %s ya tiene comprobante %s", src.Name, existing.ID)
	}

	ts := typeSettings(props, etype)
	re, err := regexp.Compile(ts.NameRegex)
	if err != nil {
		return nil, Skipped("NameRegex inválido para %s: %v", etype, err)
	}
	if !re.MatchString(src.Name) {
		return nil, Skipped("%q no coincide con NameRegex de %s", src.Name, etype)
	}

	if ts.CreateCondition != "" {
		ok, err := c.conds.Eval(ts.CreateCondition, src)
		if err != nil {
			return nil, Skipped("CreateCondition de %s inválida: %v", etype, err)
		}
		if !ok {
			return nil, Skipped("CreateCondition de %s no se cumple", etype)
		}
	}

	status, ok := entity.ParseStatus(ts.CreateStatus)
	if !ok || status.IsTerminal() {
		return nil, Skipped("CreateStatus %q no resoluble para %s", ts.CreateStatus, etype)
	}

	now := c.now()
	doc := &entity.ElectronicDocument{
		ID:               uuid.New().String(),
		TenantID:         tenant.ID,
		Type:             etype,
		Status:           status,
		SourceDocumentID: src.ID,
		SourceName:       src.Name,
		Channel:          ts.Channel,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	passed, why := ts.verify(src.Name)
	err = c.tx.Run(ctx, func(repo repository.ElectronicDocumentRepository) error {
		if err := repo.Create(ctx, doc); err != nil {
			return err
		}
		if passed {
			return nil
		}
		if err := repo.UpdateStatus(ctx, doc.ID, doc.Status, entity.StatusAborted); err != nil {
			return err
		}
		doc.Status = entity.StatusAborted
		return nil
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, Skipped("el documento %s ya tiene comprobante", src.Name)
	}
	if err != nil {
		return nil, Failed(fmt.Errorf("crear comprobante: %w", err))
	}

	c.listeners.notifyCreate(ctx, c.log, tenant, doc)
	if !passed {
		c.log.Info().Str("document_id", doc.ID).Str("reason", why).Msg("comprobante descartado por verificación")
		return nil, Skipped("verificación: %s", why)
	}
	return doc, Ok()
}

// ScanResult resultado por documento fuente de un barrido.
type ScanResult struct {
	Source  *entity.SourceDocument
	Doc     *entity.ElectronicDocument
	Outcome Outcome
}

// ScanForDocuments crea comprobantes para los documentos fuente de tipos habilitados que aún no
// tienen uno. La consulta es un anti-join; Create vuelve a comprobar la existencia.
func (c *Creator) ScanForDocuments(ctx context.Context, tenant *entity.Tenant, props entity.Properties) ([]ScanResult, error) {
	types := enabledSources(props)
	if len(types) == 0 {
		return nil, nil
	}
	srcs, err := c.sources.ListWithoutElectronic(ctx, tenant.ID, types)
	if err != nil {
		return nil, fmt.Errorf("listar documentos sin comprobante: %w", err)
	}
	out := make([]ScanResult, 0, len(srcs))
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		doc, o := c.Create(ctx, tenant, props, src)
		out = append(out, ScanResult{Source: src, Doc: doc, Outcome: o})
	}
	return out, nil
}
