package ebilling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTenantBudget tiempo máximo por tenant en una corrida.
const DefaultTenantBudget = 5 * time.Minute

// DocReport resultado de un paso sobre un comprobante.
type DocReport struct {
	DocumentID string
	Name       string
	Outcome    Outcome
}

// TenantReport resultado de una corrida sobre un tenant.
type TenantReport struct {
	TenantID     string
	Created      []DocReport
	Submitted    []DocReport
	Consolidated []DocReport
	Polled       []DocReport
	Skipped      string // motivo si el tenant no se procesó (lock tomado)
	Err          error
}

// Reconciler recorre los tenants activos: crea, envía, consolida y consulta.
type Reconciler struct {
	tenants  repository.TenantRepository
	props    repository.PropertiesRepository
	creator  *Creator
	pipeline *Pipeline
	docs     repository.ElectronicDocumentRepository
	locker   Locker
	budget   time.Duration
	log      *logger.Logger
}

// NewReconciler locker puede ser nil (una sola instancia del worker).
func NewReconciler(
	tenants repository.TenantRepository,
	props repository.PropertiesRepository,
	creator *Creator,
	pipeline *Pipeline,
	docs repository.ElectronicDocumentRepository,
	locker Locker,
	budget time.Duration,
	log *logger.Logger,
) *Reconciler {
	if budget <= 0 {
		budget = DefaultTenantBudget
	}
	return &Reconciler{
		tenants:  tenants,
		props:    props,
		creator:  creator,
		pipeline: pipeline,
		docs:     docs,
		locker:   locker,
		budget:   budget,
		log:      log.WithComponent("ebilling.reconciler"),
	}
}

// RunOnce procesa los tenants activos uno tras otro. El fallo de un tenant no detiene a los demás.
func (r *Reconciler) RunOnce(ctx context.Context) ([]TenantReport, error) {
	tenants, err := r.tenants.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar tenants: %w", err)
	}
	reports := make([]TenantReport, 0, len(tenants))
	for _, t := range tenants {
		if ctx.Err() != nil {
			break
		}
		rep := r.RunTenant(ctx, t)
		if rep.Err != nil {
			r.log.Error().Err(rep.Err).Str("tenant", t.ID).Msg("reconciliación del tenant fallida")
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// RunTenant una corrida completa sobre un tenant, con presupuesto de tiempo propio.
func (r *Reconciler) RunTenant(ctx context.Context, tenant *entity.Tenant) (rep TenantReport) {
	rep.TenantID = tenant.ID
	ctx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()
	ctx, span := tracer.Start(ctx, "ebilling.reconcile", trace.WithAttributes(attribute.String("ebilling.tenant", tenant.ID)))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			rep.Err = fmt.Errorf("panic en tenant %s: %v", tenant.ID, rec)
		}
	}()

	if r.locker != nil {
		release, err := r.locker.Obtain(ctx, "ebilling:"+tenant.ID)
		if errors.Is(err, domain.ErrLocked) {
			rep.Skipped = "tenant en proceso en otra instancia"
			return rep
		}
		if err != nil {
			rep.Err = err
			return rep
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				r.log.Warn().Err(err).Str("tenant", tenant.ID).Msg("no se pudo liberar el lock")
			}
		}()
	}

	props, err := r.props.Load(ctx, tenant.ID)
	if err != nil {
		rep.Err = fmt.Errorf("propiedades: %w", err)
		return rep
	}
	log := r.log.WithTenant(tenant.ID)

	// 1. nuevos comprobantes
	scanned, err := r.creator.ScanForDocuments(ctx, tenant, props)
	if err != nil {
		rep.Err = err
		return rep
	}
	done := map[string]bool{}
	for _, s := range scanned {
		if s.Doc == nil {
			if s.Outcome.IsFailed() {
				log.Warn().Str("source", s.Source.Name).Str("outcome", s.Outcome.String()).Msg("creación fallida")
			}
			continue
		}
		rep.Created = append(rep.Created, report(s.Doc, s.Outcome))
		done[s.Doc.ID] = true
		rep.Submitted = append(rep.Submitted, report(s.Doc, r.pipeline.Process(ctx, tenant, props, s.Doc)))
	}

	// 2. pendientes
	pending, err := r.docs.ListByStatus(ctx, tenant.ID, entity.StatusPending)
	if err != nil {
		rep.Err = fmt.Errorf("pendientes: %w", err)
		return rep
	}
	for _, d := range pending {
		if done[d.ID] {
			continue
		}
		rep.Submitted = append(rep.Submitted, report(d, r.pipeline.Process(ctx, tenant, props, d)))
	}

	// 3. resúmenes
	summaries, err := r.pipeline.Consolidate(ctx, tenant, props)
	for _, s := range summaries {
		rep.Consolidated = append(rep.Consolidated, report(s.Summary, s.Outcome))
	}
	if err != nil {
		rep.Err = err
		return rep
	}

	// 4. consulta de emitidos
	issued, err := r.docs.ListByStatus(ctx, tenant.ID, entity.StatusIssued)
	if err != nil {
		rep.Err = fmt.Errorf("emitidos: %w", err)
		return rep
	}
	for _, d := range issued {
		if d.Status != entity.StatusIssued {
			continue
		}
		rep.Polled = append(rep.Polled, report(d, r.pipeline.Poll(ctx, tenant, props, d)))
	}

	log.Info().
		Int("created", len(rep.Created)).
		Int("submitted", len(rep.Submitted)).
		Int("consolidated", len(rep.Consolidated)).
		Int("polled", len(rep.Polled)).
		Msg("reconciliación terminada")
	return rep
}

func report(d *entity.ElectronicDocument, o Outcome) DocReport {
	return DocReport{DocumentID: d.ID, Name: d.SourceName, Outcome: o}
}
