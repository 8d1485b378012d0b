package ebilling

import (
	"context"
	"fmt"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
)

// DocumentDetail comprobante con su bitácora y archivos.
type DocumentDetail struct {
	Document  *entity.ElectronicDocument
	UBL       *entity.UBLFile
	Responses []*entity.ResponseFile
	Logs      []*entity.LogEntry
}

// Service operaciones administrativas sobre comprobantes de un tenant.
type Service struct {
	tenants    repository.TenantRepository
	props      repository.PropertiesRepository
	sources    repository.SourceDocumentRepository
	docs       repository.ElectronicDocumentRepository
	files      repository.FileRepository
	logs       repository.LogRepository
	blobs      repository.BlobStore
	creator    *Creator
	pipeline   *Pipeline
	interp     *Interpreter
	reconciler *Reconciler
	listeners  Listeners
	log        *logger.Logger
}

// ServiceDeps dependencias del servicio administrativo.
type ServiceDeps struct {
	Tenants     repository.TenantRepository
	Props       repository.PropertiesRepository
	Sources     repository.SourceDocumentRepository
	Docs        repository.ElectronicDocumentRepository
	Files       repository.FileRepository
	Logs        repository.LogRepository
	Blobs       repository.BlobStore
	Creator     *Creator
	Pipeline    *Pipeline
	Interpreter *Interpreter
	Reconciler  *Reconciler
	Listeners   Listeners
}

func NewService(d ServiceDeps, log *logger.Logger) *Service {
	return &Service{
		tenants:    d.Tenants,
		props:      d.Props,
		sources:    d.Sources,
		docs:       d.Docs,
		files:      d.Files,
		logs:       d.Logs,
		blobs:      d.Blobs,
		creator:    d.Creator,
		pipeline:   d.Pipeline,
		interp:     d.Interpreter,
		reconciler: d.Reconciler,
		listeners:  d.Listeners,
		log:        log.WithComponent("ebilling.service"),
	}
}

// CreateForSource crea el comprobante de un documento fuente y lo procesa de inmediato.
func (s *Service) CreateForSource(ctx context.Context, tenantID, sourceID string) (*entity.ElectronicDocument, Outcome, error) {
	tenant, props, err := s.tenant(ctx, tenantID)
	if err != nil {
		return nil, Outcome{}, err
	}
	src, err := s.sources.GetByID(ctx, sourceID)
	if err != nil {
		return nil, Outcome{}, err
	}
	if src.TenantID != tenantID {
		return nil, Outcome{}, domain.ErrNotFound
	}
	doc, o := s.creator.Create(ctx, tenant, props, src)
	if doc == nil {
		return nil, o, nil
	}
	o = s.pipeline.Process(ctx, tenant, props, doc)
	return s.reload(ctx, doc), o, nil
}

// Get detalle del comprobante.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*DocumentDetail, error) {
	doc, err := s.document(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	out := &DocumentDetail{Document: doc}
	if out.UBL, err = s.files.GetUBL(ctx, id); err != nil {
		return nil, err
	}
	if out.Responses, err = s.files.ListResponses(ctx, id); err != nil {
		return nil, err
	}
	if out.Logs, err = s.logs.ListByDocument(ctx, id); err != nil {
		return nil, err
	}
	return out, nil
}

// Resend vuelve a transmitir un comprobante Pending.
func (s *Service) Resend(ctx context.Context, tenantID, id string) (*entity.ElectronicDocument, Outcome, error) {
	tenant, props, doc, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, Outcome{}, err
	}
	if doc.Status != entity.StatusPending {
		return nil, Outcome{}, fmt.Errorf("%w: estado %s", domain.ErrConflict, doc.Status)
	}
	o := s.pipeline.Process(ctx, tenant, props, doc)
	return s.reload(ctx, doc), o, nil
}

// Poll consulta a SUNAT el estado de un comprobante Issued.
func (s *Service) Poll(ctx context.Context, tenantID, id string) (*entity.ElectronicDocument, Outcome, error) {
	tenant, props, doc, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, Outcome{}, err
	}
	if doc.Status != entity.StatusIssued {
		return nil, Outcome{}, fmt.Errorf("%w: estado %s", domain.ErrConflict, doc.Status)
	}
	o := s.pipeline.Poll(ctx, tenant, props, doc)
	return s.reload(ctx, doc), o, nil
}

// Cancel anulación administrativa: todos los listeners deben aprobar. El comprobante pasa a Aborted.
func (s *Service) Cancel(ctx context.Context, tenantID, id, reason string) (*entity.ElectronicDocument, error) {
	_, props, doc, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(doc.Status, entity.StatusAborted) {
		return nil, fmt.Errorf("%w: %s → %s", domain.ErrInvalidTransition, doc.Status, entity.StatusAborted)
	}
	if err := s.listeners.approveCancel(ctx, props, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrForbidden, err)
	}
	if err := s.interp.Transition(ctx, doc, entity.StatusAborted); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "anulación administrativa"
	}
	if err := s.interp.Record(ctx, doc, LogCodeCancel, reason); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete elimina el comprobante, sus archivos y su bitácora. El documento fuente vuelve a
// ser candidato del barrido.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	doc, err := s.document(ctx, tenantID, id)
	if err != nil {
		return err
	}
	var handles []string
	f, err := s.files.GetUBL(ctx, id)
	if err != nil {
		return err
	}
	if f != nil {
		handles = append(handles, f.BlobHandle)
	}
	resps, err := s.files.ListResponses(ctx, id)
	if err != nil {
		return err
	}
	for _, r := range resps {
		handles = append(handles, r.BlobHandle)
	}

	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		return err
	}
	for _, h := range handles {
		if err := s.blobs.Delete(ctx, h); err != nil {
			s.log.Warn().Err(err).Str("document_id", doc.ID).Str("handle", h).Msg("blob huérfano")
		}
	}
	s.log.Info().Str("document_id", doc.ID).Str("name", doc.SourceName).Msg("comprobante eliminado")
	return nil
}

// ConsolidateSummaries genera los resúmenes diarios del tenant.
func (s *Service) ConsolidateSummaries(ctx context.Context, tenantID string) ([]SummaryResult, error) {
	tenant, props, err := s.tenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Consolidate(ctx, tenant, props)
}

// Reconcile una corrida completa del reconciliador sobre el tenant.
func (s *Service) Reconcile(ctx context.Context, tenantID string) (TenantReport, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return TenantReport{}, err
	}
	return s.reconciler.RunTenant(ctx, tenant), nil
}

// ── helpers ──

// reload estado actualizado tras procesar; si falla la lectura se devuelve doc tal cual.
func (s *Service) reload(ctx context.Context, doc *entity.ElectronicDocument) *entity.ElectronicDocument {
	fresh, err := s.docs.GetByID(ctx, doc.ID)
	if err != nil {
		return doc
	}
	return fresh
}

func (s *Service) tenant(ctx context.Context, tenantID string) (*entity.Tenant, entity.Properties, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	props, err := s.props.Load(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return tenant, props, nil
}

func (s *Service) document(ctx context.Context, tenantID, id string) (*entity.ElectronicDocument, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (s *Service) load(ctx context.Context, tenantID, id string) (*entity.Tenant, entity.Properties, *entity.ElectronicDocument, error) {
	doc, err := s.document(ctx, tenantID, id)
	if err != nil {
		return nil, nil, nil, err
	}
	tenant, props, err := s.tenant(ctx, tenantID)
	if err != nil {
		return nil, nil, nil, err
	}
	return tenant, props, doc, nil
}
