package ebilling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("ebilling")

// Pipeline ensamblar → XML → firmar → UBLFile → transmitir → interpretar.
type Pipeline struct {
	registry  *Registry
	sources   repository.SourceDocumentRepository
	docs      repository.ElectronicDocumentRepository
	tx        repository.TxRunner
	files     repository.FileRepository
	blobs     repository.BlobStore
	builder   XMLBuilder
	signer    psunat.Signer
	soap      SOAPGateway
	rest      RESTGateway
	publisher Publisher
	interp    *Interpreter
	defaults  Defaults
	log       *logger.Logger
	now       func() time.Time
}

// PipelineDeps dependencias del pipeline. Publisher puede ser nil (sin gestión documental).
type PipelineDeps struct {
	Registry    *Registry
	Sources     repository.SourceDocumentRepository
	Docs        repository.ElectronicDocumentRepository
	Tx          repository.TxRunner
	Files       repository.FileRepository
	Blobs       repository.BlobStore
	Builder     XMLBuilder
	Signer      psunat.Signer
	SOAP        SOAPGateway
	REST        RESTGateway
	Publisher   Publisher
	Interpreter *Interpreter
	Defaults    Defaults
}

func NewPipeline(d PipelineDeps, log *logger.Logger) *Pipeline {
	return &Pipeline{
		registry:  d.Registry,
		sources:   d.Sources,
		docs:      d.Docs,
		tx:        d.Tx,
		files:     d.Files,
		blobs:     d.Blobs,
		builder:   d.Builder,
		signer:    d.Signer,
		soap:      d.SOAP,
		rest:      d.REST,
		publisher: d.Publisher,
		interp:    d.Interpreter,
		defaults:  DefaultsFor(d.Defaults),
		log:       log.WithComponent("ebilling.pipeline"),
		now:       time.Now,
	}
}

// Process genera el UBL si aún no existe y lo transmite por el canal del tipo.
// Un UBL ya creado se reenvía tal cual.
func (p *Pipeline) Process(ctx context.Context, tenant *entity.Tenant, props entity.Properties, doc *entity.ElectronicDocument) Outcome {
	ctx, span := p.span(ctx, "ebilling.process", doc)
	defer span.End()

	if doc.Status != entity.StatusPending {
		return Skipped("estado %s no se transmite", doc.Status)
	}
	st, ok := p.registry.Resolve(doc.Type, props)
	if !ok {
		return Skipped("tipo %s sin estrategia", doc.Type)
	}
	if !st.Active {
		return Skipped("estrategia %s inactiva", doc.Type)
	}
	if doc.Channel == "" {
		doc.Channel = st.Channel
	}

	f, err := p.files.GetUBL(ctx, doc.ID)
	if err != nil {
		return Failed(fmt.Errorf("buscar UBL: %w", err))
	}
	var payload []byte
	if f == nil {
		if !st.CreateUBL {
			return Skipped("CreateUBL desactivado para %s", doc.Type)
		}
		var members []*entity.ElectronicDocument
		if doc.Type == entity.TypeSummary {
			if members, err = p.docs.ListSummaryMembers(ctx, doc.ID); err != nil {
				return Failed(fmt.Errorf("miembros del resumen %s: %w", doc.SourceName, err))
			}
		}
		var udoc *ubl.Document
		var o Outcome
		f, payload, udoc, o = p.generate(ctx, tenant, props, st, doc, members)
		if !o.IsOk() {
			return o
		}
		if st.CreateReport {
			p.publish(ctx, props, doc, f, payload, udoc)
		}
	} else {
		if payload, err = p.blobs.Get(ctx, f.BlobHandle); err != nil {
			return p.interp.Fail(ctx, doc, LogCodeTransport, fmt.Errorf("leer UBL %s: %w", f.FileName, err))
		}
	}
	return p.transmit(ctx, tenant, props, doc, payload)
}

// generate ensambla, serializa, firma y guarda el UBLFile. Una respuesta nil del firmador
// detiene el intento.
func (p *Pipeline) generate(ctx context.Context, tenant *entity.Tenant, props entity.Properties, st Strategy,
	doc *entity.ElectronicDocument, members []*entity.ElectronicDocument,
) (*entity.UBLFile, []byte, *ubl.Document, Outcome) {
	in := AssemblyInput{Tenant: tenant, Props: props, Doc: doc, Members: members}
	if doc.SourceDocumentID != "" {
		src, err := p.sources.GetByID(ctx, doc.SourceDocumentID)
		if err != nil {
			return nil, nil, nil, p.interp.Fail(ctx, doc, LogCodeAssembly, fmt.Errorf("documento fuente: %w", err))
		}
		in.Source = src
	}

	udoc, err := st.Assemble(ctx, in)
	if err != nil {
		return nil, nil, nil, p.interp.Fail(ctx, doc, LogCodeAssembly, err)
	}
	if udoc == nil {
		return nil, nil, nil, Skipped("%s no produce documento", doc.Type)
	}
	raw, err := p.builder.Build(doc.Type, udoc)
	if err != nil {
		return nil, nil, nil, p.interp.Fail(ctx, doc, LogCodeAssembly, err)
	}

	ks, err := loadKeystore(ctx, props, p.blobs)
	if err != nil {
		return nil, nil, nil, p.interp.Fail(ctx, doc, LogCodeSign, err)
	}
	resp, err := p.signer.Sign(ctx, ks, raw, st.Encoding)
	if resp == nil {
		if err == nil {
			err = domain.ErrKeystore
		}
		return nil, nil, nil, p.interp.Fail(ctx, doc, LogCodeSign, err)
	}

	xmlName, _ := sunat.ArchiveNames(tenant.TaxID, doc.Type.Code(), udoc.Number)
	handle, err := p.blobs.Put(ctx, xmlName, resp.Signed)
	if err != nil {
		return nil, nil, nil, p.interp.Fail(ctx, doc, LogCodeTransport, fmt.Errorf("guardar UBL: %w", err))
	}
	f := &entity.UBLFile{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		BlobHandle: handle,
		Hash:       resp.Hash,
		FileName:   xmlName,
		CreatedAt:  p.now(),
	}
	if err := p.files.CreateUBL(ctx, f); err != nil {
		if derr := p.blobs.Delete(ctx, handle); derr != nil {
			p.log.Warn().Err(derr).Str("document_id", doc.ID).Str("handle", handle).Msg("blob huérfano")
		}
		return nil, nil, nil, Failed(fmt.Errorf("registrar UBL: %w", err))
	}
	return f, resp.Signed, udoc, Ok()
}

// publish envía el UBL al servicio de gestión documental. Un fallo queda en bitácora y no
// detiene la transmisión a SUNAT.
func (p *Pipeline) publish(ctx context.Context, props entity.Properties, doc *entity.ElectronicDocument, f *entity.UBLFile, payload []byte, udoc *ubl.Document) {
	url, clientID := publishTarget(props, p.defaults)
	if p.publisher == nil || url == "" {
		return
	}
	err := p.publisher.Publish(ctx, sunat.PublishRequest{
		URL:      url,
		ClientID: clientID,
		Name:     udoc.Number,
		Date:     udoc.IssueDate,
		Total:    udoc.PayableTotal,
		FileName: f.FileName,
		Content:  payload,
	})
	if err != nil {
		p.interp.Fail(ctx, doc, LogCodePublish, err)
	}
}

// ── Transmisión ──

func (p *Pipeline) transmit(ctx context.Context, tenant *entity.Tenant, props entity.Properties, doc *entity.ElectronicDocument, payload []byte) Outcome {
	code := doc.Type.Code()
	base := sunat.ArchiveBase(tenant.TaxID, code, doc.SourceName)
	zipName := base + ".zip"
	zipBytes, err := sunat.CompressXMLToZip(payload, base+".xml")
	if err != nil {
		return p.interp.Fail(ctx, doc, LogCodeTransport, err)
	}

	switch {
	case doc.Type == entity.TypeSummary:
		return p.sendSummary(ctx, tenant, props, doc, zipName, zipBytes)
	case doc.Channel == entity.ChannelSummary:
		return Skipped("%s espera el resumen diario", doc.SourceName)
	case doc.Channel == entity.ChannelREST:
		target := restTarget(props, p.defaults)
		ticket, err := p.rest.Submit(ctx, target, base, zipName, zipBytes)
		if err != nil {
			return p.interp.Fail(ctx, doc, LogCodeTransport, err)
		}
		return p.issued(ctx, doc, ticket)
	default:
		cdr, err := p.soap.SendBill(ctx, soapEndpoint(props, p.defaults), soapCredentials(props, tenant), zipName, zipBytes)
		if err != nil {
			return p.transportFailure(ctx, doc, err)
		}
		return p.interpretCDR(ctx, props, "R-"+zipName, cdr, doc)
	}
}

// sendSummary envía el resumen; el resumen y sus miembros pasan a Issued con el ticket.
func (p *Pipeline) sendSummary(ctx context.Context, tenant *entity.Tenant, props entity.Properties, doc *entity.ElectronicDocument, zipName string, zipBytes []byte) Outcome {
	ticket, err := p.soap.SendSummary(ctx, soapEndpoint(props, p.defaults), soapCredentials(props, tenant), zipName, zipBytes)
	if err != nil {
		return p.transportFailure(ctx, doc, err)
	}
	if o := p.issued(ctx, doc, ticket); !o.IsOk() {
		return o
	}
	members, err := p.docs.ListSummaryMembers(ctx, doc.ID)
	if err != nil {
		return Failed(fmt.Errorf("miembros del resumen %s: %w", doc.SourceName, err))
	}
	for _, m := range members {
		if m.Status != entity.StatusPending {
			continue
		}
		if err := p.interp.Transition(ctx, m, entity.StatusIssued); err != nil {
			p.log.Warn().Err(err).Str("document_id", m.ID).Msg("miembro del resumen sin pasar a Issued")
		}
	}
	return Ok()
}

// issued guarda el ticket y pasa a Issued.
func (p *Pipeline) issued(ctx context.Context, doc *entity.ElectronicDocument, ticket string) Outcome {
	if err := p.docs.SetTicket(ctx, doc.ID, ticket); err != nil {
		return Failed(fmt.Errorf("guardar ticket: %w", err))
	}
	doc.Ticket = ticket
	if err := p.interp.Record(ctx, doc, LogCodeTicket, "ticket "+ticket); err != nil {
		return Failed(err)
	}
	if err := p.interp.Transition(ctx, doc, entity.StatusIssued); err != nil {
		return Failed(err)
	}
	return Ok()
}

// transportFailure un SOAP Fault se registra con su código; el estado no cambia.
func (p *Pipeline) transportFailure(ctx context.Context, doc *entity.ElectronicDocument, err error) Outcome {
	var fault *sunat.FaultError
	if errors.As(err, &fault) {
		code := fault.ResponseCode()
		if code == "" {
			code = fault.Code
		}
		if rerr := p.interp.Record(ctx, doc, code, fault.String, fault.Detail); rerr != nil {
			return Failed(rerr)
		}
		return Failed(err)
	}
	return p.interp.Fail(ctx, doc, LogCodeTransport, err)
}

// interpretCDR guarda la respuesta cruda, la parsea y la aplica a cada documento dado.
func (p *Pipeline) interpretCDR(ctx context.Context, props entity.Properties, name string, cdrZip []byte, docs ...*entity.ElectronicDocument) Outcome {
	owner := docs[0]
	if err := p.storeResponse(ctx, owner, name, cdrZip); err != nil {
		return p.interp.Fail(ctx, owner, LogCodeTransport, err)
	}
	ack, err := sunat.ParseCDRZip(cdrZip)
	if err != nil {
		return p.interp.Fail(ctx, owner, LogCodeMalformed, err)
	}
	out := Ok()
	for _, d := range docs {
		if o := p.interp.Apply(ctx, props, d, ack); d == owner {
			out = o
		}
	}
	return out
}

func (p *Pipeline) storeResponse(ctx context.Context, doc *entity.ElectronicDocument, name string, data []byte) error {
	handle, err := p.blobs.Put(ctx, name, data)
	if err != nil {
		return fmt.Errorf("guardar respuesta: %w", err)
	}
	return p.files.CreateResponse(ctx, &entity.ResponseFile{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		BlobHandle: handle,
		FileName:   name,
		CreatedAt:  p.now(),
	})
}

func (p *Pipeline) span(ctx context.Context, name string, doc *entity.ElectronicDocument) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("ebilling.document_id", doc.ID),
		attribute.String("ebilling.type", string(doc.Type)),
		attribute.String("ebilling.channel", doc.Channel),
	))
}
