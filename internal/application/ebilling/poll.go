package ebilling

import (
	"context"
	"fmt"
	"strings"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat"
)

// Códigos de getStatus (ticket).
const (
	ticketProcessed  = "0"
	ticketInProgress = "98"
)

// Poll consulta el estado de un comprobante Issued sin reenviar el payload.
func (p *Pipeline) Poll(ctx context.Context, tenant *entity.Tenant, props entity.Properties, doc *entity.ElectronicDocument) Outcome {
	ctx, span := p.span(ctx, "ebilling.poll", doc)
	defer span.End()

	if doc.Status != entity.StatusIssued {
		return Skipped("estado %s no se consulta", doc.Status)
	}
	switch {
	case doc.Type == entity.TypeSummary:
		return p.pollSummary(ctx, tenant, props, doc)
	case doc.Channel == entity.ChannelSummary:
		return Skipped("%s se consulta vía resumen", doc.SourceName)
	case doc.Channel == entity.ChannelREST:
		return p.pollREST(ctx, props, doc)
	default:
		return p.pollCdr(ctx, tenant, props, doc)
	}
}

// pollSummary getStatus(ticket); la constancia aplica al resumen y a todos sus miembros.
func (p *Pipeline) pollSummary(ctx context.Context, tenant *entity.Tenant, props entity.Properties, doc *entity.ElectronicDocument) Outcome {
	if doc.Ticket == "" {
		return p.interp.Fail(ctx, doc, LogCodeTicket, fmt.Errorf("resumen %s sin ticket", doc.SourceName))
	}
	st, err := p.soap.GetStatus(ctx, soapEndpoint(props, p.defaults), soapCredentials(props, tenant), doc.Ticket)
	if err != nil {
		return p.transportFailure(ctx, doc, err)
	}
	if st.StatusCode == ticketInProgress {
		return Skipped("ticket %s en proceso", doc.Ticket)
	}
	if len(st.Content) == 0 {
		if err := p.interp.Record(ctx, doc, st.StatusCode, "ticket "+doc.Ticket+" sin constancia"); err != nil {
			return Failed(err)
		}
		return Skipped("ticket %s sin constancia (código %s)", doc.Ticket, st.StatusCode)
	}

	members, err := p.docs.ListSummaryMembers(ctx, doc.ID)
	if err != nil {
		return Failed(fmt.Errorf("miembros del resumen %s: %w", doc.SourceName, err))
	}
	targets := []*entity.ElectronicDocument{doc}
	for _, m := range members {
		if !m.Status.IsTerminal() {
			targets = append(targets, m)
		}
	}
	return p.interpretCDR(ctx, props, "R-"+doc.Ticket+".zip", st.Content, targets...)
}

// pollREST consulta el ticket de la API REST. Un rechazo sin CDR se interpreta con el
// código de error devuelto.
func (p *Pipeline) pollREST(ctx context.Context, props entity.Properties, doc *entity.ElectronicDocument) Outcome {
	if doc.Ticket == "" {
		return p.interp.Fail(ctx, doc, LogCodeTicket, fmt.Errorf("%s sin ticket", doc.SourceName))
	}
	st, err := p.rest.Status(ctx, restTarget(props, p.defaults), doc.Ticket)
	if err != nil {
		return p.interp.Fail(ctx, doc, LogCodeTransport, err)
	}
	if st.Code == sunat.RESTStatusInProgress {
		return Skipped("ticket %s en proceso", doc.Ticket)
	}
	if len(st.CDR) > 0 {
		return p.interpretCDR(ctx, props, "R-"+doc.Ticket+".zip", st.CDR, doc)
	}
	ack := &entity.Acknowledgment{Code: st.ErrorCode, Description: st.ErrorMessage}
	if ack.Code == "" {
		ack.Code = st.Code
	}
	return p.interp.Apply(ctx, props, doc, ack)
}

// pollCdr getStatusCdr del servicio de consulta con serie y número del comprobante.
func (p *Pipeline) pollCdr(ctx context.Context, tenant *entity.Tenant, props entity.Properties, doc *entity.ElectronicDocument) Outcome {
	series, number, ok := strings.Cut(doc.SourceName, "-")
	if !ok {
		return p.interp.Fail(ctx, doc, LogCodeTransport, fmt.Errorf("número %q sin serie", doc.SourceName))
	}
	st, err := p.soap.GetStatusCdr(ctx, consultEndpoint(props, p.defaults), soapCredentials(props, tenant),
		doc.Type.Code(), series, number)
	if err != nil {
		return p.transportFailure(ctx, doc, err)
	}
	if len(st.Content) == 0 {
		if err := p.interp.Record(ctx, doc, st.StatusCode, st.StatusMessage); err != nil {
			return Failed(err)
		}
		return Skipped("sin CDR: %s %s", st.StatusCode, st.StatusMessage)
	}
	return p.interpretCDR(ctx, props, "R-"+sunat.ArchiveBase(tenant.TaxID, doc.Type.Code(), doc.SourceName)+".zip", st.Content, doc)
}
