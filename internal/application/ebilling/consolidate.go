package ebilling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
	"github.com/google/uuid"
)

// MaxSummaryLines líneas por resumen diario.
const MaxSummaryLines = 500

// SummaryResult un resumen creado y el resultado de su envío.
type SummaryResult struct {
	Summary *entity.ElectronicDocument
	Members int
	Outcome Outcome
}

// Consolidate agrupa los comprobantes Pending del canal summary que ya tienen UBL por fecha de
// emisión y genera un resumen (RC-YYYYMMDD-N) por grupo. El envío los deja en Issued.
func (p *Pipeline) Consolidate(ctx context.Context, tenant *entity.Tenant, props entity.Properties) ([]SummaryResult, error) {
	ctx, span := tracer.Start(ctx, "ebilling.consolidate")
	defer span.End()

	st, ok := p.registry.Resolve(entity.TypeSummary, props)
	if !ok || !st.Active {
		return nil, nil
	}
	groups, err := p.summaryCandidates(ctx, tenant)
	if err != nil {
		return nil, err
	}

	days := make([]time.Time, 0, len(groups))
	for d := range groups {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var out []SummaryResult
	for _, day := range days {
		members := groups[day]
		for start := 0; start < len(members); start += MaxSummaryLines {
			end := start + MaxSummaryLines
			if end > len(members) {
				end = len(members)
			}
			res, err := p.summarize(ctx, tenant, props, st, members[start:end])
			if err != nil {
				return out, err
			}
			out = append(out, res)
		}
	}
	return out, nil
}

// summaryCandidates miembros posibles agrupados por día de emisión del documento fuente.
// Los que ya están en un resumen (aunque siga Pending) quedan fuera: ese resumen se reintenta
// en la sincronización de pendientes.
func (p *Pipeline) summaryCandidates(ctx context.Context, tenant *entity.Tenant) (map[time.Time][]*entity.ElectronicDocument, error) {
	pending, err := p.docs.ListUnsummarized(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("listar pendientes sin resumen: %w", err)
	}
	groups := map[time.Time][]*entity.ElectronicDocument{}
	for _, d := range pending {
		f, err := p.files.GetUBL(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("UBL de %s: %w", d.SourceName, err)
		}
		if f == nil {
			continue
		}
		src, err := p.sources.GetByID(ctx, d.SourceDocumentID)
		if err != nil {
			return nil, fmt.Errorf("documento fuente de %s: %w", d.SourceName, err)
		}
		day := issueDay(src.Date)
		groups[day] = append(groups[day], d)
	}
	return groups, nil
}

func (p *Pipeline) summarize(ctx context.Context, tenant *entity.Tenant, props entity.Properties, st Strategy, members []*entity.ElectronicDocument) (SummaryResult, error) {
	now := p.now()
	seq, err := p.docs.NextSummarySequence(ctx, tenant.ID, issueDay(now))
	if err != nil {
		return SummaryResult{}, fmt.Errorf("correlativo de resumen: %w", err)
	}
	summary := &entity.ElectronicDocument{
		ID:         uuid.New().String(),
		TenantID:   tenant.ID,
		Type:       entity.TypeSummary,
		Status:     entity.StatusPending,
		SourceName: fmt.Sprintf("RC-%s-%d", now.Format("20060102"), seq),
		Channel:    st.Channel,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	err = p.tx.Run(ctx, func(repo repository.ElectronicDocumentRepository) error {
		if err := repo.Create(ctx, summary); err != nil {
			return err
		}
		return repo.AddSummaryMembers(ctx, summary.ID, ids)
	})
	if err != nil {
		return SummaryResult{}, fmt.Errorf("crear resumen: %w", err)
	}

	res := SummaryResult{Summary: summary, Members: len(members)}
	_, payload, _, o := p.generate(ctx, tenant, props, st, summary, members)
	if !o.IsOk() {
		res.Outcome = o
		return res, nil
	}
	res.Outcome = p.transmit(ctx, tenant, props, summary, payload)
	return res, nil
}
