package ebilling

import (
	"context"
	"fmt"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/tax"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/shopspring/decimal"
)

// AssemblyInput datos de entrada de un ensamblador. Source es nil para Summary.
type AssemblyInput struct {
	Tenant  *entity.Tenant
	Props   entity.Properties
	Doc     *entity.ElectronicDocument
	Source  *entity.SourceDocument
	Members []*entity.ElectronicDocument
}

// Assembler construye el modelo canónico (ubl.Document) de cada tipo.
type Assembler struct {
	sources   repository.SourceDocumentRepository
	contacts  repository.ContactRepository
	locations repository.LocationRepository
	units     repository.UnitConverter
	files     repository.FileRepository
	blobs     repository.BlobStore
	log       *logger.Logger
}

func NewAssembler(
	sources repository.SourceDocumentRepository,
	contacts repository.ContactRepository,
	locations repository.LocationRepository,
	units repository.UnitConverter,
	files repository.FileRepository,
	blobs repository.BlobStore,
	log *logger.Logger,
) *Assembler {
	return &Assembler{
		sources:   sources,
		contacts:  contacts,
		locations: locations,
		units:     units,
		files:     files,
		blobs:     blobs,
		log:       log.WithComponent("ebilling.assembler"),
	}
}

// ── Factura / Boleta ──

func (a *Assembler) assembleSale(ctx context.Context, in AssemblyInput) (*ubl.Document, error) {
	src, err := requireSource(in)
	if err != nil {
		return nil, err
	}
	calc := tax.NewCalculator(tax.LoadConfig(in.Props))
	contact, err := a.contact(ctx, src.ContactID)
	if err != nil {
		return nil, err
	}
	doc, err := a.header(in, src, contact)
	if err != nil {
		return nil, err
	}

	lines, netPrices := buildLines(calc, src.Positions, src.FreeOfCharge)
	doc.Lines = lines

	var res tax.Result
	if src.FreeOfCharge {
		res = calc.FreeOfCharge(src.Taxes, tax.LevelDocument)
	} else {
		res = calc.Compute(src.Taxes, tax.LevelDocument)
	}
	doc.Taxes = res.Taxes
	doc.AllowanceCharges = res.Charges
	if disc := calc.Discount(netPrices); disc != nil {
		doc.AllowanceCharges = append([]tax.AllowanceCharge{*disc}, doc.AllowanceCharges...)
	}
	if contact != nil && !src.FreeOfCharge {
		doc.Retention = calc.Retention(contact.WithholdingAgent, doc.CrossTotal)
	}

	if src.FreeOfCharge {
		doc.NetTotal = decimal.Zero
		doc.CrossTotal = decimal.Zero
		doc.PayableTotal = decimal.Zero
	}
	doc.PaymentTerms = paymentTerms(src.Payment, doc.PayableTotal)
	return doc, nil
}

// ── Nota de crédito ──

func (a *Assembler) assembleCreditNote(ctx context.Context, in AssemblyInput) (*ubl.Document, error) {
	src, err := requireSource(in)
	if err != nil {
		return nil, err
	}
	calc := tax.NewCalculator(tax.LoadConfig(in.Props))
	contact, err := a.contact(ctx, src.ContactID)
	if err != nil {
		return nil, err
	}
	doc, err := a.header(in, src, contact)
	if err != nil {
		return nil, err
	}

	ref, err := a.billingReference(ctx, in.Props, src)
	if err != nil {
		return nil, err
	}
	doc.BillingReference = ref
	doc.CreditReasonCode = src.CreditReasonCode
	if doc.CreditReasonCode == "" {
		doc.CreditReasonCode = "01"
	}
	doc.CreditReason = creditReasonText(in.Props, doc.CreditReasonCode)

	if creditNoteSummarized(in.Props) {
		doc.Lines = []ubl.Line{{
			Index:          1,
			Description:    doc.CreditReason,
			UnitCode:       psunat.UnitService,
			Quantity:       decimal.NewFromInt(1),
			NetUnitPrice:   doc.NetTotal,
			CrossUnitPrice: doc.CrossTotal,
			NetPrice:       doc.NetTotal,
			CrossPrice:     doc.CrossTotal,
			PriceTypeCode:  psunat.PriceTypeOnerous,
			Taxes:          calc.Compute(src.Taxes, tax.LevelLine).Taxes,
		}}
	} else {
		doc.Lines, _ = buildLines(calc, src.Positions, false)
	}
	res := calc.Compute(src.Taxes, tax.LevelDocument)
	doc.Taxes = res.Taxes
	doc.AllowanceCharges = res.Charges
	// la forma de pago solo se declara cuando la nota ajusta un crédito
	if src.Payment.Credit {
		doc.PaymentTerms = paymentTerms(src.Payment, doc.PayableTotal)
	}
	return doc, nil
}

// billingReference documento de origen. Con varios vínculos se usa el primero según
// el orden del repositorio (fecha y luego nombre).
func (a *Assembler) billingReference(ctx context.Context, props entity.Properties, src *entity.SourceDocument) (*ubl.BillingReference, error) {
	origins, err := a.sources.ListOrigins(ctx, src.ID)
	if err != nil {
		return nil, fmt.Errorf("buscar documento de origen de %s: %w", src.Name, err)
	}
	if len(origins) == 0 {
		return nil, fmt.Errorf("%w: nota de crédito %s sin documento de origen", domain.ErrInvalidInput, src.Name)
	}
	if len(origins) > 1 {
		a.log.Warn().Str("source", src.Name).Int("links", len(origins)).
			Str("used", origins[0].Name).Msg("nota de crédito con varios documentos de origen")
	}
	origin := origins[0]
	code := psunat.DocTypeInvoice
	if t, ok := mappedType(props, origin.Type); ok && (t == entity.TypeInvoice || t == entity.TypeReceipt) {
		code = t.Code()
	} else if origin.Type == entity.SourceReceipt {
		code = psunat.DocTypeReceipt
	}
	return &ubl.BillingReference{TypeCode: code, Number: origin.Name, Date: origin.Date}, nil
}

// ── Bloques comunes ──

func requireSource(in AssemblyInput) (*entity.SourceDocument, error) {
	if in.Source == nil {
		return nil, fmt.Errorf("%w: %s sin documento fuente", domain.ErrInvalidInput, in.Doc.Type)
	}
	return in.Source, nil
}

func (a *Assembler) contact(ctx context.Context, id string) (*entity.Contact, error) {
	if id == "" {
		return nil, nil
	}
	c, err := a.contacts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cliente %s: %w", id, err)
	}
	return c, nil
}

// header cabecera compartida: número, moneda, fechas, totales, emisor y cliente.
func (a *Assembler) header(in AssemblyInput, src *entity.SourceDocument, contact *entity.Contact) (*ubl.Document, error) {
	ts := typeSettings(in.Props, in.Doc.Type)
	customer, err := resolveCustomer(contact, ts.AllowAnonymous, anonymousSettings(in.Props), src.CrossTotal)
	if err != nil {
		return nil, err
	}
	currency := src.Currency
	if currency == "" {
		currency = "PEN"
	}
	return &ubl.Document{
		Number:       src.Name,
		TypeCode:     in.Doc.Type.Code(),
		Currency:     currency,
		IssueDate:    src.Date,
		DueDate:      src.DueDate,
		Note:         src.Note,
		NetTotal:     tax.Round2(src.NetTotal),
		CrossTotal:   tax.Round2(src.CrossTotal),
		PayableTotal: tax.Round2(src.CrossTotal),
		Supplier:     supplierParty(in.Tenant),
		Customer:     customer,
	}, nil
}

// buildLines líneas desde las posiciones. Las posiciones con precio neto negativo no generan
// línea: se devuelven en netPrices para el descuento global.
func buildLines(calc *tax.Calculator, positions []entity.Position, free bool) ([]ubl.Line, []decimal.Decimal) {
	lines := make([]ubl.Line, 0, len(positions))
	netPrices := make([]decimal.Decimal, 0, len(positions))
	for _, p := range positions {
		netPrices = append(netPrices, p.NetPrice)
		if p.NetPrice.IsNegative() {
			continue
		}
		unit := p.UnitCode
		if unit == "" {
			unit = psunat.UnitUnit
		}
		l := ubl.Line{
			Index:          len(lines) + 1,
			ProductCode:    p.ProductCode,
			Description:    p.Description,
			UnitCode:       unit,
			Quantity:       p.Quantity,
			NetUnitPrice:   tax.Round2(p.NetUnitPrice),
			CrossUnitPrice: tax.Round2(p.CrossUnitPrice),
			NetPrice:       tax.Round2(p.NetPrice),
			CrossPrice:     tax.Round2(p.CrossPrice),
			PriceTypeCode:  psunat.PriceTypeOnerous,
		}
		if free {
			l.ReferencePrice = tax.Round2(p.CrossUnitPrice)
			if l.ReferencePrice.IsZero() {
				l.ReferencePrice = tax.Round2(p.NetUnitPrice)
			}
			l.PriceTypeCode = psunat.PriceTypeFree
			l.NetUnitPrice = decimal.Zero
			l.CrossUnitPrice = decimal.Zero
			l.CrossPrice = decimal.Zero
			l.Taxes = calc.FreeOfCharge(p.Taxes, tax.LevelLine).Taxes
		} else {
			l.Taxes = calc.Compute(p.Taxes, tax.LevelLine).Taxes
		}
		lines = append(lines, l)
	}
	return lines, netPrices
}

// paymentTerms contado o crédito con cuotas Cuota001, Cuota002...
func paymentTerms(p entity.Payment, payable decimal.Decimal) *ubl.PaymentTerms {
	if !p.Credit {
		return &ubl.PaymentTerms{Method: psunat.PaymentCash}
	}
	pt := &ubl.PaymentTerms{Method: psunat.PaymentCredit}
	total := decimal.Zero
	for i, inst := range p.Installments {
		amount := tax.Round2(inst.Amount)
		total = total.Add(amount)
		pt.Installments = append(pt.Installments, ubl.Installment{
			ID:      fmt.Sprintf("Cuota%03d", i+1),
			DueDate: inst.DueDate,
			Amount:  amount,
		})
	}
	if total.IsZero() {
		total = payable
	}
	pt.Amount = total
	return pt
}

// issueDay fecha (sin hora) en la zona del valor.
func issueDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
