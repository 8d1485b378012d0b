package sunat

import (
	"fmt"
	"strconv"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/tax"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
)

// XMLBuilder serializa el modelo canónico a UBL 2.1 (sin firma).
type XMLBuilder struct{}

// NewXMLBuilder crea el servicio.
func NewXMLBuilder() *XMLBuilder {
	return &XMLBuilder{}
}

// Build genera el XML del tipo indicado.
func (b *XMLBuilder) Build(t entity.DocumentType, doc *ubl.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("sunat: documento vacío")
	}
	switch t {
	case entity.TypeInvoice, entity.TypeReceipt:
		return b.buildInvoice(doc)
	case entity.TypeCreditNote:
		return b.buildCreditNote(doc)
	case entity.TypeDeliveryNote:
		return b.buildDespatchAdvice(doc)
	case entity.TypeSummary:
		return b.buildSummary(doc)
	}
	return nil, fmt.Errorf("sunat: tipo de comprobante no soportado %q", t)
}

var ublPrefixes = map[string]string{
	"cac": NsCac,
	"cbc": NsCbc,
	"ds":  NsDs,
	"ext": NsExt,
}

// ── Factura / Boleta ──

func (b *XMLBuilder) buildInvoice(doc *ubl.Document) ([]byte, error) {
	w := newXMLWriter()
	w.root("Invoice", NsInvoice, ublPrefixes)
	w.ublExtensions()
	w.text("cbc:UBLVersionID", ublVersion)
	w.text("cbc:CustomizationID", customizationID)
	w.text("cbc:ID", doc.Number)
	w.text("cbc:IssueDate", doc.IssueDate.Format(dateLayout))
	w.text("cbc:IssueTime", doc.IssueDate.Format(timeLayout))
	if doc.DueDate != nil {
		w.text("cbc:DueDate", doc.DueDate.Format(dateLayout))
	}
	w.text("cbc:InvoiceTypeCode", doc.TypeCode, attr("listID", "0101"))
	w.text("cbc:Note", doc.Note)
	w.text("cbc:DocumentCurrencyCode", doc.Currency)
	w.text("cbc:LineCountNumeric", strconv.Itoa(len(doc.Lines)))

	w.signatureRef(doc.Supplier.ID, doc.Supplier.Name)
	w.party("cac:AccountingSupplierParty", doc.Supplier)
	w.party("cac:AccountingCustomerParty", doc.Customer)
	w.paymentTerms(doc)
	w.allowanceCharges(doc)
	w.taxTotal(doc.Taxes, doc.Currency, false)
	w.monetaryTotal("cac:LegalMonetaryTotal", doc)
	for _, l := range doc.Lines {
		w.line("cac:InvoiceLine", "cbc:InvoicedQuantity", l, doc.Currency)
	}
	w.end()
	return w.bytes()
}

// ── Nota de crédito ──

func (b *XMLBuilder) buildCreditNote(doc *ubl.Document) ([]byte, error) {
	if doc.BillingReference == nil {
		return nil, fmt.Errorf("sunat: nota de crédito %s sin comprobante de referencia", doc.Number)
	}
	w := newXMLWriter()
	w.root("CreditNote", NsCreditNote, ublPrefixes)
	w.ublExtensions()
	w.text("cbc:UBLVersionID", ublVersion)
	w.text("cbc:CustomizationID", customizationID)
	w.text("cbc:ID", doc.Number)
	w.text("cbc:IssueDate", doc.IssueDate.Format(dateLayout))
	w.text("cbc:IssueTime", doc.IssueDate.Format(timeLayout))
	w.text("cbc:Note", doc.Note)
	w.text("cbc:DocumentCurrencyCode", doc.Currency)

	ref := doc.BillingReference
	w.start("cac:DiscrepancyResponse")
	w.text("cbc:ReferenceID", ref.Number)
	w.text("cbc:ResponseCode", doc.CreditReasonCode)
	w.text("cbc:Description", doc.CreditReason)
	w.end()
	w.start("cac:BillingReference")
	w.start("cac:InvoiceDocumentReference")
	w.text("cbc:ID", ref.Number)
	if !ref.Date.IsZero() {
		w.text("cbc:IssueDate", ref.Date.Format(dateLayout))
	}
	w.text("cbc:DocumentTypeCode", ref.TypeCode)
	w.end()
	w.end()

	w.signatureRef(doc.Supplier.ID, doc.Supplier.Name)
	w.party("cac:AccountingSupplierParty", doc.Supplier)
	w.party("cac:AccountingCustomerParty", doc.Customer)
	w.paymentTerms(doc)
	w.allowanceCharges(doc)
	w.taxTotal(doc.Taxes, doc.Currency, false)
	w.monetaryTotal("cac:LegalMonetaryTotal", doc)
	for _, l := range doc.Lines {
		w.line("cac:CreditNoteLine", "cbc:CreditedQuantity", l, doc.Currency)
	}
	w.end()
	return w.bytes()
}

// ── Bloques comunes ──

func (w *xmlWriter) party(wrapper string, p ubl.Party) {
	w.start(wrapper)
	w.start("cac:Party")
	w.start("cac:PartyIdentification")
	w.text("cbc:ID", p.ID, attr("schemeID", p.IDType))
	w.end()
	if p.TradeName != "" {
		w.start("cac:PartyName")
		w.text("cbc:Name", p.TradeName)
		w.end()
	}
	w.start("cac:PartyLegalEntity")
	w.text("cbc:RegistrationName", p.Name)
	if a := p.Address; a != nil {
		w.start("cac:RegistrationAddress")
		w.text("cbc:ID", a.Ubigeo)
		w.text("cbc:AddressTypeCode", a.AddressTypeCode)
		w.start("cac:AddressLine")
		w.text("cbc:Line", a.Line)
		w.end()
		w.start("cac:Country")
		w.text("cbc:IdentificationCode", a.CountryCode)
		w.end()
		w.end()
	}
	w.end()
	w.end()
	w.end()
}

func (w *xmlWriter) paymentTerms(doc *ubl.Document) {
	pt := doc.PaymentTerms
	if pt == nil {
		return
	}
	w.start("cac:PaymentTerms")
	w.text("cbc:ID", "FormaPago")
	w.text("cbc:PaymentMeansID", pt.Method)
	if pt.Method == psunat.PaymentCredit {
		w.amount("cbc:Amount", pt.Amount, doc.Currency)
	}
	w.end()
	for _, inst := range pt.Installments {
		w.start("cac:PaymentTerms")
		w.text("cbc:ID", "FormaPago")
		w.text("cbc:PaymentMeansID", inst.ID)
		w.amount("cbc:Amount", inst.Amount, doc.Currency)
		w.text("cbc:PaymentDueDate", inst.DueDate.Format(dateLayout))
		w.end()
	}
}

func (w *xmlWriter) allowanceCharges(doc *ubl.Document) {
	all := doc.AllowanceCharges
	if doc.Retention != nil {
		all = append(append([]tax.AllowanceCharge(nil), all...), *doc.Retention)
	}
	for _, ac := range all {
		w.start("cac:AllowanceCharge")
		w.text("cbc:ChargeIndicator", strconv.FormatBool(ac.Charge))
		w.text("cbc:AllowanceChargeReasonCode", ac.ReasonCode)
		w.text("cbc:MultiplierFactorNumeric", ac.Factor.StringFixed(5))
		w.amount("cbc:Amount", ac.Amount, doc.Currency)
		w.amount("cbc:BaseAmount", ac.Base, doc.Currency)
		w.end()
	}
}

// taxTotal withExemption solo en líneas.
func (w *xmlWriter) taxTotal(entries []tax.Entry, currency string, withExemption bool) {
	total := tax.Result{Taxes: entries}.TaxAmount()
	w.start("cac:TaxTotal")
	w.amount("cbc:TaxAmount", total, currency)
	for _, e := range entries {
		w.start("cac:TaxSubtotal")
		w.amount("cbc:TaxableAmount", e.Taxable, currency)
		w.amount("cbc:TaxAmount", e.Amount, currency)
		w.start("cac:TaxCategory")
		if withExemption {
			w.text("cbc:Percent", tax.Format2(e.Percent))
			w.text("cbc:TaxExemptionReasonCode", e.ExemptionReasonCode)
		}
		w.start("cac:TaxScheme")
		w.text("cbc:ID", e.ID)
		w.text("cbc:Name", e.Name)
		w.text("cbc:TaxTypeCode", e.TaxTypeCode)
		w.end()
		w.end()
		w.end()
	}
	w.end()
}

func (w *xmlWriter) monetaryTotal(wrapper string, doc *ubl.Document) {
	w.start(wrapper)
	w.amount("cbc:LineExtensionAmount", doc.NetTotal, doc.Currency)
	w.amount("cbc:TaxInclusiveAmount", doc.CrossTotal, doc.Currency)
	if a := doc.Allowances(); a.IsPositive() {
		w.amount("cbc:AllowanceTotalAmount", a, doc.Currency)
	}
	if c := doc.Charges(); c.IsPositive() {
		w.amount("cbc:ChargeTotalAmount", c, doc.Currency)
	}
	w.amount("cbc:PayableAmount", doc.PayableTotal, doc.Currency)
	w.end()
}

func (w *xmlWriter) line(wrapper, quantityTag string, l ubl.Line, currency string) {
	w.start(wrapper)
	w.text("cbc:ID", strconv.Itoa(l.Index))
	w.text(quantityTag, l.Quantity.String(), attr("unitCode", l.UnitCode))
	w.amount("cbc:LineExtensionAmount", l.NetPrice, currency)

	w.start("cac:PricingReference")
	w.start("cac:AlternativeConditionPrice")
	if l.PriceTypeCode == psunat.PriceTypeFree {
		w.amount("cbc:PriceAmount", l.ReferencePrice, currency)
	} else {
		w.amount("cbc:PriceAmount", l.CrossUnitPrice, currency)
	}
	w.text("cbc:PriceTypeCode", l.PriceTypeCode)
	w.end()
	w.end()

	w.taxTotal(l.Taxes, currency, true)

	w.start("cac:Item")
	w.text("cbc:Description", l.Description)
	if l.ProductCode != "" {
		w.start("cac:SellersItemIdentification")
		w.text("cbc:ID", l.ProductCode)
		w.end()
	}
	w.end()
	w.start("cac:Price")
	w.amount("cbc:PriceAmount", l.NetUnitPrice, currency)
	w.end()
	w.end()
}
