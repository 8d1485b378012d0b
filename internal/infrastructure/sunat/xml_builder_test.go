package sunat_test

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/tax"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleInvoice() *ubl.Document {
	igv := tax.Entry{ID: "1000", Name: "IGV", TaxTypeCode: "VAT", ExemptionReasonCode: "10", Taxable: d("100"), Amount: d("18"), Percent: d("18")}
	docTax := igv
	docTax.ExemptionReasonCode = ""
	return &ubl.Document{
		Number:       "F001-123",
		TypeCode:     psunat.DocTypeInvoice,
		Currency:     "PEN",
		IssueDate:    time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC),
		NetTotal:     d("100"),
		CrossTotal:   d("118"),
		PayableTotal: d("118"),
		Supplier: ubl.Party{IDType: psunat.IDTypeRUC, ID: "20100070970", Name: "EMPRESA DE PRUEBA SAC",
			Address: &ubl.Address{Line: "Av. Arequipa 123", Ubigeo: "150101", CountryCode: "PE", AddressTypeCode: "0000"}},
		Customer: ubl.Party{IDType: psunat.IDTypeRUC, ID: "20131312955", Name: "CLIENTE SAC"},
		Lines: []ubl.Line{{
			Index: 1, ProductCode: "P-01", Description: "Producto", UnitCode: psunat.UnitUnit,
			Quantity: d("2"), NetUnitPrice: d("50"), CrossUnitPrice: d("59"), NetPrice: d("100"), CrossPrice: d("118"),
			PriceTypeCode: psunat.PriceTypeOnerous, Taxes: []tax.Entry{igv},
		}},
		Taxes:        []tax.Entry{docTax},
		PaymentTerms: &ubl.PaymentTerms{Method: psunat.PaymentCash},
	}
}

func parse(t *testing.T, data []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

func TestXMLBuilder_Invoice(t *testing.T) {
	out, err := sunat.NewXMLBuilder().Build(entity.TypeInvoice, sampleInvoice())
	require.NoError(t, err)

	root := parse(t, out)
	assert.Equal(t, "Invoice", root.Tag)
	assert.Equal(t, sunat.NsInvoice, root.SelectAttrValue("xmlns", ""))
	assert.Equal(t, "F001-123", root.SelectElement("cbc:ID").Text())
	assert.Equal(t, "10:30:00", root.SelectElement("cbc:IssueTime").Text())

	exts := root.FindElements("./ext:UBLExtensions/ext:UBLExtension")
	require.Len(t, exts, 2)
	last := exts[1].SelectElement("ext:ExtensionContent")
	require.NotNil(t, last)
	assert.Empty(t, last.ChildElements())

	assert.Equal(t, "SIGN20100070970", root.FindElement("./cac:Signature/cbc:ID").Text())

	sub := root.FindElement("./cac:TaxTotal/cac:TaxSubtotal")
	require.NotNil(t, sub)
	assert.Equal(t, "100.00", sub.SelectElement("cbc:TaxableAmount").Text())
	assert.Equal(t, "18.00", sub.SelectElement("cbc:TaxAmount").Text())
	assert.Equal(t, "PEN", sub.SelectElement("cbc:TaxAmount").SelectAttrValue("currencyID", ""))
	// a nivel documento no va el código de afectación
	assert.Nil(t, sub.FindElement("./cac:TaxCategory/cbc:TaxExemptionReasonCode"))

	line := root.SelectElement("cac:InvoiceLine")
	require.NotNil(t, line)
	assert.Equal(t, "10", line.FindElement("./cac:TaxTotal/cac:TaxSubtotal/cac:TaxCategory/cbc:TaxExemptionReasonCode").Text())
	assert.Equal(t, "18.00", line.FindElement("./cac:TaxTotal/cac:TaxSubtotal/cac:TaxCategory/cbc:Percent").Text())
	assert.Equal(t, "59.00", line.FindElement("./cac:PricingReference/cac:AlternativeConditionPrice/cbc:PriceAmount").Text())
	assert.Equal(t, "NIU", line.SelectElement("cbc:InvoicedQuantity").SelectAttrValue("unitCode", ""))

	assert.Equal(t, "118.00", root.FindElement("./cac:LegalMonetaryTotal/cbc:PayableAmount").Text())
	assert.Nil(t, root.FindElement("./cac:LegalMonetaryTotal/cbc:AllowanceTotalAmount"))
	assert.Equal(t, "Contado", root.FindElement("./cac:PaymentTerms/cbc:PaymentMeansID").Text())
}

func TestXMLBuilder_InvoiceConRetencionYDescuento(t *testing.T) {
	doc := sampleInvoice()
	doc.AllowanceCharges = []tax.AllowanceCharge{{Charge: false, ReasonCode: "02", Factor: d("0.1"), Amount: d("10"), Base: d("100")}}
	doc.Retention = &tax.AllowanceCharge{Charge: true, ReasonCode: "62", Factor: d("0.03"), Amount: d("21.03"), Base: d("701")}

	out, err := sunat.NewXMLBuilder().Build(entity.TypeInvoice, doc)
	require.NoError(t, err)
	root := parse(t, out)

	acs := root.SelectElements("cac:AllowanceCharge")
	require.Len(t, acs, 2)
	assert.Equal(t, "false", acs[0].SelectElement("cbc:ChargeIndicator").Text())
	assert.Equal(t, "0.10000", acs[0].SelectElement("cbc:MultiplierFactorNumeric").Text())
	assert.Equal(t, "62", acs[1].SelectElement("cbc:AllowanceChargeReasonCode").Text())
	assert.Equal(t, "21.03", acs[1].SelectElement("cbc:Amount").Text())

	assert.Equal(t, "10.00", root.FindElement("./cac:LegalMonetaryTotal/cbc:AllowanceTotalAmount").Text())
	// la retención no altera los cargos del total
	assert.Nil(t, root.FindElement("./cac:LegalMonetaryTotal/cbc:ChargeTotalAmount"))
}

func TestXMLBuilder_CreditNote(t *testing.T) {
	doc := sampleInvoice()
	doc.Number = "FC01-7"
	doc.TypeCode = psunat.DocTypeCreditNote

	_, err := sunat.NewXMLBuilder().Build(entity.TypeCreditNote, doc)
	require.Error(t, err)

	doc.BillingReference = &ubl.BillingReference{TypeCode: psunat.DocTypeInvoice, Number: "F001-123", Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)}
	doc.CreditReasonCode = "07"
	doc.CreditReason = "Devolución por ítem"
	out, err := sunat.NewXMLBuilder().Build(entity.TypeCreditNote, doc)
	require.NoError(t, err)

	root := parse(t, out)
	assert.Equal(t, "CreditNote", root.Tag)
	assert.Equal(t, "07", root.FindElement("./cac:DiscrepancyResponse/cbc:ResponseCode").Text())
	assert.Equal(t, "F001-123", root.FindElement("./cac:BillingReference/cac:InvoiceDocumentReference/cbc:ID").Text())
	assert.Equal(t, "01", root.FindElement("./cac:BillingReference/cac:InvoiceDocumentReference/cbc:DocumentTypeCode").Text())
	require.NotNil(t, root.SelectElement("cac:CreditNoteLine"))
	assert.NotNil(t, root.FindElement("./cac:CreditNoteLine/cbc:CreditedQuantity"))
}

func TestXMLBuilder_CreditNoteConPercepcionYCuotas(t *testing.T) {
	doc := sampleInvoice()
	doc.Number = "FC01-8"
	doc.TypeCode = psunat.DocTypeCreditNote
	doc.BillingReference = &ubl.BillingReference{TypeCode: psunat.DocTypeInvoice, Number: "F001-123"}
	doc.CreditReasonCode = "13"
	doc.CreditReason = "Ajuste en fechas o montos de pago"
	doc.AllowanceCharges = []tax.AllowanceCharge{{Charge: true, ReasonCode: psunat.ChargeReasonPerception, Factor: d("0.02"), Amount: d("2.36"), Base: d("118")}}
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc.PaymentTerms = &ubl.PaymentTerms{Method: psunat.PaymentCredit, Amount: d("118"), Installments: []ubl.Installment{
		{ID: "Cuota001", DueDate: due, Amount: d("118")},
	}}

	out, err := sunat.NewXMLBuilder().Build(entity.TypeCreditNote, doc)
	require.NoError(t, err)
	root := parse(t, out)

	pts := root.SelectElements("cac:PaymentTerms")
	require.Len(t, pts, 2)
	assert.Equal(t, "Credito", pts[0].SelectElement("cbc:PaymentMeansID").Text())
	assert.Equal(t, "118.00", pts[0].SelectElement("cbc:Amount").Text())
	assert.Equal(t, "Cuota001", pts[1].SelectElement("cbc:PaymentMeansID").Text())
	assert.Equal(t, "2024-03-01", pts[1].SelectElement("cbc:PaymentDueDate").Text())

	ac := root.SelectElement("cac:AllowanceCharge")
	require.NotNil(t, ac)
	assert.Equal(t, "true", ac.SelectElement("cbc:ChargeIndicator").Text())
	assert.Equal(t, "51", ac.SelectElement("cbc:AllowanceChargeReasonCode").Text())
	assert.Equal(t, "2.36", root.FindElement("./cac:LegalMonetaryTotal/cbc:ChargeTotalAmount").Text())

	// orden de UBL: forma de pago y cargos entre el cliente y los tributos
	var order []string
	for _, c := range root.ChildElements() {
		order = append(order, c.FullTag())
	}
	assert.Less(t, indexOf(order, "cac:AccountingCustomerParty"), indexOf(order, "cac:PaymentTerms"))
	assert.Less(t, indexOf(order, "cac:PaymentTerms"), indexOf(order, "cac:AllowanceCharge"))
	assert.Less(t, indexOf(order, "cac:AllowanceCharge"), indexOf(order, "cac:TaxTotal"))
}

func indexOf(tags []string, tag string) int {
	for i, t := range tags {
		if t == tag {
			return i
		}
	}
	return -1
}

func TestXMLBuilder_DespatchAdvice(t *testing.T) {
	doc := sampleInvoice()
	doc.Number = "T001-9"
	doc.TypeCode = psunat.DocTypeDeliveryNote
	_, err := sunat.NewXMLBuilder().Build(entity.TypeDeliveryNote, doc)
	require.Error(t, err)

	doc.Shipment = &ubl.Shipment{
		ReasonCode: psunat.TransferReasonSale,
		Mode:       psunat.TransportModePublic,
		StartDate:  time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
		Weight:     d("12.5"),
		WeightUnit: psunat.UnitKilogram,
		Carrier:    &ubl.Party{IDType: psunat.IDTypeRUC, ID: "20600000001", Name: "TRANSPORTES SAC"},
		Despatch:   ubl.Address{Line: "Almacén central", Ubigeo: "150101"},
		Arrival:    ubl.Address{Line: "Tienda norte", Ubigeo: "150135"},
		Vehicle:    &ubl.Vehicle{Plate: "ABC123", Minor: true},
	}
	out, err := sunat.NewXMLBuilder().Build(entity.TypeDeliveryNote, doc)
	require.NoError(t, err)

	root := parse(t, out)
	assert.Equal(t, "DespatchAdvice", root.Tag)
	assert.Equal(t, "12.5", root.FindElement("./cac:Shipment/cbc:GrossWeightMeasure").Text())
	assert.Equal(t, "20600000001", root.FindElement("./cac:Shipment/cac:ShipmentStage/cac:CarrierParty/cac:PartyIdentification/cbc:ID").Text())
	assert.Equal(t, "150135", root.FindElement("./cac:Shipment/cac:Delivery/cac:DeliveryAddress/cbc:ID").Text())
	assert.Equal(t, "SUNAT_Envio_IndicadorTrasladoVehiculoM1L", root.FindElement("./cac:Shipment/cbc:SpecialInstructions").Text())
	require.NotNil(t, root.SelectElement("cac:DespatchLine"))
	// la guía no lleva importes
	assert.Nil(t, root.SelectElement("cac:LegalMonetaryTotal"))
}

func TestXMLBuilder_SummaryDesdeComprobante(t *testing.T) {
	receipt := sampleInvoice()
	receipt.Number = "B001-55"
	receipt.TypeCode = psunat.DocTypeReceipt
	receipt.Customer = ubl.Party{IDType: psunat.IDTypeDNI, ID: "00000000", Name: "CLIENTES VARIOS"}
	signed, err := sunat.NewXMLBuilder().Build(entity.TypeReceipt, receipt)
	require.NoError(t, err)

	line, issued, err := sunat.ReadSummaryLine(signed)
	require.NoError(t, err)
	assert.Equal(t, "B001-55", line.Number)
	assert.Equal(t, psunat.DocTypeReceipt, line.TypeCode)
	assert.Equal(t, "00000000", line.CustomerID)
	assert.Equal(t, psunat.IDTypeDNI, line.CustomerIDType)
	assert.True(t, line.Total.Equal(d("118")))
	assert.True(t, line.TaxableAmount.Equal(d("100")))
	require.Len(t, line.Taxes, 1)
	assert.Equal(t, "1000", line.Taxes[0].ID)
	assert.Equal(t, 5, issued.Day())

	line.Index = 1
	summary := &ubl.Document{
		Number:        "RC-20240106-1",
		TypeCode:      psunat.DocTypeSummary,
		IssueDate:     time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
		ReferenceDate: issued,
		Supplier:      receipt.Supplier,
	}
	_, err = sunat.NewXMLBuilder().Build(entity.TypeSummary, summary)
	require.Error(t, err)

	summary.SummaryLines = []ubl.SummaryLine{line}
	out, err := sunat.NewXMLBuilder().Build(entity.TypeSummary, summary)
	require.NoError(t, err)

	root := parse(t, out)
	assert.Equal(t, "SummaryDocuments", root.Tag)
	assert.Equal(t, "2024-01-05", root.SelectElement("cbc:ReferenceDate").Text())
	sl := root.SelectElement("sac:SummaryDocumentsLine")
	require.NotNil(t, sl)
	assert.Equal(t, "B001-55", sl.SelectElement("cbc:ID").Text())
	assert.Equal(t, sunat.SummaryConditionAdd, sl.FindElement("./cac:Status/cbc:ConditionCode").Text())
	assert.Equal(t, "118.00", sl.SelectElement("sac:TotalAmount").Text())
}

func TestReadSummaryLine_TipoNoSoportado(t *testing.T) {
	_, _, err := sunat.ReadSummaryLine([]byte(`<DespatchAdvice><cbc:ID xmlns:cbc="x">T001-1</cbc:ID></DespatchAdvice>`))
	assert.Error(t, err)
}

func TestXMLBuilder_TipoDesconocido(t *testing.T) {
	_, err := sunat.NewXMLBuilder().Build(entity.DocumentType("Otro"), sampleInvoice())
	assert.Error(t, err)
	_, err = sunat.NewXMLBuilder().Build(entity.TypeInvoice, nil)
	assert.Error(t, err)
}
