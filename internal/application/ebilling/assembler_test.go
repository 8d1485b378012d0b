package ebilling_test

import (
	"context"
	"testing"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/ebilling"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, e *env, typ entity.DocumentType, src *entity.SourceDocument) (*ubl.Document, error) {
	t.Helper()
	st, ok := e.registry.Resolve(typ, e.props)
	require.True(t, ok)
	return st.Assemble(context.Background(), ebilling.AssemblyInput{
		Tenant: e.tenant,
		Props:  e.props,
		Doc:    &entity.ElectronicDocument{ID: "x", Type: typ, SourceName: src.Name},
		Source: src,
	})
}

func position(net, cross string) entity.Position {
	return entity.Position{
		ProductID: "p", ProductCode: "P", Description: "Item", Quantity: d("1"),
		NetUnitPrice: d(net), CrossUnitPrice: d(cross), NetPrice: d(net), CrossPrice: d(cross),
		Taxes: entity.TaxBreakdown{{Key: "IGV", Base: d(net), Amount: d(cross).Sub(d(net)), Factor: d("0.18")}},
	}
}

func TestAssembleSale_Factura(t *testing.T) {
	src := invoiceSource("s1", "F001-1")
	e := newEnv(src).build()

	doc, err := assemble(t, e, entity.TypeInvoice, src)
	require.NoError(t, err)
	assert.Equal(t, "F001-1", doc.Number)
	assert.Equal(t, psunat.DocTypeInvoice, doc.TypeCode)
	assert.Equal(t, psunat.IDTypeRUC, doc.Supplier.IDType)
	assert.Equal(t, "20100070970", doc.Supplier.ID)
	assert.Equal(t, psunat.IDTypeRUC, doc.Customer.IDType)
	assert.Equal(t, "20131312955", doc.Customer.ID)
	require.Len(t, doc.Lines, 1)
	require.Len(t, doc.Taxes, 1)
	assert.True(t, doc.Taxes[0].Amount.Equal(d("18")))
	assert.True(t, doc.PayableTotal.Equal(d("118")))
	assert.Equal(t, psunat.PaymentCash, doc.PaymentTerms.Method)
	assert.Nil(t, doc.Retention)
}

func TestAssembleSale_DescuentoGlobal(t *testing.T) {
	src := invoiceSource("s1", "F001-1")
	src.Positions = []entity.Position{position("100", "118"), position("100", "118"), position("-20", "-23.6")}
	e := newEnv(src).build()

	doc, err := assemble(t, e, entity.TypeInvoice, src)
	require.NoError(t, err)
	assert.Len(t, doc.Lines, 2, "la posición negativa no genera línea")
	require.NotEmpty(t, doc.AllowanceCharges)
	disc := doc.AllowanceCharges[0]
	assert.False(t, disc.Charge)
	assert.Equal(t, psunat.ChargeReasonGlobalDiscount, disc.ReasonCode)
	assert.True(t, disc.Amount.Equal(d("20")))
	assert.True(t, disc.Base.Equal(d("200")))
	assert.True(t, disc.Factor.Equal(d("0.1")))
}

func TestAssembleSale_Retencion(t *testing.T) {
	src := invoiceSource("s1", "F001-1")
	src.CrossTotal = d("701")
	src.ContactID = "agente"
	e := newEnv(src)
	e.props[entity.Key("Retention", "Active")] = "true"
	e.contacts["agente"] = &entity.Contact{ID: "agente", Name: "Agente SA", TaxNumber: "20131312955", Organization: true, WithholdingAgent: true}
	e.build()

	doc, err := assemble(t, e, entity.TypeInvoice, src)
	require.NoError(t, err)
	require.NotNil(t, doc.Retention)
	assert.True(t, doc.Retention.Amount.Equal(d("21.03")))
	assert.Equal(t, psunat.ChargeReasonRetention, doc.Retention.ReasonCode)
	assert.True(t, doc.PayableTotal.Equal(d("701")), "la retención no altera el importe a pagar")

	src.CrossTotal = d("700")
	doc, err = assemble(t, e, entity.TypeInvoice, src)
	require.NoError(t, err)
	assert.Nil(t, doc.Retention)
}

func TestAssembleSale_Gratuito(t *testing.T) {
	src := invoiceSource("s1", "F001-1")
	src.FreeOfCharge = true
	e := newEnv(src).build()

	doc, err := assemble(t, e, entity.TypeInvoice, src)
	require.NoError(t, err)
	assert.True(t, doc.PayableTotal.IsZero())
	require.Len(t, doc.Lines, 1)
	l := doc.Lines[0]
	assert.Equal(t, psunat.PriceTypeFree, l.PriceTypeCode)
	assert.True(t, l.ReferencePrice.Equal(d("118")))
	assert.True(t, l.CrossUnitPrice.IsZero())
	for _, tx := range append(l.Taxes, doc.Taxes...) {
		assert.Equal(t, psunat.TaxFree, tx.ID)
		assert.True(t, tx.Amount.IsZero())
	}
}

func TestAssembleSale_Credito(t *testing.T) {
	src := invoiceSource("s1", "F001-1")
	due := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	src.Payment = entity.Payment{Credit: true, Installments: []entity.Installment{
		{DueDate: due, Amount: d("59")},
		{DueDate: due.AddDate(0, 1, 0), Amount: d("59")},
	}}
	e := newEnv(src).build()

	doc, err := assemble(t, e, entity.TypeInvoice, src)
	require.NoError(t, err)
	pt := doc.PaymentTerms
	assert.Equal(t, psunat.PaymentCredit, pt.Method)
	require.Len(t, pt.Installments, 2)
	assert.Equal(t, "Cuota001", pt.Installments[0].ID)
	assert.Equal(t, "Cuota002", pt.Installments[1].ID)
	assert.True(t, pt.Amount.Equal(d("118")))
}

func TestAssembleSale_Cliente(t *testing.T) {
	cases := []struct {
		name     string
		typ      entity.DocumentType
		contact  string
		total    string
		wantType string
		wantID   string
		wantErr  bool
	}{
		{"boleta bajo umbral", entity.TypeReceipt, "c-dni", "118", psunat.IDTypeNonDomiciled, "00000000", false},
		{"boleta sobre umbral", entity.TypeReceipt, "c-dni", "800", psunat.IDTypeDNI, "45678912", false},
		{"boleta sin cliente", entity.TypeReceipt, "", "800", psunat.IDTypeNonDomiciled, "00000000", false},
		{"factura sin cliente", entity.TypeInvoice, "", "118", "", "", true},
		{"factura RUC inválido", entity.TypeInvoice, "ruc-malo", "118", "", "", true},
		{"boleta RUC inválido", entity.TypeReceipt, "ruc-malo", "800", psunat.IDTypeNonDomiciled, "00000000", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := invoiceSource("s1", "X001-1")
			src.ContactID = tc.contact
			src.CrossTotal = d(tc.total)
			e := newEnv(src)
			e.contacts["ruc-malo"] = &entity.Contact{ID: "ruc-malo", Name: "Malo", TaxNumber: "20100070971", Organization: true}
			e.build()

			doc, err := assemble(t, e, tc.typ, src)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, doc.Customer.IDType)
			assert.Equal(t, tc.wantID, doc.Customer.ID)
		})
	}
}

func creditSource() *entity.SourceDocument {
	src := invoiceSource("nc1", "FC01-1")
	src.Type = entity.SourceCreditNote
	src.CreditReasonCode = "07"
	return src
}

func TestAssembleCreditNote_Detallada(t *testing.T) {
	src := creditSource()
	e := newEnv(src)
	e.sources.origins["nc1"] = []*entity.SourceDocument{
		{ID: "o1", Type: entity.SourceInvoice, Name: "F001-9", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "o2", Type: entity.SourceInvoice, Name: "F001-10", Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
	}
	e.build()

	doc, err := assemble(t, e, entity.TypeCreditNote, src)
	require.NoError(t, err)
	require.NotNil(t, doc.BillingReference)
	assert.Equal(t, "F001-9", doc.BillingReference.Number, "con varios vínculos se usa el primero")
	assert.Equal(t, psunat.DocTypeInvoice, doc.BillingReference.TypeCode)
	assert.Equal(t, "07", doc.CreditReasonCode)
	assert.Equal(t, psunat.CreditReasons["07"], doc.CreditReason)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "Producto", doc.Lines[0].Description)
}

func TestAssembleCreditNote_Resumida(t *testing.T) {
	src := creditSource()
	src.CreditReasonCode = ""
	e := newEnv(src)
	e.props[entity.Key("CreditNote", "Mode")] = "summarized"
	e.props[entity.Key("CreditReason", "01")] = "Anulación total"
	e.sources.origins["nc1"] = []*entity.SourceDocument{{ID: "o1", Type: entity.SourceReceipt, Name: "B001-9"}}
	e.build()

	doc, err := assemble(t, e, entity.TypeCreditNote, src)
	require.NoError(t, err)
	assert.Equal(t, psunat.DocTypeReceipt, doc.BillingReference.TypeCode)
	assert.Equal(t, "01", doc.CreditReasonCode)
	require.Len(t, doc.Lines, 1)
	l := doc.Lines[0]
	assert.Equal(t, "Anulación total", l.Description)
	assert.Equal(t, psunat.UnitService, l.UnitCode)
	assert.True(t, l.NetPrice.Equal(d("100")))
	assert.True(t, l.CrossPrice.Equal(d("118")))
}

func TestAssembleCreditNote_PercepcionYCredito(t *testing.T) {
	src := creditSource()
	src.CreditReasonCode = "13"
	src.Taxes = append(src.Taxes, entity.TaxBreakdown{{Key: "PERC", Base: d("118"), Amount: d("2.36"), Factor: d("0.02")}}...)
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	src.Payment = entity.Payment{Credit: true, Installments: []entity.Installment{{DueDate: due, Amount: d("118")}}}
	e := newEnv(src)
	e.props[entity.Key("TaxMapping", "PERC", "Charge")] = "true"
	e.sources.origins["nc1"] = []*entity.SourceDocument{{ID: "o1", Type: entity.SourceInvoice, Name: "F001-9"}}
	e.build()

	doc, err := assemble(t, e, entity.TypeCreditNote, src)
	require.NoError(t, err)
	require.Len(t, doc.Taxes, 1)
	require.Len(t, doc.AllowanceCharges, 1)
	ac := doc.AllowanceCharges[0]
	assert.True(t, ac.Charge)
	assert.Equal(t, psunat.ChargeReasonPerception, ac.ReasonCode)
	assert.True(t, ac.Amount.Equal(d("2.36")))
	require.NotNil(t, doc.PaymentTerms)
	assert.Equal(t, psunat.PaymentCredit, doc.PaymentTerms.Method)
	require.Len(t, doc.PaymentTerms.Installments, 1)
	assert.Equal(t, "Cuota001", doc.PaymentTerms.Installments[0].ID)

	// al contado no se declara forma de pago
	src.Payment = entity.Payment{}
	doc, err = assemble(t, e, entity.TypeCreditNote, src)
	require.NoError(t, err)
	assert.Nil(t, doc.PaymentTerms)
}

func TestAssembleCreditNote_SinOrigen(t *testing.T) {
	src := creditSource()
	e := newEnv(src).build()

	_, err := assemble(t, e, entity.TypeCreditNote, src)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssembleDeliveryNote(t *testing.T) {
	src := deliverySource("g1", "T001-1")
	src.Positions = []entity.Position{
		{ProductID: "p1", ProductCode: "P1", Description: "Saco", Quantity: d("3")},
		{ProductCode: "S1", Description: "Servicio", Quantity: d("1")},
	}
	e := newEnv(src)
	e.locations["l1"] = &entity.Location{ID: "l1", AddressLine: "Av. Lima 123", Ubigeo: "150101"}
	e.locations["l2"] = &entity.Location{ID: "l2", AddressLine: "Jr. Cusco 45", Ubigeo: "080101"}
	e.contacts["own"] = &entity.Contact{ID: "own", Name: "DEMO S.A.C.", TaxNumber: "20100070970"}
	e.contacts["carrier"] = &entity.Contact{ID: "carrier", Name: "Transportes SAC", TaxNumber: "20131312955"}
	e.build()

	doc, err := assemble(t, e, entity.TypeDeliveryNote, src)
	require.NoError(t, err)
	s := doc.Shipment
	require.NotNil(t, s)
	assert.Equal(t, psunat.TransportModePrivate, s.Mode)
	assert.Nil(t, s.Carrier)
	assert.Equal(t, psunat.UnitKilogram, s.WeightUnit)
	assert.True(t, s.Weight.Equal(d("7.5")), "3 × 2.5 kg; la posición sin producto no suma")
	assert.Equal(t, "150101", s.Despatch.Ubigeo)
	assert.Equal(t, "080101", s.Arrival.Ubigeo)
	require.NotNil(t, s.Driver)
	assert.Equal(t, psunat.IDTypeDNI, s.Driver.IDType)
	assert.Len(t, doc.Lines, 2)

	src.Shipment.CarrierContactID = "own"
	doc, err = assemble(t, e, entity.TypeDeliveryNote, src)
	require.NoError(t, err)
	assert.Equal(t, psunat.TransportModePrivate, doc.Shipment.Mode)

	src.Shipment.CarrierContactID = "carrier"
	w := d("12.34567")
	src.Shipment.Weight = &w
	doc, err = assemble(t, e, entity.TypeDeliveryNote, src)
	require.NoError(t, err)
	assert.Equal(t, psunat.TransportModePublic, doc.Shipment.Mode)
	require.NotNil(t, doc.Shipment.Carrier)
	assert.Equal(t, "20131312955", doc.Shipment.Carrier.ID)
	assert.True(t, doc.Shipment.Weight.Equal(d("12.346")))
}

func TestAssembleDeliveryNote_SinTraslado(t *testing.T) {
	src := invoiceSource("g1", "T001-1")
	src.Type = entity.SourceDeliveryNote
	e := newEnv(src).build()

	_, err := assemble(t, e, entity.TypeDeliveryNote, src)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_TipoDesconocido(t *testing.T) {
	e := newEnv().build()
	_, ok := e.registry.Resolve(entity.DocumentType("DebitNote"), e.props)
	assert.False(t, ok)
}
