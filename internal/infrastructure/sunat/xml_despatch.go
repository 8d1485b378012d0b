package sunat

import (
	"fmt"
	"strconv"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
)

// buildDespatchAdvice guía de remisión remitente (DespatchAdvice-2): sin importes.
func (b *XMLBuilder) buildDespatchAdvice(doc *ubl.Document) ([]byte, error) {
	s := doc.Shipment
	if s == nil {
		return nil, fmt.Errorf("sunat: guía %s sin datos de traslado", doc.Number)
	}
	w := newXMLWriter()
	w.root("DespatchAdvice", NsDespatchAdvice, ublPrefixes)
	w.ublExtensions()
	w.text("cbc:UBLVersionID", ublVersion)
	w.text("cbc:CustomizationID", customizationID)
	w.text("cbc:ID", doc.Number)
	w.text("cbc:IssueDate", doc.IssueDate.Format(dateLayout))
	w.text("cbc:IssueTime", doc.IssueDate.Format(timeLayout))
	w.text("cbc:DespatchAdviceTypeCode", doc.TypeCode)
	w.text("cbc:Note", doc.Note)

	w.signatureRef(doc.Supplier.ID, doc.Supplier.Name)
	w.party("cac:DespatchSupplierParty", doc.Supplier)
	w.party("cac:DeliveryCustomerParty", doc.Customer)

	w.start("cac:Shipment")
	w.text("cbc:ID", "SUNAT_Envio")
	w.text("cbc:HandlingCode", s.ReasonCode)
	w.text("cbc:GrossWeightMeasure", s.Weight.String(), attr("unitCode", s.WeightUnit))

	w.start("cac:ShipmentStage")
	w.text("cbc:TransportModeCode", s.Mode)
	w.start("cac:TransitPeriod")
	w.text("cbc:StartDate", s.StartDate.Format(dateLayout))
	w.end()
	if s.Mode == psunat.TransportModePublic && s.Carrier != nil {
		w.start("cac:CarrierParty")
		w.start("cac:PartyIdentification")
		w.text("cbc:ID", s.Carrier.ID, attr("schemeID", s.Carrier.IDType))
		w.end()
		w.start("cac:PartyLegalEntity")
		w.text("cbc:RegistrationName", s.Carrier.Name)
		w.end()
		w.end()
	}
	if d := s.Driver; d != nil {
		w.start("cac:DriverPerson")
		w.text("cbc:ID", d.ID, attr("schemeID", d.IDType))
		w.text("cbc:FirstName", d.FirstName)
		w.text("cbc:FamilyName", d.FamilyName)
		w.text("cbc:JobTitle", "Principal")
		if d.License != "" {
			w.start("cac:IdentityDocumentReference")
			w.text("cbc:ID", d.License)
			w.end()
		}
		w.end()
	}
	w.end()

	w.start("cac:Delivery")
	w.start("cac:DeliveryAddress")
	w.text("cbc:ID", s.Arrival.Ubigeo)
	w.start("cac:AddressLine")
	w.text("cbc:Line", s.Arrival.Line)
	w.end()
	w.end()
	w.start("cac:Despatch")
	w.start("cac:DespatchAddress")
	w.text("cbc:ID", s.Despatch.Ubigeo)
	w.start("cac:AddressLine")
	w.text("cbc:Line", s.Despatch.Line)
	w.end()
	w.end()
	w.end()
	w.end()

	if v := s.Vehicle; v != nil {
		w.start("cac:TransportHandlingUnit")
		w.start("cac:TransportEquipment")
		w.text("cbc:ID", v.Plate)
		if v.Certificate != "" {
			w.start("cac:ApplicableTransportMeans")
			w.text("cbc:RegistrationNationalityID", v.Certificate)
			w.end()
		}
		w.end()
		w.end()
	}
	if s.Vehicle != nil && s.Vehicle.Minor {
		w.text("cbc:SpecialInstructions", "SUNAT_Envio_IndicadorTrasladoVehiculoM1L")
	}
	w.end()

	for _, l := range doc.Lines {
		w.start("cac:DespatchLine")
		w.text("cbc:ID", strconv.Itoa(l.Index))
		w.text("cbc:DeliveredQuantity", l.Quantity.String(), attr("unitCode", l.UnitCode))
		w.start("cac:OrderLineReference")
		w.text("cbc:LineID", strconv.Itoa(l.Index))
		w.end()
		w.start("cac:Item")
		w.text("cbc:Description", l.Description)
		if l.ProductCode != "" {
			w.start("cac:SellersItemIdentification")
			w.text("cbc:ID", l.ProductCode)
			w.end()
		}
		w.end()
		w.end()
	}
	w.end()
	return w.bytes()
}

// buildSummary resumen diario de boletas (SummaryDocuments-1).
func (b *XMLBuilder) buildSummary(doc *ubl.Document) ([]byte, error) {
	if len(doc.SummaryLines) == 0 {
		return nil, fmt.Errorf("sunat: resumen %s sin comprobantes", doc.Number)
	}
	prefixes := map[string]string{"cac": NsCac, "cbc": NsCbc, "ds": NsDs, "ext": NsExt, "sac": NsSac}
	w := newXMLWriter()
	w.root("SummaryDocuments", NsSummary, prefixes)
	w.ublExtensions()
	w.text("cbc:UBLVersionID", summaryUBLVersion)
	w.text("cbc:CustomizationID", summaryCustomizID)
	w.text("cbc:ID", doc.Number)
	w.text("cbc:ReferenceDate", doc.ReferenceDate.Format(dateLayout))
	w.text("cbc:IssueDate", doc.IssueDate.Format(dateLayout))
	w.signatureRef(doc.Supplier.ID, doc.Supplier.Name)

	w.start("cac:AccountingSupplierParty")
	w.text("cbc:CustomerAssignedAccountID", doc.Supplier.ID)
	w.text("cbc:AdditionalAccountID", doc.Supplier.IDType)
	w.start("cac:Party")
	w.start("cac:PartyLegalEntity")
	w.text("cbc:RegistrationName", doc.Supplier.Name)
	w.end()
	w.end()
	w.end()

	for _, l := range doc.SummaryLines {
		w.start("sac:SummaryDocumentsLine")
		w.text("cbc:LineID", strconv.Itoa(l.Index))
		w.text("cbc:DocumentTypeCode", l.TypeCode)
		w.text("cbc:ID", l.Number)
		w.start("cac:AccountingCustomerParty")
		w.text("cbc:CustomerAssignedAccountID", l.CustomerID)
		w.text("cbc:AdditionalAccountID", l.CustomerIDType)
		w.end()
		w.start("cac:Status")
		w.text("cbc:ConditionCode", l.StatusCode)
		w.end()
		w.amount("sac:TotalAmount", l.Total, l.Currency)
		w.start("sac:BillingPayment")
		w.amount("cbc:PaidAmount", l.TaxableAmount, l.Currency)
		w.text("cbc:InstructionID", "01")
		w.end()
		w.taxTotal(l.Taxes, l.Currency, false)
		w.end()
	}
	w.end()
	return w.bytes()
}
