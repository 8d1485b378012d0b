package ebilling

import (
	"context"
	"fmt"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/tax"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/shopspring/decimal"
)

// ── Guía de remisión ──

func (a *Assembler) assembleDeliveryNote(ctx context.Context, in AssemblyInput) (*ubl.Document, error) {
	src, err := requireSource(in)
	if err != nil {
		return nil, err
	}
	s := src.Shipment
	if s == nil {
		return nil, fmt.Errorf("%w: guía %s sin datos de traslado", domain.ErrInvalidInput, src.Name)
	}
	contact, err := a.contact(ctx, src.ContactID)
	if err != nil {
		return nil, err
	}
	customer, err := resolveCustomer(contact, false, anonymousSettings(in.Props), src.CrossTotal)
	if err != nil {
		return nil, err
	}

	ship := &ubl.Shipment{
		ReasonCode: s.TransferReason,
		Mode:       psunat.TransportModePrivate,
		StartDate:  s.StartDate,
	}
	if ship.ReasonCode == "" {
		ship.ReasonCode = psunat.TransferReasonSale
	}
	if ship.StartDate.IsZero() {
		ship.StartDate = src.Date
	}

	// transporte público si el transportista no es el propio emisor
	if s.CarrierContactID != "" && s.CarrierContactID != in.Tenant.OwnContactID {
		carrier, err := a.contact(ctx, s.CarrierContactID)
		if err != nil {
			return nil, err
		}
		if carrier != nil {
			ship.Mode = psunat.TransportModePublic
			ship.Carrier = &ubl.Party{IDType: psunat.IDTypeRUC, ID: psunat.Digits(carrier.TaxNumber), Name: carrier.Name}
		}
	}
	if d := s.Driver; d != nil {
		idType := d.IDType
		if idType == "" {
			idType = psunat.IDTypeDNI
		}
		ship.Driver = &ubl.Driver{IDType: idType, ID: d.IDNumber, FirstName: d.FirstName, FamilyName: d.FamilyName, License: d.License}
	}
	if v := s.Vehicle; v != nil {
		ship.Vehicle = &ubl.Vehicle{Plate: v.Plate, Certificate: v.Certificate, Minor: v.Minor}
	}

	if ship.Despatch, err = a.address(ctx, s.DepartureLocationID); err != nil {
		return nil, err
	}
	if ship.Arrival, err = a.address(ctx, s.ArrivalLocationID); err != nil {
		return nil, err
	}

	ship.WeightUnit = in.Props.String(entity.Key("Delivery", "WeightUnit"), psunat.UnitKilogram)
	if s.Weight != nil {
		ship.Weight = tax.RoundWeight(*s.Weight)
	} else {
		w, err := a.weight(ctx, src.Positions, ship.WeightUnit)
		if err != nil {
			return nil, err
		}
		ship.Weight = w
	}

	doc := &ubl.Document{
		Number:    src.Name,
		TypeCode:  in.Doc.Type.Code(),
		IssueDate: src.Date,
		Note:      src.Note,
		Supplier:  supplierParty(in.Tenant),
		Customer:  customer,
		Shipment:  ship,
	}
	for _, p := range src.Positions {
		unit := p.UnitCode
		if unit == "" {
			unit = psunat.UnitUnit
		}
		doc.Lines = append(doc.Lines, ubl.Line{
			Index:       len(doc.Lines) + 1,
			ProductCode: p.ProductCode,
			Description: p.Description,
			UnitCode:    unit,
			Quantity:    p.Quantity,
		})
	}
	return doc, nil
}

func (a *Assembler) address(ctx context.Context, locationID string) (ubl.Address, error) {
	if locationID == "" {
		return ubl.Address{}, fmt.Errorf("%w: guía sin punto de partida o llegada", domain.ErrInvalidInput)
	}
	loc, err := a.locations.GetByID(ctx, locationID)
	if err != nil {
		return ubl.Address{}, fmt.Errorf("ubicación %s: %w", locationID, err)
	}
	return ubl.Address{Line: loc.AddressLine, Ubigeo: loc.Ubigeo}, nil
}

// weight suma de las cantidades convertidas a la unidad de transporte. Las posiciones sin
// conversión no suman.
func (a *Assembler) weight(ctx context.Context, positions []entity.Position, unit string) (decimal.Decimal, error) {
	total := decimal.Zero
	if a.units == nil {
		return total, nil
	}
	for _, p := range positions {
		w, ok, err := a.units.Convert(ctx, p.ProductID, p.Quantity, p.UnitCode, unit)
		if err != nil {
			return decimal.Zero, fmt.Errorf("convertir %s a %s: %w", p.ProductCode, unit, err)
		}
		if ok {
			total = total.Add(w)
		}
	}
	return tax.RoundWeight(total), nil
}

// ── Resumen diario ──

// assembleSummary lee los UBL firmados de los miembros. Todos deben compartir fecha de emisión.
func (a *Assembler) assembleSummary(ctx context.Context, in AssemblyInput) (*ubl.Document, error) {
	if len(in.Members) == 0 {
		return nil, fmt.Errorf("%w: resumen %s sin comprobantes", domain.ErrInvalidInput, in.Doc.SourceName)
	}
	doc := &ubl.Document{
		Number:    in.Doc.SourceName,
		TypeCode:  in.Doc.Type.Code(),
		IssueDate: in.Doc.CreatedAt,
		Supplier:  supplierParty(in.Tenant),
	}
	var ref time.Time
	for i, m := range in.Members {
		signed, err := a.signedPayload(ctx, m)
		if err != nil {
			return nil, err
		}
		line, issued, err := sunat.ReadSummaryLine(signed)
		if err != nil {
			return nil, fmt.Errorf("resumen: %s: %w", m.SourceName, err)
		}
		if ref.IsZero() {
			ref = issued
		} else if !issueDay(issued).Equal(issueDay(ref)) {
			return nil, fmt.Errorf("%w: %s tiene otra fecha de emisión", domain.ErrInvalidInput, m.SourceName)
		}
		line.Index = i + 1
		doc.SummaryLines = append(doc.SummaryLines, line)
	}
	doc.ReferenceDate = ref
	return doc, nil
}

// signedPayload contenido del UBL firmado de un comprobante.
func (a *Assembler) signedPayload(ctx context.Context, d *entity.ElectronicDocument) ([]byte, error) {
	f, err := a.files.GetUBL(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("UBL de %s: %w", d.SourceName, err)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s sin UBL", domain.ErrNotFound, d.SourceName)
	}
	data, err := a.blobs.Get(ctx, f.BlobHandle)
	if err != nil {
		return nil, fmt.Errorf("blob de %s: %w", d.SourceName, err)
	}
	return data, nil
}
