package ebilling

import (
	"fmt"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/shopspring/decimal"
)

const anonymousName = "CLIENTES VARIOS"

// supplierParty emisor fijo del tenant.
func supplierParty(t *entity.Tenant) ubl.Party {
	return ubl.Party{
		IDType:    psunat.IDTypeRUC,
		ID:        psunat.Digits(t.TaxID),
		Name:      t.LegalName,
		TradeName: t.TradeName,
		Address: &ubl.Address{
			Line:            t.Address,
			Ubigeo:          t.Ubigeo,
			CountryCode:     "PE",
			AddressTypeCode: "0000",
		},
	}
}

// resolveCustomer organización → RUC (tipo 6); persona → documento + tipo (por defecto DNI);
// cliente anónimo si el tipo lo permite y el total está bajo el umbral o el contacto no tiene
// identificación.
func resolveCustomer(c *entity.Contact, allowAnonymous bool, anon AnonymousSettings, crossTotal decimal.Decimal) (ubl.Party, error) {
	anonymous := func() ubl.Party {
		name := anonymousName
		if c != nil && c.Name != "" {
			name = c.Name
		}
		return ubl.Party{IDType: anon.IDType, ID: anon.ID, Name: name}
	}

	if c == nil {
		if allowAnonymous {
			return anonymous(), nil
		}
		return ubl.Party{}, fmt.Errorf("%w: documento sin cliente", domain.ErrInvalidInput)
	}
	if allowAnonymous && crossTotal.LessThan(anon.Threshold) {
		return anonymous(), nil
	}

	p := ubl.Party{Name: c.Name}
	if c.Address != "" {
		p.Address = &ubl.Address{Line: c.Address, Ubigeo: c.Ubigeo, CountryCode: "PE"}
	}
	switch {
	case c.Organization || (c.IDNumber == "" && c.TaxNumber != ""):
		if err := psunat.ValidateRUC(c.TaxNumber); err != nil {
			if allowAnonymous {
				return anonymous(), nil
			}
			return ubl.Party{}, fmt.Errorf("%w: RUC del cliente %s: %v", domain.ErrInvalidInput, c.Name, err)
		}
		p.IDType = psunat.IDTypeRUC
		p.ID = psunat.Digits(c.TaxNumber)
	case c.IDNumber != "":
		p.IDType = c.IDType
		if p.IDType == "" {
			p.IDType = psunat.IDTypeDNI
		}
		p.ID = c.IDNumber
	default:
		if allowAnonymous {
			return anonymous(), nil
		}
		return ubl.Party{}, fmt.Errorf("%w: cliente %s sin documento de identidad", domain.ErrInvalidInput, c.Name)
	}
	return p, nil
}
