package entity

// Contact cliente, transportista o tercero referenciado por los documentos.
type Contact struct {
	ID               string
	TenantID         string
	Name             string
	TaxNumber        string // RUC
	IDNumber         string // DNI, CE, pasaporte
	IDType           string // catálogo 06
	Organization     bool
	WithholdingAgent bool // agente de retención
	Address          string
	Ubigeo           string
}

// Location punto de partida o llegada de una guía.
type Location struct {
	ID          string
	TenantID    string
	AddressLine string
	Ubigeo      string
}

// Tenant empresa emisora.
type Tenant struct {
	ID           string
	Name         string
	TaxID        string // RUC del emisor
	LegalName    string
	TradeName    string
	Address      string
	Ubigeo       string
	OwnContactID string // contacto que representa al propio emisor (transporte propio)
	Active       bool
}
