package repository

import (
	"context"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SourceDocumentRepository lectura de documentos comerciales (el ERP es dueño de los datos).
type SourceDocumentRepository interface {
	GetByID(ctx context.Context, id string) (*entity.SourceDocument, error)
	// ListWithoutElectronic anti-join: documentos de los tipos dados sin comprobante electrónico.
	ListWithoutElectronic(ctx context.Context, tenantID string, types []entity.SourceType) ([]*entity.SourceDocument, error)
	// ListOrigins documentos referenciados por una nota de crédito, ordenados por fecha y nombre.
	ListOrigins(ctx context.Context, sourceDocumentID string) ([]*entity.SourceDocument, error)
}

// ContactRepository contactos (clientes, transportistas).
type ContactRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Contact, error)
}

// LocationRepository puntos de partida/llegada.
type LocationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Location, error)
}

// TenantRepository empresas emisoras.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
	ListActive(ctx context.Context) ([]*entity.Tenant, error)
}

// PropertiesRepository configuración por tenant.
type PropertiesRepository interface {
	Load(ctx context.Context, tenantID string) (entity.Properties, error)
}

// UnitConverter servicio externo de conversión de unidades (peso de transporte).
// ok=false si el producto no tiene conversión hacia la unidad pedida.
type UnitConverter interface {
	Convert(ctx context.Context, productID string, quantity decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, bool, error)
}
