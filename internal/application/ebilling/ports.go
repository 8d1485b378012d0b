package ebilling

import (
	"context"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat"
)

// XMLBuilder serializa el modelo canónico a UBL sin firmar.
type XMLBuilder interface {
	Build(t entity.DocumentType, doc *ubl.Document) ([]byte, error)
}

// SOAPGateway billService y billConsultService de SUNAT.
type SOAPGateway interface {
	SendBill(ctx context.Context, endpoint string, creds sunat.Credentials, fileName string, zip []byte) ([]byte, error)
	SendSummary(ctx context.Context, endpoint string, creds sunat.Credentials, fileName string, zip []byte) (string, error)
	GetStatus(ctx context.Context, endpoint string, creds sunat.Credentials, ticket string) (*sunat.StatusResponse, error)
	GetStatusCdr(ctx context.Context, endpoint string, creds sunat.Credentials, typeCode, series, number string) (*sunat.StatusResponse, error)
}

// RESTGateway API REST de comprobantes (guías).
type RESTGateway interface {
	Submit(ctx context.Context, target sunat.RESTTarget, archiveID, fileName string, zip []byte) (string, error)
	Status(ctx context.Context, target sunat.RESTTarget, ticket string) (*sunat.RESTStatus, error)
}

// Publisher servicio externo de gestión documental.
type Publisher interface {
	Publish(ctx context.Context, r sunat.PublishRequest) error
}

// Locker lock distribuido por clave. Devuelve domain.ErrLocked si otra instancia lo tiene.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(context.Context) error, err error)
}
