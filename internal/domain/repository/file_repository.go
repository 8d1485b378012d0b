package repository

import (
	"context"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
)

// FileRepository metadatos de UBL y respuestas. UBLFile es inmutable: no hay Update.
type FileRepository interface {
	CreateUBL(ctx context.Context, f *entity.UBLFile) error
	// GetUBL nil, nil si el comprobante aún no tiene UBL.
	GetUBL(ctx context.Context, documentID string) (*entity.UBLFile, error)
	CreateResponse(ctx context.Context, f *entity.ResponseFile) error
	ListResponses(ctx context.Context, documentID string) ([]*entity.ResponseFile, error)
}

// LogRepository bitácora de diagnóstico, solo inserción.
type LogRepository interface {
	Append(ctx context.Context, e *entity.LogEntry) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.LogEntry, error)
}

// BlobStore almacenamiento de contenido binario (XML firmados, CDR, keystores).
type BlobStore interface {
	// Put guarda data y devuelve un handle opaco.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Get domain.ErrNotFound si el handle no existe.
	Get(ctx context.Context, handle string) ([]byte, error)
	Delete(ctx context.Context, handle string) error
}
