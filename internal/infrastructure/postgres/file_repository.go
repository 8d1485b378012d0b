package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
)

var (
	_ repository.FileRepository = (*FileRepository)(nil)
	_ repository.LogRepository  = (*LogRepository)(nil)
)

type ublRow struct {
	ID         string    `db:"id"`
	DocumentID string    `db:"document_id"`
	BlobHandle string    `db:"blob_handle"`
	Hash       string    `db:"hash"`
	FileName   string    `db:"file_name"`
	CreatedAt  time.Time `db:"created_at"`
}

type responseRow struct {
	ID         string    `db:"id"`
	DocumentID string    `db:"document_id"`
	BlobHandle string    `db:"blob_handle"`
	FileName   string    `db:"file_name"`
	CreatedAt  time.Time `db:"created_at"`
}

// FileRepository metadatos de ubl_files y response_files. El contenido vive en el BlobStore.
type FileRepository struct {
	db Querier
}

func NewFileRepository(db Querier) *FileRepository {
	return &FileRepository{db: db}
}

// CreateUBL el índice único por document_id garantiza un solo UBL por comprobante.
func (r *FileRepository) CreateUBL(ctx context.Context, f *entity.UBLFile) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	b := psql.Insert("ubl_files").
		Columns("id", "document_id", "blob_handle", "hash", "file_name", "created_at").
		Values(f.ID, f.DocumentID, f.BlobHandle, f.Hash, f.FileName, f.CreatedAt)
	_, err := exec(ctx, r.db, b, "insertar UBL")
	return err
}

func (r *FileRepository) GetUBL(ctx context.Context, documentID string) (*entity.UBLFile, error) {
	var row ublRow
	b := psql.Select("id", "document_id", "blob_handle", "hash", "file_name", "created_at").
		From("ubl_files").Where(sq.Eq{"document_id": documentID})
	err := get(ctx, r.db, &row, b, "UBL")
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f := entity.UBLFile(row)
	return &f, nil
}

func (r *FileRepository) CreateResponse(ctx context.Context, f *entity.ResponseFile) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	b := psql.Insert("response_files").
		Columns("id", "document_id", "blob_handle", "file_name", "created_at").
		Values(f.ID, f.DocumentID, f.BlobHandle, f.FileName, f.CreatedAt)
	_, err := exec(ctx, r.db, b, "insertar respuesta")
	return err
}

func (r *FileRepository) ListResponses(ctx context.Context, documentID string) ([]*entity.ResponseFile, error) {
	var rows []responseRow
	b := psql.Select("id", "document_id", "blob_handle", "file_name", "created_at").
		From("response_files").Where(sq.Eq{"document_id": documentID}).
		OrderBy("created_at")
	if err := selectAll(ctx, r.db, &rows, b, "respuestas"); err != nil {
		return nil, err
	}
	out := make([]*entity.ResponseFile, 0, len(rows))
	for _, row := range rows {
		f := entity.ResponseFile(row)
		out = append(out, &f)
	}
	return out, nil
}

// ── Bitácora ──

type logRow struct {
	ID          string    `db:"id"`
	DocumentID  string    `db:"document_id"`
	Code        string    `db:"code"`
	Description string    `db:"description"`
	Details     []string  `db:"details"`
	CreatedAt   time.Time `db:"created_at"`
}

// LogRepository tabla document_logs, solo INSERT.
type LogRepository struct {
	db Querier
}

func NewLogRepository(db Querier) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Append(ctx context.Context, e *entity.LogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	details := e.Details
	if details == nil {
		details = []string{}
	}
	b := psql.Insert("document_logs").
		Columns("id", "document_id", "code", "description", "details", "created_at").
		Values(e.ID, e.DocumentID, e.Code, e.Description, details, e.CreatedAt)
	_, err := exec(ctx, r.db, b, "insertar log")
	return err
}

func (r *LogRepository) ListByDocument(ctx context.Context, documentID string) ([]*entity.LogEntry, error) {
	var rows []logRow
	b := psql.Select("id", "document_id", "code", "description", "details", "created_at").
		From("document_logs").Where(sq.Eq{"document_id": documentID}).
		OrderBy("created_at", "id")
	if err := selectAll(ctx, r.db, &rows, b, "logs"); err != nil {
		return nil, err
	}
	out := make([]*entity.LogEntry, 0, len(rows))
	for _, row := range rows {
		e := entity.LogEntry(row)
		out = append(out, &e)
	}
	return out, nil
}
