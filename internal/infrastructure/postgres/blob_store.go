package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
)

var _ repository.BlobStore = (*BlobStore)(nil)

const (
	blobScheme = "pg://"

	compressionNone = "none"
	compressionZstd = "zstd"

	// compressThreshold contenido más chico se guarda tal cual.
	compressThreshold = 4 * 1024
)

// BlobStore contenido binario en la tabla blobs; los XML grandes se guardan comprimidos con zstd.
type BlobStore struct {
	db      Querier
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewBlobStore(db Querier) (*BlobStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &BlobStore{db: db, encoder: encoder, decoder: decoder}, nil
}

func (s *BlobStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	id := uuid.New().String()
	algo, payload := compressionNone, data
	if len(data) > compressThreshold {
		algo, payload = compressionZstd, s.encoder.EncodeAll(data, nil)
	}
	b := psql.Insert("blobs").
		Columns("id", "name", "compression", "size", "data", "created_at").
		Values(id, name, algo, len(data), payload, time.Now().UTC())
	if _, err := exec(ctx, s.db, b, "guardar blob"); err != nil {
		return "", err
	}
	return blobScheme + id, nil
}

func (s *BlobStore) Get(ctx context.Context, handle string) ([]byte, error) {
	id, ok := blobID(handle)
	if !ok {
		return nil, fmt.Errorf("%w: handle %q", domain.ErrNotFound, handle)
	}
	var row struct {
		Compression string `db:"compression"`
		Data        []byte `db:"data"`
	}
	if err := get(ctx, s.db, &row, psql.Select("compression", "data").From("blobs").Where(sq.Eq{"id": id}), "blob"); err != nil {
		return nil, err
	}
	if row.Compression != compressionZstd {
		return row.Data, nil
	}
	out, err := s.decoder.DecodeAll(row.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("descomprimir blob %s: %w", id, err)
	}
	return out, nil
}

func (s *BlobStore) Delete(ctx context.Context, handle string) error {
	id, ok := blobID(handle)
	if !ok {
		return nil
	}
	_, err := exec(ctx, s.db, psql.Delete("blobs").Where(sq.Eq{"id": id}), "eliminar blob")
	return err
}

func blobID(handle string) (string, bool) {
	if !strings.HasPrefix(handle, blobScheme) {
		return "", false
	}
	id := strings.TrimPrefix(handle, blobScheme)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
