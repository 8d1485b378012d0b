// Package gcs guarda XML firmados, CDR y keystores en un bucket de Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
)

var _ repository.BlobStore = (*BlobStore)(nil)

const scheme = "gs://"

// BlobStore handle "gs://<bucket>/<yyyy/mm>/<uuid>-<name>".
type BlobStore struct {
	client *storage.Client
	bucket string
}

// NewClient usa credentialsJSON si viene; si no, Application Default Credentials.
func NewClient(ctx context.Context, credentialsJSON string) (*storage.Client, error) {
	if strings.TrimSpace(credentialsJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	return storage.NewClient(ctx)
}

// NewBlobStore verifica que el bucket exista y sea accesible.
func NewBlobStore(ctx context.Context, client *storage.Client, bucket string) (*BlobStore, error) {
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		return nil, fmt.Errorf("gcs bucket %q no accesible: %w", bucket, err)
	}
	return &BlobStore{client: client, bucket: bucket}, nil
}

func (s *BlobStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	object := path.Join(time.Now().UTC().Format("2006/01"), uuid.New().String()+"-"+path.Base(name))
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType(name)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs escribir %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs cerrar %s: %w", object, err)
	}
	return scheme + s.bucket + "/" + object, nil
}

func (s *BlobStore) Get(ctx context.Context, handle string) ([]byte, error) {
	bucket, object, err := parseHandle(handle)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, handle)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs leer %s: %w", handle, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Delete idempotente: un objeto inexistente no es error.
func (s *BlobStore) Delete(ctx context.Context, handle string) error {
	bucket, object, err := parseHandle(handle)
	if err != nil {
		return nil
	}
	err = s.client.Bucket(bucket).Object(object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs eliminar %s: %w", handle, err)
	}
	return nil
}

func parseHandle(handle string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(handle, scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: handle %q", domain.ErrNotFound, handle)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%w: handle %q", domain.ErrNotFound, handle)
	}
	return bucket, object, nil
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".xml":
		return "application/xml"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
