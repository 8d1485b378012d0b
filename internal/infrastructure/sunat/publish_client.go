package sunat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/tax"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	"github.com/shopspring/decimal"
)

// PublishRequest comprobante para el servicio de gestión documental.
type PublishRequest struct {
	URL      string
	ClientID string
	Name     string
	Date     time.Time
	Total    decimal.Decimal
	FileName string
	Content  []byte
}

// PublishClient publica el UBL firmado en el servicio de gestión documental (multipart).
type PublishClient struct {
	httpClient *http.Client
	log        *logger.Logger
}

// NewPublishClient construye el cliente.
func NewPublishClient(timeout time.Duration, log *logger.Logger) *PublishClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PublishClient{
		httpClient: &http.Client{Timeout: timeout},
		log:        log.WithComponent("sunat.publish"),
	}
}

// Publish envía los campos y el archivo; cualquier respuesta no 2xx es error.
func (c *PublishClient) Publish(ctx context.Context, r PublishRequest) error {
	if r.URL == "" {
		return fmt.Errorf("publish: URL no configurada")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"clientId", r.ClientID},
		{"name", r.Name},
		{"date", r.Date.Format(dateLayout)},
		{"total", tax.Format2(r.Total)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("publish: campo %s: %w", f[0], err)
		}
	}
	fw, err := mw.CreateFormFile("file", r.FileName)
	if err != nil {
		return fmt.Errorf("publish: crear parte de archivo: %w", err)
	}
	if _, err := fw.Write(r.Content); err != nil {
		return fmt.Errorf("publish: escribir archivo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("publish: cerrar multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, &buf)
	if err != nil {
		return fmt.Errorf("publish: crear request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("publish: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	c.log.Debug().Str("name", r.Name).Msg("comprobante publicado")
	return nil
}
