package sunat_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
)

func TestPublishClient_Multipart(t *testing.T) {
	var fields map[string]string
	var file []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "20100070970-01-F001-1.xml", hdr.Filename)
		file, _ = io.ReadAll(f)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := sunat.NewPublishClient(5*time.Second, logger.Nop())
	err := c.Publish(context.Background(), sunat.PublishRequest{
		URL:      srv.URL,
		ClientID: "erp-01",
		Name:     "F001-1",
		Date:     time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Total:    decimal.RequireFromString("118"),
		FileName: "20100070970-01-F001-1.xml",
		Content:  []byte("<Invoice/>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "erp-01", fields["clientId"])
	assert.Equal(t, "F001-1", fields["name"])
	assert.Equal(t, "2024-01-05", fields["date"])
	assert.Equal(t, "118.00", fields["total"])
	assert.Equal(t, "<Invoice/>", string(file))
}

func TestPublishClient_Errores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "sin espacio", http.StatusInsufficientStorage)
	}))
	defer srv.Close()
	c := sunat.NewPublishClient(0, logger.Nop())

	err := c.Publish(context.Background(), sunat.PublishRequest{URL: srv.URL, FileName: "a.xml"})
	var herr *sunat.HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusInsufficientStorage, herr.StatusCode)

	assert.Error(t, c.Publish(context.Background(), sunat.PublishRequest{}))
}
