package sunat_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = sunat.Credentials{RUC: "20100070970", User: "MODDATOS", Password: "moddatos"}

func soapResponse(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><soap-env:Envelope xmlns:soap-env="http://schemas.xmlsoap.org/soap/envelope/"><soap-env:Header/><soap-env:Body>` +
		inner + `</soap-env:Body></soap-env:Envelope>`
}

func newSOAPServer(t *testing.T, handler func(action, body string) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		status, resp := handler(r.Header.Get("SOAPAction"), string(raw))
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSOAPClient_SendBill(t *testing.T) {
	cdrZip, err := sunat.CompressXMLToZip([]byte(cdrAccepted), "R-20100070970-01-F001-123.xml")
	require.NoError(t, err)

	var gotBody string
	srv := newSOAPServer(t, func(action, body string) (int, string) {
		gotBody = body
		assert.Equal(t, "urn:sendBill", action)
		return http.StatusOK, soapResponse(`<br:sendBillResponse xmlns:br="http://service.sunat.gob.pe"><applicationResponse>` +
			base64.StdEncoding.EncodeToString(cdrZip) + `</applicationResponse></br:sendBillResponse>`)
	})

	c := sunat.NewSOAPClient(5*time.Second, logger.Nop())
	out, err := c.SendBill(context.Background(), srv.URL, testCreds, "20100070970-01-F001-123.zip", []byte("zip"))
	require.NoError(t, err)

	ack, err := sunat.ParseCDRZip(out)
	require.NoError(t, err)
	assert.True(t, ack.Accepted())

	assert.Contains(t, gotBody, "<wsse:Username>20100070970MODDATOS</wsse:Username>")
	assert.Contains(t, gotBody, "#PasswordText")
	assert.Contains(t, gotBody, "<fileName>20100070970-01-F001-123.zip</fileName>")
	assert.Contains(t, gotBody, "<contentFile>"+base64.StdEncoding.EncodeToString([]byte("zip"))+"</contentFile>")
}

func TestSOAPClient_Fault(t *testing.T) {
	srv := newSOAPServer(t, func(string, string) (int, string) {
		return http.StatusInternalServerError, soapResponse(`<soap-env:Fault><faultcode>soap-env:Client.0111</faultcode><faultstring>No tiene el perfil para enviar comprobantes electronicos</faultstring></soap-env:Fault>`)
	})

	c := sunat.NewSOAPClient(5*time.Second, logger.Nop())
	_, err := c.SendBill(context.Background(), srv.URL, testCreds, "a.zip", []byte("zip"))
	require.Error(t, err)

	var fault *sunat.FaultError
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "soap-env:Client.0111", fault.Code)
	assert.Equal(t, "111", fault.ResponseCode())
	assert.True(t, strings.HasPrefix(fault.String, "No tiene el perfil"))
}

func TestSOAPClient_ErrorHTTPSinFault(t *testing.T) {
	srv := newSOAPServer(t, func(string, string) (int, string) {
		return http.StatusServiceUnavailable, "mantenimiento"
	})

	c := sunat.NewSOAPClient(5*time.Second, logger.Nop())
	_, err := c.SendSummary(context.Background(), srv.URL, testCreds, "a.zip", []byte("zip"))
	var httpErr *sunat.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
}

func TestSOAPClient_SendSummaryYGetStatus(t *testing.T) {
	cdrZip, err := sunat.CompressXMLToZip([]byte(cdrAccepted), "R.xml")
	require.NoError(t, err)

	srv := newSOAPServer(t, func(action, body string) (int, string) {
		switch action {
		case "urn:sendSummary":
			return http.StatusOK, soapResponse(`<br:sendSummaryResponse xmlns:br="http://service.sunat.gob.pe"><ticket>1704470400123</ticket></br:sendSummaryResponse>`)
		case "urn:getStatus":
			assert.Contains(t, body, "<ticket>1704470400123</ticket>")
			return http.StatusOK, soapResponse(`<br:getStatusResponse xmlns:br="http://service.sunat.gob.pe"><status><statusCode>0</statusCode><content>` +
				base64.StdEncoding.EncodeToString(cdrZip) + `</content></status></br:getStatusResponse>`)
		}
		return http.StatusBadRequest, ""
	})

	c := sunat.NewSOAPClient(5*time.Second, logger.Nop())
	ticket, err := c.SendSummary(context.Background(), srv.URL, testCreds, "20100070970-RC-20240105-1.zip", []byte("zip"))
	require.NoError(t, err)
	assert.Equal(t, "1704470400123", ticket)

	st, err := c.GetStatus(context.Background(), srv.URL, testCreds, ticket)
	require.NoError(t, err)
	assert.Equal(t, "0", st.StatusCode)
	assert.NotEmpty(t, st.Content)
}

func TestSOAPClient_GetStatusCdr(t *testing.T) {
	srv := newSOAPServer(t, func(action, body string) (int, string) {
		assert.Equal(t, "urn:getStatusCdr", action)
		assert.Contains(t, body, "<rucComprobante>20100070970</rucComprobante>")
		assert.Contains(t, body, "<serieComprobante>F001</serieComprobante>")
		assert.Contains(t, body, "<numeroComprobante>123</numeroComprobante>")
		return http.StatusOK, soapResponse(`<ns2:getStatusCdrResponse xmlns:ns2="http://service.sunat.gob.pe"><statusCdr><statusCode>0004</statusCode><statusMessage>La constancia existe</statusMessage></statusCdr></ns2:getStatusCdrResponse>`)
	})

	c := sunat.NewSOAPClient(5*time.Second, logger.Nop())
	st, err := c.GetStatusCdr(context.Background(), srv.URL, testCreds, "01", "F001", "00123")
	require.NoError(t, err)
	assert.Equal(t, "0004", st.StatusCode)
	assert.Equal(t, "La constancia existe", st.StatusMessage)
	assert.Empty(t, st.Content)
}
