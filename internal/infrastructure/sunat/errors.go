package sunat

import (
	"fmt"
	"strings"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
)

// FaultError SOAP Fault devuelto por SUNAT (p. ej. "soap-env:Client.0111").
type FaultError struct {
	Code   string
	String string
	Detail string
}

func (e *FaultError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("soap fault [%s]: %s (%s)", e.Code, e.String, e.Detail)
	}
	return fmt.Sprintf("soap fault [%s]: %s", e.Code, e.String)
}

// Unwrap permite errors.Is(err, domain.ErrTransport).
func (e *FaultError) Unwrap() error { return domain.ErrTransport }

// ResponseCode código numérico al final del faultcode ("soap-env:Client.0111" → "111").
func (e *FaultError) ResponseCode() string {
	code := e.Code
	if i := strings.LastIndexAny(code, ".:"); i >= 0 {
		code = code[i+1:]
	}
	code = strings.TrimLeft(code, "0")
	for _, r := range code {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if code == "" && strings.HasSuffix(e.Code, "0") {
		return "0"
	}
	return code
}

// HTTPError respuesta no 2xx sin cuerpo interpretable.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, body)
}

func (e *HTTPError) Unwrap() error { return domain.ErrTransport }
