package sunat

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
)

// Valores por defecto de la API REST de comprobantes (GRE).
const (
	DefaultRESTAuthURL  = "https://api-seguridad.sunat.gob.pe/v1/clientessol"
	DefaultRESTBaseURL  = "https://api-cpe.sunat.gob.pe"
	DefaultRESTEndpoint = "/v1/contribuyente/gem/comprobantes/"

	// Códigos de codRespuesta.
	RESTStatusAccepted   = "0"
	RESTStatusInProgress = "98"
	RESTStatusWithErrors = "99"
)

// RESTTarget destino y credenciales de una llamada REST.
type RESTTarget struct {
	BaseURL string
	Path    string
	Creds   RESTCredentials
}

func (t RESTTarget) url(suffix string) string {
	base := t.BaseURL
	if base == "" {
		base = DefaultRESTBaseURL
	}
	path := t.Path
	if path == "" {
		path = DefaultRESTEndpoint
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return strings.TrimRight(base, "/") + path + suffix
}

// RESTStatus resultado de la consulta de un ticket.
type RESTStatus struct {
	Code         string // 0, 98, 99
	CDR          []byte // ZIP con el CDR (si se generó)
	ErrorCode    string
	ErrorMessage string
}

type restSubmitRequest struct {
	Archivo restArchive `json:"archivo"`
}

type restArchive struct {
	NomArchivo string `json:"nomArchivo"`
	ArcGreZip  string `json:"arcGreZip"`
	HashZip    string `json:"hashZip"`
}

type restSubmitResponse struct {
	NumTicket    string `json:"numTicket"`
	FecRecepcion string `json:"fecRecepcion"`
}

type restStatusResponse struct {
	CodRespuesta   string `json:"codRespuesta"`
	ArcCdr         string `json:"arcCdr"`
	IndCdrGenerado string `json:"indCdrGenerado"`
	Error          *struct {
		NumError string `json:"numError"`
		DesError string `json:"desError"`
	} `json:"error"`
}

// RESTClient cliente de la API REST de SUNAT con bearer OAuth2.
type RESTClient struct {
	httpClient *http.Client
	tokens     *TokenProvider
	log        *logger.Logger
}

// NewRESTClient construye el cliente.
func NewRESTClient(timeout time.Duration, tokens *TokenProvider, log *logger.Logger) *RESTClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RESTClient{
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        log.WithComponent("sunat.rest"),
	}
}

// Submit envía el ZIP y devuelve el número de ticket.
// archiveID es el nombre base del archivo ({RUC}-{tipo}-{serie}-{número}).
func (c *RESTClient) Submit(ctx context.Context, target RESTTarget, archiveID, fileName string, zipBytes []byte) (string, error) {
	sum := sha256.Sum256(zipBytes)
	payload, err := json.Marshal(restSubmitRequest{Archivo: restArchive{
		NomArchivo: fileName,
		ArcGreZip:  base64.StdEncoding.EncodeToString(zipBytes),
		HashZip:    hex.EncodeToString(sum[:]),
	}})
	if err != nil {
		return "", fmt.Errorf("rest: serializar envío: %w", err)
	}
	body, err := c.do(ctx, target, http.MethodPost, target.url(url.PathEscape(archiveID)), payload)
	if err != nil {
		return "", err
	}
	var out restSubmitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("rest: respuesta de envío inválida: %w", err)
	}
	if out.NumTicket == "" {
		return "", fmt.Errorf("rest: respuesta sin numTicket")
	}
	return out.NumTicket, nil
}

// Status consulta el estado de un ticket.
func (c *RESTClient) Status(ctx context.Context, target RESTTarget, ticket string) (*RESTStatus, error) {
	body, err := c.do(ctx, target, http.MethodGet, target.url("envios/"+url.PathEscape(ticket)), nil)
	if err != nil {
		return nil, err
	}
	var out restStatusResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("rest: respuesta de estado inválida: %w", err)
	}
	st := &RESTStatus{Code: strings.TrimSpace(out.CodRespuesta)}
	if out.Error != nil {
		st.ErrorCode = out.Error.NumError
		st.ErrorMessage = out.Error.DesError
	}
	if out.ArcCdr != "" {
		cdr, err := decodeBase64(out.ArcCdr)
		if err != nil {
			return nil, err
		}
		st.CDR = cdr
	}
	return st, nil
}

func (c *RESTClient) do(ctx context.Context, target RESTTarget, method, endpoint string, payload []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx, target.Creds)
	if err != nil {
		return nil, err
	}
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return nil, fmt.Errorf("rest: crear request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rest: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("rest: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("rest: leer respuesta: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate(target.Creds)
		c.log.Warn().Str("endpoint", endpoint).Msg("token rechazado, se descarta de la caché")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
