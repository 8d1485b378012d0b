package sunat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
)

// ── Endpoints por entorno ─────────────────────────────────────────────────────

const (
	EnvBeta       = "beta"
	EnvProduction = "production"

	billServiceBeta    = "https://e-beta.sunat.gob.pe/ol-ti-itcpfegem-beta/billService"
	billServiceProd    = "https://e-factura.sunat.gob.pe/ol-ti-itcpfegem/billService"
	consultServiceProd = "https://e-factura.sunat.gob.pe/ol-it-wsconscpegem/billConsultService"

	nsSoapEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	nsService = "http://service.sunat.gob.pe"
	nsWsse    = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	pwdText   = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText"

	maxResponseBytes = 10 << 20
)

// DefaultBillService URL del billService según entorno.
func DefaultBillService(env string) string {
	if env == EnvProduction {
		return billServiceProd
	}
	return billServiceBeta
}

// DefaultConsultService URL del servicio de consulta de CDR (solo producción).
func DefaultConsultService() string {
	return consultServiceProd
}

// Credentials usuario secundario SOL; el usuario WS-Security es RUC+usuario.
type Credentials struct {
	RUC      string
	User     string
	Password string
}

// Username usuario para el UsernameToken.
func (c Credentials) Username() string {
	if strings.HasPrefix(c.User, c.RUC) {
		return c.User
	}
	return c.RUC + c.User
}

// StatusResponse resultado de getStatus / getStatusCdr.
type StatusResponse struct {
	StatusCode    string // 0 procesado, 98 en proceso, 99 con errores (getStatus); código CDR (getStatusCdr)
	StatusMessage string
	Content       []byte // ZIP con el CDR, si viene
}

// SOAPClient cliente del billService y billConsultService de SUNAT.
type SOAPClient struct {
	httpClient *http.Client
	log        *logger.Logger
}

// NewSOAPClient construye el cliente con el timeout dado.
func NewSOAPClient(timeout time.Duration, log *logger.Logger) *SOAPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &SOAPClient{
		httpClient: &http.Client{Timeout: timeout},
		log:        log.WithComponent("sunat.soap"),
	}
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName  xml.Name   `xml:"soapenv:Envelope"`
	XmlnsEnv string     `xml:"xmlns:soapenv,attr"`
	XmlnsSer string     `xml:"xmlns:ser,attr"`
	XmlnsSec string     `xml:"xmlns:wsse,attr"`
	Header   soapHeader `xml:"soapenv:Header"`
	Body     soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct {
	Security wsSecurity `xml:"wsse:Security"`
}

type wsSecurity struct {
	UsernameToken usernameToken `xml:"wsse:UsernameToken"`
}

type usernameToken struct {
	Username string       `xml:"wsse:Username"`
	Password wssePassword `xml:"wsse:Password"`
}

type wssePassword struct {
	Type  string `xml:"Type,attr"`
	Value string `xml:",chardata"`
}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type sendBillBody struct {
	XMLName     xml.Name `xml:"ser:sendBill"`
	FileName    string   `xml:"fileName"`
	ContentFile string   `xml:"contentFile"`
}

type sendSummaryBody struct {
	XMLName     xml.Name `xml:"ser:sendSummary"`
	FileName    string   `xml:"fileName"`
	ContentFile string   `xml:"contentFile"`
}

type getStatusBody struct {
	XMLName xml.Name `xml:"ser:getStatus"`
	Ticket  string   `xml:"ticket"`
}

type getStatusCdrBody struct {
	XMLName xml.Name `xml:"ser:getStatusCdr"`
	RUC     string   `xml:"rucComprobante"`
	Type    string   `xml:"tipoComprobante"`
	Series  string   `xml:"serieComprobante"`
	Number  string   `xml:"numeroComprobante"`
}

// ── Respuestas ───────────────────────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	SendBill     *sendBillResponse     `xml:"sendBillResponse"`
	SendSummary  *sendSummaryResponse  `xml:"sendSummaryResponse"`
	GetStatus    *getStatusResponse    `xml:"getStatusResponse"`
	GetStatusCdr *getStatusCdrResponse `xml:"getStatusCdrResponse"`
	Fault        *soapFault            `xml:"Fault"`
}

type sendBillResponse struct {
	ApplicationResponse string `xml:"applicationResponse"`
}

type sendSummaryResponse struct {
	Ticket string `xml:"ticket"`
}

type getStatusResponse struct {
	Status statusPayload `xml:"status"`
}

type getStatusCdrResponse struct {
	Status statusPayload `xml:"statusCdr"`
}

type statusPayload struct {
	StatusCode    string `xml:"statusCode"`
	StatusMessage string `xml:"statusMessage"`
	Content       string `xml:"content"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
	Detail      struct {
		Inner string `xml:",innerxml"`
	} `xml:"detail"`
}

// ── Operaciones ──────────────────────────────────────────────────────────────

// SendBill envía un comprobante (factura, boleta, nota). Devuelve el ZIP del CDR.
func (c *SOAPClient) SendBill(ctx context.Context, endpoint string, creds Credentials, fileName string, zipBytes []byte) ([]byte, error) {
	resp, err := c.call(ctx, endpoint, "urn:sendBill", creds, &sendBillBody{
		FileName:    fileName,
		ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
	})
	if err != nil {
		return nil, err
	}
	if resp.SendBill == nil || resp.SendBill.ApplicationResponse == "" {
		return nil, fmt.Errorf("soap: sendBill sin applicationResponse")
	}
	return decodeBase64(resp.SendBill.ApplicationResponse)
}

// SendSummary envía un resumen diario. Devuelve el ticket asíncrono.
func (c *SOAPClient) SendSummary(ctx context.Context, endpoint string, creds Credentials, fileName string, zipBytes []byte) (string, error) {
	resp, err := c.call(ctx, endpoint, "urn:sendSummary", creds, &sendSummaryBody{
		FileName:    fileName,
		ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
	})
	if err != nil {
		return "", err
	}
	if resp.SendSummary == nil || strings.TrimSpace(resp.SendSummary.Ticket) == "" {
		return "", fmt.Errorf("soap: sendSummary sin ticket")
	}
	return strings.TrimSpace(resp.SendSummary.Ticket), nil
}

// GetStatus consulta el estado de un ticket.
func (c *SOAPClient) GetStatus(ctx context.Context, endpoint string, creds Credentials, ticket string) (*StatusResponse, error) {
	resp, err := c.call(ctx, endpoint, "urn:getStatus", creds, &getStatusBody{Ticket: ticket})
	if err != nil {
		return nil, err
	}
	if resp.GetStatus == nil {
		return nil, fmt.Errorf("soap: getStatus sin status")
	}
	return toStatus(resp.GetStatus.Status)
}

// GetStatusCdr consulta el CDR de un comprobante ya enviado (servicio de consulta).
func (c *SOAPClient) GetStatusCdr(ctx context.Context, endpoint string, creds Credentials, typeCode, series, number string) (*StatusResponse, error) {
	resp, err := c.call(ctx, endpoint, "urn:getStatusCdr", creds, &getStatusCdrBody{
		RUC:    creds.RUC,
		Type:   typeCode,
		Series: series,
		Number: strings.TrimLeft(number, "0"),
	})
	if err != nil {
		return nil, err
	}
	if resp.GetStatusCdr == nil {
		return nil, fmt.Errorf("soap: getStatusCdr sin statusCdr")
	}
	return toStatus(resp.GetStatusCdr.Status)
}

func toStatus(p statusPayload) (*StatusResponse, error) {
	out := &StatusResponse{
		StatusCode:    strings.TrimSpace(p.StatusCode),
		StatusMessage: strings.TrimSpace(p.StatusMessage),
	}
	if p.Content != "" {
		content, err := decodeBase64(p.Content)
		if err != nil {
			return nil, err
		}
		out.Content = content
	}
	return out, nil
}

func (c *SOAPClient) call(ctx context.Context, endpoint, action string, creds Credentials, body interface{}) (*soapResponseBody, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("soap: endpoint vacío")
	}
	envelope := soapEnvelope{
		XmlnsEnv: nsSoapEnv,
		XmlnsSer: nsService,
		XmlnsSec: nsWsse,
		Header: soapHeader{Security: wsSecurity{UsernameToken: usernameToken{
			Username: creds.Username(),
			Password: wssePassword{Type: pwdText, Value: creds.Password},
		}}},
		Body: soapBody{Content: body},
	}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}
	c.log.Debug().Str("action", action).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Msg("respuesta SOAP")

	var env soapResponseEnvelope
	parseErr := xml.Unmarshal(raw, &env)
	if parseErr == nil && env.Body.Fault != nil {
		f := env.Body.Fault
		return nil, &FaultError{
			Code:   strings.TrimSpace(f.FaultCode),
			String: strings.TrimSpace(f.FaultString),
			Detail: strings.TrimSpace(f.Detail.Inner),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if parseErr != nil {
		return nil, fmt.Errorf("soap: parsear respuesta: %w", parseErr)
	}
	return &env.Body, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("soap: contenido base64 inválido: %w", err)
	}
	return b, nil
}
