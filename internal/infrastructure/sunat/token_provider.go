package sunat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// Scope por defecto de la API de guías de remisión.
const DefaultRESTScope = "https://api-cpe.sunat.gob.pe"

// RESTCredentials credenciales OAuth2 (grant password) de la API REST de SUNAT.
type RESTCredentials struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
	Username     string // RUC + usuario SOL
	Password     string
	Scope        string
}

// cacheKey identifica el conjunto de credenciales sin exponer secretos en memoria de logs.
func (c RESTCredentials) cacheKey() string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		c.AuthURL, c.ClientID, c.ClientSecret, c.Username, c.Password, c.Scope,
	}, "\x00")))
	return hex.EncodeToString(h[:])
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenProvider caché de access tokens por conjunto de credenciales. Las peticiones
// concurrentes para la misma clave comparten una sola llamada al servidor.
type TokenProvider struct {
	httpClient *http.Client
	log        *logger.Logger

	mu     sync.Mutex
	tokens map[string]cachedToken
	group  singleflight.Group

	refreshSkew  time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
}

// NewTokenProvider crea el proveedor; skew es el margen antes del vencimiento.
func NewTokenProvider(httpClient *http.Client, skew time.Duration, log *logger.Logger) *TokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if skew <= 0 {
		skew = 30 * time.Second
	}
	fetchTimeout := httpClient.Timeout
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &TokenProvider{
		httpClient:   httpClient,
		log:          log.WithComponent("sunat.token"),
		tokens:       map[string]cachedToken{},
		refreshSkew:  skew,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

// Token devuelve un token vigente para creds, solicitándolo si hace falta.
func (p *TokenProvider) Token(ctx context.Context, creds RESTCredentials) (string, error) {
	key := creds.cacheKey()
	if tok, ok := p.current(key); ok {
		return tok, nil
	}

	// la llamada compartida no depende del ctx de quien la inició: si ese caller se
	// cancela, los demás que esperan la misma clave siguen recibiendo el token.
	ch := p.group.DoChan(key, func() (interface{}, error) {
		// doble verificación: otra llamada pudo haberlo renovado
		if tok, ok := p.current(key); ok {
			return tok, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout)
		defer cancel()
		tr, err := p.fetch(fctx, creds)
		if err != nil {
			return "", err
		}
		p.mu.Lock()
		p.tokens[key] = cachedToken{
			value:     tr.AccessToken,
			expiresAt: p.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		}
		p.mu.Unlock()
		return tr.AccessToken, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate descarta el token cacheado (p. ej. tras un 401).
func (p *TokenProvider) Invalidate(creds RESTCredentials) {
	p.mu.Lock()
	delete(p.tokens, creds.cacheKey())
	p.mu.Unlock()
}

func (p *TokenProvider) current(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tokens[key]
	if !ok || t.value == "" {
		return "", false
	}
	if t.expiresAt.Sub(p.now()) <= p.refreshSkew {
		return "", false
	}
	return t.value, true
}

func (p *TokenProvider) fetch(ctx context.Context, creds RESTCredentials) (*tokenResponse, error) {
	if creds.AuthURL == "" || creds.ClientID == "" {
		return nil, fmt.Errorf("oauth2: falta URL de autenticación o client_id")
	}
	scope := creds.Scope
	if scope == "" {
		scope = DefaultRESTScope
	}
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("scope", scope)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	endpoint := strings.TrimRight(creds.AuthURL, "/") + "/" + url.PathEscape(creds.ClientID) + "/oauth2/token/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("oauth2: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth2: solicitar token: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("oauth2: leer respuesta: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("oauth2: respuesta inválida: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("oauth2: respuesta sin access_token")
	}
	p.log.Debug().Int64("expires_in", tr.ExpiresIn).Msg("token obtenido")
	return &tr, nil
}
