package ebilling

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat/signer"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/shopspring/decimal"
)

// Defaults valores de entorno que las propiedades del tenant pueden sobreescribir.
type Defaults struct {
	Environment     string
	SOAPEndpoint    string
	ConsultEndpoint string
	RESTAuthURL     string
	RESTBaseURL     string
	RESTPath        string
	PublishURL      string
}

// DefaultsFor completa los endpoints vacíos con los de SUNAT.
func DefaultsFor(d Defaults) Defaults {
	if d.SOAPEndpoint == "" {
		d.SOAPEndpoint = sunat.DefaultBillService(d.Environment)
	}
	if d.ConsultEndpoint == "" {
		d.ConsultEndpoint = sunat.DefaultConsultService()
	}
	if d.RESTAuthURL == "" {
		d.RESTAuthURL = sunat.DefaultRESTAuthURL
	}
	if d.RESTBaseURL == "" {
		d.RESTBaseURL = sunat.DefaultRESTBaseURL
	}
	if d.RESTPath == "" {
		d.RESTPath = sunat.DefaultRESTEndpoint
	}
	return d
}

// defaultMapping tipo fuente → tipo electrónico cuando no hay DocumentMapping.
var defaultMapping = map[entity.SourceType]entity.DocumentType{
	entity.SourceInvoice:      entity.TypeInvoice,
	entity.SourceReceipt:      entity.TypeReceipt,
	entity.SourceCreditNote:   entity.TypeCreditNote,
	entity.SourceDeliveryNote: entity.TypeDeliveryNote,
}

var defaultChannel = map[entity.DocumentType]string{
	entity.TypeInvoice:      entity.ChannelSOAP,
	entity.TypeReceipt:      entity.ChannelSOAP,
	entity.TypeCreditNote:   entity.ChannelSOAP,
	entity.TypeDeliveryNote: entity.ChannelREST,
	entity.TypeSummary:      entity.ChannelSOAP,
}

// sourceActive flag de habilitación por tipo fuente.
func sourceActive(p entity.Properties, st entity.SourceType) bool {
	return p.Bool(entity.Key(string(st), "Active"), false)
}

// enabledSources tipos fuente habilitados, en orden fijo.
func enabledSources(p entity.Properties) []entity.SourceType {
	var out []entity.SourceType
	for _, st := range entity.SourceTypes {
		if sourceActive(p, st) {
			out = append(out, st)
		}
	}
	return out
}

// mappedType resuelve el tipo electrónico; ok=false si no hay mapeo o no es un tipo conocido.
func mappedType(p entity.Properties, st entity.SourceType) (entity.DocumentType, bool) {
	if v, ok := p.Get(entity.Key("DocumentMapping", string(st))); ok {
		t := entity.DocumentType(v)
		return t, t.Valid()
	}
	t, ok := defaultMapping[st]
	return t, ok
}

// TypeSettings configuración de un tipo electrónico.
type TypeSettings struct {
	NameRegex       string
	CreateStatus    string
	VerifyPositive  string
	VerifyNegative  string
	CreateCondition string
	Active          bool
	CreateUBL       bool
	CreateReport    bool
	Channel         string
	Encoding        string
	AllowAnonymous  bool
}

func typeSettings(p entity.Properties, t entity.DocumentType) TypeSettings {
	k := func(s string) string { return entity.Key(string(t), s) }
	return TypeSettings{
		NameRegex:       p.String(k("NameRegex"), ".*"),
		CreateStatus:    p.String(k("CreateStatus"), string(entity.StatusPending)),
		VerifyPositive:  p.String(k("Verify.Positive"), ""),
		VerifyNegative:  p.String(k("Verify.Negative"), ""),
		CreateCondition: p.String(k("CreateCondition"), ""),
		Active:          p.Bool(k("Active"), true),
		CreateUBL:       p.Bool(k("CreateUBL"), true),
		CreateReport:    p.Bool(k("CreateReport"), false),
		Channel:         strings.ToLower(p.String(k("Channel"), defaultChannel[t])),
		Encoding:        p.String(k("Encoding"), signer.EncodingUTF8),
		AllowAnonymous:  p.Bool(k("AllowAnonymous"), t == entity.TypeReceipt),
	}
}

// verify compuerta de verificación: positivo debe coincidir, negativo no debe coincidir.
// Una expresión inválida cuenta como fallo.
func (s TypeSettings) verify(name string) (bool, string) {
	if s.VerifyPositive != "" {
		re, err := regexp.Compile(s.VerifyPositive)
		if err != nil || !re.MatchString(name) {
			return false, fmt.Sprintf("%q no cumple Verify.Positive", name)
		}
	}
	if s.VerifyNegative != "" {
		re, err := regexp.Compile(s.VerifyNegative)
		if err != nil || re.MatchString(name) {
			return false, fmt.Sprintf("%q coincide con Verify.Negative", name)
		}
	}
	return true, ""
}

// AnonymousSettings cliente genérico para boletas de monto menor.
type AnonymousSettings struct {
	Threshold decimal.Decimal
	ID        string
	IDType    string
}

func anonymousSettings(p entity.Properties) AnonymousSettings {
	return AnonymousSettings{
		Threshold: p.Decimal(entity.Key("Anonymous", "Threshold"), decimal.NewFromInt(700)),
		ID:        p.String(entity.Key("Anonymous", "ID"), "00000000"),
		IDType:    p.String(entity.Key("Anonymous", "IDType"), psunat.IDTypeNonDomiciled),
	}
}

func creditNoteSummarized(p entity.Properties) bool {
	return strings.EqualFold(p.String(entity.Key("CreditNote", "Mode"), "detailed"), "summarized")
}

func creditReasonText(p entity.Properties, code string) string {
	if v, ok := p.Get(entity.Key("CreditReason", code)); ok {
		return v
	}
	return psunat.CreditReasons[code]
}

func rejectionActive(p entity.Properties) bool {
	return p.Bool(entity.Key("Rejection", "Active"), false)
}

// ── Credenciales ──

func soapCredentials(p entity.Properties, t *entity.Tenant) sunat.Credentials {
	return sunat.Credentials{
		RUC:      psunat.Digits(t.TaxID),
		User:     p.String(entity.Key("SOAP", "User"), ""),
		Password: p.String(entity.Key("SOAP", "Password"), ""),
	}
}

func soapEndpoint(p entity.Properties, d Defaults) string {
	return p.String(entity.Key("SOAP", "Endpoint"), d.SOAPEndpoint)
}

func consultEndpoint(p entity.Properties, d Defaults) string {
	return p.String(entity.Key("SOAP", "ConsultEndpoint"), d.ConsultEndpoint)
}

func restTarget(p entity.Properties, d Defaults) sunat.RESTTarget {
	k := func(s string) string { return entity.Key("REST", s) }
	return sunat.RESTTarget{
		BaseURL: p.String(k("BaseURL"), d.RESTBaseURL),
		Path:    p.String(k("EndpointPath"), d.RESTPath),
		Creds: sunat.RESTCredentials{
			AuthURL:      p.String(k("AuthURL"), d.RESTAuthURL),
			ClientID:     p.String(k("ClientID"), ""),
			ClientSecret: p.String(k("ClientSecret"), ""),
			Username:     p.String(k("User"), ""),
			Password:     p.String(k("Password"), ""),
			Scope:        p.String(k("Scope"), sunat.DefaultRESTScope),
		},
	}
}

func publishTarget(p entity.Properties, d Defaults) (url, clientID string) {
	return p.String(entity.Key("Publish", "URL"), d.PublishURL), p.String(entity.Key("Publish", "ClientID"), "")
}

// loadKeystore lee el blob del keystore configurado para el tenant.
func loadKeystore(ctx context.Context, p entity.Properties, blobs repository.BlobStore) (psunat.Keystore, error) {
	k := func(s string) string { return entity.Key("Keystore", s) }
	handle, ok := p.Get(k("Handle"))
	if !ok {
		return psunat.Keystore{}, fmt.Errorf("%w: falta %s", domain.ErrConfiguration, k("Handle"))
	}
	data, err := blobs.Get(ctx, handle)
	if err != nil {
		return psunat.Keystore{}, fmt.Errorf("%w: %v", domain.ErrKeystore, err)
	}
	return psunat.Keystore{
		Data:          data,
		Alias:         p.String(k("Alias"), ""),
		StorePassword: p.String(k("StorePassword"), ""),
		KeyPassword:   p.String(k("KeyPassword"), ""),
	}, nil
}
