// Firma XMLDSig enveloped (RSA-SHA256) de comprobantes UBL para SUNAT.
// Inyecta <ds:Signature> en el último <ext:ExtensionContent> del XML.

package signer

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/ucarion/c14n"
	"golang.org/x/text/encoding/charmap"
)

// Service implementa sunat.Signer.
type Service struct {
	log *logger.Logger
}

// NewService crea el servicio de firma.
func NewService(log *logger.Logger) *Service {
	return &Service{log: log.WithComponent("signer")}
}

var _ sunat.Signer = (*Service)(nil)

// Sign firma payload. Si el almacén no se puede abrir (password, alias o formato) registra
// el error y devuelve respuesta nil junto con domain.ErrKeystore.
func (s *Service) Sign(ctx context.Context, ks sunat.Keystore, payload []byte, encoding string) (*sunat.SignResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("signer: XML vacío")
	}
	cred, err := LoadKeystore(ks)
	if err != nil {
		s.log.Error().Err(err).Str("alias", ks.Alias).Msg("no se pudo cargar el almacén de llaves")
		return nil, fmt.Errorf("%w: %v", domain.ErrKeystore, err)
	}

	doc, err := readDocument(payload)
	if err != nil {
		return nil, err
	}
	target, err := signatureSlot(doc)
	if err != nil {
		return nil, err
	}

	// 1) Digest del documento sin firma (C14N)
	canonicalDoc, err := canonicalDocument(doc)
	if err != nil {
		return nil, err
	}
	docDigest := sha256.Sum256(canonicalDoc)
	docDigestB64 := base64.StdEncoding.EncodeToString(docDigest[:])

	// 2) SignedInfo canonicalizado y firmado
	signedInfoXML := buildSignedInfo(docDigestB64)
	canonicalSI, err := canonicalize([]byte(signedInfoXML))
	if err != nil {
		return nil, err
	}
	signHash := sha256.Sum256(canonicalSI)
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, cred.Key, crypto.SHA256, signHash[:])
	if err != nil {
		return nil, fmt.Errorf("signer: firmar SignedInfo: %w", err)
	}

	// 3) Inyectar ds:Signature
	sigXML := buildSignature(signatureID(doc), signedInfoXML,
		base64.StdEncoding.EncodeToString(signatureValue),
		cred.Cert.Subject.String(),
		base64.StdEncoding.EncodeToString(cred.Cert.Raw))
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(sigXML); err != nil {
		return nil, fmt.Errorf("signer: parsear Signature: %w", err)
	}
	target.AddChild(sigDoc.Root())

	out, err := writeDocument(doc, encoding)
	if err != nil {
		return nil, err
	}
	return &sunat.SignResponse{Signed: out, Hash: docDigestB64}, nil
}

// ── Documento ──

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(label) {
	case "ISO-8859-1", "LATIN1", "ISO_8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("codificación no soportada %q", label)
}

func readDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("signer: parsear XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("signer: documento sin raíz")
	}
	return doc, nil
}

// signatureSlot último ext:ExtensionContent; debe estar vacío.
func signatureSlot(doc *etree.Document) (*etree.Element, error) {
	exts := doc.Root().SelectElement("ext:UBLExtensions")
	if exts == nil {
		return nil, fmt.Errorf("signer: no se encontró ext:UBLExtensions")
	}
	var slot *etree.Element
	for _, ext := range exts.SelectElements("ext:UBLExtension") {
		if ec := ext.SelectElement("ext:ExtensionContent"); ec != nil {
			slot = ec
		}
	}
	if slot == nil {
		return nil, fmt.Errorf("signer: no se encontró ext:ExtensionContent para la firma")
	}
	if len(slot.ChildElements()) > 0 {
		return nil, fmt.Errorf("signer: el documento ya está firmado")
	}
	return slot, nil
}

func signatureID(doc *etree.Document) string {
	if id := doc.Root().FindElement("./cac:Signature/cbc:ID"); id != nil && strings.TrimSpace(id.Text()) != "" {
		return strings.TrimSpace(id.Text())
	}
	return DefaultSignatureID
}

// canonicalDocument C14N de la raíz, sin declaración XML: el digest no depende de la
// codificación con la que se escribe el archivo.
func canonicalDocument(doc *etree.Document) ([]byte, error) {
	bare := etree.NewDocument()
	bare.SetRoot(doc.Root().Copy())
	raw, err := bare.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("signer: serializar documento: %w", err)
	}
	return canonicalize(raw)
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	dec.CharsetReader = charsetReader
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("signer: canonicalizar: %w", err)
	}
	return out, nil
}

func writeDocument(doc *etree.Document, encoding string) ([]byte, error) {
	if !strings.EqualFold(encoding, EncodingISO88591) {
		setDeclaration(doc, EncodingUTF8)
		return doc.WriteToBytes()
	}
	setDeclaration(doc, EncodingISO88591)
	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	out, err := charmap.ISO8859_1.NewEncoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("signer: el documento contiene caracteres fuera de ISO-8859-1: %w", err)
	}
	return out, nil
}

func setDeclaration(doc *etree.Document, encoding string) {
	inst := `version="1.0" encoding="` + encoding + `"`
	for _, t := range doc.Child {
		if pi, ok := t.(*etree.ProcInst); ok && pi.Target == "xml" {
			pi.Inst = inst
			return
		}
	}
	doc.InsertChildAt(0, &etree.ProcInst{Target: "xml", Inst: inst})
}

// ── Firma ──

func buildSignedInfo(docDigestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"></ds:CanonicalizationMethod>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"></ds:SignatureMethod>`)
	sb.WriteString(`<ds:Reference URI="">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"></ds:Transform></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + docDigestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func buildSignature(id, signedInfoXML, signatureValueB64, subject, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" Id="` + escapeXML(id) + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue>` + signatureValueB64 + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data>`)
	sb.WriteString(`<ds:X509SubjectName>` + escapeXML(subject) + `</ds:X509SubjectName>`)
	sb.WriteString(`<ds:X509Certificate>` + certB64 + `</ds:X509Certificate>`)
	sb.WriteString(`</ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
