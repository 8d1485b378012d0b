package signer

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Verify recalcula el digest del documento firmado, lo compara con hash y con el
// DigestValue, y valida la firma RSA del SignedInfo con el certificado embebido.
func Verify(signed []byte, hash string) error {
	doc, err := readDocument(signed)
	if err != nil {
		return err
	}
	sig := doc.FindElement("//ds:Signature")
	if sig == nil {
		return fmt.Errorf("signer: el documento no contiene ds:Signature")
	}
	digestValue := textOf(sig, "./ds:SignedInfo/ds:Reference/ds:DigestValue")
	sigValue := textOf(sig, "./ds:SignatureValue")
	certB64 := textOf(sig, "./ds:KeyInfo/ds:X509Data/ds:X509Certificate")

	parent := sig.Parent()
	if parent == nil {
		return fmt.Errorf("signer: ds:Signature sin contenedor")
	}
	parent.RemoveChild(sig)

	canonicalDoc, err := canonicalDocument(doc)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(canonicalDoc)
	digest := base64.StdEncoding.EncodeToString(sum[:])
	if digest != digestValue {
		return fmt.Errorf("signer: DigestValue no coincide con el contenido")
	}
	if hash != "" && hash != digest {
		return fmt.Errorf("signer: el hash no coincide con el documento firmado")
	}

	certDER, err := base64.StdEncoding.DecodeString(certB64)
	if err != nil {
		return fmt.Errorf("signer: certificado inválido: %w", err)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return fmt.Errorf("signer: parsear certificado: %w", err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("signer: el certificado no contiene llave RSA")
	}
	rawSig, err := base64.StdEncoding.DecodeString(sigValue)
	if err != nil {
		return fmt.Errorf("signer: SignatureValue inválido: %w", err)
	}
	canonicalSI, err := canonicalize([]byte(buildSignedInfo(digest)))
	if err != nil {
		return err
	}
	signHash := sha256.Sum256(canonicalSI)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, signHash[:], rawSig); err != nil {
		return fmt.Errorf("signer: firma inválida: %w", err)
	}
	return nil
}

func textOf(el *etree.Element, path string) string {
	if c := el.FindElement(path); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}
