package signer_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat/signer"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"
)

const unsignedInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2" xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2" xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2" xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"><ext:UBLExtensions><ext:UBLExtension><ext:ExtensionContent></ext:ExtensionContent></ext:UBLExtension><ext:UBLExtension><ext:ExtensionContent></ext:ExtensionContent></ext:UBLExtension></ext:UBLExtensions><cbc:ID>F001-1</cbc:ID><cbc:Note>Año de la señal</cbc:Note><cac:Signature><cbc:ID>SIGN20100070970</cbc:ID></cac:Signature></Invoice>`

const (
	testAlias    = "emisor"
	testPassword = "clave-secreta"
)

// testKeystore genera un par RSA con certificado autofirmado y llave PKCS#8 cifrada.
func testKeystore(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "EMPRESA DE PRUEBA SAC", SerialNumber: "20100070970"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	encKey, err := pkcs8.MarshalPrivateKey(key, []byte(testPassword), nil)
	require.NoError(t, err)

	headers := map[string]string{"friendlyName": testAlias}
	var buf bytes.Buffer
	require.NoError(t, pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Headers: headers, Bytes: der}))
	require.NoError(t, pem.Encode(&buf, &pem.Block{Type: "ENCRYPTED PRIVATE KEY", Headers: headers, Bytes: encKey}))
	return buf.Bytes()
}

func TestSign_RoundTrip(t *testing.T) {
	svc := signer.NewService(logger.Nop())
	ks := sunat.Keystore{Data: testKeystore(t), Alias: testAlias, KeyPassword: testPassword}

	resp, err := svc.Sign(context.Background(), ks, []byte(unsignedInvoice), signer.EncodingUTF8)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.Hash)
	assert.Contains(t, string(resp.Signed), "ds:Signature")
	assert.Contains(t, string(resp.Signed), `Id="SIGN20100070970"`)

	require.NoError(t, signer.Verify(resp.Signed, resp.Hash))
}

func TestSign_ISO88591(t *testing.T) {
	svc := signer.NewService(logger.Nop())
	ks := sunat.Keystore{Data: testKeystore(t), Alias: testAlias, KeyPassword: testPassword}

	resp, err := svc.Sign(context.Background(), ks, []byte(unsignedInvoice), signer.EncodingISO88591)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Contains(t, string(resp.Signed), `encoding="ISO-8859-1"`)
	// "ñ" en Latin-1 es un único byte 0xF1
	assert.True(t, bytes.Contains(resp.Signed, []byte{0xF1}))

	require.NoError(t, signer.Verify(resp.Signed, resp.Hash))
}

func TestSign_AliasInvalidoDevuelveNil(t *testing.T) {
	svc := signer.NewService(logger.Nop())
	ks := sunat.Keystore{Data: testKeystore(t), Alias: "otro", KeyPassword: testPassword}

	resp, err := svc.Sign(context.Background(), ks, []byte(unsignedInvoice), signer.EncodingUTF8)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrKeystore)
}

func TestSign_PasswordIncorrecto(t *testing.T) {
	svc := signer.NewService(logger.Nop())
	ks := sunat.Keystore{Data: testKeystore(t), Alias: testAlias, KeyPassword: "mala"}

	resp, err := svc.Sign(context.Background(), ks, []byte(unsignedInvoice), signer.EncodingUTF8)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrKeystore)
}

func TestVerify_DocumentoAlterado(t *testing.T) {
	svc := signer.NewService(logger.Nop())
	ks := sunat.Keystore{Data: testKeystore(t), Alias: testAlias, KeyPassword: testPassword}

	resp, err := svc.Sign(context.Background(), ks, []byte(unsignedInvoice), signer.EncodingUTF8)
	require.NoError(t, err)

	tampered := bytes.Replace(resp.Signed, []byte("F001-1"), []byte("F001-2"), 1)
	assert.Error(t, signer.Verify(tampered, resp.Hash))
}

func TestSign_DocumentoYaFirmado(t *testing.T) {
	svc := signer.NewService(logger.Nop())
	ks := sunat.Keystore{Data: testKeystore(t), Alias: testAlias, KeyPassword: testPassword}

	resp, err := svc.Sign(context.Background(), ks, []byte(unsignedInvoice), signer.EncodingUTF8)
	require.NoError(t, err)

	_, err = svc.Sign(context.Background(), ks, resp.Signed, signer.EncodingUTF8)
	assert.Error(t, err)
}

func TestSign_EntradaLatin1(t *testing.T) {
	svc := signer.NewService(logger.Nop())
	ks := sunat.Keystore{Data: testKeystore(t), Alias: testAlias, KeyPassword: testPassword}

	latin1 := bytes.Replace([]byte(unsignedInvoice), []byte(`encoding="UTF-8"`), []byte(`encoding="ISO-8859-1"`), 1)
	latin1 = bytes.ReplaceAll(latin1, []byte("ñ"), []byte{0xF1})

	for _, enc := range []string{signer.EncodingISO88591, signer.EncodingUTF8} {
		resp, err := svc.Sign(context.Background(), ks, latin1, enc)
		require.NoError(t, err, enc)
		require.NoError(t, signer.Verify(resp.Signed, resp.Hash), enc)
	}
}

func TestSign_MismoHashEnAmbasCodificaciones(t *testing.T) {
	svc := signer.NewService(logger.Nop())
	ks := sunat.Keystore{Data: testKeystore(t), Alias: testAlias, KeyPassword: testPassword}

	utf8, err := svc.Sign(context.Background(), ks, []byte(unsignedInvoice), signer.EncodingUTF8)
	require.NoError(t, err)
	latin1, err := svc.Sign(context.Background(), ks, []byte(unsignedInvoice), signer.EncodingISO88591)
	require.NoError(t, err)
	assert.Equal(t, utf8.Hash, latin1.Hash)

	tampered := bytes.Replace(latin1.Signed, []byte("F001-1"), []byte("F001-9"), 1)
	assert.Error(t, signer.Verify(tampered, latin1.Hash))
}
