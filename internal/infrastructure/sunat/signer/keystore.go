// Carga de llave privada y certificado desde el almacén del tenant (.p12 o PEM).

package signer

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/pkcs12"
)

// Credential llave RSA y certificado hoja listos para firmar.
type Credential struct {
	Key  *rsa.PrivateKey
	Cert *x509.Certificate
}

const friendlyNameHeader = "friendlyName"

var errAliasNotFound = errors.New("alias no encontrado en el almacén")

// LoadKeystore detecta el formato (PEM o PKCS#12) y extrae la entrada del alias.
func LoadKeystore(ks sunat.Keystore) (*Credential, error) {
	if len(ks.Data) == 0 {
		return nil, fmt.Errorf("almacén vacío")
	}
	if bytes.Contains(ks.Data, []byte("-----BEGIN ")) {
		return loadPEM(ks.Data, ks.Alias, ks.KeyPassword)
	}
	return loadP12(ks)
}

// loadP12 usa ToPEM para conservar friendlyName (el alias del almacén).
func loadP12(ks sunat.Keystore) (*Credential, error) {
	blocks, err := pkcs12.ToPEM(ks.Data, ks.StorePassword)
	if err != nil && ks.KeyPassword != "" && ks.KeyPassword != ks.StorePassword {
		blocks, err = pkcs12.ToPEM(ks.Data, ks.KeyPassword)
	}
	if err != nil {
		return nil, fmt.Errorf("decodificar p12: %w", err)
	}
	return fromBlocks(blocks, ks.Alias, "")
}

func loadPEM(data []byte, alias, keyPassword string) (*Credential, error) {
	var blocks []*pem.Block
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		blocks = append(blocks, block)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("PEM sin bloques")
	}
	return fromBlocks(blocks, alias, keyPassword)
}

// fromBlocks si algún bloque declara friendlyName, el alias debe coincidir.
func fromBlocks(blocks []*pem.Block, alias, keyPassword string) (*Credential, error) {
	named := false
	for _, b := range blocks {
		if _, ok := b.Headers[friendlyNameHeader]; ok {
			named = true
			break
		}
	}
	matches := func(b *pem.Block) bool {
		if !named || alias == "" {
			return true
		}
		return b.Headers[friendlyNameHeader] == alias
	}

	cred := &Credential{}
	for _, b := range blocks {
		if !matches(b) {
			continue
		}
		switch b.Type {
		case "CERTIFICATE":
			if cred.Cert != nil {
				continue
			}
			c, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parsear certificado: %w", err)
			}
			cred.Cert = c
		case "ENCRYPTED PRIVATE KEY":
			k, err := pkcs8.ParsePKCS8PrivateKeyRSA(b.Bytes, []byte(keyPassword))
			if err != nil {
				return nil, fmt.Errorf("descifrar llave PKCS#8: %w", err)
			}
			cred.Key = k
		case "PRIVATE KEY", "RSA PRIVATE KEY":
			k, err := parsePlainKey(b.Bytes)
			if err != nil {
				return nil, err
			}
			cred.Key = k
		}
	}
	if cred.Key == nil || cred.Cert == nil {
		if named && alias != "" {
			return nil, fmt.Errorf("%w: %q", errAliasNotFound, alias)
		}
		return nil, fmt.Errorf("el almacén no contiene llave y certificado")
	}
	if pub, ok := cred.Cert.PublicKey.(*rsa.PublicKey); !ok || !pub.Equal(&cred.Key.PublicKey) {
		return nil, fmt.Errorf("el certificado no corresponde a la llave privada")
	}
	return cred, nil
}

func parsePlainKey(der []byte) (*rsa.PrivateKey, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	anyKey, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsear llave privada: %w", err)
	}
	k, ok := anyKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("la llave debe ser RSA, se obtuvo %T", anyKey)
	}
	return k, nil
}
