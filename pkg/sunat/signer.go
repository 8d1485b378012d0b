// Interfaz para firma digital XMLDSig de comprobantes electrónicos SUNAT.

package sunat

import "context"

// Keystore contenedor de llave privada + certificado del emisor (PKCS#12 o PEM).
type Keystore struct {
	Data          []byte
	Alias         string
	StorePassword string
	KeyPassword   string
}

// SignResponse XML firmado y su hash (DigestValue del documento, Base64).
type SignResponse struct {
	Signed []byte
	Hash   string
}

// Signer firma un XML UBL e inyecta ds:Signature en el último ext:ExtensionContent.
type Signer interface {
	// Sign devuelve nil cuando el keystore no se puede cargar; el llamador debe
	// tratar una respuesta nil como parada definitiva del intento.
	Sign(ctx context.Context, ks Keystore, payload []byte, encoding string) (*SignResponse, error)
}
