// Constantes XMLDSig para la firma enveloped de comprobantes SUNAT.

package signer

// Namespaces y algoritmos XMLDSig.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// Id de ds:Signature cuando el documento no trae cac:Signature/cbc:ID.
const DefaultSignatureID = "SignatureSP"

// Codificaciones soportadas para el XML firmado.
const (
	EncodingUTF8     = "UTF-8"
	EncodingISO88591 = "ISO-8859-1"
)
