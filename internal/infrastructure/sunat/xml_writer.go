package sunat

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// Namespaces UBL 2.1 usados por SUNAT.
const (
	NsInvoice         = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCreditNote      = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	NsDespatchAdvice  = "urn:oasis:names:specification:ubl:schema:xsd:DespatchAdvice-2"
	NsSummary         = "urn:sunat:names:specification:ubl:peru:schema:xsd:SummaryDocuments-1"
	NsCac             = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc             = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt             = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsSac             = "urn:sunat:names:specification:ubl:peru:schema:xsd:SunatAggregateComponents-1"
	NsDs              = "http://www.w3.org/2000/09/xmldsig#"
	dateLayout        = "2006-01-02"
	timeLayout        = "15:04:05"
	ublVersion        = "2.1"
	customizationID   = "2.0"
	summaryCustomizID = "1.1"
	summaryUBLVersion = "2.0"
)

// xmlWriter encoder por tokens con prefijos explícitos ("cbc:ID"); los xmlns se
// declaran una sola vez en la raíz. Guarda el primer error.
type xmlWriter struct {
	buf   bytes.Buffer
	enc   *xml.Encoder
	stack []xml.Name
	err   error
}

func newXMLWriter() *xmlWriter {
	w := &xmlWriter{}
	w.buf.WriteString(xml.Header)
	w.enc = xml.NewEncoder(&w.buf)
	return w
}

func (w *xmlWriter) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

// root abre el elemento raíz con sus declaraciones de namespace.
func (w *xmlWriter) root(name, defaultNs string, prefixes map[string]string) {
	attrs := []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: defaultNs}}
	for _, p := range []string{"cac", "cbc", "ds", "ext", "sac"} {
		if ns, ok := prefixes[p]; ok {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "xmlns:" + p}, Value: ns})
		}
	}
	w.start(name, attrs...)
}

func (w *xmlWriter) start(name string, attrs ...xml.Attr) {
	n := xml.Name{Local: name}
	w.token(xml.StartElement{Name: n, Attr: attrs})
	w.stack = append(w.stack, n)
}

func (w *xmlWriter) end() {
	if len(w.stack) == 0 {
		if w.err == nil {
			w.err = fmt.Errorf("xml: cierre sin apertura")
		}
		return
	}
	n := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.token(xml.EndElement{Name: n})
}

// text elemento hoja; value vacío no se escribe.
func (w *xmlWriter) text(name, value string, attrs ...xml.Attr) {
	if value == "" {
		return
	}
	w.start(name, attrs...)
	w.token(xml.CharData(value))
	w.end()
}

func (w *xmlWriter) amount(name string, value decimal.Decimal, currency string) {
	w.text(name, tax.Format2(value), attr("currencyID", currency))
}

func (w *xmlWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if len(w.stack) != 0 {
		return nil, fmt.Errorf("xml: %d elementos sin cerrar", len(w.stack))
	}
	if err := w.enc.Flush(); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// ublExtensions dos extensiones; la última queda vacía para ds:Signature.
func (w *xmlWriter) ublExtensions() {
	w.start("ext:UBLExtensions")
	w.start("ext:UBLExtension")
	w.start("ext:ExtensionContent")
	w.end()
	w.end()
	w.start("ext:UBLExtension")
	w.start("ext:ExtensionContent")
	w.end()
	w.end()
	w.end()
}

// signatureRef cac:Signature que referencia la firma inyectada.
func (w *xmlWriter) signatureRef(supplierID, supplierName string) {
	w.start("cac:Signature")
	w.text("cbc:ID", "SIGN"+supplierID)
	w.start("cac:SignatoryParty")
	w.start("cac:PartyIdentification")
	w.text("cbc:ID", supplierID)
	w.end()
	w.start("cac:PartyName")
	w.text("cbc:Name", supplierName)
	w.end()
	w.end()
	w.start("cac:DigitalSignatureAttachment")
	w.start("cac:ExternalReference")
	w.text("cbc:URI", "#SIGN"+supplierID)
	w.end()
	w.end()
	w.end()
}
