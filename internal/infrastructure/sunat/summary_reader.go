package sunat

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/tax"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/ubl"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// Estado de la línea del resumen (ConditionCode).
const SummaryConditionAdd = "1"

// ReadSummaryLine extrae de un comprobante ya firmado los datos que el resumen diario
// necesita (número, cliente, totales y tributos). También devuelve la fecha de emisión.
func ReadSummaryLine(signed []byte) (ubl.SummaryLine, time.Time, error) {
	var line ubl.SummaryLine
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = latin1Reader
	if err := doc.ReadFromBytes(signed); err != nil {
		return line, time.Time{}, fmt.Errorf("sunat: leer comprobante: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return line, time.Time{}, fmt.Errorf("sunat: comprobante sin raíz")
	}

	switch root.Tag {
	case "Invoice":
		line.TypeCode = childText(root, "cbc:InvoiceTypeCode")
	case "CreditNote":
		line.TypeCode = psunat.DocTypeCreditNote
	default:
		return line, time.Time{}, fmt.Errorf("sunat: %s no se informa en resúmenes", root.Tag)
	}
	line.Number = childText(root, "cbc:ID")
	line.Currency = childText(root, "cbc:DocumentCurrencyCode")
	line.StatusCode = SummaryConditionAdd
	if line.Number == "" || line.Currency == "" {
		return line, time.Time{}, fmt.Errorf("sunat: comprobante sin número o moneda")
	}

	issue, err := time.Parse(dateLayout, childText(root, "cbc:IssueDate"))
	if err != nil {
		return line, time.Time{}, fmt.Errorf("sunat: fecha de emisión: %w", err)
	}

	if id := root.FindElement("./cac:AccountingCustomerParty/cac:Party/cac:PartyIdentification/cbc:ID"); id != nil {
		line.CustomerID = id.Text()
		line.CustomerIDType = id.SelectAttrValue("schemeID", "")
	}

	line.Total = decimalText(root.FindElement("./cac:LegalMonetaryTotal/cbc:PayableAmount"))
	line.TaxableAmount = decimalText(root.FindElement("./cac:LegalMonetaryTotal/cbc:LineExtensionAmount"))

	if tt := root.SelectElement("cac:TaxTotal"); tt != nil {
		for _, st := range tt.SelectElements("cac:TaxSubtotal") {
			scheme := st.FindElement("./cac:TaxCategory/cac:TaxScheme")
			if scheme == nil {
				continue
			}
			line.Taxes = append(line.Taxes, tax.Entry{
				ID:          childText(scheme, "cbc:ID"),
				Name:        childText(scheme, "cbc:Name"),
				TaxTypeCode: childText(scheme, "cbc:TaxTypeCode"),
				Taxable:     decimalText(st.SelectElement("cbc:TaxableAmount")),
				Amount:      decimalText(st.SelectElement("cbc:TaxAmount")),
			})
		}
	}
	return line, issue, nil
}

// latin1Reader los UBL pueden estar firmados en ISO-8859-1.
func latin1Reader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(label) {
	case "ISO-8859-1", "LATIN1", "ISO_8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("codificación no soportada %q", label)
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return c.Text()
	}
	return ""
}

func decimalText(el *etree.Element) decimal.Decimal {
	if el == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(el.Text())
	if err != nil {
		return decimal.Zero
	}
	return d
}
