package sunat

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
)

// CompressXMLToZip empaqueta el XML firmado en un ZIP en memoria con una única entrada.
func CompressXMLToZip(xmlBytes []byte, xmlFilename string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fw, err := zw.Create(xmlFilename)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", xmlFilename, err)
	}
	if _, err := fw.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// ArchiveBase nombre sin extensión: {RUC}-{tipo}-{número}.
// Ejemplo: 20100070970-01-F001-123. Los resúmenes ya traen el tipo en el identificador
// (RC-20240105-1), así que quedan {RUC}-RC-20240105-1.
func ArchiveBase(taxID, docTypeCode, number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, docTypeCode+"-") {
		return psunat.Digits(taxID) + "-" + number
	}
	return psunat.Digits(taxID) + "-" + docTypeCode + "-" + number
}

// ArchiveNames nombres del XML interno y del ZIP.
func ArchiveNames(taxID, docTypeCode, number string) (xmlName, zipName string) {
	base := ArchiveBase(taxID, docTypeCode, number)
	return base + ".xml", base + ".zip"
}

// UnzipFirst devuelve el primer XML del ZIP (CDR) y su nombre.
func UnzipFirst(data []byte) (string, []byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("zip: abrir respuesta: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", nil, fmt.Errorf("zip: abrir %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", nil, fmt.Errorf("zip: leer %s: %w", f.Name, err)
		}
		return f.Name, content, nil
	}
	return "", nil, fmt.Errorf("zip: la respuesta no contiene XML")
}
