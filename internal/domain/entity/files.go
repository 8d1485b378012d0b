package entity

import "time"

// UBLFile XML firmado de un comprobante. Inmutable una vez creado.
type UBLFile struct {
	ID         string
	DocumentID string
	BlobHandle string
	Hash       string
	FileName   string
	CreatedAt  time.Time
}

// ResponseFile respuesta cruda (zip/XML del CDR) recibida de SUNAT. Solo inserción.
type ResponseFile struct {
	ID         string
	DocumentID string
	BlobHandle string
	FileName   string
	CreatedAt  time.Time
}

// LogEntry registro de diagnóstico de un comprobante. Solo inserción.
type LogEntry struct {
	ID          string
	DocumentID  string
	Code        string
	Description string
	Details     []string
	CreatedAt   time.Time
}
