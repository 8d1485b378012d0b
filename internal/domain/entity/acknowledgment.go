package entity

import (
	"fmt"
	"strconv"
	"time"
)

// StatusReason par código/motivo de validación (cac:Status del CDR).
type StatusReason struct {
	Code   string
	Reason string
}

// Acknowledgment constancia de recepción (CDR) o estado REST ya interpretado.
type Acknowledgment struct {
	Code        string
	Description string
	Reasons     []StatusReason
	Notes       []string
	DocumentID  string // cac:DocumentReference/cbc:ID
	IssueDate   time.Time
	TypeCode    string
	Hash        string
	SenderID    string
	ReceiverID  string
}

// Accepted código "0".
func (a *Acknowledgment) Accepted() bool {
	return a != nil && a.Code == "0"
}

// NumericCode código de respuesta como entero; error si no es numérico.
func (a *Acknowledgment) NumericCode() (int, error) {
	n, err := strconv.Atoi(a.Code)
	if err != nil {
		return 0, fmt.Errorf("código de respuesta no numérico %q", a.Code)
	}
	return n, nil
}

// LogDetails líneas de detalle para el LogEntry ("código - motivo" y notas).
func (a *Acknowledgment) LogDetails() []string {
	out := make([]string, 0, len(a.Reasons)+len(a.Notes))
	for _, r := range a.Reasons {
		out = append(out, r.Code+" - "+r.Reason)
	}
	return append(out, a.Notes...)
}
