package ebilling

import "fmt"

// OutcomeKind resultado tipado de una operación del pipeline.
type OutcomeKind int

const (
	KindOk OutcomeKind = iota
	KindSkipped
	KindFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome Ok | Skipped(reason) | Failed(err). Ninguna operación del pipeline
// aborta el lote: el llamador decide con el Outcome.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

// Ok operación completada.
func Ok() Outcome { return Outcome{Kind: KindOk} }

// Skipped no se hizo nada (configuración, regla o documento ya existente).
func Skipped(format string, args ...interface{}) Outcome {
	return Outcome{Kind: KindSkipped, Reason: fmt.Sprintf(format, args...)}
}

// Failed error de E/S, transporte, firma o parseo. El estado no cambia.
func Failed(err error) Outcome {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return Outcome{Kind: KindFailed, Reason: reason, Err: err}
}

func (o Outcome) IsOk() bool      { return o.Kind == KindOk }
func (o Outcome) IsSkipped() bool { return o.Kind == KindSkipped }
func (o Outcome) IsFailed() bool  { return o.Kind == KindFailed }

func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Kind.String()
	}
	return o.Kind.String() + ": " + o.Reason
}
