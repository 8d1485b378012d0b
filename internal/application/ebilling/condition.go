package ebilling

import (
	"fmt"
	"sync"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/google/cel-go/cel"
)

// conditions compila y cachea las expresiones CEL de CreateCondition.
// La variable "doc" expone el documento fuente como mapa.
type conditions struct {
	env      *cel.Env
	mu       sync.Mutex
	programs map[string]cel.Program
}

func newConditions() (*conditions, error) {
	env, err := cel.NewEnv(cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, fmt.Errorf("cel: entorno: %w", err)
	}
	return &conditions{env: env, programs: map[string]cel.Program{}}, nil
}

func (c *conditions) program(expr string) (cel.Program, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.programs[expr]; ok {
		return p, nil
	}
	ast, iss := c.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	p, err := c.env.Program(ast)
	if err != nil {
		return nil, err
	}
	c.programs[expr] = p
	return p, nil
}

// Eval evalúa expr contra src; cualquier error de compilación o evaluación se devuelve.
func (c *conditions) Eval(expr string, src *entity.SourceDocument) (bool, error) {
	p, err := c.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := p.Eval(map[string]interface{}{"doc": sourceVars(src)})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("resultado no booleano %v", out.Value())
	}
	return b, nil
}

func sourceVars(src *entity.SourceDocument) map[string]interface{} {
	return map[string]interface{}{
		"type":         string(src.Type),
		"name":         src.Name,
		"date":         src.Date.Format("2006-01-02"),
		"currency":     src.Currency,
		"netTotal":     src.NetTotal.InexactFloat64(),
		"crossTotal":   src.CrossTotal.InexactFloat64(),
		"freeOfCharge": src.FreeOfCharge,
		"credit":       src.Payment.Credit,
		"positions":    int64(len(src.Positions)),
		"contactId":    src.ContactID,
	}
}
