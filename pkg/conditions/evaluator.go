// Package conditions evaluates boolean branch expressions over the variable context.
package conditions

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/comanda/pkg/variables"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	c "github.com/patrickmn/go-cache"
)

// Evaluator compiles expressions once and runs them against per-step environments.
// It is safe for concurrent use.
type Evaluator struct {
	programs *c.Cache
}

// NewEvaluator creates an evaluator whose compiled programs are evicted after an hour unused.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		programs: c.New(time.Hour, 10*time.Minute),
	}
}

var functions = []expr.Option{
	expr.Function("number", func(params ...any) (any, error) {
		n, _ := variables.Number(params[0])
		return n, nil
	}, new(func(any) float64)),
	expr.Function("text", func(params ...any) (any, error) {
		return variables.Stringify(params[0]), nil
	}, new(func(any) string)),
	expr.Function("fold", func(params ...any) (any, error) {
		return strings.ToLower(strings.TrimSpace(variables.Stringify(params[0]))), nil
	}, new(func(any) string)),
}

// Eval runs expression against env and requires a boolean result.
// Undefined variables evaluate to nil.
func (e *Evaluator) Eval(expression string, env map[string]any) (bool, error) {
	program, err := e.compile(expression)
	if err != nil {
		return false, err
	}
	if env == nil {
		env = map[string]any{}
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", expression, out)
	}
	return b, nil
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	if p, found := e.programs.Get(expression); found {
		return p.(*vm.Program), nil
	}
	opts := append([]expr.Option{expr.AllowUndefinedVariables(), expr.AsBool()}, functions...)
	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	e.programs.SetDefault(expression, program)
	return program, nil
}
