package analytics

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/inventory"
)

// DefaultRuleExpr is the stock-level predicate used when no custom
// expression is configured.
const DefaultRuleExpr = "current < min_level"

// Rule is a compiled low-stock predicate evaluated against a level snapshot.
// Expressions may reference current, reserved, available and min_level,
// e.g. "available < min_level || current == 0".
type Rule struct {
	expr string
	prg  cel.Program
}

// CompileRule compiles expr into an evaluable rule.
func CompileRule(expr string) (*Rule, error) {
	env, err := cel.NewEnv(
		cel.Variable("current", cel.IntType),
		cel.Variable("reserved", cel.IntType),
		cel.Variable("available", cel.IntType),
		cel.Variable("min_level", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create rule environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile rule %q: %w", expr, iss.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build rule program: %w", err)
	}

	return &Rule{expr: expr, prg: prg}, nil
}

// MustCompileRule compiles expr, panicking on error. Use for constants.
func MustCompileRule(expr string) *Rule {
	r, err := CompileRule(expr)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the source expression.
func (r *Rule) String() string {
	return r.expr
}

// Evaluate reports whether the snapshot matches the predicate given the
// item's configured minimum stock level.
func (r *Rule) Evaluate(snap inventory.Snapshot, minLevel int64) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{
		"current":   snap.CurrentQuantity,
		"reserved":  snap.ReservedQuantity,
		"available": snap.AvailableQuantity,
		"min_level": minLevel,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate rule %q: %w", r.expr, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q produced non-boolean result %v", r.expr, out.Value())
	}
	return matched, nil
}
