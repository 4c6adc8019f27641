// Package policy turns a model prediction and a recipient profile into
// the final fraud verdict. Hard override predicates are CEL expressions
// evaluated against the profile, so deployments can tighten or relax the
// force-fraud conditions without a rebuild.
package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/safepay-ai/safepay/internal/domain"
)

// Override is a named force-fraud predicate. When its expression
// evaluates true the transaction is fraud regardless of model output.
type Override struct {
	Name string
	Expr string
}

// DefaultOverrides are the stock hard-fail conditions.
func DefaultOverrides() []Override {
	return []Override{
		{Name: "blacklisted", Expr: "blacklisted"},
		{Name: "low_trust", Expr: "trust_score < 15.0"},
		{Name: "repeat_offender", Expr: "fraud_flags >= 3"},
		{Name: "complaint_pileup", Expr: "complaints >= 5"},
	}
}

type compiledOverride struct {
	name    string
	program cel.Program
}

func compileOverrides(overrides []Override) ([]compiledOverride, error) {
	env, err := cel.NewEnv(
		cel.Variable("blacklisted", cel.BoolType),
		cel.Variable("trust_score", cel.DoubleType),
		cel.Variable("fraud_flags", cel.IntType),
		cel.Variable("complaints", cel.IntType),
		cel.Variable("account_age_years", cel.DoubleType),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("hour", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	compiled := make([]compiledOverride, 0, len(overrides))
	for _, o := range overrides {
		ast, issues := env.Compile(o.Expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compiling override %q: %w", o.Name, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("override %q must evaluate to bool, got %s", o.Name, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("building program for override %q: %w", o.Name, err)
		}
		compiled = append(compiled, compiledOverride{name: o.Name, program: prg})
	}
	return compiled, nil
}

func overrideActivation(p *domain.PartyProfile, amount float64, hour int) map[string]any {
	return map[string]any{
		"blacklisted":       p.Blacklisted,
		"trust_score":       p.TrustScore,
		"fraud_flags":       int64(p.FraudFlags),
		"complaints":        int64(p.FraudComplaints),
		"account_age_years": p.AccountAgeYears,
		"amount":            amount,
		"hour":              int64(hour),
	}
}

// evaluate returns the names of all overrides that fired. Evaluation
// errors are treated as not-fired; an expression that cannot evaluate
// must not block payments.
func evaluateOverrides(compiled []compiledOverride, activation map[string]any) []string {
	var fired []string
	for _, o := range compiled {
		out, _, err := o.program.Eval(activation)
		if err != nil {
			continue
		}
		if b, ok := out.(types.Bool); ok && bool(b) {
			fired = append(fired, o.name)
		}
	}
	return fired
}
