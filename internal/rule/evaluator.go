package rule

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/hermes-router/hermes/internal/errs"
	"github.com/hermes-router/hermes/internal/tags"
)

// Evaluate runs a rule expression against a tag mapping. A compile or
// evaluation failure is reported as errs.ErrRuleInvalid; the caller is
// expected to skip the offending rule and keep evaluating the rest
// (spec.md §4.4 step 5, §7 RULE_INVALID).
//
// Undefined tag references evaluate to nil/false rather than failing,
// mirroring the Python implementation's dict.get(tag, default) lookups —
// a rule referencing a tag absent from a given series is common and must
// not abort evaluation of that series.
func Evaluate(expression string, t tags.Tags) (bool, error) {
	env := t.Env()

	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return false, fmt.Errorf("%w: compile %q: %v", errs.ErrRuleInvalid, expression, err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("%w: run %q: %v", errs.ErrRuleInvalid, expression, err)
	}

	truthy, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q did not evaluate to a boolean (got %T)", errs.ErrRuleInvalid, expression, out)
	}
	return truthy, nil
}
