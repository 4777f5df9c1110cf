// Package tags reads the per-series sidecar tag files: JSON documents
// mapping DICOM tag names to scalar values, used as the input to rule
// evaluation. Grounded on original_source/routing/route_series.py, which
// reads the master tags file with json.load.
package tags

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hermes-router/hermes/internal/errs"
)

// Tags is a name -> scalar value mapping describing one series. Values are
// decoded from JSON, so they are one of string, float64, bool, nil, or
// (rarely) nested structures the rule evaluator is not expected to use.
type Tags map[string]any

// Load reads and parses a sidecar tags file. A malformed document is
// reported as errs.ErrTagParse, per spec.md's TAG_PARSE_ERROR kind.
func Load(path string) (Tags, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read tags %s: %v", errs.ErrFSTransient, path, err)
	}

	var t Tags
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: parse tags %s: %v", errs.ErrTagParse, path, err)
	}
	return t, nil
}

// Env converts Tags into a plain map[string]any suitable as an expression
// evaluation environment.
func (t Tags) Env() map[string]any {
	return map[string]any(t)
}
