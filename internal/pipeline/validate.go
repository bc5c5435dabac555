package pipeline

import (
	"errors"
	"fmt"
	"go-batch-pipeline/internal/model"
	"strings"
)

// ErrInvalidRequiredFields is returned for an empty or duplicated required
// field name.
var ErrInvalidRequiredFields = errors.New("invalid required fields")

// Validator checks that a record carries every required field. Only
// presence matters: empty strings, zero and nil all satisfy it.
type Validator struct {
	required []string
}

func NewValidator(fields []string) (*Validator, error) {
	seen := make(map[string]struct{}, len(fields))
	required := make([]string, 0, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f) == "" {
			return nil, fmt.Errorf("%w: field[%d] is empty", ErrInvalidRequiredFields, i)
		}
		if _, dup := seen[f]; dup {
			return nil, fmt.Errorf("%w: field %q listed twice", ErrInvalidRequiredFields, f)
		}
		seen[f] = struct{}{}
		required = append(required, f)
	}
	return &Validator{required: required}, nil
}

// Validate reports whether every required field is a key of rec.
func (v *Validator) Validate(rec model.TransformedRecord) bool {
	for _, f := range v.required {
		if _, ok := rec[f]; !ok {
			return false
		}
	}
	return true
}

// Missing lists the required fields absent from rec, in configured order.
func (v *Validator) Missing(rec model.TransformedRecord) []string {
	var missing []string
	for _, f := range v.required {
		if _, ok := rec[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// Required returns a copy of the configured field names.
func (v *Validator) Required() []string {
	return append([]string(nil), v.required...)
}
