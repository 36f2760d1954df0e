package orderlens

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownField           = errors.New("unknown field")
	ErrUnknownOperator        = errors.New("unknown operator")
	ErrOperatorArity          = errors.New("operator arity mismatch")
	ErrTypeCoercion           = errors.New("operand type mismatch")
	ErrTemporalParse          = errors.New("invalid timestamp")
	ErrUnknownAggregationKind = errors.New("unknown aggregation kind")
	ErrCacheMiss              = errors.New("result set not found or expired")
)

// ConditionError reports which leaf of a condition tree failed to compile.
type ConditionError struct {
	Field    string
	Operator string
	Err      error
}

func (e *ConditionError) Error() string {
	if e.Operator == "" {
		return fmt.Sprintf("condition on %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("condition %q %s: %v", e.Field, e.Operator, e.Err)
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}

func conditionErr(field string, op Operator, err error) error {
	name := ""
	if op != OperatorInvalid {
		name = op.String()
	}
	return &ConditionError{Field: field, Operator: name, Err: err}
}

// IsConditionError reports whether err was caused by an invalid condition tree
// rather than by the store or the cache.
func IsConditionError(err error) bool {
	var ce *ConditionError
	if errors.As(err, &ce) {
		return true
	}
	for _, target := range []error{ErrUnknownField, ErrUnknownOperator, ErrOperatorArity, ErrTypeCoercion, ErrTemporalParse} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
