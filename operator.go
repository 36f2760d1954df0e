package orderlens

import "fmt"

// Operator is one of the closed set of comparison operators a condition leaf can use.
type Operator int

const (
	OperatorInvalid Operator = iota
	OperatorEqual
	OperatorNotEqual
	OperatorLike
	OperatorNotLike
	OperatorStartsWith
	OperatorEndsWith
	OperatorLess
	OperatorLessOrEqual
	OperatorGreater
	OperatorGreaterOrEqual
	OperatorBetween
	OperatorNotBetween
	OperatorSelectEquals
	OperatorSelectNotEquals
	OperatorSelectAnyIn
	OperatorSelectNotAnyIn
)

var operatorNames = [...]string{
	OperatorInvalid:         "invalid",
	OperatorEqual:           "equal",
	OperatorNotEqual:        "not_equal",
	OperatorLike:            "like",
	OperatorNotLike:         "not_like",
	OperatorStartsWith:      "starts_with",
	OperatorEndsWith:        "ends_with",
	OperatorLess:            "less",
	OperatorLessOrEqual:     "less_or_equal",
	OperatorGreater:         "greater",
	OperatorGreaterOrEqual:  "greater_or_equal",
	OperatorBetween:         "between",
	OperatorNotBetween:      "not_between",
	OperatorSelectEquals:    "select_equals",
	OperatorSelectNotEquals: "select_not_equals",
	OperatorSelectAnyIn:     "select_any_in",
	OperatorSelectNotAnyIn:  "select_not_any_in",
}

func ParseOperator(name string) (Operator, error) {
	for op, n := range operatorNames {
		if Operator(op) != OperatorInvalid && n == name {
			return Operator(op), nil
		}
	}
	return OperatorInvalid, fmt.Errorf("%w: %q", ErrUnknownOperator, name)
}

func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorNames) {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorNames[o]
}

// Lookup is the store-level comparison an operator maps to.
type Lookup int

const (
	LookupExact Lookup = iota
	LookupContains
	LookupStartsWith
	LookupEndsWith
	LookupLess
	LookupLessOrEqual
	LookupGreater
	LookupGreaterOrEqual
	LookupRange
	LookupIn
)

// Lookup returns the comparison primitive of o. The negated operators share the
// primitive of their positive counterpart; see Negated.
func (o Operator) Lookup() Lookup {
	switch o {
	case OperatorEqual, OperatorNotEqual, OperatorSelectEquals, OperatorSelectNotEquals:
		return LookupExact
	case OperatorLike, OperatorNotLike:
		return LookupContains
	case OperatorStartsWith:
		return LookupStartsWith
	case OperatorEndsWith:
		return LookupEndsWith
	case OperatorLess:
		return LookupLess
	case OperatorLessOrEqual:
		return LookupLessOrEqual
	case OperatorGreater:
		return LookupGreater
	case OperatorGreaterOrEqual:
		return LookupGreaterOrEqual
	case OperatorBetween, OperatorNotBetween:
		return LookupRange
	case OperatorSelectAnyIn, OperatorSelectNotAnyIn:
		return LookupIn
	default:
		panic(fmt.Sprintf("orderlens: no lookup for %v", o))
	}
}

func (o Operator) Negated() bool {
	switch o {
	case OperatorNotEqual, OperatorNotLike, OperatorNotBetween, OperatorSelectNotEquals, OperatorSelectNotAnyIn:
		return true
	default:
		return false
	}
}

// Arity is the operand shape an operator accepts.
type Arity int

const (
	ArityOne Arity = iota
	ArityTwo
	ArityMany
)

func (o Operator) Arity() Arity {
	switch o.Lookup() {
	case LookupRange:
		return ArityTwo
	case LookupIn:
		return ArityMany
	default:
		return ArityOne
	}
}
