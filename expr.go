package orderlens

import (
	"fmt"
	"strings"
)

// FieldRef is a resolved column. Relation is empty for columns of the order
// itself and names the related entity (e.g. "course") otherwise.
type FieldRef struct {
	Relation string
	Column   string
}

// Path is the dotted native path, "amount" or "course.title".
func (f FieldRef) Path() string {
	if f.Relation == "" {
		return f.Column
	}
	return f.Relation + "." + f.Column
}

func (f FieldRef) String() string {
	return f.Path()
}

// Expr is a compiled predicate over orders. It is closed under And, Or and Not
// and is translated by each store adapter into its native query form.
type Expr interface {
	isExpr()
}

// MatchAll selects every order.
type MatchAll struct{}

type EqExpr struct {
	Field FieldRef
	Value any
}

type GtExpr struct {
	Field FieldRef
	Value any
}

type GteExpr struct {
	Field FieldRef
	Value any
}

type LtExpr struct {
	Field FieldRef
	Value any
}

type LteExpr struct {
	Field FieldRef
	Value any
}

// BetweenExpr is inclusive on both ends.
type BetweenExpr struct {
	Field FieldRef
	Low   any
	High  any
}

type InExpr struct {
	Field  FieldRef
	Values []any
}

// MatchMode selects where a LikeExpr pattern must occur.
type MatchMode int

const (
	MatchContains MatchMode = iota
	MatchPrefix
	MatchSuffix
)

// LikeExpr is a literal substring match; Value carries no wildcards.
type LikeExpr struct {
	Field FieldRef
	Value string
	Mode  MatchMode
}

// NotNullExpr holds when the field has a value.
type NotNullExpr struct {
	Field FieldRef
}

type NotExpr struct {
	Operand Expr
}

type AndExpr struct {
	Operands []Expr
}

type OrExpr struct {
	Operands []Expr
}

func (MatchAll) isExpr()    {}
func (EqExpr) isExpr()      {}
func (GtExpr) isExpr()      {}
func (GteExpr) isExpr()     {}
func (LtExpr) isExpr()      {}
func (LteExpr) isExpr()     {}
func (BetweenExpr) isExpr() {}
func (InExpr) isExpr()      {}
func (LikeExpr) isExpr()    {}
func (NotNullExpr) isExpr() {}
func (NotExpr) isExpr()     {}
func (AndExpr) isExpr()     {}
func (OrExpr) isExpr()      {}

func And(operands ...Expr) Expr {
	if len(operands) == 1 {
		return operands[0]
	}
	return AndExpr{Operands: operands}
}

func Or(operands ...Expr) Expr {
	if len(operands) == 1 {
		return operands[0]
	}
	return OrExpr{Operands: operands}
}

func Not(operand Expr) Expr {
	return NotExpr{Operand: operand}
}

// likePattern renders v as an escaped SQL LIKE pattern for the given mode.
// The escape character is a backslash.
func likePattern(v string, mode MatchMode) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	escaped := r.Replace(v)
	switch mode {
	case MatchPrefix:
		return escaped + "%"
	case MatchSuffix:
		return "%" + escaped
	default:
		return "%" + escaped + "%"
	}
}

// Describe renders e in a compact, store independent form for logs.
func Describe(e Expr) string {
	switch x := e.(type) {
	case nil, MatchAll:
		return "*"
	case EqExpr:
		return fmt.Sprintf("%s = %v", x.Field, x.Value)
	case GtExpr:
		return fmt.Sprintf("%s > %v", x.Field, x.Value)
	case GteExpr:
		return fmt.Sprintf("%s >= %v", x.Field, x.Value)
	case LtExpr:
		return fmt.Sprintf("%s < %v", x.Field, x.Value)
	case LteExpr:
		return fmt.Sprintf("%s <= %v", x.Field, x.Value)
	case BetweenExpr:
		return fmt.Sprintf("%s in [%v, %v]", x.Field, x.Low, x.High)
	case InExpr:
		return fmt.Sprintf("%s in %v", x.Field, x.Values)
	case LikeExpr:
		return fmt.Sprintf("%s like %q", x.Field, likePattern(x.Value, x.Mode))
	case NotNullExpr:
		return fmt.Sprintf("%s is not null", x.Field)
	case NotExpr:
		return "not (" + Describe(x.Operand) + ")"
	case AndExpr:
		return describeGroup(" and ", x.Operands)
	case OrExpr:
		return describeGroup(" or ", x.Operands)
	default:
		return fmt.Sprintf("%T", e)
	}
}

func describeGroup(sep string, operands []Expr) string {
	parts := make([]string, 0, len(operands))
	for _, op := range operands {
		parts = append(parts, Describe(op))
	}
	return "(" + strings.Join(parts, sep) + ")"
}
