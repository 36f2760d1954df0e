package orderlens

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gobeam/stringy"
)

type NamingStrategy string

const (
	NamingStrategyNoChange  NamingStrategy = "no_change"
	NamingStrategySnakeCase NamingStrategy = "snake_case"
)

type FieldKind int

const (
	KindString FieldKind = iota
	KindInteger
	KindNumber
	KindEnum
	KindTime
)

// TimeSuffix marks a field whose operands are ISO-8601 timestamps.
const TimeSuffix = "time"

// Field describes one column of an entity.
type Field struct {
	Name     string
	Kind     FieldKind
	Nullable bool
}

// Entity is a queryable record type. The root entity has an empty Relation;
// related entities are reached through Relation from the root.
type Entity struct {
	Name     string
	Relation string
	Fields   []Field
}

func (e Entity) field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Schema resolves dotted field references into native comparisons.
type Schema struct {
	root     string
	entities map[string]Entity
	naming   NamingStrategy
}

func NewSchema(root Entity, related ...Entity) *Schema {
	s := &Schema{root: root.Name, entities: make(map[string]Entity, len(related)+1), naming: NamingStrategySnakeCase}
	s.entities[root.Name] = root
	for _, e := range related {
		s.entities[e.Name] = e
	}
	return s
}

// OrderSchema is the catalogue of the order record set and its course relation.
func OrderSchema() *Schema {
	return NewSchema(
		Entity{Name: "order", Fields: []Field{
			{Name: "id", Kind: KindInteger},
			{Name: "amount", Kind: KindNumber},
			{Name: "status", Kind: KindEnum},
			{Name: "create_time", Kind: KindTime},
			{Name: "pay_time", Kind: KindTime, Nullable: true},
			{Name: "platform", Kind: KindString},
			{Name: "province", Kind: KindString},
			{Name: "product_line", Kind: KindString},
			{Name: "course_id", Kind: KindInteger},
		}},
		Entity{Name: "course", Relation: "course", Fields: []Field{
			{Name: "id", Kind: KindInteger},
			{Name: "title", Kind: KindString},
		}},
	)
}

func (s *Schema) SetNamingStrategy(strategy NamingStrategy) {
	s.naming = strategy
}

func (s *Schema) parseFieldName(str string) string {
	if s.naming == NamingStrategySnakeCase {
		return stringy.New(str).SnakeCase("?", "").ToLower()
	}
	return str
}

// Lookup finds the field a dotted reference names.
func (s *Schema) Lookup(ref string) (FieldRef, Field, error) {
	entityName, fieldName, ok := strings.Cut(ref, ".")
	if !ok || entityName == "" || fieldName == "" || strings.Contains(fieldName, ".") {
		return FieldRef{}, Field{}, fmt.Errorf("%w: %q is not an entity.field reference", ErrUnknownField, ref)
	}
	entity, ok := s.entities[entityName]
	if !ok {
		return FieldRef{}, Field{}, fmt.Errorf("%w: unknown entity %q", ErrUnknownField, entityName)
	}
	f, ok := entity.field(s.parseFieldName(fieldName))
	if !ok {
		return FieldRef{}, Field{}, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, entityName, fieldName)
	}
	return FieldRef{Relation: entity.Relation, Column: f.Name}, f, nil
}

// Resolve maps one condition leaf onto a native comparison.
func (s *Schema) Resolve(ref string, op Operator, operand any) (Expr, error) {
	fr, f, err := s.Lookup(ref)
	if err != nil {
		return nil, conditionErr(ref, op, err)
	}
	e, err := s.resolve(fr, f, op, operand)
	if err != nil {
		return nil, conditionErr(ref, op, err)
	}
	return e, nil
}

func (s *Schema) resolve(fr FieldRef, f Field, op Operator, operand any) (Expr, error) {
	if op <= OperatorInvalid || int(op) >= len(operatorNames) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownOperator, op)
	}

	var positive Expr
	switch op.Arity() {
	case ArityOne:
		if _, isList := operand.([]any); isList {
			return nil, fmt.Errorf("%w: %s takes one operand", ErrOperatorArity, op)
		}
		v, err := coerce(f, operand)
		if err != nil {
			return nil, err
		}
		positive, err = single(fr, f, op.Lookup(), v)
		if err != nil {
			return nil, err
		}
	case ArityTwo:
		list, ok := operand.([]any)
		if !ok || len(list) != 2 {
			return nil, fmt.Errorf("%w: %s takes exactly two operands", ErrOperatorArity, op)
		}
		low, err := coerce(f, list[0])
		if err != nil {
			return nil, err
		}
		high, err := coerce(f, list[1])
		if err != nil {
			return nil, err
		}
		if c, ok := compareValues(low, high); ok && c > 0 {
			return nil, fmt.Errorf("%w: range bounds reversed (%v > %v)", ErrOperatorArity, low, high)
		}
		positive = BetweenExpr{Field: fr, Low: low, High: high}
	case ArityMany:
		list, err := operandList(operand)
		if err != nil {
			return nil, err
		}
		values := make([]any, 0, len(list))
		for _, item := range list {
			v, err := coerce(f, item)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		positive = InExpr{Field: fr, Values: values}
	}

	if !op.Negated() {
		return positive, nil
	}
	if f.Nullable {
		// Missing values belong to the complement.
		return Not(And(positive, NotNullExpr{Field: fr})), nil
	}
	return Not(positive), nil
}

func single(fr FieldRef, f Field, lookup Lookup, v any) (Expr, error) {
	switch lookup {
	case LookupExact:
		return EqExpr{Field: fr, Value: v}, nil
	case LookupContains, LookupStartsWith, LookupEndsWith:
		str, ok := v.(string)
		if !ok || (f.Kind != KindString && f.Kind != KindEnum) {
			return nil, fmt.Errorf("%w: substring match needs a text field", ErrTypeCoercion)
		}
		mode := MatchContains
		if lookup == LookupStartsWith {
			mode = MatchPrefix
		} else if lookup == LookupEndsWith {
			mode = MatchSuffix
		}
		return LikeExpr{Field: fr, Value: str, Mode: mode}, nil
	case LookupLess:
		return LtExpr{Field: fr, Value: v}, nil
	case LookupLessOrEqual:
		return LteExpr{Field: fr, Value: v}, nil
	case LookupGreater:
		return GtExpr{Field: fr, Value: v}, nil
	case LookupGreaterOrEqual:
		return GteExpr{Field: fr, Value: v}, nil
	default:
		return nil, fmt.Errorf("%w: lookup %d is not single valued", ErrOperatorArity, lookup)
	}
}

func operandList(operand any) ([]any, error) {
	switch x := operand.(type) {
	case []any:
		if len(x) == 0 {
			return nil, fmt.Errorf("%w: set membership needs at least one value", ErrOperatorArity)
		}
		return x, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, fmt.Errorf("%w: set membership needs at least one value", ErrOperatorArity)
		}
		parts := strings.Split(x, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: set membership needs a list", ErrOperatorArity)
	}
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05-0700", "2006-01-02T15:04:05.999999999-0700"}

// ParseTimestamp parses an ISO-8601 timestamp that carries an explicit offset.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrTemporalParse, s)
}

func coerce(f Field, v any) (any, error) {
	if f.Kind == KindTime || strings.HasSuffix(f.Name, TimeSuffix) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected a timestamp string, got %T", ErrTemporalParse, v)
		}
		return ParseTimestamp(s)
	}
	switch f.Kind {
	case KindInteger:
		n, err := toNumber(v)
		if err != nil {
			return nil, err
		}
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("%w: %v is not an integer", ErrTypeCoercion, v)
		}
		// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
		if n >= math.MaxInt64 || n < math.MinInt64 {
			return nil, fmt.Errorf("%w: %v is out of the integer range", ErrTypeCoercion, v)
		}
		return int64(n), nil
	case KindNumber:
		return toNumber(v)
	case KindEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected a status code, got %T", ErrTypeCoercion, v)
		}
		st, err := ParseStatus(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTypeCoercion, err)
		}
		return string(st), nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected a string, got %T", ErrTypeCoercion, v)
		}
		return s, nil
	}
}

func toNumber(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrTypeCoercion, x)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrTypeCoercion, x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: expected a number, got %T", ErrTypeCoercion, v)
	}
}
