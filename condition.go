package orderlens

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Conjunction joins the children of a group.
type Conjunction int

const (
	ConjunctionAnd Conjunction = iota
	ConjunctionOr
)

func (c Conjunction) String() string {
	if c == ConjunctionOr {
		return "or"
	}
	return "and"
}

func parseConjunction(s string) (Conjunction, error) {
	switch strings.ToLower(s) {
	case "", "and":
		return ConjunctionAnd, nil
	case "or":
		return ConjunctionOr, nil
	default:
		return ConjunctionAnd, fmt.Errorf("unknown conjunction %q", s)
	}
}

// Node is a condition tree node, either a *Leaf or a *Group.
type Node interface {
	isNode()
}

// Leaf compares one field against its operands. Right is the raw operand as
// decoded from JSON: a scalar for single operand operators, a slice otherwise.
type Leaf struct {
	Field string
	Op    Operator
	Right any
}

// Group folds its children with Conjunction, negating the result when Not is set.
type Group struct {
	Conjunction Conjunction
	Not         bool
	Children    []Node
}

func (*Leaf) isNode()  {}
func (*Group) isNode() {}

// Where builds a leaf; it panics on an unknown operator name and is meant for
// hand-written trees.
func Where(field, op string, right any) *Leaf {
	o, err := ParseOperator(op)
	if err != nil {
		panic(err)
	}
	return &Leaf{Field: field, Op: o, Right: right}
}

func AllOf(children ...Node) *Group {
	return &Group{Conjunction: ConjunctionAnd, Children: children}
}

func AnyOf(children ...Node) *Group {
	return &Group{Conjunction: ConjunctionOr, Children: children}
}

type wireNode struct {
	Conjunction string            `json:"conjunction"`
	Not         bool              `json:"not"`
	Children    []json.RawMessage `json:"children"`
	Left        *struct {
		Type  string `json:"type"`
		Field string `json:"field"`
	} `json:"left"`
	Op    string `json:"op"`
	Right any    `json:"right"`
}

// DecodeConditions parses the condition builder JSON. An absent, null or empty
// object yields a nil Node, meaning "no conditions".
func DecodeConditions(data []byte) (Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}
	if len(probe) == 0 {
		return nil, nil
	}
	return decodeNode(trimmed)
}

func decodeNode(data []byte) (Node, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode condition: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var w wireNode
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode condition: %w", err)
	}

	if _, isGroup := probe["children"]; isGroup {
		conj, err := parseConjunction(w.Conjunction)
		if err != nil {
			return nil, err
		}
		g := &Group{Conjunction: conj, Not: w.Not, Children: make([]Node, 0, len(w.Children))}
		for _, raw := range w.Children {
			child, err := decodeNode(raw)
			if err != nil {
				return nil, err
			}
			g.Children = append(g.Children, child)
		}
		return g, nil
	}

	if w.Left == nil || w.Left.Field == "" {
		return nil, &ConditionError{Field: "", Operator: w.Op, Err: fmt.Errorf("%w: leaf without field", ErrUnknownField)}
	}
	op, err := ParseOperator(w.Op)
	if err != nil {
		return nil, &ConditionError{Field: w.Left.Field, Operator: w.Op, Err: err}
	}
	return &Leaf{Field: w.Left.Field, Op: op, Right: normalizeJSON(w.Right)}, nil
}

// normalizeJSON turns json.Number values into float64 so operands look the same
// whether they came off the wire or were built in Go.
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeJSON(e)
		}
		return out
	default:
		return v
	}
}
