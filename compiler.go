package orderlens

import "fmt"

// Compiler turns condition trees into predicates using a Schema.
type Compiler struct {
	schema *Schema
}

func NewCompiler(schema *Schema) *Compiler {
	if schema == nil {
		schema = OrderSchema()
	}
	return &Compiler{schema: schema}
}

// Compile folds the tree left to right. A leaf compiles through the schema;
// a group combines its children with its conjunction. The first failing leaf
// aborts the whole compilation.
func (c *Compiler) Compile(node Node) (Expr, error) {
	switch n := node.(type) {
	case *Leaf:
		if n == nil {
			return nil, fmt.Errorf("%w: nil condition", ErrUnknownField)
		}
		return c.schema.Resolve(n.Field, n.Op, n.Right)
	case *Group:
		if n == nil {
			return nil, fmt.Errorf("%w: nil condition group", ErrUnknownField)
		}
		return c.compileGroup(n)
	default:
		return nil, fmt.Errorf("%w: unsupported condition node %T", ErrUnknownField, node)
	}
}

func (c *Compiler) compileGroup(g *Group) (Expr, error) {
	operands := make([]Expr, 0, len(g.Children))
	for _, child := range g.Children {
		e, err := c.Compile(child)
		if err != nil {
			return nil, err
		}
		operands = append(operands, e)
	}
	var folded Expr
	switch {
	case len(operands) == 0:
		folded = MatchAll{}
	case g.Conjunction == ConjunctionOr:
		folded = Or(operands...)
	default:
		folded = And(operands...)
	}
	if g.Not {
		return Not(folded), nil
	}
	return folded, nil
}
