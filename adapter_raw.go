package orderlens

import (
	"fmt"
	"strings"
)

// RawTable names the table a raw query reads and the related tables it can
// reach through foreign keys.
type RawTable struct {
	Name      string
	Alias     string
	Relations map[string]RawRelation
}

type RawRelation struct {
	Table      string
	ForeignKey string
	PrimaryKey string
}

// OrdersTable is the relational layout of the order record set.
var OrdersTable = RawTable{
	Name:  "orders",
	Alias: "o",
	Relations: map[string]RawRelation{
		"course": {Table: "courses", ForeignKey: "course_id", PrimaryKey: "id"},
	},
}

// BuildRawWhere renders e as a SQL boolean expression (without the WHERE
// keyword) using '?' placeholders. Root columns are qualified with the table
// alias; related columns become IN subqueries.
func BuildRawWhere(t RawTable, e Expr) (string, []any, error) {
	if isMatchAll(e) {
		return "", nil, nil
	}
	b := rawBuilder{table: t}
	sql, err := b.expr(e)
	if err != nil {
		return "", nil, err
	}
	return sql, b.args, nil
}

// BuildRawSelect builds the SELECT for a page of orders joined with their
// course title. limit <= 0 means no limit.
func BuildRawSelect(t RawTable, e Expr, limit, offset int) (string, []any, error) {
	where, args, err := BuildRawWhere(t, e)
	if err != nil {
		return "", nil, err
	}
	rel := t.Relations["course"]
	a := quoteIdent(t.Alias)
	var q strings.Builder
	fmt.Fprintf(&q, "SELECT %s.%s, %s.%s, %s.%s, %s.%s, %s.%s, %s.%s, %s.%s, %s.%s, %s.%s, c.%s FROM %s %s LEFT JOIN %s c ON c.%s = %s.%s",
		a, quoteIdent("id"), a, quoteIdent("amount"), a, quoteIdent("status"), a, quoteIdent("create_time"),
		a, quoteIdent("pay_time"), a, quoteIdent("platform"), a, quoteIdent("province"), a, quoteIdent("product_line"),
		a, quoteIdent("course_id"), quoteIdent("title"),
		quoteIdent(t.Name), a, quoteIdent(rel.Table), quoteIdent(rel.PrimaryKey), a, quoteIdent(rel.ForeignKey))
	if where != "" {
		q.WriteString(" WHERE " + where)
	}
	fmt.Fprintf(&q, " ORDER BY %s.%s", a, quoteIdent("id"))
	if limit > 0 {
		q.WriteString(" LIMIT ?")
		args = append(args, limit)
		if offset > 0 {
			q.WriteString(" OFFSET ?")
			args = append(args, offset)
		}
	}
	return q.String(), args, nil
}

// BuildRawCount builds the COUNT query matching BuildRawSelect.
func BuildRawCount(t RawTable, e Expr) (string, []any, error) {
	where, args, err := BuildRawWhere(t, e)
	if err != nil {
		return "", nil, err
	}
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", quoteIdent(t.Name), quoteIdent(t.Alias))
	if where != "" {
		q += " WHERE " + where
	}
	return q, args, nil
}

type rawBuilder struct {
	table RawTable
	args  []any
}

func (b *rawBuilder) column(f FieldRef) string {
	return quoteIdent(b.table.Alias) + "." + quoteIdent(f.Column)
}

func (b *rawBuilder) expr(e Expr) (string, error) {
	if rel := exprRelation(e); rel != "" {
		r, ok := b.table.Relations[rel]
		if !ok {
			return "", fmt.Errorf("%w: unknown relation %q", ErrUnknownField, rel)
		}
		inner := rawBuilder{table: RawTable{Name: r.Table}}
		innerSQL, err := inner.leaf(unqualify(e), func(f FieldRef) string { return quoteIdent(f.Column) })
		if err != nil {
			return "", err
		}
		b.args = append(b.args, inner.args...)
		return fmt.Sprintf("%s.%s IN (SELECT %s FROM %s WHERE %s)",
			quoteIdent(b.table.Alias), quoteIdent(r.ForeignKey), quoteIdent(r.PrimaryKey), quoteIdent(r.Table), innerSQL), nil
	}

	switch x := e.(type) {
	case MatchAll:
		return "TRUE", nil
	case NotExpr:
		inner, err := b.expr(x.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT (%s)", inner), nil
	case AndExpr:
		return b.group("AND", x.Operands)
	case OrExpr:
		return b.group("OR", x.Operands)
	default:
		return b.leaf(e, b.column)
	}
}

func (b *rawBuilder) leaf(e Expr, col func(FieldRef) string) (string, error) {
	switch x := e.(type) {
	case EqExpr:
		b.args = append(b.args, x.Value)
		return fmt.Sprintf("%s = ?", col(x.Field)), nil
	case GtExpr:
		b.args = append(b.args, x.Value)
		return fmt.Sprintf("%s > ?", col(x.Field)), nil
	case GteExpr:
		b.args = append(b.args, x.Value)
		return fmt.Sprintf("%s >= ?", col(x.Field)), nil
	case LtExpr:
		b.args = append(b.args, x.Value)
		return fmt.Sprintf("%s < ?", col(x.Field)), nil
	case LteExpr:
		b.args = append(b.args, x.Value)
		return fmt.Sprintf("%s <= ?", col(x.Field)), nil
	case BetweenExpr:
		b.args = append(b.args, x.Low, x.High)
		return fmt.Sprintf("%s BETWEEN ? AND ?", col(x.Field)), nil
	case InExpr:
		if len(x.Values) == 0 {
			return "FALSE", nil
		}
		placeholders := strings.Repeat("?,", len(x.Values))
		placeholders = placeholders[:len(placeholders)-1]
		b.args = append(b.args, x.Values...)
		return fmt.Sprintf("%s IN (%s)", col(x.Field), placeholders), nil
	case LikeExpr:
		b.args = append(b.args, likePattern(x.Value, x.Mode))
		return fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, col(x.Field)), nil
	case NotNullExpr:
		return fmt.Sprintf("%s IS NOT NULL", col(x.Field)), nil
	default:
		return "", fmt.Errorf("raw adapter: unsupported expression %T", e)
	}
}

func (b *rawBuilder) group(op string, operands []Expr) (string, error) {
	parts := make([]string, 0, len(operands))
	for _, operand := range operands {
		if operand == nil {
			continue
		}
		p, err := b.expr(operand)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		if op == "OR" {
			return "FALSE", nil
		}
		return "TRUE", nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")", nil
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// replaceParamMarkers rewrites '?' placeholders to PostgreSQL's $n form,
// leaving question marks inside quoted literals alone.
func replaceParamMarkers(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)
	idx := 1
	inSingle := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch == '\'' {
			inSingle = !inSingle
		}
		if ch == '?' && !inSingle {
			fmt.Fprintf(&b, "$%d", idx)
			idx++
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
