package orderlens

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/btree"
)

// MemoryStore keeps orders in a btree ordered by id. Queries read from a
// copy-on-write copy of the tree, so a Result is a stable snapshot.
type MemoryStore struct {
	mu      sync.Mutex
	orders  *btree.BTreeG[Order]
	courses map[uint]Course
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  btree.NewBTreeG(func(a, b Order) bool { return a.ID < b.ID }),
		courses: make(map[uint]Course),
	}
}

func (s *MemoryStore) Insert(_ context.Context, courses []Course, orders []Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range courses {
		s.courses[c.ID] = c
	}
	for _, o := range orders {
		o = o.InUTC()
		if c, ok := s.courses[o.CourseID]; ok {
			c := c
			o.Course = &c
		}
		s.orders.Set(o)
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, predicate Expr) (Result, error) {
	s.mu.Lock()
	snapshot := s.orders.Copy()
	s.mu.Unlock()

	var rows []Order
	snapshot.Scan(func(o Order) bool {
		if isMatchAll(predicate) || Evaluate(predicate, o) {
			rows = append(rows, o)
		}
		return true
	})
	return sliceResult(rows), nil
}

// sliceResult is a Result over rows that are already materialised in id order.
type sliceResult []Order

func (r sliceResult) Count(context.Context) (int64, error) {
	return int64(len(r)), nil
}

func (r sliceResult) Page(_ context.Context, number, size int) ([]Order, error) {
	if number < 1 || size < 1 {
		return nil, nil
	}
	start := (number - 1) * size
	if start >= len(r) {
		return []Order{}, nil
	}
	end := start + size
	if end > len(r) {
		end = len(r)
	}
	return r[start:end:end], nil
}

func (r sliceResult) All(context.Context) ([]Order, error) {
	out := make([]Order, len(r))
	copy(out, r)
	return out, nil
}

func (sliceResult) Close() error { return nil }

// Evaluate reports whether o satisfies e. Comparisons against a missing value
// are false, so Not selects the full complement of its operand.
func Evaluate(e Expr, o Order) bool {
	switch x := e.(type) {
	case nil, MatchAll:
		return true
	case EqExpr:
		v, ok := fieldValue(o, x.Field)
		if !ok {
			return false
		}
		c, ok := compareValues(v, x.Value)
		return ok && c == 0
	case GtExpr:
		return compareField(o, x.Field, x.Value, func(c int) bool { return c > 0 })
	case GteExpr:
		return compareField(o, x.Field, x.Value, func(c int) bool { return c >= 0 })
	case LtExpr:
		return compareField(o, x.Field, x.Value, func(c int) bool { return c < 0 })
	case LteExpr:
		return compareField(o, x.Field, x.Value, func(c int) bool { return c <= 0 })
	case BetweenExpr:
		return compareField(o, x.Field, x.Low, func(c int) bool { return c >= 0 }) &&
			compareField(o, x.Field, x.High, func(c int) bool { return c <= 0 })
	case InExpr:
		v, ok := fieldValue(o, x.Field)
		if !ok {
			return false
		}
		for _, candidate := range x.Values {
			if c, ok := compareValues(v, candidate); ok && c == 0 {
				return true
			}
		}
		return false
	case LikeExpr:
		v, ok := fieldValue(o, x.Field)
		if !ok {
			return false
		}
		s, ok := v.(string)
		if !ok {
			return false
		}
		switch x.Mode {
		case MatchPrefix:
			return strings.HasPrefix(s, x.Value)
		case MatchSuffix:
			return strings.HasSuffix(s, x.Value)
		default:
			return strings.Contains(s, x.Value)
		}
	case NotNullExpr:
		_, ok := fieldValue(o, x.Field)
		return ok
	case NotExpr:
		return !Evaluate(x.Operand, o)
	case AndExpr:
		for _, op := range x.Operands {
			if !Evaluate(op, o) {
				return false
			}
		}
		return true
	case OrExpr:
		for _, op := range x.Operands {
			if Evaluate(op, o) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func compareField(o Order, f FieldRef, value any, accept func(int) bool) bool {
	v, ok := fieldValue(o, f)
	if !ok {
		return false
	}
	c, ok := compareValues(v, value)
	return ok && accept(c)
}

func fieldValue(o Order, f FieldRef) (any, bool) {
	if f.Relation == "course" {
		if o.Course == nil {
			return nil, false
		}
		switch f.Column {
		case "id":
			return float64(o.Course.ID), true
		case "title":
			return o.Course.Title, true
		}
		return nil, false
	}
	switch f.Column {
	case "id":
		return float64(o.ID), true
	case "amount":
		return o.Amount, true
	case "status":
		return string(o.Status), true
	case "create_time":
		return o.CreateTime, true
	case "pay_time":
		if o.PayTime == nil {
			return nil, false
		}
		return *o.PayTime, true
	case "platform":
		return o.Platform, true
	case "province":
		return o.Province, true
	case "product_line":
		return o.ProductLine, true
	case "course_id":
		return float64(o.CourseID), true
	}
	return nil, false
}

// compareValues orders two operands of the same family: numbers, strings or times.
func compareValues(a, b any) (int, bool) {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	fa, err := toNumber(a)
	if err != nil {
		return 0, false
	}
	fb, err := toNumber(b)
	if err != nil {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	default:
		return 0, true
	}
}
