package orderlens

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeCases is shared by every store that can run in a test process.
var storeCases = []struct {
	name string
	node Node
	want []uint
}{
	{"between", Where("order.amount", "between", []any{10.0, 20.0}), []uint{2, 3, 4}},
	{"not between", Where("order.amount", "not_between", []any{10.0, 20.0}), []uint{1, 5, 6}},
	{"equal", Where("order.amount", "equal", 30.5), []uint{6}},
	{"not equal", Where("order.platform", "not_equal", "web"), []uint{2, 4, 5}},
	{"less", Where("order.amount", "less", 15.0), []uint{1, 2}},
	{"greater or equal", Where("order.amount", "greater_or_equal", 25.0), []uint{5, 6}},
	{"like", Where("order.product_line", "like", "es"), []uint{5, 6}},
	{"not like", Where("order.product_line", "not_like", "py"), []uint{3, 4, 5, 6}},
	{"starts with", Where("order.platform", "starts_with", "i"), []uint{2, 5}},
	{"ends with", Where("order.platform", "ends_with", "oid"), []uint{4}},
	{"select any in", Where("order.status", "select_any_in", "SU,RE"), []uint{1, 3, 5}},
	{"select not any in", Where("order.status", "select_not_any_in", []any{"SU", "RE"}), []uint{2, 4, 6}},
	{"select equals", Where("order.status", "select_equals", "PE"), []uint{2}},
	{"time range", Where("order.create_time", "between", []any{"2024-03-01T18:00:00+08:00", "2024-03-02T16:00:00+08:00"}), []uint{2, 3, 4}},
	{"nullable in range", Where("order.pay_time", "between", []any{"2024-03-01T00:00:00Z", "2024-03-01T23:59:59Z"}), []uint{1, 3}},
	{"nullable outside range", Where("order.pay_time", "not_between", []any{"2024-03-01T00:00:00Z", "2024-03-01T23:59:59Z"}), []uint{2, 4, 5, 6}},
	{"nullable not equal", Where("order.pay_time", "not_equal", "2024-03-01T09:05:00Z"), []uint{2, 3, 4, 5, 6}},
	{"related", Where("course.title", "equal", "Go in Action"), []uint{1, 3}},
	{"related literal percent", Where("course.title", "like", "100%"), []uint{2, 5}},
	{"related literal underscore", Where("course.title", "ends_with", "_Analysis"), []uint{4, 6}},
	{"related negated", Where("course.title", "not_like", "Go"), []uint{2, 4, 5, 6}},
	{"and", AllOf(Where("order.platform", "equal", "web"), Where("order.amount", "greater", 10.0)), []uint{3, 6}},
	{"or", AnyOf(Where("order.province", "equal", "北京"), Where("order.amount", "greater", 26.0)), []uint{1, 5, 6}},
	{"negated group", &Group{Not: true, Children: []Node{Where("order.platform", "equal", "web"), Where("order.province", "equal", "上海")}}, []uint{1, 2, 4, 5, 6}},
	{"empty group", AllOf(), []uint{1, 2, 3, 4, 5, 6}},
	{"nested", AllOf(
		AnyOf(Where("order.status", "select_equals", "SU"), Where("order.status", "select_equals", "RE")),
		AnyOf(Where("course.title", "starts_with", "Python"), Where("order.amount", "less", 10.0)),
	), []uint{1, 5}},
}

func runStoreCases(t *testing.T, store Store) {
	c := NewCompiler(nil)
	for _, tc := range storeCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := c.Compile(tc.node)
			require.NoError(t, err)
			assert.Equal(t, tc.want, queryIDs(t, store, e), Describe(e))
		})
	}
}

func TestMemoryStoreQueries(t *testing.T) {
	runStoreCases(t, newMemoryStore(t, testOrders()))
}

func TestMemoryStoreMatchAll(t *testing.T) {
	store := newMemoryStore(t, testOrders())
	assert.Equal(t, []uint{1, 2, 3, 4, 5, 6}, queryIDs(t, store, nil))
	assert.Equal(t, []uint{1, 2, 3, 4, 5, 6}, queryIDs(t, store, MatchAll{}))
}

func TestMemoryStorePaging(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t, testOrders())
	res, err := store.Query(ctx, nil)
	require.NoError(t, err)
	defer res.Close()

	page, err := res.Page(ctx, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint{5, 6}, ids(page))

	page, err = res.Page(ctx, 3, 4)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = res.Page(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, page[0].Course)
	assert.Equal(t, "Go in Action", page[0].Course.Title)
}

func TestMemoryStoreResultIsStable(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t, testOrders())
	res, err := store.Query(ctx, nil)
	require.NoError(t, err)

	extra := Order{ID: 7, Amount: 1, Status: StatusPending, CreateTime: ts("2024-03-04T00:00:00Z"), CourseID: 1}
	require.NoError(t, store.Insert(ctx, nil, []Order{extra}))

	n, err := res.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
	assert.Len(t, queryIDs(t, store, nil), 7)
}

func TestEvaluateMissingValues(t *testing.T) {
	o := Order{ID: 1, Status: StatusPending}
	payTime := FieldRef{Column: "pay_time"}
	assert.False(t, Evaluate(EqExpr{Field: payTime, Value: ts("2024-01-01T00:00:00Z")}, o))
	assert.True(t, Evaluate(NotExpr{Operand: EqExpr{Field: payTime, Value: ts("2024-01-01T00:00:00Z")}}, o))
	assert.False(t, Evaluate(NotNullExpr{Field: payTime}, o))
	assert.False(t, Evaluate(EqExpr{Field: FieldRef{Relation: "course", Column: "title"}, Value: "x"}, o))
	assert.False(t, Evaluate(EqExpr{Field: FieldRef{Column: "amount"}, Value: "x"}, o))
}

// zonedOrders carry +08:00 timestamps. Stores must compare them by instant.
func zonedOrders() []Order {
	cst := time.FixedZone("CST", 8*3600)
	paid := time.Date(2024, 3, 1, 12, 30, 0, 0, cst)
	return []Order{
		{ID: 1, Amount: 5, Status: StatusPending, CreateTime: time.Date(2024, 3, 1, 10, 0, 0, 0, cst), Platform: "web", Province: "北京", ProductLine: "python", CourseID: 1},
		{ID: 2, Amount: 8, Status: StatusSuccess, CreateTime: time.Date(2024, 3, 1, 12, 0, 0, 0, cst), PayTime: &paid, Platform: "ios", Province: "上海", ProductLine: "ai", CourseID: 2},
	}
}

var zonedCases = []struct {
	name string
	node Node
	want []uint
}{
	{"created before", Where("order.create_time", "less", "2024-03-01T05:00:00Z"), []uint{1, 2}},
	{"created after", Where("order.create_time", "greater", "2024-03-01T03:00:00Z"), []uint{2}},
	{"created before instant", Where("order.create_time", "less", "2024-03-01T02:00:00Z"), []uint{}},
	{"created in range", Where("order.create_time", "between", []any{"2024-03-01T01:00:00Z", "2024-03-01T02:30:00Z"}), []uint{1}},
	{"paid after", Where("order.pay_time", "greater", "2024-03-01T04:15:00Z"), []uint{2}},
	{"paid before", Where("order.pay_time", "less", "2024-03-01T04:15:00Z"), []uint{}},
}

func runZonedCases(t *testing.T, store Store) {
	c := NewCompiler(nil)
	for _, tc := range zonedCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := c.Compile(tc.node)
			require.NoError(t, err)
			assert.Equal(t, tc.want, queryIDs(t, store, e), Describe(e))
		})
	}
}

func TestMemoryStoreZonedTimes(t *testing.T) {
	store := newMemoryStore(t, zonedOrders())
	runZonedCases(t, store)

	res, err := store.Query(context.Background(), nil)
	require.NoError(t, err)
	rows, err := res.All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, time.UTC, rows[0].CreateTime.Location())
	assert.Equal(t, ts("2024-03-01T04:30:00Z"), *rows[1].PayTime)
}
