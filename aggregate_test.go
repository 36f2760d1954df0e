package orderlens

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("weekly_income_line")
	assert.True(t, errors.Is(err, ErrUnknownAggregationKind))
}

func TestTotalIncomeCountsOnlySuccess(t *testing.T) {
	rows := []Order{
		{ID: 1, Amount: 100, Status: StatusSuccess},
		{ID: 2, Amount: 200, Status: StatusSuccess},
		{ID: 3, Amount: 300, Status: StatusPending},
	}
	assert.Equal(t, Scalar{Value: 300}, TotalIncome(rows))
	assert.Equal(t, Scalar{Value: 0}, TotalIncome(nil))

	rows = []Order{{Amount: 0.1, Status: StatusSuccess}, {Amount: 0.2, Status: StatusSuccess}}
	assert.Equal(t, Scalar{Value: 0.3}, TotalIncome(rows))
}

func TestAggregations(t *testing.T) {
	rows := testOrders()

	assert.Equal(t, Distribution{Items: []NamedValue{
		{Name: "android", Value: 1},
		{Name: "ios", Value: 2},
		{Name: "web", Value: 3},
	}}, PlatformPie(rows))

	assert.Equal(t, GroupedTotals{
		Categories: []string{"ai", "python"},
		Values:     []float64{15, 5},
	}, ProductLineIncomeBar(rows))

	assert.Equal(t, TimeSeries{
		Dates:  []string{"2024-03-01"},
		Values: []float64{20},
	}, DailyIncomeLine(rows, time.UTC))

	assert.Equal(t, TimeSeries{
		Dates:  []string{"2024-03-01", "2024-03-02"},
		Values: []float64{5, 15},
	}, DailyIncomeLine(rows, time.FixedZone("CST", 8*3600)))

	assert.Equal(t, GeoBuckets{Items: []NamedValue{
		{Name: "上海", Value: 25},
		{Name: "北京", Value: 30},
		{Name: "广东", Value: 50.5},
	}}, ProvincesSalesMap(rows))
}

func TestAggregationsOnEmptyRows(t *testing.T) {
	e := NewEngine(nil)
	for _, k := range Kinds() {
		res, err := e.Aggregate(k.String(), nil)
		require.NoError(t, err)
		assert.Equal(t, k, res.Kind())
	}
	assert.Equal(t, Distribution{Items: []NamedValue{}}, PlatformPie(nil))
	assert.Equal(t, TimeSeries{Dates: []string{}, Values: []float64{}}, DailyIncomeLine(nil, time.UTC))
}

func TestEngineAggregate(t *testing.T) {
	e := NewEngine(time.FixedZone("CST", 8*3600))
	res, err := e.Aggregate("daily_income_line", testOrders())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, res.(TimeSeries).Dates)

	res, err = e.Aggregate("total_income", testOrders())
	require.NoError(t, err)
	assert.Equal(t, Scalar{Value: 20}, res)

	_, err = e.Aggregate("pie", testOrders())
	assert.True(t, errors.Is(err, ErrUnknownAggregationKind))
	assert.False(t, IsConditionError(err))
}
