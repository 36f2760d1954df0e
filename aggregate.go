package orderlens

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Kind names one analytic view over a cached result set.
type Kind int

const (
	KindPlatformPie Kind = iota
	KindProductLineIncomeBar
	KindDailyIncomeLine
	KindTotalIncome
	KindProvincesSalesMap
)

var kindNames = [...]string{
	KindPlatformPie:          "platform_pie",
	KindProductLineIncomeBar: "product_line_income_bar",
	KindDailyIncomeLine:      "daily_income_line",
	KindTotalIncome:          "total_income",
	KindProvincesSalesMap:    "provinces_sales_map",
}

func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAggregationKind, name)
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds lists every aggregation kind.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

// AggregateResult is one of Distribution, GroupedTotals, TimeSeries, Scalar or GeoBuckets.
type AggregateResult interface {
	Kind() Kind
}

type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Distribution counts rows per category.
type Distribution struct {
	Items []NamedValue `json:"items"`
}

// GroupedTotals sums amounts per category; Categories and Values are parallel.
type GroupedTotals struct {
	Categories []string  `json:"categories"`
	Values     []float64 `json:"values"`
}

// TimeSeries sums amounts per calendar day; Dates are YYYY-MM-DD.
type TimeSeries struct {
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
}

type Scalar struct {
	Value float64 `json:"value"`
}

// GeoBuckets sums amounts per region.
type GeoBuckets struct {
	Items []NamedValue `json:"items"`
}

func (Distribution) Kind() Kind  { return KindPlatformPie }
func (GroupedTotals) Kind() Kind { return KindProductLineIncomeBar }
func (TimeSeries) Kind() Kind    { return KindDailyIncomeLine }
func (Scalar) Kind() Kind        { return KindTotalIncome }
func (GeoBuckets) Kind() Kind    { return KindProvincesSalesMap }

// AggregateFunc derives one view from a materialised row set. It must not
// retain or modify rows.
type AggregateFunc func(rows []Order) AggregateResult

// Engine is the fixed registry of aggregation functions.
type Engine struct {
	funcs map[Kind]AggregateFunc
}

// NewEngine builds the registry. loc is the zone calendar days are taken in;
// nil means UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{funcs: map[Kind]AggregateFunc{
		KindPlatformPie:          PlatformPie,
		KindProductLineIncomeBar: ProductLineIncomeBar,
		KindDailyIncomeLine:      func(rows []Order) AggregateResult { return DailyIncomeLine(rows, loc) },
		KindTotalIncome:          TotalIncome,
		KindProvincesSalesMap:    ProvincesSalesMap,
	}}
}

func (e *Engine) Aggregate(name string, rows []Order) (AggregateResult, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	fn, ok := e.funcs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregationKind, name)
	}
	return fn(rows), nil
}

func PlatformPie(rows []Order) AggregateResult {
	counts := make(map[string]int64)
	for _, o := range rows {
		counts[o.Platform]++
	}
	items := make([]NamedValue, 0, len(counts))
	for name, n := range counts {
		items = append(items, NamedValue{Name: name, Value: float64(n)})
	}
	sortNamed(items)
	return Distribution{Items: items}
}

func ProductLineIncomeBar(rows []Order) AggregateResult {
	sums := sumBy(rows, func(o Order) (string, bool) {
		return o.ProductLine, o.Status == StatusSuccess
	})
	keys := sortedKeys(sums)
	out := GroupedTotals{Categories: keys, Values: make([]float64, 0, len(keys))}
	for _, k := range keys {
		out.Values = append(out.Values, money(sums[k]))
	}
	return out
}

// DailyIncomeLine sums successful payments per pay date in loc. Days without
// payments are not filled in.
func DailyIncomeLine(rows []Order, loc *time.Location) AggregateResult {
	sums := sumBy(rows, func(o Order) (string, bool) {
		if o.Status != StatusSuccess || o.PayTime == nil {
			return "", false
		}
		return o.PayTime.In(loc).Format(time.DateOnly), true
	})
	keys := sortedKeys(sums)
	out := TimeSeries{Dates: keys, Values: make([]float64, 0, len(keys))}
	for _, k := range keys {
		out.Values = append(out.Values, money(sums[k]))
	}
	return out
}

func TotalIncome(rows []Order) AggregateResult {
	total := decimal.Zero
	for _, o := range rows {
		if o.Status == StatusSuccess {
			total = total.Add(decimal.NewFromFloat(o.Amount))
		}
	}
	return Scalar{Value: money(total)}
}

func ProvincesSalesMap(rows []Order) AggregateResult {
	sums := sumBy(rows, func(o Order) (string, bool) { return o.Province, true })
	items := make([]NamedValue, 0, len(sums))
	for name, v := range sums {
		items = append(items, NamedValue{Name: name, Value: money(v)})
	}
	sortNamed(items)
	return GeoBuckets{Items: items}
}

func sumBy(rows []Order, key func(Order) (string, bool)) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, o := range rows {
		k, ok := key(o)
		if !ok {
			continue
		}
		sums[k] = sums[k].Add(decimal.NewFromFloat(o.Amount))
	}
	return sums
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortNamed(items []NamedValue) {
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
}
