package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTopN is the number of entities shown in ranking widgets.
const DefaultTopN = 5

// Breakdown accumulates amounts per name while remembering first-seen order.
type Breakdown struct {
	order  []string
	totals map[string]decimal.Decimal
}

// NewBreakdown returns an empty accumulator.
func NewBreakdown() *Breakdown {
	return &Breakdown{totals: make(map[string]decimal.Decimal)}
}

// Add sums amount into name.
func (b *Breakdown) Add(name string, amount decimal.Decimal) {
	if current, ok := b.totals[name]; ok {
		b.totals[name] = current.Add(amount)
		return
	}
	b.order = append(b.order, name)
	b.totals[name] = amount
}

// AddEntries sums every entry of a stored breakdown.
func (b *Breakdown) AddEntries(entries []BreakdownEntry) {
	for _, e := range entries {
		b.Add(e.Name, e.Amount)
	}
}

// Len reports the number of distinct names.
func (b *Breakdown) Len() int {
	if b == nil {
		return 0
	}
	return len(b.order)
}

// Entries returns the accumulated amounts in insertion order.
func (b *Breakdown) Entries() []BreakdownEntry {
	if b == nil {
		return []BreakdownEntry{}
	}
	out := make([]BreakdownEntry, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, BreakdownEntry{Name: name, Amount: b.totals[name]})
	}
	return out
}

// RankedEntry is a display row of a top-N ranking.
type RankedEntry struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// TopN returns the n largest entries by amount. Ties keep insertion order.
// n <= 0 selects DefaultTopN.
func TopN(b *Breakdown, n int) []BreakdownEntry {
	if n <= 0 {
		n = DefaultTopN
	}
	entries := b.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Amount.GreaterThan(entries[j].Amount)
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// CombinedPoint is one bucket of the revenue/expense/profit area chart.
type CombinedPoint struct {
	Date          string `json:"date"`
	Revenue       string `json:"revenue"`
	TotalExpenses string `json:"total_expenses"`
	Profit        string `json:"profit"`
}

// CombineSeries left-joins cost and expense onto revenue by label.
// Missing entries count as zero; all values carry two decimals.
func CombineSeries(revenue, cost, expense []SeriesPoint) []CombinedPoint {
	costs := indexSeries(cost)
	expenses := indexSeries(expense)
	out := make([]CombinedPoint, 0, len(revenue))
	for _, point := range revenue {
		spent := costs[point.Label].Add(expenses[point.Label])
		out = append(out, CombinedPoint{
			Date:          point.Label,
			Revenue:       money(point.Value),
			TotalExpenses: money(spent),
			Profit:        money(point.Value.Sub(spent)),
		})
	}
	return out
}

func indexSeries(series []SeriesPoint) map[string]decimal.Decimal {
	idx := make(map[string]decimal.Decimal, len(series))
	for _, p := range series {
		idx[p.Label] = idx[p.Label].Add(p.Value)
	}
	return idx
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ProductBar feeds the top products bar chart.
type ProductBar struct {
	Name  string `json:"name"`
	Sales string `json:"sales"`
}

// CategorySlice feeds the revenue by category pie.
type CategorySlice struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// QuantityPoint feeds the units sold column chart.
type QuantityPoint struct {
	Date     string `json:"date"`
	Quantity int64  `json:"quantity"`
}

// ChartData is the payload of the chart widgets, keyed by widget id.
type ChartData struct {
	Basic    []ProductBar    `json:"apex-basic"`
	LineArea []CombinedPoint `json:"apex-line-area"`
	Pie      []CategorySlice `json:"am-3dpie-chart"`
	Column   []QuantityPoint `json:"apex-column"`
}

// Aggregates bundles the query results a chart payload is built from.
type Aggregates struct {
	Window     Window
	Sales      []BucketRow
	Expenses   []BucketRow
	Categories []CategoryRollup
	Products   []ProductRollup
}

// BuildChartData shapes aggregates into the widget series.
func BuildChartData(a Aggregates) ChartData {
	revenue, cost, expense, quantity := fillSeries(a.Window, a.Sales, a.Expenses)

	products := NewBreakdown()
	for _, p := range a.Products {
		products.Add(p.Name, p.TotalSales)
	}
	basic := make([]ProductBar, 0, DefaultTopN)
	for _, e := range TopN(products, DefaultTopN) {
		basic = append(basic, ProductBar{Name: e.Name, Sales: money(e.Amount)})
	}

	pie := make([]CategorySlice, 0, len(a.Categories))
	for _, c := range a.Categories {
		if c.TotalSales.IsZero() {
			continue
		}
		pie = append(pie, CategorySlice{Category: c.Name, Value: money(c.TotalSales)})
	}

	return ChartData{
		Basic:    basic,
		LineArea: CombineSeries(revenue, cost, expense),
		Pie:      pie,
		Column:   quantity,
	}
}

// fillSeries lays the sparse bucket rows onto every bucket of the window.
func fillSeries(w Window, sales, expenses []BucketRow) (revenue, cost, expense []SeriesPoint, quantity []QuantityPoint) {
	salesByBucket := make(map[string]BucketRow, len(sales))
	for _, row := range sales {
		salesByBucket[keyOf(row.Bucket, w.Granularity)] = row
	}
	expensesByBucket := make(map[string]decimal.Decimal, len(expenses))
	for _, row := range expenses {
		k := keyOf(row.Bucket, w.Granularity)
		expensesByBucket[k] = expensesByBucket[k].Add(row.Expenses)
	}

	buckets := w.Buckets()
	revenue = make([]SeriesPoint, 0, len(buckets))
	cost = make([]SeriesPoint, 0, len(buckets))
	expense = make([]SeriesPoint, 0, len(buckets))
	quantity = make([]QuantityPoint, 0, len(buckets))
	for _, b := range buckets {
		label := w.Granularity.Label(b)
		k := keyOf(b, w.Granularity)
		row := salesByBucket[k]
		revenue = append(revenue, SeriesPoint{Label: label, Value: row.Revenue})
		cost = append(cost, SeriesPoint{Label: label, Value: row.Cost})
		expense = append(expense, SeriesPoint{Label: label, Value: expensesByBucket[k]})
		quantity = append(quantity, QuantityPoint{Date: label, Quantity: row.Quantity})
	}
	return revenue, cost, expense, quantity
}

func keyOf(t time.Time, g Granularity) string {
	return formatDate(bucketStart(t, g))
}

// LineUnit tells renderers how to format a line item value.
type LineUnit string

const (
	UnitMoney   LineUnit = "money"
	UnitPercent LineUnit = "percent"
	UnitRatio   LineUnit = "ratio"
	UnitCount   LineUnit = "count"
)

// LineItem is one labelled figure of an exported report.
type LineItem struct {
	Label string
	Value decimal.Decimal
	Unit  LineUnit
}

// Display renders the value with two decimals and a unit suffix.
func (l LineItem) Display() string {
	switch l.Unit {
	case UnitPercent:
		return money(l.Value) + "%"
	case UnitCount:
		return l.Value.StringFixed(0)
	default:
		return money(l.Value)
	}
}

// LineItems lists the snapshot figures in export order.
func LineItems(r Report) []LineItem {
	return []LineItem{
		{Label: "Total Revenue", Value: r.TotalRevenue, Unit: UnitMoney},
		{Label: "Total Profit", Value: r.TotalProfit, Unit: UnitMoney},
		{Label: "Total Expenses", Value: r.TotalExpenses, Unit: UnitMoney},
		{Label: "Units Sold", Value: decimal.NewFromInt(r.TotalQuantity), Unit: UnitCount},
		{Label: "Gross Margin", Value: r.GrossMargin, Unit: UnitMoney},
		{Label: "Net Margin", Value: r.NetMargin, Unit: UnitMoney},
		{Label: "Profit Margin", Value: r.ProfitMargin, Unit: UnitPercent},
		{Label: "Inventory Turnover Rate", Value: r.InventoryTurnoverRate, Unit: UnitRatio},
		{Label: "Stock to Sales Ratio", Value: r.StockToSalesRatio, Unit: UnitPercent},
		{Label: "Sell-through Rate", Value: r.SellThroughRate, Unit: UnitRatio},
		{Label: "Year over Year Growth", Value: r.YearOverYearGrowth, Unit: UnitPercent},
	}
}
