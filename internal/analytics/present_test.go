package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineSeriesFormatsTwoDecimals(t *testing.T) {
	got := CombineSeries(
		[]SeriesPoint{{Label: "Jan 24", Value: d("100")}},
		[]SeriesPoint{{Label: "Jan 24", Value: d("40")}},
		[]SeriesPoint{{Label: "Jan 24", Value: d("10")}},
	)
	require.Len(t, got, 1)
	assert.Equal(t, CombinedPoint{Date: "Jan 24", Revenue: "100.00", TotalExpenses: "50.00", Profit: "50.00"}, got[0])
}

func TestCombineSeriesTreatsMissingAsZero(t *testing.T) {
	got := CombineSeries(
		[]SeriesPoint{{Label: "Jan 24", Value: d("10.5")}, {Label: "Feb 24", Value: d("0")}},
		nil,
		[]SeriesPoint{{Label: "Feb 24", Value: d("3.333")}, {Label: "Mar 24", Value: d("9")}},
	)
	require.Len(t, got, 2)
	assert.Equal(t, CombinedPoint{Date: "Jan 24", Revenue: "10.50", TotalExpenses: "0.00", Profit: "10.50"}, got[0])
	assert.Equal(t, CombinedPoint{Date: "Feb 24", Revenue: "0.00", TotalExpenses: "3.33", Profit: "-3.33"}, got[1])
}

func TestTopNReturnsAllWhenFewer(t *testing.T) {
	b := NewBreakdown()
	b.Add("Kopi", d("50"))
	b.Add("Teh", d("75"))
	got := TopN(b, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "Teh", got[0].Name)
	assert.Equal(t, "Kopi", got[1].Name)
}

func TestTopNTiesKeepInsertionOrder(t *testing.T) {
	b := NewBreakdown()
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		b.Add(name, d("10"))
	}
	b.Add("G", d("11"))
	b.Add("A", d("0.5"))
	got := TopN(b, 0)
	require.Len(t, got, DefaultTopN)
	names := []string{got[0].Name, got[1].Name, got[2].Name, got[3].Name, got[4].Name}
	assert.Equal(t, []string{"G", "A", "B", "C", "D"}, names)
}

func TestBuildChartDataFillsGaps(t *testing.T) {
	w := Resolve(RangeWeekly, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), YearFull)
	data := BuildChartData(Aggregates{
		Window:   w,
		Sales:    []BucketRow{{Bucket: ymd(2024, 1, 16), Quantity: 4, Revenue: d("40"), Cost: d("10")}},
		Expenses: []BucketRow{{Bucket: ymd(2024, 1, 16), Expenses: d("5")}, {Bucket: ymd(2024, 1, 20), Expenses: d("2")}},
		Categories: []CategoryRollup{
			{Name: "Minuman", TotalSales: d("40")},
			{Name: "Makanan"},
		},
		Products: []ProductRollup{{Name: "Kopi", TotalSales: d("40")}},
	})
	require.Len(t, data.Column, 7)
	assert.Equal(t, QuantityPoint{Date: "16 Jan", Quantity: 4}, data.Column[1])
	assert.Equal(t, "25.00", data.LineArea[1].Profit)
	assert.Equal(t, "-2.00", data.LineArea[5].Profit)
	assert.Equal(t, []CategorySlice{{Category: "Minuman", Value: "40.00"}}, data.Pie)
	assert.Equal(t, []ProductBar{{Name: "Kopi", Sales: "40.00"}}, data.Basic)
}

func TestLineItemsDisplay(t *testing.T) {
	items := LineItems(Report{TotalRevenue: d("1234.5"), ProfitMargin: d("12.3456"), TotalQuantity: 7})
	require.Len(t, items, 11)
	assert.Equal(t, "1234.50", items[0].Display())
	assert.Equal(t, "7", items[3].Display())
	assert.Equal(t, "12.35%", items[6].Display())
}
