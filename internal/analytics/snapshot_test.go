package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBreakdownToleratesBadInput(t *testing.T) {
	for _, raw := range []string{"", "  ", "null"} {
		entries, err := DecodeBreakdown([]byte(raw))
		require.NoError(t, err, raw)
		assert.Empty(t, entries, raw)
		assert.NotNil(t, entries, raw)
	}
	for _, raw := range []string{"{}", `[{"name":`, `"Kopi"`, `[{"name":"Kopi","amount":"abc"}]`} {
		entries, err := DecodeBreakdown([]byte(raw))
		assert.Error(t, err, raw)
		assert.Empty(t, entries, raw)
	}
}

func TestEncodeBreakdownRoundTrip(t *testing.T) {
	raw, err := EncodeBreakdown(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	raw, err = EncodeBreakdown([]BreakdownEntry{{Name: "Kopi", Amount: d("12.50")}})
	require.NoError(t, err)
	entries, err := DecodeBreakdown(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Amount.Equal(d("12.5")))
}

func TestNewSalesAnalyticsRecordSkipsIdleCategories(t *testing.T) {
	rec, err := newSalesAnalyticsRecord(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), Totals{Quantity: 2, Revenue: d("20")}, Derive(Totals{Quantity: 2, Revenue: d("20")}, nil), []CategoryRollup{
		{Name: "Minuman", TotalSales: d("20"), TotalQuantity: 2},
		{Name: "Makanan"},
	})
	require.NoError(t, err)
	assert.Equal(t, ymd(2024, 1, 2), rec.ReportDate)
	assert.True(t, strings.Contains(string(rec.RevenueByCategory), "Minuman"))
	assert.False(t, strings.Contains(string(rec.RevenueByCategory), "Makanan"))
	assert.True(t, rec.InventoryTurnoverRate.Equal(d("10")))
}

func TestUpsertStatementsAreAtomic(t *testing.T) {
	for _, q := range []string{upsertReportQuery, upsertSalesAnalyticsQuery} {
		assert.Contains(t, q, "ON CONFLICT (report_date) DO UPDATE SET")
		assert.NotContains(t, strings.ToUpper(q), "SELECT")
	}
}

func TestGranularityUnitIsWhitelisted(t *testing.T) {
	assert.Equal(t, "day", Granularity("day; DROP TABLE sales").unit())
	assert.Equal(t, "month", GranularityMonth.unit())
}

func TestProductRollupsCarryCountAndExpenseShare(t *testing.T) {
	assert.Contains(t, productRollupsQuery, "COUNT(s.id) AS sale_count")
	assert.Contains(t, productRollupsQuery, "spent.amount * sold.sales / NULLIF(cs.sales, 0)")
	assert.Contains(t, productRollupsQuery, "LEFT JOIN spent ON spent.category = c.category_name")
	assert.Contains(t, productRollupsQuery, "NULLIF(sold.cost_sum, 0)")
}
