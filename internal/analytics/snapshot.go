package analytics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var errBreakdownShape = errors.New("breakdown is not a JSON array")

// EncodeBreakdown serialises entries for a jsonb breakdown column.
// A nil slice is stored as an empty array.
func EncodeBreakdown(entries []BreakdownEntry) (json.RawMessage, error) {
	if entries == nil {
		entries = []BreakdownEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("analytics: encode breakdown: %w", err)
	}
	return raw, nil
}

// DecodeBreakdown parses a stored breakdown. Empty input and JSON null
// decode to an empty list; anything else that is not an array of
// {name, amount} objects is an error.
func DecodeBreakdown(raw []byte) ([]BreakdownEntry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []BreakdownEntry{}, nil
	}
	if trimmed[0] != '[' {
		return []BreakdownEntry{}, errBreakdownShape
	}
	var entries []BreakdownEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return []BreakdownEntry{}, err
	}
	if entries == nil {
		entries = []BreakdownEntry{}
	}
	return entries, nil
}

// productBreakdown lists revenue per product in rollup order.
func productBreakdown(rows []ProductRollup) []BreakdownEntry {
	out := make([]BreakdownEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, BreakdownEntry{Name: r.Name, Amount: r.TotalSales})
	}
	return out
}

// categoryBreakdown lists revenue per category, skipping idle categories.
func categoryBreakdown(rows []CategoryRollup) []BreakdownEntry {
	out := make([]BreakdownEntry, 0, len(rows))
	for _, r := range rows {
		if r.TotalSales.IsZero() && r.TotalQuantity == 0 {
			continue
		}
		out = append(out, BreakdownEntry{Name: r.Name, Amount: r.TotalSales})
	}
	return out
}

// newReportRecord assembles the reports row for one date.
func newReportRecord(date time.Time, totals Totals, metrics DerivedMetrics, products []ProductRollup) (ReportRecord, error) {
	raw, err := EncodeBreakdown(productBreakdown(products))
	if err != nil {
		return ReportRecord{}, err
	}
	return ReportRecord{
		ReportDate:       civilDate(date),
		TotalRevenue:     totals.Revenue,
		TotalProfit:      totals.Profit,
		TotalExpenses:    totals.Expenses,
		TotalQuantity:    totals.Quantity,
		Metrics:          metrics.Rounded(),
		RevenueByProduct: raw,
	}, nil
}

// newSalesAnalyticsRecord assembles the sales_analytics row for one date.
func newSalesAnalyticsRecord(date time.Time, totals Totals, metrics DerivedMetrics, categories []CategoryRollup) (SalesAnalyticsRecord, error) {
	raw, err := EncodeBreakdown(categoryBreakdown(categories))
	if err != nil {
		return SalesAnalyticsRecord{}, err
	}
	rounded := metrics.Rounded()
	return SalesAnalyticsRecord{
		ReportDate:            civilDate(date),
		TotalSales:            totals.Revenue,
		TotalQuantity:         totals.Quantity,
		TotalProfit:           totals.Profit,
		TotalExpenses:         totals.Expenses,
		InventoryTurnoverRate: rounded.InventoryTurnoverRate,
		StockToSalesRatio:     rounded.StockToSalesRatio,
		SellThroughRate:       rounded.SellThroughRate,
		RevenueByCategory:     raw,
	}, nil
}

func reportFromRecord(rec ReportRecord, products []BreakdownEntry) Report {
	return Report{
		ID:                    rec.ID,
		ReportDate:            formatDate(rec.ReportDate),
		TotalRevenue:          rec.TotalRevenue,
		TotalProfit:           rec.TotalProfit,
		TotalExpenses:         rec.TotalExpenses,
		TotalQuantity:         rec.TotalQuantity,
		GrossMargin:           rec.Metrics.GrossMargin,
		NetMargin:             rec.Metrics.NetMargin,
		ProfitMargin:          rec.Metrics.ProfitMargin,
		InventoryTurnoverRate: rec.Metrics.InventoryTurnoverRate,
		StockToSalesRatio:     rec.Metrics.StockToSalesRatio,
		SellThroughRate:       rec.Metrics.SellThroughRate,
		YearOverYearGrowth:    rec.Metrics.YearOverYearGrowth,
		RevenueByProduct:      products,
		GeneratedAt:           rec.GeneratedAt,
	}
}

func salesAnalyticsFromRecord(rec SalesAnalyticsRecord, categories []BreakdownEntry) SalesAnalytics {
	return SalesAnalytics{
		ID:                    rec.ID,
		ReportDate:            formatDate(rec.ReportDate),
		TotalSales:            rec.TotalSales,
		TotalQuantity:         rec.TotalQuantity,
		TotalProfit:           rec.TotalProfit,
		TotalExpenses:         rec.TotalExpenses,
		InventoryTurnoverRate: rec.InventoryTurnoverRate,
		StockToSalesRatio:     rec.StockToSalesRatio,
		SellThroughRate:       rec.SellThroughRate,
		RevenueByCategory:     categories,
		GeneratedAt:           rec.GeneratedAt,
	}
}
