package analytics

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Totals carries window-wide sums from the sales and expenses tables.
type Totals struct {
	Quantity int64
	Revenue  decimal.Decimal
	Cost     decimal.Decimal
	Profit   decimal.Decimal
	Expenses decimal.Decimal
}

// BucketRow is one time bucket of aggregated sales or expenses.
type BucketRow struct {
	Bucket   time.Time
	Quantity int64
	Revenue  decimal.Decimal
	Cost     decimal.Decimal
	Expenses decimal.Decimal
}

// SeriesPoint is a labelled value on a chart axis.
type SeriesPoint struct {
	Label string
	Value decimal.Decimal
}

// CategoryRollup aggregates sales per category.
type CategoryRollup struct {
	CategoryID    int64
	Name          string
	ProductCount  int64
	TotalQuantity int64
	TotalSales    decimal.Decimal
	TotalProfit   decimal.Decimal
	TotalExpenses decimal.Decimal
	SellThrough   decimal.Decimal
}

// ProductRollup aggregates sales per product.
type ProductRollup struct {
	ProductID     int64
	Name          string
	Category      string
	SaleCount     int64
	TotalQuantity int64
	TotalSales    decimal.Decimal
	TotalProfit   decimal.Decimal
	TotalExpenses decimal.Decimal
	SellThrough   decimal.Decimal
}

// LowStockItem is an inventory row at or under the alert threshold.
type LowStockItem struct {
	ProductID      int64  `json:"product_id"`
	Name           string `json:"name"`
	AvailableStock int64  `json:"available_stock"`
	InventoryQty   int64  `json:"inventory_qty"`
}

// User is the subset of the users table the reports need.
type User struct {
	ID        int64
	Email     string
	Name      string
	CreatedAt time.Time
}

// BreakdownEntry is one element of a stored per-entity revenue breakdown.
type BreakdownEntry struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ReportRecord mirrors a row of the reports table.
type ReportRecord struct {
	ID               int64
	ReportDate       time.Time
	TotalRevenue     decimal.Decimal
	TotalProfit      decimal.Decimal
	TotalExpenses    decimal.Decimal
	TotalQuantity    int64
	Metrics          DerivedMetrics
	RevenueByProduct json.RawMessage
	GeneratedAt      time.Time
}

// SalesAnalyticsRecord mirrors a row of the sales_analytics table.
type SalesAnalyticsRecord struct {
	ID                    int64
	ReportDate            time.Time
	TotalSales            decimal.Decimal
	TotalQuantity         int64
	TotalProfit           decimal.Decimal
	TotalExpenses         decimal.Decimal
	InventoryTurnoverRate decimal.Decimal
	StockToSalesRatio     decimal.Decimal
	SellThroughRate       decimal.Decimal
	RevenueByCategory     json.RawMessage
	GeneratedAt           time.Time
}

// Report is the decoded, client-facing product snapshot.
type Report struct {
	ID                    int64            `json:"report_id"`
	ReportDate            string           `json:"report_date"`
	TotalRevenue          decimal.Decimal  `json:"total_revenue"`
	TotalProfit           decimal.Decimal  `json:"total_profit"`
	TotalExpenses         decimal.Decimal  `json:"total_expenses"`
	TotalQuantity         int64            `json:"total_quantity"`
	GrossMargin           decimal.Decimal  `json:"gross_margin"`
	NetMargin             decimal.Decimal  `json:"net_margin"`
	ProfitMargin          decimal.Decimal  `json:"profit_margin"`
	InventoryTurnoverRate decimal.Decimal  `json:"inventory_turnover_rate"`
	StockToSalesRatio     decimal.Decimal  `json:"stock_to_sales_ratio"`
	SellThroughRate       decimal.Decimal  `json:"sell_through_rate"`
	YearOverYearGrowth    decimal.Decimal  `json:"year_over_year_growth"`
	RevenueByProduct      []BreakdownEntry `json:"revenue_by_product"`
	GeneratedAt           time.Time        `json:"generated_at"`
}

// SalesAnalytics is the decoded, client-facing category snapshot.
type SalesAnalytics struct {
	ID                    int64            `json:"id"`
	ReportDate            string           `json:"report_date"`
	TotalSales            decimal.Decimal  `json:"total_sales"`
	TotalQuantity         int64            `json:"total_quantity"`
	TotalProfit           decimal.Decimal  `json:"total_profit"`
	TotalExpenses         decimal.Decimal  `json:"total_expenses"`
	InventoryTurnoverRate decimal.Decimal  `json:"inventory_turnover_rate"`
	StockToSalesRatio     decimal.Decimal  `json:"stock_to_sales_ratio"`
	SellThroughRate       decimal.Decimal  `json:"sell_through_rate"`
	RevenueByCategory     []BreakdownEntry `json:"revenue_by_category"`
	GeneratedAt           time.Time        `json:"generated_at"`
}

// GeneratedReport is returned by a report generation run.
type GeneratedReport struct {
	Report         Report         `json:"report"`
	SalesAnalytics SalesAnalytics `json:"sales_analytics"`
	Notifications  []Notification `json:"notifications"`
}
