package analytics

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DerivedMetrics are the ratios stored alongside every report snapshot.
type DerivedMetrics struct {
	GrossMargin           decimal.Decimal `json:"gross_margin"`
	NetMargin             decimal.Decimal `json:"net_margin"`
	ProfitMargin          decimal.Decimal `json:"profit_margin"`
	InventoryTurnoverRate decimal.Decimal `json:"inventory_turnover_rate"`
	StockToSalesRatio     decimal.Decimal `json:"stock_to_sales_ratio"`
	SellThroughRate       decimal.Decimal `json:"sell_through_rate"`
	YearOverYearGrowth    decimal.Decimal `json:"year_over_year_growth"`
}

// GrossMargin is sales minus profit, as the dashboards have always shown it.
func GrossMargin(totalSales, totalProfit decimal.Decimal) decimal.Decimal {
	return totalSales.Sub(totalProfit)
}

// NetMargin equals total profit; expenses are not subtracted.
// NetProfit carries the expense-adjusted figure.
func NetMargin(totalProfit decimal.Decimal) decimal.Decimal {
	return totalProfit
}

// NetProfit is profit after operating expenses.
func NetProfit(totalProfit, totalExpenses decimal.Decimal) decimal.Decimal {
	return totalProfit.Sub(totalExpenses)
}

// ProfitMargin is profit as a percentage of sales.
func ProfitMargin(totalProfit, totalSales decimal.Decimal) decimal.Decimal {
	if totalSales.IsZero() {
		return decimal.Zero
	}
	return totalProfit.Div(totalSales).Mul(hundred)
}

// InventoryTurnoverRate is sales value per unit sold.
func InventoryTurnoverRate(totalSales decimal.Decimal, totalQuantity int64) decimal.Decimal {
	if totalQuantity == 0 {
		return decimal.Zero
	}
	return totalSales.Div(decimal.NewFromInt(totalQuantity))
}

// StockToSalesRatio is units sold per unit of sales value, in percent.
func StockToSalesRatio(totalQuantity int64, totalSales decimal.Decimal) decimal.Decimal {
	if totalSales.IsZero() || totalQuantity == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(totalQuantity).Div(totalSales).Mul(hundred)
}

// SellThroughRate divides the turnover ratio by 100 once more.
// Downstream exports depend on this magnitude.
func SellThroughRate(totalSales decimal.Decimal, totalQuantity int64) decimal.Decimal {
	if totalQuantity == 0 {
		return decimal.Zero
	}
	return totalSales.Div(decimal.NewFromInt(totalQuantity)).Div(hundred)
}

// YearOverYearGrowth compares revenue against the same window a year earlier.
// A missing or zero baseline yields 0.
func YearOverYearGrowth(current decimal.Decimal, previous *decimal.Decimal) decimal.Decimal {
	if previous == nil || previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(*previous).Div(*previous).Mul(hundred)
}

// Derive computes every snapshot ratio from raw totals.
func Derive(t Totals, previousRevenue *decimal.Decimal) DerivedMetrics {
	return DerivedMetrics{
		GrossMargin:           GrossMargin(t.Revenue, t.Profit),
		NetMargin:             NetMargin(t.Profit),
		ProfitMargin:          ProfitMargin(t.Profit, t.Revenue),
		InventoryTurnoverRate: InventoryTurnoverRate(t.Revenue, t.Quantity),
		StockToSalesRatio:     StockToSalesRatio(t.Quantity, t.Revenue),
		SellThroughRate:       SellThroughRate(t.Revenue, t.Quantity),
		YearOverYearGrowth:    YearOverYearGrowth(t.Revenue, previousRevenue),
	}
}

// Rounded returns the metrics rounded to the storage scale.
func (m DerivedMetrics) Rounded() DerivedMetrics {
	const places = 4
	return DerivedMetrics{
		GrossMargin:           m.GrossMargin.Round(places),
		NetMargin:             m.NetMargin.Round(places),
		ProfitMargin:          m.ProfitMargin.Round(places),
		InventoryTurnoverRate: m.InventoryTurnoverRate.Round(places),
		StockToSalesRatio:     m.StockToSalesRatio.Round(places),
		SellThroughRate:       m.SellThroughRate.Round(places),
		YearOverYearGrowth:    m.YearOverYearGrowth.Round(places),
	}
}
