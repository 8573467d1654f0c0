package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Notification kinds and levels.
const (
	KindInventory = "inventory"
	KindReport    = "report"

	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Notification is a threshold alert attached to a generated report.
type Notification struct {
	Kind      string `json:"kind"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	ProductID *int64 `json:"product_id,omitempty"`
}

// Thresholds configures when notifications fire.
type Thresholds struct {
	LowStock          int64
	ProfitMarginFloor decimal.Decimal
}

// DefaultThresholds mirrors the configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{LowStock: 10, ProfitMarginFloor: decimal.NewFromInt(10)}
}

// Notify evaluates the snapshot and the low stock rows against thresholds.
func Notify(report Report, lowStock []LowStockItem, th Thresholds) []Notification {
	out := make([]Notification, 0, len(lowStock)+2)
	for _, item := range lowStock {
		if item.AvailableStock > th.LowStock {
			continue
		}
		id := item.ProductID
		n := Notification{
			Kind:      KindInventory,
			Level:     LevelWarning,
			Message:   fmt.Sprintf("%s is running low: %d available", item.Name, item.AvailableStock),
			ProductID: &id,
		}
		if item.AvailableStock <= 0 {
			n.Level = LevelCritical
			n.Message = fmt.Sprintf("%s is out of stock", item.Name)
		}
		out = append(out, n)
	}
	if report.TotalRevenue.IsPositive() && report.ProfitMargin.LessThan(th.ProfitMarginFloor) {
		out = append(out, Notification{
			Kind:    KindReport,
			Level:   LevelWarning,
			Message: fmt.Sprintf("profit margin %s%% is below %s%% on %s", report.ProfitMargin.StringFixed(2), th.ProfitMarginFloor.StringFixed(2), report.ReportDate),
		})
	}
	if report.YearOverYearGrowth.IsNegative() {
		out = append(out, Notification{
			Kind:    KindReport,
			Level:   LevelInfo,
			Message: fmt.Sprintf("revenue is down %s%% year over year", report.YearOverYearGrowth.Abs().StringFixed(2)),
		})
	}
	return out
}
