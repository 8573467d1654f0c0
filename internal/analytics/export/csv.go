package export

import (
	"encoding/csv"
	"io"

	"github.com/odyssey-erp/backoffice/internal/analytics"
)

// WriteReportCSV serialises a day's snapshots: headline figures first, then
// the product and category breakdowns.
func WriteReportCSV(w io.Writer, report analytics.Report, sales analytics.SalesAnalytics) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	if err := writer.Write([]string{"Report Date", report.ReportDate}); err != nil {
		return err
	}
	for _, item := range analytics.LineItems(report) {
		if err := writer.Write([]string{item.Label, item.Display()}); err != nil {
			return err
		}
	}
	if err := writeBreakdown(writer, "Product", report.RevenueByProduct); err != nil {
		return err
	}
	if err := writeBreakdown(writer, "Category", sales.RevenueByCategory); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeBreakdown(writer *csv.Writer, heading string, entries []analytics.BreakdownEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := writer.Write(nil); err != nil {
		return err
	}
	if err := writer.Write([]string{heading, "Revenue"}); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := writer.Write([]string{entry.Name, entry.Amount.StringFixed(2)}); err != nil {
			return err
		}
	}
	return nil
}
