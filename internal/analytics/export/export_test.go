package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/backoffice/internal/analytics"
	"github.com/odyssey-erp/backoffice/report"
)

func sampleReport() (analytics.Report, analytics.SalesAnalytics) {
	r := analytics.Report{
		ReportDate:    "2024-03-05",
		TotalRevenue:  decimal.RequireFromString("1234.5"),
		TotalProfit:   decimal.RequireFromString("400"),
		TotalQuantity: 12,
		ProfitMargin:  decimal.RequireFromString("32.4"),
		RevenueByProduct: []analytics.BreakdownEntry{
			{Name: "kopi susu", Amount: decimal.RequireFromString("1000")},
			{Name: "teh <manis>", Amount: decimal.RequireFromString("234.5")},
		},
	}
	s := analytics.SalesAnalytics{
		ReportDate:        "2024-03-05",
		RevenueByCategory: []analytics.BreakdownEntry{{Name: "Minuman", Amount: decimal.RequireFromString("1234.5")}},
	}
	return r, s
}

func TestWriteReportCSV(t *testing.T) {
	r, s := sampleReport()
	buf := &bytes.Buffer{}
	if err := WriteReportCSV(buf, r, s); err != nil {
		t.Fatalf("report csv error: %v", err)
	}
	reader := csv.NewReader(bytes.NewReader(buf.Bytes()))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	// header, date, 11 line items, product heading + 2, category heading + 1
	if len(records) != 18 {
		t.Fatalf("expected 18 rows, got %d: %v", len(records), records)
	}
	if records[2][0] != "Total Revenue" || records[2][1] != "1234.50" {
		t.Fatalf("unexpected first figure %v", records[2])
	}
	if records[14][0] != "kopi susu" || records[14][1] != "1000.00" {
		t.Fatalf("unexpected product row %v", records[14])
	}
	if records[17][0] != "Minuman" {
		t.Fatalf("unexpected category row %v", records[17])
	}
}

type captureRenderer struct {
	filename string
	html     string
}

func (c *captureRenderer) RenderHTML(_ context.Context, filename, html string) ([]byte, error) {
	c.filename = filename
	c.html = html
	return []byte("PDF"), nil
}

func TestBuildHTMLIncludesChartsAndEscapes(t *testing.T) {
	r, s := sampleReport()
	prev := r
	prev.ReportDate = "2024-03-04"
	prev.TotalRevenue = decimal.RequireFromString("900")
	renderer := &captureRenderer{}
	exporter := NewPDFExporter(renderer, language.English)

	data, err := exporter.RenderReport(context.Background(), ReportPayload{Report: r, SalesAnalytics: s, Trend: []analytics.Report{prev, r}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(data) != "PDF" || renderer.filename != "report-2024-03-05.html" {
		t.Fatalf("unexpected render call %q %q", data, renderer.filename)
	}
	html := renderer.html
	for _, want := range []string{"Sales Report 2024-03-05", "1,234.50", "Kopi Susu", "&lt;Manis&gt;", "Revenue trend", "Top products"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in html", want)
		}
	}
	if strings.Contains(html, "<manis>") {
		t.Fatalf("product names must be escaped")
	}
}

func TestBuildHTMLSkipsTrendWithSingleSnapshot(t *testing.T) {
	r, s := sampleReport()
	exporter := NewPDFExporter(&captureRenderer{}, language.English)
	html, err := exporter.BuildHTML(ReportPayload{Report: r, SalesAnalytics: s, Trend: []analytics.Report{r}})
	if err != nil {
		t.Fatalf("build html: %v", err)
	}
	if strings.Contains(html, "Revenue trend") {
		t.Fatalf("trend chart needs at least two points")
	}
}

func TestPDFExporterThroughGotenberg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("unexpected parse error: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("PDF"))
	}))
	defer srv.Close()

	r, s := sampleReport()
	exporter := NewPDFExporter(report.NewClient(srv.URL), language.English)
	data, err := exporter.RenderReport(context.Background(), ReportPayload{Report: r, SalesAnalytics: s})
	if err != nil {
		t.Fatalf("pdf render error: %v", err)
	}
	if string(data) != "PDF" {
		t.Fatalf("unexpected payload %q", string(data))
	}
}

func TestNilExporter(t *testing.T) {
	var exporter *PDFExporter
	if _, err := exporter.RenderReport(context.Background(), ReportPayload{}); err == nil {
		t.Fatalf("expected error")
	}
}
