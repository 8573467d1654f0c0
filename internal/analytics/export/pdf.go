package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/backoffice/internal/analytics"
	"github.com/odyssey-erp/backoffice/internal/analytics/svg"
)

// HTMLRenderer converts an HTML document into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, filename, html string) ([]byte, error)
}

// ReportPayload aggregates snapshot data destined for PDF rendering.
type ReportPayload struct {
	Report         analytics.Report
	SalesAnalytics analytics.SalesAnalytics
	Trend          []analytics.Report
}

// PDFExporter lays out a report as HTML and hands it to the renderer.
type PDFExporter struct {
	renderer HTMLRenderer
	printer  *message.Printer
	caser    cases.Caser
}

// NewPDFExporter builds an exporter formatting numbers for the given locale.
func NewPDFExporter(renderer HTMLRenderer, tag language.Tag) *PDFExporter {
	return &PDFExporter{
		renderer: renderer,
		printer:  message.NewPrinter(tag),
		caser:    cases.Title(tag),
	}
}

// RenderReport returns the PDF bytes for one day's snapshots.
func (p *PDFExporter) RenderReport(ctx context.Context, payload ReportPayload) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	html, err := p.BuildHTML(payload)
	if err != nil {
		return nil, err
	}
	return p.renderer.RenderHTML(ctx, "report-"+payload.Report.ReportDate+".html", html)
}

type figure struct {
	Label string
	Value string
}

type reportView struct {
	Date        string
	Figures     []figure
	Products    []figure
	Categories  []figure
	ProductBars template.HTML
	TrendLine   template.HTML
}

// BuildHTML renders the document sent to the PDF renderer.
func (p *PDFExporter) BuildHTML(payload ReportPayload) (string, error) {
	view := reportView{Date: payload.Report.ReportDate}
	for _, item := range analytics.LineItems(payload.Report) {
		view.Figures = append(view.Figures, figure{Label: item.Label, Value: p.display(item)})
	}
	view.Products = p.figures(payload.Report.RevenueByProduct)
	view.Categories = p.figures(payload.SalesAnalytics.RevenueByCategory)

	top := analytics.NewBreakdown()
	top.AddEntries(payload.Report.RevenueByProduct)
	if ranked := analytics.TopN(top, analytics.DefaultTopN); len(ranked) > 0 {
		values := make([]float64, 0, len(ranked))
		labels := make([]string, 0, len(ranked))
		for _, e := range ranked {
			values = append(values, e.Amount.InexactFloat64())
			labels = append(labels, p.caser.String(e.Name))
		}
		bars, err := svg.Bars(svg.DefaultWidth, svg.DefaultHeight, values, nil, labels, svg.BarOpts{
			Title:        "Top products",
			Description:  "Revenue of the best selling products",
			SeriesALabel: "Revenue",
		})
		if err != nil {
			return "", fmt.Errorf("product chart: %w", err)
		}
		view.ProductBars = bars
	}

	if len(payload.Trend) > 1 {
		values := make([]float64, 0, len(payload.Trend))
		labels := make([]string, 0, len(payload.Trend))
		for _, r := range payload.Trend {
			values = append(values, r.TotalRevenue.InexactFloat64())
			labels = append(labels, shortDate(r.ReportDate))
		}
		line, err := svg.Line(svg.DefaultWidth, svg.DefaultHeight, values, labels, svg.LineOpts{
			Title:       "Revenue trend",
			Description: "Daily revenue from stored snapshots",
			ShowDots:    true,
		})
		if err != nil {
			return "", fmt.Errorf("trend chart: %w", err)
		}
		view.TrendLine = line
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p *PDFExporter) figures(entries []analytics.BreakdownEntry) []figure {
	out := make([]figure, 0, len(entries))
	for _, e := range entries {
		out = append(out, figure{Label: p.caser.String(e.Name), Value: p.printer.Sprintf("%.2f", e.Amount.InexactFloat64())})
	}
	return out
}

func (p *PDFExporter) display(item analytics.LineItem) string {
	switch item.Unit {
	case analytics.UnitCount:
		return p.printer.Sprintf("%d", item.Value.IntPart())
	case analytics.UnitPercent:
		return p.printer.Sprintf("%.2f%%", item.Value.InexactFloat64())
	default:
		return p.printer.Sprintf("%.2f", item.Value.InexactFloat64())
	}
}

// shortDate trims the year from an ISO date for axis labels.
func shortDate(iso string) string {
	if len(iso) == len("2006-01-02") {
		return iso[5:]
	}
	return iso
}

var reportTemplate = template.Must(template.New("report").Parse(`<html><head><meta charset="utf-8"><style>
body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}
th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{text-align:left;background:#f5f5f5;}section{margin-bottom:24px;}.label{text-align:left;}
</style></head><body>
<h1>Sales Report {{.Date}}</h1>
<section><h2>Summary</h2><table><tbody>
{{range .Figures}}<tr><td class="label">{{.Label}}</td><td>{{.Value}}</td></tr>
{{end}}</tbody></table></section>
{{if .TrendLine}}<section><h2>Revenue Trend</h2>{{.TrendLine}}</section>{{end}}
{{if .ProductBars}}<section><h2>Top Products</h2>{{.ProductBars}}</section>{{end}}
{{if .Products}}<section><h2>Revenue by Product</h2><table><thead><tr><th>Product</th><th>Revenue</th></tr></thead><tbody>
{{range .Products}}<tr><td class="label">{{.Label}}</td><td>{{.Value}}</td></tr>
{{end}}</tbody></table></section>{{end}}
{{if .Categories}}<section><h2>Revenue by Category</h2><table><thead><tr><th>Category</th><th>Revenue</th></tr></thead><tbody>
{{range .Categories}}<tr><td class="label">{{.Label}}</td><td>{{.Value}}</td></tr>
{{end}}</tbody></table></section>{{end}}
</body></html>`))
