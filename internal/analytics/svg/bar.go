package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Bars renders a grouped bar chart. seriesB may be empty for a single series.
func Bars(width, height int, seriesA, seriesB []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if len(seriesA) == 0 && len(seriesB) == 0 {
		return "", fmt.Errorf("svg: at least one series required")
	}
	if len(labels) == 0 {
		return "", fmt.Errorf("svg: labels required")
	}
	if len(seriesA) > 0 && len(seriesA) != len(labels) {
		return "", fmt.Errorf("svg: seriesA length must match labels")
	}
	if len(seriesB) > 0 && len(seriesB) != len(labels) {
		return "", fmt.Errorf("svg: seriesB length must match labels")
	}
	f, err := newFrame(width, height, opts.Padding, opts.TickCount, opts.AxisColor, opts.GridColor, seriesA, seriesB)
	if err != nil {
		return "", err
	}
	colorA := fallback(opts.ColorA, "#0ea5e9")
	colorB := fallback(opts.ColorB, "#f97316")
	labelA := fallback(opts.SeriesALabel, "Series A")
	labelB := fallback(opts.SeriesBLabel, "Series B")

	groupWidth := f.plotW / float64(len(labels))
	barWidth := groupWidth / 3

	var b strings.Builder
	f.open(&b, opts.Title, opts.Description, "bar", "Bar chart", "Grouped bar comparison")
	f.grid(&b)
	for i, label := range labels {
		baseX := f.padding + float64(i)*groupWidth
		if len(seriesA) > 0 {
			f.bar(&b, baseX+barWidth*0.3, barWidth, seriesA[i], colorA, labelA+" "+label)
		}
		if len(seriesB) > 0 {
			f.bar(&b, baseX+barWidth*1.4, barWidth, seriesB[i], colorB, labelB+" "+label)
		}
		f.xLabel(&b, baseX+groupWidth/2, label)
	}

	legendX := f.padding
	legendY := f.padding - 12
	if legendY < 12 {
		legendY = 12
	}
	if len(seriesA) > 0 {
		legend(&b, legendX, legendY, colorA, f.axisColor, labelA)
		legendX += 90
	}
	if len(seriesB) > 0 {
		legend(&b, legendX, legendY, colorB, f.axisColor, labelB)
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func (f frame) bar(b *strings.Builder, x, width, value float64, color, label string) {
	top, bottom := f.y(value), f.y(0)
	if top > bottom {
		top, bottom = bottom, top
	}
	fmt.Fprintf(b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" aria-label="%s"></rect>`, x, top, width, bottom-top, color, template.HTMLEscapeString(label))
}

func legend(b *strings.Builder, x, y float64, color, textColor, label string) {
	fmt.Fprintf(b, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"></rect>`, x, y-8, color)
	fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="start">%s</text>`, x+14, y, textColor, template.HTMLEscapeString(label))
}
