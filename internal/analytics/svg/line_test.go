package svg

import (
	"strings"
	"testing"
)

func TestLineProducesSVG(t *testing.T) {
	html, err := Line(400, 200, []float64{100, 200, 150}, []string{"01 Mar", "02 Mar", "03 Mar"}, LineOpts{
		Title:       "Revenue",
		Description: "Daily revenue from stored snapshots",
		ShowDots:    true,
	})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if strings.Count(output, "<circle") != 3 {
		t.Fatalf("expected one dot per point")
	}
	if !strings.Contains(output, `aria-labelledby="revenue-line-title revenue-line-desc"`) {
		t.Fatalf("expected accessibility attributes")
	}
}

func TestLineRejectsMismatchedLabels(t *testing.T) {
	if _, err := Line(0, 0, []float64{1, 2}, []string{"a"}, LineOpts{}); err == nil {
		t.Fatalf("expected mismatch error")
	}
	if _, err := Line(10, 10, []float64{1}, []string{"a"}, LineOpts{Padding: 20}); err == nil {
		t.Fatalf("expected viewport error")
	}
}

func TestFormatTick(t *testing.T) {
	cases := map[float64]string{0: "0", 12.5: "12.50", 1500: "1.5k", -2_000_000: "-2.0M"}
	for in, want := range cases {
		if got := formatTick(in); got != want {
			t.Fatalf("formatTick(%v) = %s, want %s", in, got, want)
		}
	}
}
