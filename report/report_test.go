package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/statbio/cytofppc/mixedfit"
	"github.com/statbio/cytofppc/posterior"
	"github.com/statbio/cytofppc/ppc"
)

func gofPoints() []ppc.Point {
	out := []ppc.Point{
		{Condition: "first", Value: 0.31, Source: ppc.Observed, Draw: -1},
		{Condition: "third", Value: 0.42, Source: ppc.Observed, Draw: -1},
	}

	for d := 0; d < 40; d++ {
		out = append(out,
			ppc.Point{Condition: "first", Value: 0.3 + 0.002*float64(d%10), Source: ppc.Simulated, Draw: d},
			ppc.Point{Condition: "third", Value: 0.4 + 0.002*float64(d%10), Source: ppc.Simulated, Draw: d},
		)
	}

	return out
}

func checkSVG(t *testing.T, path string) {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "<svg") {
		t.Fatalf("%s does not look like an SVG", path)
	}
}

func TestGofHistogram(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ppc.svg")

	if err := GofHistogram(gofPoints(), "first", "PPC", path); err != nil {
		t.Fatal(err)
	}
	checkSVG(t, path)

	if err := GofHistogram(gofPoints(), "nosuch", "PPC", filepath.Join(dir, "x.svg")); err == nil {
		t.Fatal("expected an error for an unknown condition")
	}
}

func TestGofHistogramDegenerate(t *testing.T) {
	points := []ppc.Point{{Condition: "first", Value: 0, Source: ppc.Observed, Draw: -1}}
	for d := 0; d < 10; d++ {
		points = append(points, ppc.Point{Condition: "first", Value: 0, Source: ppc.Simulated, Draw: d})
	}

	path := filepath.Join(t.TempDir(), "flat.svg")
	if err := GofHistogram(points, "first", "PPC", path); err != nil {
		t.Fatal(err)
	}
	checkSVG(t, path)
}

func TestCredibleIntervalPlot(t *testing.T) {
	summaries := []posterior.BetaSummary{
		{Marker: "CD4", Level: "first", Interval: posterior.Interval{Low: -0.2, Median: 0.1, High: 0.4}},
		{Marker: "CD8", Level: "first", Interval: posterior.Interval{Low: 0.3, Median: 0.6, High: 0.9}},
		{Marker: "CD4", Level: "third", Interval: posterior.Interval{Low: -1, Median: 0, High: 1}},
	}

	path := filepath.Join(t.TempDir(), "beta.svg")
	if err := CredibleIntervalPlot(summaries, "first", "Fixed effects", path); err != nil {
		t.Fatal(err)
	}
	checkSVG(t, path)

	if err := CredibleIntervalPlot(summaries, "fourth", "x", filepath.Join(t.TempDir(), "x.svg")); err == nil {
		t.Fatal("expected an error for a level with no summaries")
	}
}

func TestTracePlot(t *testing.T) {
	draws := make([]float64, 200)
	for i := range draws {
		draws[i] = math.Sin(float64(i) / 10)
	}

	path := filepath.Join(t.TempDir(), "trace.svg")
	if err := TracePlot(draws, "beta.CD4", path); err != nil {
		t.Fatal(err)
	}
	checkSVG(t, path)
}

func TestWriteReport(t *testing.T) {
	diags := []mixedfit.Diagnostic{
		{Param: "beta.CD4.1", Rhat: 1.01, ESS: 812},
		{Param: "beta.CD4.2", Rhat: 1.12, ESS: 96},
	}
	summaries := []posterior.BetaSummary{
		{Marker: "CD4", Level: "first", Interval: posterior.Interval{Low: -0.2, Median: 0.1, High: 0.4}},
	}
	edges := []posterior.Edge{{MarkerA: "CD4", MarkerB: "CD8", Prob: 0.93}}

	var buf bytes.Buffer
	if err := Write(&buf, diags, summaries, edges, 0.07, gofPoints()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"Convergence diagnostics",
		"beta.CD4.1",
		"1.01",
		"Posterior summaries",
		"CD4 -- CD8",
		"Bayes FDR over 1 edges: 0.0700",
		"Condition first: observed statistic 0.3100",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report is missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReportEmptyGof(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, nil, nil, 0, nil); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), "No marker pairs above threshold") {
		t.Fatalf("empty edge list should be stated explicitly:\n%s", buf.String())
	}
}
