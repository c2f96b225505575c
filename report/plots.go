// Package report renders the pipeline's output artifacts: SVG figures via
// go-chart and one textual diagnostics report.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
	"github.com/statbio/cytofppc/posterior"
	"github.com/statbio/cytofppc/ppc"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const gofHistogramBins = 30

// GofHistogram renders the simulated reference distribution of one
// condition as a histogram, with the observed value overlaid as a vertical
// line.
func GofHistogram(points []ppc.Point, condition, title, outPath string) error {
	simulated := make([]float64, 0, len(points))
	observed := 0.0
	haveObserved := false

	for _, p := range points {
		if p.Condition != condition {
			continue
		}
		switch p.Source {
		case ppc.Observed:
			observed = p.Value
			haveObserved = true
		case ppc.Simulated:
			simulated = append(simulated, p.Value)
		}
	}

	if len(simulated) == 0 {
		return pfx.Err(fmt.Errorf("no simulated values for condition %q", condition))
	}
	if !haveObserved {
		return pfx.Err(fmt.Errorf("no observed value for condition %q", condition))
	}

	centers, heights := binValues(simulated, gofHistogramBins)

	maxHeight := 0.0
	for _, h := range heights {
		if h > maxHeight {
			maxHeight = h
		}
	}

	graph := chart.Chart{
		Title:  title,
		Width:  640,
		Height: 384,
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "simulated",
				XValues: centers,
				YValues: heights,
			},
			chart.ContinuousSeries{
				Name: "observed",
				Style: chart.Style{
					StrokeColor: drawing.ColorRed,
					StrokeWidth: 2,
				},
				XValues: []float64{observed, observed},
				YValues: []float64{0, maxHeight},
			},
		},
	}

	return renderSVG(graph, outPath)
}

// CredibleIntervalPlot draws the fixed-effect credible intervals for one
// condition level: markers along X, the low / median / high quantiles as
// three series.
func CredibleIntervalPlot(summaries []posterior.BetaSummary, level, title, outPath string) error {
	xs := make([]float64, 0)
	lows := make([]float64, 0)
	meds := make([]float64, 0)
	highs := make([]float64, 0)

	for _, s := range summaries {
		if s.Level != level {
			continue
		}
		xs = append(xs, float64(len(xs)))
		lows = append(lows, s.Low)
		meds = append(meds, s.Median)
		highs = append(highs, s.High)
	}

	if len(xs) == 0 {
		return pfx.Err(fmt.Errorf("no summaries for condition level %q", level))
	}

	graph := chart.Chart{
		Title:  title,
		Width:  640,
		Height: 384,
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "2.5%",
				Style: chart.Style{
					StrokeColor:     drawing.ColorBlue,
					StrokeDashArray: []float64{4, 4},
				},
				XValues: xs,
				YValues: lows,
			},
			chart.ContinuousSeries{
				Name:    "median",
				XValues: xs,
				YValues: meds,
			},
			chart.ContinuousSeries{
				Name: "97.5%",
				Style: chart.Style{
					StrokeColor:     drawing.ColorBlue,
					StrokeDashArray: []float64{4, 4},
				},
				XValues: xs,
				YValues: highs,
			},
		},
	}

	return renderSVG(graph, outPath)
}

// TracePlot renders one parameter's draws in order, the standard eyeball
// check for chain mixing.
func TracePlot(draws []float64, title, outPath string) error {
	if len(draws) == 0 {
		return pfx.Err(fmt.Errorf("no draws to plot"))
	}

	xs := make([]float64, len(draws))
	for i := range draws {
		xs[i] = float64(i)
	}

	graph := chart.Chart{
		Title:  title,
		Width:  640,
		Height: 256,
		XAxis: chart.XAxis{
			Style: chart.Hidden(),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: draws,
			},
		},
	}

	return renderSVG(graph, outPath)
}

func renderSVG(graph chart.Chart, outPath string) error {
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.SVG, buffer); err != nil {
		return pfx.Err(err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return pfx.Err(err)
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return pfx.Err(err)
	}
	defer outFile.Close()

	if _, err := buffer.WriteTo(outFile); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// binValues reduces values to bin centers and counts over an even grid.
func binValues(values []float64, bins int) (centers, heights []float64) {
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if min == max {
		// Degenerate distribution, e.g. a constant test statistic. Give
		// the chart a nonzero x-range to render against.
		return []float64{min - 0.5, min, min + 0.5}, []float64{0, float64(len(values)), 0}
	}

	width := (max - min) / float64(bins)

	centers = make([]float64, bins)
	heights = make([]float64, bins)
	for i := range centers {
		centers[i] = min + (float64(i)+0.5)*width
	}

	for _, v := range values {
		b := int((v - min) / width)
		if b >= bins {
			b = bins - 1
		}
		heights[b]++
	}

	return centers, heights
}
