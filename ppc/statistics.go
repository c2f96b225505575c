package ppc

import (
	"math"

	"github.com/montanaflynn/stats"
)

// The four stock statistics used in the calibration runs. Each one probes a
// different kind of misfit: location (AboveMedianFraction), spread
// (MedianAbsoluteDeviation, InterquartileRangeMean), and tail mass
// (UpperTailMean).

// AboveMedianFraction is the fraction of (cell, marker) entries strictly
// above their marker's median.
func AboveMedianFraction(transformed [][]float64, markerMedians []float64) float64 {
	if len(transformed) == 0 {
		return math.NaN()
	}

	above, total := 0, 0
	for _, row := range transformed {
		for j, v := range row {
			if v > markerMedians[j] {
				above++
			}
			total++
		}
	}

	return float64(above) / float64(total)
}

// MedianAbsoluteDeviation averages the per-marker median absolute
// deviations from the marker median.
func MedianAbsoluteDeviation(transformed [][]float64, markerMedians []float64) float64 {
	if len(transformed) == 0 {
		return math.NaN()
	}

	dev := make([]float64, len(transformed))
	sum := 0.0
	for j, med := range markerMedians {
		for i, row := range transformed {
			dev[i] = math.Abs(row[j] - med)
		}

		mad, err := stats.Median(dev)
		if err != nil {
			return math.NaN()
		}
		sum += mad
	}

	return sum / float64(len(markerMedians))
}

// InterquartileRangeMean averages the per-marker interquartile ranges.
func InterquartileRangeMean(transformed [][]float64, markerMedians []float64) float64 {
	return meanColumnStat(transformed, func(col []float64) (float64, error) {
		q3, err := stats.Percentile(col, 75)
		if err != nil {
			return 0, err
		}
		q1, err := stats.Percentile(col, 25)
		if err != nil {
			return 0, err
		}
		return q3 - q1, nil
	})
}

// UpperTailMean averages the per-marker 95th percentiles, catching models
// that get the bulk right but the bright tail wrong.
func UpperTailMean(transformed [][]float64, markerMedians []float64) float64 {
	return meanColumnStat(transformed, func(col []float64) (float64, error) {
		return stats.Percentile(col, 95)
	})
}

func meanColumnStat(transformed [][]float64, f func(col []float64) (float64, error)) float64 {
	if len(transformed) == 0 {
		return math.NaN()
	}

	nMarkers := len(transformed[0])
	col := make([]float64, len(transformed))

	sum := 0.0
	for j := 0; j < nMarkers; j++ {
		for i, row := range transformed {
			col[i] = row[j]
		}

		v, err := f(col)
		if err != nil {
			return math.NaN()
		}
		sum += v
	}

	return sum / float64(nMarkers)
}

// StockStatistics maps the calibration statistic names to their functions,
// for flag-driven selection in the cmds.
var StockStatistics = map[string]TestStatistic{
	"above_median": AboveMedianFraction,
	"mad":          MedianAbsoluteDeviation,
	"iqr":          InterquartileRangeMean,
	"upper_tail":   UpperTailMean,
}
