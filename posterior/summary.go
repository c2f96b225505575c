// Package posterior computes point estimates, credible intervals, and the
// correlation-change graph from the raw draws of a completed fit.
package posterior

import (
	"fmt"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
	"github.com/statbio/cytofppc/mixedfit"
)

// Interval is a posterior point estimate with its equal-tailed 95%
// credible interval.
type Interval struct {
	Low    float64
	Median float64
	High   float64
}

// Quantiles extracts the 2.5%, 50%, and 97.5% posterior quantiles of one
// parameter's draws. The three values are ordered by construction.
func Quantiles(draws []float64) (Interval, error) {
	out := Interval{}

	if len(draws) == 0 {
		return out, pfx.Err(fmt.Errorf("no draws to summarize"))
	}

	var err error
	if out.Low, err = stats.Percentile(draws, 2.5); err != nil {
		return out, pfx.Err(err)
	}
	if out.Median, err = stats.Median(draws); err != nil {
		return out, pfx.Err(err)
	}
	if out.High, err = stats.Percentile(draws, 97.5); err != nil {
		return out, pfx.Err(err)
	}

	return out, nil
}

// BetaSummary is the summarized fixed effect of one marker at one
// condition level.
type BetaSummary struct {
	Marker string
	Level  string
	Interval
}

// Summaries computes the credible interval of every fixed-effect
// coefficient in the fit.
func Summaries(f *mixedfit.Fitted) ([]BetaSummary, error) {
	out := make([]BetaSummary, 0, len(f.Markers)*len(f.Levels))

	for m := range f.Markers {
		for l := range f.Levels {
			draws, err := f.BetaDraws(m, l)
			if err != nil {
				return nil, err
			}

			iv, err := Quantiles(draws)
			if err != nil {
				return nil, err
			}

			out = append(out, BetaSummary{Marker: f.Markers[m], Level: f.Levels[l], Interval: iv})
		}
	}

	return out, nil
}
