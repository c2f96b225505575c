// Package mixedfit invokes the external Poisson log-normal mixed-model
// fitter and exposes its posterior draws. The inference itself (MCMC over
// the hierarchical model) lives entirely in the external binary; this
// package only launches it, parses its per-chain draw files, caches the
// result, and computes convergence summaries over the stored draws.
package mixedfit

import (
	"fmt"

	"github.com/carbocation/pfx"
)

// Fitted holds the raw posterior draws of one completed fit. It is
// constructed once, by Fit or LoadCache, and is read-only afterwards.
type Fitted struct {
	Markers []string
	// Levels are the two levels of the experimental condition, in the
	// order the fitter was given them.
	Levels []string
	Donors []string

	Chains   int
	PerChain int

	// Beta is draw × marker × level: the fixed-effect coefficients on the
	// log scale.
	Beta [][][]float64

	// Sigma and Cor are the cell-level random-effect scale parameters,
	// one set per condition level: Sigma is draw × level × marker,
	// Cor is draw × level × marker × marker.
	Sigma [][][]float64
	Cor   [][][][]float64

	// SigmaDonor and CorDonor parameterize the donor-level random-effect
	// covariance: draw × marker and draw × marker × marker.
	SigmaDonor [][]float64
	CorDonor   [][][]float64

	// Z holds the per-donor random effects, draw × donor × marker. May be
	// empty when the fitter was run without saving them.
	Z [][][]float64
}

func (f *Fitted) NumDraws() int {
	return len(f.Beta)
}

// BetaDraws returns all draws of one fixed-effect coefficient.
func (f *Fitted) BetaDraws(marker, level int) ([]float64, error) {
	if marker < 0 || marker >= len(f.Markers) || level < 0 || level >= len(f.Levels) {
		return nil, pfx.Err(fmt.Errorf("no such coefficient: marker %d, level %d", marker, level))
	}

	out := make([]float64, f.NumDraws())
	for d := range f.Beta {
		out[d] = f.Beta[d][marker][level]
	}

	return out, nil
}

// BetaChains returns the draws of one coefficient split back into the
// chains that produced them, for convergence diagnostics.
func (f *Fitted) BetaChains(marker, level int) ([][]float64, error) {
	flat, err := f.BetaDraws(marker, level)
	if err != nil {
		return nil, err
	}
	if f.Chains < 1 || f.PerChain < 1 || f.Chains*f.PerChain != len(flat) {
		return nil, pfx.Err(fmt.Errorf("draw count %d does not factor into %d chains of %d", len(flat), f.Chains, f.PerChain))
	}

	out := make([][]float64, f.Chains)
	for c := 0; c < f.Chains; c++ {
		out[c] = flat[c*f.PerChain : (c+1)*f.PerChain]
	}

	return out, nil
}

// CorDiffDraws returns, per draw, the difference in the (i, j) marker
// correlation between the second and first condition levels.
func (f *Fitted) CorDiffDraws(i, j int) ([]float64, error) {
	if i < 0 || j < 0 || i >= len(f.Markers) || j >= len(f.Markers) {
		return nil, pfx.Err(fmt.Errorf("no such marker pair: (%d, %d)", i, j))
	}

	out := make([]float64, f.NumDraws())
	for d := range f.Cor {
		out[d] = f.Cor[d][1][i][j] - f.Cor[d][0][i][j]
	}

	return out, nil
}
