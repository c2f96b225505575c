package ppc

import (
	"fmt"
	"math"

	"github.com/carbocation/pfx"
	"github.com/statbio/cytofppc/sampletable"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Poisson means are capped at exp(maxLinearPredictor) so an extreme tail
// draw cannot push the count sampler into overflow.
const maxLinearPredictor = 30.0

// SimDonor labels every simulated row: the donor random effect is drawn
// i.i.d. per cell rather than once per donor, so simulated cells do not
// belong to identifiable donors. This mirrors the published analysis and is
// a deliberate simplification of the nested donor structure; re-using one
// draw per donor would change the statistical properties of the
// goodness-of-fit reference distribution.
const SimDonor = "simulated"

// SampleYHat draws one synthetic cell table from a single posterior draw's
// parameters. cellsPerLevel gives the number of cells to simulate for each
// condition level, aligned with p.Levels; normally these are the observed
// per-condition cell counts.
//
// Per condition level, each cell's log-mean is the fixed effect plus one
// multivariate-normal cell effect (covariance D·R·D from that level's
// scales) plus one multivariate-normal donor-level effect, and the count is
// Poisson with the exponentiated log-mean.
func SampleYHat(p *Params, cellsPerLevel []int, rng *rand.Rand) (*sampletable.Table, error) {
	if len(cellsPerLevel) != len(p.Levels) {
		return nil, pfx.Err(fmt.Errorf("got %d cell counts for %d condition levels", len(cellsPerLevel), len(p.Levels)))
	}

	nMarkers := len(p.Markers)
	src := rand.NewSource(rng.Uint64())

	donorNormal, err := mvNormal(buildCov(p.SigmaDonor, p.CorDonor), src)
	if err != nil {
		return nil, fmt.Errorf("donor-level covariance: %w", err)
	}

	total := 0
	for _, n := range cellsPerLevel {
		total += n
	}
	out := sampletable.New(p.Markers, total)

	cellEffect := make([]float64, nMarkers)
	donorEffect := make([]float64, nMarkers)
	counts := make([]float64, nMarkers)

	for l, level := range p.Levels {
		cellNormal, err := mvNormal(buildCov(p.Sigma[l], p.Cor[l]), src)
		if err != nil {
			return nil, fmt.Errorf("cell-level covariance, condition %q: %w", level, err)
		}

		for c := 0; c < cellsPerLevel[l]; c++ {
			cellNormal.Rand(cellEffect)
			donorNormal.Rand(donorEffect)

			for m := 0; m < nMarkers; m++ {
				lp := p.Beta[m][l] + cellEffect[m] + donorEffect[m]
				if lp > maxLinearPredictor {
					lp = maxLinearPredictor
				}

				counts[m] = distuv.Poisson{Lambda: math.Exp(lp), Src: src}.Rand()
			}

			if err := out.AppendRow(SimDonor, level, SimDonor, counts); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}
