package posterior

import (
	"sort"

	"github.com/statbio/cytofppc/mixedfit"
)

// Edge is one undirected marker pair whose correlation shifts between the
// two condition levels with the given posterior probability.
type Edge struct {
	MarkerA string
	MarkerB string
	Prob    float64
}

// CorrelationShift returns, per marker pair, the posterior probability that
// the pair's cell-level correlation differs between the two condition
// levels. The probability is two-sided: the larger of P(diff > 0) and
// P(diff < 0) across draws, so a pair that reliably shifts in either
// direction scores near 1 and an unchanged pair scores near 0.5.
func CorrelationShift(f *mixedfit.Fitted) ([][]float64, error) {
	n := len(f.Markers)

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			diffs, err := f.CorDiffDraws(i, j)
			if err != nil {
				return nil, err
			}

			up := 0
			for _, d := range diffs {
				if d > 0 {
					up++
				}
			}

			p := float64(up) / float64(len(diffs))
			if p < 1-p {
				p = 1 - p
			}

			out[i][j] = p
			out[j][i] = p
		}
	}

	return out, nil
}

// Graph thresholds the pairwise shift probabilities into an undirected edge
// list. Each qualifying pair appears exactly once, ordered by descending
// probability and then by marker name.
func Graph(probs [][]float64, markers []string, threshold float64) []Edge {
	out := make([]Edge, 0)

	for i := 0; i < len(markers); i++ {
		for j := i + 1; j < len(markers); j++ {
			if probs[i][j] >= threshold {
				out = append(out, Edge{MarkerA: markers[i], MarkerB: markers[j], Prob: probs[i][j]})
			}
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Prob != out[b].Prob {
			return out[a].Prob > out[b].Prob
		}
		if out[a].MarkerA != out[b].MarkerA {
			return out[a].MarkerA < out[b].MarkerA
		}
		return out[a].MarkerB < out[b].MarkerB
	})

	return out
}

// BayesFDR is the posterior-probability-weighted false discovery rate over
// the selected edges: the mean of (1 - edge probability). An empty edge
// list has an FDR of 0 by convention.
func BayesFDR(edges []Edge) float64 {
	if len(edges) == 0 {
		return 0
	}

	sum := 0.0
	for _, e := range edges {
		sum += 1 - e.Prob
	}

	return sum / float64(len(edges))
}
