package mixedfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Diagnostic is the convergence summary of one monitored parameter.
type Diagnostic struct {
	Param string
	Rhat  float64
	ESS   float64
}

// Diagnose computes split R-hat and effective sample size for every
// fixed-effect coefficient. Poor values are reported, never fatal: the
// analyst judges fit quality from the report.
func (f *Fitted) Diagnose() ([]Diagnostic, error) {
	out := make([]Diagnostic, 0, len(f.Markers)*len(f.Levels))

	for m := range f.Markers {
		for l := range f.Levels {
			chains, err := f.BetaChains(m, l)
			if err != nil {
				return nil, err
			}

			out = append(out, Diagnostic{
				Param: fmt.Sprintf("beta.%s.%d", f.Markers[m], l+1),
				Rhat:  SplitRhat(chains),
				ESS:   EffectiveSampleSize(chains),
			})
		}
	}

	return out, nil
}

// SplitRhat computes the split-chain potential scale reduction factor for
// one monitored parameter. Each chain is split in half before comparing
// between-chain to within-chain variance, so a single wandering chain still
// inflates the diagnostic. Values near 1 indicate convergence.
func SplitRhat(chains [][]float64) float64 {
	halves := splitChains(chains)
	if len(halves) < 2 {
		return math.NaN()
	}

	n := float64(len(halves[0]))

	means := make([]float64, len(halves))
	vars := make([]float64, len(halves))
	for i, c := range halves {
		means[i] = stat.Mean(c, nil)
		vars[i] = stat.Variance(c, nil)
	}

	w := stat.Mean(vars, nil)
	b := n * stat.Variance(means, nil)

	if w == 0 {
		return math.NaN()
	}

	varPlus := (n-1)/n*w + b/n

	return math.Sqrt(varPlus / w)
}

// EffectiveSampleSize estimates the number of independent draws equivalent
// to the correlated sample, via Geyer's initial positive sequence over the
// chain-averaged autocorrelations.
func EffectiveSampleSize(chains [][]float64) float64 {
	halves := splitChains(chains)
	if len(halves) < 1 {
		return math.NaN()
	}

	m := float64(len(halves))
	n := len(halves[0])
	total := m * float64(n)

	means := make([]float64, len(halves))
	vars := make([]float64, len(halves))
	for i, c := range halves {
		means[i] = stat.Mean(c, nil)
		vars[i] = stat.Variance(c, nil)
	}

	w := stat.Mean(vars, nil)
	b := float64(n) * stat.Variance(means, nil)
	if len(halves) < 2 {
		b = 0
	}
	if w == 0 {
		return math.NaN()
	}
	varPlus := float64(n-1)/float64(n)*w + b/float64(n)

	rho := func(t int) float64 {
		acov := 0.0
		for i, c := range halves {
			s := 0.0
			for j := 0; j+t < n; j++ {
				s += (c[j] - means[i]) * (c[j+t] - means[i])
			}
			acov += s / float64(n)
		}
		acov /= m

		return 1 - (w-acov)/varPlus
	}

	// Sum paired autocorrelations until a pair goes nonpositive.
	tau := 1.0
	for t := 1; t+1 < n; t += 2 {
		pair := rho(t) + rho(t+1)
		if pair <= 0 {
			break
		}
		tau += 2 * pair
	}

	ess := total / tau
	if ess > total {
		ess = total
	}

	return ess
}

// splitChains halves each chain, truncating odd lengths, so both
// diagnostics see the same split sequences.
func splitChains(chains [][]float64) [][]float64 {
	out := make([][]float64, 0, 2*len(chains))
	for _, c := range chains {
		half := len(c) / 2
		if half < 2 {
			continue
		}
		out = append(out, c[:half], c[half:2*half])
	}

	// Equalize lengths across chains of unequal size.
	min := math.MaxInt32
	for _, c := range out {
		if len(c) < min {
			min = len(c)
		}
	}
	for i := range out {
		out[i] = out[i][:min]
	}

	return out
}
