package mixedfit

import (
	"math"
	"math/rand"
	"testing"
)

func normalChains(nChains, n int, shift float64, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))

	out := make([][]float64, nChains)
	for c := range out {
		out[c] = make([]float64, n)
		for i := range out[c] {
			out[c][i] = rng.NormFloat64() + float64(c)*shift
		}
	}

	return out
}

func TestSplitRhatConverged(t *testing.T) {
	chains := normalChains(4, 500, 0, 1)

	if rhat := SplitRhat(chains); math.IsNaN(rhat) || rhat > 1.05 {
		t.Fatalf("well-mixed chains should give Rhat near 1, got %v", rhat)
	}
}

func TestSplitRhatDiverged(t *testing.T) {
	chains := normalChains(4, 500, 5, 1)

	if rhat := SplitRhat(chains); !(rhat > 1.5) {
		t.Fatalf("shifted chains should inflate Rhat well above 1, got %v", rhat)
	}
}

func TestSplitRhatDegenerate(t *testing.T) {
	constant := [][]float64{{1, 1, 1, 1, 1, 1}, {1, 1, 1, 1, 1, 1}}
	if rhat := SplitRhat(constant); !math.IsNaN(rhat) {
		t.Fatalf("constant chains have no within-chain variance, expected NaN, got %v", rhat)
	}

	if rhat := SplitRhat([][]float64{{1, 2}}); !math.IsNaN(rhat) {
		t.Fatalf("too-short input should give NaN, got %v", rhat)
	}
}

func TestEffectiveSampleSizeIndependent(t *testing.T) {
	chains := normalChains(4, 500, 0, 2)
	total := 2000.0

	ess := EffectiveSampleSize(chains)
	if math.IsNaN(ess) || ess < total/4 || ess > total {
		t.Fatalf("independent draws should give a large ESS, got %v of %v", ess, total)
	}
}

func TestEffectiveSampleSizeAutocorrelated(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	// A slow random walk is heavily autocorrelated, so the effective
	// sample should collapse relative to the raw draw count.
	chains := make([][]float64, 4)
	for c := range chains {
		chains[c] = make([]float64, 500)
		x := 0.0
		for i := range chains[c] {
			x += rng.NormFloat64()
			chains[c][i] = x
		}
	}

	ess := EffectiveSampleSize(chains)
	if !(ess < 200) {
		t.Fatalf("random-walk chains should have a small ESS, got %v of 2000", ess)
	}
}

func TestDiagnose(t *testing.T) {
	f := testFitted(2, 40)

	rng := rand.New(rand.NewSource(4))
	for d := range f.Beta {
		for m := range f.Markers {
			for l := range f.Levels {
				f.Beta[d][m][l] = rng.NormFloat64()
			}
		}
	}

	diags, err := f.Diagnose()
	if err != nil {
		t.Fatal(err)
	}

	if got, want := len(diags), len(f.Markers)*len(f.Levels); got != want {
		t.Fatalf("got %d diagnostics, want %d", got, want)
	}
	for _, d := range diags {
		if math.IsNaN(d.Rhat) || math.IsNaN(d.ESS) {
			t.Fatalf("parameter %s: NaN diagnostics from well-behaved draws", d.Param)
		}
	}
}
