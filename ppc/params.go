// Package ppc draws synthetic cell tables from the fitted model's posterior
// and compares user-chosen test statistics between observed and simulated
// data, one simulation per posterior draw.
package ppc

import (
	"errors"
	"fmt"

	"github.com/carbocation/pfx"
	"github.com/statbio/cytofppc/mixedfit"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// ErrNotPositiveDefinite reports a posterior draw whose covariance could
// not be made positive definite even after eigenvalue repair. It is never
// swallowed: a caller sees either a usable covariance or this error.
var ErrNotPositiveDefinite = errors.New("covariance matrix is not positive definite after eigenvalue repair")

// Params is one posterior draw's parameter set, reconstructed from the
// fitted arrays.
type Params struct {
	Markers []string
	Levels  []string

	// Beta is marker × level.
	Beta [][]float64

	// Sigma and Cor are the cell-level scale parameters per condition
	// level: level × marker and level × marker × marker.
	Sigma [][]float64
	Cor   [][][]float64

	SigmaDonor []float64
	CorDonor   [][]float64
}

// DrawParams extracts the parameters of one posterior draw.
func DrawParams(f *mixedfit.Fitted, draw int) (*Params, error) {
	if draw < 0 || draw >= f.NumDraws() {
		return nil, pfx.Err(fmt.Errorf("draw %d out of range [0, %d)", draw, f.NumDraws()))
	}

	return &Params{
		Markers:    f.Markers,
		Levels:     f.Levels,
		Beta:       f.Beta[draw],
		Sigma:      f.Sigma[draw],
		Cor:        f.Cor[draw],
		SigmaDonor: f.SigmaDonor[draw],
		CorDonor:   f.CorDonor[draw],
	}, nil
}

// buildCov assembles D·R·D, the covariance implied by per-marker standard
// deviations and a correlation matrix.
func buildCov(sigma []float64, cor [][]float64) *mat.SymDense {
	n := len(sigma)

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, sigma[i]*cor[i][j]*sigma[j])
		}
	}

	return out
}

// mvNormal builds a zero-mean multivariate normal sampler over the given
// covariance. When the Cholesky factorization fails, the covariance is
// repaired once by clipping its eigenvalues; a covariance that still fails
// afterwards surfaces ErrNotPositiveDefinite rather than NaNs.
func mvNormal(cov *mat.SymDense, src rand.Source) (*distmv.Normal, error) {
	zero := make([]float64, cov.Symmetric())

	if n, ok := distmv.NewNormal(zero, cov, src); ok {
		return n, nil
	}

	repaired, err := clipEigenvalues(cov)
	if err != nil {
		return nil, err
	}

	if n, ok := distmv.NewNormal(zero, repaired, src); ok {
		return n, nil
	}

	return nil, ErrNotPositiveDefinite
}

// clipEigenvalues reconstructs a symmetric matrix with all eigenvalues
// raised to a small positive floor, the standard repair for covariances
// pushed just past singular by MCMC numerical error.
func clipEigenvalues(cov *mat.SymDense) (*mat.SymDense, error) {
	const floor = 1e-10

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return nil, ErrNotPositiveDefinite
	}

	vals := eig.Values(nil)
	for i, v := range vals {
		if v < floor {
			vals[i] = floor
		}
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	n := cov.Symmetric()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s := 0.0
			for k := 0; k < n; k++ {
				s += vecs.At(i, k) * vals[k] * vecs.At(j, k)
			}
			out.SetSym(i, j, s)
		}
	}

	return out, nil
}
