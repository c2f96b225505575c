package ppc

import (
	"math"
	"sync"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
	"github.com/statbio/cytofppc/mixedfit"
	"github.com/statbio/cytofppc/sampletable"
	"golang.org/x/exp/rand"
)

// TestStatistic reduces an asinh-transformed cell block (rows × markers) to
// one scalar. markerMedians holds the per-marker medians of the same block,
// precomputed once since most statistics threshold against them. The
// evaluator accepts any statistic without modification.
type TestStatistic func(transformed [][]float64, markerMedians []float64) float64

// Source tags whether a goodness-of-fit value came from the observed data
// or from a posterior-draw simulation.
type Source string

const (
	Observed  Source = "observed"
	Simulated Source = "simulated"
)

// Point is one evaluated statistic: the observed value of a condition, or
// one simulated reference value for it.
type Point struct {
	Condition string
	Value     float64
	Source    Source

	// Draw is the posterior draw index behind a simulated point, -1 for
	// observed points.
	Draw int
}

// EvalConfig controls one goodness-of-fit evaluation.
type EvalConfig struct {
	// Cofactor of the asinh transform applied before computing statistics.
	Cofactor float64

	// Seed feeds each draw's private rng as Seed+draw, so results do not
	// depend on worker scheduling.
	Seed int64

	// Workers bounds the number of concurrent simulations; values < 1
	// mean serial evaluation.
	Workers int
}

// Evaluate computes the observed statistic once per condition level, then
// simulates one synthetic table per requested posterior draw and computes
// the same statistic on each, building the empirical reference
// distribution. Simulations are independent and run on a bounded worker
// pool; synthetic tables are discarded as soon as their statistics are
// taken.
func Evaluate(f *mixedfit.Fitted, observed *sampletable.Table, stat TestStatistic, draws []int, cfg EvalConfig) ([]Point, error) {
	levels := f.Levels

	levelCounts := make([]int, len(levels))
	out := make([]Point, 0, len(levels)*(1+len(draws)))

	for l, level := range levels {
		rows := observed.ConditionRows(level)
		levelCounts[l] = len(rows)

		block := observed.Transformed(rows, cfg.Cofactor)
		out = append(out, Point{
			Condition: level,
			Value:     stat(block, columnMedians(block)),
			Source:    Observed,
			Draw:      -1,
		})
	}

	simulated := make([][]Point, len(draws))

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for k := range jobs {
				points, err := evaluateDraw(f, draws[k], levelCounts, stat, cfg)

				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				simulated[k] = points
				mu.Unlock()
			}
		}()
	}

	for k := range draws {
		jobs <- k
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	for _, points := range simulated {
		out = append(out, points...)
	}

	return out, nil
}

func evaluateDraw(f *mixedfit.Fitted, draw int, levelCounts []int, stat TestStatistic, cfg EvalConfig) ([]Point, error) {
	params, err := DrawParams(f, draw)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(uint64(cfg.Seed) + uint64(draw)))

	yhat, err := SampleYHat(params, levelCounts, rng)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]Point, 0, len(f.Levels))
	for _, level := range f.Levels {
		block := yhat.Transformed(yhat.ConditionRows(level), cfg.Cofactor)
		out = append(out, Point{
			Condition: level,
			Value:     stat(block, columnMedians(block)),
			Source:    Simulated,
			Draw:      draw,
		})
	}

	return out, nil
}

func columnMedians(block [][]float64) []float64 {
	if len(block) == 0 {
		return nil
	}

	out := make([]float64, len(block[0]))
	col := make([]float64, len(block))
	for j := range out {
		for i := range block {
			col[i] = block[i][j]
		}

		med, err := stats.Median(col)
		if err != nil {
			med = math.NaN()
		}
		out[j] = med
	}

	return out
}
