package mixedfit

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/statbio/cytofppc/sampletable"
)

// Config carries the MCMC control parameters handed to the external fitter.
type Config struct {
	Iter   int
	Warmup int
	Chains int

	// FitterPath locates the external fitter binary (if not already in
	// your PATH as plnfit).
	FitterPath string

	Seed int64
}

// DefaultConfig mirrors the settings of the published analysis.
var DefaultConfig = Config{Iter: 2000, Warmup: 1000, Chains: 4, FitterPath: "plnfit", Seed: 1}

// Fit writes the cohort to a temporary CSV, runs the external fitter once
// per chain, and parses the resulting draw files. Chains run sequentially;
// the fitter is free to parallelize internally.
func Fit(cfg Config, t *sampletable.Table, conditionCol, donorCol string) (*Fitted, error) {
	if t.NRows() == 0 {
		return nil, pfx.Err(fmt.Errorf("empty cohort: refusing to fit on zero cells"))
	}
	if cfg.Chains < 1 || cfg.Iter <= cfg.Warmup {
		return nil, pfx.Err(fmt.Errorf("invalid MCMC controls: %d chains, %d iterations, %d warmup", cfg.Chains, cfg.Iter, cfg.Warmup))
	}

	levels := t.Levels()
	if len(levels) != 2 {
		return nil, pfx.Err(fmt.Errorf("the model requires exactly 2 condition levels, found %d: %v", len(levels), levels))
	}

	workDir, err := os.MkdirTemp("", "cytofppc-fit")
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer os.RemoveAll(workDir)

	dataPath := filepath.Join(workDir, "cohort.csv")
	if err := writeCohortCSV(dataPath, t, conditionCol, donorCol); err != nil {
		return nil, err
	}

	f := newFitted(t.Markers, levels, t.Donors(), cfg.Chains, cfg.Iter-cfg.Warmup)

	for chain := 0; chain < cfg.Chains; chain++ {
		outPath := filepath.Join(workDir, fmt.Sprintf("draws_chain%d.csv", chain+1))

		args := []string{
			"--data", dataPath,
			"--markers", strings.Join(t.Markers, ","),
			"--condition", conditionCol,
			"--group", donorCol,
			"--iter", strconv.Itoa(cfg.Iter),
			"--warmup", strconv.Itoa(cfg.Warmup),
			"--chain", strconv.Itoa(chain + 1),
			"--seed", strconv.FormatInt(cfg.Seed+int64(chain), 10),
			"--out", outPath,
		}

		log.Println("Running fitter chain", chain+1, "of", cfg.Chains)
		if out, err := exec.Command(cfg.FitterPath, args...).CombinedOutput(); err != nil {
			return nil, pfx.Err(fmt.Errorf("fitter chain %d failed: %v | output: %s", chain+1, err, string(out)))
		}

		if err := f.parseChainCSV(outPath, chain); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func writeCohortCSV(path string, t *sampletable.Table, conditionCol, donorCol string) error {
	out, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer out.Close()

	w := csv.NewWriter(out)

	header := append([]string{donorCol, conditionCol}, t.Markers...)
	if err := w.Write(header); err != nil {
		return pfx.Err(err)
	}

	row := make([]string, len(header))
	for i := 0; i < t.NRows(); i++ {
		row[0] = t.Donor[i]
		row[1] = t.Condition[i]
		for j, v := range t.Counts[i] {
			row[2+j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return pfx.Err(err)
		}
	}
	w.Flush()

	return pfx.Err(w.Error())
}

func newFitted(markers, levels, donors []string, chains, perChain int) *Fitted {
	nDraws := chains * perChain

	f := &Fitted{
		Markers:    append([]string{}, markers...),
		Levels:     append([]string{}, levels...),
		Donors:     append([]string{}, donors...),
		Chains:     chains,
		PerChain:   perChain,
		Beta:       make([][][]float64, nDraws),
		Sigma:      make([][][]float64, nDraws),
		Cor:        make([][][][]float64, nDraws),
		SigmaDonor: make([][]float64, nDraws),
		CorDonor:   make([][][]float64, nDraws),
		Z:          make([][][]float64, nDraws),
	}

	m := len(markers)
	for d := 0; d < nDraws; d++ {
		f.Beta[d] = newMatrix(m, len(levels))
		f.Sigma[d] = newMatrix(len(levels), m)
		f.Cor[d] = [][][]float64{newIdentity(m), newIdentity(m)}
		f.SigmaDonor[d] = make([]float64, m)
		f.CorDonor[d] = newIdentity(m)
		f.Z[d] = newMatrix(len(donors), m)
	}

	return f
}

func newMatrix(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}

	return out
}

func newIdentity(n int) [][]float64 {
	out := newMatrix(n, n)
	for i := 0; i < n; i++ {
		out[i][i] = 1
	}

	return out
}
