package mixedfit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

// setter writes one parsed value into the fitted arrays for a given draw.
type setter func(f *Fitted, draw int, v float64)

// classifyColumn maps one draw-file header name onto its destination in the
// fitted object. Column names follow the fitter's convention:
//
//	beta.<marker>.<level>        fixed effect, level is 1-based
//	sigma.<level>.<marker>       cell-level stddev for one condition level
//	cor.<level>.<m1>.<m2>        cell-level correlation entry
//	sigma_donor.<marker>         donor-level stddev
//	cor_donor.<m1>.<m2>          donor-level correlation entry
//	z.<donor>.<marker>           per-donor random effect
//
// Bookkeeping columns (lp__, divergences and friends) are skipped.
func classifyColumn(name string, markerIdx, donorIdx map[string]int, nLevels int) (setter, error) {
	parts := strings.Split(name, ".")

	badColumn := func() error {
		return pfx.Err(fmt.Errorf("unparseable draw column %q", name))
	}

	marker := func(s string) (int, bool) { i, ok := markerIdx[s]; return i, ok }
	level := func(s string) (int, bool) {
		l, err := strconv.Atoi(s)
		if err != nil || l < 1 || l > nLevels {
			return 0, false
		}
		return l - 1, true
	}

	switch parts[0] {
	case "beta":
		if len(parts) != 3 {
			return nil, badColumn()
		}
		m, okM := marker(parts[1])
		l, okL := level(parts[2])
		if !okM || !okL {
			return nil, badColumn()
		}
		return func(f *Fitted, d int, v float64) { f.Beta[d][m][l] = v }, nil

	case "sigma":
		if len(parts) != 3 {
			return nil, badColumn()
		}
		l, okL := level(parts[1])
		m, okM := marker(parts[2])
		if !okM || !okL {
			return nil, badColumn()
		}
		return func(f *Fitted, d int, v float64) { f.Sigma[d][l][m] = v }, nil

	case "cor":
		if len(parts) != 4 {
			return nil, badColumn()
		}
		l, okL := level(parts[1])
		m1, ok1 := marker(parts[2])
		m2, ok2 := marker(parts[3])
		if !okL || !ok1 || !ok2 {
			return nil, badColumn()
		}
		return func(f *Fitted, d int, v float64) {
			f.Cor[d][l][m1][m2] = v
			f.Cor[d][l][m2][m1] = v
		}, nil

	case "sigma_donor":
		if len(parts) != 2 {
			return nil, badColumn()
		}
		m, okM := marker(parts[1])
		if !okM {
			return nil, badColumn()
		}
		return func(f *Fitted, d int, v float64) { f.SigmaDonor[d][m] = v }, nil

	case "cor_donor":
		if len(parts) != 3 {
			return nil, badColumn()
		}
		m1, ok1 := marker(parts[1])
		m2, ok2 := marker(parts[2])
		if !ok1 || !ok2 {
			return nil, badColumn()
		}
		return func(f *Fitted, d int, v float64) {
			f.CorDonor[d][m1][m2] = v
			f.CorDonor[d][m2][m1] = v
		}, nil

	case "z":
		if len(parts) != 3 {
			return nil, badColumn()
		}
		dn, okD := donorIdx[parts[1]]
		m, okM := marker(parts[2])
		if !okD || !okM {
			return nil, badColumn()
		}
		return func(f *Fitted, d int, v float64) { f.Z[d][dn][m] = v }, nil
	}

	// Sampler bookkeeping columns.
	return nil, nil
}

func (f *Fitted) parseChainCSV(path string, chain int) error {
	in, err := os.Open(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer in.Close()

	return f.ParseChain(in, chain)
}

// ParseChain reads one chain's draw CSV into the fitted arrays. The file
// must contain exactly PerChain post-warmup rows.
func (f *Fitted) ParseChain(r io.Reader, chain int) error {
	if chain < 0 || chain >= f.Chains {
		return pfx.Err(fmt.Errorf("chain %d out of range for a %d-chain fit", chain, f.Chains))
	}

	csvReader := csv.NewReader(r)
	entries, err := csvReader.ReadAll()
	if err != nil {
		return pfx.Err(err)
	}
	if len(entries) < 1 {
		return pfx.Err(fmt.Errorf("chain %d draw file has no header", chain+1))
	}
	if got := len(entries) - 1; got != f.PerChain {
		return pfx.Err(fmt.Errorf("chain %d has %d draws, expected %d", chain+1, got, f.PerChain))
	}

	markerIdx := make(map[string]int, len(f.Markers))
	for i, m := range f.Markers {
		markerIdx[m] = i
	}
	donorIdx := make(map[string]int, len(f.Donors))
	for i, d := range f.Donors {
		donorIdx[d] = i
	}

	setters := make([]setter, len(entries[0]))
	seenBeta := false
	for i, name := range entries[0] {
		s, err := classifyColumn(name, markerIdx, donorIdx, len(f.Levels))
		if err != nil {
			return err
		}
		setters[i] = s
		if strings.HasPrefix(name, "beta.") {
			seenBeta = true
		}
	}
	if !seenBeta {
		return pfx.Err(fmt.Errorf("chain %d draw file contains no beta columns", chain+1))
	}

	offset := chain * f.PerChain
	for i, row := range entries {
		if i == 0 {
			continue
		}

		draw := offset + i - 1
		for col, s := range setters {
			if s == nil {
				continue
			}
			v, err := strconv.ParseFloat(row[col], 64)
			if err != nil {
				return pfx.Err(fmt.Errorf("chain %d, draw %d, column %q: %v", chain+1, i, entries[0][col], err))
			}
			s(f, draw, v)
		}
	}

	return nil
}
