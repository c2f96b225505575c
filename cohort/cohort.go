// Package cohort filters the sample table down to the subpopulation being
// modeled and bounds per-donor cell counts so the downstream MCMC fit stays
// tractable.
package cohort

import (
	"math/rand"
	"sort"

	"github.com/statbio/cytofppc/sampletable"
)

// Select returns the rows of cell type cellType, with each donor's rows
// capped at maxPerDonor by subsampling without replacement. Donors at or
// under the cap keep all of their rows. A cap of 0 or less means no cap.
//
// Selection is deterministic for a fixed rng seed: donors are visited in
// sorted order and each donor's subsample comes from one rng.Perm call.
func Select(t *sampletable.Table, cellType string, maxPerDonor int, rng *rand.Rand) *sampletable.Table {
	byDonor := make(map[string][]int)
	for i, ct := range t.CellType {
		if ct != cellType {
			continue
		}
		byDonor[t.Donor[i]] = append(byDonor[t.Donor[i]], i)
	}

	donors := make([]string, 0, len(byDonor))
	for d := range byDonor {
		donors = append(donors, d)
	}
	sort.Strings(donors)

	keep := make([]int, 0)
	for _, d := range donors {
		rows := byDonor[d]

		if maxPerDonor > 0 && len(rows) > maxPerDonor {
			perm := rng.Perm(len(rows))

			chosen := make([]int, 0, maxPerDonor)
			for _, p := range perm[:maxPerDonor] {
				chosen = append(chosen, rows[p])
			}

			// Keep the original row order within each donor so that an
			// uncapped donor and a capped donor produce tables with the
			// same ordering convention.
			sort.Ints(chosen)
			rows = chosen
		}

		keep = append(keep, rows...)
	}

	return t.Subset(keep)
}
