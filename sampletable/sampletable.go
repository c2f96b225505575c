// Package sampletable holds the per-cell expression table that the rest of
// the pipeline consumes: one row per cell, one count column per marker, plus
// donor / condition / cell-type metadata.
package sampletable

import (
	"fmt"
	"math"

	"github.com/carbocation/pfx"
)

// Table is the immutable sample table. Filtering and subsampling produce new
// tables; nothing mutates rows in place after construction.
type Table struct {
	Markers []string

	// Counts is row-major: Counts[row][markerColumn].
	Counts [][]float64

	Donor     []string
	Condition []string
	CellType  []string

	markerIndex map[string]int
}

// New creates an empty table over the given marker panel, with capacity hints
// for the expected number of rows.
func New(markers []string, capacityHint int) *Table {
	t := &Table{
		Markers:   append([]string{}, markers...),
		Counts:    make([][]float64, 0, capacityHint),
		Donor:     make([]string, 0, capacityHint),
		Condition: make([]string, 0, capacityHint),
		CellType:  make([]string, 0, capacityHint),
	}
	t.buildIndex()

	return t
}

func (t *Table) buildIndex() {
	t.markerIndex = make(map[string]int, len(t.Markers))
	for i, m := range t.Markers {
		t.markerIndex[m] = i
	}
}

// MarkerIndex resolves a marker name to its column, using the map built once
// at load time rather than scanning the header per lookup.
func (t *Table) MarkerIndex(name string) (int, bool) {
	if t.markerIndex == nil {
		t.buildIndex()
	}
	col, ok := t.markerIndex[name]

	return col, ok
}

func (t *Table) NRows() int {
	return len(t.Counts)
}

// AppendRow adds one cell. The counts slice must align with t.Markers.
func (t *Table) AppendRow(donor, condition, cellType string, counts []float64) error {
	if len(counts) != len(t.Markers) {
		return pfx.Err(fmt.Errorf("appending row with %d counts to a %d-marker table", len(counts), len(t.Markers)))
	}

	t.Counts = append(t.Counts, append([]float64{}, counts...))
	t.Donor = append(t.Donor, donor)
	t.Condition = append(t.Condition, condition)
	t.CellType = append(t.CellType, cellType)

	return nil
}

// Subset returns a new table containing the given rows, in the given order.
func (t *Table) Subset(rows []int) *Table {
	out := New(t.Markers, len(rows))
	for _, r := range rows {
		out.Counts = append(out.Counts, t.Counts[r])
		out.Donor = append(out.Donor, t.Donor[r])
		out.Condition = append(out.Condition, t.Condition[r])
		out.CellType = append(out.CellType, t.CellType[r])
	}

	return out
}

// SelectMarkers returns a new table restricted to the named marker columns,
// in the given order. Markers absent from the table are an error: a panel
// file that disagrees with the dataset header should not fail silently.
func (t *Table) SelectMarkers(names []string) (*Table, error) {
	cols := make([]int, len(names))
	for i, name := range names {
		col, ok := t.MarkerIndex(name)
		if !ok {
			return nil, pfx.Err(fmt.Errorf("marker %q is not in the dataset", name))
		}
		cols[i] = col
	}

	out := New(names, t.NRows())
	out.Donor = append(out.Donor, t.Donor...)
	out.Condition = append(out.Condition, t.Condition...)
	out.CellType = append(out.CellType, t.CellType...)

	for _, row := range t.Counts {
		counts := make([]float64, len(cols))
		for i, c := range cols {
			counts[i] = row[c]
		}
		out.Counts = append(out.Counts, counts)
	}

	return out, nil
}

// Levels returns the distinct condition labels in first-seen row order.
func (t *Table) Levels() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 2)
	for _, c := range t.Condition {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	return out
}

// Donors returns the distinct donor labels in first-seen row order.
func (t *Table) Donors() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, d := range t.Donor {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}

	return out
}

// ConditionCounts returns the number of rows per condition level, aligned
// with Levels().
func (t *Table) ConditionCounts() []int {
	levels := t.Levels()
	pos := make(map[string]int, len(levels))
	for i, l := range levels {
		pos[l] = i
	}

	out := make([]int, len(levels))
	for _, c := range t.Condition {
		out[pos[c]]++
	}

	return out
}

// ConditionRows returns the row indices belonging to one condition level.
func (t *Table) ConditionRows(level string) []int {
	out := make([]int, 0)
	for i, c := range t.Condition {
		if c == level {
			out = append(out, i)
		}
	}

	return out
}

// Asinh is the variance-stabilizing transform used for all goodness-of-fit
// comparisons, asinh(x/cofactor). The cofactor 5 is conventional for
// mass cytometry.
func Asinh(x, cofactor float64) float64 {
	return math.Asinh(x / cofactor)
}

// Transformed returns an asinh-transformed copy of the count block for the
// given rows. The original table is left untouched.
func (t *Table) Transformed(rows []int, cofactor float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		row := make([]float64, len(t.Markers))
		for j, v := range t.Counts[r] {
			row[j] = Asinh(v, cofactor)
		}
		out[i] = row
	}

	return out
}
