package sampletable

import (
	"math"
	"strings"
	"testing"
)

const testCSV = `donor,term,celltype,CD4,CD8,CD25
d1,first,tcell,10,0,3
d1,third,tcell,2,5,1
d2,first,bcell,0,0,0
d2,third,tcell,7,1,2
`

func TestLoad(t *testing.T) {
	tab, err := Load(strings.NewReader(testCSV), DefaultMeta)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := tab.NRows(), 4; got != want {
		t.Fatalf("got %d rows, want %d", got, want)
	}

	for _, v := range []struct {
		marker string
		col    int
		ok     bool
	}{
		{"CD4", 0, true},
		{"CD8", 1, true},
		{"CD25", 2, true},
		{"donor", 0, false},
		{"CD3", 0, false},
	} {
		col, ok := tab.MarkerIndex(v.marker)
		if ok != v.ok || (ok && col != v.col) {
			t.Fatalf("MarkerIndex(%q) = (%d, %v), want (%d, %v)", v.marker, col, ok, v.col, v.ok)
		}
	}

	if got, want := tab.Counts[3][0], 7.0; got != want {
		t.Fatalf("row 3 CD4 = %v, want %v", got, want)
	}

	levels := tab.Levels()
	if len(levels) != 2 || levels[0] != "first" || levels[1] != "third" {
		t.Fatalf("unexpected levels %v", levels)
	}

	counts := tab.ConditionCounts()
	if counts[0] != 2 || counts[1] != 2 {
		t.Fatalf("unexpected condition counts %v", counts)
	}

	donors := tab.Donors()
	if len(donors) != 2 {
		t.Fatalf("unexpected donors %v", donors)
	}
}

func TestLoadMissingMetadata(t *testing.T) {
	csv := "donor,celltype,CD4\nd1,tcell,1\n"

	if _, err := Load(strings.NewReader(csv), DefaultMeta); err == nil {
		t.Fatal("expected an error for a dataset without the condition column")
	}
}

func TestAsinhTransform(t *testing.T) {
	for _, v := range []struct {
		x        float64
		cofactor float64
		want     float64
	}{
		{0, 5, 0},
		{5, 5, math.Asinh(1)},
		{50, 5, math.Asinh(10)},
	} {
		if got := Asinh(v.x, v.cofactor); math.Abs(got-v.want) > 1e-12 {
			t.Fatalf("Asinh(%v, %v) = %v, want %v", v.x, v.cofactor, got, v.want)
		}
	}
}

func TestTransformedLeavesTableUntouched(t *testing.T) {
	tab, err := Load(strings.NewReader(testCSV), DefaultMeta)
	if err != nil {
		t.Fatal(err)
	}

	block := tab.Transformed([]int{0, 1}, 5)

	if got, want := block[0][0], math.Asinh(2); math.Abs(got-want) > 1e-12 {
		t.Fatalf("transformed value %v, want %v", got, want)
	}
	if got, want := tab.Counts[0][0], 10.0; got != want {
		t.Fatalf("transform mutated the table: %v, want %v", got, want)
	}
}

func TestSelectMarkers(t *testing.T) {
	tab, err := Load(strings.NewReader(testCSV), DefaultMeta)
	if err != nil {
		t.Fatal(err)
	}

	sub, err := tab.SelectMarkers([]string{"CD25", "CD4"})
	if err != nil {
		t.Fatal(err)
	}

	if got, want := len(sub.Markers), 2; got != want {
		t.Fatalf("got %d markers, want %d", got, want)
	}
	if got, want := sub.Counts[0][0], 3.0; got != want {
		t.Fatalf("reordered CD25 column: got %v, want %v", got, want)
	}
	if got, want := sub.Counts[0][1], 10.0; got != want {
		t.Fatalf("reordered CD4 column: got %v, want %v", got, want)
	}

	if _, err := tab.SelectMarkers([]string{"CD3"}); err == nil {
		t.Fatal("expected an error selecting a marker absent from the dataset")
	}
}

func TestLoadPanel(t *testing.T) {
	panel := `channel,protein_name,use,isotope,comments
ch1,CD4,1,Nd145,
ch2,DNA,0,Ir191,intercalator
ch3,CD8,1,Nd146,
`

	markers, err := LoadPanel(strings.NewReader(panel))
	if err != nil {
		t.Fatal(err)
	}

	if len(markers) != 2 || markers[0] != "CD4" || markers[1] != "CD8" {
		t.Fatalf("unexpected modeled markers %v", markers)
	}
}
