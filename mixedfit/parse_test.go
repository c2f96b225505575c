package mixedfit

import (
	"strings"
	"testing"
)

const drawCSV = `lp__,beta.CD4.1,beta.CD4.2,beta.CD8.1,beta.CD8.2,sigma.1.CD4,sigma.1.CD8,sigma.2.CD4,sigma.2.CD8,cor.1.CD4.CD8,cor.2.CD4.CD8,sigma_donor.CD4,sigma_donor.CD8,cor_donor.CD4.CD8,z.d1.CD4,z.d2.CD8
-10.5,0.1,0.2,0.3,0.4,1.1,1.2,1.3,1.4,0.5,-0.5,0.7,0.8,0.25,0.01,0.02
-11.5,1.1,1.2,1.3,1.4,2.1,2.2,2.3,2.4,0.6,-0.6,0.9,1.0,0.35,0.03,0.04
`

func testFitted(chains, perChain int) *Fitted {
	return newFitted([]string{"CD4", "CD8"}, []string{"first", "third"}, []string{"d1", "d2"}, chains, perChain)
}

func TestParseChain(t *testing.T) {
	f := testFitted(2, 2)

	if err := f.ParseChain(strings.NewReader(drawCSV), 0); err != nil {
		t.Fatal(err)
	}
	if err := f.ParseChain(strings.NewReader(drawCSV), 1); err != nil {
		t.Fatal(err)
	}

	if got, want := f.NumDraws(), 4; got != want {
		t.Fatalf("got %d draws, want %d", got, want)
	}

	// Draw 1 is the second row of chain 1; draw 2 is the first row of
	// chain 2 (same file parsed twice).
	for _, v := range []struct {
		got  float64
		want float64
		name string
	}{
		{f.Beta[0][0][0], 0.1, "beta.CD4.1 draw 0"},
		{f.Beta[1][0][1], 1.2, "beta.CD4.2 draw 1"},
		{f.Beta[2][1][0], 0.3, "beta.CD8.1 draw 2"},
		{f.Sigma[0][0][1], 1.2, "sigma.1.CD8 draw 0"},
		{f.Sigma[1][1][0], 2.3, "sigma.2.CD4 draw 1"},
		{f.Cor[0][0][0][1], 0.5, "cor.1.CD4.CD8 draw 0"},
		{f.Cor[0][0][1][0], 0.5, "cor symmetrized"},
		{f.Cor[1][1][0][1], -0.6, "cor.2.CD4.CD8 draw 1"},
		{f.Cor[0][0][0][0], 1, "cor diagonal"},
		{f.SigmaDonor[1][1], 1.0, "sigma_donor.CD8 draw 1"},
		{f.CorDonor[0][0][1], 0.25, "cor_donor draw 0"},
		{f.Z[0][0][0], 0.01, "z.d1.CD4 draw 0"},
		{f.Z[1][1][1], 0.04, "z.d2.CD8 draw 1"},
	} {
		if v.got != v.want {
			t.Fatalf("%s: got %v, want %v", v.name, v.got, v.want)
		}
	}
}

func TestParseChainErrors(t *testing.T) {
	for _, v := range []struct {
		name  string
		csv   string
		chain int
	}{
		{"wrong draw count", "beta.CD4.1\n0.5\n", 0},
		{"chain out of range", drawCSV, 2},
		{"unknown marker", "beta.CD3.1,beta.CD4.1\n0.5,0.5\n1,1\n", 0},
		{"bad level", "beta.CD4.3,beta.CD8.1\n0.5,0.5\n1,1\n", 0},
		{"no beta columns", "lp__,sigma.1.CD4\n0.5,1\n1,1\n", 0},
		{"non-numeric value", "beta.CD4.1,beta.CD8.1\nx,0.5\n1,1\n", 0},
	} {
		f := testFitted(2, 2)
		if err := f.ParseChain(strings.NewReader(v.csv), v.chain); err == nil {
			t.Fatalf("%s: expected an error", v.name)
		}
	}
}

func TestBetaChains(t *testing.T) {
	f := testFitted(2, 2)
	if err := f.ParseChain(strings.NewReader(drawCSV), 0); err != nil {
		t.Fatal(err)
	}
	if err := f.ParseChain(strings.NewReader(drawCSV), 1); err != nil {
		t.Fatal(err)
	}

	chains, err := f.BetaChains(0, 0)
	if err != nil {
		t.Fatal(err)
	}

	if len(chains) != 2 || len(chains[0]) != 2 {
		t.Fatalf("unexpected chain shape %v", chains)
	}
	if chains[0][0] != 0.1 || chains[0][1] != 1.1 || chains[1][0] != 0.1 {
		t.Fatalf("chains misaligned with draw storage: %v", chains)
	}
}

func TestCorDiffDraws(t *testing.T) {
	f := testFitted(2, 2)
	if err := f.ParseChain(strings.NewReader(drawCSV), 0); err != nil {
		t.Fatal(err)
	}
	if err := f.ParseChain(strings.NewReader(drawCSV), 1); err != nil {
		t.Fatal(err)
	}

	diffs, err := f.CorDiffDraws(0, 1)
	if err != nil {
		t.Fatal(err)
	}

	if diffs[0] != -1.0 {
		t.Fatalf("draw 0 correlation difference = %v, want -1.0", diffs[0])
	}
	if diffs[1] != -1.2 {
		t.Fatalf("draw 1 correlation difference = %v, want -1.2", diffs[1])
	}
}
