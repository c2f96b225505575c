package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/statbio/cytofppc/mixedfit"
	"github.com/statbio/cytofppc/posterior"
	"github.com/statbio/cytofppc/ppc"
)

// Write emits the textual diagnostics report: convergence table, posterior
// quantiles, the correlation-change graph with its Bayes FDR, and a
// terminal histogram of the simulated goodness-of-fit distribution per
// condition.
func Write(w io.Writer, diags []mixedfit.Diagnostic, summaries []posterior.BetaSummary, edges []posterior.Edge, fdr float64, gof []ppc.Point) error {
	fmt.Fprintln(w, "== Convergence diagnostics ==")
	fmt.Fprintln(w, strings.Join([]string{"Parameter", "Rhat", "ESS"}, "\t"))
	for _, d := range diags {
		fmt.Fprintf(w, "%s\t%.3f\t%.0f\n", d.Param, d.Rhat, d.ESS)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "== Posterior summaries (fixed effects) ==")
	fmt.Fprintln(w, strings.Join([]string{"Marker", "Condition", "2.5%", "50%", "97.5%"}, "\t"))
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.3f\t%.3f\n", s.Marker, s.Level, s.Low, s.Median, s.High)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "== Correlation-change graph ==")
	if len(edges) == 0 {
		fmt.Fprintln(w, "No marker pairs above threshold")
	}
	for i, e := range edges {
		fmt.Fprintf(w, "%d) %s -- %s\tP=%.3f\n", i+1, e.MarkerA, e.MarkerB, e.Prob)
	}
	fmt.Fprintf(w, "Bayes FDR over %d edges: %.4f\n\n", len(edges), fdr)

	fmt.Fprintln(w, "== Posterior-predictive check ==")
	for _, condition := range gofConditions(gof) {
		simulated := make([]float64, 0, len(gof))
		observed := 0.0
		for _, p := range gof {
			if p.Condition != condition {
				continue
			}
			if p.Source == ppc.Observed {
				observed = p.Value
				continue
			}
			simulated = append(simulated, p.Value)
		}

		fmt.Fprintf(w, "Condition %s: observed statistic %.4f, %d simulated draws\n", condition, observed, len(simulated))

		if len(simulated) > 0 && !degenerate(simulated) {
			hist := histogram.Hist(15, simulated)
			if err := histogram.Fprint(w, hist, histogram.Linear(40)); err != nil {
				return err
			}
		}
		fmt.Fprintln(w)
	}

	return nil
}

func gofConditions(points []ppc.Point) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 2)
	for _, p := range points {
		if _, ok := seen[p.Condition]; ok {
			continue
		}
		seen[p.Condition] = struct{}{}
		out = append(out, p.Condition)
	}

	return out
}

// degenerate reports an all-equal slice, which uniplot cannot bin.
func degenerate(values []float64) bool {
	for _, v := range values {
		if v != values[0] {
			return false
		}
	}

	return true
}
