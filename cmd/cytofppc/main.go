// cytofppc runs the full reproducibility pipeline for the Poisson
// log-normal mixed-model CyTOF analysis: fetch the dataset, select the
// cohort, fit (or load a cached fit of) the model via the external fitter,
// and render convergence diagnostics, posterior summaries, and
// posterior-predictive goodness-of-fit checks.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/statbio/cytofppc/cohort"
	"github.com/statbio/cytofppc/mixedfit"
	"github.com/statbio/cytofppc/posterior"
	"github.com/statbio/cytofppc/ppc"
	"github.com/statbio/cytofppc/report"
	"github.com/statbio/cytofppc/sampletable"
)

func main() {
	var (
		url       string
		panelPath string
		cacheDir  string
		outDir    string

		cellType    string
		maxPerDonor int

		fitter string
		iter   int
		warmup int
		chains int

		gofDraws  int
		statName  string
		cofactor  float64
		threshold float64

		seed    int64
		workers int
	)

	flag.StringVar(&url, "url", "", "URL of the preprocessed cell-level dataset CSV (plain or .gz).")
	flag.StringVar(&panelPath, "panel", "", "Optional panel CSV restricting which markers are modeled.")
	flag.StringVar(&cacheDir, "cachedir", "cache", "Directory for the downloaded dataset and cached fits.")
	flag.StringVar(&outDir, "out", "out", "Directory for rendered plots and the diagnostics report.")
	flag.StringVar(&cellType, "celltype", "", "Cell subpopulation to model.")
	flag.IntVar(&maxPerDonor, "cap", 1000, "Maximum cells per donor after subsampling. 0 disables the cap.")
	flag.StringVar(&fitter, "fitter", "plnfit", "Path to the external model fitter (if not already in your PATH as plnfit).")
	flag.IntVar(&iter, "iter", 2000, "MCMC iterations per chain, including warmup.")
	flag.IntVar(&warmup, "warmup", 1000, "MCMC warmup iterations per chain.")
	flag.IntVar(&chains, "chains", 4, "Number of MCMC chains.")
	flag.IntVar(&gofDraws, "draws", 200, "Number of posterior draws used for the goodness-of-fit simulation.")
	flag.StringVar(&statName, "stat", "above_median", "Goodness-of-fit test statistic: "+strings.Join(statNames(), ", ")+".")
	flag.Float64Var(&cofactor, "cofactor", 5, "Cofactor of the asinh transform used in goodness-of-fit comparisons.")
	flag.Float64Var(&threshold, "threshold", 0.8, "Posterior probability threshold for the correlation-change graph.")
	flag.Int64Var(&seed, "seed", 1, "Seed for cohort subsampling and goodness-of-fit simulation.")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "Concurrent goodness-of-fit simulations.")
	flag.Parse()

	if url == "" || cellType == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	stat, ok := ppc.StockStatistics[statName]
	if !ok {
		log.Fatalln("Unknown test statistic", statName, "- available:", strings.Join(statNames(), ", "))
	}

	log.Println("Fetching dataset", url)
	dataPath, err := sampletable.FetchAndCache(url, cacheDir)
	if err != nil {
		log.Fatalln(err)
	}

	t, err := sampletable.Open(dataPath, sampletable.DefaultMeta)
	if err != nil {
		log.Fatalln(err)
	}
	log.Println("Loaded", t.NRows(), "cells,", len(t.Markers), "markers")

	if panelPath != "" {
		pf, err := os.Open(panelPath)
		if err != nil {
			log.Fatalln(err)
		}
		markers, err := sampletable.LoadPanel(pf)
		pf.Close()
		if err != nil {
			log.Fatalln(err)
		}

		if t, err = t.SelectMarkers(markers); err != nil {
			log.Fatalln(err)
		}
		log.Println("Panel restricts modeling to", len(t.Markers), "markers")
	}

	rng := rand.New(rand.NewSource(seed))
	selected := cohort.Select(t, cellType, maxPerDonor, rng)
	if selected.NRows() == 0 {
		log.Fatalln("Empty cohort: no cells of type", cellType, "after filtering")
	}
	log.Println("Cohort:", selected.NRows(), "cells across", len(selected.Donors()), "donors")

	cachePath := mixedfit.CachePath(cacheDir, maxPerDonor)
	fitted, err := mixedfit.LoadCache(cachePath)
	if os.IsNotExist(err) {
		log.Println("No cached fit at", cachePath, "- running the fitter")

		cfg := mixedfit.Config{Iter: iter, Warmup: warmup, Chains: chains, FitterPath: fitter, Seed: seed}
		if fitted, err = mixedfit.Fit(cfg, selected, "term", "donor"); err != nil {
			log.Fatalln(err)
		}
		if err := mixedfit.SaveCache(cachePath, fitted); err != nil {
			log.Fatalln(err)
		}
	} else if err != nil {
		log.Fatalln(err)
	} else {
		log.Println("Loaded cached fit from", cachePath)
	}

	diags, err := fitted.Diagnose()
	if err != nil {
		log.Fatalln(err)
	}

	summaries, err := posterior.Summaries(fitted)
	if err != nil {
		log.Fatalln(err)
	}

	probs, err := posterior.CorrelationShift(fitted)
	if err != nil {
		log.Fatalln(err)
	}
	edges := posterior.Graph(probs, fitted.Markers, threshold)
	fdr := posterior.BayesFDR(edges)

	log.Println("Running goodness-of-fit over", gofDraws, "posterior draws with statistic", statName)
	gof, err := ppc.Evaluate(fitted, selected, stat, spreadDraws(fitted.NumDraws(), gofDraws), ppc.EvalConfig{
		Cofactor: cofactor,
		Seed:     seed,
		Workers:  workers,
	})
	if err != nil {
		log.Fatalln(err)
	}

	if err := render(outDir, fitted, diags, summaries, edges, fdr, gof, statName); err != nil {
		log.Fatalln(err)
	}

	log.Println("Wrote report and figures to", outDir)
}

func render(outDir string, fitted *mixedfit.Fitted, diags []mixedfit.Diagnostic, summaries []posterior.BetaSummary, edges []posterior.Edge, fdr float64, gof []ppc.Point, statName string) error {
	for _, level := range fitted.Levels {
		safe := sanitize(level)

		if err := report.GofHistogram(gof, level, fmt.Sprintf("PPC %s (%s)", statName, level), filepath.Join(outDir, "ppc_"+statName+"_"+safe+".svg")); err != nil {
			return err
		}
		if err := report.CredibleIntervalPlot(summaries, level, "Fixed effects ("+level+")", filepath.Join(outDir, "beta_"+safe+".svg")); err != nil {
			return err
		}
	}

	// One trace plot per marker for the second-level coefficient, the
	// contrast of interest.
	for m := range fitted.Markers {
		draws, err := fitted.BetaDraws(m, 1)
		if err != nil {
			return err
		}
		if err := report.TracePlot(draws, "beta."+fitted.Markers[m], filepath.Join(outDir, "trace_beta_"+sanitize(fitted.Markers[m])+".svg")); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	rf, err := os.Create(filepath.Join(outDir, "diagnostics.txt"))
	if err != nil {
		return err
	}
	defer rf.Close()

	return report.Write(rf, diags, summaries, edges, fdr, gof)
}

// spreadDraws picks n draw indices evenly across the posterior sample, so
// the goodness-of-fit subsample spans every chain.
func spreadDraws(total, n int) []int {
	if n >= total {
		n = total
	}

	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, i*total/n)
	}

	return out
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', ' ', '\\':
			return '_'
		}
		return r
	}, s)
}

func statNames() []string {
	out := make([]string, 0, len(ppc.StockStatistics))
	for name := range ppc.StockStatistics {
		out = append(out, name)
	}
	sort.Strings(out)

	return out
}
