// fitsummary prints the convergence diagnostics and posterior summaries of
// an already-cached fit, so the analyst can re-examine a model without
// re-running the pipeline.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/statbio/cytofppc/mixedfit"
	"github.com/statbio/cytofppc/posterior"
	"github.com/statbio/cytofppc/ppc"
	"github.com/statbio/cytofppc/report"
)

func main() {
	var cachePath string
	var threshold float64

	flag.StringVar(&cachePath, "cache", "", "Path to a cached fit (fit_cap<N>.gob).")
	flag.Float64Var(&threshold, "threshold", 0.8, "Posterior probability threshold for the correlation-change graph.")
	flag.Parse()

	if cachePath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	fitted, err := mixedfit.LoadCache(cachePath)
	if err != nil {
		log.Fatalln(err)
	}

	log.Println("Loaded fit:", len(fitted.Markers), "markers,", fitted.NumDraws(), "draws across", fitted.Chains, "chains")

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

	if err := report.Write(os.Stdout, diags, summaries, edges, posterior.BayesFDR(edges), []ppc.Point{}); err != nil {
		log.Fatalln(err)
	}
}
