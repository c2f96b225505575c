package sampletable

import (
	"encoding/csv"
	"io"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// PanelEntry describes one antibody channel of the staining panel. Only
// entries flagged for modeling contribute markers to the fit.
type PanelEntry struct {
	Channel  string `csv:"channel"`
	Marker   string `csv:"protein_name"`
	Modeled  int    `csv:"use"`
	Isotope  string `csv:"isotope"`
	Comments string `csv:"comments"`
}

// LoadPanel parses the panel CSV and returns the marker names flagged for
// modeling, in panel order.
func LoadPanel(r io.Reader) ([]string, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		cr := csv.NewReader(in)
		cr.LazyQuotes = true
		return cr
	})

	entries := []*PanelEntry{}
	if err := gocsv.Unmarshal(r, &entries); err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Modeled == 0 {
			continue
		}
		out = append(out, e.Marker)
	}

	return out, nil
}
