package sampletable

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

// MetaColumns names the metadata columns of the dataset. Every other column
// in the header is treated as a marker.
type MetaColumns struct {
	Donor     string
	Condition string
	CellType  string
}

// DefaultMeta matches the column names of the published dataset.
var DefaultMeta = MetaColumns{Donor: "donor", Condition: "term", CellType: "celltype"}

// Load parses the cell-level CSV. The header row determines the marker
// panel: any column not named by meta is a marker count column.
func Load(r io.Reader, meta MetaColumns) (*Table, error) {
	csvReader := csv.NewReader(r)

	entries, err := csvReader.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}
	if len(entries) < 1 {
		return nil, pfx.Err(fmt.Errorf("no header row in dataset"))
	}

	header := make(map[string]int)
	for i, col := range entries[0] {
		header[col] = i
	}

	for _, required := range []string{meta.Donor, meta.Condition, meta.CellType} {
		if _, ok := header[required]; !ok {
			return nil, pfx.Err(fmt.Errorf("dataset is missing required metadata column %q", required))
		}
	}

	markers := make([]string, 0, len(entries[0]))
	markerCols := make([]int, 0, len(entries[0]))
	for i, col := range entries[0] {
		if col == meta.Donor || col == meta.Condition || col == meta.CellType {
			continue
		}
		markers = append(markers, col)
		markerCols = append(markerCols, i)
	}

	t := New(markers, len(entries)-1)

	counts := make([]float64, len(markers))
	for i, row := range entries {
		if i == 0 {
			continue
		}

		for j, col := range markerCols {
			v, err := strconv.ParseFloat(row[col], 64)
			if err != nil {
				return nil, pfx.Err(fmt.Errorf("row %d, marker %s: %v", i, markers[j], err))
			}
			counts[j] = v
		}

		if err := t.AppendRow(row[header[meta.Donor]], row[header[meta.Condition]], row[header[meta.CellType]], counts); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// FetchAndCache downloads the dataset once and caches it locally by name.
// If the cached file already exists the download is skipped entirely. A
// failed fetch is returned as-is: no retries.
func FetchAndCache(url, cacheDir string) (string, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", pfx.Err(err)
	}

	local := filepath.Join(cacheDir, filepath.Base(url))
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		return local, nil
	}

	resp, err := http.Get(url)
	if err != nil {
		return "", pfx.Err(fmt.Errorf("fetching dataset %s: %v", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pfx.Err(fmt.Errorf("fetching dataset %s: status %s", url, resp.Status))
	}

	out, err := os.Create(local)
	if err != nil {
		return "", pfx.Err(err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		// Don't leave a truncated file behind to satisfy the cache check
		// on the next run.
		os.Remove(local)
		return "", pfx.Err(err)
	}

	return local, nil
}

// Open opens a cached dataset file, transparently decompressing .gz files.
func Open(path string, meta MetaColumns) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, pfx.Err(err)
		}
		defer gz.Close()
		r = gz
	}

	return Load(r, meta)
}
