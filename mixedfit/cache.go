package mixedfit

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
)

// CachePath names the cached fit for a given per-donor cell cap, so runs
// with different caps never collide.
func CachePath(dir string, maxPerDonor int) string {
	return filepath.Join(dir, fmt.Sprintf("fit_cap%d.gob", maxPerDonor))
}

// SaveCache persists the fitted object so later runs can skip refitting.
func SaveCache(path string, f *Fitted) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pfx.Err(err)
	}

	out, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer out.Close()

	return pfx.Err(gob.NewEncoder(out).Encode(f))
}

// LoadCache restores a previously saved fit. os.IsNotExist on the returned
// error distinguishes "no cache yet" from a corrupt file.
func LoadCache(path string) (*Fitted, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	f := &Fitted{}
	if err := gob.NewDecoder(in).Decode(f); err != nil {
		return nil, pfx.Err(err)
	}

	return f, nil
}
