package dataset

import (
	"archive/zip"
	"bufio"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/crimson-sun/onoma/internal/encode"
)

const maxRetries = 3

var httpClient = &http.Client{Timeout: 2 * time.Minute}

// Fetch downloads the corpus archive and extracts the per-category name
// lists into dataDir. The archive is staged in a temporary file which is
// removed afterwards. Transient HTTP failures (5xx) are retried with
// exponential backoff; exhausting retries is fatal to the caller.
func Fetch(ctx context.Context, url, dataDir string) error {
	tmp, err := os.CreateTemp("", "onoma-*.zip")
	if err != nil {
		return errors.Wrap(err, "dataset: create temp archive")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := download(ctx, url, tmp); err != nil {
		return errors.Wrap(err, "dataset: download")
	}
	if err := extract(tmp.Name(), dataDir); err != nil {
		return errors.Wrap(err, "dataset: extract")
	}
	return nil
}

func download(ctx context.Context, url string, dst *os.File) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			wait := time.Duration(1<<(attempt-1)) * time.Second
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if _, err := dst.Seek(0, io.SeekStart); err != nil {
				resp.Body.Close()
				return err
			}
			if err := dst.Truncate(0); err != nil {
				resp.Body.Close()
				return err
			}
			_, err = io.Copy(dst, resp.Body)
			resp.Body.Close()
			return err
		}

		resp.Body.Close()
		lastErr = errors.Errorf("HTTP %d fetching %s", resp.StatusCode, url)
		if resp.StatusCode >= 500 {
			continue
		}
		return lastErr
	}
	return lastErr
}

// extract writes each name list in the archive to dataDir/names/<file>.txt.
// Entry paths are flattened to their base name to keep extraction inside
// dataDir.
func extract(archivePath, dataDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	outDir := filepath.Join(dataDir, "names")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	n := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".txt") {
			continue
		}
		if !strings.Contains(f.Name, "names/") {
			continue
		}
		if err := extractFile(f, filepath.Join(outDir, filepath.Base(f.Name))); err != nil {
			return errors.Wrapf(err, "entry %s", f.Name)
		}
		n++
	}
	if n == 0 {
		return errors.Errorf("no name lists found in %s", archivePath)
	}
	return nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Load reads the extracted name lists under dataDir, normalizes every name
// onto the alphabet, and returns the assembled Dataset. Files are read in
// sorted order so the catalog is stable across runs. Names that normalize to
// the empty string are dropped.
func Load(dataDir string, a *encode.Alphabet) (*Dataset, error) {
	pattern := filepath.Join(dataDir, "names", "*.txt")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrap(err, "dataset: glob")
	}
	if len(files) == 0 {
		return nil, errors.Errorf("dataset: no name lists match %s", pattern)
	}
	sort.Strings(files)

	ds := New()
	for _, path := range files {
		category := strings.TrimSuffix(filepath.Base(path), ".txt")
		if err := loadCategory(ds, category, path, a); err != nil {
			return nil, errors.Wrapf(err, "dataset: %s", path)
		}
	}
	return ds, nil
}

func loadCategory(ds *Dataset, category, path string, a *encode.Alphabet) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := NormalizeName(a, strings.TrimSpace(scanner.Text()))
		if name == "" {
			continue
		}
		ds.Add(category, name)
	}
	return scanner.Err()
}
