// Package inspector consumes the external hardware-probe and
// micro-benchmark dataset: a content-addressed tree laid out as
// <vendor_id>/<server_api_reference>/<framework>/{stdout,meta.json,...}.
// It hydrates missing Server hardware fields and harvests BenchmarkScore
// rows. Every miss is non-fatal.
package inspector

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Dataset is the extracted inspector tree. Read-only and process-global
// after Fetch; safe for concurrent lookups.
type Dataset struct {
	root    string
	fetched bool
	log     *slog.Logger
}

// Fetch downloads the archive once per process and extracts it into a
// temp tree removed by Close.
func Fetch(ctx context.Context, url string, log *slog.Logger) (*Dataset, error) {
	if log == nil {
		log = slog.Default()
	}
	dir, err := os.MkdirTemp("", "inspector-data-")
	if err != nil {
		return nil, fmt.Errorf("creating inspector temp dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("fetching inspector dataset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("fetching inspector dataset: status %d", resp.StatusCode)
	}

	if err := extractTarGz(resp.Body, dir); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("extracting inspector dataset: %w", err)
	}

	root, err := findRoot(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	log.Info("inspector dataset ready", "root", root)
	return &Dataset{root: root, fetched: true, log: log}, nil
}

// Open uses an already extracted tree. Close does not remove it.
func Open(root string, log *slog.Logger) *Dataset {
	if log == nil {
		log = slog.Default()
	}
	return &Dataset{root: root, log: log}
}

// Close removes the fetched temp tree.
func (d *Dataset) Close() error {
	if !d.fetched {
		return nil
	}
	return os.RemoveAll(d.root)
}

// extractTarGz unpacks regular files, refusing paths that escape dst.
func extractTarGz(r io.Reader, dst string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(dst, filepath.Clean(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes extraction dir", hdr.Name)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}
}

// findRoot locates the directory holding the vendor trees: GitHub
// tarballs wrap everything in a single versioned directory, and the data
// may sit under a data/ subdirectory.
func findRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		dir = filepath.Join(dir, entries[0].Name())
	}
	if fi, err := os.Stat(filepath.Join(dir, "data")); err == nil && fi.IsDir() {
		dir = filepath.Join(dir, "data")
	}
	return dir, nil
}

// frameworkMeta is the bookkeeping file next to every framework output.
type frameworkMeta struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	ExitCode int       `json:"exit_code"`
	Version  string    `json:"version"`
}

// output reads a framework's stdout and meta for one server. ok is false
// when the output is absent or corrupt; callers log at debug and move on.
func (d *Dataset) output(vendorID, apiRef, framework string) (stdout []byte, meta frameworkMeta, ok bool) {
	base := filepath.Join(d.root, vendorID, apiRef, framework)
	stdout, err := os.ReadFile(filepath.Join(base, "stdout"))
	if err != nil || len(stdout) == 0 {
		return nil, frameworkMeta{}, false
	}
	raw, err := os.ReadFile(filepath.Join(base, "meta.json"))
	if err == nil {
		if err := json.Unmarshal(raw, &meta); err != nil {
			d.log.Debug("corrupt framework meta", "vendor", vendorID, "server", apiRef, "framework", framework, "error", err)
		}
	}
	if meta.ExitCode != 0 {
		return nil, frameworkMeta{}, false
	}
	return stdout, meta, true
}
