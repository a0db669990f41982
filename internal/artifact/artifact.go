// Package artifact writes screenshots and reports into per-run directories.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/ibeckermayer/chatcheck/internal/types"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// RunDirName returns the directory name for a run started at t. Dashes
// replace colons so the name is valid on every filesystem.
func RunDirName(t time.Time) string {
	return "run-" + t.Format("2006-01-02T15-04-05")
}

// Writer stores artifacts of a single run. It is safe for concurrent use.
type Writer struct {
	fs  afero.Fs
	dir string

	mu    sync.Mutex
	names map[string]int
}

// NewWriter creates the run directory under root on fs. A run started in
// the same second as an existing one gets a numbered directory of its own.
func NewWriter(fs afero.Fs, root string, startedAt time.Time) (*Writer, error) {
	if err := fs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}

	base := filepath.Join(root, RunDirName(startedAt))
	dir := base
	for n := 2; ; n++ {
		err := fs.Mkdir(dir, 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create artifact dir: %w", err)
		}
		dir = fmt.Sprintf("%s_%03d", base, n)
	}
	return &Writer{fs: fs, dir: dir, names: make(map[string]int)}, nil
}

// Dir is the run directory
func (w *Writer) Dir() string { return w.dir }

// Fs is the filesystem artifacts are written to
func (w *Writer) Fs() afero.Fs { return w.fs }

// Screenshot stores a PNG captured by scenario under name
func (w *Writer) Screenshot(scenario, name string, png []byte) (types.Artifact, error) {
	path, err := w.write(filepath.Join(sanitize(scenario), sanitize(name)+".png"), png)
	if err != nil {
		return types.Artifact{}, err
	}
	return types.Artifact{Name: name, Path: path, Kind: types.KindScreenshot}, nil
}

// Report stores a rendered report file at the top of the run directory
func (w *Writer) Report(name string, data []byte) (types.Artifact, error) {
	path, err := w.write(sanitize(name), data)
	if err != nil {
		return types.Artifact{}, err
	}
	return types.Artifact{Name: name, Path: path, Kind: types.KindReport}, nil
}

// write stores data at rel inside the run dir. A name written twice gets a
// numeric suffix so earlier captures are kept.
func (w *Writer) write(rel string, data []byte) (string, error) {
	w.mu.Lock()
	n := w.names[rel]
	w.names[rel] = n + 1
	w.mu.Unlock()

	if n > 0 {
		ext := filepath.Ext(rel)
		rel = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(rel, ext), n+1, ext)
	}

	path := filepath.Join(w.dir, rel)
	if err := w.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}
	if err := afero.WriteFile(w.fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

func sanitize(name string) string {
	name = unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if name == "" {
		return "unnamed"
	}
	return name
}

// LatestRunDir returns the most recent run directory under root
func LatestRunDir(fs afero.Fs, root string) (string, error) {
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return "", err
	}

	// ReadDir sorts by name, which is chronological for our timestamps
	latest := ""
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "run-") {
			latest = e.Name()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no runs found in %s", root)
	}
	return filepath.Join(root, latest), nil
}
