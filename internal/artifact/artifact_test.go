package artifact

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/chatcheck/internal/types"
)

var started = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestScreenshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewWriter(fs, "/artifacts", started)
	require.NoError(t, err)
	assert.Equal(t, "/artifacts/run-2026-03-14T09-26-53", w.Dir())

	a, err := w.Screenshot("mobile", "1 mobile/sidebar", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, types.KindScreenshot, a.Kind)
	assert.Equal(t, "1 mobile/sidebar", a.Name)
	assert.Equal(t, filepath.Join(w.Dir(), "mobile", "1_mobile_sidebar.png"), a.Path)

	data, err := afero.ReadFile(fs, a.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
}

func TestDuplicateNamesKeepBoth(t *testing.T) {
	w, err := NewWriter(afero.NewMemMapFs(), "/a", started)
	require.NoError(t, err)

	first, err := w.Screenshot("chat", "error", []byte("1"))
	require.NoError(t, err)
	second, err := w.Screenshot("chat", "error", []byte("2"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, "error_2.png", filepath.Base(second.Path))
}

func TestConcurrentWrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewWriter(fs, "/a", started)
	require.NoError(t, err)

	var wg sync.WaitGroup
	paths := make([]string, 20)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := w.Screenshot("checkmarks", "step", []byte{byte(i)})
			assert.NoError(t, err)
			paths[i] = a.Path
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, p := range paths {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
	}
}

func TestRunsInSameSecondGetOwnDirs(t *testing.T) {
	fs := afero.NewMemMapFs()
	first, err := NewWriter(fs, "/a", started)
	require.NoError(t, err)
	second, err := NewWriter(fs, "/a", started)
	require.NoError(t, err)
	assert.Equal(t, "/a/run-2026-03-14T09-26-53_002", second.Dir())

	a, err := first.Screenshot("chat", "app_view", []byte("first"))
	require.NoError(t, err)
	b, err := second.Screenshot("chat", "app_view", []byte("second"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Path, b.Path)

	data, err := afero.ReadFile(fs, a.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	latest, err := LatestRunDir(fs, "/a")
	require.NoError(t, err)
	assert.Equal(t, second.Dir(), latest)
}

func TestReportAndLatestRunDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	older, err := NewWriter(fs, "/a", started)
	require.NoError(t, err)
	newer, err := NewWriter(fs, "/a", started.Add(time.Hour))
	require.NoError(t, err)

	a, err := newer.Report("report.html", []byte("<html>"))
	require.NoError(t, err)
	assert.Equal(t, types.KindReport, a.Kind)
	assert.Equal(t, filepath.Join(newer.Dir(), "report.html"), a.Path)

	latest, err := LatestRunDir(fs, "/a")
	require.NoError(t, err)
	assert.Equal(t, newer.Dir(), latest)
	assert.NotEqual(t, older.Dir(), latest)

	_, err = LatestRunDir(afero.NewMemMapFs(), "/empty")
	assert.Error(t, err)
}
