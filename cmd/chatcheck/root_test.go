package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/chatcheck/internal/artifact"
	"github.com/ibeckermayer/chatcheck/internal/config"
	"github.com/ibeckermayer/chatcheck/internal/scenario"
	"github.com/ibeckermayer/chatcheck/internal/store"
	"github.com/ibeckermayer/chatcheck/internal/types"
)

func writeConfig(t *testing.T) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(dir, "history.db")
	cfg.Run.ArtifactsDir = filepath.Join(dir, "artifacts")
	cfg.Fixtures.SessionFile = filepath.Join(dir, "sessions.json")
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, cfg.Save(path))
	return path, cfg
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestListCommand(t *testing.T) {
	path, _ := writeConfig(t)

	code, out, _ := runCLI(t, "--config", path, "--no-color", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "LAST FAILURE")
	for _, name := range scenario.Names() {
		assert.Contains(t, out, name)
	}
}

func TestRunUnknownScenario(t *testing.T) {
	path, _ := writeConfig(t)

	code, _, stderr := runCLI(t, "--config", path, "--no-color", "run", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown scenario")
}

func TestMissingExplicitConfig(t *testing.T) {
	code, _, stderr := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error: load config")
}

func TestBadLogLevel(t *testing.T) {
	path, _ := writeConfig(t)
	code, _, stderr := runCLI(t, "--config", path, "--log-level", "loud", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid log level")
}

func TestHistoryCommands(t *testing.T) {
	path, cfg := writeConfig(t)

	code, out, _ := runCLI(t, "--config", path, "history")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No runs recorded yet")

	st, err := store.New(cfg.Store.Path)
	require.NoError(t, err)
	start := time.Now().Add(-time.Minute)
	require.NoError(t, st.SaveRun(&types.RunResult{
		ID:         "run-1",
		BaseURL:    cfg.Target.BaseURL,
		StartedAt:  start,
		FinishedAt: start.Add(10 * time.Second),
		Scenarios: []types.ScenarioResult{
			{Scenario: "chat", Status: types.StatusPassed, StartedAt: start},
			{Scenario: "mobile", Status: types.StatusFailed, StartedAt: start,
				Checks: []types.Check{{Name: "chat_area_active", Detail: "class missing"}}},
		},
	}))
	require.NoError(t, st.Close())

	code, out, _ = runCLI(t, "--config", path, "--no-color", "history")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "1/2 passed")

	code, out, _ = runCLI(t, "--config", path, "--no-color", "history", "show", "run-1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "mobile")
	assert.Contains(t, out, "chat_area_active")

	code, _, _ = runCLI(t, "--config", path, "history", "show", "run-404")
	assert.Equal(t, 1, code)
}

func TestOpenTarget(t *testing.T) {
	path, cfg := writeConfig(t)
	c := &rootCommand{configPath: path, cfg: cfg}
	fs := afero.NewMemMapFs()

	got, err := c.openTarget(fs, "config")
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = c.openTarget(fs, "report")
	assert.Error(t, err)

	w, err := artifact.NewWriter(fs, cfg.Run.ArtifactsDir, time.Now())
	require.NoError(t, err)
	_, err = c.openTarget(fs, "report")
	assert.ErrorContains(t, err, "has no report")

	a, err := w.Report("report.html", []byte("<html></html>"))
	require.NoError(t, err)
	got, err = c.openTarget(fs, "report")
	require.NoError(t, err)
	assert.Equal(t, a.Path, got)

	_, err = c.openTarget(fs, "desktop")
	assert.Error(t, err)
}
