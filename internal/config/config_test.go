package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:25577", cfg.Target.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Wait.Std())
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[target]
base_url = "http://chat.internal:3000"

[timeouts]
wait = "750ms"

[fixtures.peer]
username = "bob"
display_name = "Bob"
password = "hunter2"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://chat.internal:3000", cfg.Target.BaseURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeouts.Wait.Std())
	assert.Equal(t, "bob", cfg.Fixtures.Peer.Username)
	// untouched keys keep their defaults
	assert.Equal(t, "testuser1", cfg.Fixtures.Primary.Username)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Action.Std())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Target.BaseURL = "http://example.test:8080"
	cfg.Timeouts.Scenario = Duration(90 * time.Second)
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Target.BaseURL, loaded.Target.BaseURL)
	assert.Equal(t, 90*time.Second, loaded.Timeouts.Scenario.Std())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CHATCHECK_BASE_URL":     "http://10.0.0.5:25577",
		"CHATCHECK_HEADLESS":     "false",
		"CHATCHECK_PARALLEL":     "3",
		"CHATCHECK_SCENARIOS":    "chat, mobile,,responsive",
		"CHATCHECK_WAIT_TIMEOUT": "2s",
		"CHATCHECK_PASSWORD":     "s3cret",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "http://10.0.0.5:25577", cfg.Target.BaseURL)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 3, cfg.Run.Parallel)
	assert.Equal(t, []string{"chat", "mobile", "responsive"}, cfg.Run.Scenarios)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Wait.Std())
	assert.Equal(t, "s3cret", cfg.Fixtures.Peer.Password)
	// not set in env
	assert.Equal(t, Default().Store.Path, cfg.Store.Path)
}

func TestApplyEnvBadValue(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "CHATCHECK_PARALLEL" {
			return "many", true
		}
		return "", false
	}
	require.Error(t, Default().ApplyEnv(lookup))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no scheme", func(c *Config) { c.Target.BaseURL = "localhost:25577" }},
		{"zero parallel", func(c *Config) { c.Run.Parallel = 0 }},
		{"bad format", func(c *Config) { c.Run.ReportFormat = "xml" }},
		{"missing password", func(c *Config) { c.Fixtures.Mobile.Password = "" }},
		{"same users", func(c *Config) { c.Fixtures.Peer.Username = c.Fixtures.Primary.Username }},
		{"zero poll", func(c *Config) { c.Timeouts.PollInterval = 0 }},
		{"email without recipient", func(c *Config) { c.Email.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestURL(t *testing.T) {
	cfg := Default()
	cfg.Target.BaseURL = "http://localhost:25577/"
	assert.Equal(t, "http://localhost:25577/app.html", cfg.URL("/app.html"))
	assert.Equal(t, "http://localhost:25577/", cfg.URL("/"))
}
