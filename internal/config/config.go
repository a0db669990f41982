package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Target   TargetConfig   `toml:"target"`
	Browser  BrowserConfig  `toml:"browser"`
	Timeouts TimeoutConfig  `toml:"timeouts"`
	Fixtures FixtureConfig  `toml:"fixtures"`
	Run      RunConfig      `toml:"run"`
	Store    StoreConfig    `toml:"store"`
	Schedule ScheduleConfig `toml:"schedule"`
	Email    EmailConfig    `toml:"email"`
	Log      LogConfig      `toml:"log"`
}

type TargetConfig struct {
	BaseURL string `toml:"base_url"`
}

type BrowserConfig struct {
	Headless     bool   `toml:"headless"`
	ChromePath   string `toml:"chrome_path"`
	NoSandbox    bool   `toml:"no_sandbox"`
	WindowWidth  int    `toml:"window_width"`
	WindowHeight int    `toml:"window_height"`
}

type TimeoutConfig struct {
	Action       Duration `toml:"action"`
	Wait         Duration `toml:"wait"`
	Login        Duration `toml:"login"`
	Scenario     Duration `toml:"scenario"`
	PollInterval Duration `toml:"poll_interval"`
}

// Account is a chat application user the scenarios log in as
type Account struct {
	Username    string `toml:"username"`
	DisplayName string `toml:"display_name"`
	Password    string `toml:"password"`
}

type FixtureConfig struct {
	Primary      Account `toml:"primary"`
	Peer         Account `toml:"peer"`
	Mobile       Account `toml:"mobile"`
	UniqueSuffix bool    `toml:"unique_suffix"`
	SessionFile  string  `toml:"session_file"`
	GroupName    string  `toml:"group_name"`
}

type RunConfig struct {
	Scenarios    []string `toml:"scenarios"`
	Parallel     int      `toml:"parallel"`
	ArtifactsDir string   `toml:"artifacts_dir"`
	ReportFormat string   `toml:"report_format"`
	OpenReport   bool     `toml:"open_report"`
}

type StoreConfig struct {
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

type EmailConfig struct {
	Enabled  bool   `toml:"enabled"`
	Provider string `toml:"provider"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	cacheDir, err := CacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), "chatcheck")
	}
	configDir, err := ConfigDir()
	if err != nil {
		configDir = cacheDir
	}

	return &Config{
		Version: 1,
		Target: TargetConfig{
			BaseURL: "http://localhost:25577",
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1280,
			WindowHeight: 800,
		},
		Timeouts: TimeoutConfig{
			Action:       Duration(10 * time.Second),
			Wait:         Duration(5 * time.Second),
			Login:        Duration(3 * time.Second),
			Scenario:     Duration(2 * time.Minute),
			PollInterval: Duration(100 * time.Millisecond),
		},
		Fixtures: FixtureConfig{
			Primary:     Account{Username: "testuser1", DisplayName: "Test User", Password: "password"},
			Peer:        Account{Username: "userB", DisplayName: "User B", Password: "password"},
			Mobile:      Account{Username: "mobile_user", DisplayName: "Mobile User", Password: "password123"},
			SessionFile: filepath.Join(configDir, "sessions.json"),
			GroupName:   "Test Group",
		},
		Run: RunConfig{
			Scenarios:    []string{},
			Parallel:     1,
			ArtifactsDir: filepath.Join(cacheDir, "artifacts"),
			ReportFormat: "json",
		},
		Store: StoreConfig{
			Path:          filepath.Join(cacheDir, "history.db"),
			RetentionDays: 30,
		},
		Schedule: ScheduleConfig{
			Cron:     "*/30 * * * *",
			Timezone: "UTC",
		},
		Email: EmailConfig{
			Provider: "smtp",
			SMTPPort: 587,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports the first configuration problem found
func (c *Config) Validate() error {
	u, err := url.Parse(c.Target.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid target.base_url %q", c.Target.BaseURL)
	}
	if c.Run.Parallel < 1 {
		return errors.New("run.parallel must be at least 1")
	}
	switch c.Run.ReportFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown run.report_format %q", c.Run.ReportFormat)
	}
	for name, acct := range map[string]Account{
		"primary": c.Fixtures.Primary,
		"peer":    c.Fixtures.Peer,
		"mobile":  c.Fixtures.Mobile,
	} {
		if acct.Username == "" || acct.Password == "" {
			return fmt.Errorf("fixtures.%s needs a username and password", name)
		}
	}
	if c.Fixtures.Primary.Username == c.Fixtures.Peer.Username {
		return errors.New("fixtures.primary and fixtures.peer must be different users")
	}
	if c.Timeouts.PollInterval.Std() <= 0 {
		return errors.New("timeouts.poll_interval must be positive")
	}
	if c.Email.Enabled && c.Email.ToAddr == "" {
		return errors.New("email.to_address is required when email is enabled")
	}
	return nil
}

// URL joins a path onto the target base URL
func (c *Config) URL(path string) string {
	return strings.TrimRight(c.Target.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "chatcheck"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "chatcheck"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from the default location
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from path on top of the defaults, so a partial
// file only overrides the keys it sets.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
