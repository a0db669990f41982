package config

import (
	"strings"
	"time"

	"github.com/mstoykov/envconfig"
)

// envOverrides lists the settings that can be overridden from the
// environment. Unset variables leave the field nil.
type envOverrides struct {
	BaseURL      *string        `envconfig:"CHATCHECK_BASE_URL"`
	Headless     *bool          `envconfig:"CHATCHECK_HEADLESS"`
	ChromePath   *string        `envconfig:"CHATCHECK_CHROME_PATH"`
	NoSandbox    *bool          `envconfig:"CHATCHECK_NO_SANDBOX"`
	ArtifactsDir *string        `envconfig:"CHATCHECK_ARTIFACTS_DIR"`
	StorePath    *string        `envconfig:"CHATCHECK_STORE_PATH"`
	Parallel     *int           `envconfig:"CHATCHECK_PARALLEL"`
	Scenarios    *string        `envconfig:"CHATCHECK_SCENARIOS"`
	WaitTimeout  *time.Duration `envconfig:"CHATCHECK_WAIT_TIMEOUT"`
	LogLevel     *string        `envconfig:"CHATCHECK_LOG_LEVEL"`
	Password     *string        `envconfig:"CHATCHECK_PASSWORD"`
	SMTPPass     *string        `envconfig:"CHATCHECK_SMTP_PASS"`
}

// ApplyEnv overrides fields from environment variables. lookup defaults to
// the process environment when nil.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var env envOverrides
	var err error
	if lookup == nil {
		err = envconfig.Process("", &env)
	} else {
		err = envconfig.Process("", &env, lookup)
	}
	if err != nil {
		return err
	}

	if env.BaseURL != nil {
		c.Target.BaseURL = *env.BaseURL
	}
	if env.Headless != nil {
		c.Browser.Headless = *env.Headless
	}
	if env.ChromePath != nil {
		c.Browser.ChromePath = *env.ChromePath
	}
	if env.NoSandbox != nil {
		c.Browser.NoSandbox = *env.NoSandbox
	}
	if env.ArtifactsDir != nil {
		c.Run.ArtifactsDir = *env.ArtifactsDir
	}
	if env.StorePath != nil {
		c.Store.Path = *env.StorePath
	}
	if env.Parallel != nil {
		c.Run.Parallel = *env.Parallel
	}
	if env.Scenarios != nil {
		c.Run.Scenarios = splitList(*env.Scenarios)
	}
	if env.WaitTimeout != nil {
		c.Timeouts.Wait = Duration(*env.WaitTimeout)
	}
	if env.LogLevel != nil {
		c.Log.Level = *env.LogLevel
	}
	if env.Password != nil {
		c.Fixtures.Primary.Password = *env.Password
		c.Fixtures.Peer.Password = *env.Password
		c.Fixtures.Mobile.Password = *env.Password
	}
	if env.SMTPPass != nil {
		c.Email.SMTPPass = *env.SMTPPass
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
