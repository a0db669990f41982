package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ibeckermayer/chatcheck/internal/config"
	"github.com/ibeckermayer/chatcheck/internal/logging"
	"github.com/ibeckermayer/chatcheck/internal/store"
)

// errSuiteFailed makes `run` exit non-zero without logging a stack of errors
var errSuiteFailed = errors.New("some scenarios did not pass")

var bannerColor = color.New(color.FgCyan, color.Bold)

// rootCommand keeps everything the subcommands share
type rootCommand struct {
	ctx    context.Context
	cmd    *cobra.Command
	stdout io.Writer
	stderr io.Writer
	logger *logrus.Logger
	cfg    *config.Config

	configPath string
	logLevel   string
	logFormat  string
	verbose    bool
	noColor    bool
}

func newRootCommand(ctx context.Context, stdout, stderr io.Writer) *rootCommand {
	c := &rootCommand{
		ctx:    ctx,
		stdout: stdout,
		stderr: stderr,
		logger: logging.Discard(),
	}
	c.cmd = &cobra.Command{
		Use:               "chatcheck",
		Short:             "UI verification flows for the chat web app",
		Long:              bannerColor.Sprint("chatcheck") + " drives a headless browser through the chat app and reports what it saw.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}
	c.cmd.SetOut(stdout)
	c.cmd.SetErr(stderr)
	c.cmd.PersistentFlags().AddFlagSet(c.persistentFlagSet())

	c.cmd.AddCommand(
		getRunCmd(c),
		getListCmd(c),
		getHistoryCmd(c),
		getWatchCmd(c),
		getInspectCmd(c),
		getOpenCmd(c),
		getServeFixtureCmd(c),
	)
	return c
}

func (c *rootCommand) persistentFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&c.configPath, "config", "c", "", "TOML config file (default $XDG_CONFIG_HOME/chatcheck/config.toml)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&c.logFormat, "log-format", "", "log format: text or json")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	return flags
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, args []string) error {
	if c.noColor {
		color.NoColor = true
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(c.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	c.logger = logger
	c.cfg = cfg
	logger.Debugf("Using config %s", c.configPath)
	return nil
}

// loadConfig reads the config file and applies environment overrides. On
// first use the default config file is created.
func (c *rootCommand) loadConfig() (*config.Config, error) {
	explicit := c.configPath != ""
	if !explicit {
		path, err := config.ConfigPath()
		if err != nil {
			return nil, err
		}
		c.configPath = path
	}

	cfg, err := config.LoadFile(c.configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		cfg = config.Default()
		if err := cfg.Save(c.configPath); err != nil {
			fmt.Fprintf(c.stderr, "Warning: could not save default config: %v\n", err)
		} else {
			fmt.Fprintf(c.stderr, "Created default config at: %s\n", c.configPath)
		}
	default:
		return nil, fmt.Errorf("load config %s: %w", c.configPath, err)
	}

	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	return cfg, nil
}

func (c *rootCommand) openStore() (*store.Store, error) {
	st, err := store.New(c.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", c.cfg.Store.Path, err)
	}
	return st, nil
}

// execute runs the command line and returns the process exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := newRootCommand(ctx, stdout, stderr)
	c.cmd.SetArgs(args)

	err := c.cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errSuiteFailed):
		return 1
	default:
		// Before the config is loaded there is no logger to report through
		if c.cfg == nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		} else {
			c.logger.Error(err)
		}
		return 1
	}
}
