package main

import (
	"fmt"

	pkgbrowser "github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/chatcheck/internal/report"
	"github.com/ibeckermayer/chatcheck/internal/runner"
	"github.com/ibeckermayer/chatcheck/internal/scenario"
)

type runFlags struct {
	baseURL  string
	parallel int
	format   string
	headed   bool
	open     bool
}

func getRunCmd(c *rootCommand) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run verification scenarios",
		Long: `Run verification scenarios against the chat application.

  With no arguments the scenarios listed in run.scenarios are run, or all of
  them when that list is empty. The exit status is 1 unless every scenario
  passed.`,
		Example: `  chatcheck run
  chatcheck run chat checkmarks --base-url http://localhost:25577`,
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return scenario.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			flags := cmd.Flags()
			if flags.Changed("base-url") {
				cfg.Target.BaseURL = f.baseURL
			}
			if flags.Changed("parallel") {
				cfg.Run.Parallel = f.parallel
			}
			if flags.Changed("format") {
				cfg.Run.ReportFormat = f.format
			}
			if f.headed {
				cfg.Browser.Headless = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := runner.New(cfg, st, c.logger)
			if err != nil {
				return err
			}
			res, runErr := r.Run(cmd.Context(), args)
			if res == nil {
				return runErr
			}
			if runErr != nil {
				c.logger.Warnf("Run finished with problems: %v", runErr)
			}

			report.PrintConsole(c.stdout, res.Run)
			if res.ReportPath != "" {
				fmt.Fprintf(c.stdout, "Report: %s\n", res.ReportPath)
				if f.open || cfg.Run.OpenReport {
					if err := pkgbrowser.OpenFile(res.ReportPath); err != nil {
						c.logger.Warnf("Could not open report: %v", err)
					}
				}
			}

			if !res.Run.Passed() {
				return errSuiteFailed
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.baseURL, "base-url", "", "URL of the chat application")
	flags.IntVarP(&f.parallel, "parallel", "p", 1, "number of scenarios run at once")
	flags.StringVar(&f.format, "format", "json", "summary format: json or yaml")
	flags.BoolVar(&f.headed, "headed", false, "show the browser window")
	flags.BoolVar(&f.open, "open", false, "open the HTML report when done")
	return cmd
}
