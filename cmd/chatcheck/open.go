package main

import (
	"fmt"
	"path/filepath"

	pkgbrowser "github.com/pkg/browser"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/chatcheck/internal/artifact"
	"github.com/ibeckermayer/chatcheck/internal/runner"
)

func getOpenCmd(c *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:       "open [report|artifacts|config]",
		Short:     "Open the latest report, the artifacts directory or the config file",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"report", "artifacts", "config"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "report"
			if len(args) == 1 {
				target = args[0]
			}
			path, err := c.openTarget(afero.NewOsFs(), target)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, path)
			return pkgbrowser.OpenFile(path)
		},
	}
}

// openTarget resolves what `open` should show
func (c *rootCommand) openTarget(fs afero.Fs, target string) (string, error) {
	switch target {
	case "config":
		return c.configPath, nil
	case "artifacts":
		return c.cfg.Run.ArtifactsDir, nil
	case "report":
		dir, err := artifact.LatestRunDir(fs, c.cfg.Run.ArtifactsDir)
		if err != nil {
			return "", err
		}
		path := filepath.Join(dir, runner.ReportFile)
		if ok, _ := afero.Exists(fs, path); !ok {
			return "", fmt.Errorf("latest run %s has no report", dir)
		}
		return path, nil
	default:
		return "", fmt.Errorf("unknown target: %s", target)
	}
}
