package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/chatcheck/internal/report"
)

func getHistoryCmd(c *rootCommand) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(c.stdout, "No runs recorded yet")
				return nil
			}

			ok := color.New(color.FgGreen).SprintFunc()
			bad := color.New(color.FgRed).SprintFunc()
			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tRESULT\tTARGET")
			for _, r := range runs {
				verdict := ok(fmt.Sprintf("%d/%d passed", r.Passed, r.Total()))
				if !r.OK() {
					verdict = bad(fmt.Sprintf("%d/%d passed", r.Passed, r.Total()))
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.ID,
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
					verdict,
					r.BaseURL,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the results of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.GetRun(args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			report.PrintConsole(c.stdout, run)
			return nil
		},
	})
	return cmd
}
