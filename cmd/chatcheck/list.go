package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/chatcheck/internal/scenario"
	"github.com/ibeckermayer/chatcheck/internal/store"
)

func getListCmd(c *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDESCRIPTION\tLAST FAILURE")
			for _, s := range scenario.All() {
				last := "-"
				failure, err := st.LastFailure(s.Name())
				switch {
				case err == nil:
					last = failure.FinishedAt.Local().Format("2006-01-02 15:04")
				case !errors.Is(err, store.ErrNotFound):
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name(), s.Description(), last)
			}
			return tw.Flush()
		},
	}
}
