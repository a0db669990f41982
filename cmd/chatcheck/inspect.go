package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/page"
)

func getInspectCmd(c *rootCommand) *cobra.Command {
	var mobile bool
	cmd := &cobra.Command{
		Use:   "inspect [path]",
		Short: "Open the chat application in a visible browser",
		Long: `Open the chat application in a visible browser configured the way the
  scenarios see it, for checking selectors and layouts by hand.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			cfg.Browser.Headless = false

			ctx := cmd.Context()
			b, err := browser.Launch(ctx, cfg.Browser, c.logger)
			if err != nil {
				return err
			}
			defer b.Close()

			opts := browser.Desktop()
			if mobile {
				opts = browser.Mobile()
			}
			sess, err := b.NewSession("inspect", opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			timeouts := page.Timeouts{
				Action: cfg.Timeouts.Action.Std(),
				Wait:   cfg.Timeouts.Wait.Std(),
				Poll:   cfg.Timeouts.PollInterval.Std(),
			}
			p := page.New(sess, "inspect", nil, timeouts, c.logger)
			if err := p.Goto(ctx, cfg.URL(path)); err != nil {
				return err
			}

			fmt.Fprintln(c.stdout, "Press Enter to close the browser...")
			done := make(chan struct{})
			go func() {
				bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&mobile, "mobile", false, "emulate the 375x667 phone used by the mobile scenarios")
	return cmd
}
