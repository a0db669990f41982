package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/chatcheck/internal/chatfake"
)

func getServeFixtureCmd(c *rootCommand) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-fixture",
		Short: "Serve the built-in chat application",
		Long: `Serve a small in-memory chat application that implements the pages and
  selectors the scenarios expect. Useful for trying chatcheck out and for
  developing new scenarios.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := c.logger.WithField("component", "chatfake")
			app := chatfake.New(log)
			defer app.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           app,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Infof("Serving chat application on %s", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// Shutdown does not wait for hijacked websocket connections
			app.Close()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:25577", "listen address")
	return cmd
}
