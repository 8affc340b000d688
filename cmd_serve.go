package main

import (
	"github.com/spf13/cobra"

	"github.com/sql-assistant/server/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat page and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appCfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return server.New(appCfg.HTTP, a.runner, a.messages, a.databases).Run(ctx)
	},
}
