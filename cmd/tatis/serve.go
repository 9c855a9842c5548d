package main

import (
	"github.com/spf13/cobra"

	"github.com/amasuba/uraics-revenue-assurance/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API over HTTP",
	Long: `Serve the chat API, /healthz and /metrics on server.address until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.address)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.router()
	if err != nil {
		return err
	}
	cfg := a.cfg.Server
	if serveAddr != "" {
		cfg.Address = serveAddr
	}
	return server.New(cfg, r, a.client, a.metrics.Handler, a.logger).Run(cmd.Context())
}
