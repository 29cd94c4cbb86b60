package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ritzau/compdb/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept compile commands over HTTP",
	Long: `Runs an HTTP collector. A build host begins a session, posts commands as they
run and ends the session when the build finishes:

  POST   /api/sessions                 begin (optional {"output": PATH})
  POST   /api/sessions/{id}/commands   one event, an array, or raw lines
  GET    /api/sessions/{id}/events     progress as Server-Sent Events
  DELETE /api/sessions/{id}            end and return the summary

Open sessions are ended when the server stops.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "127.0.0.1:8080", "address to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	return server.NewServer(cfg).Run(ctx, cfg.Listen)
}
