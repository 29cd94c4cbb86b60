package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ritzau/compdb/pkg/feed"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [FILE|-]",
	Short: "Ingest a finished build event log",
	Long: `Reads compile events from FILE (standard input when omitted or "-"), one per
line. A line is either a JSON object {"commandLine": ..., "projectFile": ...}
or a raw command line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var l *feed.Log
	if len(args) == 0 || args[0] == "-" {
		l = feed.NewReaderLog("stdin", cmd.InOrStdin())
	} else {
		l = feed.NewLog(args[0])
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	return collect(ctx, cfg, l, cmd.OutOrStdout())
}
