package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ritzau/compdb/pkg/feed"
)

var followCmd = &cobra.Command{
	Use:   "follow FILE",
	Short: "Record compile events as a running build appends them",
	Long: `Tails FILE, which another process is writing, until interrupted. The file
may appear later, be truncated or be replaced; the database is closed on
Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runFollow,
}

func init() {
	followCmd.Flags().Duration("quiet", defaultQuiet, "wait this long after the last change before reading")
	followCmd.Flags().Duration("maxwait", defaultMaxWait, "read at least this often while the file keeps changing")
}

func runFollow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	return collect(ctx, cfg, feed.NewFollow(args[0], cfg.Quiet, cfg.MaxWait), cmd.OutOrStdout())
}
