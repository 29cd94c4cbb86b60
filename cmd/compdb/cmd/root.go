package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/compdb/pkg/config"
	"github.com/ritzau/compdb/pkg/logging"
)

const (
	defaultQuiet   = 100 * time.Millisecond
	defaultMaxWait = time.Second
)

var rootCmd = &cobra.Command{
	Use:   "compdb",
	Short: "Record compile commands into a compilation database",
	Long: `Records compile-only cl.exe / clang-cl.exe invocations into a
compile_commands.json compilation database, one entry per source file.

Configuration is read from compdb.toml, COMPDB_* environment variables and
flags, in increasing priority.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logging.Error("command failed", "error", err)
	}
	return err
}

func init() {
	rootCmd.SilenceErrors = true

	f := rootCmd.PersistentFlags()
	f.StringP("output", "o", "compile_commands.json", "compilation database to write")
	f.IntP("jobs", "j", runtime.NumCPU(), "commands processed in parallel")
	f.String("diagnostics", config.DiagnosticsLog, `where per-command failures go: "log" or "inline"`)
	f.StringSlice("compilers", nil, "compiler executable names to record (default cl.exe,clang-cl.exe)")
	f.StringSlice("extensions", nil, "source file extensions (default C, C++ and Objective-C families)")
	f.String("verbosity", "", "log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "increase log verbosity (-v debug, -vv trace)")
	f.Bool("json", false, "log as JSON lines")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(coverageCmd)
}

// loadConfig layers config sources over the command's flags and configures
// logging from the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return nil, err
	}
	logging.Configure(os.Stderr, level, cfg.JSONLogs)
	logging.Debug("configuration loaded", "output", cfg.Output, "jobs", cfg.Jobs, "diagnostics", cfg.Diagnostics)
	return cfg, nil
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
