package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ritzau/compdb/pkg/analysis"
	"github.com/ritzau/compdb/pkg/compdb"
	"github.com/ritzau/compdb/pkg/finder"
	"github.com/ritzau/compdb/pkg/logging"
	"github.com/ritzau/compdb/pkg/output"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "List workspace sources missing from a compilation database",
	Args:  cobra.NoArgs,
	RunE:  runCoverage,
}

func init() {
	coverageCmd.Flags().String("workspace", ".", "workspace root to scan for sources")
	coverageCmd.Flags().String("db", "compile_commands.json", "compilation database to check")
}

func runCoverage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	workspace, err := filepath.Abs(cfg.Workspace)
	if err != nil {
		return fmt.Errorf("resolving workspace: %w", err)
	}

	allFiles, err := finder.FindSourceFiles(workspace, cfg.Extensions)
	if err != nil {
		return fmt.Errorf("finding source files: %w", err)
	}
	entries, err := compdb.Load(cfg.DB)
	if err != nil {
		return err
	}
	logging.Debug("coverage inputs", "sources", len(allFiles), "entries", len(entries))

	uncovered := analysis.FindUncoveredFiles(workspace, allFiles, analysis.CoveredFiles(entries))
	output.PrintCoverageReport(cmd.OutOrStdout(), workspace, cfg.DB, len(allFiles), uncovered)
	return nil
}
