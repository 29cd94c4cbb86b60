package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ritzau/compdb/pkg/cmdline"
	"github.com/ritzau/compdb/pkg/collector"
	"github.com/ritzau/compdb/pkg/paths"
)

var splitCmd = &cobra.Command{
	Use:   "split COMMAND",
	Short: "Show how a command line is tokenized and recorded",
	Long: `Runs COMMAND through the same steps as a recorded build and prints the
classification, the repaired tokens, the source files and the entries that
would be written. Quote COMMAND as one argument to keep its own quoting.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().String("project", "", "project file the command belongs to")
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	project, _ := cmd.Flags().GetString("project")

	line := strings.Join(args, " ")
	pipeline := collector.NewPipeline(cfg.Compilers, cfg.Extensions, paths.NewResolver())
	w := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)

	tokens, ok := pipeline.Tokens(line)
	if !ok {
		color.New(color.FgYellow).Fprintln(w, "not a compile invocation")
		bold.Fprintln(w, "Raw tokens:")
		for i, tok := range cmdline.Split(line) {
			fmt.Fprintf(w, "  %2d  %s\n", i, tok)
		}
		return nil
	}

	color.New(color.FgGreen).Fprintln(w, "compile invocation")
	bold.Fprintln(w, "Tokens:")
	extractor := cmdline.NewExtractor(cfg.Extensions)
	for i, tok := range tokens {
		if extractor.IsSource(tok) {
			fmt.Fprintf(w, "  %2d  %s ", i, tok)
			dim.Fprintln(w, "(source)")
			continue
		}
		fmt.Fprintf(w, "  %2d  %s\n", i, tok)
	}

	entries := pipeline.Entries(collector.Command{Line: line, ProjectFile: project})
	bold.Fprintf(w, "Entries (%d):\n", len(entries))
	for _, e := range entries {
		data, err := json.MarshalIndent(e, "  ", "  ")
		if err != nil {
			return fmt.Errorf("encoding entry: %w", err)
		}
		fmt.Fprintf(w, "  %s\n", data)
		dim.Fprintf(w, "  %s\n", cmdline.Join(e.Arguments))
	}
	return nil
}
