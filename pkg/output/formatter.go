// Package output prints human-readable reports to the console.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/ritzau/compdb/pkg/analysis"
	"github.com/ritzau/compdb/pkg/collector"
)

// PrintSessionReport prints the outcome of a collection session.
func PrintSessionReport(w io.Writer, st collector.Stats, elapsed time.Duration) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Compilation Database")
	bold.Fprintln(w, "====================")
	fmt.Fprintf(w, "Output: ")
	cyan.Fprintf(w, "%s\n", st.Output)

	if st.Disabled {
		red.Fprintln(w, "Collection was disabled: the output could not be opened.")
		return
	}

	skipped := st.Commands - st.Compiles
	fmt.Fprintf(w, "Commands:  %d received, %d compiled, %d skipped\n", st.Commands, st.Compiles, skipped)
	green.Fprintf(w, "Entries:   %d\n", st.Entries)
	if st.Failures > 0 {
		yellow.Fprintf(w, "Failures:  %d (see log)\n", st.Failures)
	}
	fmt.Fprintf(w, "Elapsed:   %s\n", elapsed.Round(time.Millisecond))

	if st.Entries == 0 {
		yellow.Fprintln(w, "No compile commands were recorded.")
	}
}

// PrintCoverageReport prints a nicely formatted coverage report with colors
func PrintCoverageReport(w io.Writer, workspace, database string, totalFiles int, uncovered []analysis.UncoveredFile) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	coveredFiles := totalFiles - len(uncovered)

	bold.Fprintln(w, "Compilation Database - Coverage Report")
	bold.Fprintln(w, "======================================")
	fmt.Fprintf(w, "Workspace: %s\n", workspace)
	fmt.Fprintf(w, "Database: %s\n", database)
	fmt.Fprintf(w, "Scanned: %d source files\n", totalFiles)

	if len(uncovered) == 0 {
		green.Fprintf(w, "Covered: %d files\n", coveredFiles)
		green.Fprintf(w, "Uncovered: 0 files\n")
	} else {
		fmt.Fprintf(w, "Covered: %d files\n", coveredFiles)
		yellow.Fprintf(w, "Uncovered: %d file(s)\n", len(uncovered))
	}
	fmt.Fprintln(w)

	if len(uncovered) > 0 {
		red.Fprintln(w, "UNCOVERED FILES:")
		lastDir := ""
		for _, uf := range uncovered {
			if uf.Directory != lastDir {
				cyan.Fprintf(w, "  %s/\n", uf.Directory)
				lastDir = uf.Directory
			}
			yellow.Fprintf(w, "    %s\n", uf.Path)
		}
		fmt.Fprintln(w)
	}

	percentage := 100.0
	if totalFiles > 0 {
		percentage = float64(coveredFiles) / float64(totalFiles) * 100.0
	}

	summaryColor := green
	if percentage < 100.0 {
		summaryColor = yellow
	}
	if percentage < 80.0 {
		summaryColor = red
	}

	summaryColor.Fprintf(w, "Summary: %.0f%% coverage (%d/%d files)\n", percentage, coveredFiles, totalFiles)

	if percentage == 100.0 {
		green.Fprintln(w, "✓ Every source file has a compile command!")
	}
}
