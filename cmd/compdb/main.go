// compdb records MSVC-style compile commands into a compile_commands.json
// compilation database.
package main

import (
	"os"

	"github.com/ritzau/compdb/cmd/compdb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
