package finder

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ritzau/compdb/pkg/cmdline"
)

// skippedDirs are version control, IDE and build output directories that never
// hold hand-written sources. Names compare case-insensitively.
var skippedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".vs":          true,
	".vscode":      true,
	"node_modules": true,
	"build":        true,
	"out":          true,
	"bin":          true,
	"obj":          true,
	"x64":          true,
	"debug":        true,
	"release":      true,
}

// FindSourceFiles walks the workspace directory and returns, sorted, the
// absolute path of every file whose extension is in extensions (the defaults
// when empty), excluding skipped directories.
func FindSourceFiles(workspaceRoot string, extensions []string) ([]string, error) {
	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace %s: %w", workspaceRoot, err)
	}
	workspaceRoot = root

	extractor := cmdline.NewExtractor(extensions)
	var sourceFiles []string

	err = filepath.WalkDir(workspaceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != workspaceRoot && skippedDirs[strings.ToLower(d.Name())] {
				return filepath.SkipDir
			}
			return nil
		}

		if extractor.IsSource(d.Name()) {
			sourceFiles = append(sourceFiles, path)
		}
		return nil
	})

	sort.Strings(sourceFiles)
	return sourceFiles, err
}
