package analysis

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/ritzau/compdb/pkg/compdb"
)

// UncoveredFile represents a workspace source file that no compilation
// database entry compiles.
type UncoveredFile struct {
	Path      string // as found in the workspace
	Directory string // workspace-relative directory, "." for the root
}

// CoveredFiles returns the absolute path of every file the entries compile.
func CoveredFiles(entries []compdb.Entry) []string {
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		file := filepath.FromSlash(e.File)
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.FromSlash(e.Directory), file)
		}
		files = append(files, filepath.Clean(file))
	}
	return files
}

// FindUncoveredFiles compares all source files in the workspace with the files
// covered by the compilation database and returns the uncovered ones, sorted
// by path. Relative paths in allFiles are relative to the workspace. Paths
// compare case-insensitively.
func FindUncoveredFiles(workspace string, allFiles []string, coveredFiles []string) []UncoveredFile {
	workspace = absolute("", workspace)

	coveredSet := make(map[string]bool, len(coveredFiles))
	for _, file := range coveredFiles {
		coveredSet[normalizePath(workspace, file)] = true
	}

	var uncovered []UncoveredFile
	for _, file := range allFiles {
		if coveredSet[normalizePath(workspace, file)] {
			continue
		}
		uncovered = append(uncovered, UncoveredFile{
			Path:      file,
			Directory: relativeDir(workspace, file),
		})
	}

	sort.Slice(uncovered, func(i, j int) bool { return uncovered[i].Path < uncovered[j].Path })
	return uncovered
}

// normalizePath makes a path absolute against the workspace, slash-separated
// and lower-cased for comparison.
func normalizePath(workspace, path string) string {
	return strings.ToLower(filepath.ToSlash(absolute(workspace, path)))
}

// relativeDir returns the file's directory relative to the workspace, or the
// absolute directory when the file lies outside it.
func relativeDir(workspace, file string) string {
	dir := filepath.Dir(absolute(workspace, file))
	rel, err := filepath.Rel(workspace, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(dir)
	}
	return filepath.ToSlash(rel)
}

func absolute(workspace, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(workspace, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
