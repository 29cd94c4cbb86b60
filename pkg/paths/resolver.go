// Package paths turns source file arguments into the directory/file pair of a
// compilation database entry.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// unresolvable holds characters that mark glob patterns or redirections. Such
// tokens are passed through instead of being made absolute.
const unresolvable = "*?<>|"

// Resolver resolves paths against a fixed working directory.
type Resolver struct {
	WorkDir string
}

// NewResolver creates a resolver rooted at the process working directory.
func NewResolver() *Resolver {
	wd, err := os.Getwd()
	if err != nil {
		wd = string(filepath.Separator)
	}
	return &Resolver{WorkDir: wd}
}

// Normalize returns the absolute, cleaned form of p. Patterns and anything that
// cannot be resolved are returned unchanged.
func (r *Resolver) Normalize(p string) string {
	if p == "" || strings.ContainsAny(p, unresolvable) {
		return p
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if r.WorkDir == "" {
		return p
	}
	return filepath.Join(r.WorkDir, p)
}

// ProjectDir returns the directory of the project file, or "" when there is no
// project file.
func (r *Resolver) ProjectDir(projectFile string) string {
	if strings.TrimSpace(projectFile) == "" {
		return ""
	}
	abs := r.Normalize(projectFile)
	if !filepath.IsAbs(abs) {
		return ""
	}
	return filepath.Dir(abs)
}

// Directory picks the entry directory for an already normalized source path:
// the common ancestor of the project directory and the source directory, else
// the source directory, else the working directory.
func (r *Resolver) Directory(projectDir, source string) string {
	sourceDir := filepath.Dir(source)
	if !filepath.IsAbs(sourceDir) {
		sourceDir = r.WorkDir
	}
	if projectDir != "" {
		// Spell the result like the source so Relative stays exact.
		if common, ok := CommonDirectory(sourceDir, projectDir); ok {
			return common
		}
	}
	return sourceDir
}

// Relative expresses target relative to base. It returns "." when both are the
// same directory and target itself when no relative form exists.
func (r *Resolver) Relative(base, target string) string {
	if base == "" {
		return target
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}

// CommonDirectory returns the deepest directory shared by the absolute
// directories a and b. The volume (or root) must match exactly; named segments
// compare case-insensitively. When only the volume matches there is no common
// directory and ok is false. The result uses the spelling of a.
func CommonDirectory(a, b string) (dir string, ok bool) {
	if !filepath.IsAbs(a) || !filepath.IsAbs(b) {
		return "", false
	}
	volA, partsA := segments(a)
	volB, partsB := segments(b)
	if volA != volB {
		return "", false
	}

	n := 0
	for n < len(partsA) && n < len(partsB) && strings.EqualFold(partsA[n], partsB[n]) {
		n++
	}
	if n == 0 {
		return "", false
	}
	return volA + string(filepath.Separator) + filepath.Join(partsA[:n]...), true
}

// segments splits an absolute path into its volume name and named elements.
func segments(p string) (string, []string) {
	p = filepath.Clean(p)
	vol := filepath.VolumeName(p)
	rest := strings.Trim(p[len(vol):], "/"+string(filepath.Separator))
	if rest == "" {
		return vol, nil
	}
	return vol, strings.FieldsFunc(rest, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
}
