package cmdline

import "strings"

// DefaultExtensions is the allow-list of source file extensions: the C, C++ and
// Objective-C families plus C++ module interface units.
var DefaultExtensions = []string{".c", ".cc", ".cp", ".cxx", ".cpp", ".c++", ".m", ".mm", ".ixx"}

// Extractor picks source file arguments out of a token sequence.
type Extractor struct {
	extensions map[string]bool
}

// NewExtractor creates an extractor for the given extensions (leading dot
// optional, case-insensitive). An empty list selects DefaultExtensions.
func NewExtractor(extensions []string) *Extractor {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	e := &Extractor{extensions: make(map[string]bool, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		e.extensions[ext] = true
	}
	return e
}

// IsSource reports whether a token names a source file. Flags are excluded
// even when they end in a source extension (e.g. /Fpfoo.cpp is not a source).
func (e *Extractor) IsSource(tok string) bool {
	if tok == "" || isFlag(tok) {
		return false
	}
	return e.extensions[strings.ToLower(Extension(tok))]
}

// SourceFiles returns the source file tokens in command line order. Duplicates
// are kept. A nil result means there is nothing to record.
func (e *Extractor) SourceFiles(tokens []string) []string {
	var files []string
	for _, tok := range tokens {
		if e.IsSource(tok) {
			files = append(files, tok)
		}
	}
	return files
}

// Extension returns the extension of the last path element, treating both
// slash styles and drive colons as separators regardless of the host OS.
func Extension(tok string) string {
	for i := len(tok) - 1; i >= 0; i-- {
		switch tok[i] {
		case '.':
			return tok[i:]
		case '/', '\\', ':':
			return ""
		}
	}
	return ""
}
