package cmdline

import "strings"

// DefaultCompilers are the compiler executables whose invocations are recorded.
var DefaultCompilers = []string{"cl.exe", "clang-cl.exe"}

// Classifier recognises compile-only compiler invocations.
type Classifier struct {
	compilers []string // lower-cased
}

// NewClassifier creates a classifier for the given compiler executable names.
// An empty list selects DefaultCompilers.
func NewClassifier(compilers []string) *Classifier {
	if len(compilers) == 0 {
		compilers = DefaultCompilers
	}
	c := &Classifier{compilers: make([]string, 0, len(compilers))}
	for _, name := range compilers {
		if name = strings.TrimSpace(name); name != "" {
			c.compilers = append(c.compilers, strings.ToLower(name))
		}
	}
	return c
}

// IsCompile reports whether the raw command line mentions a known compiler and
// carries a standalone /c or -c flag. Linking invocations and compiler calls
// without the compile-only flag are rejected.
func (c *Classifier) IsCompile(line string) bool {
	lower := strings.ToLower(line)

	found := false
	for _, name := range c.compilers {
		if strings.Contains(lower, name) {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	for _, field := range strings.Fields(lower) {
		if field == "/c" || field == "-c" {
			return true
		}
	}
	return false
}
