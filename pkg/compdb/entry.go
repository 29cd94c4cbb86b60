package compdb

import "strings"

// Entry is one element of a compilation database.
type Entry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments"`
}

// SourceFile is a source argument together with its normalized path.
type SourceFile struct {
	Token string // as written on the command line
	Path  string // absolute, cleaned
}

// Lookup resolves a token to its normalized path if the token is a source file.
type Lookup func(token string) (path string, ok bool)

// Arguments builds the argument list that compiles only target out of a
// command that compiles every file in sources.
//
// Non-source tokens are kept in order. Source tokens are kept when they are the
// target (first occurrence only) or when they are not part of sources at all;
// the other files of the invocation are dropped. If the target was never seen
// its token is appended.
func Arguments(tokens []string, sources []SourceFile, target SourceFile, lookup Lookup) []string {
	siblings := make(map[string]bool, len(sources))
	for _, src := range sources {
		siblings[strings.ToLower(src.Path)] = true
	}

	out := make([]string, 0, len(tokens))
	hasTarget := false
	for _, tok := range tokens {
		path, ok := lookup(tok)
		if !ok {
			out = append(out, tok)
			continue
		}
		switch {
		case strings.EqualFold(path, target.Path):
			if !hasTarget {
				out = append(out, tok)
				hasTarget = true
			}
		case !siblings[strings.ToLower(path)]:
			out = append(out, tok)
		}
	}

	if !hasTarget {
		out = append(out, target.Token)
	}
	return out
}
