package cmdline

import (
	"strings"
	"unicode"
)

const exeSuffix = ".exe"

// MergeCompilerPath rejoins a compiler path that was split on spaces because it
// was not quoted, e.g. `C:\Program Files\LLVM\bin\clang-cl.exe /c a.cpp`.
//
// When the first token has no whitespace and does not end in .exe, every token
// up to and including the first one ending in .exe is joined with single spaces
// into token 0. Otherwise the tokens are returned unchanged.
func MergeCompilerPath(tokens []string) []string {
	if len(tokens) == 0 {
		return tokens
	}
	first := tokens[0]
	if strings.IndexFunc(first, unicode.IsSpace) >= 0 || hasSuffixFold(first, exeSuffix) {
		return tokens
	}

	exeIndex := -1
	for i := 1; i < len(tokens); i++ {
		if hasSuffixFold(tokens[i], exeSuffix) {
			exeIndex = i
			break
		}
	}
	if exeIndex < 0 {
		return tokens
	}

	merged := strings.Join(tokens[:exeIndex+1], " ")
	out := make([]string, 0, len(tokens)-exeIndex)
	out = append(out, merged)
	return append(out, tokens[exeIndex+1:]...)
}

// MergeDefines folds a detached define flag into its value, turning
// ["/D", "FOO=1"] into ["/DFOO=1"]. The pair is left alone when the value looks
// like another flag.
func MergeDefines(tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if isDefineFlag(tok) && i+1 < len(tokens) {
			next := tokens[i+1]
			if next != "" && !isFlag(next) {
				out = append(out, tok+next)
				i++
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

func isDefineFlag(tok string) bool {
	return strings.EqualFold(tok, "/D") || strings.EqualFold(tok, "-D")
}

func isFlag(tok string) bool {
	return strings.HasPrefix(tok, "/") || strings.HasPrefix(tok, "-")
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
