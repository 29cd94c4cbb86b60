package cmdline

import (
	"strings"
	"unicode"
)

// state is the tokenizer state.
type state int

const (
	stateNormal state = iota
	stateInQuotes
)

// Split tokenizes a command line using the quoting rules of the MSVC C runtime
// (the dialect cl.exe and clang-cl.exe parse their own arguments with).
//
// The tokenizer is a two-state machine with a pending backslash counter n:
//
//	state     input        action
//	--------  -----------  --------------------------------------------------
//	any       '\'          n++
//	any       '"', n even  emit n/2 '\', n=0, toggle Normal <-> InQuotes
//	any       '"', n odd   emit n/2 '\' and a literal '"', n=0, keep state
//	any       other        emit n '\', n=0, then handle the character below
//	Normal    whitespace   end current token (if non-empty)
//	InQuotes  whitespace   append to current token
//	any       other char   append to current token
//	end of input           emit n '\', end current token (if non-empty)
//
// An unterminated quote extends to the end of the input. Tokens that end up
// empty, such as a bare "", are not emitted.
func Split(line string) []string {
	var tokens []string
	var current strings.Builder
	st := stateNormal
	backslashes := 0

	flushBackslashes := func(n int) {
		for i := 0; i < n; i++ {
			current.WriteByte('\\')
		}
	}
	endToken := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range line {
		switch {
		case r == '\\':
			backslashes++
			continue

		case r == '"':
			flushBackslashes(backslashes / 2)
			if backslashes%2 == 1 {
				current.WriteRune('"')
			} else if st == stateNormal {
				st = stateInQuotes
			} else {
				st = stateNormal
			}
			backslashes = 0
			continue
		}

		flushBackslashes(backslashes)
		backslashes = 0

		if unicode.IsSpace(r) && st == stateNormal {
			endToken()
			continue
		}
		current.WriteRune(r)
	}

	flushBackslashes(backslashes)
	endToken()
	return tokens
}

// Join is the inverse of Split for non-empty tokens: it quotes every token that
// contains whitespace or a double quote so that Split(Join(t)) == t.
func Join(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(quote(tok))
	}
	return b.String()
}

func quote(tok string) string {
	if tok != "" && !strings.ContainsFunc(tok, func(r rune) bool { return r == '"' || unicode.IsSpace(r) }) {
		return tok
	}

	var b strings.Builder
	b.WriteByte('"')
	backslashes := 0
	for _, r := range tok {
		switch r {
		case '\\':
			backslashes++
			continue
		case '"':
			// Double the run and escape the quote itself.
			b.WriteString(strings.Repeat(`\`, backslashes*2+1))
			b.WriteByte('"')
		default:
			b.WriteString(strings.Repeat(`\`, backslashes))
			b.WriteRune(r)
		}
		backslashes = 0
	}
	// A trailing run would otherwise escape the closing quote.
	b.WriteString(strings.Repeat(`\`, backslashes*2))
	b.WriteByte('"')
	return b.String()
}
