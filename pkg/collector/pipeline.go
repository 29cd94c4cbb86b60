package collector

import (
	"strings"

	"github.com/ritzau/compdb/pkg/cmdline"
	"github.com/ritzau/compdb/pkg/compdb"
	"github.com/ritzau/compdb/pkg/paths"
)

// Command is a raw command line as delivered by the build host.
type Command struct {
	Line        string `json:"commandLine"`
	ProjectFile string `json:"projectFile,omitempty"`
}

// Pipeline turns one command into compilation database entries. It holds no
// mutable state and can be shared by any number of goroutines.
type Pipeline struct {
	classifier *cmdline.Classifier
	extractor  *cmdline.Extractor
	resolver   *paths.Resolver
}

// NewPipeline creates a pipeline for the given compilers and source extensions.
// Empty lists select the defaults; a nil resolver resolves against the process
// working directory.
func NewPipeline(compilers, extensions []string, resolver *paths.Resolver) *Pipeline {
	if resolver == nil {
		resolver = paths.NewResolver()
	}
	return &Pipeline{
		classifier: cmdline.NewClassifier(compilers),
		extractor:  cmdline.NewExtractor(extensions),
		resolver:   resolver,
	}
}

// Tokens classifies, splits and repairs a command line. ok is false when the
// line is not a compile invocation.
func (p *Pipeline) Tokens(line string) (tokens []string, ok bool) {
	if strings.TrimSpace(line) == "" || !p.classifier.IsCompile(line) {
		return nil, false
	}
	tokens = cmdline.Split(line)
	tokens = cmdline.MergeCompilerPath(tokens)
	tokens = cmdline.MergeDefines(tokens)
	return tokens, len(tokens) > 0
}

// Entries returns one entry per source file compiled by cmd, in command line
// order. Commands that are not compile invocations, or that name no source
// file, yield nil.
func (p *Pipeline) Entries(cmd Command) []compdb.Entry {
	tokens, ok := p.Tokens(cmd.Line)
	if !ok {
		return nil
	}

	files := p.extractor.SourceFiles(tokens)
	if len(files) == 0 {
		return nil
	}

	sources := make([]compdb.SourceFile, len(files))
	for i, tok := range files {
		sources[i] = compdb.SourceFile{Token: tok, Path: p.resolver.Normalize(tok)}
	}
	lookup := func(tok string) (string, bool) {
		if !p.extractor.IsSource(tok) {
			return "", false
		}
		return p.resolver.Normalize(tok), true
	}

	projectDir := p.resolver.ProjectDir(cmd.ProjectFile)
	entries := make([]compdb.Entry, 0, len(sources))
	for _, src := range sources {
		dir := p.resolver.Directory(projectDir, src.Path)
		entries = append(entries, compdb.Entry{
			Directory: dir,
			File:      p.resolver.Relative(dir, src.Path),
			Arguments: compdb.Arguments(tokens, sources, src, lookup),
		})
	}
	return entries
}
