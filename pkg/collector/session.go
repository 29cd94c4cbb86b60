// Package collector runs compile commands through the ingestion pipeline and
// streams the resulting entries into a compilation database.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/compdb/pkg/compdb"
	"github.com/ritzau/compdb/pkg/config"
	"github.com/ritzau/compdb/pkg/logging"
	"github.com/ritzau/compdb/pkg/paths"
)

// ErrEnded is returned for commands delivered after the session ended.
var ErrEnded = errors.New("session ended")

// Stats counts what a session has seen.
type Stats struct {
	Output   string `json:"output"`
	Commands int64  `json:"commands"` // delivered by the host
	Compiles int64  `json:"compiles"` // classified as compile invocations with sources
	Entries  int64  `json:"entries"`  // written to the output
	Failures int64  `json:"failures"` // contained per-command failures
	Disabled bool   `json:"disabled"` // output could not be opened
}

// Session is one build session: an open compilation database plus the pipeline
// feeding it. A session whose output could not be opened accepts and discards
// every command.
type Session struct {
	pipeline    *Pipeline
	writer      *compdb.Writer // nil when disabled
	output      string
	diagnostics string
	log         *slog.Logger

	commands atomic.Int64
	compiles atomic.Int64
	entries  atomic.Int64
	failures atomic.Int64

	// mu is held shared while a command is processed and exclusively by End,
	// so no command writes to a closed output.
	mu      sync.RWMutex
	ended   bool
	endOnce sync.Once
	endErr  error
}

// Begin opens cfg.Output and returns the session. Begin never fails: if the
// output cannot be created the error is logged once and the session becomes a
// no-op sink.
func Begin(cfg *config.Config) *Session {
	s := newSession(cfg, NewPipeline(cfg.Compilers, cfg.Extensions, paths.NewResolver()))
	w, err := compdb.Create(cfg.Output)
	if err != nil {
		s.log.Error("cannot open compilation database, collection disabled", "path", cfg.Output, "error", err)
		return s
	}
	s.writer = w
	s.log.Info("session started", "output", cfg.Output)
	return s
}

// BeginWriter starts a session on an existing writer, which the session then
// owns and closes in End.
func BeginWriter(cfg *config.Config, pipeline *Pipeline, w *compdb.Writer) *Session {
	s := newSession(cfg, pipeline)
	s.writer = w
	return s
}

func newSession(cfg *config.Config, pipeline *Pipeline) *Session {
	return &Session{
		pipeline:    pipeline,
		output:      cfg.Output,
		diagnostics: cfg.Diagnostics,
		log:         logging.New("collector"),
	}
}

// Process runs one command through the pipeline and writes its entries. Any
// failure is contained to this command and never propagates to the caller;
// the only error is ErrEnded for a command that arrives after End.
func (s *Session) Process(cmd Command) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ended {
		return ErrEnded
	}
	if s.writer == nil {
		return nil
	}
	s.commands.Add(1)

	defer func() {
		if r := recover(); r != nil {
			s.fail(cmd, fmt.Errorf("panic: %v", r))
			s.log.Debug("recovered panic", "stack", string(debug.Stack()))
		}
	}()

	entries := s.pipeline.Entries(cmd)
	if len(entries) == 0 {
		logging.Trace("command skipped", "line", cmd.Line)
		return nil
	}
	s.compiles.Add(1)

	for _, e := range entries {
		if err := s.writer.WriteEntry(e); err != nil {
			s.fail(cmd, err)
			continue
		}
		s.entries.Add(1)
		s.log.Debug("entry written", "directory", e.Directory, "file", e.File)
	}
	return nil
}

// fail records a contained failure on the side channel and, in inline mode,
// as a marker in the output.
func (s *Session) fail(cmd Command, err error) {
	s.failures.Add(1)
	s.log.Warn("command failed", "error", err, "project", cmd.ProjectFile, "line", cmd.Line)
	if s.diagnostics == config.DiagnosticsInline {
		_ = s.writer.WriteComment("ERROR: " + err.Error() + " ")
	}
}

// Consume processes commands from ch on up to jobs goroutines until ch is
// closed or ctx is cancelled.
func (s *Session) Consume(ctx context.Context, jobs int, ch <-chan Command) error {
	if jobs < 1 {
		jobs = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < jobs; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case cmd, ok := <-ch:
					if !ok {
						return nil
					}
					if err := s.Process(cmd); err != nil {
						return err
					}
				}
			}
		})
	}
	return g.Wait()
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Output:   s.output,
		Commands: s.commands.Load(),
		Compiles: s.compiles.Load(),
		Entries:  s.entries.Load(),
		Failures: s.failures.Load(),
		Disabled: s.writer == nil,
	}
}

// End closes the output. It is safe to call more than once; only the first
// call closes the array and releases the file.
func (s *Session) End() error {
	s.endOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.ended = true
		if s.writer == nil {
			return
		}
		s.endErr = s.writer.Close()
		st := s.Stats()
		s.log.Info("session ended", "output", s.output, "entries", st.Entries, "failures", st.Failures)
	})
	return s.endErr
}

// Close implements io.Closer.
func (s *Session) Close() error { return s.End() }

var _ io.Closer = (*Session)(nil)
