package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ritzau/compdb/pkg/logging"
)

// Log reads events from a finished build log, one per line.
type Log struct {
	path string
	in   io.Reader
}

// NewLog creates a feed reading path, or standard input when path is "-" or
// empty.
func NewLog(path string) *Log {
	if path == "" || path == "-" {
		return &Log{path: "-", in: os.Stdin}
	}
	return &Log{path: path}
}

// NewReaderLog creates a feed reading from r.
func NewReaderLog(name string, r io.Reader) *Log {
	return &Log{path: name, in: r}
}

func (l *Log) Name() string { return "log:" + l.path }

func (l *Log) Run(ctx context.Context, h Handler) error {
	in := l.in
	if in == nil {
		f, err := os.Open(l.path)
		if err != nil {
			return fmt.Errorf("opening event log: %w", err)
		}
		defer f.Close()
		in = f
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	lines := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lines++
		cmd, ok := ParseEvent(scanner.Text())
		if !ok {
			continue
		}
		if err := h(ctx, cmd); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s at line %d: %w", l.path, lines+1, err)
	}

	logging.Debug("event log exhausted", "feed", l.Name(), "lines", lines)
	return nil
}
