package compdb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("compilation database writer is closed")

// Writer streams entries into a JSON array. The opening bracket is written on
// creation and the closing bracket on Close, so the output is a valid array no
// matter how many entries were written. Writer is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	out     *bufio.Writer
	closer  io.Closer
	entries int
	closed  bool
}

// Create creates (or truncates) the file at path and starts the array.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter starts an array on out. The caller keeps ownership of out.
func NewWriter(out io.Writer) (*Writer, error) {
	w := &Writer{out: bufio.NewWriter(out)}
	if _, err := w.out.WriteString("[\n"); err != nil {
		return nil, fmt.Errorf("writing array start: %w", err)
	}
	if err := w.out.Flush(); err != nil {
		return nil, fmt.Errorf("writing array start: %w", err)
	}
	return w, nil
}

// WriteEntry appends one entry and flushes it.
func (w *Writer) WriteEntry(e Entry) error {
	if e.Arguments == nil {
		e.Arguments = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("encoding entry for %s: %w", e.File, err)
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	if w.entries > 0 {
		_, _ = w.out.WriteString(",\n")
	}
	_, _ = w.out.WriteString("  ")
	_, _ = w.out.Write(data)
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("writing entry for %s: %w", e.File, err)
	}
	w.entries++
	return nil
}

// WriteComment writes a /* ... */ marker on its own line. Comments are not
// JSON; they are only written when inline diagnostics are requested.
func (w *Writer) WriteComment(text string) error {
	text = strings.NewReplacer("\r", " ", "\n", " ", "*/", "* /").Replace(text)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	fmt.Fprintf(w.out, "\n/* %s */\n", text)
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("writing comment: %w", err)
	}
	return nil
}

// Entries returns the number of entries written so far.
func (w *Writer) Entries() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries
}

// Close terminates the array and releases the underlying file, if any. Only
// the first call has an effect.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if w.entries > 0 {
		_, _ = w.out.WriteString("\n")
	}
	_, _ = w.out.WriteString("]\n")
	err := w.out.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("closing compilation database: %w", err)
	}
	return nil
}
