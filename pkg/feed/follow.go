package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/ritzau/compdb/pkg/logging"
	"github.com/ritzau/compdb/pkg/watcher"
)

// Follow tails an event log that another process is still writing. The file
// may not exist yet and may be truncated or replaced while followed.
type Follow struct {
	path    string
	quiet   time.Duration
	maxWait time.Duration

	maxLine int

	f       *os.File
	offset  int64
	head    []byte // first bytes read from f, to notice in-place rewrites
	partial []byte
	discard bool // skipping the rest of an oversized line
}

// headSize is how much of the file start is kept to recognize a rewrite.
const headSize = 256

// NewFollow creates a tailing feed. quiet and maxWait control event batching.
func NewFollow(path string, quiet, maxWait time.Duration) *Follow {
	return &Follow{path: path, quiet: quiet, maxWait: maxWait, maxLine: MaxLineSize}
}

func (f *Follow) Name() string { return "follow:" + f.path }

// Run delivers every complete line until ctx is cancelled. A trailing line
// without a newline is delivered when the feed stops.
func (f *Follow) Run(ctx context.Context, h Handler) error {
	fw, err := watcher.NewFileWatcher(f.path)
	if err != nil {
		return err
	}
	wctx, stop := context.WithCancel(ctx)
	defer stop()
	fw.Start(wctx)
	deb := watcher.NewDebouncer(fw.Events(), f.quiet, f.maxWait)
	deb.Start(wctx)

	defer f.closeFile()

	if err := f.read(ctx, h); err != nil {
		return stopped(ctx, err)
	}

	for ev := range deb.Output() {
		change := watcher.AnalyzeChanges(ev)
		logging.Debug("followed file changed", "feed", f.Name(), "type", ev.Type.String())
		if change.NeedReopen && f.replaced() {
			if err := f.read(ctx, h); err != nil {
				return stopped(ctx, err)
			}
			f.closeFile()
		}
		if change.NeedRead {
			if err := f.read(ctx, h); err != nil {
				return stopped(ctx, err)
			}
		}
	}

	if len(bytes.TrimSpace(f.partial)) > 0 {
		if err := f.emit(ctx, h, f.partial); err != nil {
			return stopped(ctx, err)
		}
	}
	return nil
}

// stopped hides the error a handler returns because the feed was cancelled.
func stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// replaced reports whether the open handle no longer refers to the file at
// the followed path.
func (f *Follow) replaced() bool {
	if f.f == nil {
		return false
	}
	cur, err := os.Stat(f.path)
	if err != nil {
		return true
	}
	old, err := f.f.Stat()
	if err != nil {
		return true
	}
	return !os.SameFile(old, cur)
}

// read delivers everything appended since the last read.
func (f *Follow) read(ctx context.Context, h Handler) error {
	if f.f == nil {
		file, err := os.Open(f.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("opening followed file: %w", err)
		}
		f.f = file
		f.restart()
		logging.Info("following file", "path", f.path)
	}

	info, err := f.f.Stat()
	if err != nil {
		return fmt.Errorf("stat followed file: %w", err)
	}
	if info.Size() < f.offset || f.rewritten() {
		logging.Warn("followed file truncated, restarting", "path", f.path, "size", info.Size(), "offset", f.offset)
		f.restart()
	}

	data, err := io.ReadAll(io.NewSectionReader(f.f, f.offset, info.Size()-f.offset))
	if err != nil {
		return fmt.Errorf("reading followed file: %w", err)
	}
	if n := headSize - len(f.head); n > 0 {
		f.head = append(f.head, data[:min(n, len(data))]...)
	}
	f.offset += int64(len(data))

	buf := append(f.partial, data...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := buf[:i]
		buf = buf[i+1:]
		switch {
		case f.discard:
			f.discard = false
		case len(line) > f.maxLine:
			logging.Warn("dropping oversized event line", "path", f.path, "bytes", len(line))
		default:
			if err := f.emit(ctx, h, line); err != nil {
				f.partial = append([]byte(nil), buf...)
				return err
			}
		}
	}

	if f.discard {
		buf = nil
	} else if len(buf) > f.maxLine {
		logging.Warn("dropping oversized event line", "path", f.path, "bytes", len(buf))
		buf, f.discard = nil, true
	}
	f.partial = append([]byte(nil), buf...)
	return nil
}

// restart rewinds to the start of the open file.
func (f *Follow) restart() {
	f.offset, f.head, f.partial, f.discard = 0, nil, nil, false
}

// rewritten reports whether the start of the file no longer matches what was
// read from it, which happens when it is truncated and refilled between reads.
func (f *Follow) rewritten() bool {
	if len(f.head) == 0 {
		return false
	}
	cur := make([]byte, len(f.head))
	n, err := f.f.ReadAt(cur, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	return !bytes.Equal(cur[:n], f.head)
}

func (f *Follow) emit(ctx context.Context, h Handler, line []byte) error {
	cmd, ok := ParseEvent(string(line))
	if !ok {
		return nil
	}
	return h(ctx, cmd)
}

func (f *Follow) closeFile() {
	if f.f != nil {
		_ = f.f.Close()
		f.f = nil
	}
}
