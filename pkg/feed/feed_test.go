package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/compdb/pkg/collector"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   collector.Command
		wantOK bool
	}{
		{"blank", "   ", collector.Command{}, false},
		{"raw", "cl.exe /c a.cpp\r", collector.Command{Line: "cl.exe /c a.cpp"}, true},
		{
			"json",
			`{"commandLine": "cl.exe /c a.cpp", "projectFile": "C:\\p\\a.vcxproj"}`,
			collector.Command{Line: "cl.exe /c a.cpp", ProjectFile: `C:\p\a.vcxproj`},
			true,
		},
		{"json without command", `{"projectFile": "a.vcxproj"}`, collector.Command{ProjectFile: "a.vcxproj"}, false},
		{"not json", "{ cl.exe /c a.cpp", collector.Command{Line: "{ cl.exe /c a.cpp"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseEvent(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func collect(cmds *[]collector.Command) Handler {
	return func(_ context.Context, cmd collector.Command) error {
		*cmds = append(*cmds, cmd)
		return nil
	}
}

func TestLogFeed(t *testing.T) {
	in := strings.Join([]string{
		"cl.exe /c a.cpp",
		"",
		`{"commandLine": "cl.exe /c b.cpp", "projectFile": "/p/b.vcxproj"}`,
		"link.exe a.obj",
	}, "\n")

	var got []collector.Command
	l := NewReaderLog("mem", strings.NewReader(in))
	require.NoError(t, l.Run(context.Background(), collect(&got)))

	assert.Equal(t, "log:mem", l.Name())
	require.Len(t, got, 3)
	assert.Equal(t, "/p/b.vcxproj", got[1].ProjectFile)
	assert.Equal(t, "link.exe a.obj", got[2].Line)
}

func TestLogFeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.events")
	require.NoError(t, os.WriteFile(path, []byte("cl.exe /c a.cpp\ncl.exe /c b.cpp\n"), 0o644))

	var got []collector.Command
	require.NoError(t, NewLog(path).Run(context.Background(), collect(&got)))
	assert.Len(t, got, 2)

	err := NewLog(filepath.Join(t.TempDir(), "missing")).Run(context.Background(), collect(&got))
	assert.Error(t, err)
}

func TestLogFeedHandlerErrorStops(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	l := NewReaderLog("mem", strings.NewReader("a\nb\nc\n"))

	err := l.Run(context.Background(), func(context.Context, collector.Command) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestLogFeedLongLine(t *testing.T) {
	long := "cl.exe /c " + strings.Repeat("/DX ", 200_000) + "a.cpp"

	var got []collector.Command
	require.NoError(t, NewReaderLog("mem", strings.NewReader(long)).Run(context.Background(), collect(&got)))
	require.Len(t, got, 1)
	assert.Equal(t, long, got[0].Line)
}

func TestFollowFeedRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.events")
	appendFile(t, path, "cl.exe /c a.cpp\n")

	rec, stop := follow(t, NewFollow(path, 10*time.Millisecond, 50*time.Millisecond))
	require.Eventually(t, func() bool { return len(rec.lines()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Rename(path, path+".1"))
	time.Sleep(50 * time.Millisecond)
	appendFile(t, path, "cl.exe /c b.cpp\n")
	require.Eventually(t, func() bool { return len(rec.lines()) == 2 }, 5*time.Second, 10*time.Millisecond)

	appendFile(t, path, "cl.exe /c c.cpp\n")
	require.Eventually(t, func() bool { return len(rec.lines()) == 3 }, 5*time.Second, 10*time.Millisecond)

	stop()
	assert.Equal(t, []string{"cl.exe /c a.cpp", "cl.exe /c b.cpp", "cl.exe /c c.cpp"}, rec.lines())
}

func TestFollowFeedRewrittenLonger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.events")
	appendFile(t, path, "cl.exe /c a.cpp\n")

	rec, stop := follow(t, NewFollow(path, 10*time.Millisecond, 50*time.Millisecond))
	require.Eventually(t, func() bool { return len(rec.lines()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("cl.exe /c x.cpp\ncl.exe /c y.cpp\n"), 0o644))
	require.Eventually(t, func() bool { return len(rec.lines()) == 3 }, 5*time.Second, 10*time.Millisecond)

	stop()
	assert.Equal(t, []string{"cl.exe /c a.cpp", "cl.exe /c x.cpp", "cl.exe /c y.cpp"}, rec.lines())
}

func TestFollowFeedDropsOversizedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.events")
	appendFile(t, path, "")

	f := NewFollow(path, 10*time.Millisecond, 50*time.Millisecond)
	f.maxLine = 32
	rec, stop := follow(t, f)

	appendFile(t, path, "cl.exe /c "+strings.Repeat("x", 40))
	time.Sleep(100 * time.Millisecond)
	appendFile(t, path, "tail.cpp\ncl.exe /c ok.cpp\n")

	require.Eventually(t, func() bool { return len(rec.lines()) == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	stop()
	assert.Equal(t, []string{"cl.exe /c ok.cpp"}, rec.lines())
}

// follow runs f in the background; the returned func cancels it and waits for
// a clean exit.
func follow(t *testing.T, f *Follow) (*recorder, func()) {
	t.Helper()
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, rec.handle) }()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("follow feed did not stop")
		}
	}
	t.Cleanup(stop)
	return rec, stop
}

type recorder struct {
	mu   sync.Mutex
	cmds []string
}

func (r *recorder) handle(_ context.Context, cmd collector.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd.Line)
	return nil
}

func (r *recorder) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cmds...)
}

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestFollowFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.events")
	appendFile(t, path, "cl.exe /c a.cpp\n")

	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewFollow(path, 10*time.Millisecond, 50*time.Millisecond).Run(ctx, rec.handle)
	}()

	require.Eventually(t, func() bool { return len(rec.lines()) == 1 }, 5*time.Second, 10*time.Millisecond)

	appendFile(t, path, "cl.exe /c b.cpp\ncl.exe /c c")
	require.Eventually(t, func() bool { return len(rec.lines()) == 2 }, 5*time.Second, 10*time.Millisecond)

	appendFile(t, path, ".cpp\n")
	require.Eventually(t, func() bool { return len(rec.lines()) == 3 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("cl.exe /c d.cpp\n"), 0o644))
	require.Eventually(t, func() bool { return len(rec.lines()) == 4 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("follow feed did not stop")
	}

	assert.Equal(t, []string{
		"cl.exe /c a.cpp",
		"cl.exe /c b.cpp",
		"cl.exe /c c.cpp",
		"cl.exe /c d.cpp",
	}, rec.lines())
}

func TestFollowFeedWaitsForFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.events")

	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = NewFollow(path, 10*time.Millisecond, 50*time.Millisecond).Run(ctx, rec.handle)
	}()

	time.Sleep(50 * time.Millisecond)
	appendFile(t, path, "cl.exe /c late.cpp\n")

	require.Eventually(t, func() bool { return len(rec.lines()) == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"cl.exe /c late.cpp"}, rec.lines())
}
