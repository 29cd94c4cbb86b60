package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDebouncerBatchesByType(t *testing.T) {
	in := make(chan ChangeEvent)
	d := NewDebouncer(in, 20*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	in <- ChangeEvent{Type: ChangeTypeWrite, Paths: []string{"a"}}
	in <- ChangeEvent{Type: ChangeTypeWrite, Paths: []string{"a"}}
	in <- ChangeEvent{Type: ChangeTypeCreate, Paths: []string{"a"}}

	var got []ChangeEvent
	for len(got) < 2 {
		select {
		case ev := <-d.Output():
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %d events", len(got))
		}
	}

	if got[0].Type != ChangeTypeCreate {
		t.Errorf("first event = %v, want create", got[0].Type)
	}
	if got[1].Type != ChangeTypeWrite || len(got[1].Paths) != 2 {
		t.Errorf("second event = %v %v, want write with 2 paths", got[1].Type, got[1].Paths)
	}
}

func TestDebouncerFlushesOnClose(t *testing.T) {
	in := make(chan ChangeEvent, 1)
	d := NewDebouncer(in, time.Hour, time.Hour)
	d.Start(context.Background())

	in <- ChangeEvent{Type: ChangeTypeRemove, Paths: []string{"a"}}
	close(in)

	ev, ok := <-d.Output()
	if !ok || ev.Type != ChangeTypeRemove {
		t.Fatalf("got %v, %v; want remove event", ev, ok)
	}
	if _, ok := <-d.Output(); ok {
		t.Error("output should be closed after input closes")
	}
}

func TestDebouncerStopsWithoutReader(t *testing.T) {
	in := make(chan ChangeEvent)
	d := NewDebouncer(in, 5*time.Millisecond, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	// Nobody reads Output; keep producing batches until the buffer is full.
	for i := 0; i < 15; i++ {
		select {
		case in <- ChangeEvent{Type: ChangeTypeWrite, Paths: []string{"a"}}:
		case <-time.After(100 * time.Millisecond):
		}
		time.Sleep(15 * time.Millisecond)
	}

	cancel()
	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer did not stop after cancel while its output was full")
	}
}

func TestDebouncerMaxWait(t *testing.T) {
	in := make(chan ChangeEvent)
	d := NewDebouncer(in, 50*time.Millisecond, 120*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	stop := make(chan struct{})
	go func() {
		tick := time.NewTicker(10 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				select {
				case in <- ChangeEvent{Type: ChangeTypeWrite, Paths: []string{"a"}}:
				case <-stop:
					return
				}
			}
		}
	}()
	defer close(stop)

	select {
	case ev := <-d.Output():
		if ev.Type != ChangeTypeWrite {
			t.Errorf("Type = %v, want write", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("continuous events must still be flushed after maxWait")
	}
}

func TestAnalyzeChanges(t *testing.T) {
	tests := []struct {
		typ        ChangeType
		wantReopen bool
		wantRead   bool
	}{
		{ChangeTypeWrite, false, true},
		{ChangeTypeCreate, true, true},
		{ChangeTypeRemove, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			a := AnalyzeChanges(ChangeEvent{Type: tt.typ, Paths: []string{"x"}})
			if a.NeedReopen != tt.wantReopen || a.NeedRead != tt.wantRead {
				t.Errorf("AnalyzeChanges(%v) = %+v", tt.typ, a)
			}
			if len(a.ChangedFiles) != 1 {
				t.Errorf("ChangedFiles = %v", a.ChangedFiles)
			}
		})
	}
}

func TestFileWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")

	fw, err := NewFileWatcher(path)
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx)

	if err := os.WriteFile(filepath.Join(dir, "other.log"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("cl.exe /c a.cpp\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-fw.Events():
			for _, p := range ev.Paths {
				if filepath.Base(p) != "events.log" {
					t.Fatalf("unexpected event for %s", p)
				}
			}
			if ev.Type == ChangeTypeCreate || ev.Type == ChangeTypeWrite {
				return
			}
		case <-deadline:
			t.Fatal("no event for the watched file")
		}
	}
}

func TestFileWatcherMissingDirectory(t *testing.T) {
	_, err := NewFileWatcher(filepath.Join(t.TempDir(), "nope", "events.log"))
	if err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
