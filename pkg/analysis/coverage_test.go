package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ritzau/compdb/pkg/compdb"
	"github.com/ritzau/compdb/pkg/finder"
)

func TestFindUncoveredFiles(t *testing.T) {
	tests := []struct {
		name          string
		allFiles      []string
		coveredFiles  []string
		wantUncovered int
		wantContain   string // File that should be in uncovered list
		wantDir       string
	}{
		{
			name: "simple case with one uncovered file",
			allFiles: []string{
				"/ws/util/strings.cpp",
				"/ws/util/math.cpp",
				"/ws/util/orphaned.cpp",
			},
			coveredFiles: []string{
				"/ws/util/strings.cpp",
				"/ws/util/math.cpp",
			},
			wantUncovered: 1,
			wantContain:   "/ws/util/orphaned.cpp",
			wantDir:       "util",
		},
		{
			name:          "all files covered",
			allFiles:      []string{"/ws/util/strings.cpp", "/ws/main.cpp"},
			coveredFiles:  []string{"/ws/main.cpp", "/ws/util/strings.cpp"},
			wantUncovered: 0,
		},
		{
			name:          "relative and absolute paths mix",
			allFiles:      []string{"util/strings.cpp", "/ws/main.cpp"},
			coveredFiles:  []string{"/ws/util/strings.cpp"},
			wantUncovered: 1,
			wantContain:   "/ws/main.cpp",
			wantDir:       ".",
		},
		{
			name:          "case-insensitive match",
			allFiles:      []string{"/ws/Util/Strings.CPP"},
			coveredFiles:  []string{"/ws/util/strings.cpp"},
			wantUncovered: 0,
		},
		{
			name:          "outside the workspace",
			allFiles:      []string{"/elsewhere/gen.cpp"},
			wantUncovered: 1,
			wantContain:   "/elsewhere/gen.cpp",
			wantDir:       "/elsewhere",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uncovered := FindUncoveredFiles("/ws", tt.allFiles, tt.coveredFiles)

			if len(uncovered) != tt.wantUncovered {
				t.Fatalf("FindUncoveredFiles() found %d uncovered files, want %d: %v", len(uncovered), tt.wantUncovered, uncovered)
			}

			if tt.wantContain != "" {
				found := false
				for _, uf := range uncovered {
					if uf.Path == tt.wantContain {
						found = true
						if uf.Directory != tt.wantDir {
							t.Errorf("Directory = %q, want %q", uf.Directory, tt.wantDir)
						}
					}
				}
				if !found {
					t.Errorf("FindUncoveredFiles() should contain %s, but didn't", tt.wantContain)
				}
			}
		})
	}
}

func TestCoveredFiles(t *testing.T) {
	entries := []compdb.Entry{
		{Directory: "/ws", File: "util/strings.cpp"},
		{Directory: "/ws/core", File: "../main.cpp"},
		{Directory: "/ignored", File: "/abs/gen.cpp"},
	}

	got := CoveredFiles(entries)
	want := []string{"/ws/util/strings.cpp", "/ws/main.cpp", "/abs/gen.cpp"}

	if len(got) != len(want) {
		t.Fatalf("CoveredFiles() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CoveredFiles()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCoverageRoundTrip(t *testing.T) {
	all := []string{"/ws/a.cpp", "/ws/b.cpp", "/ws/sub/c.cpp"}
	entries := []compdb.Entry{{Directory: "/ws/sub", File: "c.cpp"}, {Directory: "/ws", File: "a.cpp"}}

	uncovered := FindUncoveredFiles("/ws", all, CoveredFiles(entries))
	if len(uncovered) != 1 || uncovered[0].Path != "/ws/b.cpp" {
		t.Errorf("FindUncoveredFiles() = %v, want only /ws/b.cpp", uncovered)
	}
}

func TestFindUncoveredFilesRelativeWorkspace(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, f := range []string{"proj/src/a.cpp", "proj/src/b.cpp"} {
		if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(f, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	abs, err := filepath.Abs("proj")
	if err != nil {
		t.Fatal(err)
	}

	all, err := finder.FindSourceFiles("proj", nil)
	if err != nil {
		t.Fatalf("FindSourceFiles() error = %v", err)
	}
	entries := []compdb.Entry{{Directory: filepath.Join(abs, "src"), File: "a.cpp"}}

	uncovered := FindUncoveredFiles("proj", all, CoveredFiles(entries))
	if len(uncovered) != 1 {
		t.Fatalf("FindUncoveredFiles() = %v, want only b.cpp", uncovered)
	}
	if got := filepath.Base(uncovered[0].Path); got != "b.cpp" {
		t.Errorf("uncovered file = %s, want b.cpp", got)
	}
	if uncovered[0].Directory != "src" {
		t.Errorf("Directory = %q, want %q", uncovered[0].Directory, "src")
	}
}
