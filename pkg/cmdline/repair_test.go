package cmdline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeCompilerPath(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{
			name:   "split program files path",
			tokens: []string{`C:\Program`, `Files\LLVM\bin\clang-cl.exe`, "/c", "a.cpp"},
			want:   []string{`C:\Program Files\LLVM\bin\clang-cl.exe`, "/c", "a.cpp"},
		},
		{
			name:   "three way split",
			tokens: []string{`C:\Program`, "Files", `(x86)\cl.exe`, "/c"},
			want:   []string{`C:\Program Files (x86)\cl.exe`, "/c"},
		},
		{
			name:   "already an executable",
			tokens: []string{"CL.EXE", "/c", "tool.exe"},
			want:   []string{"CL.EXE", "/c", "tool.exe"},
		},
		{
			name:   "already quoted with spaces",
			tokens: []string{`C:\Program Files\cl`, "/c", "x.exe"},
			want:   []string{`C:\Program Files\cl`, "/c", "x.exe"},
		},
		{
			name:   "no executable anywhere",
			tokens: []string{"cl", "/c", "a.cpp"},
			want:   []string{"cl", "/c", "a.cpp"},
		},
		{
			name:   "empty",
			tokens: nil,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeCompilerPath(tt.tokens))
		})
	}
}

func TestMergeDefines(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{"slash define", []string{"/D", "FOO=1"}, []string{"/DFOO=1"}},
		{"dash define lower case", []string{"-d", "BAR"}, []string{"-dBAR"}},
		{"next is flag", []string{"/D", "/O2"}, []string{"/D", "/O2"}},
		{"next is dash flag", []string{"-D", "-c"}, []string{"-D", "-c"}},
		{"trailing define", []string{"cl.exe", "/D"}, []string{"cl.exe", "/D"}},
		{"attached define untouched", []string{"/DX", "a.cpp"}, []string{"/DX", "a.cpp"}},
		{
			"several pairs",
			[]string{"cl.exe", "/D", "A", "/c", "-D", "B=2", "a.cpp"},
			[]string{"cl.exe", "/DA", "/c", "-DB=2", "a.cpp"},
		},
		{"consumed value is not reused", []string{"/D", "/D", "X"}, []string{"/D", "/DX"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeDefines(tt.tokens))
		})
	}
}
