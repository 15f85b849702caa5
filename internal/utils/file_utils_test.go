package utils

import (
	"path/filepath"
	"testing"
)

func TestRepoRelative(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"relative", "src/a.go", "src/a.go", false},
		{"absolute inside", filepath.Join(root, "pkg", "b.go"), "pkg/b.go", false},
		{"dot segments", "src/../lib/c.go", "lib/c.go", false},
		{"escapes root", "../outside.go", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RepoRelative(root, tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RepoRelative() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("RepoRelative() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestFileStem(t *testing.T) {
	tests := map[string]string{
		"tests/test_total.c": "test_total",
		"a/b/ledger.test.ts": "ledger.test",
		"Makefile":           "Makefile",
		".hidden":            ".hidden",
	}
	for input, want := range tests {
		if got := FileStem(input); got != want {
			t.Errorf("FileStem(%q) = %q; want %q", input, got, want)
		}
	}
}
