package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const totalsSource = `package com.example;

public class Totals {
    public static int computeTotal(int[] xs) {
        int t = 0;
        for (int x : xs) t += x;
        return t;
    }
}
`

const totalTestSource = `package com.example;

import org.junit.jupiter.api.Test;

class TotalTest {
    @Test
    void sums() {
        assertEquals(3, Totals.computeTotal(new int[]{1, 2}));
    }
}
`

const otherTestSource = `package com.example;

import org.junit.jupiter.api.Test;

class OtherTest {
    @Test
    void formats() {
        assertEquals("x", Format.render("x"));
    }
}
`

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func javaRepo(t *testing.T) string {
	return writeRepo(t, map[string]string{
		"src/main/java/com/example/Totals.java":    totalsSource,
		"src/test/java/com/example/TotalTest.java": totalTestSource,
		"src/test/java/com/example/OtherTest.java": otherTestSource,
	})
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "version")

	assert.Equal(t, ExitOK, code)
	assert.Contains(t, out, "testscope dev")
}

func TestSelect_ListsImpactedTests(t *testing.T) {
	root := javaRepo(t)

	code, out, _ := runCLI(t, "select", "--repo", root, "--files", "src/main/java/com/example/Totals.java")

	assert.Equal(t, ExitOK, code)
	assert.Contains(t, out, "com.example.TotalTest")
	assert.NotContains(t, out, "com.example.OtherTest")
	assert.Contains(t, out, "Dry run - 1 impacted tests not executed")
}

func TestSelect_NoChanges(t *testing.T) {
	root := javaRepo(t)

	code, out, _ := runCLI(t, "select", "--repo", root, "--files", "README.md")

	assert.Equal(t, ExitOK, code)
	assert.Contains(t, out, "No impacted tests")
}

func TestSelect_WritesReport(t *testing.T) {
	root := javaRepo(t)
	reportPath := filepath.Join(root, "out", "report.json")

	code, _, errOut := runCLI(t, "select", "--repo", root,
		"--files", "src/main/java/com/example/Totals.java",
		"--report", reportPath)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, errOut, "not ignored by git")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var decoded struct {
		Selected        int      `json:"selected"`
		AffectedSymbols []string `json:"affected_symbols"`
		DryRun          bool     `json:"dry_run"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.Selected)
	assert.Equal(t, []string{"computeTotal"}, decoded.AffectedSymbols)
	assert.True(t, decoded.DryRun)
}

func TestSelect_VerboseLogsConfigSource(t *testing.T) {
	root := javaRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".testscope.yaml"), []byte("selection:\n  min_symbol_length: 3\n"), 0o644))

	code, _, errOut := runCLI(t, "select", "--repo", root, "--verbose", "--files", "src/main/java/com/example/Totals.java")

	assert.Equal(t, ExitOK, code)
	assert.Contains(t, errOut, ".testscope.yaml")
	assert.Contains(t, errOut, "enabled=true")
}

func TestRun_DryRunFlag(t *testing.T) {
	root := javaRepo(t)

	code, out, _ := runCLI(t, "run", "--repo", root, "--dry-run", "--files", "src/main/java/com/example/Totals.java")

	assert.Equal(t, ExitOK, code)
	assert.Contains(t, out, "Dry run")
}

func TestRun_ExecutesConfiguredCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	tests := []struct {
		name     string
		script   string
		wantCode int
		wantOut  string
	}{
		{"passing", "exit 0", ExitOK, "1 passed, 0 failed, 0 errored of 1 selected"},
		{"failing", "exit 3", ExitFailure, "0 passed, 1 failed, 0 errored of 1 selected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := javaRepo(t)
			config := "execution:\n  commands:\n    java: [\"sh\", \"-c\", \"" + tt.script + "\"]\n"
			require.NoError(t, os.WriteFile(filepath.Join(root, ".testscope.yaml"), []byte(config), 0o644))

			code, out, _ := runCLI(t, "run", "--repo", root, "--files", "src/main/java/com/example/Totals.java")

			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestRun_FatalWithoutGit(t *testing.T) {
	root := javaRepo(t)

	code, _, errOut := runCLI(t, "run", "--repo", root)

	assert.Equal(t, ExitFatal, code)
	assert.Contains(t, errOut, "Error:")
}

func TestRun_InvalidConfig(t *testing.T) {
	root := javaRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".testscope.yaml"), []byte("execution:\n  concurrency: 0\n"), 0o644))

	code, _, errOut := runCLI(t, "run", "--repo", root, "--files", "src/main/java/com/example/Totals.java")

	assert.Equal(t, ExitFatal, code)
	assert.Contains(t, errOut, "execution.concurrency")
}

func TestRun_UnknownFlag(t *testing.T) {
	code, _, errOut := runCLI(t, "run", "--no-such-flag")

	assert.Equal(t, ExitFatal, code)
	assert.Contains(t, errOut, "unknown flag")
}

func TestRun_BadReportFormat(t *testing.T) {
	root := javaRepo(t)

	code, _, errOut := runCLI(t, "select", "--repo", root, "--files", "a.java", "--format", "xml")

	assert.Equal(t, ExitFatal, code)
	assert.Contains(t, errOut, "report.format")
}

func TestSymbols(t *testing.T) {
	root := javaRepo(t)

	code, out, _ := runCLI(t, "symbols", "--repo", root,
		filepath.Join(root, "src/main/java/com/example/Totals.java"),
		filepath.Join(root, "src/test/java/com/example/TotalTest.java"))

	assert.Equal(t, ExitOK, code)
	assert.Contains(t, out, "src/main/java/com/example/Totals.java (java)")
	assert.Contains(t, out, "computeTotal")
	assert.Contains(t, out, "test unit com.example.TotalTest")
	assert.Contains(t, out, "sums -> ")
}

func TestSymbols_UnsupportedFile(t *testing.T) {
	root := writeRepo(t, map[string]string{"notes.txt": "hello"})

	code, _, errOut := runCLI(t, "symbols", "--repo", root, filepath.Join(root, "notes.txt"))

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut, "no parser registered")
	assert.Contains(t, errOut, "supported languages: c, go, java, python, typescript")
}
