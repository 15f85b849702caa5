package tools

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/agusespa/testscope/internal/types"
	"github.com/agusespa/testscope/internal/utils"
)

const DefaultBaseline = "HEAD"

// GitChangeSet reports working tree changes against a baseline revision,
// including staged and untracked files. Paths are relative to RepoRoot.
type GitChangeSet struct {
	RepoRoot string
	Baseline string
	logger   *slog.Logger
}

func NewGitChangeSet(repoRoot, baseline string, logger *slog.Logger) *GitChangeSet {
	if baseline == "" {
		baseline = DefaultBaseline
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitChangeSet{
		RepoRoot: repoRoot,
		Baseline: baseline,
		logger:   logger,
	}
}

func (g *GitChangeSet) ChangedFiles(ctx context.Context) (*types.ChangeSet, error) {
	diffOutput, err := g.git(ctx, "diff", "--no-color", "--no-ext-diff", "--relative", "--no-renames", "-U0", g.Baseline, "--")
	if err != nil {
		return nil, fmt.Errorf("failed to diff against %s: %w", g.Baseline, err)
	}

	files, err := utils.ParseChangedFiles(diffOutput)
	if err != nil {
		return nil, err
	}

	untrackedOutput, err := g.git(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("failed to list untracked files: %w", err)
	}

	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.Path] = true
	}
	for _, p := range utils.ParseFileList(untrackedOutput) {
		if known[p] {
			continue
		}
		files = append(files, types.ChangedFile{Path: p, Status: types.ChangeUntracked})
	}

	g.logger.Debug("collected changed files", "baseline", g.Baseline, "count", len(files))

	return &types.ChangeSet{Baseline: g.Baseline, Files: files}, nil
}

func (g *GitChangeSet) git(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-c", "core.quotePath=false"}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	cmd.Dir = g.RepoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s: %s: %w", args[0], msg, err)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return stdout.String(), nil
}
