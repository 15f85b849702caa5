package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// CheckIgnored returns an error when path lies inside repoRoot but is not
// matched by the repository's .gitignore, so a report file would show up as
// a change on the next run.
func CheckIgnored(repoRoot, path string) error {
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	rel = filepath.ToSlash(rel)

	gitignorePath := filepath.Join(absRoot, ".gitignore")
	if _, err := os.Stat(gitignorePath); err != nil {
		return fmt.Errorf("'%s' is not in a .gitignore file", rel)
	}

	gi, err := ignore.CompileIgnoreFile(gitignorePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", gitignorePath, err)
	}
	if !gi.MatchesPath(rel) {
		return fmt.Errorf("'%s' is not in a .gitignore file", rel)
	}
	return nil
}
