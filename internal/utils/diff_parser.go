package utils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agusespa/testscope/internal/types"
	"github.com/sourcegraph/go-diff/diff"
)

const devNull = "/dev/null"

// ParseChangedFiles turns a multi-file unified diff into changed files with
// their new-side hunk ranges. Output is ordered by path.
func ParseChangedFiles(diffText string) ([]types.ChangedFile, error) {
	if strings.TrimSpace(diffText) == "" {
		return []types.ChangedFile{}, nil
	}

	fileDiffs, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	byPath := make(map[string]*types.ChangedFile)
	for _, fd := range fileDiffs {
		origName := stripDiffPrefix(fd.OrigName)
		newName := stripDiffPrefix(fd.NewName)

		changed := types.ChangedFile{Status: types.ChangeModified}
		switch {
		case fd.NewName == devNull:
			changed.Path = origName
			changed.Status = types.ChangeDeleted
		case fd.OrigName == devNull:
			changed.Path = newName
			changed.Status = types.ChangeAdded
		default:
			changed.Path = newName
		}
		if changed.Path == "" {
			continue
		}

		for _, h := range fd.Hunks {
			changed.Hunks = append(changed.Hunks, types.LineRange{
				Start: int(h.NewStartLine),
				Count: int(h.NewLines),
			})
		}

		if existing, ok := byPath[changed.Path]; ok {
			existing.Hunks = append(existing.Hunks, changed.Hunks...)
			continue
		}
		byPath[changed.Path] = &changed
	}

	files := make([]types.ChangedFile, 0, len(byPath))
	for _, f := range byPath {
		files = append(files, *f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func stripDiffPrefix(name string) string {
	name = strings.TrimSpace(name)
	if name == devNull {
		return ""
	}
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}
