package tools

import (
	"context"

	"github.com/agusespa/testscope/internal/types"
)

// ChangeSetProvider enumerates the files modified since a baseline.
type ChangeSetProvider interface {
	ChangedFiles(ctx context.Context) (*types.ChangeSet, error)
}

// StaticChangeSet reports a fixed list of paths as modified, without line
// information.
type StaticChangeSet struct {
	Baseline string
	Paths    []string
}

func NewStaticChangeSet(paths []string) *StaticChangeSet {
	return &StaticChangeSet{Baseline: "static", Paths: paths}
}

func (s *StaticChangeSet) ChangedFiles(ctx context.Context) (*types.ChangeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cs := &types.ChangeSet{Baseline: s.Baseline}
	seen := make(map[string]bool, len(s.Paths))
	for _, p := range s.Paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		cs.Files = append(cs.Files, types.ChangedFile{Path: p, Status: types.ChangeModified})
	}
	return cs, nil
}
