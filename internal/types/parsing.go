package types

import "sort"

// ChangeStatus describes how a file differs from the baseline.
type ChangeStatus string

const (
	ChangeModified  ChangeStatus = "modified"
	ChangeAdded     ChangeStatus = "added"
	ChangeDeleted   ChangeStatus = "deleted"
	ChangeUntracked ChangeStatus = "untracked"
)

// LineRange is a span of new-side lines touched by a diff hunk.
type LineRange struct {
	Start int
	Count int
}

// Overlaps reports whether the 1-indexed inclusive span [start, end]
// intersects the range. A zero-count range marks a pure deletion and is
// treated as the single line it sits on.
func (r LineRange) Overlaps(start, end int) bool {
	last := r.Start + r.Count - 1
	if r.Count == 0 {
		last = r.Start
	}
	return start <= last && end >= r.Start
}

// ChangedFile is one path reported by a change set provider.
type ChangedFile struct {
	Path   string
	Status ChangeStatus
	// Hunks is nil when line information is unavailable (untracked or
	// explicitly listed files).
	Hunks []LineRange
}

// ChangeSet is the list of files believed modified since a baseline.
type ChangeSet struct {
	Baseline string
	Files    []ChangedFile
}

// Paths returns the changed paths in the order they were reported.
func (cs *ChangeSet) Paths() []string {
	paths := make([]string, 0, len(cs.Files))
	for _, f := range cs.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// TestIDSet is a set of test unit identifiers.
type TestIDSet map[string]struct{}

func (s TestIDSet) Add(id string) {
	s[id] = struct{}{}
}

func (s TestIDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s TestIDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Selection is the impacted test set together with the affected symbols
// that caused each test to be picked.
type Selection struct {
	Impacted TestIDSet
	Reasons  map[string]SymbolSet
}

func NewSelection() *Selection {
	return &Selection{
		Impacted: make(TestIDSet),
		Reasons:  make(map[string]SymbolSet),
	}
}

func (s *Selection) Empty() bool {
	return len(s.Impacted) == 0
}
