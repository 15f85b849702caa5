package tools

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agusespa/testscope/internal/types"
	"github.com/agusespa/testscope/internal/utils"
)

var (
	ErrUnsupportedFile = errors.New("no parser registered for file")
	ErrOutsideRoot     = errors.New("path is outside repository root")
)

// SourceReader loads repository files as SourceUnits.
type SourceReader struct {
	root     string
	registry *ParserRegistry
}

func NewSourceReader(root string, registry *ParserRegistry) *SourceReader {
	return &SourceReader{root: root, registry: registry}
}

// Read resolves p against the repository root and returns its content
// tagged with the language of the parser that handles it.
func (r *SourceReader) Read(p string) (*types.SourceUnit, error) {
	rel, err := utils.RepoRelative(r.root, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}

	parser := r.registry.GetParser(rel)
	if parser == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, rel)
	}

	content, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return &types.SourceUnit{
		Path:     rel,
		Content:  content,
		Language: parser.Language(),
	}, nil
}
