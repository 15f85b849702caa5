// Package impact maps changed declarations onto the tests that call them.
package impact

import (
	"github.com/agusespa/testscope/internal/tools"
	"github.com/agusespa/testscope/internal/types"
)

// Extractor collects the names declared in changed source units.
type Extractor struct {
	registry  *tools.ParserRegistry
	hunksOnly bool
}

func NewExtractor(registry *tools.ParserRegistry, hunksOnly bool) *Extractor {
	return &Extractor{registry: registry, hunksOnly: hunksOnly}
}

// Extract returns the names of every method or function declared in unit.
// When hunk scoping is on and hunks are known, only declarations that
// overlap a changed line are kept. A unit that fails to parse yields an
// empty set and a diagnostic.
func (e *Extractor) Extract(unit *types.SourceUnit, hunks []types.LineRange) (types.SymbolSet, *types.Diagnostic) {
	symbols := make(types.SymbolSet)

	parser := e.registry.GetParser(unit.Path)
	if parser == nil {
		return symbols, &types.Diagnostic{
			Stage:   types.StageInput,
			Path:    unit.Path,
			Message: tools.ErrUnsupportedFile.Error(),
		}
	}

	decls, err := parser.Declarations(unit.Path, unit.Content)
	if err != nil {
		return symbols, &types.Diagnostic{
			Stage:   types.StageParse,
			Path:    unit.Path,
			Message: err.Error(),
		}
	}

	if e.hunksOnly && hunks != nil {
		decls = FilterAffectedDeclarations(decls, hunks)
	}

	for _, d := range decls {
		symbols.Add(types.Symbol(d.Name))
	}
	return symbols, nil
}

// FilterAffectedDeclarations keeps the declarations whose line span
// intersects at least one hunk.
func FilterAffectedDeclarations(decls []types.Declaration, hunks []types.LineRange) []types.Declaration {
	var affected []types.Declaration
	for _, d := range decls {
		for _, r := range hunks {
			if r.Overlaps(d.StartLine, d.EndLine) {
				affected = append(affected, d)
				break
			}
		}
	}
	return affected
}
