package impact

import (
	"github.com/agusespa/testscope/internal/tools"
	"github.com/agusespa/testscope/internal/types"
)

// Indexer turns test source units into TestUnits carrying the names their
// test entry points call.
type Indexer struct {
	registry *tools.ParserRegistry
}

func NewIndexer(registry *tools.ParserRegistry) *Indexer {
	return &Indexer{registry: registry}
}

// Index parses a test file. It returns nil without a diagnostic when the
// file declares no test entry points.
func (ix *Indexer) Index(unit *types.SourceUnit) (*types.TestUnit, *types.Diagnostic) {
	parser := ix.registry.GetParser(unit.Path)
	if parser == nil {
		return nil, &types.Diagnostic{
			Stage:   types.StageInput,
			Path:    unit.Path,
			Message: tools.ErrUnsupportedFile.Error(),
		}
	}

	testFile, err := parser.TestCalls(unit.Path, unit.Content)
	if err != nil {
		return nil, &types.Diagnostic{
			Stage:   types.StageParse,
			Path:    unit.Path,
			Message: err.Error(),
		}
	}
	if len(testFile.Methods) == 0 {
		return nil, nil
	}

	testUnit := &types.TestUnit{
		ID:       testFile.ID,
		Path:     unit.Path,
		Language: parser.Language(),
		Package:  testFile.Package,
		Invoked:  make(types.SymbolSet),
		Calls:    make(map[string]types.SymbolSet, len(testFile.Methods)),
	}
	if testUnit.ID == "" {
		testUnit.ID = unit.Path
	}

	for _, m := range testFile.Methods {
		calls, seen := testUnit.Calls[m.Name]
		if !seen {
			testUnit.TestMethods = append(testUnit.TestMethods, m.Name)
			calls = make(types.SymbolSet, len(m.Calls))
			testUnit.Calls[m.Name] = calls
		}
		for _, c := range m.Calls {
			calls.Add(types.Symbol(c))
			testUnit.Invoked.Add(types.Symbol(c))
		}
	}

	return testUnit, nil
}
