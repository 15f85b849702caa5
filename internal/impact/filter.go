package impact

import (
	"github.com/agusespa/testscope/internal/types"
)

// SymbolFilter drops affected symbols that are too short or too common to
// be a useful selection signal. The zero value keeps everything.
type SymbolFilter struct {
	MinLength int
	Deny      []string
}

func (f SymbolFilter) Enabled() bool {
	return f.MinLength > 0 || len(f.Deny) > 0
}

// Apply splits affected into the symbols kept for resolution and the ones
// that were filtered out.
func (f SymbolFilter) Apply(affected types.LanguageSymbols) (types.LanguageSymbols, types.SymbolSet) {
	kept := make(types.LanguageSymbols, len(affected))
	ignored := make(types.SymbolSet)

	deny := make(map[types.Symbol]bool, len(f.Deny))
	for _, d := range f.Deny {
		deny[types.Symbol(d)] = true
	}

	for language, symbols := range affected {
		set := make(types.SymbolSet, len(symbols))
		for sym := range symbols {
			if deny[sym] || len([]rune(string(sym))) < f.MinLength {
				ignored.Add(sym)
				continue
			}
			set.Add(sym)
		}
		kept[language] = set
	}

	return kept, ignored
}
