package impact

import (
	"github.com/agusespa/testscope/internal/types"
)

// Resolve unions the index entries of every affected symbol. Matching is
// exact name equality within a language; unknown symbols contribute nothing.
func Resolve(ix *ImpactIndex, affected types.LanguageSymbols) *types.Selection {
	selection := types.NewSelection()

	for language, symbols := range affected {
		for sym := range symbols {
			for _, id := range ix.Lookup(language, sym) {
				selection.Impacted.Add(id)
				reasons, ok := selection.Reasons[id]
				if !ok {
					reasons = make(types.SymbolSet)
					selection.Reasons[id] = reasons
				}
				reasons.Add(sym)
			}
		}
	}

	return selection
}
