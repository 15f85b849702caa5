package impact

import (
	"sort"

	"github.com/agusespa/testscope/internal/types"
)

// ImpactIndex maps (language, symbol) to the identifiers of the test units
// that call the symbol. It is read-only once built.
type ImpactIndex struct {
	bySymbol map[string]map[types.Symbol]types.TestIDSet
	units    map[string]types.TestUnit
}

// BuildIndex indexes every unit in a single pass. Units sharing an ID are
// merged, so the result does not depend on input order.
func BuildIndex(units []*types.TestUnit) *ImpactIndex {
	ordered := make([]*types.TestUnit, 0, len(units))
	for _, u := range units {
		if u != nil {
			ordered = append(ordered, u)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ID != ordered[j].ID {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Path < ordered[j].Path
	})

	ix := &ImpactIndex{
		bySymbol: make(map[string]map[types.Symbol]types.TestIDSet),
		units:    make(map[string]types.TestUnit, len(ordered)),
	}

	for _, u := range ordered {
		ix.addUnit(u)

		symbols, ok := ix.bySymbol[u.Language]
		if !ok {
			symbols = make(map[types.Symbol]types.TestIDSet)
			ix.bySymbol[u.Language] = symbols
		}
		for sym := range u.Invoked {
			ids, ok := symbols[sym]
			if !ok {
				ids = make(types.TestIDSet)
				symbols[sym] = ids
			}
			ids.Add(u.ID)
		}
	}

	return ix
}

func (ix *ImpactIndex) addUnit(u *types.TestUnit) {
	existing, ok := ix.units[u.ID]
	if !ok {
		ix.units[u.ID] = copyUnit(u)
		return
	}

	existing.Invoked = existing.Invoked.Union(u.Invoked)
	for _, m := range u.TestMethods {
		if calls, seen := existing.Calls[m]; seen {
			existing.Calls[m] = calls.Union(u.Calls[m])
			continue
		}
		existing.TestMethods = append(existing.TestMethods, m)
		existing.Calls[m] = u.Calls[m].Union(nil)
	}
	ix.units[u.ID] = existing
}

func copyUnit(u *types.TestUnit) types.TestUnit {
	c := *u
	c.TestMethods = append([]string(nil), u.TestMethods...)
	c.Invoked = u.Invoked.Union(nil)
	c.Calls = make(map[string]types.SymbolSet, len(u.Calls))
	for m, calls := range u.Calls {
		c.Calls[m] = calls.Union(nil)
	}
	return c
}

// Lookup returns the sorted IDs of the test units in language that call sym.
func (ix *ImpactIndex) Lookup(language string, sym types.Symbol) []string {
	ids, ok := ix.bySymbol[language][sym]
	if !ok {
		return nil
	}
	return ids.Sorted()
}

func (ix *ImpactIndex) Unit(id string) (types.TestUnit, bool) {
	u, ok := ix.units[id]
	return u, ok
}

// Len is the number of indexed test units.
func (ix *ImpactIndex) Len() int {
	return len(ix.units)
}

// Units returns the indexed units ordered by ID.
func (ix *ImpactIndex) Units() []types.TestUnit {
	out := make([]types.TestUnit, 0, len(ix.units))
	for _, u := range ix.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SymbolCount is the number of distinct (language, symbol) keys.
func (ix *ImpactIndex) SymbolCount() int {
	n := 0
	for _, symbols := range ix.bySymbol {
		n += len(symbols)
	}
	return n
}
