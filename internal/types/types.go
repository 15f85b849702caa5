package types

import "sort"

// Symbol is an unresolved method or function name. Two methods with the same
// name in different types are the same Symbol.
type Symbol string

// SymbolSet is a set of symbol names.
type SymbolSet map[Symbol]struct{}

func NewSymbolSet(names ...string) SymbolSet {
	s := make(SymbolSet, len(names))
	for _, n := range names {
		s.Add(Symbol(n))
	}
	return s
}

func (s SymbolSet) Add(sym Symbol) {
	if sym == "" {
		return
	}
	s[sym] = struct{}{}
}

func (s SymbolSet) Has(sym Symbol) bool {
	_, ok := s[sym]
	return ok
}

func (s SymbolSet) Len() int {
	return len(s)
}

// Union returns a new set holding the members of s and other.
func (s SymbolSet) Union(other SymbolSet) SymbolSet {
	out := make(SymbolSet, len(s)+len(other))
	for sym := range s {
		out[sym] = struct{}{}
	}
	for sym := range other {
		out[sym] = struct{}{}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s SymbolSet) Sorted() []Symbol {
	out := make([]Symbol, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted members as plain strings.
func (s SymbolSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, sym := range sorted {
		out[i] = string(sym)
	}
	return out
}

// LanguageSymbols partitions symbols by the language they were declared in so
// that a change in one language never selects tests written in another.
type LanguageSymbols map[string]SymbolSet

func (ls LanguageSymbols) Add(language string, sym Symbol) {
	set, ok := ls[language]
	if !ok {
		set = make(SymbolSet)
		ls[language] = set
	}
	set.Add(sym)
}

// Merge folds every symbol of other into ls.
func (ls LanguageSymbols) Merge(language string, other SymbolSet) {
	for sym := range other {
		ls.Add(language, sym)
	}
}

// Len counts symbols across all languages.
func (ls LanguageSymbols) Len() int {
	n := 0
	for _, set := range ls {
		n += set.Len()
	}
	return n
}

// All flattens the partition into a single set.
func (ls LanguageSymbols) All() SymbolSet {
	out := make(SymbolSet)
	for _, set := range ls {
		for sym := range set {
			out[sym] = struct{}{}
		}
	}
	return out
}

// Declaration is a named method or function declared in a source file.
type Declaration struct {
	Name      string
	Kind      string
	StartLine int
	EndLine   int
}

// TestMethod is a test entry point and the call targets found in its body.
type TestMethod struct {
	Name  string
	Calls []string
}

// TestFile is the parsing view of a test source file.
type TestFile struct {
	// ID is the fully-qualified class name for Java and the
	// repository-relative path for every other language.
	ID      string
	Package string
	Methods []TestMethod
}

// SourceUnit is one file read from the repository.
type SourceUnit struct {
	Path     string // repository-relative, slash separated
	Content  []byte
	Language string
}

// TestUnit is a test file with at least one test entry point.
type TestUnit struct {
	ID          string
	Path        string
	Language    string
	Package     string
	TestMethods []string
	Invoked     SymbolSet
	Calls       map[string]SymbolSet
}
