package tools

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agusespa/testscope/internal/types"
)

// ErrSyntax is returned when a file does not parse cleanly.
var ErrSyntax = errors.New("syntax error")

type LanguageParser interface {
	// Declarations returns every method/function declared anywhere in the file,
	// nested and anonymous-class members included.
	Declarations(filePath string, content []byte) ([]types.Declaration, error)

	// TestCalls returns the test entry points of a test file and the call
	// targets found in each entry point's body.
	TestCalls(filePath string, content []byte) (*types.TestFile, error)

	// IsTestFile applies the language's test file naming convention to a
	// repository-relative path.
	IsTestFile(relPath string) bool

	// SupportedExtensions returns the file extensions this parser can handle
	SupportedExtensions() []string

	// Language returns the identifier of the language this parser handles
	Language() string
}

// ParserOptions tunes language specific test detection.
type ParserOptions struct {
	// JavaTestAnnotations lists the annotation simple names that mark a Java
	// method as a test entry point.
	JavaTestAnnotations []string
}

type ParserRegistry struct {
	parsers map[string]LanguageParser
}

func NewParserRegistry(opts ParserOptions) *ParserRegistry {
	registry := &ParserRegistry{
		parsers: make(map[string]LanguageParser),
	}

	registry.RegisterParser(NewJavaParser(opts.JavaTestAnnotations))
	registry.RegisterParser(NewGoParser())
	registry.RegisterParser(NewPythonParser())
	registry.RegisterParser(NewTypeScriptParser())
	registry.RegisterParser(NewCParser())

	return registry
}

func (pr *ParserRegistry) RegisterParser(parser LanguageParser) {
	for _, ext := range parser.SupportedExtensions() {
		pr.parsers[ext] = parser
	}
}

func (pr *ParserRegistry) GetParser(filePath string) LanguageParser {
	ext := strings.ToLower(filepath.Ext(filePath))
	return pr.parsers[ext]
}

// Declarations parses a file with the parser registered for its extension.
func (pr *ParserRegistry) Declarations(filePath string, content []byte) ([]types.Declaration, error) {
	parser := pr.GetParser(filePath)
	if parser == nil {
		return nil, fmt.Errorf("no parser registered for %s", filePath)
	}
	return parser.Declarations(filePath, content)
}

func (pr *ParserRegistry) IsTestFile(relPath string) bool {
	parser := pr.GetParser(relPath)
	return parser != nil && parser.IsTestFile(relPath)
}

func (pr *ParserRegistry) GetSupportedLanguages() []string {
	seen := make(map[string]bool)
	var result []string

	for _, parser := range pr.parsers {
		if !seen[parser.Language()] {
			seen[parser.Language()] = true
			result = append(result, parser.Language())
		}
	}

	sort.Strings(result)
	return result
}
