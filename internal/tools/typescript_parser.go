package tools

import (
	"path"
	"strings"

	"github.com/agusespa/testscope/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var tsTestFunctions = map[string]bool{"it": true, "test": true}

type TypeScriptParser struct {
	language *sitter.Language
	tsx      *sitter.Language
}

func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{
		language: sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		tsx:      sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
	}
}

func (tp *TypeScriptParser) Language() string {
	return "typescript"
}

func (tp *TypeScriptParser) SupportedExtensions() []string {
	return []string{".ts", ".tsx"}
}

func (tp *TypeScriptParser) IsTestFile(relPath string) bool {
	lowerPath := strings.ToLower(relPath)
	if strings.HasSuffix(lowerPath, ".d.ts") {
		return false
	}
	if strings.Contains("/"+lowerPath, "/__tests__/") {
		return true
	}
	return strings.Contains(lowerPath, ".test.") || strings.Contains(lowerPath, ".spec.")
}

func (tp *TypeScriptParser) grammarFor(filePath string) *sitter.Language {
	if strings.EqualFold(path.Ext(filePath), ".tsx") {
		return tp.tsx
	}
	return tp.language
}

func (tp *TypeScriptParser) Declarations(filePath string, content []byte) ([]types.Declaration, error) {
	tree, err := parseSource(tp.grammarFor(filePath), tp.Language(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var decls []types.Declaration
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "function_declaration", "generator_function_declaration":
			if name := fieldText(n, "name", content); name != "" {
				decls = append(decls, declarationOf(n, name, "function"))
			}
		case "method_definition", "abstract_method_signature":
			if name := fieldText(n, "name", content); name != "" {
				decls = append(decls, declarationOf(n, name, "method"))
			}
		case "variable_declarator", "public_field_definition":
			value := n.ChildByFieldName("value")
			if value == nil {
				return true
			}
			switch value.Kind() {
			case "arrow_function", "function_expression", "function", "generator_function":
				if name := fieldText(n, "name", content); name != "" {
					decls = append(decls, declarationOf(n, name, "function"))
				}
			}
		}
		return true
	})

	return decls, nil
}

func (tp *TypeScriptParser) TestCalls(filePath string, content []byte) (*types.TestFile, error) {
	tree, err := parseSource(tp.grammarFor(filePath), tp.Language(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	testFile := &types.TestFile{
		ID:      filePath,
		Package: path.Dir(filePath),
	}

	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		title, callback, ok := tp.testCase(n, content)
		if !ok {
			return true
		}

		collector := newCallCollector()
		walk(callback, func(inner *sitter.Node) bool {
			switch inner.Kind() {
			case "call_expression":
				collector.add(tp.calleeName(inner.ChildByFieldName("function"), content))
			case "new_expression":
				collector.add(tp.calleeName(inner.ChildByFieldName("constructor"), content))
			}
			return true
		})

		testFile.Methods = append(testFile.Methods, types.TestMethod{
			Name:  title,
			Calls: collector.calls,
		})
		return false
	})

	return testFile, nil
}

// testCase recognises it("title", fn), test("title", fn) and their .only
// variants. Skipped tests and table forms such as test.each are ignored.
func (tp *TypeScriptParser) testCase(call *sitter.Node, content []byte) (string, *sitter.Node, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return "", nil, false
	}
	switch fn.Kind() {
	case "identifier":
		if !tsTestFunctions[fn.Utf8Text(content)] {
			return "", nil, false
		}
	case "member_expression":
		object := fn.ChildByFieldName("object")
		if object == nil || object.Kind() != "identifier" || !tsTestFunctions[object.Utf8Text(content)] {
			return "", nil, false
		}
		if fieldText(fn, "property", content) != "only" {
			return "", nil, false
		}
	default:
		return "", nil, false
	}

	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() < 2 {
		return "", nil, false
	}
	titleNode := args.NamedChild(0)
	if titleNode == nil || (titleNode.Kind() != "string" && titleNode.Kind() != "template_string") {
		return "", nil, false
	}
	title := strings.Trim(titleNode.Utf8Text(content), "'\"`")

	for i := uint(1); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		if arg == nil {
			continue
		}
		switch arg.Kind() {
		case "arrow_function", "function_expression", "function":
			return title, arg.ChildByFieldName("body"), true
		}
	}
	return "", nil, false
}

func (tp *TypeScriptParser) calleeName(fn *sitter.Node, content []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return fn.Utf8Text(content)
	case "member_expression":
		return fieldText(fn, "property", content)
	case "non_null_expression", "parenthesized_expression":
		if fn.NamedChildCount() > 0 {
			return tp.calleeName(fn.NamedChild(0), content)
		}
	}
	return ""
}
