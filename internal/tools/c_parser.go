package tools

import (
	"path"
	"strings"

	"github.com/agusespa/testscope/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
)

type CParser struct {
	language *sitter.Language
}

func NewCParser() *CParser {
	return &CParser{
		language: sitter.NewLanguage(tree_sitter_c.Language()),
	}
}

func (cp *CParser) Language() string {
	return "c"
}

func (cp *CParser) SupportedExtensions() []string {
	return []string{".c", ".h"}
}

func (cp *CParser) IsTestFile(relPath string) bool {
	lowerPath := strings.ToLower(relPath)
	if !strings.HasSuffix(lowerPath, ".c") {
		return false
	}
	base := path.Base(lowerPath)
	return strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.c")
}

func (cp *CParser) Declarations(filePath string, content []byte) ([]types.Declaration, error) {
	tree, err := parseSource(cp.language, cp.Language(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var decls []types.Declaration
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Kind() != "function_definition" {
			return true
		}
		if name := cp.functionName(n, content); name != "" {
			decls = append(decls, declarationOf(n, name, "function"))
		}
		return false
	})

	return decls, nil
}

func (cp *CParser) TestCalls(filePath string, content []byte) (*types.TestFile, error) {
	tree, err := parseSource(cp.language, cp.Language(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	testFile := &types.TestFile{
		ID:      filePath,
		Package: path.Dir(filePath),
	}

	root := tree.RootNode()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		fn := root.NamedChild(i)
		if fn == nil || fn.Kind() != "function_definition" {
			continue
		}
		name := cp.functionName(fn, content)
		if !strings.HasPrefix(name, "test") {
			continue
		}

		collector := newCallCollector()
		walk(fn.ChildByFieldName("body"), func(n *sitter.Node) bool {
			if n.Kind() != "call_expression" {
				return true
			}
			target := n.ChildByFieldName("function")
			if target == nil {
				return true
			}
			switch target.Kind() {
			case "identifier":
				collector.add(target.Utf8Text(content))
			case "field_expression":
				collector.add(fieldText(target, "field", content))
			}
			return true
		})

		testFile.Methods = append(testFile.Methods, types.TestMethod{
			Name:  name,
			Calls: collector.calls,
		})
	}

	return testFile, nil
}

// functionName follows the declarator chain of a function_definition, which
// may be wrapped in pointer or parenthesized declarators, down to the name.
func (cp *CParser) functionName(fn *sitter.Node, content []byte) string {
	declarator := fn.ChildByFieldName("declarator")
	for declarator != nil {
		switch declarator.Kind() {
		case "identifier":
			return declarator.Utf8Text(content)
		case "function_declarator", "pointer_declarator", "parenthesized_declarator", "attributed_declarator":
			next := declarator.ChildByFieldName("declarator")
			if next == nil && declarator.NamedChildCount() > 0 {
				next = declarator.NamedChild(0)
			}
			declarator = next
		default:
			return ""
		}
	}
	return ""
}
