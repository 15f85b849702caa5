package tools

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agusespa/testscope/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

var goTestPrefixes = []string{"Test", "Benchmark", "Fuzz"}

type GoParser struct {
	language *sitter.Language
}

func NewGoParser() *GoParser {
	return &GoParser{
		language: sitter.NewLanguage(tree_sitter_go.Language()),
	}
}

func (gp *GoParser) Language() string {
	return "go"
}

func (gp *GoParser) SupportedExtensions() []string {
	return []string{`.go`}
}

func (gp *GoParser) IsTestFile(relPath string) bool {
	return strings.HasSuffix(relPath, "_test.go")
}

func (gp *GoParser) Declarations(filePath string, content []byte) ([]types.Declaration, error) {
	tree, err := parseSource(gp.language, gp.Language(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	queryText := `
	(function_declaration name: (identifier) @name) @function
	(method_declaration name: (field_identifier) @name) @method
	`

	q, qerr := sitter.NewQuery(gp.language, queryText)
	if qerr != nil {
		return nil, qerr
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()

	var decls []types.Declaration

	matches := qc.Matches(q, tree.RootNode(), content)

	for {
		m := matches.Next()
		if m == nil {
			break
		}

		var declNode *sitter.Node
		var kind, name string
		for _, c := range m.Captures {
			captureName := q.CaptureNames()[c.Index]
			if captureName == "name" {
				name = strings.TrimSpace(c.Node.Utf8Text(content))
				continue
			}
			node := c.Node
			declNode = &node
			kind = captureName
		}
		if declNode == nil || name == "" {
			continue
		}
		decls = append(decls, declarationOf(declNode, name, kind))
	}

	return decls, nil
}

func (gp *GoParser) TestCalls(filePath string, content []byte) (*types.TestFile, error) {
	tree, err := parseSource(gp.language, gp.Language(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	testFile := &types.TestFile{
		ID:      filePath,
		Package: path.Dir(filePath),
	}

	for i := uint(0); i < root.NamedChildCount(); i++ {
		fn := root.NamedChild(i)
		if fn == nil || fn.Kind() != "function_declaration" {
			continue
		}
		name := fieldText(fn, "name", content)
		if !isGoTestName(name) {
			continue
		}

		collector := newCallCollector()
		walk(fn.ChildByFieldName("body"), func(n *sitter.Node) bool {
			if n.Kind() == "call_expression" {
				collector.add(gp.callTarget(n.ChildByFieldName("function"), content))
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

func (gp *GoParser) callTarget(fn *sitter.Node, content []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return fn.Utf8Text(content)
	case "selector_expression":
		return fieldText(fn, "field", content)
	case "index_expression", "generic_type":
		// explicit instantiation: Map[int](xs)
		if fn.NamedChildCount() > 0 {
			return gp.callTarget(fn.NamedChild(0), content)
		}
	case "parenthesized_expression":
		if fn.NamedChildCount() > 0 {
			return gp.callTarget(fn.NamedChild(0), content)
		}
	}
	return ""
}

// isGoTestName mirrors the go tool's rule: TestXxx where Xxx does not start
// with a lower-case letter.
func isGoTestName(name string) bool {
	for _, prefix := range goTestPrefixes {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		if rest == "" {
			return true
		}
		r, _ := utf8.DecodeRuneInString(rest)
		return !unicode.IsLower(r)
	}
	return false
}
