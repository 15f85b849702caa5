package tools

import (
	"path"
	"strings"

	"github.com/agusespa/testscope/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

type PythonParser struct {
	language *sitter.Language
}

func NewPythonParser() *PythonParser {
	return &PythonParser{
		language: sitter.NewLanguage(tree_sitter_python.Language()),
	}
}

func (pp *PythonParser) Language() string {
	return "python"
}

func (pp *PythonParser) SupportedExtensions() []string {
	return []string{".py", ".pyw"}
}

func (pp *PythonParser) IsTestFile(relPath string) bool {
	base := path.Base(relPath)
	return strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py") ||
		strings.HasSuffix(base, "_test.py")
}

func (pp *PythonParser) Declarations(filePath string, content []byte) ([]types.Declaration, error) {
	tree, err := parseSource(pp.language, pp.Language(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var decls []types.Declaration
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Kind() == "function_definition" {
			if name := fieldText(n, "name", content); name != "" {
				decls = append(decls, declarationOf(n, name, "function"))
			}
		}
		return true
	})

	return decls, nil
}

func (pp *PythonParser) TestCalls(filePath string, content []byte) (*types.TestFile, error) {
	tree, err := parseSource(pp.language, pp.Language(), content)
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
		def := unwrapDecorated(root.NamedChild(i))
		if def == nil {
			continue
		}
		switch def.Kind() {
		case "function_definition":
			pp.addTest(testFile, def, "", content)
		case "class_definition":
			className := fieldText(def, "name", content)
			if !isTestClass(def, className, content) {
				continue
			}
			body := def.ChildByFieldName("body")
			if body == nil {
				continue
			}
			for j := uint(0); j < body.NamedChildCount(); j++ {
				if method := unwrapDecorated(body.NamedChild(j)); method != nil && method.Kind() == "function_definition" {
					pp.addTest(testFile, method, className, content)
				}
			}
		}
	}

	return testFile, nil
}

// isTestClass accepts pytest-style Test* classes and unittest.TestCase
// subclasses of any name.
func isTestClass(def *sitter.Node, className string, content []byte) bool {
	if strings.HasPrefix(className, "Test") {
		return true
	}
	bases := def.ChildByFieldName("superclasses")
	if bases == nil {
		return false
	}
	for i := uint(0); i < bases.NamedChildCount(); i++ {
		base := bases.NamedChild(i)
		if base.Kind() != "identifier" && base.Kind() != "attribute" {
			continue
		}
		if strings.HasSuffix(lastSegment(base.Utf8Text(content)), "TestCase") {
			return true
		}
	}
	return false
}

func (pp *PythonParser) addTest(testFile *types.TestFile, fn *sitter.Node, className string, content []byte) {
	name := fieldText(fn, "name", content)
	if !strings.HasPrefix(name, "test") {
		return
	}
	if className != "" {
		name = className + "::" + name
	}

	collector := newCallCollector()
	walk(fn.ChildByFieldName("body"), func(n *sitter.Node) bool {
		if n.Kind() != "call" {
			return true
		}
		target := n.ChildByFieldName("function")
		if target == nil {
			return true
		}
		switch target.Kind() {
		case "identifier":
			collector.add(target.Utf8Text(content))
		case "attribute":
			collector.add(fieldText(target, "attribute", content))
		}
		return true
	})

	testFile.Methods = append(testFile.Methods, types.TestMethod{
		Name:  name,
		Calls: collector.calls,
	})
}

func unwrapDecorated(n *sitter.Node) *sitter.Node {
	if n != nil && n.Kind() == "decorated_definition" {
		return n.ChildByFieldName("definition")
	}
	return n
}
