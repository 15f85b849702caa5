package tools

import (
	"path"
	"strings"

	"github.com/agusespa/testscope/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

var defaultJavaTestAnnotations = []string{
	"Test",
	"ParameterizedTest",
	"RepeatedTest",
	"TestFactory",
	"TestTemplate",
}

type JavaParser struct {
	language        *sitter.Language
	testAnnotations map[string]bool
}

func NewJavaParser(testAnnotations []string) *JavaParser {
	if len(testAnnotations) == 0 {
		testAnnotations = defaultJavaTestAnnotations
	}
	annotations := make(map[string]bool, len(testAnnotations))
	for _, a := range testAnnotations {
		annotations[strings.TrimPrefix(lastSegment(a), "@")] = true
	}
	return &JavaParser{
		language:        sitter.NewLanguage(tree_sitter_java.Language()),
		testAnnotations: annotations,
	}
}

func (jp *JavaParser) Language() string {
	return "java"
}

func (jp *JavaParser) SupportedExtensions() []string {
	return []string{".java"}
}

func (jp *JavaParser) IsTestFile(relPath string) bool {
	slashed := "/" + strings.ToLower(path.Clean(relPath))
	if strings.Contains(slashed, "/src/test/") {
		return true
	}

	base := strings.TrimSuffix(path.Base(relPath), ".java")
	return strings.HasSuffix(base, "Test") ||
		strings.HasSuffix(base, "Tests") ||
		strings.HasSuffix(base, "IT") ||
		strings.HasSuffix(base, "TestCase") ||
		strings.HasPrefix(base, "Test")
}

func (jp *JavaParser) Declarations(filePath string, content []byte) ([]types.Declaration, error) {
	tree, err := parseSource(jp.language, jp.Language(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	queryText := `
[
  (method_declaration) @method_decl
  (constructor_declaration) @constructor_decl
  (compact_constructor_declaration) @constructor_decl
]
`

	q, qerr := sitter.NewQuery(jp.language, queryText)
	if qerr != nil {
		return nil, qerr
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(q, tree.RootNode(), content)

	var decls []types.Declaration

	for {
		m := matches.Next()
		if m == nil {
			break
		}
		for _, c := range m.Captures {
			captureName := q.CaptureNames()[c.Index]
			name := fieldText(&c.Node, "name", content)
			if name == "" {
				continue
			}
			decls = append(decls, declarationOf(&c.Node, name, strings.TrimSuffix(captureName, "_decl")))
		}
	}

	return decls, nil
}

func (jp *JavaParser) TestCalls(filePath string, content []byte) (*types.TestFile, error) {
	tree, err := parseSource(jp.language, jp.Language(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	packageName := jp.extractPackageName(root, content)
	className := jp.primaryTypeName(root, content, filePath)

	id := className
	if packageName != "" && className != "" {
		id = packageName + "." + className
	}
	if id == "" {
		id = filePath
	}

	testFile := &types.TestFile{
		ID:      id,
		Package: packageName,
	}

	walk(root, func(n *sitter.Node) bool {
		if n.Kind() != "method_declaration" || !jp.isTestMethod(n, content) {
			return true
		}
		collector := newCallCollector()
		jp.collectCalls(n.ChildByFieldName("body"), content, collector)
		testFile.Methods = append(testFile.Methods, types.TestMethod{
			Name:  fieldText(n, "name", content),
			Calls: collector.calls,
		})
		// test methods may still contain local or anonymous classes, but
		// their calls already belong to this entry point
		return false
	})

	return testFile, nil
}

func (jp *JavaParser) isTestMethod(method *sitter.Node, content []byte) bool {
	for i := uint(0); i < method.NamedChildCount(); i++ {
		child := method.NamedChild(i)
		if child == nil || child.Kind() != "modifiers" {
			continue
		}
		for j := uint(0); j < child.NamedChildCount(); j++ {
			annotation := child.NamedChild(j)
			if annotation == nil {
				continue
			}
			if annotation.Kind() != "marker_annotation" && annotation.Kind() != "annotation" {
				continue
			}
			if jp.testAnnotations[lastSegment(fieldText(annotation, "name", content))] {
				return true
			}
		}
	}
	return false
}

func (jp *JavaParser) collectCalls(body *sitter.Node, content []byte, collector *callCollector) {
	walk(body, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "method_invocation":
			collector.add(fieldText(n, "name", content))
		case "object_creation_expression":
			collector.add(jp.constructedTypeName(n.ChildByFieldName("type"), content))
		case "method_reference":
			if count := n.NamedChildCount(); count > 1 {
				last := n.NamedChild(count - 1)
				if last != nil && last.Kind() == "identifier" {
					collector.add(last.Utf8Text(content))
				}
			}
		}
		return true
	})
}

func (jp *JavaParser) constructedTypeName(typeNode *sitter.Node, content []byte) string {
	if typeNode == nil {
		return ""
	}
	switch typeNode.Kind() {
	case "generic_type":
		if typeNode.NamedChildCount() > 0 {
			return jp.constructedTypeName(typeNode.NamedChild(0), content)
		}
		return ""
	default:
		return lastSegment(typeNode.Utf8Text(content))
	}
}

// primaryTypeName returns the top-level type named after the file, falling
// back to the first top-level type.
func (jp *JavaParser) primaryTypeName(root *sitter.Node, content []byte, filePath string) string {
	stem := strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
	first := ""
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			name := fieldText(child, "name", content)
			if name == stem {
				return name
			}
			if first == "" {
				first = name
			}
		}
	}
	return first
}

func (jp *JavaParser) extractPackageName(rootNode *sitter.Node, sourceBytes []byte) string {
	for i := uint(0); i < rootNode.ChildCount(); i++ {
		child := rootNode.Child(i)
		if child != nil && child.Kind() == "package_declaration" {
			for j := uint(0); j < child.ChildCount(); j++ {
				grandchild := child.Child(j)
				if grandchild != nil && (grandchild.Kind() == "scoped_identifier" || grandchild.Kind() == "identifier") {
					return grandchild.Utf8Text(sourceBytes)
				}
			}
		}
	}
	return ""
}
