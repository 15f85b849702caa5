package tools

import (
	"fmt"
	"strings"

	"github.com/agusespa/testscope/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// parseSource parses content with a fresh parser so that callers can parse
// files concurrently. Trees containing ERROR or MISSING nodes are rejected.
func parseSource(lang *sitter.Language, language string, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s file: tree-sitter returned nil", language)
	}

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		tree.Close()
		return nil, fmt.Errorf("%w in %s file near line %d", ErrSyntax, language, line)
	}

	return tree, nil
}

// walk visits n and its named descendants depth first. Returning false from
// visit skips the node's children.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		walk(n.NamedChild(i), visit)
	}
}

func firstErrorLine(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	if n.IsError() || n.IsMissing() {
		return int(n.StartPosition().Row) + 1
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && child.HasError() {
			if line := firstErrorLine(child); line > 0 {
				return line
			}
		}
	}
	return int(n.StartPosition().Row) + 1
}

func fieldText(n *sitter.Node, field string, src []byte) string {
	if n == nil {
		return ""
	}
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Utf8Text(src))
}

func declarationOf(n *sitter.Node, name, kind string) types.Declaration {
	return types.Declaration{
		Name:      name,
		Kind:      kind,
		StartLine: int(n.StartPosition().Row) + 1,
		EndLine:   int(n.EndPosition().Row) + 1,
	}
}

// callCollector accumulates call targets in first-seen order.
type callCollector struct {
	seen  map[string]bool
	calls []string
}

func newCallCollector() *callCollector {
	return &callCollector{seen: make(map[string]bool)}
}

func (c *callCollector) add(name string) {
	name = strings.TrimSpace(name)
	if name == "" || c.seen[name] {
		return
	}
	c.seen[name] = true
	c.calls = append(c.calls, name)
}

// lastSegment strips any qualifier from a dotted or scoped name.
func lastSegment(name string) string {
	if i := strings.LastIndexAny(name, ".:"); i >= 0 {
		return name[i+1:]
	}
	return name
}
