package pegc

import (
	"fmt"
	"strings"

	"github.com/pegkit/pegc/ascii"
)

// FormatAST renders a grammar, or any node within it, as a tree.  Each
// line shows the kind of a node, its attributes, its span and, for
// expressions, the match result computed by the inference pass.
//
//	Rule[start] (1:1..1:10)
//	└── Choice (1:9..1:18) match=sometimes
//	    ├── Literal["a"] (1:9..1:12) match=sometimes
//	    └── Literal["b"] (1:15..1:18) match=sometimes
func FormatAST(node Node) string {
	return formatAST(node, plainFormat)
}

// HighlightAST is FormatAST with terminal colors
func HighlightAST(node Node, theme ascii.Theme) string {
	return formatAST(node, themeFormat(theme))
}

func formatAST(node Node, format FormatFunc[PrintToken]) string {
	ap := &astPrinter{newTreePrinter(format)}
	ap.node(node)
	return ap.String()
}

type astPrinter struct {
	*treePrinter[PrintToken]
}

func (ap *astPrinter) node(n Node) {
	name, operand := describeNode(n)
	ap.writeToken(name, PrintOperator)
	if operand != "" {
		ap.write("[")
		ap.writeToken(operand, PrintOperand)
		ap.write("]")
	}
	if loc := n.Loc(); !loc.IsZero() {
		ap.write(" ")
		ap.writeToken(fmt.Sprintf("(%s..%s)", loc.Start, loc.End), PrintSpan)
	}
	if e, ok := n.(Expression); ok {
		ap.write(" ")
		ap.writeToken(describeMatch(matchOf(e)), PrintMatch)
	}
	if g, ok := n.(*Grammar); ok {
		ap.grammarHeader(g)
	}
	if r, ok := n.(*Repeated); ok {
		ap.repeated(r)
		return
	}
	kids := children(n)
	ap.children(len(kids), func(i int) { ap.node(kids[i]) })
}

func (ap *astPrinter) grammarHeader(g *Grammar) {
	for _, imp := range g.Imports {
		ap.write("\n")
		ap.pwrite("│ ")
		ap.writeToken("Import", PrintOperator)
		ap.write(" ")
		var bindings []string
		for _, b := range imp.What {
			switch b.Type {
			case ImportAll:
				bindings = append(bindings, "* as "+b.Binding)
			case ImportRename:
				bindings = append(bindings, b.Rename+" as "+b.Binding)
			default:
				bindings = append(bindings, b.Binding)
			}
		}
		ap.writeToken(strings.Join(bindings, ", "), PrintOperand)
		ap.write(" from ")
		ap.writeToken(`"`+literalEscape(imp.From.Module)+`"`, PrintLiteral)
	}
	for _, blk := range g.TopLevelInitializer {
		ap.codeLine("TopLevelInitializer", blk.Code)
	}
	for _, blk := range g.Initializer {
		ap.codeLine("Initializer", blk.Code)
	}
}

func (ap *astPrinter) codeLine(name, code string) {
	ap.write("\n")
	ap.pwrite("│ ")
	ap.writeToken(name, PrintOperator)
	ap.write(" ")
	ap.writeToken(summarizeCode(code), PrintLiteral)
}

// repeated prints the boundaries along the children, as they aren't
// nodes themselves
func (ap *astPrinter) repeated(r *Repeated) {
	type entry struct {
		label string
		node  Node
	}
	var entries []entry
	if r.Delimiter != nil {
		entries = append(entries, entry{"delimiter", r.Delimiter})
	}
	entries = append(entries, entry{"", r.Expression})
	ap.children(len(entries), func(i int) {
		if entries[i].label != "" {
			ap.writeToken(entries[i].label+": ", PrintComment)
		}
		ap.node(entries[i].node)
	})
}

// describeNode returns the name of a node and the attribute displayed
// within brackets after it
func describeNode(n Node) (string, string) {
	switch v := n.(type) {
	case *Grammar:
		return "Grammar", ""
	case *Rule:
		return "Rule", v.Name
	case *Named:
		return "Named", `"` + literalEscape(v.Name) + `"`
	case *Action:
		return "Action", summarizeCode(v.Code)
	case *Labeled:
		switch {
		case v.Pick && v.Label == "":
			return "Labeled", "@"
		case v.Pick:
			return "Labeled", "@" + v.Label
		default:
			return "Labeled", v.Label
		}
	case *Repeated:
		return "Repeated", describeBoundaries(v)
	case *SemanticAnd:
		return "SemanticAnd", summarizeCode(v.Code)
	case *SemanticNot:
		return "SemanticNot", summarizeCode(v.Code)
	case *RuleRef:
		return "RuleRef", v.Name
	case *LibraryRef:
		if v.Name == "" {
			return "LibraryRef", v.Library
		}
		return "LibraryRef", v.Library + "." + v.Name
	case *Literal:
		s := `"` + literalEscape(v.Value) + `"`
		if v.IgnoreCase {
			s += "i"
		}
		return "Literal", s
	case *Class:
		s := describeExpectation(&Expectation{Type: ExpectClass, Parts: v.Parts, Inverted: v.Inverted})
		if v.IgnoreCase {
			s += "i"
		}
		return "Class", s
	default:
		return kindTitle(n.Kind()), ""
	}
}

// kindTitle turns `zero_or_more` into `ZeroOrMore`
func kindTitle(k Kind) string {
	var sb strings.Builder
	for _, part := range strings.Split(k.String(), "_") {
		if part == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return sb.String()
}

func describeBoundaries(r *Repeated) string {
	if r.Min == nil {
		return describeBoundary(r.Max)
	}
	return describeBoundary(r.Min) + ".." + describeBoundary(r.Max)
}

func describeBoundary(b *Boundary) string {
	switch b.Type {
	case BoundaryVariable:
		return b.Name
	case BoundaryFunction:
		return summarizeCode(b.Code)
	default:
		if b.IsUnbounded() {
			return ""
		}
		return fmt.Sprint(b.Value)
	}
}

// summarizeCode squeezes a code fragment into a single short line
func summarizeCode(code string) string {
	const limit = 40
	s := strings.Join(strings.Fields(code), " ")
	if r := []rune(s); len(r) > limit {
		s = string(r[:limit-3]) + "..."
	}
	return "{" + s + "}"
}
