package pegc

import (
	"strings"
	"unicode/utf16"
)

// SourceNode is a tree of generated code chunks, some of them tagged
// with the place within the grammar they were generated from.  The
// concatenation of all leaves is the generated code, and the tags are
// what source maps are built from.
type SourceNode struct {
	// Line is 1-based, zero means the chunks of this node have no
	// location of their own
	Line int
	// Column is 0-based
	Column int
	Source string
	Name   string

	// Children holds strings and *SourceNode values
	Children []any
}

// NewSourceNode creates a node without location from `chunks`
func NewSourceNode(chunks ...any) *SourceNode {
	n := &SourceNode{}
	return n.Add(chunks...)
}

// sourceNodeAt creates a node tagged with the start of `loc`.  Nodes
// for locations without a source are left untagged.
func sourceNodeAt(loc Location, name string, chunks ...any) *SourceNode {
	n := NewSourceNode(chunks...)
	src := sourceName(loc.Source)
	if src == "" || loc.IsZero() {
		return n
	}
	start := loc.Start
	if gl, ok := loc.Source.(*GrammarLocation); ok {
		start = gl.Offset(start)
	}
	n.Line, n.Column, n.Source, n.Name = start.Line, start.Column-1, src, name
	return n
}

// sourceNodeAtEnd is like sourceNodeAt for the end of `loc`
func sourceNodeAtEnd(loc Location, chunks ...any) *SourceNode {
	return sourceNodeAt(Location{Source: loc.Source, Start: loc.End, End: loc.End}, "", chunks...)
}

// wrapCode surrounds a fragment of grammar code with generated code,
// mapping the fragment back to where it was written.
func wrapCode(prefix, code string, loc Location, suffix, name string) *SourceNode {
	return NewSourceNode(prefix, sourceNodeAt(loc, name, code), sourceNodeAtEnd(loc, suffix))
}

// Add appends chunks to the node.  Slices of chunks are flattened and
// nil values ignored.
func (n *SourceNode) Add(chunks ...any) *SourceNode {
	for _, c := range chunks {
		switch v := c.(type) {
		case nil:
		case string:
			if v != "" {
				n.Children = append(n.Children, v)
			}
		case *SourceNode:
			if v != nil {
				n.Children = append(n.Children, v)
			}
		case []any:
			n.Add(v...)
		case []string:
			for _, s := range v {
				n.Add(s)
			}
		default:
			panic("SourceNode chunks must be strings or nodes")
		}
	}
	return n
}

func (n *SourceNode) hasLocation() bool { return n.Line > 0 }

// walk calls `f` with every string leaf and the closest node with a
// location above it, or nil.
func (n *SourceNode) walk(f func(chunk string, origin *SourceNode)) {
	n.walkWith(nil, f)
}

func (n *SourceNode) walkWith(origin *SourceNode, f func(string, *SourceNode)) {
	if n.hasLocation() {
		origin = n
	}
	for _, c := range n.Children {
		switch v := c.(type) {
		case string:
			f(v, origin)
		case *SourceNode:
			v.walkWith(origin, f)
		}
	}
}

func (n *SourceNode) String() string {
	var sb strings.Builder
	n.walk(func(chunk string, _ *SourceNode) { sb.WriteString(chunk) })
	return sb.String()
}

// StringWithSourceMap returns the generated code along with the
// source map that relates it back to the grammar.  Generated columns
// are counted in UTF-16 code units.
func (n *SourceNode) StringWithSourceMap(file string) (string, *SourceMap) {
	var (
		sb       strings.Builder
		m        = newSourceMapBuilder(file)
		line     int
		column   int
		active   bool
		previous *SourceNode
	)
	n.walk(func(chunk string, origin *SourceNode) {
		sb.WriteString(chunk)
		if origin != nil {
			if origin != previous || !active {
				m.add(line, column, origin)
			}
			previous, active = origin, true
		} else if active {
			m.add(line, column, nil)
			previous, active = nil, false
		}
		for i, r := range chunk {
			if r != '\n' {
				column += len(utf16.Encode([]rune{r}))
				continue
			}
			line++
			column = 0
			// mappings don't carry over line breaks
			if i+1 < len(chunk) && origin != nil {
				m.add(line, column, origin)
			} else {
				active = false
				previous = nil
			}
		}
	})
	return sb.String(), m.build()
}

// indentNode returns a copy of `n` where every non-empty line starts
// with `prefix`.
func indentNode(n *SourceNode, prefix string) *SourceNode {
	atLineStart := true
	var indent func(*SourceNode) *SourceNode
	indent = func(n *SourceNode) *SourceNode {
		out := &SourceNode{Line: n.Line, Column: n.Column, Source: n.Source, Name: n.Name}
		for _, c := range n.Children {
			switch v := c.(type) {
			case string:
				var sb strings.Builder
				for _, r := range v {
					if atLineStart && r != '\n' {
						sb.WriteString(prefix)
					}
					sb.WriteRune(r)
					atLineStart = r == '\n'
				}
				out.Children = append(out.Children, sb.String())
			case *SourceNode:
				out.Children = append(out.Children, indent(v))
			}
		}
		return out
	}
	return indent(n)
}
