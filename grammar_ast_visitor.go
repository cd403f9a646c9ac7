package pegc

import "fmt"

// Visitor dispatches on the kind of a node and calls the handler
// registered for it.  Kinds without a handler get a structural
// traversal: every child is visited with the same argument and the
// results are discarded.
//
// Handlers recurse by calling Visit on the visitor they were
// registered on, which is how scoped analyses pass a different
// argument (a cloned scope for example) down to the children:
//
//	v := &Visitor[scope, struct{}]{}
//	v.Choice = func(n *Choice, s scope) struct{} {
//	    for _, alt := range n.Alternatives {
//	        v.Visit(alt, s.clone())
//	    }
//	    return struct{}{}
//	}
//	v.Visit(grammar, scope{})
type Visitor[A, R any] struct {
	Grammar     func(*Grammar, A) R
	Rule        func(*Rule, A) R
	Named       func(*Named, A) R
	Choice      func(*Choice, A) R
	Action      func(*Action, A) R
	Sequence    func(*Sequence, A) R
	Labeled     func(*Labeled, A) R
	Text        func(*Text, A) R
	SimpleAnd   func(*SimpleAnd, A) R
	SimpleNot   func(*SimpleNot, A) R
	Optional    func(*Optional, A) R
	ZeroOrMore  func(*ZeroOrMore, A) R
	OneOrMore   func(*OneOrMore, A) R
	Repeated    func(*Repeated, A) R
	Group       func(*Group, A) R
	SemanticAnd func(*SemanticAnd, A) R
	SemanticNot func(*SemanticNot, A) R
	RuleRef     func(*RuleRef, A) R
	LibraryRef  func(*LibraryRef, A) R
	Literal     func(*Literal, A) R
	Class       func(*Class, A) R
	Any         func(*Any, A) R
}

// Visit calls the handler registered for the kind of `node` or falls
// back to visiting its children.
func (v *Visitor[A, R]) Visit(node Node, arg A) R {
	switch n := node.(type) {
	case *Grammar:
		if v.Grammar != nil {
			return v.Grammar(n, arg)
		}
		for _, r := range n.Rules {
			v.Visit(r, arg)
		}
	case *Rule:
		if v.Rule != nil {
			return v.Rule(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *Named:
		if v.Named != nil {
			return v.Named(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *Choice:
		if v.Choice != nil {
			return v.Choice(n, arg)
		}
		for _, alt := range n.Alternatives {
			v.Visit(alt, arg)
		}
	case *Action:
		if v.Action != nil {
			return v.Action(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *Sequence:
		if v.Sequence != nil {
			return v.Sequence(n, arg)
		}
		for _, e := range n.Elements {
			v.Visit(e, arg)
		}
	case *Labeled:
		if v.Labeled != nil {
			return v.Labeled(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *Text:
		if v.Text != nil {
			return v.Text(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *SimpleAnd:
		if v.SimpleAnd != nil {
			return v.SimpleAnd(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *SimpleNot:
		if v.SimpleNot != nil {
			return v.SimpleNot(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *Optional:
		if v.Optional != nil {
			return v.Optional(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *ZeroOrMore:
		if v.ZeroOrMore != nil {
			return v.ZeroOrMore(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *OneOrMore:
		if v.OneOrMore != nil {
			return v.OneOrMore(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *Repeated:
		if v.Repeated != nil {
			return v.Repeated(n, arg)
		}
		if n.Delimiter != nil {
			v.Visit(n.Delimiter, arg)
		}
		v.Visit(n.Expression, arg)
	case *Group:
		if v.Group != nil {
			return v.Group(n, arg)
		}
		v.Visit(n.Expression, arg)
	case *SemanticAnd:
		if v.SemanticAnd != nil {
			return v.SemanticAnd(n, arg)
		}
	case *SemanticNot:
		if v.SemanticNot != nil {
			return v.SemanticNot(n, arg)
		}
	case *RuleRef:
		if v.RuleRef != nil {
			return v.RuleRef(n, arg)
		}
	case *LibraryRef:
		if v.LibraryRef != nil {
			return v.LibraryRef(n, arg)
		}
	case *Literal:
		if v.Literal != nil {
			return v.Literal(n, arg)
		}
	case *Class:
		if v.Class != nil {
			return v.Class(n, arg)
		}
	case *Any:
		if v.Any != nil {
			return v.Any(n, arg)
		}
	case nil:
	default:
		panic(fmt.Sprintf("Visitor is outdated, missing node %T", n))
	}
	var zero R
	return zero
}

// Inspect traverses an AST in depth-first order. It calls the
// function f for each node in the tree. If f returns true, Inspect
// continues to traverse the node's children; if it returns false,
// Inspect skips the children of the current node.
//
// Unlike Visitor, Inspect needs no handler table and is the simplest
// way of collecting nodes of one or two kinds:
//
//	Inspect(grammar, func(n Node) bool {
//	    if ref, ok := n.(*RuleRef); ok {
//	        fmt.Println("Found reference:", ref.Name)
//	    }
//	    return true
//	})
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	for _, child := range children(node) {
		Inspect(child, f)
	}
}

// children returns the direct descendants of a node in the order
// they're visited.
func children(node Node) []Node {
	switch n := node.(type) {
	case *Grammar:
		out := make([]Node, 0, len(n.Rules))
		for _, r := range n.Rules {
			out = append(out, r)
		}
		return out
	case *Rule:
		return []Node{n.Expression}
	case *Named:
		return []Node{n.Expression}
	case *Choice:
		return exprNodes(n.Alternatives)
	case *Action:
		return []Node{n.Expression}
	case *Sequence:
		return exprNodes(n.Elements)
	case *Labeled:
		return []Node{n.Expression}
	case *Text:
		return []Node{n.Expression}
	case *SimpleAnd:
		return []Node{n.Expression}
	case *SimpleNot:
		return []Node{n.Expression}
	case *Optional:
		return []Node{n.Expression}
	case *ZeroOrMore:
		return []Node{n.Expression}
	case *OneOrMore:
		return []Node{n.Expression}
	case *Repeated:
		if n.Delimiter != nil {
			return []Node{n.Delimiter, n.Expression}
		}
		return []Node{n.Expression}
	case *Group:
		return []Node{n.Expression}
	case *SemanticAnd, *SemanticNot, *RuleRef, *LibraryRef, *Literal, *Class, *Any:
		return nil
	default:
		panic(fmt.Sprintf("Inspect is outdated, missing node %T", n))
	}
}

func exprNodes(exprs []Expression) []Node {
	out := make([]Node, len(exprs))
	for i, e := range exprs {
		out[i] = e
	}
	return out
}

// Rewrite replaces every expression reachable from `node` with what
// `f` returns for it.  Children are rewritten before their parents,
// so `f` always sees an expression whose operands were already
// rewritten.
func Rewrite(node Node, f func(Expression) Expression) {
	switch n := node.(type) {
	case *Grammar:
		for _, r := range n.Rules {
			Rewrite(r, f)
		}
	case *Rule:
		n.Expression = rewrite(n.Expression, f)
	case *Named:
		n.Expression = rewrite(n.Expression, f)
	case *Choice:
		for i, alt := range n.Alternatives {
			n.Alternatives[i] = rewrite(alt, f)
		}
	case *Action:
		n.Expression = rewrite(n.Expression, f)
	case *Sequence:
		for i, e := range n.Elements {
			n.Elements[i] = rewrite(e, f)
		}
	case *Labeled:
		n.Expression = rewrite(n.Expression, f)
	case *Text:
		n.Expression = rewrite(n.Expression, f)
	case *SimpleAnd:
		n.Expression = rewrite(n.Expression, f)
	case *SimpleNot:
		n.Expression = rewrite(n.Expression, f)
	case *Optional:
		n.Expression = rewrite(n.Expression, f)
	case *ZeroOrMore:
		n.Expression = rewrite(n.Expression, f)
	case *OneOrMore:
		n.Expression = rewrite(n.Expression, f)
	case *Repeated:
		if n.Delimiter != nil {
			n.Delimiter = rewrite(n.Delimiter, f)
		}
		n.Expression = rewrite(n.Expression, f)
	case *Group:
		n.Expression = rewrite(n.Expression, f)
	}
}

func rewrite(e Expression, f func(Expression) Expression) Expression {
	Rewrite(e, f)
	return f(e)
}
