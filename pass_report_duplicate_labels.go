package pegc

import (
	"fmt"
	"maps"
)

// labelScope maps the labels visible at a point of a rule to where
// they were defined
type labelScope map[string]Location

// reportDuplicateLabels reports labels defined twice within the same
// scope.  Each alternative of a choice and the operand of every
// wrapping expression get a copy of the scope, so only labels of the
// same sequence chain can collide.
func reportDuplicateLabels(g *Grammar, _ *Options, s *Session) {
	v := &Visitor[labelScope, struct{}]{}
	cloned := func(e Expression, scope labelScope) struct{} {
		return v.Visit(e, maps.Clone(scope))
	}
	v.Rule = func(n *Rule, _ labelScope) struct{} {
		return v.Visit(n.Expression, labelScope{})
	}
	v.Choice = func(n *Choice, scope labelScope) struct{} {
		for _, alt := range n.Alternatives {
			cloned(alt, scope)
		}
		return struct{}{}
	}
	v.Labeled = func(n *Labeled, scope labelScope) struct{} {
		if n.Label != "" {
			if original, ok := scope[n.Label]; ok {
				s.Error(fmt.Sprintf("Label %q is already defined", n.Label), n.LabelLocation, DiagnosticNote{
					Message:  "Original label location",
					Location: original,
				})
			}
		}
		v.Visit(n.Expression, scope)
		if n.Label != "" {
			scope[n.Label] = n.LabelLocation
		}
		return struct{}{}
	}
	v.Repeated = func(n *Repeated, scope labelScope) struct{} {
		if n.Delimiter != nil {
			cloned(n.Delimiter, scope)
		}
		return cloned(n.Expression, scope)
	}
	v.Action = func(n *Action, scope labelScope) struct{} { return cloned(n.Expression, scope) }
	v.Text = func(n *Text, scope labelScope) struct{} { return cloned(n.Expression, scope) }
	v.SimpleAnd = func(n *SimpleAnd, scope labelScope) struct{} { return cloned(n.Expression, scope) }
	v.SimpleNot = func(n *SimpleNot, scope labelScope) struct{} { return cloned(n.Expression, scope) }
	v.Optional = func(n *Optional, scope labelScope) struct{} { return cloned(n.Expression, scope) }
	v.ZeroOrMore = func(n *ZeroOrMore, scope labelScope) struct{} { return cloned(n.Expression, scope) }
	v.OneOrMore = func(n *OneOrMore, scope labelScope) struct{} { return cloned(n.Expression, scope) }
	v.Group = func(n *Group, scope labelScope) struct{} { return cloned(n.Expression, scope) }
	v.Visit(g, nil)
}
