package pegc

// reportIncorrectPlucking reports `@` labels whose sequence is the
// operand of an action.  The action replaces the result of the
// sequence, so there'd be nothing to pluck into.  Groups start a new
// sequence and are fine.
func reportIncorrectPlucking(g *Grammar, _ *Options, s *Session) {
	v := &Visitor[*Action, struct{}]{}
	v.Action = func(n *Action, _ *Action) struct{} {
		return v.Visit(n.Expression, n)
	}
	v.Labeled = func(n *Labeled, action *Action) struct{} {
		if n.Pick && action != nil {
			s.Error(`"@" cannot be used with an action block`, n.LabelLocation, DiagnosticNote{
				Message:  "Action block location",
				Location: action.CodeLocation,
			})
		}
		return v.Visit(n.Expression, nil)
	}
	v.Group = func(n *Group, _ *Action) struct{} {
		return v.Visit(n.Expression, nil)
	}
	v.Visit(g, nil)
}
