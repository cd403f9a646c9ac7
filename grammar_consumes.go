package pegc

// consumptionAnalyzer answers whether an expression consumes input
// every time it succeeds.  Results of rules are memoized per
// analyzer, and rules that are still being analyzed are assumed to
// consume, so left recursive rules don't loop forever.  Left
// recursion is reported by its own pass.
type consumptionAnalyzer struct {
	grammar  *Grammar
	rules    map[string]bool
	visiting map[string]bool
	visitor  *Visitor[struct{}, bool]
}

func newConsumptionAnalyzer(g *Grammar) *consumptionAnalyzer {
	a := &consumptionAnalyzer{
		grammar:  g,
		rules:    make(map[string]bool),
		visiting: make(map[string]bool),
	}
	a.visitor = &Visitor[struct{}, bool]{
		Rule:        func(n *Rule, _ struct{}) bool { return a.consumes(n.Expression) },
		Named:       func(n *Named, _ struct{}) bool { return a.consumes(n.Expression) },
		Action:      func(n *Action, _ struct{}) bool { return a.consumes(n.Expression) },
		Labeled:     func(n *Labeled, _ struct{}) bool { return a.consumes(n.Expression) },
		Text:        func(n *Text, _ struct{}) bool { return a.consumes(n.Expression) },
		Group:       func(n *Group, _ struct{}) bool { return a.consumes(n.Expression) },
		OneOrMore:   func(n *OneOrMore, _ struct{}) bool { return a.consumes(n.Expression) },
		SimpleAnd:   func(*SimpleAnd, struct{}) bool { return false },
		SimpleNot:   func(*SimpleNot, struct{}) bool { return false },
		Optional:    func(*Optional, struct{}) bool { return false },
		ZeroOrMore:  func(*ZeroOrMore, struct{}) bool { return false },
		SemanticAnd: func(*SemanticAnd, struct{}) bool { return false },
		SemanticNot: func(*SemanticNot, struct{}) bool { return false },
		LibraryRef:  func(*LibraryRef, struct{}) bool { return false },
		Class:       func(*Class, struct{}) bool { return true },
		Any:         func(*Any, struct{}) bool { return true },
		Literal:     func(n *Literal, _ struct{}) bool { return n.Value != "" },
		Choice: func(n *Choice, _ struct{}) bool {
			for _, alt := range n.Alternatives {
				if !a.consumes(alt) {
					return false
				}
			}
			return true
		},
		Sequence: func(n *Sequence, _ struct{}) bool {
			for _, e := range n.Elements {
				if a.consumes(e) {
					return true
				}
			}
			return false
		},
		Repeated: func(n *Repeated, _ struct{}) bool {
			lower := n.minBoundary()
			if lower.Type != BoundaryConstant || lower.Value == 0 {
				return false
			}
			if a.consumes(n.Expression) {
				return true
			}
			return lower.Value > 1 && n.Delimiter != nil && a.consumes(n.Delimiter)
		},
		RuleRef: func(n *RuleRef, _ struct{}) bool { return a.ruleConsumes(n.Name) },
	}
	return a
}

// consumes is true when `n` always consumes input on success
func (a *consumptionAnalyzer) consumes(n Node) bool {
	return a.visitor.Visit(n, struct{}{})
}

func (a *consumptionAnalyzer) ruleConsumes(name string) bool {
	if v, ok := a.rules[name]; ok {
		return v
	}
	if a.visiting[name] {
		return true
	}
	rule := a.grammar.FindRule(name)
	if rule == nil {
		// undefined rules are reported elsewhere
		return false
	}
	a.visiting[name] = true
	v := a.consumes(rule)
	delete(a.visiting, name)
	a.rules[name] = v
	return v
}
