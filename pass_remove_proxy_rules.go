package pegc

import "fmt"

// removeProxyRules replaces the references to rules that only
// reference another rule by references to that other rule.  Proxies
// that are start rules are kept, everything else is dropped.
func removeProxyRules(g *Grammar, opts *Options, s *Session) {
	var kept []*Rule
	for _, r := range g.Rules {
		target, ok := r.Expression.(*RuleRef)
		if !ok {
			kept = append(kept, r)
			continue
		}
		replaceRuleRefs(g, r.Name, target.Name, s)
		if opts.isStartRule(r.Name) {
			kept = append(kept, r)
		}
	}
	g.Rules = kept
}

func replaceRuleRefs(g *Grammar, from, to string, s *Session) {
	var notes []DiagnosticNote
	if r := g.FindRule(to); r != nil {
		notes = append(notes, DiagnosticNote{Message: "This rule will be used", Location: r.NameLocation})
	}
	Inspect(g, func(n Node) bool {
		if ref, ok := n.(*RuleRef); ok && ref.Name == from {
			ref.Name = to
			s.Info(fmt.Sprintf("Proxy rule %q replaced by the rule %q", from, to), ref.Location, notes...)
		}
		return true
	})
}
