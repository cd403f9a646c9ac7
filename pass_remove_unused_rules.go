package pegc

import "fmt"

// removeUnusedRules drops the rules that can't be reached from any
// of the allowed start rules.
func removeUnusedRules(g *Grammar, opts *Options, s *Session) {
	used := make(map[string]bool, len(g.Rules))
	var mark func(name string)
	mark = func(name string) {
		if used[name] {
			return
		}
		used[name] = true
		rule := g.FindRule(name)
		if rule == nil {
			return
		}
		Inspect(rule, func(n Node) bool {
			if ref, ok := n.(*RuleRef); ok {
				mark(ref.Name)
			}
			return true
		})
	}
	for _, name := range opts.AllowedStartRules {
		mark(name)
	}

	kept := g.Rules[:0]
	for _, r := range g.Rules {
		if used[r.Name] {
			kept = append(kept, r)
			continue
		}
		s.Info(fmt.Sprintf("Removing unused rule: %q", r.Name), r.Location)
	}
	g.Rules = kept
}
