package pegc

import "fmt"

// reportUndefinedRules reports references to rules that aren't
// defined.  Library references are resolved by the library itself.
func reportUndefinedRules(g *Grammar, opts *Options, s *Session) {
	names := g.RuleNames()
	Inspect(g, func(n Node) bool {
		ref, ok := n.(*RuleRef)
		if !ok || g.FindRule(ref.Name) != nil {
			return true
		}
		var notes []DiagnosticNote
		if candidate := suggest(opts.Config, ref.Name, names); candidate != "" {
			notes = append(notes, DiagnosticNote{
				Message:  fmt.Sprintf("Did you mean %q?", candidate),
				Location: g.FindRule(candidate).NameLocation,
			})
		}
		s.Error(fmt.Sprintf("Rule %q is not defined", ref.Name), ref.Location, notes...)
		return true
	})
}
