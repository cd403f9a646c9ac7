package pegc

import "fmt"

// reportDuplicateRules reports every rule defined with a name that's
// already taken.  Notes always point at the first definition.
func reportDuplicateRules(g *Grammar, _ *Options, s *Session) {
	rules := make(map[string]Location, len(g.Rules))
	for _, r := range g.Rules {
		if original, ok := rules[r.Name]; ok {
			s.Error(fmt.Sprintf("Rule %q is already defined", r.Name), r.NameLocation, DiagnosticNote{
				Message:  "Original rule location",
				Location: original,
			})
			continue
		}
		rules[r.Name] = r.NameLocation
	}
}
