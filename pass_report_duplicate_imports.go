package pegc

import "fmt"

// reportDuplicateImports reports library namespaces imported under a
// name that's already taken.  Bindings of single rules become rules
// and are covered by reportDuplicateRules.
func reportDuplicateImports(g *Grammar, _ *Options, s *Session) {
	seen := make(map[string]Location)
	for _, imp := range g.Imports {
		for _, what := range imp.What {
			if what.Type != ImportAll {
				continue
			}
			if original, ok := seen[what.Binding]; ok {
				s.Error(fmt.Sprintf("Module %q is already imported", what.Binding), what.Location, DiagnosticNote{
					Message:  "Original module location",
					Location: original,
				})
				continue
			}
			seen[what.Binding] = what.Location
		}
	}
}
