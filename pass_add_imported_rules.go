package pegc

import "fmt"

// addImportedRules turns every binding of a single library rule into
// a rule of the grammar that calls the library, and resolves the
// library of `namespace.rule` references written against a namespace
// import.
func addImportedRules(g *Grammar, _ *Options, s *Session) {
	for libraryNumber, imp := range g.Imports {
		for _, what := range imp.What {
			var name string
			switch what.Type {
			case ImportAll:
				continue
			case ImportNamed:
				name = what.Binding
			case ImportRename:
				name = what.Rename
			}
			if isImportedRule(g.FindRule(what.Binding), libraryNumber) {
				// added by an earlier compilation of the same grammar
				continue
			}
			ref := NewLibraryRef(name, imp.From.Module, libraryNumber, what.Location)
			rule := NewRule(what.Binding, what.Location, ref, imp.From.Location)
			g.Rules = append(g.Rules, rule)
		}
	}

	Inspect(g, func(n Node) bool {
		ref, ok := n.(*LibraryRef)
		if !ok || ref.LibraryNumber >= 0 {
			return true
		}
		ref.LibraryNumber = findLibraryNumber(g, ref.Library)
		if ref.LibraryNumber < 0 {
			s.Error(fmt.Sprintf("Unknown library %q", ref.Library), ref.Location)
		}
		return true
	})
}

// findLibraryNumber returns the index of the import that binds the
// namespace `name` or -1
func findLibraryNumber(g *Grammar, name string) int {
	for i, imp := range g.Imports {
		for _, what := range imp.What {
			if what.Type == ImportAll && what.Binding == name {
				return i
			}
		}
	}
	return -1
}

func isImportedRule(r *Rule, libraryNumber int) bool {
	if r == nil {
		return false
	}
	ref, ok := r.Expression.(*LibraryRef)
	return ok && ref.LibraryNumber == libraryNumber
}
