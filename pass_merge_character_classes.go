package pegc

import (
	"slices"
	"unicode/utf8"
)

// mergeCharacterClasses merges adjacent alternatives of a choice
// that match a single character, like `[a-z] / "_" / digit` where
// `digit = [0-9]`, into a single class.  A choice left with a single
// alternative is replaced by it.
func mergeCharacterClasses(g *Grammar, _ *Options, _ *Session) {
	singles := make(map[string]*Class)
	for _, r := range g.Rules {
		if c := asClass(r.Expression, nil); c != nil {
			singles[r.Name] = c
		}
	}
	Rewrite(g, func(e Expression) Expression {
		choice, ok := e.(*Choice)
		if !ok {
			return e
		}
		type run struct {
			first  Expression
			merged *Class
			size   int
		}
		var runs []*run
		var current *run
		changed := false
		for _, alt := range choice.Alternatives {
			c := asClass(alt, singles)
			switch {
			case c == nil:
				current = nil
			case current != nil && current.merged.IgnoreCase == c.IgnoreCase:
				current.merged.Parts = append(current.merged.Parts, c.Parts...)
				current.merged.Location = current.merged.Location.Span(c.Location)
				current.size++
				changed = true
				continue
			default:
				current = &run{first: alt, merged: c, size: 1}
				runs = append(runs, current)
				continue
			}
			runs = append(runs, &run{first: alt})
		}
		if !changed {
			return e
		}
		alternatives := make([]Expression, 0, len(runs))
		for _, r := range runs {
			if r.size > 1 {
				r.merged.Parts = normalizeClassParts(r.merged.Parts)
				alternatives = append(alternatives, r.merged)
				continue
			}
			alternatives = append(alternatives, r.first)
		}
		if len(alternatives) == 1 {
			return alternatives[0]
		}
		choice.Alternatives = alternatives
		return choice
	})
}

// asClass returns a class that matches the same single characters
// `e` does, or nil when there's none.
func asClass(e Expression, singles map[string]*Class) *Class {
	switch n := e.(type) {
	case *Class:
		if n.Inverted {
			return nil
		}
		return NewClass(slices.Clone(n.Parts), false, n.IgnoreCase, n.Location)
	case *Literal:
		r, size := utf8.DecodeRuneInString(n.Value)
		if size == 0 || size != len(n.Value) || jsLength(n.Value) != 1 {
			return nil
		}
		return NewClass([]ClassPart{CharPart(r)}, false, n.IgnoreCase, n.Location)
	case *RuleRef:
		if c, ok := singles[n.Name]; ok {
			return NewClass(slices.Clone(c.Parts), false, c.IgnoreCase, n.Location)
		}
	}
	return nil
}

// normalizeClassParts sorts the parts of a class and joins the ones
// that overlap or touch each other.
func normalizeClassParts(parts []ClassPart) []ClassPart {
	sorted := slices.Clone(parts)
	slices.SortFunc(sorted, func(a, b ClassPart) int {
		if a.From != b.From {
			return int(a.From - b.From)
		}
		return int(a.To - b.To)
	})
	out := sorted[:0]
	for _, p := range sorted {
		if n := len(out); n > 0 && p.From <= out[n-1].To+1 {
			out[n-1].To = max(out[n-1].To, p.To)
			continue
		}
		out = append(out, p)
	}
	return out
}
