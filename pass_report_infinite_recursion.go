package pegc

import (
	"fmt"
	"slices"
	"strings"
)

// reportInfiniteRecursion reports rules that can call themselves
// without consuming any input, which would loop forever at parse
// time.  Only the elements of a sequence up to the first one that
// always consumes input are followed.  Each cycle is reported once,
// no matter how many of its rules it's reached from.
func reportInfiniteRecursion(g *Grammar, _ *Options, s *Session) {
	var (
		consumes  = newConsumptionAnalyzer(g)
		visited   []string
		backtrace []*RuleRef
		reported  = make(map[string]bool)
		v         = &Visitor[struct{}, struct{}]{}
		none      = struct{}{}
	)
	v.Rule = func(n *Rule, _ struct{}) struct{} {
		visited = append(visited, n.Name)
		v.Visit(n.Expression, none)
		visited = visited[:len(visited)-1]
		return none
	}
	v.Sequence = func(n *Sequence, _ struct{}) struct{} {
		for _, e := range n.Elements {
			v.Visit(e, none)
			if consumes.consumes(e) {
				break
			}
		}
		return none
	}
	v.Repeated = func(n *Repeated, _ struct{}) struct{} {
		v.Visit(n.Expression, none)
		if n.Delimiter != nil && !consumes.consumes(n.Expression) {
			v.Visit(n.Delimiter, none)
		}
		return none
	}
	v.RuleRef = func(n *RuleRef, _ struct{}) struct{} {
		rule := g.FindRule(n.Name)
		if rule == nil {
			return none
		}
		backtrace = append(backtrace, n)
		defer func() { backtrace = backtrace[:len(backtrace)-1] }()

		start := slices.Index(visited, n.Name)
		if start < 0 {
			v.Visit(rule, none)
			return none
		}
		cycle := append(slices.Clone(visited[start:]), n.Name)
		key := cycleKey(cycle[:len(cycle)-1])
		if reported[key] {
			return none
		}
		reported[key] = true

		path := append(slices.Clone(visited), n.Name)
		notes := make([]DiagnosticNote, len(backtrace))
		for i, ref := range backtrace {
			msg := fmt.Sprintf("Step %d: call of the rule %q without input consumption", i+1, ref.Name)
			if i == len(backtrace)-1 {
				msg = fmt.Sprintf("Step %d: call itself without input consumption - left recursion", i+1)
			}
			notes[i] = DiagnosticNote{Message: msg, Location: ref.Location}
		}
		s.Error(
			fmt.Sprintf("Possible infinite loop when parsing (left recursion: %s)", strings.Join(path, " -> ")),
			rule.NameLocation,
			notes...,
		)
		return none
	}
	v.Visit(g, none)
}

// cycleKey identifies a cycle regardless of the rule it was entered
// from
func cycleKey(rules []string) string {
	sorted := slices.Clone(rules)
	slices.Sort(sorted)
	return strings.Join(sorted, "\x00")
}
