package pegc

import "fmt"

// maxInferenceRounds bounds the fixed point iteration of recursive
// rules.  Match results only move in one direction, so a rule that
// doesn't settle within these rounds is a bug.
const maxInferenceRounds = 6

// inferenceMatchResult computes whether each rule and expression
// always, sometimes or never matches, regardless of the input.  The
// result is stored in the nodes and used by the bytecode generator to
// leave out code that can't run.  Alternatives that can't be reached
// and lookaheads with a known outcome are reported as warnings.
func inferenceMatchResult(g *Grammar, _ *Options, s *Session) {
	var (
		started = make(map[*Rule]bool)
		v       = &Visitor[struct{}, MatchResult]{}
		none    = struct{}{}
	)
	infer := func(e Expression) MatchResult { return v.Visit(e, none) }
	set := func(e Expression, m MatchResult) MatchResult {
		*e.result() = m
		return m
	}
	operand := func(e, operand Expression) MatchResult { return set(e, infer(operand)) }
	always := func(e, operand Expression) MatchResult {
		infer(operand)
		return set(e, MatchAlways)
	}

	v.Rule = func(n *Rule, _ struct{}) MatchResult {
		if started[n] {
			return n.Match
		}
		started[n] = true
		n.Match = MatchSometimes
		for round := 0; ; round++ {
			if round >= maxInferenceRounds {
				s.Error("Infinity cycle detected when trying to evaluate node match result", n.Location)
				return n.Match
			}
			previous := n.Match
			n.Match = infer(n.Expression)
			if n.Match == previous {
				return n.Match
			}
		}
	}
	v.Named = func(n *Named, _ struct{}) MatchResult { return operand(n, n.Expression) }
	v.Action = func(n *Action, _ struct{}) MatchResult { return operand(n, n.Expression) }
	v.Labeled = func(n *Labeled, _ struct{}) MatchResult { return operand(n, n.Expression) }
	v.Text = func(n *Text, _ struct{}) MatchResult { return operand(n, n.Expression) }
	v.SimpleAnd = func(n *SimpleAnd, _ struct{}) MatchResult { return operand(n, n.Expression) }
	v.SimpleNot = func(n *SimpleNot, _ struct{}) MatchResult { return set(n, infer(n.Expression).Negate()) }
	v.OneOrMore = func(n *OneOrMore, _ struct{}) MatchResult { return operand(n, n.Expression) }
	v.Group = func(n *Group, _ struct{}) MatchResult { return operand(n, n.Expression) }
	v.Optional = func(n *Optional, _ struct{}) MatchResult { return always(n, n.Expression) }
	v.ZeroOrMore = func(n *ZeroOrMore, _ struct{}) MatchResult { return always(n, n.Expression) }
	v.SemanticAnd = func(n *SemanticAnd, _ struct{}) MatchResult { return set(n, MatchSometimes) }
	v.SemanticNot = func(n *SemanticNot, _ struct{}) MatchResult { return set(n, MatchSometimes) }
	v.LibraryRef = func(n *LibraryRef, _ struct{}) MatchResult { return set(n, MatchSometimes) }
	v.Any = func(n *Any, _ struct{}) MatchResult { return set(n, MatchSometimes) }
	v.Choice = func(n *Choice, _ struct{}) MatchResult {
		always, never := 0, 0
		for _, alt := range n.Alternatives {
			switch infer(alt) {
			case MatchAlways:
				always++
			case MatchNever:
				never++
			}
		}
		switch {
		case always > 0:
			return set(n, MatchAlways)
		case never == len(n.Alternatives):
			return set(n, MatchNever)
		}
		return set(n, MatchSometimes)
	}
	v.Sequence = func(n *Sequence, _ struct{}) MatchResult {
		always, never := 0, 0
		for _, e := range n.Elements {
			switch infer(e) {
			case MatchAlways:
				always++
			case MatchNever:
				never++
			}
		}
		switch {
		case never > 0:
			return set(n, MatchNever)
		case always == len(n.Elements):
			return set(n, MatchAlways)
		}
		return set(n, MatchSometimes)
	}
	v.Repeated = func(n *Repeated, _ struct{}) MatchResult {
		match := infer(n.Expression)
		delimiterMatch := MatchNever
		if n.Delimiter != nil {
			delimiterMatch = infer(n.Delimiter)
		}
		lower := n.minBoundary()
		if lower.Type != BoundaryConstant || n.Max.Type != BoundaryConstant {
			return set(n, MatchSometimes)
		}
		if n.Max.Value == 0 || (!n.Max.IsUnbounded() && lower.Value > n.Max.Value) {
			return set(n, MatchNever)
		}
		delimited := n.Delimiter != nil && lower.Value >= 2
		switch match {
		case MatchNever:
			if lower.Value == 0 {
				return set(n, MatchAlways)
			}
			return set(n, MatchNever)
		case MatchAlways:
			if delimited {
				return set(n, delimiterMatch)
			}
			return set(n, MatchAlways)
		}
		if delimited && delimiterMatch == MatchNever {
			return set(n, MatchNever)
		}
		if lower.Value == 0 {
			return set(n, MatchAlways)
		}
		return set(n, MatchSometimes)
	}
	v.RuleRef = func(n *RuleRef, _ struct{}) MatchResult {
		rule := g.FindRule(n.Name)
		if rule == nil {
			return set(n, MatchSometimes)
		}
		return set(n, v.Visit(rule, none))
	}
	v.Literal = func(n *Literal, _ struct{}) MatchResult {
		if n.Value == "" {
			return set(n, MatchAlways)
		}
		return set(n, MatchSometimes)
	}
	v.Class = func(n *Class, _ struct{}) MatchResult {
		match := MatchSometimes
		if len(n.Parts) == 0 {
			match = MatchNever
		}
		if n.Inverted {
			match = match.Negate()
		}
		return set(n, match)
	}

	for _, r := range g.Rules {
		v.Visit(r, none)
	}
	reportStaticMatches(g, s)
}

// reportStaticMatches warns about the alternatives that follow one
// that always matches and about lookaheads whose outcome is known
// before parsing.
func reportStaticMatches(g *Grammar, s *Session) {
	predicate := func(operand Expression, negative bool, loc Location) {
		match := matchOf(operand)
		if negative {
			match = match.Negate()
		}
		switch match {
		case MatchAlways:
			s.Warning("Lookahead always succeeds and can be removed", loc)
		case MatchNever:
			s.Warning("Lookahead never succeeds", loc)
		}
	}
	Inspect(g, func(n Node) bool {
		switch n := n.(type) {
		case *Choice:
			if len(n.Alternatives) < 2 {
				break
			}
			for i, alt := range n.Alternatives[:len(n.Alternatives)-1] {
				if matchOf(alt) != MatchAlways {
					continue
				}
				for _, unreachable := range n.Alternatives[i+1:] {
					s.Warning("Alternative is unreachable because a previous alternative always matches",
						unreachable.Loc(),
						DiagnosticNote{Message: "Alternative that always matches", Location: alt.Loc()})
				}
				break
			}
		case *SimpleAnd:
			predicate(n.Expression, false, n.Location)
		case *SimpleNot:
			predicate(n.Expression, true, n.Location)
		}
		return true
	})
}

// describeMatch is used by the AST printer
func describeMatch(m MatchResult) string {
	return fmt.Sprintf("match=%s", m)
}
