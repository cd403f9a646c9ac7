package pegc

import "fmt"

// reportInfiniteRepetition reports repetitions of expressions that
// may succeed without consuming input.  Unbounded ones would loop
// forever and are errors, bounded ones only waste iterations and get
// a warning.
func reportInfiniteRepetition(g *Grammar, _ *Options, s *Session) {
	consumes := newConsumptionAnalyzer(g)
	v := &Visitor[struct{}, struct{}]{}
	none := struct{}{}
	loop := func(e Expression, loc Location) struct{} {
		v.Visit(e, none)
		if !consumes.consumes(e) {
			s.Error("Possible infinite loop when parsing (repetition used with an expression that may not consume any input)", loc)
		}
		return none
	}
	v.ZeroOrMore = func(n *ZeroOrMore, _ struct{}) struct{} { return loop(n.Expression, n.Location) }
	v.OneOrMore = func(n *OneOrMore, _ struct{}) struct{} { return loop(n.Expression, n.Location) }
	v.Repeated = func(n *Repeated, _ struct{}) struct{} {
		if n.Delimiter != nil {
			v.Visit(n.Delimiter, none)
		}
		v.Visit(n.Expression, none)
		if consumes.consumes(n.Expression) || (n.Delimiter != nil && consumes.consumes(n.Delimiter)) {
			return none
		}
		if n.Max.IsUnbounded() {
			s.Error("Possible infinite loop when parsing (unbounded range repetition used with an expression that may not consume any input)", n.Location)
			return none
		}
		lower := n.minBoundary()
		if lower.Type == BoundaryConstant && n.Max.Type == BoundaryConstant {
			s.Warning(fmt.Sprintf("An expression may not consume any input and may always match %d times", n.Max.Value), n.Location)
		} else {
			s.Warning("An expression may not consume any input and may always match with a maximum repetition count", n.Location)
		}
		return none
	}
	v.Visit(g, none)
}
