package pegc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisitor(t *testing.T) {
	t.Run("handlers receive the argument of their parent", func(t *testing.T) {
		g := grammar(rule("start", seq(label("a", lit("x")), alt(lit("y"), group(ref("other"))))))

		depths := map[string]int{}
		v := &Visitor[int, struct{}]{}
		visit := func(e Expression, depth int) struct{} { return v.Visit(e, depth+1) }
		v.Sequence = func(n *Sequence, depth int) struct{} {
			for _, e := range n.Elements {
				visit(e, depth)
			}
			return struct{}{}
		}
		v.Choice = func(n *Choice, depth int) struct{} {
			for _, e := range n.Alternatives {
				visit(e, depth)
			}
			return struct{}{}
		}
		v.Labeled = func(n *Labeled, depth int) struct{} { return visit(n.Expression, depth) }
		v.Group = func(n *Group, depth int) struct{} { return visit(n.Expression, depth) }
		v.Literal = func(n *Literal, depth int) struct{} {
			depths[n.Value] = depth
			return struct{}{}
		}
		v.RuleRef = func(n *RuleRef, depth int) struct{} {
			depths[n.Name] = depth
			return struct{}{}
		}
		v.Visit(g, 0)

		assert.Equal(t, map[string]int{"x": 2, "y": 2, "other": 3}, depths)
	})

	t.Run("handlers return results", func(t *testing.T) {
		v := &Visitor[struct{}, int]{}
		v.Choice = func(n *Choice, a struct{}) int {
			total := 0
			for _, e := range n.Alternatives {
				total += v.Visit(e, a)
			}
			return total
		}
		v.Literal = func(n *Literal, _ struct{}) int { return len(n.Value) }
		assert.Equal(t, 6, v.Visit(alt(lit("a"), lit("bb"), lit("ccc")), struct{}{}))
	})

	t.Run("kinds without handlers visit their children", func(t *testing.T) {
		var refs []string
		v := &Visitor[struct{}, struct{}]{
			RuleRef: func(n *RuleRef, _ struct{}) struct{} {
				refs = append(refs, n.Name)
				return struct{}{}
			},
		}
		e := repeated(ConstantBoundary(1), ConstantBoundary(Unbounded), ref("sep"),
			act("code", text(opt(star(plus(and(not(named("n", ref("inner"))))))))))
		v.Visit(grammar(rule("start", e)), struct{}{})
		assert.Equal(t, []string{"sep", "inner"}, refs)
	})
}

func TestInspect(t *testing.T) {
	t.Run("nodes are visited depth first", func(t *testing.T) {
		g := grammar(
			rule("a", seq(lit("x"), ref("b"))),
			rule("b", alt(class(RangePart('0', '9')), anyChar())),
		)
		var kinds []Kind
		Inspect(g, func(n Node) bool {
			kinds = append(kinds, n.Kind())
			return true
		})
		assert.Equal(t, []Kind{
			KindGrammar,
			KindRule, KindSequence, KindLiteral, KindRuleRef,
			KindRule, KindChoice, KindClass, KindAny,
		}, kinds)
	})

	t.Run("returning false skips the children", func(t *testing.T) {
		var kinds []Kind
		Inspect(rule("a", seq(lit("x"), group(lit("y")))), func(n Node) bool {
			kinds = append(kinds, n.Kind())
			return n.Kind() != KindGroup
		})
		assert.Equal(t, []Kind{KindRule, KindSequence, KindLiteral, KindGroup}, kinds)
	})
}

func TestRewrite(t *testing.T) {
	t.Run("children are rewritten before their parents", func(t *testing.T) {
		g := grammar(rule("start", alt(group(lit("a")), lit("b"))))
		var order []Kind
		Rewrite(g, func(e Expression) Expression {
			order = append(order, e.Kind())
			if grp, ok := e.(*Group); ok {
				return grp.Expression
			}
			return e
		})
		assert.Equal(t, []Kind{KindLiteral, KindGroup, KindLiteral, KindChoice}, order)

		choice := g.Rules[0].Expression.(*Choice)
		assert.Equal(t, KindLiteral, choice.Alternatives[0].Kind())
	})

	t.Run("the rule expression itself can be replaced", func(t *testing.T) {
		r := rule("start", group(ref("other")))
		Rewrite(r, func(e Expression) Expression {
			if grp, ok := e.(*Group); ok {
				return grp.Expression
			}
			return e
		})
		assert.Equal(t, "other", r.Expression.(*RuleRef).Name)
	})
}
