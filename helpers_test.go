package pegc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testSource = SourceName("test.peggy")

// at returns a location on a single line of the test source
func at(line, col, length int) Location {
	start := Position{Offset: (line-1)*100 + col - 1, Line: line, Column: col}
	end := Position{Offset: start.Offset + length, Line: line, Column: col + length}
	return Location{Source: testSource, Start: start, End: end}
}

func lit(v string) *Literal         { return NewLiteral(v, false, Location{}) }
func ilit(v string) *Literal        { return NewLiteral(v, true, Location{}) }
func ref(name string) *RuleRef      { return NewRuleRef(name, Location{}) }
func anyChar() *Any                 { return NewAny(Location{}) }
func seq(es ...Expression) *Sequence { return NewSequence(es, Location{}) }
func alt(es ...Expression) *Choice   { return NewChoice(es, Location{}) }
func opt(e Expression) *Optional    { return NewOptional(e, Location{}) }
func star(e Expression) *ZeroOrMore { return NewZeroOrMore(e, Location{}) }
func plus(e Expression) *OneOrMore  { return NewOneOrMore(e, Location{}) }
func text(e Expression) *Text       { return NewText(e, Location{}) }
func and(e Expression) *SimpleAnd   { return NewSimpleAnd(e, Location{}) }
func not(e Expression) *SimpleNot   { return NewSimpleNot(e, Location{}) }
func group(e Expression) *Group     { return NewGroup(e, Location{}) }

func class(parts ...ClassPart) *Class {
	return NewClass(parts, false, false, Location{})
}

func label(name string, e Expression) *Labeled {
	return NewLabeled(name, Location{}, false, e, Location{})
}

func pick(name string, e Expression) *Labeled {
	return NewLabeled(name, Location{}, true, e, Location{})
}

func act(code string, e Expression) *Action {
	return NewAction(code, Location{}, e, Location{})
}

func named(name string, e Expression) *Named {
	return NewNamed(name, e, Location{})
}

func repeated(lower, upper *Boundary, delimiter, e Expression) *Repeated {
	return NewRepeated(lower, upper, delimiter, e, Location{})
}

func rule(name string, e Expression) *Rule {
	return NewRule(name, Location{}, e, Location{})
}

func grammar(rules ...*Rule) *Grammar {
	return NewGrammar(rules, Location{})
}

// collected gathers the problems reported through the diagnostic
// callbacks
type collected struct {
	errors, warnings, infos []string
}

func (c *collected) diagnostics() Diagnostics {
	return Diagnostics{
		Error:   func(_, msg string, _ Location, _ []DiagnosticNote) { c.errors = append(c.errors, msg) },
		Warning: func(_, msg string, _ Location, _ []DiagnosticNote) { c.warnings = append(c.warnings, msg) },
		Info:    func(_, msg string, _ Location, _ []DiagnosticNote) { c.infos = append(c.infos, msg) },
	}
}

// compileAST compiles a grammar with the default passes and returns
// the annotated grammar
func compileAST(t *testing.T, g *Grammar, opts *Options) *Artifact {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	opts.Output = OutputAST
	a, err := Compile(g, nil, opts)
	require.NoError(t, err)
	return a
}

// runPass runs a single pass over a grammar with a session that
// collects every error instead of stopping at the first one
func runPass(g *Grammar, opts *Options, pass func(*Grammar, *Options, *Session)) *Session {
	if opts == nil {
		opts = &Options{}
	}
	if err := opts.resolve(g); err != nil {
		panic(err)
	}
	s := NewSession(Diagnostics{Error: func(string, string, Location, []DiagnosticNote) {}}, nil)
	pass(g, opts, s)
	return s
}

func messages(problems []*Problem, severity Severity) []string {
	var out []string
	for _, p := range problems {
		if p.Severity == severity {
			out = append(out, p.Message)
		}
	}
	return out
}
