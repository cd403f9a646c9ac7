package pegc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGrammar(t *testing.T) {
	t.Run("json documents", func(t *testing.T) {
		g, err := LoadGrammar([]byte(`{
			"type": "grammar",
			"rules": [{
				"type": "rule",
				"name": "start",
				"nameLocation": {"start": {"offset": 0, "line": 1, "column": 1}, "end": {"offset": 5, "line": 1, "column": 6}},
				"expression": {
					"type": "sequence",
					"elements": [
						{"type": "labeled", "label": "a", "expression": {"type": "literal", "value": "x"}},
						{"type": "class", "parts": ["a", ["0", "9"]], "inverted": true}
					]
				}
			}]
		}`))
		require.NoError(t, err)
		require.Len(t, g.Rules, 1)

		r := g.Rules[0]
		assert.Equal(t, "start", r.Name)
		assert.Equal(t, Position{Offset: 5, Line: 1, Column: 6}, r.NameLocation.End)

		elements := r.Expression.(*Sequence).Elements
		require.Len(t, elements, 2)
		labeled := elements[0].(*Labeled)
		assert.Equal(t, "a", labeled.Label)
		assert.Equal(t, "x", labeled.Expression.(*Literal).Value)
		c := elements[1].(*Class)
		assert.Equal(t, []ClassPart{CharPart('a'), RangePart('0', '9')}, c.Parts)
		assert.True(t, c.Inverted)
	})

	t.Run("yaml documents", func(t *testing.T) {
		g, err := LoadGrammar([]byte(`
type: grammar
initializer:
  type: initializer
  code: "let count = 0;"
rules:
  - type: rule
    name: start
    expression:
      type: repeated
      min: {type: constant, value: 1}
      max: {type: constant, value: null}
      delimiter: {type: literal, value: ","}
      expression: {type: rule_ref, name: item}
  - type: rule
    name: item
    expression: {type: literal, value: x, ignoreCase: true}
`))
		require.NoError(t, err)
		assert.Equal(t, []string{"start", "item"}, g.RuleNames())
		require.Len(t, g.Initializer, 1)
		assert.Equal(t, "let count = 0;", g.Initializer[0].Code)

		r := g.Rules[0].Expression.(*Repeated)
		assert.Equal(t, ConstantBoundary(1), r.Min)
		assert.True(t, r.Max.IsUnbounded())
		assert.Equal(t, ",", r.Delimiter.(*Literal).Value)
		assert.Equal(t, "item", r.Expression.(*RuleRef).Name)
		assert.True(t, g.Rules[1].Expression.(*Literal).IgnoreCase)
	})

	t.Run("invalid documents", func(t *testing.T) {
		for _, test := range []struct {
			name     string
			document string
			message  string
		}{
			{"not a document", `{"type": `, ""},
			{"unknown fields", `{"type": "grammar", "rules": [], "extra": 1}`, `unknown field "extra"`},
			{"the root must be a grammar", `{"type": "rule", "name": "a"}`, `not "rule"`},
			{
				"rules need an expression",
				`{"type": "grammar", "rules": [{"type": "rule", "name": "a"}]}`,
				"rules[0].expression: expression is required",
			},
			{
				"rules need a name",
				`{"type": "grammar", "rules": [{"type": "rule", "expression": {"type": "any"}}]}`,
				"rules[0]: rules need a name",
			},
			{
				"errors carry the path of the node",
				`{"type": "grammar", "rules": [{"type": "rule", "name": "a", "expression":
					{"type": "choice", "alternatives": [{"type": "any"}, {"type": "literal"}]}}]}`,
				"rules[0].expression.alternatives[1]: value is required",
			},
			{
				"unknown expression types",
				`{"type": "grammar", "rules": [{"type": "rule", "name": "a", "expression": {"type": "regexp"}}]}`,
				`unknown expression type "regexp"`,
			},
			{
				"labels without a name must be picked",
				`{"type": "grammar", "rules": [{"type": "rule", "name": "a", "expression":
					{"type": "labeled", "label": null, "expression": {"type": "any"}}}]}`,
				"rules[0].expression: labels without a name must be picked",
			},
			{
				"class parts are single characters",
				`{"type": "grammar", "rules": [{"type": "rule", "name": "a", "expression": {"type": "class", "parts": ["ab"]}}]}`,
				`"ab" isn't a single character`,
			},
			{
				"class ranges are ordered",
				`{"type": "grammar", "rules": [{"type": "rule", "name": "a", "expression": {"type": "class", "parts": [["z", "a"]]}}]}`,
				"invalid class range",
			},
			{
				"constant boundaries are non negative",
				`{"type": "grammar", "rules": [{"type": "rule", "name": "a", "expression":
					{"type": "repeated", "max": {"type": "constant", "value": -2}, "expression": {"type": "any"}}}]}`,
				"rules[0].expression.max: constant boundaries are non negative integers or null",
			},
		} {
			t.Run(test.name, func(t *testing.T) {
				_, err := LoadGrammar([]byte(test.document))
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidAST)
				assert.Contains(t, err.Error(), test.message)
			})
		}
	})
}

func TestGrammarJSONRoundTrip(t *testing.T) {
	build := func() *Grammar {
		g := grammar(
			NewRule("start", at(1, 1, 5), act("return [a, b]", seq(
				label("a", named("word", plus(class(RangePart('a', 'z'))))),
				pick("", text(opt(lit("-")))),
				label("b", repeated(
					&Boundary{Type: BoundaryVariable, Name: "a"},
					&Boundary{Type: BoundaryFunction, Code: "return 3"},
					lit(","), ref("item"))),
				NewSemanticAnd("return true", Location{}, Location{}),
				not(anyChar()),
			)), at(1, 1, 40)),
			rule("item", alt(ilit("x"), group(and(lit("y"))), star(ref("lib.thing")))),
		)
		g.Imports = []*GrammarImport{{
			What: []*ImportBinding{{Type: ImportAll, Binding: "lib"}},
			From: ModuleSpecifier{Module: "./lib.js"},
		}}
		g.TopLevelInitializer = []*CodeBlock{{Code: "const top = 1;"}}
		return g
	}

	first, err := json.Marshal(build())
	require.NoError(t, err)

	loaded, err := LoadGrammar(first)
	require.NoError(t, err)
	second, err := json.Marshal(loaded)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, testSource, loaded.Rules[0].NameLocation.Source)

	t.Run("compiled grammars can be loaded back", func(t *testing.T) {
		a := compileAST(t, grammar(rule("start", seq(lit("a"), class(RangePart('0', '9'))))), nil)
		data, err := json.Marshal(a.Grammar)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"bytecode"`)
		assert.Contains(t, string(data), `"literals":["a"]`)

		g, err := LoadGrammar(data)
		require.NoError(t, err)
		assert.Empty(t, g.Rules[0].Bytecode)
		assert.Empty(t, g.Literals)
	})
}

func TestClassPartJSON(t *testing.T) {
	data, err := json.Marshal([]ClassPart{CharPart('a'), RangePart('0', '9')})
	require.NoError(t, err)
	assert.Equal(t, `["a",["0","9"]]`, string(data))

	var parts []ClassPart
	require.NoError(t, json.Unmarshal([]byte(`["λ", ["a", "f"]]`), &parts))
	assert.Equal(t, []ClassPart{CharPart('λ'), RangePart('a', 'f')}, parts)
}

func TestGrammarSetSource(t *testing.T) {
	g, err := LoadGrammar([]byte(`{
		"type": "grammar",
		"rules": [{
			"type": "rule",
			"name": "start",
			"nameLocation": {"start": {"offset": 0, "line": 1, "column": 1}, "end": {"offset": 5, "line": 1, "column": 6}},
			"expression": {
				"type": "action",
				"code": "return 1",
				"codeLocation": {"start": {"offset": 12, "line": 1, "column": 13}, "end": {"offset": 20, "line": 1, "column": 21}},
				"location": {"start": {"offset": 8, "line": 1, "column": 9}, "end": {"offset": 21, "line": 1, "column": 22}},
				"expression": {"type": "any", "location": {"source": "other.peggy", "start": {"offset": 8, "line": 1, "column": 9}, "end": {"offset": 9, "line": 1, "column": 10}}}
			}
		}]
	}`))
	require.NoError(t, err)

	src := SourceName("grammar.peggy")
	g.SetSource(src)

	r := g.Rules[0]
	action := r.Expression.(*Action)
	assert.Equal(t, GrammarSource(src), r.NameLocation.Source)
	assert.Equal(t, GrammarSource(src), action.CodeLocation.Source)
	assert.Equal(t, GrammarSource(src), action.Location.Source)
	assert.Equal(t, GrammarSource(SourceName("other.peggy")), action.Expression.Loc().Source)
	assert.Nil(t, r.Location.Source, "zero locations are left alone")
}
