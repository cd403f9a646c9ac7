package pegc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pegkit/pegc/ascii"
)

func TestFormatAST(t *testing.T) {
	t.Run("nodes with spans and match results", func(t *testing.T) {
		r := NewRule("start", at(1, 1, 5), NewChoice([]Expression{
			NewLiteral("a", false, at(1, 9, 3)),
			NewLiteral("b", false, at(1, 15, 3)),
		}, at(1, 9, 9)), at(1, 1, 17))

		assert.Equal(t, strings.Join([]string{
			`Rule[start] (1:1..1:18)`,
			`└── Choice (1:9..1:18) match=sometimes`,
			`    ├── Literal["a"] (1:9..1:12) match=sometimes`,
			`    └── Literal["b"] (1:15..1:18) match=sometimes`,
		}, "\n"), FormatAST(r))
	})

	t.Run("grammars list their imports and initializers", func(t *testing.T) {
		g := grammar(rule("start", anyChar()))
		g.Imports = []*GrammarImport{{
			What: []*ImportBinding{{Type: ImportAll, Binding: "lib"}},
			From: ModuleSpecifier{Module: "./lib.js"},
		}}
		g.Initializer = []*CodeBlock{{Code: "let n =\n  0;"}}

		assert.Equal(t, strings.Join([]string{
			`Grammar`,
			`│ Import * as lib from "./lib.js"`,
			`│ Initializer {let n = 0;}`,
			`└── Rule[start]`,
			`    └── Any match=sometimes`,
		}, "\n"), FormatAST(g))
	})

	t.Run("attributes of each kind", func(t *testing.T) {
		e := seq(
			pick("", ilit("x")),
			label("n", named("number", class(RangePart('0', '9'), CharPart('_')))),
			repeated(ConstantBoundary(2), ConstantBoundary(Unbounded), lit(","), ref("item")),
		)
		e.Match = MatchNever

		assert.Equal(t, strings.Join([]string{
			`Sequence match=never`,
			`├── Labeled[@] match=sometimes`,
			`│   └── Literal["x"i] match=sometimes`,
			`├── Labeled[n] match=sometimes`,
			`│   └── Named["number"] match=sometimes`,
			`│       └── Class[[0-9_]] match=sometimes`,
			`└── Repeated[2..] match=sometimes`,
			`    ├── delimiter: Literal[","] match=sometimes`,
			`    └── RuleRef[item] match=sometimes`,
		}, "\n"), FormatAST(e))
	})

	t.Run("themes color the output", func(t *testing.T) {
		out := HighlightAST(rule("start", anyChar()), ascii.DefaultTheme)
		assert.Contains(t, out, ascii.Purple+"Rule"+ascii.Reset)
		assert.Contains(t, out, ascii.Pink+"start"+ascii.Reset)
		assert.Equal(t, FormatAST(rule("start", anyChar())), HighlightAST(rule("start", anyChar()), ascii.PlainTheme))
	})
}

func TestDisassemble(t *testing.T) {
	t.Run("blocks are nested under their instruction", func(t *testing.T) {
		a := compileAST(t, grammar(rule("start", lit("a"))), nil)
		assert.Equal(t, strings.Join([]string{
			`000000  MATCH_STRING 0            ; "a"`,
			`000004    then:`,
			`000004      ACCEPT_STRING 0       ; "a"`,
			`000006    else:`,
			`000006      FAIL 0                ; "a"`,
			``,
		}, "\n"), Disassemble(a.Grammar, a.Grammar.Rules[0].Bytecode))
	})

	t.Run("loops", func(t *testing.T) {
		a := compileAST(t, grammar(rule("start", star(ref("other"))), rule("other", lit("a"))), nil)
		assert.Equal(t, strings.Join([]string{
			`000000  PUSH_EMPTY_ARRAY`,
			`000001  RULE 1                    ; other`,
			`000003  WHILE_NOT_ERROR`,
			`000005    APPEND`,
			`000006    RULE 1                  ; other`,
			`000008  POP`,
			``,
		}, "\n"), Disassemble(a.Grammar, a.Grammar.Rules[0].Bytecode))
	})

	t.Run("truncated code", func(t *testing.T) {
		assert.Equal(t, "000000  [18 0] (truncated)\n", Disassemble(nil, []int{18, 0}))
	})
}

func TestPrinterHelpers(t *testing.T) {
	t.Run("kind titles", func(t *testing.T) {
		assert.Equal(t, "ZeroOrMore", kindTitle(KindZeroOrMore))
		assert.Equal(t, "RuleRef", kindTitle(KindRuleRef))
		assert.Equal(t, "SimpleAnd", kindTitle(KindSimpleAnd))
		assert.Equal(t, "Any", kindTitle(KindAny))
	})

	t.Run("code summaries", func(t *testing.T) {
		assert.Equal(t, "{return a + b}", summarizeCode("  return\n   a +   b "))
		assert.Equal(t, "{"+strings.Repeat("x", 37)+"...}", summarizeCode(strings.Repeat("x", 50)))
		assert.Equal(t, "{}", summarizeCode(""))
	})
}
