package pegc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, g *Grammar, opts *Options) string {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	opts.Output = OutputSource
	a, err := Compile(g, nil, opts)
	require.NoError(t, err)
	return a.Source
}

func TestGenerateJS(t *testing.T) {
	literalGrammar := func() *Grammar { return grammar(rule("start", lit("a"))) }

	t.Run("rules become functions", func(t *testing.T) {
		src := compileSource(t, literalGrammar(), &Options{Format: FormatCommonJS})
		assert.Contains(t, src, strings.Join([]string{
			"  function peg$parsestart() {",
			"    var s0;",
			"",
			"    if (input.charCodeAt(peg$currPos) === 97) {",
			"      s0 = peg$c0;",
			"      peg$currPos++;",
			"    } else {",
			"      s0 = peg$FAILED;",
			"      if (peg$silentFails === 0) { peg$fail(peg$e0); }",
			"    }",
			"",
			"    return s0;",
			"  }",
		}, "\n"))
	})

	t.Run("constants are declared once", func(t *testing.T) {
		g := grammar(rule("start", seq(lit("ab"), lit("ab"), class(RangePart('a', 'z')), anyChar())))
		src := compileSource(t, g, nil)
		assert.Equal(t, 1, strings.Count(src, "var peg$c0 = \"ab\";"))
		assert.Contains(t, src, "var peg$r0 = /^[a-z]/;")
		assert.Contains(t, src, `var peg$e0 = peg$literalExpectation("ab", false);`)
		assert.Contains(t, src, `var peg$e1 = peg$classExpectation([["a", "z"]], false, false);`)
		assert.Contains(t, src, "var peg$e2 = peg$anyExpectation();")
		assert.Contains(t, src, "input.substr(peg$currPos, 2) === peg$c0")
		assert.NotContains(t, src, "var peg$c1")
	})

	t.Run("start rules", func(t *testing.T) {
		g := grammar(rule("a", lit("a")), rule("b", lit("b")))
		src := compileSource(t, g, &Options{AllowedStartRules: []string{"b", "a"}})
		assert.Contains(t, src, `var peg$startRuleFunctions = { "b": peg$parseb, "a": peg$parsea };`)
		assert.Contains(t, src, "var peg$startRuleFunction = peg$parseb;")
		assert.Contains(t, src, `var peg$allowedStartRules = ["b", "a"];`)
	})

	t.Run("actions become functions of their labels", func(t *testing.T) {
		g := grammar(rule("start", act(" return a + b; ", seq(label("a", lit("a")), label("b", lit("b"))))))
		src := compileSource(t, g, nil)
		assert.Contains(t, src, "var peg$f0 = function(a, b) { return a + b; };")
		assert.Contains(t, src, "s0 = peg$f0(s1, s2);")
	})

	t.Run("initializers", func(t *testing.T) {
		g := literalGrammar()
		g.TopLevelInitializer = []*CodeBlock{{Code: "const shared = 1;"}}
		g.Initializer = []*CodeBlock{{Code: "const perParse = 2;"}}
		src := compileSource(t, g, &Options{Format: FormatCommonJS})

		top := strings.Index(src, "const shared = 1;")
		parse := strings.Index(src, "function peg$parse(input, options)")
		inner := strings.Index(src, "const perParse = 2;")
		require.True(t, top > 0 && parse > 0 && inner > 0)
		assert.Less(t, top, parse)
		assert.Less(t, parse, inner)
	})

	t.Run("cache and trace", func(t *testing.T) {
		plain := compileSource(t, literalGrammar(), nil)
		assert.NotContains(t, plain, "peg$resultsCache")
		assert.NotContains(t, plain, "peg$tracer")

		src := compileSource(t, literalGrammar(), &Options{Cache: true, Trace: true})
		assert.Contains(t, src, "var key = peg$currPos * 1 + 0;")
		assert.Contains(t, src, "var peg$resultsCache = {};")
		assert.Contains(t, src, "peg$resultsCache[key] = { nextPos: peg$currPos, result: s0 };")
		assert.Contains(t, src, `type: "rule.enter",`)
		assert.Contains(t, src, `type: "rule.match",`)
	})

	t.Run("the indentation unit is configurable", func(t *testing.T) {
		cfg := NewConfig()
		cfg.SetString("generate.js.indent", "\t")
		src := compileSource(t, literalGrammar(), &Options{Format: FormatCommonJS, Config: cfg})
		assert.Contains(t, src, "\tfunction peg$parsestart() {\n\t\tvar s0;\n")
	})

	t.Run("output is deterministic", func(t *testing.T) {
		build := func() *Grammar {
			return grammar(
				rule("start", act("return 1", seq(label("x", ref("digit")), star(lit("+"))))),
				rule("digit", class(RangePart('0', '9'))),
			)
		}
		opts := func() *Options {
			return &Options{Format: FormatUMD, ExportVar: "P", Dependencies: map[string]string{"b": "b", "a": "a"}}
		}
		first := compileSource(t, build(), opts())
		assert.Equal(t, first, compileSource(t, build(), opts()))

		g := build()
		again := compileSource(t, g, opts())
		assert.Equal(t, again, compileSource(t, g, opts()))
	})
}

func TestGenerateJSFormats(t *testing.T) {
	header := "// Generated by pegc " + Version + ".\n//\n// https://github.com/pegkit/pegc\n\n"
	deps := map[string]string{"lib": "./lib.js"}

	for _, test := range []struct {
		name     string
		opts     *Options
		contains []string
		suffix   string
	}{
		{
			name:     "bare",
			opts:     &Options{Format: FormatBare},
			contains: []string{"(function() {\n  \"use strict\";\n\n"},
			suffix:   "  return {\n    StartRules: peg$allowedStartRules,\n    SyntaxError: peg$SyntaxError,\n    parse: peg$parse\n  };\n})()\n",
		},
		{
			name:     "commonjs",
			opts:     &Options{Format: FormatCommonJS, Dependencies: deps},
			contains: []string{"\"use strict\";\n\nvar lib = require(\"./lib.js\");\n\n"},
			suffix:   "module.exports = {\n  StartRules: peg$allowedStartRules,\n  SyntaxError: peg$SyntaxError,\n  parse: peg$parse\n};\n",
		},
		{
			name:     "es",
			opts:     &Options{Format: FormatES, Dependencies: deps},
			contains: []string{"import lib from \"./lib.js\";\n"},
			suffix:   "export {\n  peg$allowedStartRules as StartRules,\n  peg$SyntaxError as SyntaxError,\n  peg$parse as parse\n};\n",
		},
		{
			name:     "amd",
			opts:     &Options{Format: FormatAMD, Dependencies: deps},
			contains: []string{"define([\"./lib.js\"], function(lib) {\n"},
			suffix:   "});\n",
		},
		{
			name:     "globals",
			opts:     &Options{Format: FormatGlobals, ExportVar: "MyParser"},
			contains: []string{"(function(root) {\n", "  root.MyParser = {\n"},
			suffix:   "})(this);\n",
		},
		{
			name: "umd",
			opts: &Options{Format: FormatUMD, ExportVar: "MyParser", Dependencies: deps},
			contains: []string{
				"    define([\"./lib.js\"], factory);\n",
				"    module.exports = factory(require(\"./lib.js\"));\n",
				"    root.MyParser = factory(root.lib);\n",
				"})(this, function(lib) {\n",
			},
			suffix: "});\n",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			src := compileSource(t, grammar(rule("start", lit("a"))), test.opts)
			assert.True(t, strings.HasPrefix(src, header), "missing header:\n%s", src[:min(len(src), 200)])
			for _, c := range test.contains {
				assert.Contains(t, src, c)
			}
			assert.True(t, strings.HasSuffix(src, test.suffix), "unexpected ending:\n%s", src[max(0, len(src)-300):])
		})
	}

	t.Run("imported grammars are namespace imports", func(t *testing.T) {
		g := grammar(rule("start", ref("number")))
		g.Imports = []*GrammarImport{{
			What: []*ImportBinding{{Type: ImportNamed, Binding: "number"}},
			From: ModuleSpecifier{Module: "./numbers.js"},
		}}
		src := compileSource(t, g, &Options{Format: FormatES})
		assert.Contains(t, src, "import * as peg$import0 from \"./numbers.js\";\n")
		assert.Contains(t, src, `peg$callLibrary(peg$import0, "number")`)
	})
}

func TestJSString(t *testing.T) {
	for _, test := range []struct {
		name, input, expected string
	}{
		{"plain", "abc", `"abc"`},
		{"quotes and backslashes", `a"b\c`, `"a\"b\\c"`},
		{"named escapes", "\t\n\r", `"\t\n\r"`},
		{"control characters", "\x00\x7f", `"\x00\x7F"`},
		{"latin-1", "é", `"\xE9"`},
		{"beyond latin-1", "λ", `"\u03BB"`},
		{"astral plane", "😀", `"\uD83D\uDE00"`},
	} {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, jsString(test.input))
		})
	}

	t.Run("class regular expressions", func(t *testing.T) {
		c := &ClassConst{Parts: []ClassPart{CharPart(']'), RangePart('a', 'z'), CharPart('-')}, Inverted: true, IgnoreCase: true}
		assert.Equal(t, `/^[^\]a-z\-]/i`, jsClassRegexp(c))
	})
}
