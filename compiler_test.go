package pegc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileOptions(t *testing.T) {
	withAction := func() *Grammar { return grammar(rule("start", act("return 1", lit("a")))) }
	noEval := NewConfig()
	noEval.SetBool("host.eval", false)
	noEncoding := NewConfig()
	noEncoding.SetBool("host.text_encoding", false)

	for _, test := range []struct {
		name    string
		grammar *Grammar
		opts    *Options
		err     error
		option  string
	}{
		{
			name:    "grammars need rules",
			grammar: grammar(),
			opts:    &Options{},
			err:     ErrNoRules,
			option:  "rules",
		},
		{
			name:    "start rules can't be empty",
			grammar: grammar(rule("start", lit("a"))),
			opts:    &Options{AllowedStartRules: []string{}},
			err:     ErrEmptyStartRules,
			option:  "allowedStartRules",
		},
		{
			name:    "start rules must exist",
			grammar: grammar(rule("start", lit("a"))),
			opts:    &Options{AllowedStartRules: []string{"missing"}},
			err:     ErrUnknownStartRule,
			option:  "allowedStartRules",
		},
		{
			name:    "unknown format",
			grammar: grammar(rule("start", lit("a"))),
			opts:    &Options{Format: "iife"},
			err:     ErrInvalidFormat,
			option:  "format",
		},
		{
			name:    "globals need an export variable",
			grammar: grammar(rule("start", lit("a"))),
			opts:    &Options{Format: FormatGlobals},
			err:     ErrInvalidFormat,
			option:  "exportVar",
		},
		{
			name:    "bare parsers have no dependencies",
			grammar: grammar(rule("start", lit("a"))),
			opts:    &Options{Dependencies: map[string]string{"x": "x"}},
			err:     ErrInvalidFormat,
			option:  "dependencies",
		},
		{
			name:    "source maps need a grammar source",
			grammar: grammar(rule("start", lit("a"))),
			opts:    &Options{Output: OutputSourceAndMap},
			err:     ErrGrammarSourceRequired,
			option:  "grammarSource",
		},
		{
			name:    "inline maps need text encoding",
			grammar: grammar(rule("start", lit("a"))),
			opts:    &Options{Output: OutputSourceWithInlineMap, GrammarSource: testSource, Config: noEncoding},
			err:     ErrCapability,
			option:  "output",
		},
		{
			name:    "unknown output",
			grammar: grammar(rule("start", lit("a"))),
			opts:    &Options{Output: "wasm"},
			err:     ErrInvalidOutput,
			option:  "output",
		},
		{
			name:    "parsers with code need a host",
			grammar: withAction(),
			opts:    &Options{},
			err:     ErrCapability,
			option:  "host",
		},
		{
			name:    "parsers with code need eval",
			grammar: withAction(),
			opts:    &Options{Host: HostFuncs{}, Config: noEval},
			err:     ErrCapability,
			option:  "output",
		},
		{
			name: "parsers need the imported libraries",
			grammar: func() *Grammar {
				g := grammar(rule("start", ref("number")))
				g.Imports = []*GrammarImport{{
					What: []*ImportBinding{{Type: ImportNamed, Binding: "number"}},
					From: ModuleSpecifier{Module: "./numbers.js"},
				}}
				return g
			}(),
			opts:   &Options{},
			err:    ErrUnknownLibrary,
			option: "libraries",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Compile(test.grammar, nil, test.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, test.err)

			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "expected a *ConfigError, got %T", err)
			assert.Equal(t, test.option, ce.Option)
		})
	}

	t.Run("unknown start rules come with a suggestion", func(t *testing.T) {
		_, err := Compile(grammar(rule("start", lit("a"))), nil, &Options{AllowedStartRules: []string{"strat"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `did you mean "start"`)
	})

	t.Run("the options of the caller are left untouched", func(t *testing.T) {
		opts := &Options{Output: OutputAST}
		_, err := Compile(grammar(rule("start", lit("a"))), nil, opts)
		require.NoError(t, err)
		assert.Nil(t, opts.AllowedStartRules)
		assert.Nil(t, opts.Config)
		assert.Empty(t, opts.Format)
	})
}

func TestCompileErrors(t *testing.T) {
	duplicated := func() *Grammar {
		return grammar(
			NewRule("a", at(1, 1, 1), lit("x"), at(1, 1, 7)),
			NewRule("a", at(2, 1, 1), lit("y"), at(2, 1, 7)),
			NewRule("b", at(3, 1, 1), NewRuleRef("c", at(3, 5, 1)), at(3, 1, 5)),
		)
	}

	t.Run("the first error stops the compilation", func(t *testing.T) {
		_, err := Compile(duplicated(), nil, &Options{Output: OutputAST})
		var ge *GrammarError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, `Rule "c" is not defined`, ge.Message)
		assert.Equal(t, StageCheck, ge.Stage)
		assert.Equal(t, at(3, 5, 1), ge.Location)
	})

	t.Run("an error callback collects every error of the stage", func(t *testing.T) {
		c := &collected{}
		_, err := Compile(duplicated(), nil, &Options{Output: OutputAST, Diagnostics: c.diagnostics()})
		var ge *GrammarError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, `Stage "check" contains 2 error(s).`, ge.Message)
		assert.Equal(t, []string{`Rule "c" is not defined`, `Rule "a" is already defined`}, c.errors)

		errs := ge.Errors()
		require.Len(t, errs, 2)
		assert.Equal(t, []DiagnosticNote{{Message: "Original rule location", Location: at(1, 1, 1)}}, errs[1].Notes)
	})

	t.Run("labels of different alternatives don't clash", func(t *testing.T) {
		g := grammar(rule("start", alt(seq(label("a", lit("x"))), seq(label("a", lit("y"))))))
		a := compileAST(t, g, nil)
		assert.Empty(t, messages(a.Problems, SeverityError))
	})

	t.Run("compiling twice gives the same result", func(t *testing.T) {
		g := grammar(
			rule("start", seq(ref("proxy"), star(alt(lit("a"), lit("b"))))),
			rule("proxy", ref("real")),
			rule("real", lit("r")),
			rule("unused", lit("u")),
		)
		first, err := Compile(g, nil, &Options{Output: OutputSource})
		require.NoError(t, err)
		second, err := Compile(g, nil, &Options{Output: OutputSource})
		require.NoError(t, err)
		assert.Equal(t, first.Source, second.Source)
		assert.Equal(t, []string{"start", "real"}, g.RuleNames())
	})
}

func TestCompilePlugins(t *testing.T) {
	t.Run("plugins change the passes and the options", func(t *testing.T) {
		var seen []string
		plugin := PluginFunc(func(cfg *PluginConfig, opts *Options) error {
			opts.AllowedStartRules = []string{"b"}
			return cfg.Passes.Append(StageTransform, NewPass("recordRules", func(g *Grammar, _ *Options, _ *Session) {
				seen = g.RuleNames()
			}))
		})
		g := grammar(rule("a", lit("a")), rule("b", lit("b")))
		a, err := Compile(g, nil, &Options{Output: OutputParser, Plugins: []Plugin{plugin}})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, seen)
		assert.Equal(t, []string{"b"}, a.Parser.StartRules())
	})

	t.Run("plugins don't change the registry of the caller", func(t *testing.T) {
		passes := DefaultPasses()
		plugin := PluginFunc(func(cfg *PluginConfig, _ *Options) error {
			return cfg.Passes.Remove(StageTransform, "removeUnusedRules")
		})
		g := grammar(rule("a", lit("a")), rule("b", lit("b")))
		_, err := Compile(g, passes, &Options{Output: OutputAST, Plugins: []Plugin{plugin}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, g.RuleNames())
		assert.Contains(t, passes.Names(StageTransform), "removeUnusedRules")
	})

	t.Run("plugin errors stop the compilation", func(t *testing.T) {
		plugin := PluginFunc(func(cfg *PluginConfig, _ *Options) error {
			return cfg.Passes.Remove(StageCheck, "missing")
		})
		_, err := Compile(grammar(rule("a", lit("a"))), nil, &Options{Plugins: []Plugin{plugin}})
		assert.ErrorIs(t, err, ErrUnknownPass)
	})
}

func TestPasses(t *testing.T) {
	noop := func(name string) Pass { return NewPass(name, func(*Grammar, *Options, *Session) {}) }

	t.Run("default passes", func(t *testing.T) {
		p := DefaultPasses()
		assert.Equal(t, []string{StagePrepare, StageCheck, StageTransform, StageGenerate}, p.Stages())
		assert.Equal(t, []string{"addImportedRules"}, p.Names(StagePrepare))
		assert.Equal(t, []string{
			"reportUndefinedRules",
			"reportDuplicateRules",
			"reportDuplicateLabels",
			"reportInfiniteRecursion",
			"reportInfiniteRepetition",
			"reportIncorrectPlucking",
			"reportDuplicateImports",
		}, p.Names(StageCheck))
		assert.Equal(t, []string{
			"removeProxyRules",
			"mergeCharacterClasses",
			"removeUnusedRules",
			"inferenceMatchResult",
		}, p.Names(StageTransform))
		assert.Equal(t, []string{"generateBytecode", "generateJS"}, p.Names(StageGenerate))
	})

	t.Run("passes can be placed anywhere in a stage", func(t *testing.T) {
		p := NewPasses()
		require.NoError(t, p.Append(StageCheck, noop("b"), noop("d")))
		require.NoError(t, p.Prepend(StageCheck, noop("a")))
		require.NoError(t, p.InsertBefore(StageCheck, "d", noop("c")))
		require.NoError(t, p.InsertAfter(StageCheck, "d", noop("e")))
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, p.Names(StageCheck))

		require.NoError(t, p.Replace(StageCheck, "c", noop("x")))
		require.NoError(t, p.Remove(StageCheck, "a"))
		assert.Equal(t, []string{"b", "x", "d", "e"}, p.Names(StageCheck))
	})

	t.Run("unknown names", func(t *testing.T) {
		p := DefaultPasses()
		assert.ErrorIs(t, p.Append("optimize", noop("a")), ErrUnknownStage)
		assert.ErrorIs(t, p.Remove("optimize", "a"), ErrUnknownStage)
		assert.ErrorIs(t, p.Remove(StageCheck, "a"), ErrUnknownPass)
		assert.ErrorIs(t, p.InsertAfter(StageGenerate, "generateGo", noop("a")), ErrUnknownPass)
	})

	t.Run("clones are independent", func(t *testing.T) {
		p := DefaultPasses()
		c := p.Clone()
		require.NoError(t, c.Remove(StageGenerate, "generateJS"))
		assert.Equal(t, []string{"generateBytecode", "generateJS"}, p.Names(StageGenerate))
		assert.Equal(t, []string{"generateBytecode"}, c.Names(StageGenerate))
	})
}
