package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pegkit/pegc"
)

const choiceGrammar = `{
  "type": "grammar",
  "rules": [{
    "type": "rule",
    "name": "start",
    "expression": {
      "type": "choice",
      "alternatives": [
        {"type": "literal", "value": "ab"},
        {"type": "literal", "value": "cd"}
      ]
    }
  }]
}`

const undefinedRuleGrammar = `{
  "type": "grammar",
  "rules": [{
    "type": "rule",
    "name": "start",
    "nameLocation": {"start": {"offset": 0, "line": 1, "column": 1}, "end": {"offset": 5, "line": 1, "column": 6}},
    "expression": {
      "type": "rule_ref",
      "name": "missing",
      "location": {"start": {"offset": 8, "line": 1, "column": 9}, "end": {"offset": 15, "line": 1, "column": 16}}
    }
  }]
}`

const actionGrammar = `{
  "type": "grammar",
  "rules": [{
    "type": "rule",
    "name": "start",
    "expression": {"type": "action", "code": "return 1", "expression": {"type": "any"}}
  }]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := run("version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Version: "+pegc.Version+"\n")
}

func TestSettingsCommand(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		stdout, _, err := run("settings")
		require.NoError(t, err)
		assert.Contains(t, stdout, "vm.max_steps                   : 0 (int)\n")
	})

	t.Run("set on the command line", func(t *testing.T) {
		stdout, _, err := run("settings", "--set", "vm.max_steps=10", "--set", "host.eval=false")
		require.NoError(t, err)
		assert.Contains(t, stdout, "vm.max_steps                   : 10 (int)\n")
		assert.Contains(t, stdout, "host.eval                      : false (bool)\n")
	})

	t.Run("set in a config file", func(t *testing.T) {
		config := writeFile(t, "pegc.yaml", "set:\n  vm.max_steps: \"7\"\n")
		stdout, _, err := run("settings", "--config", config)
		require.NoError(t, err)
		assert.Contains(t, stdout, "vm.max_steps                   : 7 (int)\n")
	})

	t.Run("invalid settings", func(t *testing.T) {
		_, _, err := run("settings", "--set", "vm.max_steps")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected key=value")

		_, _, err = run("settings", "--set", "vm.unknown=1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("invalid log flags", func(t *testing.T) {
		_, _, err := run("settings", "--log-level", "loud")
		assert.ErrorContains(t, err, `invalid log level "loud"`)
		_, _, err = run("settings", "--log-format", "xml")
		assert.ErrorContains(t, err, `invalid log format "xml"`)
	})
}

func TestCompileCommand(t *testing.T) {
	ast := writeFile(t, "grammar.json", choiceGrammar)

	t.Run("source goes to the standard output", func(t *testing.T) {
		stdout, _, err := run("compile", ast)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(stdout, "// Generated by pegc "+pegc.Version+"."))
		assert.Contains(t, stdout, "function peg$parsestart() {")
		assert.Contains(t, stdout, "module.exports = {")
	})

	t.Run("formats and output files", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "parser.mjs")
		stdout, _, err := run("compile", ast, "--format", "es", "--dependency", "lib:./lib.js", "-o", out)
		require.NoError(t, err)
		assert.Empty(t, stdout)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), "import lib from \"./lib.js\";\n")
		assert.Contains(t, string(data), "export {")
	})

	t.Run("source maps are written next to the output", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "parser.js")
		_, _, err := run("compile", ast, "--output", "source-and-map", "-o", out)
		require.NoError(t, err)

		code, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(string(code), "//# sourceMappingURL=parser.js.map\n"))

		m, err := os.ReadFile(out + ".map")
		require.NoError(t, err)
		assert.Contains(t, string(m), `"version":3`)
		assert.Contains(t, string(m), `"file":"parser.js"`)
	})

	t.Run("annotated asts", func(t *testing.T) {
		stdout, _, err := run("compile", ast, "--output", "ast")
		require.NoError(t, err)
		g, err := pegc.LoadGrammar([]byte(stdout))
		require.NoError(t, err)
		assert.Equal(t, []string{"start"}, g.RuleNames())
		assert.Contains(t, stdout, `"bytecode"`)
	})

	t.Run("invalid invocations", func(t *testing.T) {
		_, _, err := run("compile", ast, "--output", "source-and-map")
		assert.ErrorContains(t, err, "requires --out")

		_, _, err = run("compile", ast, "--output", "parser")
		assert.ErrorContains(t, err, "use the parse command")

		_, _, err = run("compile", ast, "--dependency", "lib")
		assert.ErrorContains(t, err, `invalid dependency "lib"`)

		_, _, err = run("compile", ast, "--format", "globals")
		assert.ErrorIs(t, err, pegc.ErrInvalidFormat)

		_, _, err = run("compile", filepath.Join(t.TempDir(), "missing.json"))
		assert.ErrorContains(t, err, "can't read grammar")
	})
}

func TestCheckCommand(t *testing.T) {
	t.Run("valid grammars", func(t *testing.T) {
		ast := writeFile(t, "grammar.json", choiceGrammar)
		stdout, _, err := run("check", ast, "--grammar-source", "choice.peggy")
		require.NoError(t, err)
		assert.Equal(t, "choice.peggy: 1 rules, 0 warnings\n", stdout)
	})

	t.Run("errors are reported with excerpts", func(t *testing.T) {
		ast := writeFile(t, "grammar.json", undefinedRuleGrammar)
		text := writeFile(t, "grammar.peggy", "start = missing\n")
		_, stderr, err := run("check", ast, "--grammar-source", "grammar.peggy", "--grammar-text", text)
		assert.ErrorIs(t, err, errReported)
		assert.Contains(t, stderr, strings.Join([]string{
			`error: Rule "missing" is not defined`,
			` --> grammar.peggy:1:9`,
			`  |`,
			`1 | start = missing`,
			`  |         ^^^^^^^`,
		}, "\n"))
	})
}

func TestPrintCommand(t *testing.T) {
	ast := writeFile(t, "grammar.json", choiceGrammar)

	t.Run("trees", func(t *testing.T) {
		stdout, _, err := run("print", ast)
		require.NoError(t, err)
		assert.Equal(t, strings.Join([]string{
			`Grammar`,
			`└── Rule[start]`,
			`    └── Choice match=sometimes`,
			`        ├── Literal["ab"] match=sometimes`,
			`        └── Literal["cd"] match=sometimes`,
			``,
		}, "\n"), stdout)
	})

	t.Run("yaml", func(t *testing.T) {
		stdout, _, err := run("print", ast, "--format", "yaml")
		require.NoError(t, err)
		assert.Contains(t, stdout, "type: grammar")
		assert.Contains(t, stdout, "name: start")

		g, err := pegc.LoadGrammar([]byte(stdout))
		require.NoError(t, err)
		assert.Equal(t, []string{"start"}, g.RuleNames())
	})

	t.Run("bytecode", func(t *testing.T) {
		stdout, _, err := run("print", ast, "--bytecode")
		require.NoError(t, err)
		assert.Contains(t, stdout, ";; start @ ")
		assert.Contains(t, stdout, `MATCH_STRING 0            ; "ab"`)
	})

	t.Run("unknown formats", func(t *testing.T) {
		_, _, err := run("print", ast, "--format", "xml")
		assert.ErrorContains(t, err, `invalid format "xml"`)
	})
}

func TestParseCommand(t *testing.T) {
	ast := writeFile(t, "grammar.json", choiceGrammar)

	t.Run("results are printed as json", func(t *testing.T) {
		input := writeFile(t, "input.txt", "cd")
		stdout, _, err := run("parse", ast, input)
		require.NoError(t, err)
		assert.Equal(t, "\"cd\"\n", stdout)
	})

	t.Run("syntax errors", func(t *testing.T) {
		input := writeFile(t, "input.txt", "x")
		_, stderr, err := run("parse", ast, input)
		assert.ErrorIs(t, err, errReported)
		assert.Contains(t, stderr, `error: Expected "ab" or "cd" but "x" found.`)
		assert.Contains(t, stderr, "1 | x")
	})

	t.Run("grammars with code can't be run", func(t *testing.T) {
		code := writeFile(t, "action.json", actionGrammar)
		input := writeFile(t, "input.txt", "x")
		_, _, err := run("parse", code, input)
		assert.ErrorIs(t, err, pegc.ErrCapability)
	})
}
