package pegc

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// Output selects what a compilation returns
type Output string

const (
	// OutputParser returns a parser ready to be used in process
	OutputParser Output = "parser"
	// OutputSource returns the generated javascript
	OutputSource Output = "source"
	// OutputAST returns the annotated grammar
	OutputAST Output = "ast"
	// OutputSourceAndMap returns the source node tree, which
	// renders both the code and its source map
	OutputSourceAndMap Output = "source-and-map"
	// OutputSourceWithInlineMap returns the generated javascript
	// with the source map embedded as a data URI
	OutputSourceWithInlineMap Output = "source-with-inline-map"
)

// Format is the module wrapper of the generated javascript
type Format string

const (
	FormatBare     Format = "bare"
	FormatCommonJS Format = "commonjs"
	FormatES       Format = "es"
	FormatUMD      Format = "umd"
	FormatAMD      Format = "amd"
	FormatGlobals  Format = "globals"
)

var formats = []Format{FormatBare, FormatCommonJS, FormatES, FormatUMD, FormatAMD, FormatGlobals}

// AllRules can be used within AllowedStartRules to allow any rule of
// the grammar to be used as a start rule
const AllRules = "*"

type Options struct {
	// AllowedStartRules lists the rules the generated parser can
	// start from.  When nil it defaults to the first rule of the
	// grammar.  It can't be empty.
	AllowedStartRules []string

	// Cache memoizes the result of each rule at each position
	Cache bool

	// Dependencies maps variable names to module specifiers
	// imported by the generated code
	Dependencies map[string]string

	// ExportVar is the global variable the parser is assigned to
	// by the `globals` and `umd` formats
	ExportVar string

	// Format defaults to `bare`
	Format Format

	// Output defaults to `parser`
	Output Output

	// Trace reports rule entries and exits to a tracer
	Trace bool

	// GrammarSource identifies the grammar within locations,
	// source maps and error messages.  Required by the outputs
	// that produce source maps.
	GrammarSource GrammarSource

	Diagnostics Diagnostics
	Plugins     []Plugin
	Logger      logrus.FieldLogger
	Config      *Config

	// Host runs the code fragments of the grammar for the
	// `parser` output
	Host FunctionHost

	// Libraries are the parsers of the imported grammars, keyed
	// by module specifier, for the `parser` output
	Libraries map[string]*Parser
}

// clone returns a copy that plugins can change freely
func (o *Options) clone() *Options {
	out := *o
	out.AllowedStartRules = slices.Clone(o.AllowedStartRules)
	if o.Dependencies != nil {
		out.Dependencies = make(map[string]string, len(o.Dependencies))
		for k, v := range o.Dependencies {
			out.Dependencies[k] = v
		}
	}
	out.Plugins = slices.Clone(o.Plugins)
	if o.Config != nil {
		out.Config = o.Config.Clone()
	}
	return &out
}

// resolve fills in the defaults and validates everything that can be
// validated without running any pass.
func (o *Options) resolve(g *Grammar) error {
	if len(g.Rules) == 0 {
		return configError("rules", ErrNoRules, "the grammar must have at least one rule")
	}
	if o.Config == nil {
		o.Config = NewConfig()
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	if o.Format == "" {
		o.Format = FormatBare
	}
	if o.Output == "" {
		o.Output = OutputParser
	}

	switch {
	case o.AllowedStartRules == nil:
		o.AllowedStartRules = []string{g.Rules[0].Name}
	case len(o.AllowedStartRules) == 0:
		return configError("allowedStartRules", ErrEmptyStartRules, "must be non-empty")
	case slices.Contains(o.AllowedStartRules, AllRules):
		o.AllowedStartRules = g.RuleNames()
	}
	for _, name := range o.AllowedStartRules {
		if g.FindRule(name) == nil {
			msg := fmt.Sprintf("Unknown start rule %q", name)
			if s := suggest(o.Config, name, g.RuleNames()); s != "" {
				msg += fmt.Sprintf(", did you mean %q?", s)
			}
			return &ConfigError{Option: "allowedStartRules", Message: msg, Err: ErrUnknownStartRule}
		}
	}

	if !slices.Contains(formats, o.Format) {
		return configError("format", ErrInvalidFormat, "unsupported format %q", o.Format)
	}
	if o.Format == FormatGlobals && o.ExportVar == "" {
		return configError("exportVar", ErrInvalidFormat, "required by the %q format", o.Format)
	}
	if len(o.Dependencies) > 0 && (o.Format == FormatBare || o.Format == FormatGlobals) {
		return configError("dependencies", ErrInvalidFormat, "not supported by the %q format", o.Format)
	}

	switch o.Output {
	case OutputParser, OutputSource, OutputAST:
	case OutputSourceAndMap, OutputSourceWithInlineMap:
		if sourceName(o.GrammarSource) == "" {
			return configError("grammarSource", ErrGrammarSourceRequired,
				"must be set to produce a source map")
		}
		if o.Output == OutputSourceWithInlineMap && !o.Config.GetBool("host.text_encoding") {
			return configError("output", ErrCapability,
				"%q requires text encoding support", o.Output)
		}
	default:
		return configError("output", ErrInvalidOutput, "unknown output %q", o.Output)
	}
	return nil
}

// isStartRule is true for rules the generated parser can start from
func (o *Options) isStartRule(name string) bool {
	return slices.Contains(o.AllowedStartRules, name)
}
