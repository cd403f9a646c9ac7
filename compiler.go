package pegc

import (
	"fmt"
)

// Version of the compiler, written at the top of generated code
const Version = "0.4.0"

// Artifact is the result of a compilation.  Which fields are set
// depends on the requested output.
type Artifact struct {
	Output Output

	// Grammar is the annotated grammar, always set.  It's the
	// result of the `ast` output.
	Grammar *Grammar

	// Parser is set by the `parser` output
	Parser *Parser

	// Source is set by the `source` and `source-with-inline-map`
	// outputs
	Source string

	// SourceNode is set by the `source-and-map` output
	SourceNode *SourceNode

	// Problems lists the warnings and infos of the compilation
	Problems []*Problem
}

// SourceAndMap renders the source node of a `source-and-map`
// compilation into the code and its source map
func (a *Artifact) SourceAndMap(file string) (string, *SourceMap) {
	if a.SourceNode == nil {
		return a.Source, nil
	}
	return a.SourceNode.StringWithSourceMap(file)
}

// Compile runs the passes over the grammar, stage by stage, and
// returns the output selected by the options.  A nil `passes` uses
// DefaultPasses and nil options use the defaults of every option.
//
// Invalid options are reported as *ConfigError before any pass runs.
// Problems found within the grammar are reported as *GrammarError.
// The grammar is changed in place by the transform passes, and
// compiling the same grammar again produces the same output.
func Compile(g *Grammar, passes *Passes, opts *Options) (*Artifact, error) {
	if opts == nil {
		opts = &Options{}
	}
	opts = opts.clone()
	if passes == nil {
		passes = DefaultPasses()
	} else {
		passes = passes.Clone()
	}

	cfg := &PluginConfig{Passes: passes}
	for _, p := range opts.Plugins {
		if err := p.Use(cfg, opts); err != nil {
			return nil, fmt.Errorf("plugin: %w", err)
		}
	}
	if err := opts.resolve(g); err != nil {
		return nil, err
	}
	if opts.Output == OutputParser {
		if err := checkParserCapabilities(g, opts); err != nil {
			return nil, err
		}
	}

	s := NewSession(opts.Diagnostics, opts.Logger)
	for _, stage := range cfg.Passes.Stages() {
		s.Stage = stage
		log := opts.Logger.WithField("stage", stage)
		log.Debug("running stage")
		err := s.guard(func() {
			for _, p := range cfg.Passes.Stage(stage) {
				log.WithField("pass", p.Name()).Debug("running pass")
				p.Run(g, opts, s)
			}
		})
		if err != nil {
			return nil, err
		}
		if err := s.CheckErrors(); err != nil {
			return nil, err
		}
	}
	return output(g, opts, s)
}

// checkParserCapabilities makes sure the host can run everything the
// in process parser needs
func checkParserCapabilities(g *Grammar, opts *Options) error {
	if hasCodeFragments(g) {
		if !opts.Config.GetBool("host.eval") {
			return configError("output", ErrCapability,
				"%q requires evaluating the code of the grammar", opts.Output)
		}
		if opts.Host == nil {
			return configError("host", ErrCapability,
				"%q requires a host to run the code of the grammar", opts.Output)
		}
	}
	for _, imp := range g.Imports {
		if _, ok := opts.Libraries[imp.From.Module]; !ok {
			return configError("libraries", ErrUnknownLibrary, "no parser for %q", imp.From.Module)
		}
	}
	return nil
}

// hasCodeFragments is true for grammars with actions, semantic
// predicates or function boundaries
func hasCodeFragments(g *Grammar) bool {
	found := false
	Inspect(g, func(n Node) bool {
		switch v := n.(type) {
		case *Action, *SemanticAnd, *SemanticNot:
			found = true
		case *Repeated:
			if v.Max.Type == BoundaryFunction || (v.Min != nil && v.Min.Type == BoundaryFunction) {
				found = true
			}
		}
		return !found
	})
	return found
}

func output(g *Grammar, opts *Options, s *Session) (*Artifact, error) {
	a := &Artifact{Output: opts.Output, Grammar: g, Problems: s.Problems}
	switch opts.Output {
	case OutputParser:
		p, err := newParser(g, opts)
		if err != nil {
			return nil, err
		}
		a.Parser = p
	case OutputSource:
		a.Source = g.Code.String()
	case OutputSourceAndMap:
		a.SourceNode = g.Code
	case OutputSourceWithInlineMap:
		code, m := g.Code.StringWithSourceMap("")
		url, err := m.DataURL()
		if err != nil {
			return nil, err
		}
		a.Source = code + url + "\n"
	}
	return a, nil
}
