package pegc

import (
	"fmt"
	"slices"
)

// Names of the stages of the pipeline, in the order they run
const (
	StagePrepare   = "prepare"
	StageCheck     = "check"
	StageTransform = "transform"
	StageGenerate  = "generate"
)

var stages = []string{StagePrepare, StageCheck, StageTransform, StageGenerate}

// Pass is a step of the compilation pipeline.  Passes report
// problems through the session and check passes must not change the
// grammar.
type Pass interface {
	Name() string
	Run(g *Grammar, opts *Options, s *Session)
}

type passFunc struct {
	name string
	fn   func(*Grammar, *Options, *Session)
}

func (p *passFunc) Name() string                              { return p.name }
func (p *passFunc) Run(g *Grammar, opts *Options, s *Session) { p.fn(g, opts, s) }

// NewPass creates a pass out of a function
func NewPass(name string, fn func(*Grammar, *Options, *Session)) Pass {
	return &passFunc{name: name, fn: fn}
}

// Passes is the ordered list of passes of each stage.  It's what
// plugins change to extend the compiler.
type Passes struct {
	stages map[string][]Pass
}

// NewPasses creates a registry with all stages empty
func NewPasses() *Passes {
	p := &Passes{stages: make(map[string][]Pass, len(stages))}
	for _, s := range stages {
		p.stages[s] = nil
	}
	return p
}

// DefaultPasses returns the registry with the built-in passes
func DefaultPasses() *Passes {
	p := NewPasses()
	p.stages[StagePrepare] = []Pass{
		NewPass("addImportedRules", addImportedRules),
	}
	p.stages[StageCheck] = []Pass{
		NewPass("reportUndefinedRules", reportUndefinedRules),
		NewPass("reportDuplicateRules", reportDuplicateRules),
		NewPass("reportDuplicateLabels", reportDuplicateLabels),
		NewPass("reportInfiniteRecursion", reportInfiniteRecursion),
		NewPass("reportInfiniteRepetition", reportInfiniteRepetition),
		NewPass("reportIncorrectPlucking", reportIncorrectPlucking),
		NewPass("reportDuplicateImports", reportDuplicateImports),
	}
	p.stages[StageTransform] = []Pass{
		NewPass("removeProxyRules", removeProxyRules),
		NewPass("mergeCharacterClasses", mergeCharacterClasses),
		NewPass("removeUnusedRules", removeUnusedRules),
		NewPass("inferenceMatchResult", inferenceMatchResult),
	}
	p.stages[StageGenerate] = []Pass{
		NewPass("generateBytecode", generateBytecode),
		NewPass("generateJS", generateJS),
	}
	return p
}

// Stages returns the name of every stage in execution order
func (p *Passes) Stages() []string { return slices.Clone(stages) }

// Stage returns the passes of a stage in execution order
func (p *Passes) Stage(stage string) []Pass { return slices.Clone(p.stages[stage]) }

// Names returns the names of the passes of a stage
func (p *Passes) Names(stage string) []string {
	var names []string
	for _, pass := range p.stages[stage] {
		names = append(names, pass.Name())
	}
	return names
}

// Clone returns a registry that can be changed without affecting `p`
func (p *Passes) Clone() *Passes {
	out := NewPasses()
	for s, list := range p.stages {
		out.stages[s] = slices.Clone(list)
	}
	return out
}

// Append adds passes to the end of a stage
func (p *Passes) Append(stage string, passes ...Pass) error {
	if err := p.checkStage(stage); err != nil {
		return err
	}
	p.stages[stage] = append(p.stages[stage], passes...)
	return nil
}

// Prepend adds passes to the beginning of a stage
func (p *Passes) Prepend(stage string, passes ...Pass) error {
	if err := p.checkStage(stage); err != nil {
		return err
	}
	p.stages[stage] = append(slices.Clone(passes), p.stages[stage]...)
	return nil
}

// InsertBefore adds `pass` right before the pass called `name`
func (p *Passes) InsertBefore(stage, name string, pass Pass) error {
	i, err := p.find(stage, name)
	if err != nil {
		return err
	}
	p.stages[stage] = slices.Insert(p.stages[stage], i, pass)
	return nil
}

// InsertAfter adds `pass` right after the pass called `name`
func (p *Passes) InsertAfter(stage, name string, pass Pass) error {
	i, err := p.find(stage, name)
	if err != nil {
		return err
	}
	p.stages[stage] = slices.Insert(p.stages[stage], i+1, pass)
	return nil
}

// Replace swaps the pass called `name` with `pass`
func (p *Passes) Replace(stage, name string, pass Pass) error {
	i, err := p.find(stage, name)
	if err != nil {
		return err
	}
	p.stages[stage][i] = pass
	return nil
}

// Remove takes the pass called `name` out of the stage
func (p *Passes) Remove(stage, name string) error {
	i, err := p.find(stage, name)
	if err != nil {
		return err
	}
	p.stages[stage] = slices.Delete(p.stages[stage], i, i+1)
	return nil
}

func (p *Passes) checkStage(stage string) error {
	if _, ok := p.stages[stage]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	return nil
}

func (p *Passes) find(stage, name string) (int, error) {
	if err := p.checkStage(stage); err != nil {
		return -1, err
	}
	for i, pass := range p.stages[stage] {
		if pass.Name() == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in stage %q", ErrUnknownPass, name, stage)
}

// PluginConfig is what plugins get to change before a compilation
type PluginConfig struct {
	Passes *Passes
}

// Plugin extends the compiler.  It may change the passes and the
// options of the compilation it's used by.
type Plugin interface {
	Use(cfg *PluginConfig, opts *Options) error
}

// PluginFunc adapts a function to the Plugin interface
type PluginFunc func(cfg *PluginConfig, opts *Options) error

func (f PluginFunc) Use(cfg *PluginConfig, opts *Options) error { return f(cfg, opts) }
