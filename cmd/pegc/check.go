package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pegkit/pegc"
)

func newCheckCommand(gp *globalParams) *cobra.Command {
	p := &grammarParams{}
	cmd := &cobra.Command{
		Use:   "check <ast>",
		Short: "Report the problems of a grammar AST",
		Long: `Run every pass up to code generation and report the problems found.

Errors of a stage are reported together, the command fails when there's
at least one of them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(gp, p, args[0])
		},
	}
	p.addFlags(cmd.Flags())
	return cmd
}

// checkPasses are the default passes without code generation
func checkPasses() *pegc.Passes {
	passes := pegc.DefaultPasses()
	for _, name := range passes.Names(pegc.StageGenerate) {
		if err := passes.Remove(pegc.StageGenerate, name); err != nil {
			panic(err)
		}
	}
	return passes
}

func runCheck(gp *globalParams, p *grammarParams, path string) error {
	g, src, err := p.load(path)
	if err != nil {
		return err
	}
	sources := p.sources(src)
	artifact, err := pegc.Compile(g, checkPasses(), &pegc.Options{
		AllowedStartRules: []string{pegc.AllRules},
		Output:            pegc.OutputAST,
		GrammarSource:     src,
		Diagnostics:       collectErrors(),
		Logger:            gp.logger,
		Config:            gp.config,
	})
	if err != nil {
		return gp.reportError(err, sources)
	}
	gp.reportProblems(artifact.Problems, sources)

	warnings := 0
	for _, pr := range artifact.Problems {
		if pr.Severity == pegc.SeverityWarning {
			warnings++
		}
	}
	fmt.Fprintf(gp.stdout, "%s: %d rules, %d warnings\n", src.GrammarSourceName(), len(artifact.Grammar.Rules), warnings)
	return nil
}
