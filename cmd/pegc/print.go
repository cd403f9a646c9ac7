package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pegkit/pegc"
)

const (
	printFormatTree = "tree"
	printFormatJSON = "json"
	printFormatYAML = "yaml"
)

type printParams struct {
	grammarParams

	format    string
	bytecode  bool
	annotated bool
}

func newPrintCommand(gp *globalParams) *cobra.Command {
	p := &printParams{}
	cmd := &cobra.Command{
		Use:   "print <ast>",
		Short: "Print a grammar AST or its bytecode",
		Long: `Print a grammar AST as a tree, as JSON or as YAML.

With --annotated the grammar is compiled first, so the tree shows what
the passes did to it, like the match results of every expression.
With --bytecode the instructions generated for each rule are listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(gp, p, args[0])
		},
	}
	flags := cmd.Flags()
	p.addFlags(flags)
	flags.StringVar(&p.format, "format", printFormatTree, "output format: tree, json or yaml")
	flags.BoolVar(&p.bytecode, "bytecode", false, "list the bytecode of every rule")
	flags.BoolVar(&p.annotated, "annotated", false, "compile the grammar before printing it")
	return cmd
}

func runPrint(gp *globalParams, p *printParams, path string) error {
	g, src, err := p.load(path)
	if err != nil {
		return err
	}
	if p.annotated || p.bytecode {
		sources := p.sources(src)
		artifact, err := pegc.Compile(g, nil, &pegc.Options{
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
		g = artifact.Grammar
	}

	if p.bytecode {
		fmt.Fprint(gp.stdout, pegc.DisassembleGrammar(g, gp.themeFor(gp.stdout)))
		return nil
	}
	switch p.format {
	case printFormatTree:
		fmt.Fprintln(gp.stdout, pegc.HighlightAST(g, gp.themeFor(gp.stdout)))
		return nil
	case printFormatJSON:
		data, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(gp.stdout, string(data))
		return nil
	case printFormatYAML:
		return writeYAML(gp.stdout, g)
	default:
		return fmt.Errorf("invalid format %q", p.format)
	}
}

// writeYAML converts the JSON form of `v` to YAML.  Going through a
// yaml.Node keeps the keys in the order the JSON encoder wrote them.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}
