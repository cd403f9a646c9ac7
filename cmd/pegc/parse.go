package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pegkit/pegc"
)

type parseParams struct {
	grammarParams

	startRule string
	trace     bool
	cache     bool
}

func newParseCommand(gp *globalParams) *cobra.Command {
	p := &parseParams{}
	cmd := &cobra.Command{
		Use:   "parse <ast> [input]",
		Short: "Parse an input with a grammar AST",
		Long: `Compile a grammar AST into an in process parser and run it against an
input file, or the standard input when no file is given.  The value
built by the parser is printed as JSON.

Grammars with actions, semantic predicates or function boundaries
can't be run by this command.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 2 {
				input = args[1]
			}
			return runParse(gp, p, args[0], input)
		},
	}
	flags := cmd.Flags()
	p.addFlags(flags)
	flags.StringVar(&p.startRule, "start-rule", "", "rule to start parsing from, defaults to the first rule")
	flags.BoolVar(&p.trace, "trace", false, "log the rules entered and exited at the debug level")
	flags.BoolVar(&p.cache, "cache", false, "memoize the result of each rule at each position")
	return cmd
}

func runParse(gp *globalParams, p *parseParams, path, inputPath string) error {
	g, src, err := p.load(path)
	if err != nil {
		return err
	}
	sources := p.sources(src)
	artifact, err := pegc.Compile(g, nil, &pegc.Options{
		AllowedStartRules: []string{pegc.AllRules},
		Cache:             p.cache,
		Trace:             p.trace,
		Output:            pegc.OutputParser,
		GrammarSource:     src,
		Diagnostics:       collectErrors(),
		Logger:            gp.logger,
		Config:            gp.config,
	})
	if err != nil {
		return gp.reportError(err, sources)
	}
	gp.reportProblems(artifact.Problems, sources)

	var input []byte
	if inputPath == "-" {
		input, err = io.ReadAll(os.Stdin)
	} else {
		input, err = os.ReadFile(inputPath)
	}
	if err != nil {
		return fmt.Errorf("can't read input: %w", err)
	}

	var opts []pegc.ParseOption
	opts = append(opts, pegc.WithGrammarSource(pegc.SourceName(inputPath)))
	if p.startRule != "" {
		opts = append(opts, pegc.WithStartRule(p.startRule))
	}
	result, err := artifact.Parser.Parse(string(input), opts...)
	var serr *pegc.SyntaxError
	if errors.As(err, &serr) {
		text := serr.Format(pegc.SourceText{Source: inputPath, Text: string(input)})
		fmt.Fprintln(gp.stderr, colorize(text, gp.themeFor(gp.stderr)))
		return errReported
	}
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(gp.stdout, string(data))
	return nil
}
