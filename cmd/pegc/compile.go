package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pegkit/pegc"
)

const defaultWritePermission = 0o644 // -rw-r--r--

type compileParams struct {
	grammarParams

	output            string
	format            string
	exportVar         string
	dependencies      []string
	allowedStartRules []string
	cache             bool
	trace             bool
	out               string
}

func newCompileCommand(gp *globalParams) *cobra.Command {
	p := &compileParams{}
	cmd := &cobra.Command{
		Use:   "compile <ast>",
		Short: "Generate a parser from a grammar AST",
		Long: `Generate the javascript parser of a grammar AST.

The AST is a JSON or YAML document, "-" reads it from the standard
input.  The output is written to the standard output unless --out is
given.  The source-and-map output requires --out, the source map is
written next to it with the .map extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(gp, p, args[0])
		},
	}
	flags := cmd.Flags()
	p.addFlags(flags)
	flags.StringVar(&p.output, "output", string(pegc.OutputSource), "what to generate: source, source-and-map, source-with-inline-map or ast")
	flags.StringVar(&p.format, "format", string(pegc.FormatCommonJS), "module format: bare, commonjs, es, umd, amd or globals")
	flags.StringVar(&p.exportVar, "export-var", "", "global variable the parser is assigned to, for the globals and umd formats")
	flags.StringArrayVar(&p.dependencies, "dependency", nil, "dependency of the generated code, as variable:module")
	flags.StringSliceVar(&p.allowedStartRules, "allowed-start-rules", nil, "rules the parser can start from, * allows all of them")
	flags.BoolVar(&p.cache, "cache", false, "memoize the result of each rule at each position")
	flags.BoolVar(&p.trace, "trace", false, "report the rules entered and exited to a tracer")
	flags.StringVarP(&p.out, "out", "o", "", "output file")
	return cmd
}

func runCompile(gp *globalParams, p *compileParams, path string) error {
	output := pegc.Output(p.output)
	if output == pegc.OutputParser {
		return fmt.Errorf("the %q output can't be written, use the parse command instead", output)
	}
	if output == pegc.OutputSourceAndMap && p.out == "" {
		return fmt.Errorf("the %q output requires --out", output)
	}

	g, src, err := p.load(path)
	if err != nil {
		return err
	}
	deps, err := parseDependencies(p.dependencies)
	if err != nil {
		return err
	}
	opts := &pegc.Options{
		AllowedStartRules: p.allowedStartRules,
		Cache:             p.cache,
		Dependencies:      deps,
		ExportVar:         p.exportVar,
		Format:            pegc.Format(p.format),
		Output:            output,
		Trace:             p.trace,
		GrammarSource:     src,
		Diagnostics:       collectErrors(),
		Logger:            gp.logger,
		Config:            gp.config,
	}
	sources := p.sources(src)
	gp.logger.WithField("grammar", path).Info("compiling")
	artifact, err := pegc.Compile(g, nil, opts)
	if err != nil {
		return gp.reportError(err, sources)
	}
	gp.reportProblems(artifact.Problems, sources)

	switch output {
	case pegc.OutputAST:
		data, err := json.MarshalIndent(artifact.Grammar, "", "  ")
		if err != nil {
			return err
		}
		return p.write(gp.stdout, append(data, '\n'))
	case pegc.OutputSourceAndMap:
		mapFile := p.out + ".map"
		code, m := artifact.SourceAndMap(filepath.Base(p.out))
		data, err := m.JSON()
		if err != nil {
			return err
		}
		code += "\n//# sourceMappingURL=" + filepath.Base(mapFile) + "\n"
		if err := os.WriteFile(mapFile, []byte(data), defaultWritePermission); err != nil {
			return fmt.Errorf("can't write source map: %w", err)
		}
		return p.write(gp.stdout, []byte(code))
	default:
		return p.write(gp.stdout, []byte(artifact.Source))
	}
}

func (p *compileParams) write(stdout io.Writer, data []byte) error {
	if p.out == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(p.out, data, defaultWritePermission); err != nil {
		return fmt.Errorf("can't write output file: %w", err)
	}
	return nil
}

// parseDependencies reads `variable:module` pairs
func parseDependencies(items []string) (map[string]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	deps := make(map[string]string, len(items))
	for _, item := range items {
		name, module, ok := strings.Cut(item, ":")
		if !ok || name == "" || module == "" {
			return nil, fmt.Errorf("invalid dependency %q, expected variable:module", item)
		}
		deps[name] = module
	}
	return deps, nil
}
