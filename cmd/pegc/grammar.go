package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/pegkit/pegc"
	"github.com/pegkit/pegc/ascii"
)

// grammarParams locate a grammar AST and, optionally, the text it was
// parsed from, used to show excerpts within diagnostics
type grammarParams struct {
	grammarSource string
	grammarText   string
}

func (p *grammarParams) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&p.grammarSource, "grammar-source", "", "name of the grammar within locations and source maps, defaults to the AST path")
	flags.StringVar(&p.grammarText, "grammar-text", "", "path to the grammar text, used to show excerpts within diagnostics")
}

// load reads the AST at `path` and stamps its locations with the
// grammar source
func (p *grammarParams) load(path string) (*pegc.Grammar, pegc.GrammarSource, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("can't read grammar: %w", err)
	}
	g, err := pegc.LoadGrammar(data)
	if err != nil {
		return nil, nil, err
	}
	name := p.grammarSource
	if name == "" {
		name = path
	}
	src := pegc.SourceName(name)
	g.SetSource(src)
	return g, src, nil
}

func (p *grammarParams) sources(src pegc.GrammarSource) []pegc.SourceText {
	if p.grammarText == "" {
		return nil
	}
	text, err := os.ReadFile(p.grammarText)
	if err != nil {
		return nil
	}
	return []pegc.SourceText{{Source: src.GrammarSourceName(), Text: string(text)}}
}

// collectErrors makes the compiler go through every pass of a stage
// before stopping, so all errors get reported at once
func collectErrors() pegc.Diagnostics {
	return pegc.Diagnostics{
		Error: func(string, string, pegc.Location, []pegc.DiagnosticNote) {},
	}
}

// reportError prints compilation errors.  Grammar errors are printed
// with all the problems of their stage and turned into errReported.
func (gp *globalParams) reportError(err error, sources []pegc.SourceText) error {
	var gerr *pegc.GrammarError
	if !errors.As(err, &gerr) {
		return err
	}
	fmt.Fprintln(gp.stderr, colorize(gerr.Format(sources...), gp.themeFor(gp.stderr)))
	return errReported
}

// reportProblems prints the warnings and infos of a successful
// compilation
func (gp *globalParams) reportProblems(problems []*pegc.Problem, sources []pegc.SourceText) {
	var shown []*pegc.Problem
	for _, p := range problems {
		if p.Severity == pegc.SeverityWarning {
			shown = append(shown, p)
		}
	}
	if len(shown) == 0 {
		return
	}
	ge := &pegc.GrammarError{Problems: shown}
	fmt.Fprintln(gp.stderr, colorize(ge.Format(sources...), gp.themeFor(gp.stderr)))
}

// colorize paints the severity that starts each diagnostic line
func colorize(text string, theme ascii.Theme) string {
	prefixes := []struct{ label, color string }{
		{"error:", theme.Error},
		{"warning:", theme.Warning},
		{"info:", theme.Info},
		{"note:", theme.Accent},
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, p := range prefixes {
			if strings.HasPrefix(line, p.label) {
				lines[i] = ascii.Paint(p.color, p.label) + line[len(p.label):]
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}
