package pegc

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNoRules is returned when a grammar without rules is compiled
	ErrNoRules = errors.New("grammar has no rules")

	// ErrEmptyStartRules is returned when `allowedStartRules` is
	// set to an empty list
	ErrEmptyStartRules = errors.New("allowedStartRules must be non-empty")

	// ErrUnknownStartRule is returned when `allowedStartRules`
	// lists a rule that isn't defined
	ErrUnknownStartRule = errors.New("unknown start rule")

	// ErrInvalidOutput is returned for unknown output modes
	ErrInvalidOutput = errors.New("invalid output")

	// ErrInvalidFormat is returned for unknown module formats and
	// for format specific options used with the wrong format
	ErrInvalidFormat = errors.New("invalid format")

	// ErrGrammarSourceRequired is returned when an output that
	// produces a source map is requested without a grammar source
	ErrGrammarSourceRequired = errors.New("grammarSource is required")

	// ErrCapability is returned when the host can't provide what
	// an output mode requires
	ErrCapability = errors.New("missing capability")

	// ErrUnknownStage and ErrUnknownPass are returned by the pass
	// registry for names it doesn't know
	ErrUnknownStage = errors.New("unknown stage")
	ErrUnknownPass  = errors.New("unknown pass")

	// ErrMaxSteps is returned by parsers that ran more instructions
	// than `vm.max_steps` allows for a single input
	ErrMaxSteps = errors.New("maximum number of steps exceeded")

	// ErrUnknownLibrary is returned when a grammar imports a library
	// that wasn't provided to the compilation
	ErrUnknownLibrary = errors.New("unknown library")

	// ErrMalformedBytecode is returned by parsers whose bytecode
	// doesn't keep the value stack balanced
	ErrMalformedBytecode = errors.New("malformed bytecode")

	// ErrInvalidAST is returned by LoadGrammar for documents that
	// don't describe a grammar
	ErrInvalidAST = errors.New("invalid grammar AST")
)

// ConfigError is returned when the options of a compilation are
// invalid.  They're always detected before any pass runs.
type ConfigError struct {
	// Option is the name of the offending option
	Option  string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Option, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configError(option string, err error, format string, args ...any) *ConfigError {
	return &ConfigError{Option: option, Message: fmt.Sprintf(format, args...), Err: err}
}

// Severity is the level of a problem reported during compilation
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// DiagnosticNote is a secondary annotation of a problem, usually
// pointing at a related location, like the original definition of a
// duplicated rule.
type DiagnosticNote struct {
	Message  string
	Location Location
}

// Problem is an entry of the session log
type Problem struct {
	Severity Severity
	Stage    string
	Message  string
	Location Location
	Notes    []DiagnosticNote
}

func (p *Problem) String() string {
	if p.Location.IsZero() {
		return fmt.Sprintf("%s: %s", p.Severity, p.Message)
	}
	return fmt.Sprintf("%s: %s: %s", p.Location, p.Severity, p.Message)
}

// GrammarError is raised for semantic problems found within a
// grammar.  When the error comes from the end of a stage, Problems
// carries every problem reported by that stage, warnings included.
type GrammarError struct {
	Message  string
	Location Location
	Notes    []DiagnosticNote
	Stage    string
	Problems []*Problem
}

func (e *GrammarError) Error() string {
	if e.Location.IsZero() {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// Errors returns the error level problems
func (e *GrammarError) Errors() []*Problem {
	var out []*Problem
	for _, p := range e.Problems {
		if p.Severity == SeverityError {
			out = append(out, p)
		}
	}
	return out
}

// SourceText pairs a grammar source name with its text so excerpts
// can be rendered by GrammarError.Format
type SourceText struct {
	Source string
	Text   string
}

// Format renders the error in the style of compiler diagnostics:
//
//	error: Rule "b" is not defined
//	 --> grammar.peggy:1:7
//	  |
//	1 | start = b
//	  |         ^
//
// Problems of the whole stage are rendered when available.  Excerpts
// are only displayed for locations whose source is within `sources`.
func (e *GrammarError) Format(sources ...SourceText) string {
	problems := e.Problems
	if len(problems) == 0 {
		problems = []*Problem{{
			Severity: SeverityError,
			Stage:    e.Stage,
			Message:  e.Message,
			Location: e.Location,
			Notes:    e.Notes,
		}}
	}
	f := &excerptFormatter{sources: sources}
	for _, p := range problems {
		f.width = 0
		f.measure(p.Location)
		for _, n := range p.Notes {
			f.measure(n.Location)
		}
		f.entry(p.Severity.String(), p.Message, p.Location)
		for _, n := range p.Notes {
			f.entry("note", n.Message, n.Location)
		}
	}
	return strings.TrimRight(f.out.String(), "\n")
}

type excerptFormatter struct {
	sources []SourceText
	out     strings.Builder
	width   int
}

func (f *excerptFormatter) text(l Location) (string, bool) {
	name := sourceName(l.Source)
	for _, s := range f.sources {
		if s.Source == name {
			return s.Text, true
		}
	}
	return "", false
}

func (f *excerptFormatter) measure(l Location) {
	if _, ok := f.text(l); ok {
		f.width = max(f.width, len(fmt.Sprint(l.Start.Line)))
	}
}

func (f *excerptFormatter) entry(label, message string, l Location) {
	fmt.Fprintf(&f.out, "%s: %s\n", label, message)
	if l.IsZero() {
		return
	}
	pad := strings.Repeat(" ", f.width)
	fmt.Fprintf(&f.out, "%s--> %s\n", pad, l)
	text, ok := f.text(l)
	if !ok {
		return
	}
	lines := strings.Split(text, "\n")
	if l.Start.Line < 1 || l.Start.Line > len(lines) {
		return
	}
	line := strings.TrimRight(lines[l.Start.Line-1], "\r")
	carets := 1
	if l.End.Line == l.Start.Line && l.End.Column > l.Start.Column {
		carets = l.End.Column - l.Start.Column
	} else if l.End.Line > l.Start.Line {
		carets = max(1, utf8.RuneCountInString(line)-l.Start.Column+1)
	}
	fmt.Fprintf(&f.out, "%s |\n", pad)
	fmt.Fprintf(&f.out, "%*d | %s\n", f.width, l.Start.Line, line)
	fmt.Fprintf(&f.out, "%s | %s%s\n", pad,
		strings.Repeat(" ", max(0, l.Start.Column-1)),
		strings.Repeat("^", carets))
}

// bailout carries the error raised by the default error callback of
// a session up to the function running the pipeline.
type bailout struct{ err *GrammarError }
