package pegc

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// DiagnosticFunc receives every problem reported during compilation
type DiagnosticFunc func(stage, message string, location Location, notes []DiagnosticNote)

// Diagnostics are the callbacks a caller can use to observe the
// problems found while compiling a grammar.  All of them are
// optional.  Without an Error callback the first error aborts the
// compilation with a *GrammarError, with one, every error of the
// stage is collected before the compilation stops.
type Diagnostics struct {
	Error   DiagnosticFunc
	Warning DiagnosticFunc
	Info    DiagnosticFunc
}

// Session accumulates the problems of a single compilation.  Each
// problem is tagged with the stage that's currently running.
type Session struct {
	Stage    string
	Problems []*Problem

	errors      int
	diagnostics Diagnostics
	logger      logrus.FieldLogger
}

// NewSession creates a session that reports to `diagnostics` and
// mirrors every problem to `logger`, which may be nil.
func NewSession(diagnostics Diagnostics, logger logrus.FieldLogger) *Session {
	if logger == nil {
		logger = discardLogger()
	}
	return &Session{diagnostics: diagnostics, logger: logger}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Error reports an error.  Locations may be left empty for problems
// that aren't tied to a place within the grammar.
func (s *Session) Error(message string, location Location, notes ...DiagnosticNote) {
	s.errors++
	s.add(SeverityError, message, location, notes)
	if s.diagnostics.Error == nil {
		panic(bailout{&GrammarError{
			Message:  message,
			Location: location,
			Notes:    notes,
			Stage:    s.Stage,
			Problems: []*Problem{s.Problems[len(s.Problems)-1]},
		}})
	}
	s.diagnostics.Error(s.Stage, message, location, notes)
}

// Errorf is Error with a formatted message and no notes
func (s *Session) Errorf(location Location, format string, args ...any) {
	s.Error(fmt.Sprintf(format, args...), location)
}

// Warning reports a problem that doesn't stop the compilation
func (s *Session) Warning(message string, location Location, notes ...DiagnosticNote) {
	s.add(SeverityWarning, message, location, notes)
	if s.diagnostics.Warning != nil {
		s.diagnostics.Warning(s.Stage, message, location, notes)
	}
}

// Info reports something a pass did, like replacing a rule
func (s *Session) Info(message string, location Location, notes ...DiagnosticNote) {
	s.add(SeverityInfo, message, location, notes)
	if s.diagnostics.Info != nil {
		s.diagnostics.Info(s.Stage, message, location, notes)
	}
}

// Errors returns how many errors were reported so far
func (s *Session) Errors() int {
	return s.errors
}

// CheckErrors returns a *GrammarError when any error was reported so
// far, carrying all the problems of the session.
func (s *Session) CheckErrors() error {
	if s.errors == 0 {
		return nil
	}
	return &GrammarError{
		Message:  fmt.Sprintf("Stage %q contains %d error(s).", s.Stage, s.errors),
		Stage:    s.Stage,
		Problems: s.Problems,
	}
}

func (s *Session) add(severity Severity, message string, location Location, notes []DiagnosticNote) {
	s.Problems = append(s.Problems, &Problem{
		Severity: severity,
		Stage:    s.Stage,
		Message:  message,
		Location: location,
		Notes:    notes,
	})
	entry := s.logger.WithField("stage", s.Stage)
	if !location.IsZero() {
		entry = entry.WithField("location", location.String())
	}
	switch severity {
	case SeverityError:
		entry.Error(message)
	case SeverityWarning:
		entry.Warn(message)
	default:
		entry.Debug(message)
	}
}

// guard runs `f` and converts the abort raised by the default error
// callback into a returned error.  Any other panic goes through.
func (s *Session) guard(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			err = b.err
		}
	}()
	f()
	return nil
}
