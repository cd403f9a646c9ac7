package pegc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession(t *testing.T) {
	t.Run("errors abort without an error callback", func(t *testing.T) {
		s := NewSession(Diagnostics{}, nil)
		s.Stage = StageCheck
		err := s.guard(func() {
			s.Error("first", at(1, 1, 3))
			s.Error("second", at(2, 1, 3))
		})

		var ge *GrammarError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, "first", ge.Message)
		assert.Equal(t, StageCheck, ge.Stage)
		assert.Equal(t, at(1, 1, 3), ge.Location)
		assert.Equal(t, 1, s.Errors())
	})

	t.Run("errors are collected with an error callback", func(t *testing.T) {
		var stages []string
		s := NewSession(Diagnostics{
			Error: func(stage, _ string, _ Location, _ []DiagnosticNote) { stages = append(stages, stage) },
		}, nil)
		s.Stage = StageTransform
		err := s.guard(func() {
			s.Error("first", Location{})
			s.Errorf(Location{}, "second %d", 2)
		})
		require.NoError(t, err)
		assert.Equal(t, 2, s.Errors())
		assert.Equal(t, []string{StageTransform, StageTransform}, stages)

		err = s.CheckErrors()
		var ge *GrammarError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, `Stage "transform" contains 2 error(s).`, ge.Message)
		assert.Equal(t, []string{"first", "second 2"}, messages(ge.Problems, SeverityError))
	})

	t.Run("warnings and infos never abort", func(t *testing.T) {
		var warnings, infos []string
		s := NewSession(Diagnostics{
			Warning: func(_, msg string, _ Location, _ []DiagnosticNote) { warnings = append(warnings, msg) },
			Info:    func(_, msg string, _ Location, _ []DiagnosticNote) { infos = append(infos, msg) },
		}, nil)
		err := s.guard(func() {
			s.Warning("careful", Location{})
			s.Info("done", Location{}, DiagnosticNote{Message: "note"})
		})
		require.NoError(t, err)
		require.NoError(t, s.CheckErrors())
		assert.Equal(t, []string{"careful"}, warnings)
		assert.Equal(t, []string{"done"}, infos)
		require.Len(t, s.Problems, 2)
		assert.Equal(t, SeverityInfo, s.Problems[1].Severity)
		assert.Equal(t, "note", s.Problems[1].Notes[0].Message)
	})

	t.Run("other panics go through the guard", func(t *testing.T) {
		s := NewSession(Diagnostics{}, nil)
		assert.PanicsWithValue(t, "boom", func() {
			_ = s.guard(func() { panic("boom") })
		})
	})
}

func TestGrammarErrorFormat(t *testing.T) {
	t.Run("excerpts are rendered for known sources", func(t *testing.T) {
		e := &GrammarError{
			Message:  `Rule "b" is not defined`,
			Location: at(1, 9, 1),
		}
		out := e.Format(SourceText{Source: "test.peggy", Text: "start = b\n"})
		assert.Equal(t, "error: Rule \"b\" is not defined\n"+
			" --> test.peggy:1:9\n"+
			"  |\n"+
			"1 | start = b\n"+
			"  |         ^", out)
	})

	t.Run("notes follow the problem", func(t *testing.T) {
		e := &GrammarError{
			Message:  `Rule "a" is already defined`,
			Location: at(2, 1, 1),
			Notes:    []DiagnosticNote{{Message: "Original rule location", Location: at(1, 1, 1)}},
		}
		out := e.Format()
		assert.Equal(t, "error: Rule \"a\" is already defined\n"+
			"--> test.peggy:2:1\n"+
			"note: Original rule location\n"+
			"--> test.peggy:1:1", out)
	})

	t.Run("problems without a location only show the message", func(t *testing.T) {
		e := &GrammarError{Problems: []*Problem{
			{Severity: SeverityWarning, Message: "careful"},
			{Severity: SeverityError, Message: "broken"},
		}}
		assert.Equal(t, "warning: careful\nerror: broken", e.Format())
		assert.Len(t, e.Errors(), 1)
	})
}
