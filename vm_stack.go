package pegc

import "fmt"

// failedValue marks a failed match on the value stack
type failedValue struct{}

func (failedValue) String() string { return "FAILED" }

// failed is shared by every parser, so results returned by library
// parsers can be compared against it.
var failed any = failedValue{}

// vmStack is the value stack of a single rule invocation
type vmStack struct {
	rule   string
	values []any
}

func (s *vmStack) push(v any) {
	s.values = append(s.values, v)
}

func (s *vmStack) pop() any {
	v := s.top()
	s.values = s.values[:len(s.values)-1]
	return v
}

// popN drops `n` values and returns them, bottom first
func (s *vmStack) popN(n int) []any {
	s.check(n - 1)
	i := len(s.values) - n
	out := append([]any(nil), s.values[i:]...)
	s.values = s.values[:i]
	return out
}

func (s *vmStack) top() any { return s.index(0) }

// index returns the value `i` positions below the top
func (s *vmStack) index(i int) any {
	s.check(i)
	return s.values[len(s.values)-1-i]
}

// setTop replaces the value on the top of the stack
func (s *vmStack) setTop(v any) {
	s.check(0)
	s.values[len(s.values)-1] = v
}

func (s *vmStack) len() int { return len(s.values) }

func (s *vmStack) check(i int) {
	if i >= len(s.values) {
		panic(vmAbort{fmt.Errorf("%w: rule %q: the value stack underflows: %d values, index %d",
			ErrMalformedBytecode, s.rule, len(s.values), i)})
	}
}
