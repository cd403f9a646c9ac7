package pegc

import (
	"fmt"
	"strconv"
	"strings"
)

// jsStack maps the value stack of the bytecode onto the local
// variables of a generated rule function.  Slot `i` is the variable
// `s<i>`, so the stack pointer is only known at generation time.
type jsStack struct {
	ruleName string
	sp       int
	maxSp    int
	bytecode []int

	// labels holds the label bound to a slot while source maps are
	// generated
	labels map[int]jsLabel
}

type jsLabel struct {
	label    string
	location Location
}

func newJSStack(ruleName string, bytecode []int) *jsStack {
	return &jsStack{
		ruleName: ruleName,
		sp:       -1,
		maxSp:    -1,
		bytecode: bytecode,
		labels:   make(map[int]jsLabel),
	}
}

func (s *jsStack) name(i int) string {
	if i < 0 {
		panic(fmt.Sprintf("Rule %q: the variable stack underflows: attempt to use variable at index %d", s.ruleName, i))
	}
	return "s" + strconv.Itoa(i)
}

// push returns the statement that stores `expr` into a new slot.
// Slots bound to a label map back to the label.
func (s *jsStack) push(expr string) any {
	s.sp++
	s.maxSp = max(s.maxSp, s.sp)
	target := s.name(s.sp)
	if l, ok := s.labels[s.sp]; ok {
		return NewSourceNode(sourceNodeAt(l.location, l.label, target), " = "+expr+";")
	}
	return target + " = " + expr + ";"
}

func (s *jsStack) pop() string {
	name := s.name(s.sp)
	s.sp--
	return name
}

// popN drops `n` slots and returns their names, bottom first
func (s *jsStack) popN(n int) []string {
	s.sp -= n
	out := make([]string, n)
	for i := range out {
		out[i] = s.name(s.sp + 1 + i)
	}
	return out
}

func (s *jsStack) top() string { return s.name(s.sp) }

// index returns the name of the slot `i` positions below the top
func (s *jsStack) index(i int) string { return s.name(s.sp - i) }

// result is the slot the rule returns
func (s *jsStack) result() string {
	if s.maxSp < 0 {
		panic(fmt.Sprintf("Rule %q: the variable stack is empty, can't get the result", s.ruleName))
	}
	return s.name(0)
}

// defines declares every slot used by the rule
func (s *jsStack) defines() string {
	if s.maxSp < 0 {
		return ""
	}
	names := make([]string, s.maxSp+1)
	for i := range names {
		names[i] = s.name(i)
	}
	return "var " + strings.Join(names, ", ") + ";"
}

// checkedIf generates both branches of a condition, which must leave
// the stack at the same height.
func (s *jsStack) checkedIf(pos int, then func(), els func()) {
	base := s.sp
	then()
	if els == nil {
		return
	}
	thenSp := s.sp
	s.sp = base
	els()
	if thenSp != s.sp {
		panic(fmt.Sprintf(
			"Rule %q, position %d: branches of a condition can't move the stack pointer differently (before: %d, after then: %d, after else: %d). Bytecode: %v",
			s.ruleName, pos, base, thenSp, s.sp, s.bytecode))
	}
}

// checkedLoop generates the body of a loop, which must not move the
// stack pointer.
func (s *jsStack) checkedLoop(pos int, body func()) {
	base := s.sp
	body()
	if base != s.sp {
		panic(fmt.Sprintf(
			"Rule %q, position %d: body of a loop can't move the stack pointer (before: %d, after: %d). Bytecode: %v",
			s.ruleName, pos, base, s.sp, s.bytecode))
	}
}
