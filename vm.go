package pegc

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/sirupsen/logrus"
)

// FunctionHost runs the code fragments of a grammar (actions,
// semantic predicates and repetition boundaries) for parsers created
// with the `parser` output.  `args` holds the values of the labels
// listed in fn.Params, in the same order.
type FunctionHost interface {
	Call(fn *FunctionConst, ctx *CallContext, args []any) (any, error)
}

// HostFuncs is a FunctionHost backed by Go functions, keyed by the
// code of the fragment they implement with surrounding whitespace
// trimmed.
type HostFuncs map[string]func(ctx *CallContext, args []any) (any, error)

func (h HostFuncs) Call(fn *FunctionConst, ctx *CallContext, args []any) (any, error) {
	f, ok := h[strings.TrimSpace(fn.Body)]
	if !ok {
		return nil, fmt.Errorf("no host function for the code at %s: %q", fn.Location, strings.TrimSpace(fn.Body))
	}
	return f(ctx, args)
}

// CallContext is what code fragments can ask the parser about, it
// mirrors the helpers available to actions of the generated parsers.
type CallContext struct {
	m *vm
}

// Text returns the input matched by the expression the fragment is
// attached to
func (c *CallContext) Text() string { return c.m.input.substring(c.m.savedPos, c.m.currPos) }

// Offset returns where the matched input starts
func (c *CallContext) Offset() int { return c.m.savedPos }

// Range returns where the matched input starts and ends
func (c *CallContext) Range() (int, int) { return c.m.savedPos, c.m.currPos }

// Location returns the location of the matched input
func (c *CallContext) Location() Location { return c.m.location(c.m.savedPos, c.m.currPos) }

// Expected creates the error a fragment returns to fail the parse
// with an expectation of its own
func (c *CallContext) Expected(description string) error {
	text := c.Text()
	expected := []*Expectation{{Type: ExpectOther, Description: description}}
	return &SyntaxError{
		Message:  buildSyntaxMessage(expected, &text),
		Expected: expected,
		Found:    &text,
		Location: c.Location(),
	}
}

// Error creates the error a fragment returns to fail the parse with
// a message of its own
func (c *CallContext) Error(message string) error {
	return &SyntaxError{Message: message, Location: c.Location()}
}

// TraceEvent is reported when a rule is entered and when it matches or
// fails, if tracing is enabled.
type TraceEvent struct {
	// Type is one of `rule.enter`, `rule.match` and `rule.fail`
	Type     string
	Rule     string
	Result   any
	Location Location
}

type Tracer interface {
	Trace(TraceEvent)
}

// logTracer writes the events to a logger, indented by rule depth
type logTracer struct {
	logger logrus.FieldLogger
	depth  int
}

func (t *logTracer) Trace(e TraceEvent) {
	if e.Type != "rule.enter" {
		t.depth--
	}
	t.logger.Debugf("%s-%s %-10s %s%s", e.Location.Start, e.Location.End, e.Type, strings.Repeat("  ", max(t.depth, 0)), e.Rule)
	if e.Type == "rule.enter" {
		t.depth++
	}
}

// Parser runs the bytecode of a compiled grammar in process
type Parser struct {
	grammar    *Grammar
	startRules []string
	host       FunctionHost
	libraries  []*Parser
	cache      bool
	trace      bool
	maxSteps   int
	logger     logrus.FieldLogger
}

func newParser(g *Grammar, opts *Options) (*Parser, error) {
	p := &Parser{
		grammar:    g,
		startRules: slices.Clone(opts.AllowedStartRules),
		host:       opts.Host,
		cache:      opts.Cache,
		trace:      opts.Trace,
		maxSteps:   opts.Config.GetInt("vm.max_steps"),
		logger:     opts.Logger,
	}
	for _, imp := range g.Imports {
		lib, ok := opts.Libraries[imp.From.Module]
		if !ok {
			return nil, configError("libraries", ErrUnknownLibrary, "no parser for %q", imp.From.Module)
		}
		p.libraries = append(p.libraries, lib)
	}
	return p, nil
}

// StartRules returns the rules parsing can start from
func (p *Parser) StartRules() []string { return slices.Clone(p.startRules) }

// Grammar returns the compiled grammar the parser runs
func (p *Parser) Grammar() *Grammar { return p.grammar }

type parseConfig struct {
	startRule string
	tracer    Tracer
	source    GrammarSource
}

type ParseOption func(*parseConfig)

// WithStartRule selects the rule parsing starts from, it must be one
// of the allowed start rules
func WithStartRule(name string) ParseOption {
	return func(c *parseConfig) { c.startRule = name }
}

// WithTracer receives the rule events of a parser compiled with
// tracing enabled
func WithTracer(t Tracer) ParseOption {
	return func(c *parseConfig) { c.tracer = t }
}

// WithGrammarSource sets the source of the locations reported while
// parsing
func WithGrammarSource(src GrammarSource) ParseOption {
	return func(c *parseConfig) { c.source = src }
}

// vmAbort carries errors raised while running bytecode up to Parse
type vmAbort struct{ err error }

type cacheKey struct{ pos, rule int }

type cacheEntry struct {
	nextPos int
	result  any
}

// vm is the state of a single parse
type vm struct {
	p      *Parser
	input  *vmInput
	source GrammarSource
	tracer Tracer

	currPos         int
	savedPos        int
	maxFailPos      int
	maxFailExpected []*Expectation
	silentFails     int

	cache map[cacheKey]cacheEntry
	steps int

	// rule being run, for errors raised by the runtime
	rule string
}

// Parse runs the parser against `input` and returns the value built
// by the start rule.  Input that isn't accepted is reported with a
// *SyntaxError.
func (p *Parser) Parse(input string, opts ...ParseOption) (result any, err error) {
	cfg := &parseConfig{}
	for _, o := range opts {
		o(cfg)
	}
	start, err := p.startRule(cfg.startRule)
	if err != nil {
		return nil, err
	}
	m := &vm{p: p, input: newVMInput(input), source: cfg.source}
	if p.cache {
		m.cache = make(map[cacheKey]cacheEntry)
	}
	if p.trace {
		m.tracer = cfg.tracer
		if m.tracer == nil {
			m.tracer = &logTracer{logger: p.logger}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			switch r := r.(type) {
			case vmAbort:
				result, err = nil, r.err
			case runtime.Error:
				result, err = nil, fmt.Errorf("%w: rule %q: %v", ErrMalformedBytecode, m.rule, r)
			default:
				panic(r)
			}
		}
	}()

	r := m.callRule(start)
	if r != failed && m.currPos == m.input.len() {
		return r, nil
	}
	if r != failed && m.currPos < m.input.len() {
		m.fail(&Expectation{Type: ExpectEnd})
	}
	return nil, m.structuredError()
}

func (p *Parser) startRule(name string) (int, error) {
	if name == "" {
		name = p.startRules[0]
	}
	if !slices.Contains(p.startRules, name) {
		return -1, fmt.Errorf("Can't start parsing from rule %q.", name)
	}
	return p.grammar.IndexOfRule(name), nil
}

func (m *vm) abort(err error) {
	panic(vmAbort{err})
}

func (m *vm) location(start, end int) Location {
	return Location{Source: m.source, Start: m.input.position(start), End: m.input.position(end)}
}

func (m *vm) fail(e *Expectation) {
	if m.currPos < m.maxFailPos {
		return
	}
	if m.currPos > m.maxFailPos {
		m.maxFailPos = m.currPos
		m.maxFailExpected = nil
	}
	m.maxFailExpected = append(m.maxFailExpected, e)
}

func (m *vm) structuredError() *SyntaxError {
	var found *string
	end := m.maxFailPos
	if m.maxFailPos < m.input.len() {
		s := m.input.substring(m.maxFailPos, m.maxFailPos+1)
		found = &s
		end++
	}
	return &SyntaxError{
		Message:  buildSyntaxMessage(m.maxFailExpected, found),
		Expected: m.maxFailExpected,
		Found:    found,
		Location: m.location(m.maxFailPos, end),
	}
}

func (m *vm) trace(event, rule string, result any, start, end int) {
	if m.tracer == nil {
		return
	}
	m.tracer.Trace(TraceEvent{Type: event, Rule: rule, Result: result, Location: m.location(start, end)})
}

func (m *vm) traceResult(rule string, result any, start int) {
	if result != failed {
		m.trace("rule.match", rule, result, start, m.currPos)
	} else {
		m.trace("rule.fail", rule, nil, start, start)
	}
}

func (m *vm) callRule(index int) any {
	r := m.p.grammar.Rules[index]
	start := m.currPos
	m.trace("rule.enter", r.Name, nil, start, start)

	key := cacheKey{pos: start, rule: index}
	if m.cache != nil {
		if e, ok := m.cache[key]; ok {
			m.currPos = e.nextPos
			m.traceResult(r.Name, e.result, start)
			return e.result
		}
	}

	caller := m.rule
	m.rule = r.Name
	st := &vmStack{rule: r.Name}
	m.run(r.Bytecode, st)
	if st.len() != 1 {
		m.abort(fmt.Errorf("%w: rule %q left %d values on the stack", ErrMalformedBytecode, r.Name, st.len()))
	}
	result := st.values[0]
	m.rule = caller

	if m.cache != nil {
		m.cache[key] = cacheEntry{nextPos: m.currPos, result: result}
	}
	m.traceResult(r.Name, result, start)
	return result
}

// callLibrary runs a rule of an imported grammar against the same
// input, sharing the position and the failure state
func (m *vm) callLibrary(libraryNumber int, name string) any {
	lib := m.p.libraries[libraryNumber]
	start, err := lib.startRule(name)
	if err != nil {
		m.abort(err)
	}
	sub := &vm{
		p:               lib,
		input:           m.input,
		source:          m.source,
		tracer:          m.tracer,
		currPos:         m.currPos,
		savedPos:        m.currPos,
		maxFailPos:      m.maxFailPos,
		maxFailExpected: m.maxFailExpected,
		silentFails:     m.silentFails,
		steps:           m.steps,
	}
	if lib.cache {
		sub.cache = make(map[cacheKey]cacheEntry)
	}
	result := sub.callRule(start)
	m.currPos = sub.currPos
	m.maxFailPos = sub.maxFailPos
	m.maxFailExpected = sub.maxFailExpected
	m.steps = sub.steps
	return result
}

func (m *vm) callFunction(bc []int, ip int, st *vmStack) any {
	fn := m.p.grammar.Functions[bc[ip+1]]
	args := make([]any, bc[ip+3])
	for i := range args {
		args[i] = st.index(bc[ip+4+i])
	}
	if m.p.host == nil {
		m.abort(fmt.Errorf("%w: no host to run the code at %s", ErrCapability, fn.Location))
	}
	v, err := m.p.host.Call(fn, &CallContext{m: m}, args)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			m.abort(se)
		}
		m.abort(fmt.Errorf("code at %s: %w", fn.Location, err))
	}
	return v
}

// run executes a block of bytecode.  Conditions and loops run their
// blocks recursively.
func (m *vm) run(bc []int, st *vmStack) {
	g := m.p.grammar
	ip := 0
	condition := func(cond bool, argCount int) {
		base := argCount + 3
		thenLen, elseLen := bc[ip+base-2], bc[ip+base-1]
		thenStart := ip + base
		if cond {
			m.run(bc[thenStart:thenStart+thenLen], st)
		} else if elseLen > 0 {
			m.run(bc[thenStart+thenLen:thenStart+thenLen+elseLen], st)
		}
		ip += base + thenLen + elseLen
	}

	for ip < len(bc) {
		m.steps++
		if limit := m.p.maxSteps; limit > 0 && m.steps > limit {
			m.abort(fmt.Errorf("%w: %d", ErrMaxSteps, limit))
		}
		switch op := Opcode(bc[ip]); op {
		case OpPushEmptyString:
			st.push("")
			ip++
		case OpPushCurrPos:
			st.push(m.currPos)
			ip++
		case OpPushUndefined, OpPushNull:
			st.push(nil)
			ip++
		case OpPushFailed:
			st.push(failed)
			ip++
		case OpPushEmptyArray:
			st.push([]any{})
			ip++
		case OpPop:
			st.pop()
			ip++
		case OpPopCurrPos:
			m.currPos = st.pop().(int)
			ip++
		case OpPopN:
			st.popN(bc[ip+1])
			ip += 2
		case OpNip:
			v := st.pop()
			st.pop()
			st.push(v)
			ip++
		case OpAppend:
			v := st.pop()
			st.setTop(append(st.top().([]any), v))
			ip++
		case OpWrap:
			st.push(st.popN(bc[ip+1]))
			ip += 2
		case OpText:
			st.push(m.input.substring(st.pop().(int), m.currPos))
			ip++
		case OpPluck:
			n := bc[ip+2]
			picked := make([]any, n)
			for i := range picked {
				picked[i] = st.index(bc[ip+3+i])
			}
			st.popN(bc[ip+1])
			if n == 1 {
				st.push(picked[0])
			} else {
				st.push(picked)
			}
			ip += 3 + n
		case OpIf:
			condition(truthy(st.top()), 0)
		case OpIfError:
			condition(st.top() == failed, 0)
		case OpIfNotError:
			condition(st.top() != failed, 0)
		case OpIfLt:
			condition(len(st.top().([]any)) < bc[ip+1], 1)
		case OpIfGe:
			condition(len(st.top().([]any)) >= bc[ip+1], 1)
		case OpIfLtDynamic:
			condition(len(st.top().([]any)) < toInt32(st.index(bc[ip+1])), 1)
		case OpIfGeDynamic:
			condition(len(st.top().([]any)) >= toInt32(st.index(bc[ip+1])), 1)
		case OpWhileNotError:
			body := bc[ip+2 : ip+2+bc[ip+1]]
			for st.top() != failed {
				m.run(body, st)
			}
			ip += 2 + len(body)
		case OpMatchAny:
			condition(m.currPos < m.input.len(), 0)
		case OpMatchString:
			lit := utf16.Encode([]rune(g.Literals[bc[ip+1]]))
			condition(m.input.hasPrefix(m.currPos, lit), 1)
		case OpMatchStringIC:
			lit := g.Literals[bc[ip+1]]
			condition(m.input.matchesFold(m.currPos, lit, jsLength(lit)), 1)
		case OpMatchCharClass:
			condition(m.input.matchesClass(m.currPos, g.Classes[bc[ip+1]]), 1)
		case OpAcceptN:
			n := bc[ip+1]
			st.push(m.input.substring(m.currPos, m.currPos+n))
			m.currPos += n
			ip += 2
		case OpAcceptString:
			lit := g.Literals[bc[ip+1]]
			st.push(lit)
			m.currPos += jsLength(lit)
			ip += 2
		case OpFail:
			st.push(failed)
			if m.silentFails == 0 {
				m.fail(g.Expectations[bc[ip+1]])
			}
			ip += 2
		case OpLoadSavedPos:
			m.savedPos = st.index(bc[ip+1]).(int)
			ip += 2
		case OpUpdateSavedPos:
			m.savedPos = m.currPos
			ip++
		case OpCall:
			v := m.callFunction(bc, ip, st)
			st.popN(bc[ip+2])
			st.push(v)
			ip += 4 + bc[ip+3]
		case OpRule:
			st.push(m.callRule(bc[ip+1]))
			ip += 2
		case OpLibraryRule:
			name := ""
			if n := bc[ip+2]; n >= 0 {
				name = g.ImportedNames[n]
			}
			st.push(m.callLibrary(bc[ip+1], name))
			ip += 3
		case OpSilentFailsOn:
			m.silentFails++
			ip++
		case OpSilentFailsOff:
			m.silentFails--
			ip++
		case OpSourceMapPush, OpSourceMapLabelPop:
			ip += 2
		case OpSourceMapPop:
			ip++
		case OpSourceMapLabelPush:
			ip += 4
		default:
			panic(fmt.Sprintf("Invalid opcode: %d", op))
		}
	}
}

// truthy follows the javascript rules, which is what predicates
// written for the generated parsers expect
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	default:
		return true
	}
}

// toInt32 converts a boundary returned by a code fragment the way
// `value|0` does
func toInt32(v any) int {
	switch x := v.(type) {
	case int:
		return int(int32(x))
	case int64:
		return int(int32(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return int(int32(int64(x)))
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}
