package pegc

import "strings"

// ExpectationType tells what a failed match expected to find
type ExpectationType string

const (
	ExpectRule    ExpectationType = "rule"
	ExpectLiteral ExpectationType = "literal"
	ExpectClass   ExpectationType = "class"
	ExpectAny     ExpectationType = "any"
	ExpectOther   ExpectationType = "other"
	ExpectEnd     ExpectationType = "end"
)

// Expectation describes what a match that failed would have accepted.
// They're collected at the furthest failure position and used to
// build syntax error messages.
type Expectation struct {
	Type ExpectationType `json:"type"`
	// Value is the name of the rule or the text of the literal
	Value       string      `json:"value,omitempty"`
	Parts       []ClassPart `json:"parts,omitempty"`
	Inverted    bool        `json:"inverted,omitempty"`
	IgnoreCase  bool        `json:"ignoreCase,omitempty"`
	Description string      `json:"description,omitempty"`
}

// ClassConst is a character class of the constant pool
type ClassConst struct {
	Parts      []ClassPart `json:"parts"`
	Inverted   bool        `json:"inverted"`
	IgnoreCase bool        `json:"ignoreCase"`
}

// FunctionConst is a code fragment of the grammar, an action, a
// semantic predicate or a repetition boundary, along with the names of
// the labels it can see.
type FunctionConst struct {
	Predicate bool     `json:"predicate"`
	Params    []string `json:"params"`
	Body      string   `json:"body"`
	Location  Location `json:"location"`
}

// labelEnv maps labels to the stack slot their value is found at.
// Labels keep the order they were defined in, which is the order
// code fragments receive them as parameters.
type labelEnv struct {
	names []string
	slots map[string]int
}

func newLabelEnv() *labelEnv {
	return &labelEnv{slots: make(map[string]int)}
}

func (e *labelEnv) clone() *labelEnv {
	out := &labelEnv{names: append([]string(nil), e.names...), slots: make(map[string]int, len(e.slots))}
	for k, v := range e.slots {
		out.slots[k] = v
	}
	return out
}

func (e *labelEnv) set(label string, sp int) {
	if _, ok := e.slots[label]; !ok {
		e.names = append(e.names, label)
	}
	e.slots[label] = sp
}

type genContext struct {
	sp     int
	env    *labelEnv
	pluck  *[]int
	action *Action
}

type bytecodeGenerator struct {
	grammar       *Grammar
	sourceMap     bool
	literals      *Interner[string, string]
	classes       *Interner[*Class, *ClassConst]
	expectations  *Interner[*Expectation, *Expectation]
	importedNames *Interner[string, string]
	functions     *Interner[*FunctionConst, *FunctionConst]
	locations     []Location
	visitor       *Visitor[*genContext, []int]
}

// generateBytecode compiles every rule into bytecode and fills in the
// constant pools of the grammar.
func generateBytecode(g *Grammar, opts *Options, _ *Session) {
	b := newBytecodeGenerator(g, opts.Output == OutputSourceAndMap)
	for _, r := range g.Rules {
		r.Bytecode = b.gen(r.Expression, &genContext{sp: -1, env: newLabelEnv(), pluck: &[]int{}})
	}
	g.Literals = b.literals.Values()
	g.Classes = b.classes.Values()
	g.Expectations = b.expectations.Values()
	g.ImportedNames = b.importedNames.Values()
	g.Functions = b.functions.Values()
	g.Locations = b.locations
}

func identity[T any](v T) (T, bool) { return v, true }

func newBytecodeGenerator(g *Grammar, sourceMap bool) *bytecodeGenerator {
	b := &bytecodeGenerator{
		grammar:       g,
		sourceMap:     sourceMap,
		literals:      NewValueInterner[string](),
		importedNames: NewValueInterner[string](),
		classes: NewInterner(func(n *Class) (*ClassConst, bool) {
			return &ClassConst{Parts: n.Parts, Inverted: n.Inverted, IgnoreCase: n.IgnoreCase}, true
		}, jsonKey[*ClassConst]),
		expectations: NewInterner(identity[*Expectation], jsonKey[*Expectation]),
		functions:    NewInterner(identity[*FunctionConst], jsonKey[*FunctionConst]),
	}
	b.visitor = &Visitor[*genContext, []int]{
		Named:       b.named,
		Choice:      b.choice,
		Action:      b.action,
		Sequence:    b.sequence,
		Labeled:     b.labeled,
		Text:        b.text,
		SimpleAnd:   func(n *SimpleAnd, c *genContext) []int { return b.simplePredicate(n.Expression, false, c) },
		SimpleNot:   func(n *SimpleNot, c *genContext) []int { return b.simplePredicate(n.Expression, true, c) },
		Optional:    b.optional,
		ZeroOrMore:  b.zeroOrMore,
		OneOrMore:   b.oneOrMore,
		Repeated:    b.repeated,
		Group:       b.group,
		SemanticAnd: func(n *SemanticAnd, c *genContext) []int { return b.semanticPredicate(n.expr, n.Code, n.CodeLocation, false, c) },
		SemanticNot: func(n *SemanticNot, c *genContext) []int { return b.semanticPredicate(n.expr, n.Code, n.CodeLocation, true, c) },
		RuleRef:     b.ruleRef,
		LibraryRef:  b.libraryRef,
		Literal:     b.literal,
		Class:       b.class,
		Any:         b.any,
	}
	return b
}

// gen compiles an expression, wrapping it with source map markers
// when those were requested.
func (b *bytecodeGenerator) gen(e Expression, c *genContext) []int {
	code := b.visitor.Visit(e, c)
	if !b.sourceMap || e.Loc().IsZero() {
		return code
	}
	return concat([]int{int(OpSourceMapPush), b.addLocation(e.Loc())}, code, []int{int(OpSourceMapPop)})
}

func (b *bytecodeGenerator) addLocation(l Location) int {
	b.locations = append(b.locations, l)
	return len(b.locations) - 1
}

func (b *bytecodeGenerator) addFunctionConst(predicate bool, params []string, code string, loc Location) int {
	return b.functions.Add(&FunctionConst{
		Predicate: predicate,
		Params:    append([]string{}, params...),
		Body:      code,
		Location:  loc,
	})
}

func concat(parts ...[]int) []int {
	var out []int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func ops(codes ...Opcode) []int {
	out := make([]int, len(codes))
	for i, c := range codes {
		out[i] = int(c)
	}
	return out
}

// buildCondition emits `cond` followed by both blocks, unless the
// match result makes one of them unreachable, in which case only the
// reachable block is emitted.
func buildCondition(match MatchResult, cond, then, els []int) []int {
	switch match {
	case MatchAlways:
		return then
	case MatchNever:
		return els
	}
	return concat(cond, []int{len(then), len(els)}, then, els)
}

func buildLoop(cond, body []int) []int {
	return concat(cond, []int{len(body)}, body)
}

func buildCall(functionIndex, delta int, env *labelEnv, sp int) []int {
	out := []int{int(OpCall), functionIndex, delta, len(env.names)}
	for _, name := range env.names {
		out = append(out, sp-env.slots[name])
	}
	return out
}

func buildAppendLoop(expressionCode []int) []int {
	return buildLoop(ops(OpWhileNotError), concat(ops(OpAppend), expressionCode))
}

func (b *bytecodeGenerator) simplePredicate(e Expression, negative bool, c *genContext) []int {
	match := matchOf(e)
	cond, then, els := ops(OpIfNotError), ops(OpPop, OpPopCurrPos, OpPushUndefined), ops(OpPop, OpPop, OpPushFailed)
	if negative {
		match = match.Negate()
		cond, then, els = ops(OpIfError), ops(OpPop, OpPop, OpPushUndefined), ops(OpPop, OpPopCurrPos, OpPushFailed)
	}
	return concat(
		ops(OpPushCurrPos, OpSilentFailsOn),
		b.gen(e, &genContext{sp: c.sp + 1, env: c.env.clone()}),
		ops(OpSilentFailsOff),
		buildCondition(match, cond, then, els),
	)
}

func (b *bytecodeGenerator) semanticPredicate(e expr, code string, codeLoc Location, negative bool, c *genContext) []int {
	functionIndex := b.addFunctionConst(true, c.env.names, code, codeLoc)
	then, els := ops(OpPop, OpPushUndefined), ops(OpPop, OpPushFailed)
	if negative {
		then, els = els, then
	}
	return concat(
		ops(OpUpdateSavedPos),
		buildCall(functionIndex, 0, c.env, c.sp),
		buildCondition(e.Match, ops(OpIf), then, els),
	)
}

func (b *bytecodeGenerator) named(n *Named, c *genContext) []int {
	match := n.Match
	nameIndex := -1
	if match != MatchNever {
		nameIndex = b.expectations.Add(&Expectation{Type: ExpectRule, Value: n.Name})
	}
	return concat(
		ops(OpSilentFailsOn),
		b.gen(n.Expression, c),
		ops(OpSilentFailsOff),
		buildCondition(match.Negate(), ops(OpIfError), []int{int(OpFail), nameIndex}, nil),
	)
}

func (b *bytecodeGenerator) choice(n *Choice, c *genContext) []int {
	var build func(alts []Expression) []int
	build = func(alts []Expression) []int {
		first := b.gen(alts[0], &genContext{sp: c.sp, env: c.env.clone()})
		if matchOf(alts[0]) == MatchAlways || len(alts) == 1 {
			return first
		}
		return concat(first, buildCondition(MatchSometimes, ops(OpIfError), concat(ops(OpPop), build(alts[1:])), nil))
	}
	return build(n.Alternatives)
}

func (b *bytecodeGenerator) action(n *Action, c *genContext) []int {
	env := c.env.clone()
	seq, isSeq := n.Expression.(*Sequence)
	emitCall := !isSeq || len(seq.Elements) == 0
	sp := c.sp
	if emitCall {
		sp++
	}
	expressionCode := b.gen(n.Expression, &genContext{sp: sp, env: env, action: n})
	if !emitCall {
		return expressionCode
	}
	match := matchOf(n.Expression)
	functionIndex := -1
	if match != MatchNever {
		functionIndex = b.addFunctionConst(false, env.names, n.Code, n.CodeLocation)
	}
	return concat(
		ops(OpPushCurrPos),
		expressionCode,
		buildCondition(match, ops(OpIfNotError),
			concat([]int{int(OpLoadSavedPos), 1}, buildCall(functionIndex, 1, env, c.sp+2)),
			nil),
		ops(OpNip),
	)
}

func (b *bytecodeGenerator) sequence(n *Sequence, c *genContext) []int {
	pluck := &[]int{}
	var build func(elements []Expression, c *genContext) []int
	build = func(elements []Expression, c *genContext) []int {
		if len(elements) > 0 {
			processed := len(n.Elements) - len(elements) + 1
			failure := ops(OpPop)
			if processed > 1 {
				failure = []int{int(OpPopN), processed}
			}
			return concat(
				b.gen(elements[0], &genContext{sp: c.sp, env: c.env, pluck: pluck}),
				buildCondition(matchOf(elements[0]), ops(OpIfNotError),
					build(elements[1:], &genContext{sp: c.sp + 1, env: c.env, action: c.action}),
					concat(failure, ops(OpPopCurrPos, OpPushFailed)),
				),
			)
		}
		if len(*pluck) > 0 {
			out := []int{int(OpPluck), len(n.Elements) + 1, len(*pluck)}
			for _, esp := range *pluck {
				out = append(out, c.sp-esp)
			}
			return out
		}
		if c.action != nil {
			functionIndex := b.addFunctionConst(false, c.env.names, c.action.Code, c.action.CodeLocation)
			return concat(
				[]int{int(OpLoadSavedPos), len(n.Elements)},
				buildCall(functionIndex, len(n.Elements)+1, c.env, c.sp),
			)
		}
		return concat([]int{int(OpWrap), len(n.Elements)}, ops(OpNip))
	}
	return concat(ops(OpPushCurrPos), build(n.Elements, &genContext{sp: c.sp + 1, env: c.env, action: c.action}))
}

func (b *bytecodeGenerator) labeled(n *Labeled, c *genContext) []int {
	env := c.env
	sp := c.sp + 1
	if n.Label != "" {
		env = c.env.clone()
		c.env.set(n.Label, sp)
	}
	if n.Pick && c.pluck != nil {
		*c.pluck = append(*c.pluck, sp)
	}
	code := b.gen(n.Expression, &genContext{sp: c.sp, env: env})
	if n.Label != "" && !n.LabelLocation.IsZero() && b.sourceMap {
		return concat(
			[]int{int(OpSourceMapLabelPush), sp, b.literals.Add(n.Label), b.addLocation(n.LabelLocation)},
			code,
			[]int{int(OpSourceMapLabelPop), sp},
		)
	}
	return code
}

func (b *bytecodeGenerator) text(n *Text, c *genContext) []int {
	return concat(
		ops(OpPushCurrPos),
		b.gen(n.Expression, &genContext{sp: c.sp + 1, env: c.env.clone()}),
		buildCondition(n.Match, ops(OpIfNotError), ops(OpPop, OpText), ops(OpNip)),
	)
}

func (b *bytecodeGenerator) optional(n *Optional, c *genContext) []int {
	return concat(
		b.gen(n.Expression, &genContext{sp: c.sp, env: c.env.clone()}),
		buildCondition(matchOf(n.Expression).Negate(), ops(OpIfError), ops(OpPop, OpPushNull), nil),
	)
}

func (b *bytecodeGenerator) zeroOrMore(n *ZeroOrMore, c *genContext) []int {
	expressionCode := b.gen(n.Expression, &genContext{sp: c.sp + 1, env: c.env.clone()})
	return concat(ops(OpPushEmptyArray), expressionCode, buildAppendLoop(expressionCode), ops(OpPop))
}

func (b *bytecodeGenerator) oneOrMore(n *OneOrMore, c *genContext) []int {
	expressionCode := b.gen(n.Expression, &genContext{sp: c.sp + 1, env: c.env.clone()})
	return concat(
		ops(OpPushEmptyArray),
		expressionCode,
		buildCondition(matchOf(n.Expression), ops(OpIfNotError),
			concat(buildAppendLoop(expressionCode), ops(OpPop)),
			ops(OpPop, OpPop, OpPushFailed)),
	)
}

func (b *bytecodeGenerator) group(n *Group, c *genContext) []int {
	return b.gen(n.Expression, &genContext{sp: c.sp, env: c.env.clone()})
}

// rangeCall is the code that evaluates a dynamic boundary before a
// repetition runs and drops its value afterwards.
type rangeCall struct {
	pre, post []int
	sp        int
}

func (b *bytecodeGenerator) buildRangeCall(boundary *Boundary, env *labelEnv, sp, offset int) rangeCall {
	switch boundary.Type {
	case BoundaryVariable:
		boundary.sp = offset + sp - env.slots[boundary.Name]
		return rangeCall{sp: sp}
	case BoundaryFunction:
		boundary.sp = offset
		functionIndex := b.addFunctionConst(true, env.names, boundary.Code, boundary.CodeLocation)
		return rangeCall{pre: buildCall(functionIndex, 0, env, sp), post: ops(OpNip), sp: sp + 1}
	default:
		return rangeCall{sp: sp}
	}
}

func buildCheckMax(expressionCode []int, upper *Boundary) []int {
	if upper.IsUnbounded() {
		return expressionCode
	}
	check := []int{int(OpIfGe), upper.Value}
	if upper.Type != BoundaryConstant {
		check = []int{int(OpIfGeDynamic), upper.sp}
	}
	return buildCondition(MatchSometimes, check, ops(OpPushFailed), expressionCode)
}

func buildCheckMin(expressionCode []int, lower *Boundary) []int {
	check := []int{int(OpIfLt), lower.Value}
	if lower.Type != BoundaryConstant {
		check = []int{int(OpIfLtDynamic), lower.sp}
	}
	return concat(expressionCode, buildCondition(MatchSometimes, check, ops(OpPop, OpPopCurrPos, OpPushFailed), ops(OpNip)))
}

func (b *bytecodeGenerator) buildRangeBody(delimiter Expression, expressionMatch MatchResult, expressionCode []int, env *labelEnv, sp int) []int {
	if delimiter == nil {
		return expressionCode
	}
	return concat(
		ops(OpPushCurrPos),
		b.gen(delimiter, &genContext{sp: sp, env: env.clone()}),
		buildCondition(matchOf(delimiter), ops(OpIfNotError),
			concat(
				ops(OpPop),
				expressionCode,
				buildCondition(expressionMatch.Negate(), ops(OpIfError), ops(OpPop, OpPopCurrPos, OpPushFailed), ops(OpNip)),
			),
			ops(OpNip),
		),
	)
}

func (b *bytecodeGenerator) repeated(n *Repeated, c *genContext) []int {
	lower := n.minBoundary()
	hasMin := lower.Type != BoundaryConstant || lower.Value > 0
	offset := 1
	if hasMin {
		offset = 2
	}

	minCode := rangeCall{sp: c.sp}
	if n.Min != nil {
		minOffset := 2
		if n.Max.Type == BoundaryFunction {
			minOffset++
		}
		minCode = b.buildRangeCall(n.Min, c.env, c.sp, minOffset)
	}
	maxCode := b.buildRangeCall(n.Max, c.env, minCode.sp, offset)

	firstExpressionCode := b.gen(n.Expression, &genContext{sp: maxCode.sp + offset, env: c.env.clone()})
	expressionCode := firstExpressionCode
	if n.Delimiter != nil {
		expressionCode = b.gen(n.Expression, &genContext{sp: maxCode.sp + offset + 1, env: c.env.clone()})
	}
	bodyCode := b.buildRangeBody(n.Delimiter, matchOf(n.Expression), expressionCode, c.env, maxCode.sp+offset+1)
	checkMaxCode := buildCheckMax(bodyCode, n.Max)
	firstElemCode := buildCheckMax(firstExpressionCode, n.Max)

	var mainLoopCode []int
	if hasMin {
		mainLoopCode = ops(OpPushCurrPos)
	}
	mainLoopCode = concat(mainLoopCode, ops(OpPushEmptyArray), firstElemCode, buildAppendLoop(checkMaxCode), ops(OpPop))
	if hasMin {
		mainLoopCode = buildCheckMin(mainLoopCode, lower)
	}
	return concat(minCode.pre, maxCode.pre, mainLoopCode, maxCode.post, minCode.post)
}

func (b *bytecodeGenerator) ruleRef(n *RuleRef, _ *genContext) []int {
	return []int{int(OpRule), b.grammar.IndexOfRule(n.Name)}
}

func (b *bytecodeGenerator) libraryRef(n *LibraryRef, _ *genContext) []int {
	return []int{int(OpLibraryRule), n.LibraryNumber, b.importedNames.Add(n.Name)}
}

func (b *bytecodeGenerator) literal(n *Literal, _ *genContext) []int {
	if n.Value == "" {
		return ops(OpPushEmptyString)
	}
	match := n.Match
	stringIndex := -1
	if match == MatchSometimes || (match == MatchAlways && !n.IgnoreCase) {
		value := n.Value
		if n.IgnoreCase {
			value = strings.ToLower(value)
		}
		stringIndex = b.literals.Add(value)
	}
	expectedIndex := -1
	if match != MatchAlways {
		expectedIndex = b.expectations.Add(&Expectation{Type: ExpectLiteral, Value: n.Value, IgnoreCase: n.IgnoreCase})
	}
	if n.IgnoreCase {
		return buildCondition(match,
			[]int{int(OpMatchStringIC), stringIndex},
			[]int{int(OpAcceptN), jsLength(n.Value)},
			[]int{int(OpFail), expectedIndex})
	}
	return buildCondition(match,
		[]int{int(OpMatchString), stringIndex},
		[]int{int(OpAcceptString), stringIndex},
		[]int{int(OpFail), expectedIndex})
}

func (b *bytecodeGenerator) class(n *Class, _ *genContext) []int {
	match := n.Match
	classIndex := -1
	if match == MatchSometimes {
		classIndex = b.classes.Add(n)
	}
	expectedIndex := -1
	if match != MatchAlways {
		expectedIndex = b.expectations.Add(&Expectation{
			Type:       ExpectClass,
			Parts:      n.Parts,
			Inverted:   n.Inverted,
			IgnoreCase: n.IgnoreCase,
		})
	}
	return buildCondition(match,
		[]int{int(OpMatchCharClass), classIndex},
		[]int{int(OpAcceptN), 1},
		[]int{int(OpFail), expectedIndex})
}

func (b *bytecodeGenerator) any(n *Any, _ *genContext) []int {
	expectedIndex := -1
	if n.Match != MatchAlways {
		expectedIndex = b.expectations.Add(&Expectation{Type: ExpectAny})
	}
	return buildCondition(n.Match, ops(OpMatchAny), []int{int(OpAcceptN), 1}, []int{int(OpFail), expectedIndex})
}

// jsLength is the length of a string in UTF-16 code units, which is
// how the generated parsers measure input.
func jsLength(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}
