package pegc

import (
	_ "embed"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf16"
)

//go:embed generate_js_runtime.js.tmpl
var jsRuntime string

var jsRuntimeTemplate = template.Must(template.New("runtime").Parse(jsRuntime))

// jsRuntimeOptions are the knobs of the runtime template
type jsRuntimeOptions struct {
	Trace   bool
	Cache   bool
	Imports bool
}

type jsGenerator struct {
	grammar *Grammar
	options *Options
	session *Session
	unit    string
}

// generateJS turns the bytecode of every rule into javascript and
// wraps it into the requested module format.  The result is stored
// as a source node tree in the grammar.
func generateJS(g *Grammar, opts *Options, s *Session) {
	j := &jsGenerator{
		grammar: g,
		options: opts,
		session: s,
		unit:    opts.Config.GetString("generate.js.indent"),
	}
	g.Code = j.wrap(j.toplevel())
}

func (j *jsGenerator) runtime(name string) string {
	var sb strings.Builder
	data := jsRuntimeOptions{
		Trace:   j.options.Trace,
		Cache:   j.options.Cache,
		Imports: len(j.grammar.Imports) > 0,
	}
	if err := jsRuntimeTemplate.ExecuteTemplate(&sb, name, data); err != nil {
		j.session.Errorf(Location{}, "Can't render the %s runtime: %s", name, err)
	}
	return sb.String()
}

func ruleFunctionName(name string) string { return "peg$parse" + name }

// toplevel generates everything but the module wrapper
func (j *jsGenerator) toplevel() *SourceNode {
	g := j.grammar
	out := NewSourceNode()
	for _, block := range g.TopLevelInitializer {
		out.Add(wrapCode("", block.Code, block.CodeLocation, "\n", ""), "\n")
	}
	out.Add(j.runtime("runtime"), "\n")
	out.Add("function peg$parse(input, options) {\n")
	out.Add(indentNode(j.parseBody(), j.unit))
	out.Add("}\n\n")

	quoted := make([]string, len(j.options.AllowedStartRules))
	for i, name := range j.options.AllowedStartRules {
		quoted[i] = jsString(name)
	}
	out.Add("var peg$allowedStartRules = [" + strings.Join(quoted, ", ") + "];\n")
	return out
}

// parseBody generates the body of peg$parse
func (j *jsGenerator) parseBody() *SourceNode {
	g := j.grammar
	out := NewSourceNode(
		"options = options !== undefined ? options : {};\n\n",
		"var peg$FAILED = {};\n",
		"var peg$source = options.grammarSource;\n\n",
	)

	starts := make([]string, len(j.options.AllowedStartRules))
	for i, name := range j.options.AllowedStartRules {
		starts[i] = jsString(name) + ": " + ruleFunctionName(name)
	}
	out.Add(
		"var peg$startRuleFunctions = { "+strings.Join(starts, ", ")+" };\n",
		"var peg$startRuleFunction = "+ruleFunctionName(j.options.AllowedStartRules[0])+";\n\n",
	)

	for i, lit := range g.Literals {
		out.Add(fmt.Sprintf("var peg$c%d = %s;\n", i, jsString(lit)))
	}
	for i, cls := range g.Classes {
		out.Add(fmt.Sprintf("var peg$r%d = %s;\n", i, jsClassRegexp(cls)))
	}
	for i, e := range g.Expectations {
		out.Add(fmt.Sprintf("var peg$e%d = %s;\n", i, jsExpectation(e)))
	}
	for i, f := range g.Functions {
		prefix := fmt.Sprintf("var peg$f%d = function(%s) {", i, strings.Join(f.Params, ", "))
		out.Add(wrapCode(prefix, f.Body, f.Location, "};", ""), "\n")
	}
	out.Add("\n", j.runtime("state"), "\n", j.runtime("helpers"), "\n")

	for i, r := range g.Rules {
		out.Add(j.ruleFunction(r, i), "\n")
	}
	for _, block := range g.Initializer {
		out.Add(wrapCode("", block.Code, block.CodeLocation, "\n", ""), "\n")
	}
	out.Add(j.runtime("result"))
	return out
}

// lines indents every line by `depth` units and terminates it
func (j *jsGenerator) lines(depth int, lines ...string) []any {
	indent := strings.Repeat(j.unit, depth)
	out := make([]any, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			out = append(out, "\n")
			continue
		}
		out = append(out, indent+l+"\n")
	}
	return out
}

func (j *jsGenerator) traceLines(event, rule, result, end string) []string {
	out := []string{
		"peg$tracer.trace({",
		j.unit + `type: "` + event + `",`,
		j.unit + "rule: " + rule + ",",
	}
	if result != "" {
		out = append(out, j.unit+"result: "+result+",")
	}
	return append(out,
		j.unit+"location: peg$computeLocation(startPos, "+end+", true)",
		"});",
	)
}

func (j *jsGenerator) traceResult(rule, result string) []string {
	out := []string{"if (" + result + " !== peg$FAILED) {"}
	for _, l := range j.traceLines("rule.match", rule, result, "peg$currPos") {
		out = append(out, j.unit+l)
	}
	out = append(out, "} else {")
	for _, l := range j.traceLines("rule.fail", rule, "", "startPos") {
		out = append(out, j.unit+l)
	}
	return append(out, "}")
}

func (j *jsGenerator) ruleHeader(r *Rule, index int) []string {
	rule := jsString(r.Name)
	var out []string
	if j.options.Trace {
		out = append(out, j.traceLines("rule.enter", rule, "", "startPos")...)
		out = append(out, "")
	}
	if j.options.Cache {
		out = append(out,
			fmt.Sprintf("var key = peg$currPos * %d + %d;", len(j.grammar.Rules), index),
			"var cached = peg$resultsCache[key];",
			"",
			"if (cached) {",
			j.unit+"peg$currPos = cached.nextPos;",
			"",
		)
		if j.options.Trace {
			for _, l := range j.traceResult(rule, "cached.result") {
				out = append(out, j.unit+l)
			}
			out = append(out, "")
		}
		out = append(out, j.unit+"return cached.result;", "}", "")
	}
	return out
}

func (j *jsGenerator) ruleFooter(r *Rule, result string) []string {
	var out []string
	if j.options.Cache {
		out = append(out, "", "peg$resultsCache[key] = { nextPos: peg$currPos, result: "+result+" };")
	}
	if j.options.Trace {
		out = append(out, "")
		out = append(out, j.traceResult(jsString(r.Name), result)...)
	}
	return append(out, "", "return "+result+";")
}

func (j *jsGenerator) ruleFunction(r *Rule, index int) *SourceNode {
	c := &jsRuleCompiler{gen: j, stack: newJSStack(r.Name, r.Bytecode)}
	code := c.compile(r.Bytecode, 1)

	out := NewSourceNode(wrapCode("function ", ruleFunctionName(r.Name), r.NameLocation, "() {\n", r.Name))
	if j.options.Trace {
		out.Add(j.lines(1, "var startPos = peg$currPos;"))
	}
	if defines := c.stack.defines(); defines != "" {
		out.Add(j.lines(1, defines, ""))
	}
	out.Add(j.lines(1, j.ruleHeader(r, index)...))
	out.Add(code)
	out.Add(j.lines(1, j.ruleFooter(r, c.stack.result())...))
	out.Add("}\n")
	return out
}

// jsRuleCompiler translates the bytecode of a single rule
type jsRuleCompiler struct {
	gen   *jsGenerator
	stack *jsStack
}

// sourceMapMark is where the code of an expression with a location
// starts within the statements of a block
type sourceMapMark struct {
	index    int
	location Location
}

// compile returns the statements of a block of bytecode, indented by
// `depth` units.
func (c *jsRuleCompiler) compile(bc []int, depth int) []any {
	var (
		parts []any
		marks []sourceMapMark
		ip    int
		g     = c.gen.grammar
		st    = c.stack
	)
	indent := strings.Repeat(c.gen.unit, depth)
	emit := func(statements ...any) {
		for _, s := range statements {
			switch v := s.(type) {
			case string:
				parts = append(parts, indent+v+"\n")
			case *SourceNode:
				parts = append(parts, NewSourceNode(indent, v, "\n"))
			}
		}
	}
	condition := func(cond string, argCount int) {
		base := argCount + 3
		thenLen, elseLen := bc[ip+base-2], bc[ip+base-1]
		thenStart := ip + base
		elseStart := thenStart + thenLen
		var thenCode, elseCode []any
		var els func()
		if elseLen > 0 {
			els = func() { elseCode = c.compile(bc[elseStart:elseStart+elseLen], depth+1) }
		}
		st.checkedIf(ip, func() { thenCode = c.compile(bc[thenStart:elseStart], depth+1) }, els)
		emit("if (" + cond + ") {")
		parts = append(parts, thenCode...)
		if elseLen > 0 {
			emit("} else {")
			parts = append(parts, elseCode...)
		}
		emit("}")
		ip += base + thenLen + elseLen
	}
	loop := func(cond string) {
		bodyLen := bc[ip+1]
		var body []any
		st.checkedLoop(ip, func() { body = c.compile(bc[ip+2:ip+2+bodyLen], depth+1) })
		emit("while (" + cond + ") {")
		parts = append(parts, body...)
		emit("}")
		ip += 2 + bodyLen
	}
	call := func() string {
		params := make([]string, bc[ip+3])
		for i := range params {
			params[i] = st.index(bc[ip+4+i])
		}
		return fmt.Sprintf("peg$f%d(%s)", bc[ip+1], strings.Join(params, ", "))
	}

	for ip < len(bc) {
		switch op := Opcode(bc[ip]); op {
		case OpPushEmptyString:
			emit(st.push("''"))
			ip++
		case OpPushCurrPos:
			emit(st.push("peg$currPos"))
			ip++
		case OpPushUndefined:
			emit(st.push("undefined"))
			ip++
		case OpPushNull:
			emit(st.push("null"))
			ip++
		case OpPushFailed:
			emit(st.push("peg$FAILED"))
			ip++
		case OpPushEmptyArray:
			emit(st.push("[]"))
			ip++
		case OpPop:
			st.pop()
			ip++
		case OpPopCurrPos:
			emit("peg$currPos = " + st.pop() + ";")
			ip++
		case OpPopN:
			st.popN(bc[ip+1])
			ip += 2
		case OpNip:
			value := st.pop()
			st.pop()
			emit(st.push(value))
			ip++
		case OpAppend:
			value := st.pop()
			emit(st.top() + ".push(" + value + ");")
			ip++
		case OpWrap:
			emit(st.push("[" + strings.Join(st.popN(bc[ip+1]), ", ") + "]"))
			ip += 2
		case OpText:
			emit(st.push("input.substring(" + st.pop() + ", peg$currPos)"))
			ip++
		case OpPluck:
			n := bc[ip+2]
			picked := make([]string, n)
			for i := range picked {
				picked[i] = st.index(bc[ip+3+i])
			}
			value := picked[0]
			if n != 1 {
				value = "[" + strings.Join(picked, ", ") + "]"
			}
			st.popN(bc[ip+1])
			emit(st.push(value))
			ip += 3 + n
		case OpIf:
			condition(st.top(), 0)
		case OpIfError:
			condition(st.top()+" === peg$FAILED", 0)
		case OpIfNotError:
			condition(st.top()+" !== peg$FAILED", 0)
		case OpIfLt:
			condition(st.top()+".length < "+strconv.Itoa(bc[ip+1]), 1)
		case OpIfGe:
			condition(st.top()+".length >= "+strconv.Itoa(bc[ip+1]), 1)
		case OpIfLtDynamic:
			condition(st.top()+".length < ("+st.index(bc[ip+1])+"|0)", 1)
		case OpIfGeDynamic:
			condition(st.top()+".length >= ("+st.index(bc[ip+1])+"|0)", 1)
		case OpWhileNotError:
			loop(st.top() + " !== peg$FAILED")
		case OpMatchAny:
			condition("input.length > peg$currPos", 0)
		case OpMatchString:
			lit := g.Literals[bc[ip+1]]
			if n := jsLength(lit); n > 1 {
				condition(fmt.Sprintf("input.substr(peg$currPos, %d) === peg$c%d", n, bc[ip+1]), 1)
			} else {
				condition(fmt.Sprintf("input.charCodeAt(peg$currPos) === %d", utf16.Encode([]rune(lit))[0]), 1)
			}
		case OpMatchStringIC:
			lit := g.Literals[bc[ip+1]]
			condition(fmt.Sprintf("input.substr(peg$currPos, %d).toLowerCase() === peg$c%d", jsLength(lit), bc[ip+1]), 1)
		case OpMatchCharClass:
			condition(fmt.Sprintf("peg$r%d.test(input.charAt(peg$currPos))", bc[ip+1]), 1)
		case OpAcceptN:
			if n := bc[ip+1]; n > 1 {
				emit(st.push(fmt.Sprintf("input.substr(peg$currPos, %d)", n)), fmt.Sprintf("peg$currPos += %d;", n))
			} else {
				emit(st.push("input.charAt(peg$currPos)"), "peg$currPos++;")
			}
			ip += 2
		case OpAcceptString:
			emit(st.push(fmt.Sprintf("peg$c%d", bc[ip+1])))
			if n := jsLength(g.Literals[bc[ip+1]]); n > 1 {
				emit(fmt.Sprintf("peg$currPos += %d;", n))
			} else {
				emit("peg$currPos++;")
			}
			ip += 2
		case OpFail:
			emit(st.push("peg$FAILED"), fmt.Sprintf("if (peg$silentFails === 0) { peg$fail(peg$e%d); }", bc[ip+1]))
			ip += 2
		case OpLoadSavedPos:
			emit("peg$savedPos = " + st.index(bc[ip+1]) + ";")
			ip += 2
		case OpUpdateSavedPos:
			emit("peg$savedPos = peg$currPos;")
			ip++
		case OpCall:
			value := call()
			st.popN(bc[ip+2])
			emit(st.push(value))
			ip += 4 + bc[ip+3]
		case OpRule:
			emit(st.push(ruleFunctionName(g.Rules[bc[ip+1]].Name) + "()"))
			ip += 2
		case OpLibraryRule:
			name := ""
			if n := bc[ip+2]; n >= 0 {
				name = ", " + jsString(g.ImportedNames[n])
			}
			emit(st.push(fmt.Sprintf("peg$callLibrary(peg$import%d%s)", bc[ip+1], name)))
			ip += 3
		case OpSilentFailsOn:
			emit("peg$silentFails++;")
			ip++
		case OpSilentFailsOff:
			emit("peg$silentFails--;")
			ip++
		case OpSourceMapPush:
			marks = append(marks, sourceMapMark{index: len(parts), location: g.Locations[bc[ip+1]]})
			ip += 2
		case OpSourceMapPop:
			m := marks[len(marks)-1]
			marks = marks[:len(marks)-1]
			if m.index < len(parts) {
				chunks := slices.Clone(parts[m.index:])
				parts = append(parts[:m.index], sourceNodeAt(m.location, "", chunks...))
			}
			ip++
		case OpSourceMapLabelPush:
			st.labels[bc[ip+1]] = jsLabel{label: g.Literals[bc[ip+2]], location: g.Locations[bc[ip+3]]}
			ip += 4
		case OpSourceMapLabelPop:
			delete(st.labels, bc[ip+1])
			ip += 2
		default:
			panic(fmt.Sprintf("Invalid opcode: %d", op))
		}
	}
	return parts
}

// wrap surrounds the generated code with the module format
func (j *jsGenerator) wrap(toplevel *SourceNode) *SourceNode {
	o := j.options
	deps := j.dependencies()
	out := NewSourceNode("// Generated by pegc " + Version + ".\n//\n// https://github.com/pegkit/pegc\n\n")
	indented := indentNode(toplevel, j.unit)
	returnParser := j.unit + "return " + j.parserObject(j.unit) + ";\n"

	switch o.Format {
	case FormatBare:
		out.Add("(function() {\n", j.unit+"\"use strict\";\n\n", indented, "\n", returnParser, "})()\n")

	case FormatCommonJS:
		out.Add("\"use strict\";\n\n")
		if len(deps) > 0 {
			for _, d := range deps {
				out.Add(fmt.Sprintf("var %s = require(%s);\n", d.variable, jsString(d.module)))
			}
			out.Add("\n")
		}
		out.Add(toplevel, "\nmodule.exports = "+j.parserObject("")+";\n")

	case FormatES:
		if len(deps) > 0 {
			for _, d := range deps {
				if d.namespace {
					out.Add(fmt.Sprintf("import * as %s from %s;\n", d.variable, jsString(d.module)))
				} else {
					out.Add(fmt.Sprintf("import %s from %s;\n", d.variable, jsString(d.module)))
				}
			}
			out.Add("\n")
		}
		out.Add(toplevel, "\nexport {\n",
			j.unit+"peg$allowedStartRules as StartRules,\n",
			j.unit+"peg$SyntaxError as SyntaxError,\n",
			j.unit+"peg$parse as parse\n",
			"};\n")

	case FormatAMD:
		out.Add(
			"define(["+strings.Join(deps.modules(), ", ")+"], function("+strings.Join(deps.variables(), ", ")+") {\n",
			j.unit+"\"use strict\";\n\n", indented, "\n", returnParser, "});\n")

	case FormatGlobals:
		out.Add("(function(root) {\n", j.unit+"\"use strict\";\n\n", indented, "\n",
			j.unit+"root."+o.ExportVar+" = "+j.parserObject(j.unit)+";\n", "})(this);\n")

	case FormatUMD:
		requires := make([]string, len(deps))
		globals := make([]string, len(deps))
		for i, d := range deps {
			requires[i] = "require(" + jsString(d.module) + ")"
			globals[i] = "root." + d.variable
		}
		u := j.unit
		out.Add(
			"(function(root, factory) {\n",
			u+"if (typeof define === \"function\" && define.amd) {\n",
			u+u+"define(["+strings.Join(deps.modules(), ", ")+"], factory);\n",
			u+"} else if (typeof module === \"object\" && module.exports) {\n",
			u+u+"module.exports = factory("+strings.Join(requires, ", ")+");\n",
		)
		if o.ExportVar != "" {
			out.Add(u+"} else {\n", u+u+"root."+o.ExportVar+" = factory("+strings.Join(globals, ", ")+");\n")
		}
		out.Add(u+"}\n",
			"})(this, function("+strings.Join(deps.variables(), ", ")+") {\n",
			u+"\"use strict\";\n\n", indented, "\n", returnParser, "});\n")
	}
	return out
}

// parserObject is the value the module exports, with its inner lines
// indented by `indent`
func (j *jsGenerator) parserObject(indent string) string {
	inner := indent + j.unit
	return "{\n" +
		inner + "StartRules: peg$allowedStartRules,\n" +
		inner + "SyntaxError: peg$SyntaxError,\n" +
		inner + "parse: peg$parse\n" +
		indent + "}"
}

type jsDependency struct {
	variable  string
	module    string
	namespace bool
}

type jsDependencies []jsDependency

func (d jsDependencies) modules() []string {
	out := make([]string, len(d))
	for i, dep := range d {
		out[i] = jsString(dep.module)
	}
	return out
}

func (d jsDependencies) variables() []string {
	out := make([]string, len(d))
	for i, dep := range d {
		out[i] = dep.variable
	}
	return out
}

// dependencies lists the modules the generated code loads: the
// configured dependencies sorted by variable followed by the imported
// grammars.
func (j *jsGenerator) dependencies() jsDependencies {
	names := make([]string, 0, len(j.options.Dependencies))
	for name := range j.options.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	var out jsDependencies
	for _, name := range names {
		out = append(out, jsDependency{variable: name, module: j.options.Dependencies[name]})
	}
	for i, imp := range j.grammar.Imports {
		out = append(out, jsDependency{
			variable:  "peg$import" + strconv.Itoa(i),
			module:    imp.From.Module,
			namespace: true,
		})
	}
	return out
}

// jsString quotes `s` as a javascript string literal
func jsString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, u := range utf16.Encode([]rune(s)) {
		switch u {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\t':
			sb.WriteString(`\t`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			writeJSUnit(&sb, u)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// jsClassEscape escapes a character for use within a regular
// expression class
func jsClassEscape(r rune) string {
	var sb strings.Builder
	for _, u := range utf16.Encode([]rune{r}) {
		switch u {
		case '\\', '/', ']', '^', '-':
			sb.WriteByte('\\')
			sb.WriteByte(byte(u))
		case '\t':
			sb.WriteString(`\t`)
		case '\n':
			sb.WriteString(`\n`)
		case '\v':
			sb.WriteString(`\v`)
		case '\f':
			sb.WriteString(`\f`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			writeJSUnit(&sb, u)
		}
	}
	return sb.String()
}

func writeJSUnit(sb *strings.Builder, u uint16) {
	switch {
	case u < 0x20 || (u >= 0x7F && u <= 0xFF):
		fmt.Fprintf(sb, `\x%02X`, u)
	case u > 0xFF:
		fmt.Fprintf(sb, `\u%04X`, u)
	default:
		sb.WriteByte(byte(u))
	}
}

func jsClassRegexp(c *ClassConst) string {
	var sb strings.Builder
	sb.WriteString("/^[")
	if c.Inverted {
		sb.WriteByte('^')
	}
	for _, p := range c.Parts {
		sb.WriteString(jsClassEscape(p.From))
		if p.IsRange() {
			sb.WriteByte('-')
			sb.WriteString(jsClassEscape(p.To))
		}
	}
	sb.WriteString("]/")
	if c.IgnoreCase {
		sb.WriteByte('i')
	}
	return sb.String()
}

func jsClassParts(parts []ClassPart) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		if p.IsRange() {
			out[i] = "[" + jsString(string(p.From)) + ", " + jsString(string(p.To)) + "]"
		} else {
			out[i] = jsString(string(p.From))
		}
	}
	return "[" + strings.Join(out, ", ") + "]"
}

func jsExpectation(e *Expectation) string {
	switch e.Type {
	case ExpectRule:
		return "peg$otherExpectation(" + jsString(e.Value) + ")"
	case ExpectLiteral:
		return fmt.Sprintf("peg$literalExpectation(%s, %t)", jsString(e.Value), e.IgnoreCase)
	case ExpectClass:
		return fmt.Sprintf("peg$classExpectation(%s, %t, %t)", jsClassParts(e.Parts), e.Inverted, e.IgnoreCase)
	case ExpectAny:
		return "peg$anyExpectation()"
	case ExpectEnd:
		return "peg$endExpectation()"
	default:
		return "peg$otherExpectation(" + jsString(e.Description) + ")"
	}
}
