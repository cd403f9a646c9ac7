package pegc

import (
	"fmt"
	"strings"

	"github.com/pegkit/pegc/ascii"
)

// Disassemble renders the bytecode of a rule as an instruction
// listing.  Blocks of conditions and loops are indented under the
// instruction that owns them and operands that index the constant
// pools of `g` are followed by the value they point at.
//
//	000000  MATCH_STRING 0            ; "a"
//	000004    then:
//	000004      ACCEPT_STRING 0       ; "a"
//	000006    else:
//	000006      FAIL 0                ; "a"
func Disassemble(g *Grammar, bytecode []int) string {
	return disassemble(g, bytecode, plainFormat)
}

// HighlightDisassembly is Disassemble with terminal colors
func HighlightDisassembly(g *Grammar, bytecode []int, theme ascii.Theme) string {
	return disassemble(g, bytecode, themeFormat(theme))
}

// DisassembleGrammar lists the bytecode of every rule of a grammar
func DisassembleGrammar(g *Grammar, theme ascii.Theme) string {
	var s strings.Builder
	format := themeFormat(theme)
	for i, r := range g.Rules {
		if i > 0 {
			s.WriteString("\n")
		}
		s.WriteString(format(fmt.Sprintf(";; %s @ %s\n", r.Name, r.Location), PrintComment))
		s.WriteString(disassemble(g, r.Bytecode, format))
	}
	return s.String()
}

type disassembler struct {
	g      *Grammar
	out    strings.Builder
	format FormatFunc[PrintToken]
}

func disassemble(g *Grammar, bytecode []int, format FormatFunc[PrintToken]) string {
	d := &disassembler{g: g, format: format}
	d.block(bytecode, 0, len(bytecode), 0)
	return d.out.String()
}

// block lists the instructions within code[start:end]
func (d *disassembler) block(code []int, start, end, depth int) {
	for ip := start; ip < end; {
		op := Opcode(code[ip])
		n := operandCount(code, ip)
		blocks := blockCount(op)
		if ip+1+n+blocks > len(code) {
			d.line(ip, depth, fmt.Sprintf("%v (truncated)", code[ip:]))
			return
		}
		args := code[ip+1 : ip+1+n]
		var sb strings.Builder
		for _, a := range args {
			fmt.Fprintf(&sb, " %d", a)
		}
		d.instruction(ip, depth, op, sb.String(), d.comment(op, args))

		next := ip + 1 + n + blocks
		switch blocks {
		case 1:
			body := code[ip+1+n]
			d.block(code, next, next+body, depth+1)
			next += body
		case 2:
			thenLen, elseLen := code[ip+1+n], code[ip+2+n]
			d.line(next, depth+1, "then:")
			d.block(code, next, next+thenLen, depth+2)
			d.line(next+thenLen, depth+1, "else:")
			d.block(code, next+thenLen, next+thenLen+elseLen, depth+2)
			next += thenLen + elseLen
		}
		ip = next
	}
}

func (d *disassembler) instruction(ip, depth int, op Opcode, operands, comment string) {
	d.address(ip, depth)
	d.out.WriteString(d.format(op.String(), PrintOperator))
	d.out.WriteString(d.format(operands, PrintOperand))
	if comment != "" {
		width := depth*2 + len(op.String()) + len(operands)
		d.out.WriteString(strings.Repeat(" ", max(1, 26-width)))
		d.out.WriteString(d.format("; "+comment, PrintComment))
	}
	d.out.WriteString("\n")
}

func (d *disassembler) line(ip, depth int, text string) {
	d.address(ip, depth)
	d.out.WriteString(d.format(text, PrintComment))
	d.out.WriteString("\n")
}

func (d *disassembler) address(ip, depth int) {
	d.out.WriteString(d.format(fmt.Sprintf("%06d  ", ip), PrintComment))
	d.out.WriteString(strings.Repeat("  ", depth))
}

// comment describes the pool entries an instruction refers to
func (d *disassembler) comment(op Opcode, args []int) string {
	g := d.g
	if g == nil {
		return ""
	}
	switch op {
	case OpMatchString, OpMatchStringIC, OpAcceptString:
		if v, ok := poolEntry(g.Literals, args[0]); ok {
			return `"` + literalEscape(v) + `"`
		}
	case OpMatchCharClass:
		if c, ok := poolEntry(g.Classes, args[0]); ok {
			s := describeExpectation(&Expectation{Type: ExpectClass, Parts: c.Parts, Inverted: c.Inverted})
			if c.IgnoreCase {
				s += "i"
			}
			return s
		}
	case OpFail:
		if e, ok := poolEntry(g.Expectations, args[0]); ok {
			return describeExpectation(e)
		}
	case OpRule:
		if r, ok := poolEntry(g.Rules, args[0]); ok {
			return r.Name
		}
	case OpLibraryRule:
		name, _ := poolEntry(g.ImportedNames, args[1])
		if imp, ok := poolEntry(g.Imports, args[0]); ok {
			if name == "" {
				return imp.From.Module
			}
			return imp.From.Module + "." + name
		}
	case OpCall:
		if f, ok := poolEntry(g.Functions, args[0]); ok {
			return summarizeCode(f.Body)
		}
	case OpSourceMapPush:
		if l, ok := poolEntry(g.Locations, args[0]); ok {
			return l.String()
		}
	case OpSourceMapLabelPush:
		if v, ok := poolEntry(g.Literals, args[1]); ok {
			return v
		}
	}
	return ""
}

func poolEntry[T any](pool []T, i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(pool) {
		return zero, false
	}
	return pool[i], true
}
