package pegc

import (
	"strings"

	"github.com/pegkit/pegc/ascii"
)

// FormatFunc decorates a piece of printed output according to what it
// represents, e.g.: by wrapping it within terminal colors
type FormatFunc[T any] func(input string, token T) string

// PrintToken is what a piece of the AST or bytecode printers output
// represents
type PrintToken int

const (
	PrintNone PrintToken = iota
	PrintOperator
	PrintOperand
	PrintLiteral
	PrintSpan
	PrintComment
	PrintMatch
)

func plainFormat(input string, _ PrintToken) string { return input }

// themeFormat colors the printer output with a theme
func themeFormat(theme ascii.Theme) FormatFunc[PrintToken] {
	colors := map[PrintToken]string{
		PrintOperator: theme.Operator,
		PrintOperand:  theme.Operand,
		PrintLiteral:  theme.Literal,
		PrintSpan:     theme.Span,
		PrintComment:  theme.Comment,
		PrintMatch:    theme.Match,
	}
	return func(input string, token PrintToken) string {
		return ascii.Paint(colors[token], input)
	}
}

// treePrinter writes trees with box drawing characters, keeping track
// of the padding of every level
type treePrinter[T any] struct {
	pad    []string
	output strings.Builder
	format FormatFunc[T]
}

func newTreePrinter[T any](format FormatFunc[T]) *treePrinter[T] {
	return &treePrinter[T]{format: format}
}

func (tp *treePrinter[T]) indent(s string) { tp.pad = append(tp.pad, s) }
func (tp *treePrinter[T]) unindent()       { tp.pad = tp.pad[:len(tp.pad)-1] }

func (tp *treePrinter[T]) write(s string) { tp.output.WriteString(s) }

func (tp *treePrinter[T]) writeToken(s string, token T) {
	tp.output.WriteString(tp.format(s, token))
}

// pwrite writes `s` after the padding of the current level
func (tp *treePrinter[T]) pwrite(s string) {
	for _, p := range tp.pad {
		tp.write(p)
	}
	tp.write(s)
}

// children prints `n` children with `each`, prefixing each one with
// the branch that connects it to its parent
func (tp *treePrinter[T]) children(n int, each func(i int)) {
	for i := 0; i < n; i++ {
		tp.write("\n")
		if i == n-1 {
			tp.pwrite("└── ")
			tp.indent("    ")
		} else {
			tp.pwrite("├── ")
			tp.indent("│   ")
		}
		each(i)
		tp.unindent()
	}
}

func (tp *treePrinter[T]) String() string { return tp.output.String() }
