// Package ascii holds the ANSI escape codes used when printing to a
// terminal, grouped into themes by what they highlight.
package ascii

import "fmt"

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Red     = "\033[1;31m"
	Green   = "\033[1;32m"
	Yellow  = "\033[1;33m"
	Blue    = "\033[1;34m"
	Magenta = "\033[1;35m"
	Cyan    = "\033[1;36m"
	Gray    = "\033[90m"

	// 256-color palette
	Orange  = "\033[38;5;208m"
	Gray245 = "\033[1;38;5;245m"
	Purple  = "\033[1;38;5;99m"
	Pink    = "\033[1;38;5;127m"
)

// Theme maps what's being printed to a color
type Theme struct {
	// Problems reported by the compiler
	Error   string
	Warning string
	Info    string

	Muted  string
	Accent string

	// AST and bytecode printers
	Operator string
	Operand  string
	Literal  string
	Span     string
	Comment  string
	Match    string
}

// DefaultTheme works on both dark and light terminals
var DefaultTheme = Theme{
	Error:   Red,
	Warning: Yellow,
	Info:    Cyan,

	Muted:  Gray,
	Accent: Cyan,

	Operator: Purple,
	Operand:  Pink,
	Literal:  Green,
	Span:     Orange,
	Comment:  Gray245,
	Match:    Blue,
}

// PlainTheme has no colors at all, it's used when the output isn't a
// terminal
var PlainTheme = Theme{}

// Paint wraps `s` within `color` and a reset.  Empty colors leave the
// string untouched.
func Paint(color, s string) string {
	if color == "" || s == "" {
		return s
	}
	return color + s + Reset
}

func Color(color, format string, args ...any) string {
	return Paint(color, fmt.Sprintf(format, args...))
}
