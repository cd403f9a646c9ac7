package pegc

import (
	"strings"
	"unicode"
	"unicode/utf16"
)

// vmInput is the text being parsed, held as UTF-16 code units so
// positions, lengths and columns agree with the generated javascript
// parsers.
type vmInput struct {
	units []uint16

	// posDetails caches the line and column of the last position
	// asked for, lookups move forward from it
	posDetails Position
}

func newVMInput(s string) *vmInput {
	return &vmInput{
		units:      utf16.Encode([]rune(s)),
		posDetails: Position{Line: 1, Column: 1},
	}
}

func (in *vmInput) len() int { return len(in.units) }

// substring returns the text between two positions
func (in *vmInput) substring(start, end int) string {
	start = min(max(start, 0), len(in.units))
	end = min(max(end, start), len(in.units))
	return string(utf16.Decode(in.units[start:end]))
}

// hasPrefix reports whether the input continues with `lit` at `pos`
func (in *vmInput) hasPrefix(pos int, lit []uint16) bool {
	if pos+len(lit) > len(in.units) {
		return false
	}
	for i, u := range lit {
		if in.units[pos+i] != u {
			return false
		}
	}
	return true
}

// matchesFold compares the input at `pos` against a literal that was
// already lower cased
func (in *vmInput) matchesFold(pos int, lit string, n int) bool {
	return strings.ToLower(in.substring(pos, pos+n)) == lit
}

// matchesClass tests the code unit at `pos` against a character class
func (in *vmInput) matchesClass(pos int, c *ClassConst) bool {
	if pos >= len(in.units) {
		return false
	}
	r := rune(in.units[pos])
	found := false
	for _, p := range c.Parts {
		if p.Contains(r) || (c.IgnoreCase && containsFold(p, r)) {
			found = true
			break
		}
	}
	return found != c.Inverted
}

func containsFold(p ClassPart, r rune) bool {
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if p.Contains(f) {
			return true
		}
	}
	return false
}

// position returns the line and column of `pos`.  Columns count code
// units, as the generated parsers do.
func (in *vmInput) position(pos int) Position {
	p := in.posDetails
	if pos < p.Offset {
		p = Position{Line: 1, Column: 1}
	}
	for ; p.Offset < pos && p.Offset < len(in.units); p.Offset++ {
		if in.units[p.Offset] == '\n' {
			p.Line++
			p.Column = 1
		} else {
			p.Column++
		}
	}
	// positions past the end of the input only happen for the end
	// of a failure span
	p.Column += pos - p.Offset
	p.Offset = pos
	in.posDetails = p
	return p
}
