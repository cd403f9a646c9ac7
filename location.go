package pegc

import (
	"encoding/json"
	"fmt"
)

// Position is a point within a grammar source.  Offset is 0-based and
// counted in bytes, Line and Column are 1-based and Column counts
// runes.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// GrammarSource identifies where a grammar text came from.  It's
// carried by every Location and ends up in the `sources` list of the
// generated source maps.
type GrammarSource interface {
	GrammarSourceName() string
}

// SourceName is the simplest GrammarSource: a file name or any other
// string that identifies the grammar.
type SourceName string

func (s SourceName) GrammarSourceName() string { return string(s) }

// GrammarLocation is a GrammarSource for grammars embedded within a
// larger file.  Start is where the grammar text begins within that
// file, and it's used to shift locations reported back to the user.
type GrammarLocation struct {
	Source string
	Start  Position
}

func (g *GrammarLocation) GrammarSourceName() string { return g.Source }

// Offset converts a position relative to the grammar text into a
// position relative to the enclosing file.
func (g *GrammarLocation) Offset(p Position) Position {
	if p.Line == 1 {
		p.Column += g.Start.Column - 1
	}
	p.Line += g.Start.Line - 1
	p.Offset += g.Start.Offset
	return p
}

// sourceName returns the name of a grammar source or an empty string
// when none is available.
func sourceName(s GrammarSource) string {
	if s == nil {
		return ""
	}
	return s.GrammarSourceName()
}

// Location is a half-open span within a grammar source.
type Location struct {
	Source GrammarSource
	Start  Position
	End    Position
}

// NewLocation creates a location that spans from `start` to `end`
// within the source `src`.
func NewLocation(src GrammarSource, start, end Position) Location {
	return Location{Source: src, Start: start, End: end}
}

// IsZero returns true for locations that were never set
func (l Location) IsZero() bool {
	return l.Start == Position{} && l.End == Position{}
}

// Span returns a location that starts where `l` starts and ends where
// `other` ends.
func (l Location) Span(other Location) Location {
	return Location{Source: l.Source, Start: l.Start, End: other.End}
}

func (l Location) String() string {
	name := sourceName(l.Source)
	start := l.Start
	if gl, ok := l.Source.(*GrammarLocation); ok {
		start = gl.Offset(start)
	}
	if name == "" {
		return start.String()
	}
	return name + ":" + start.String()
}

type locationJSON struct {
	Source string   `json:"source,omitempty"`
	Start  Position `json:"start"`
	End    Position `json:"end"`
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(locationJSON{Source: sourceName(l.Source), Start: l.Start, End: l.End})
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var lj locationJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return err
	}
	l.Start, l.End = lj.Start, lj.End
	l.Source = nil
	if lj.Source != "" {
		l.Source = SourceName(lj.Source)
	}
	return nil
}
