package pegc

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// SourceMap is a revision 3 source map
type SourceMap struct {
	Version  int      `json:"version"`
	File     string   `json:"file,omitempty"`
	Sources  []string `json:"sources"`
	Names    []string `json:"names"`
	Mappings string   `json:"mappings"`
}

// JSON returns the encoded source map
func (m *SourceMap) JSON() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DataURL returns the source map as an inline `sourceMappingURL`
// comment.
func (m *SourceMap) DataURL() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return "//# sourceMappingURL=data:application/json;charset=utf-8;base64," +
		base64.StdEncoding.EncodeToString(data), nil
}

type mapping struct {
	genLine, genColumn int
	// origin is nil for mappings that end the previous one
	origin *SourceNode
}

type sourceMapBuilder struct {
	file     string
	mappings []mapping
	sources  *Interner[string, string]
	names    *Interner[string, string]
}

func newSourceMapBuilder(file string) *sourceMapBuilder {
	return &sourceMapBuilder{
		file:    file,
		sources: NewValueInterner[string](),
		names:   NewValueInterner[string](),
	}
}

func (b *sourceMapBuilder) add(line, column int, origin *SourceNode) {
	if origin != nil {
		b.sources.Add(origin.Source)
		b.names.Add(origin.Name)
	}
	b.mappings = append(b.mappings, mapping{genLine: line, genColumn: column, origin: origin})
}

// build encodes the mappings, every field relative to the same field
// of the previous segment except for the generated column, which is
// reset on every line.
func (b *sourceMapBuilder) build() *SourceMap {
	var (
		sb                                     strings.Builder
		line, prevColumn                       int
		prevSource, prevLine, prevCol, prevName int
		first                                  = true
	)
	for _, m := range b.mappings {
		for line < m.genLine {
			sb.WriteByte(';')
			line++
			prevColumn = 0
			first = true
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		writeVLQ(&sb, m.genColumn-prevColumn)
		prevColumn = m.genColumn
		if m.origin == nil {
			continue
		}
		source := b.sources.Add(m.origin.Source)
		writeVLQ(&sb, source-prevSource)
		prevSource = source
		writeVLQ(&sb, m.origin.Line-1-prevLine)
		prevLine = m.origin.Line - 1
		writeVLQ(&sb, m.origin.Column-prevCol)
		prevCol = m.origin.Column
		if m.origin.Name != "" {
			name := b.names.Add(m.origin.Name)
			writeVLQ(&sb, name-prevName)
			prevName = name
		}
	}
	return &SourceMap{
		Version:  3,
		File:     b.file,
		Sources:  nonNil(b.sources.Values()),
		Names:    nonNil(b.names.Values()),
		Mappings: sb.String(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const vlqAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// writeVLQ writes `v` as a base64 variable length quantity.  The sign
// goes in the least significant bit and every digit carries five bits
// plus a continuation bit.
func writeVLQ(sb *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = (-v << 1) | 1
	}
	for {
		digit := u & 0x1f
		u >>= 5
		if u > 0 {
			digit |= 0x20
		}
		sb.WriteByte(vlqAlphabet[digit])
		if u == 0 {
			return
		}
	}
}

// decodeVLQ reads the quantities of a single segment
func decodeVLQ(s string) ([]int, bool) {
	var (
		out   []int
		shift uint
		value int
	)
	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(vlqAlphabet, s[i])
		if digit < 0 {
			return nil, false
		}
		value |= (digit & 0x1f) << shift
		if digit&0x20 != 0 {
			shift += 5
			continue
		}
		if value&1 == 1 {
			out = append(out, -(value >> 1))
		} else {
			out = append(out, value>>1)
		}
		value, shift = 0, 0
	}
	return out, shift == 0
}
