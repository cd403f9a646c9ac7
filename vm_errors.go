package pegc

import (
	"fmt"
	"slices"
	"strings"
)

// SyntaxError is returned by parsers for input they don't accept
type SyntaxError struct {
	Message string
	// Expected is nil for errors raised by code fragments through
	// CallContext.Error
	Expected []*Expectation
	// Found is nil at the end of the input
	Found    *string
	Location Location
}

func (e *SyntaxError) Error() string {
	if name := sourceName(e.Location.Source); name != "" {
		return fmt.Sprintf("%s:%s: %s", name, e.Location.Start, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Location.Start, e.Message)
}

// Format renders the error with an excerpt of the input it was
// found in, like GrammarError.Format does for grammars.
func (e *SyntaxError) Format(sources ...SourceText) string {
	ge := &GrammarError{Message: e.Message, Location: e.Location}
	return ge.Format(sources...)
}

// buildSyntaxMessage describes what was expected and what was found
// instead, in the same words the generated parsers use.
func buildSyntaxMessage(expected []*Expectation, found *string) string {
	descriptions := make([]string, 0, len(expected))
	for _, e := range expected {
		descriptions = append(descriptions, describeExpectation(e))
	}
	slices.Sort(descriptions)
	descriptions = slices.Compact(descriptions)

	var exp string
	switch len(descriptions) {
	case 0:
	case 1:
		exp = descriptions[0]
	case 2:
		exp = descriptions[0] + " or " + descriptions[1]
	default:
		exp = strings.Join(descriptions[:len(descriptions)-1], ", ") + ", or " + descriptions[len(descriptions)-1]
	}

	f := "end of input"
	if found != nil {
		f = `"` + literalEscape(*found) + `"`
	}
	return "Expected " + exp + " but " + f + " found."
}

func describeExpectation(e *Expectation) string {
	switch e.Type {
	case ExpectLiteral:
		return `"` + literalEscape(e.Value) + `"`
	case ExpectClass:
		var sb strings.Builder
		sb.WriteByte('[')
		if e.Inverted {
			sb.WriteByte('^')
		}
		for _, p := range e.Parts {
			sb.WriteString(classEscape(string(p.From)))
			if p.IsRange() {
				sb.WriteByte('-')
				sb.WriteString(classEscape(string(p.To)))
			}
		}
		sb.WriteByte(']')
		return sb.String()
	case ExpectAny:
		return "any character"
	case ExpectEnd:
		return "end of input"
	case ExpectRule:
		return e.Value
	default:
		return e.Description
	}
}

var literalReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\x00", `\0`,
	"\t", `\t`,
	"\n", `\n`,
	"\r", `\r`,
)

var classReplacer = strings.NewReplacer(
	`\`, `\\`,
	`]`, `\]`,
	`^`, `\^`,
	`-`, `\-`,
	"\x00", `\0`,
	"\t", `\t`,
	"\n", `\n`,
	"\r", `\r`,
)

func literalEscape(s string) string { return escapeControls(literalReplacer.Replace(s)) }
func classEscape(s string) string   { return escapeControls(classReplacer.Replace(s)) }

// escapeControls writes the control characters left after the named
// escapes as hex escapes
func escapeControls(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r < 0x20 || (r >= 0x7F && r <= 0x9F) {
			fmt.Fprintf(&sb, `\x%02X`, r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
