package pegc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"sigs.k8s.io/yaml"
)

// MarshalJSON writes single characters as `"a"` and ranges as
// `["a", "z"]`
func (p ClassPart) MarshalJSON() ([]byte, error) {
	if p.IsRange() {
		return json.Marshal([2]string{string(p.From), string(p.To)})
	}
	return json.Marshal(string(p.From))
}

func (p *ClassPart) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("%w: class ranges need two characters, got %d", ErrInvalidAST, len(pair))
		}
		from, err := singleRune(pair[0])
		if err != nil {
			return err
		}
		to, err := singleRune(pair[1])
		if err != nil {
			return err
		}
		if from > to {
			return fmt.Errorf("%w: invalid class range %q-%q", ErrInvalidAST, pair[0], pair[1])
		}
		*p = RangePart(from, to)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: class parts are strings or pairs of strings", ErrInvalidAST)
	}
	r, err := singleRune(s)
	if err != nil {
		return err
	}
	*p = CharPart(r)
	return nil
}

func singleRune(s string) (rune, error) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) {
		return 0, fmt.Errorf("%w: %q isn't a single character", ErrInvalidAST, s)
	}
	return r, nil
}

// MarshalJSON writes the grammar with a `type` field on every node,
// the same shape LoadGrammar reads.  The constant pools are included
// once the bytecode is generated.
func (g *Grammar) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodeNode(g))
}

func (r *Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodeNode(r))
}

// jsonObject is a node being encoded.  encoding/json sorts map keys,
// which keeps the output stable.
type jsonObject map[string]any

func (o jsonObject) location(key string, l Location) {
	if !l.IsZero() {
		o[key] = l
	}
}

func encodeNode(n Node) jsonObject {
	if n == nil {
		return nil
	}
	o := jsonObject{"type": n.Kind().String()}
	o.location("location", n.Loc())
	if e, ok := n.(Expression); ok && matchOf(e) != MatchSometimes {
		o["match"] = int(matchOf(e))
	}

	switch v := n.(type) {
	case *Grammar:
		imports := make([]jsonObject, 0, len(v.Imports))
		for _, imp := range v.Imports {
			imports = append(imports, encodeImport(imp))
		}
		o["imports"] = imports
		if len(v.TopLevelInitializer) > 0 {
			o["topLevelInitializer"] = encodeCodeBlocks("top_level_initializer", v.TopLevelInitializer)
		}
		if len(v.Initializer) > 0 {
			o["initializer"] = encodeCodeBlocks("initializer", v.Initializer)
		}
		rules := make([]jsonObject, 0, len(v.Rules))
		for _, r := range v.Rules {
			rules = append(rules, encodeNode(r))
		}
		o["rules"] = rules
		encodePools(o, v)
	case *Rule:
		o["name"] = v.Name
		o.location("nameLocation", v.NameLocation)
		o["expression"] = encodeNode(v.Expression)
		if v.Match != MatchSometimes {
			o["match"] = int(v.Match)
		}
		if len(v.Bytecode) > 0 {
			o["bytecode"] = v.Bytecode
		}
	case *Named:
		o["name"] = v.Name
		o["expression"] = encodeNode(v.Expression)
	case *Choice:
		o["alternatives"] = encodeNodes(v.Alternatives)
	case *Action:
		o["code"] = v.Code
		o.location("codeLocation", v.CodeLocation)
		o["expression"] = encodeNode(v.Expression)
	case *Sequence:
		o["elements"] = encodeNodes(v.Elements)
	case *Labeled:
		if v.Label == "" {
			o["label"] = nil
		} else {
			o["label"] = v.Label
			o.location("labelLocation", v.LabelLocation)
		}
		if v.Pick {
			o["pick"] = true
		}
		o["expression"] = encodeNode(v.Expression)
	case *Text:
		o["expression"] = encodeNode(v.Expression)
	case *SimpleAnd:
		o["expression"] = encodeNode(v.Expression)
	case *SimpleNot:
		o["expression"] = encodeNode(v.Expression)
	case *Optional:
		o["expression"] = encodeNode(v.Expression)
	case *ZeroOrMore:
		o["expression"] = encodeNode(v.Expression)
	case *OneOrMore:
		o["expression"] = encodeNode(v.Expression)
	case *Group:
		o["expression"] = encodeNode(v.Expression)
	case *Repeated:
		o["min"] = encodeBoundary(v.Min)
		o["max"] = encodeBoundary(v.Max)
		if v.Delimiter != nil {
			o["delimiter"] = encodeNode(v.Delimiter)
		} else {
			o["delimiter"] = nil
		}
		o["expression"] = encodeNode(v.Expression)
	case *SemanticAnd:
		o["code"] = v.Code
		o.location("codeLocation", v.CodeLocation)
	case *SemanticNot:
		o["code"] = v.Code
		o.location("codeLocation", v.CodeLocation)
	case *RuleRef:
		o["name"] = v.Name
	case *LibraryRef:
		if v.Name == "" {
			o["name"] = nil
		} else {
			o["name"] = v.Name
		}
		o["library"] = v.Library
		o["libraryNumber"] = v.LibraryNumber
	case *Literal:
		o["value"] = v.Value
		o["ignoreCase"] = v.IgnoreCase
	case *Class:
		parts := v.Parts
		if parts == nil {
			parts = []ClassPart{}
		}
		o["parts"] = parts
		o["inverted"] = v.Inverted
		o["ignoreCase"] = v.IgnoreCase
	case *Any:
	}
	return o
}

func encodeNodes(exprs []Expression) []jsonObject {
	out := make([]jsonObject, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, encodeNode(e))
	}
	return out
}

func encodeCodeBlocks(kind string, blocks []*CodeBlock) []jsonObject {
	out := make([]jsonObject, 0, len(blocks))
	for _, b := range blocks {
		o := jsonObject{"type": kind, "code": b.Code}
		o.location("codeLocation", b.CodeLocation)
		o.location("location", b.Location)
		out = append(out, o)
	}
	return out
}

func encodeImport(imp *GrammarImport) jsonObject {
	what := make([]jsonObject, 0, len(imp.What))
	for _, b := range imp.What {
		o := jsonObject{"type": b.Type.String(), "binding": b.Binding}
		if b.Type == ImportRename {
			o["rename"] = b.Rename
		}
		o.location("location", b.Location)
		what = append(what, o)
	}
	from := jsonObject{"type": "module_specifier", "module": imp.From.Module}
	from.location("location", imp.From.Location)
	o := jsonObject{"type": "grammar_import", "what": what, "from": from}
	o.location("location", imp.Location)
	return o
}

func encodeBoundary(b *Boundary) jsonObject {
	if b == nil {
		return nil
	}
	o := jsonObject{"type": b.Type.String()}
	switch b.Type {
	case BoundaryConstant:
		if b.IsUnbounded() {
			o["value"] = nil
		} else {
			o["value"] = b.Value
		}
	case BoundaryVariable:
		o["value"] = b.Name
	case BoundaryFunction:
		o["value"] = b.Code
		o.location("codeLocation", b.CodeLocation)
	}
	o.location("location", b.Location)
	return o
}

func encodePools(o jsonObject, g *Grammar) {
	if len(g.Literals) > 0 {
		o["literals"] = g.Literals
	}
	if len(g.Classes) > 0 {
		o["classes"] = g.Classes
	}
	if len(g.Expectations) > 0 {
		o["expectations"] = g.Expectations
	}
	if len(g.ImportedNames) > 0 {
		o["importedNames"] = g.ImportedNames
	}
	if len(g.Functions) > 0 {
		o["functions"] = g.Functions
	}
	if len(g.Locations) > 0 {
		o["locations"] = g.Locations
	}
}

// LoadGrammar reads a grammar AST from a JSON or YAML document.  Every
// node carries a `type` field with its kind, as written by
// Grammar.MarshalJSON.  Constant pools and bytecode found within the
// document are ignored, they're rebuilt by the compiler.
func LoadGrammar(data []byte) (*Grammar, error) {
	doc, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAST, err)
	}
	var n nodeJSON
	if err := strictUnmarshal(doc, &n); err != nil {
		return nil, err
	}
	if n.Type != KindGrammar.String() {
		return nil, fmt.Errorf("%w: the root node must be a grammar, not %q", ErrInvalidAST, n.Type)
	}
	d := &astDecoder{}
	g := d.grammar(&n)
	if d.err != nil {
		return nil, d.err
	}
	return g, nil
}

// SetSource sets the source of every location of the grammar that
// doesn't have one yet
func (g *Grammar) SetSource(src GrammarSource) {
	set := func(l *Location) {
		if l.Source == nil && !l.IsZero() {
			l.Source = src
		}
	}
	set(&g.Location)
	for _, imp := range g.Imports {
		set(&imp.Location)
		set(&imp.From.Location)
		for _, b := range imp.What {
			set(&b.Location)
		}
	}
	for _, blocks := range [][]*CodeBlock{g.TopLevelInitializer, g.Initializer} {
		for _, b := range blocks {
			set(&b.Location)
			set(&b.CodeLocation)
		}
	}
	for _, r := range g.Rules {
		set(&r.Location)
		set(&r.NameLocation)
	}
	Inspect(g, func(n Node) bool {
		if e, ok := n.(interface{ locationRef() *Location }); ok {
			set(e.locationRef())
		}
		switch v := n.(type) {
		case *Action:
			set(&v.CodeLocation)
		case *SemanticAnd:
			set(&v.CodeLocation)
		case *SemanticNot:
			set(&v.CodeLocation)
		case *Labeled:
			set(&v.LabelLocation)
		case *Repeated:
			for _, b := range []*Boundary{v.Min, v.Max} {
				if b != nil {
					set(&b.Location)
					set(&b.CodeLocation)
				}
			}
		}
		return true
	})
}

// nodeJSON has the union of the fields of every node kind
type nodeJSON struct {
	Type          string          `json:"type"`
	Location      Location        `json:"location"`
	Match         MatchResult     `json:"match"`
	Name          *string         `json:"name"`
	NameLocation  Location        `json:"nameLocation"`
	Label         *string         `json:"label"`
	LabelLocation Location        `json:"labelLocation"`
	Pick          bool            `json:"pick"`
	Code          *string         `json:"code"`
	CodeLocation  Location        `json:"codeLocation"`
	Value         *string         `json:"value"`
	IgnoreCase    bool            `json:"ignoreCase"`
	Parts         []ClassPart     `json:"parts"`
	Inverted      bool            `json:"inverted"`
	Library       string          `json:"library"`
	LibraryNumber *int            `json:"libraryNumber"`
	Expression    *nodeJSON       `json:"expression"`
	Alternatives  []*nodeJSON     `json:"alternatives"`
	Elements      []*nodeJSON     `json:"elements"`
	Delimiter     *nodeJSON       `json:"delimiter"`
	Min           *boundaryJSON   `json:"min"`
	Max           *boundaryJSON   `json:"max"`
	Bytecode      []int           `json:"bytecode"`
	Imports       []*importJSON   `json:"imports"`
	Rules         []*nodeJSON     `json:"rules"`
	TopLevel      codeBlocksJSON  `json:"topLevelInitializer"`
	Initializer   codeBlocksJSON  `json:"initializer"`

	// constant pools written by MarshalJSON
	Literals      json.RawMessage `json:"literals"`
	Classes       json.RawMessage `json:"classes"`
	Expectations  json.RawMessage `json:"expectations"`
	ImportedNames json.RawMessage `json:"importedNames"`
	Functions     json.RawMessage `json:"functions"`
	Locations     json.RawMessage `json:"locations"`
}

type boundaryJSON struct {
	Type         string          `json:"type"`
	Value        json.RawMessage `json:"value"`
	CodeLocation Location        `json:"codeLocation"`
	Location     Location        `json:"location"`
}

type importJSON struct {
	Type string `json:"type"`
	What []struct {
		Type     string   `json:"type"`
		Binding  string   `json:"binding"`
		Rename   string   `json:"rename"`
		Location Location `json:"location"`
	} `json:"what"`
	From struct {
		Type     string   `json:"type"`
		Module   string   `json:"module"`
		Location Location `json:"location"`
	} `json:"from"`
	Location Location `json:"location"`
}

type codeBlockJSON struct {
	Type         string   `json:"type"`
	Code         string   `json:"code"`
	CodeLocation Location `json:"codeLocation"`
	Location     Location `json:"location"`
}

// codeBlocksJSON accepts either a single code block or a list of them
type codeBlocksJSON []codeBlockJSON

func (c *codeBlocksJSON) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []codeBlockJSON
		if err := strictUnmarshal(data, &list); err != nil {
			return err
		}
		*c = list
		return nil
	}
	var one codeBlockJSON
	if err := strictUnmarshal(data, &one); err != nil {
		return err
	}
	*c = codeBlocksJSON{one}
	return nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, ErrInvalidAST) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidAST, err)
	}
	return nil
}

// astDecoder turns the decoded documents into nodes, keeping the first
// error along with the path of the node it was found at
type astDecoder struct {
	err error
}

func (d *astDecoder) fail(path, format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s: %s", ErrInvalidAST, path, fmt.Sprintf(format, args...))
	}
}

func (d *astDecoder) grammar(n *nodeJSON) *Grammar {
	g := &Grammar{Location: n.Location}
	for i, imp := range n.Imports {
		g.Imports = append(g.Imports, d.grammarImport(fmt.Sprintf("imports[%d]", i), imp))
	}
	g.TopLevelInitializer = codeBlocks(n.TopLevel)
	g.Initializer = codeBlocks(n.Initializer)
	for i, r := range n.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		if r == nil || r.Type != KindRule.String() {
			d.fail(path, "expected a rule")
			continue
		}
		g.Rules = append(g.Rules, d.rule(path, r))
	}
	return g
}

func (d *astDecoder) grammarImport(path string, imp *importJSON) *GrammarImport {
	if imp == nil {
		d.fail(path, "expected an import")
		return &GrammarImport{}
	}
	out := &GrammarImport{
		From:     ModuleSpecifier{Module: imp.From.Module, Location: imp.From.Location},
		Location: imp.Location,
	}
	if imp.From.Module == "" {
		d.fail(path+".from", "module is required")
	}
	for i, w := range imp.What {
		t, ok := importBindingFromString(w.Type)
		if !ok {
			d.fail(fmt.Sprintf("%s.what[%d]", path, i), "unknown import binding %q", w.Type)
			continue
		}
		out.What = append(out.What, &ImportBinding{
			Type:     t,
			Binding:  w.Binding,
			Rename:   w.Rename,
			Location: w.Location,
		})
	}
	return out
}

func importBindingFromString(s string) (ImportBindingType, bool) {
	for t, name := range importBindingNames {
		if name == s {
			return ImportBindingType(t), true
		}
	}
	return 0, false
}

func codeBlocks(blocks codeBlocksJSON) []*CodeBlock {
	var out []*CodeBlock
	for _, b := range blocks {
		out = append(out, &CodeBlock{Code: b.Code, CodeLocation: b.CodeLocation, Location: b.Location})
	}
	return out
}

func (d *astDecoder) rule(path string, n *nodeJSON) *Rule {
	if n.Name == nil || *n.Name == "" {
		d.fail(path, "rules need a name")
		return &Rule{}
	}
	r := NewRule(*n.Name, n.NameLocation, d.expression(path+".expression", n.Expression), n.Location)
	r.Match = n.Match
	return r
}

func (d *astDecoder) expressions(path string, nodes []*nodeJSON) []Expression {
	out := make([]Expression, 0, len(nodes))
	for i, n := range nodes {
		out = append(out, d.expression(fmt.Sprintf("%s[%d]", path, i), n))
	}
	return out
}

func (d *astDecoder) expression(path string, n *nodeJSON) Expression {
	if n == nil {
		d.fail(path, "expression is required")
		return NewAny(Location{})
	}
	kind, ok := kindFromString(n.Type)
	if !ok || kind == KindGrammar || kind == KindRule {
		d.fail(path, "unknown expression type %q", n.Type)
		return NewAny(n.Location)
	}
	var e Expression
	loc := n.Location
	child := func() Expression { return d.expression(path+".expression", n.Expression) }
	switch kind {
	case KindNamed:
		e = NewNamed(d.str(path, "name", n.Name), child(), loc)
	case KindChoice:
		if len(n.Alternatives) == 0 {
			d.fail(path, "choices need at least one alternative")
		}
		e = NewChoice(d.expressions(path+".alternatives", n.Alternatives), loc)
	case KindAction:
		e = NewAction(d.str(path, "code", n.Code), n.CodeLocation, child(), loc)
	case KindSequence:
		e = NewSequence(d.expressions(path+".elements", n.Elements), loc)
	case KindLabeled:
		label := ""
		if n.Label != nil {
			label = *n.Label
		}
		if label == "" && !n.Pick {
			d.fail(path, "labels without a name must be picked")
		}
		e = NewLabeled(label, n.LabelLocation, n.Pick, child(), loc)
	case KindText:
		e = NewText(child(), loc)
	case KindSimpleAnd:
		e = NewSimpleAnd(child(), loc)
	case KindSimpleNot:
		e = NewSimpleNot(child(), loc)
	case KindOptional:
		e = NewOptional(child(), loc)
	case KindZeroOrMore:
		e = NewZeroOrMore(child(), loc)
	case KindOneOrMore:
		e = NewOneOrMore(child(), loc)
	case KindGroup:
		e = NewGroup(child(), loc)
	case KindRepeated:
		var delimiter Expression
		if n.Delimiter != nil {
			delimiter = d.expression(path+".delimiter", n.Delimiter)
		}
		var lower *Boundary
		if n.Min != nil {
			lower = d.boundary(path+".min", n.Min)
		}
		if n.Max == nil {
			d.fail(path, "max is required")
			n.Max = &boundaryJSON{Type: BoundaryConstant.String(), Value: json.RawMessage("null")}
		}
		e = NewRepeated(lower, d.boundary(path+".max", n.Max), delimiter, child(), loc)
	case KindSemanticAnd:
		e = NewSemanticAnd(d.str(path, "code", n.Code), n.CodeLocation, loc)
	case KindSemanticNot:
		e = NewSemanticNot(d.str(path, "code", n.Code), n.CodeLocation, loc)
	case KindRuleRef:
		e = NewRuleRef(d.str(path, "name", n.Name), loc)
	case KindLibraryRef:
		name := ""
		if n.Name != nil {
			name = *n.Name
		}
		number := -1
		if n.LibraryNumber != nil {
			number = *n.LibraryNumber
		}
		if n.Library == "" {
			d.fail(path, "library is required")
		}
		e = NewLibraryRef(name, n.Library, number, loc)
	case KindLiteral:
		e = NewLiteral(d.str(path, "value", n.Value), n.IgnoreCase, loc)
	case KindClass:
		e = NewClass(n.Parts, n.Inverted, n.IgnoreCase, loc)
	case KindAny:
		e = NewAny(loc)
	}
	*e.result() = n.Match
	return e
}

// str returns a required string field
func (d *astDecoder) str(path, field string, s *string) string {
	if s == nil {
		d.fail(path, "%s is required", field)
		return ""
	}
	return *s
}

func (d *astDecoder) boundary(path string, b *boundaryJSON) *Boundary {
	out := &Boundary{Location: b.Location, CodeLocation: b.CodeLocation}
	isNull := len(b.Value) == 0 || bytes.Equal(b.Value, []byte("null"))
	switch b.Type {
	case BoundaryConstant.String():
		out.Type = BoundaryConstant
		out.Value = Unbounded
		if !isNull {
			if err := json.Unmarshal(b.Value, &out.Value); err != nil || out.Value < 0 {
				d.fail(path, "constant boundaries are non negative integers or null")
			}
		}
	case BoundaryVariable.String():
		out.Type = BoundaryVariable
		if isNull || json.Unmarshal(b.Value, &out.Name) != nil || out.Name == "" {
			d.fail(path, "variable boundaries need the name of a label")
		}
	case BoundaryFunction.String():
		out.Type = BoundaryFunction
		if isNull || json.Unmarshal(b.Value, &out.Code) != nil {
			d.fail(path, "function boundaries need code")
		}
	default:
		d.fail(path, "unknown boundary type %q", b.Type)
	}
	return out
}
