package pegc

import "fmt"

// Kind is the discriminant of every node within the grammar AST
type Kind int

const (
	KindGrammar Kind = iota
	KindRule
	KindNamed
	KindChoice
	KindAction
	KindSequence
	KindLabeled
	KindText
	KindSimpleAnd
	KindSimpleNot
	KindOptional
	KindZeroOrMore
	KindOneOrMore
	KindRepeated
	KindGroup
	KindSemanticAnd
	KindSemanticNot
	KindRuleRef
	KindLibraryRef
	KindLiteral
	KindClass
	KindAny
)

var kindNames = [...]string{
	KindGrammar:     "grammar",
	KindRule:        "rule",
	KindNamed:       "named",
	KindChoice:      "choice",
	KindAction:      "action",
	KindSequence:    "sequence",
	KindLabeled:     "labeled",
	KindText:        "text",
	KindSimpleAnd:   "simple_and",
	KindSimpleNot:   "simple_not",
	KindOptional:    "optional",
	KindZeroOrMore:  "zero_or_more",
	KindOneOrMore:   "one_or_more",
	KindRepeated:    "repeated",
	KindGroup:       "group",
	KindSemanticAnd: "semantic_and",
	KindSemanticNot: "semantic_not",
	KindRuleRef:     "rule_ref",
	KindLibraryRef:  "library_ref",
	KindLiteral:     "literal",
	KindClass:       "class",
	KindAny:         "any",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// kindFromString is the inverse of Kind.String
func kindFromString(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Node is the interface implemented by every value of the grammar AST
type Node interface {
	// Kind returns the discriminant of the node
	Kind() Kind

	// Loc returns where the node was found within the grammar
	Loc() Location
}

// Expression is the closed set of nodes that can appear within the
// body of a rule.
type Expression interface {
	Node
	result() *MatchResult
}

// expr holds what every expression node carries: its location and
// the match result computed by the inference pass.
type expr struct {
	Location Location
	Match    MatchResult
}

func (e *expr) Loc() Location          { return e.Location }
func (e *expr) result() *MatchResult   { return &e.Match }
func (e *expr) locationRef() *Location { return &e.Location }
func newExpr(loc Location) expr        { return expr{Location: loc} }
func matchOf(e Expression) MatchResult { return *e.result() }

// Node Type: Grammar

type Grammar struct {
	Imports             []*GrammarImport
	TopLevelInitializer []*CodeBlock
	Initializer         []*CodeBlock
	Rules               []*Rule
	Location            Location

	// Constant pools, filled in by the bytecode generator and
	// indexed by the operands of the instructions.
	Literals      []string
	Classes       []*ClassConst
	Expectations  []*Expectation
	ImportedNames []string
	Functions     []*FunctionConst
	Locations     []Location

	// Code is the output of the JavaScript generator
	Code *SourceNode
}

func NewGrammar(rules []*Rule, loc Location) *Grammar {
	return &Grammar{Rules: rules, Location: loc}
}

func (g *Grammar) Kind() Kind    { return KindGrammar }
func (g *Grammar) Loc() Location { return g.Location }

// FindRule returns the first rule called `name` or nil
func (g *Grammar) FindRule(name string) *Rule {
	if i := g.IndexOfRule(name); i >= 0 {
		return g.Rules[i]
	}
	return nil
}

// IndexOfRule returns the position of the first rule called `name`
// or -1 if there's none.
func (g *Grammar) IndexOfRule(name string) int {
	for i, r := range g.Rules {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// RuleNames returns the names of all the rules in declaration order
func (g *Grammar) RuleNames() []string {
	names := make([]string, 0, len(g.Rules))
	for _, r := range g.Rules {
		names = append(names, r.Name)
	}
	return names
}

// CodeBlock is a raw fragment of target language code, like the
// grammar initializers.
type CodeBlock struct {
	Code         string
	CodeLocation Location
	Location     Location
}

// Node Type: Import

type ImportBindingType int

const (
	// ImportAll is `import * as ns from "lib"`
	ImportAll ImportBindingType = iota
	// ImportDefault is `import rule from "lib"`
	ImportDefault
	// ImportNamed is `import {rule} from "lib"`
	ImportNamed
	// ImportRename is `import {rule as local} from "lib"`
	ImportRename
)

var importBindingNames = [...]string{
	ImportAll:     "import_binding_all",
	ImportDefault: "import_binding_default",
	ImportNamed:   "import_binding",
	ImportRename:  "import_binding_rename",
}

func (t ImportBindingType) String() string { return importBindingNames[t] }

type ImportBinding struct {
	Type ImportBindingType
	// Binding is the local name
	Binding string
	// Rename is the name of the rule within the library, only
	// used by ImportRename
	Rename   string
	Location Location
}

type ModuleSpecifier struct {
	Module   string
	Location Location
}

type GrammarImport struct {
	What     []*ImportBinding
	From     ModuleSpecifier
	Location Location
}

// Node Type: Rule

type Rule struct {
	Name         string
	NameLocation Location
	Expression   Expression
	Location     Location

	// Match is set by the inference pass
	Match MatchResult

	// Bytecode is set by the bytecode generator
	Bytecode []int
}

func NewRule(name string, nameLoc Location, e Expression, loc Location) *Rule {
	return &Rule{Name: name, NameLocation: nameLoc, Expression: e, Location: loc}
}

func (r *Rule) Kind() Kind    { return KindRule }
func (r *Rule) Loc() Location { return r.Location }

// Node Type: Named

type Named struct {
	expr
	Name       string
	Expression Expression
}

func NewNamed(name string, e Expression, loc Location) *Named {
	return &Named{expr: newExpr(loc), Name: name, Expression: e}
}

func (*Named) Kind() Kind { return KindNamed }

// Node Type: Choice

type Choice struct {
	expr
	Alternatives []Expression
}

func NewChoice(alternatives []Expression, loc Location) *Choice {
	return &Choice{expr: newExpr(loc), Alternatives: alternatives}
}

func (*Choice) Kind() Kind { return KindChoice }

// Node Type: Action

type Action struct {
	expr
	Code         string
	CodeLocation Location
	Expression   Expression
}

func NewAction(code string, codeLoc Location, e Expression, loc Location) *Action {
	return &Action{expr: newExpr(loc), Code: code, CodeLocation: codeLoc, Expression: e}
}

func (*Action) Kind() Kind { return KindAction }

// Node Type: Sequence

type Sequence struct {
	expr
	Elements []Expression
}

func NewSequence(elements []Expression, loc Location) *Sequence {
	return &Sequence{expr: newExpr(loc), Elements: elements}
}

func (*Sequence) Kind() Kind { return KindSequence }

// Node Type: Labeled

type Labeled struct {
	expr
	// Label is empty for `@expr`, a pick without a name
	Label         string
	LabelLocation Location
	Pick          bool
	Expression    Expression
}

func NewLabeled(label string, labelLoc Location, pick bool, e Expression, loc Location) *Labeled {
	return &Labeled{expr: newExpr(loc), Label: label, LabelLocation: labelLoc, Pick: pick, Expression: e}
}

func (*Labeled) Kind() Kind { return KindLabeled }

// Node Types: Text, SimpleAnd, SimpleNot, Optional, ZeroOrMore,
// OneOrMore and Group all wrap a single expression

type Text struct {
	expr
	Expression Expression
}

func NewText(e Expression, loc Location) *Text {
	return &Text{expr: newExpr(loc), Expression: e}
}

func (*Text) Kind() Kind { return KindText }

type SimpleAnd struct {
	expr
	Expression Expression
}

func NewSimpleAnd(e Expression, loc Location) *SimpleAnd {
	return &SimpleAnd{expr: newExpr(loc), Expression: e}
}

func (*SimpleAnd) Kind() Kind { return KindSimpleAnd }

type SimpleNot struct {
	expr
	Expression Expression
}

func NewSimpleNot(e Expression, loc Location) *SimpleNot {
	return &SimpleNot{expr: newExpr(loc), Expression: e}
}

func (*SimpleNot) Kind() Kind { return KindSimpleNot }

type Optional struct {
	expr
	Expression Expression
}

func NewOptional(e Expression, loc Location) *Optional {
	return &Optional{expr: newExpr(loc), Expression: e}
}

func (*Optional) Kind() Kind { return KindOptional }

type ZeroOrMore struct {
	expr
	Expression Expression
}

func NewZeroOrMore(e Expression, loc Location) *ZeroOrMore {
	return &ZeroOrMore{expr: newExpr(loc), Expression: e}
}

func (*ZeroOrMore) Kind() Kind { return KindZeroOrMore }

type OneOrMore struct {
	expr
	Expression Expression
}

func NewOneOrMore(e Expression, loc Location) *OneOrMore {
	return &OneOrMore{expr: newExpr(loc), Expression: e}
}

func (*OneOrMore) Kind() Kind { return KindOneOrMore }

type Group struct {
	expr
	Expression Expression
}

func NewGroup(e Expression, loc Location) *Group {
	return &Group{expr: newExpr(loc), Expression: e}
}

func (*Group) Kind() Kind { return KindGroup }

// Node Type: Repeated

type BoundaryType int

const (
	BoundaryConstant BoundaryType = iota
	BoundaryVariable
	BoundaryFunction
)

var boundaryTypeNames = [...]string{
	BoundaryConstant: "constant",
	BoundaryVariable: "variable",
	BoundaryFunction: "function",
}

func (t BoundaryType) String() string { return boundaryTypeNames[t] }

// Unbounded is the value of a constant boundary without a limit, as in
// `expr|2..|`
const Unbounded = -1

// Boundary is either end of a `repeated` expression
type Boundary struct {
	Type BoundaryType
	// Value is used by constant boundaries
	Value int
	// Name is the label referenced by variable boundaries
	Name string
	// Code and CodeLocation are used by function boundaries
	Code         string
	CodeLocation Location
	Location     Location

	// sp is the stack slot a dynamic boundary is found at, it's
	// set while generating bytecode
	sp int
}

// IsUnbounded is true for constant boundaries without a limit
func (b *Boundary) IsUnbounded() bool {
	return b.Type == BoundaryConstant && b.Value == Unbounded
}

func ConstantBoundary(v int) *Boundary { return &Boundary{Type: BoundaryConstant, Value: v} }

type Repeated struct {
	expr
	// Min is nil when the expression is repeated exactly Max times
	Min        *Boundary
	Max        *Boundary
	Delimiter  Expression
	Expression Expression
}

func NewRepeated(lower, upper *Boundary, delimiter, e Expression, loc Location) *Repeated {
	return &Repeated{expr: newExpr(loc), Min: lower, Max: upper, Delimiter: delimiter, Expression: e}
}

func (*Repeated) Kind() Kind { return KindRepeated }

// minBoundary returns the lower boundary, which is the upper one for
// exact repetitions.
func (n *Repeated) minBoundary() *Boundary {
	if n.Min != nil {
		return n.Min
	}
	return n.Max
}

// Node Types: SemanticAnd and SemanticNot

type SemanticAnd struct {
	expr
	Code         string
	CodeLocation Location
}

func NewSemanticAnd(code string, codeLoc Location, loc Location) *SemanticAnd {
	return &SemanticAnd{expr: newExpr(loc), Code: code, CodeLocation: codeLoc}
}

func (*SemanticAnd) Kind() Kind { return KindSemanticAnd }

type SemanticNot struct {
	expr
	Code         string
	CodeLocation Location
}

func NewSemanticNot(code string, codeLoc Location, loc Location) *SemanticNot {
	return &SemanticNot{expr: newExpr(loc), Code: code, CodeLocation: codeLoc}
}

func (*SemanticNot) Kind() Kind { return KindSemanticNot }

// Node Type: RuleRef

type RuleRef struct {
	expr
	Name string
}

func NewRuleRef(name string, loc Location) *RuleRef {
	return &RuleRef{expr: newExpr(loc), Name: name}
}

func (*RuleRef) Kind() Kind { return KindRuleRef }

// Node Type: LibraryRef

type LibraryRef struct {
	expr
	// Name is empty when the default rule of the library is used
	Name    string
	Library string
	// LibraryNumber is the index of the import within the grammar
	// imports, or -1 while unresolved
	LibraryNumber int
}

func NewLibraryRef(name, library string, libraryNumber int, loc Location) *LibraryRef {
	return &LibraryRef{expr: newExpr(loc), Name: name, Library: library, LibraryNumber: libraryNumber}
}

func (*LibraryRef) Kind() Kind { return KindLibraryRef }

// Node Type: Literal

type Literal struct {
	expr
	Value      string
	IgnoreCase bool
}

func NewLiteral(value string, ignoreCase bool, loc Location) *Literal {
	return &Literal{expr: newExpr(loc), Value: value, IgnoreCase: ignoreCase}
}

func (*Literal) Kind() Kind { return KindLiteral }

// Node Type: Class

// ClassPart is either a single character (From == To) or an
// inclusive range of characters.
type ClassPart struct {
	From, To rune
}

func CharPart(r rune) ClassPart          { return ClassPart{From: r, To: r} }
func RangePart(from, to rune) ClassPart  { return ClassPart{From: from, To: to} }
func (p ClassPart) IsRange() bool        { return p.From != p.To }
func (p ClassPart) Contains(r rune) bool { return r >= p.From && r <= p.To }

type Class struct {
	expr
	Parts      []ClassPart
	Inverted   bool
	IgnoreCase bool
}

func NewClass(parts []ClassPart, inverted, ignoreCase bool, loc Location) *Class {
	return &Class{expr: newExpr(loc), Parts: parts, Inverted: inverted, IgnoreCase: ignoreCase}
}

func (*Class) Kind() Kind { return KindClass }

// Node Type: Any

type Any struct{ expr }

func NewAny(loc Location) *Any { return &Any{expr: newExpr(loc)} }

func (*Any) Kind() Kind { return KindAny }
