package pegc

import (
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Config holds the typed settings shared by the passes, the
// generators and the parser, keyed by dotted names
type Config map[string]*setting

// NewConfig creates a new configuration object primed with all the
// default values expected by the passes, the generators and the
// parser.
func NewConfig() *Config {
	m := make(Config)
	// attach "did you mean" notes to undefined rule errors
	m.SetBool("check.suggestions", true)
	// max edit distance of a rule name to be suggested
	m.SetInt("check.suggestions.max_distance", 2)
	// indentation unit of the generated javascript
	m.SetString("generate.js.indent", "  ")
	// the host can base64 encode source maps, required by the
	// `source-with-inline-map` output
	m.SetBool("host.text_encoding", true)
	// the host can run code fragments, required by the `parser`
	// output of grammars with actions or semantic predicates
	m.SetBool("host.eval", true)
	// max instructions executed by the parser for a single input,
	// zero means unlimited
	m.SetInt("vm.max_steps", 0)
	return &m
}

// Write prints all the settings sorted by key
func (c *Config) Write(w io.Writer) {
	keys := c.Keys()
	pad := 0
	for _, k := range keys {
		pad = max(pad, len(k))
	}
	for _, k := range keys {
		fmt.Fprintf(w, "%-*s : %s\n", pad, k, (*c)[k].String())
	}
}

// Keys returns the name of every setting, sorted
func (c *Config) Keys() []string {
	names := make([]string, 0, len(*c))
	for name := range *c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy that can be changed without affecting `c`
func (c *Config) Clone() *Config {
	m := make(Config, len(*c))
	for k, v := range *c {
		cp := *v
		m[k] = &cp
	}
	return &m
}

type settingKind int

const (
	kindUndefined settingKind = iota
	kindBool
	kindInt
	kindString
)

var settingKindNames = [...]string{
	kindUndefined: "undefined",
	kindBool:      "bool",
	kindInt:       "int",
	kindString:    "string",
}

func (k settingKind) String() string { return settingKindNames[k] }

type setting struct {
	kind settingKind
	b    bool
	i    int
	s    string
}

// assign panics when a setting changes kind, which can only be a
// programming error
func (v *setting) assign(k settingKind) {
	if v.kind != k && v.kind != kindUndefined {
		panic(fmt.Sprintf("Can't assign `%s` to type `%s`", k, v.kind))
	}
	v.kind = k
}

func (v *setting) String() string {
	switch v.kind {
	case kindBool:
		return fmt.Sprintf("%t (bool)", v.b)
	case kindInt:
		return fmt.Sprintf("%d (int)", v.i)
	case kindString:
		return fmt.Sprintf("%q (string)", v.s)
	default:
		return "(undefined)"
	}
}

func (c *Config) slot(path string) *setting {
	v, ok := (*c)[path]
	if !ok {
		v = &setting{}
		(*c)[path] = v
	}
	return v
}

// lookup finds a setting and checks its kind; `label` names the kind
// in the panic raised for missing settings
func (c *Config) lookup(path string, k settingKind, label string) *setting {
	v, ok := (*c)[path]
	if !ok {
		panic(fmt.Sprintf("%s setting `%s` does not exist", label, path))
	}
	if v.kind != k {
		panic(fmt.Sprintf("Can't retrieve `%s` from `%s` variable", k, v.kind))
	}
	return v
}

func (c *Config) SetBool(path string, b bool) {
	v := c.slot(path)
	v.assign(kindBool)
	v.b = b
}

func (c *Config) SetInt(path string, i int) {
	v := c.slot(path)
	v.assign(kindInt)
	v.i = i
}

func (c *Config) SetString(path string, s string) {
	v := c.slot(path)
	v.assign(kindString)
	v.s = s
}

// Parse assigns the textual value `s` to an existing setting,
// converting it to the kind the setting already has.  It's how
// settings given on the command line get in.
func (c *Config) Parse(path, s string) error {
	v, ok := (*c)[path]
	if !ok {
		return fmt.Errorf("setting `%s` does not exist", path)
	}
	switch v.kind {
	case kindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("setting `%s` expects a bool: %w", path, err)
		}
		v.b = b
	case kindInt:
		i, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("setting `%s` expects an int: %w", path, err)
		}
		v.i = i
	default:
		v.s = s
	}
	return nil
}

func (c *Config) GetBool(path string) bool { return c.lookup(path, kindBool, "Bool").b }

func (c *Config) GetInt(path string) int { return c.lookup(path, kindInt, "Int").i }

func (c *Config) GetString(path string) string { return c.lookup(path, kindString, "String").s }
