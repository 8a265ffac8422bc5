package model

import (
	"errors"
	"fmt"
)

// Part is one element of a message pattern: a text run, a placeholder
// expression, or a markup tag.
type Part interface {
	part()
}

// Text is a literal text run. All character escapes of the source format
// have been processed; two Text parts are never adjacent in a Pattern.
type Text string

func (Text) part()        {}
func (*Expression) part() {}
func (*Markup) part()     {}

// Pattern is a linear sequence of text and placeholders corresponding to
// the potential output of a message.
type Pattern []Part

// AddText appends a text run, coalescing it with a trailing Text part.
// Empty strings are dropped.
func (p *Pattern) AddText(s string) {
	if s == "" {
		return
	}
	if n := len(*p); n > 0 {
		if prev, ok := (*p)[n-1].(Text); ok {
			(*p)[n-1] = prev + Text(s)
			return
		}
	}
	*p = append(*p, Text(s))
}

// Add appends a non-text part.
func (p *Pattern) Add(part Part) {
	if t, ok := part.(Text); ok {
		p.AddText(string(t))
		return
	}
	*p = append(*p, part)
}

// Append appends all parts of another pattern, coalescing at the seam.
func (p *Pattern) Append(other Pattern) {
	for _, part := range other {
		p.Add(part)
	}
}

// IsEmpty reports whether the pattern contains no parts, or only empty text.
func (p Pattern) IsEmpty() bool {
	for _, part := range p {
		if t, ok := part.(Text); !ok || t != "" {
			return false
		}
	}
	return true
}

// AsText returns the text run value of a part, if it is one.
func AsText(p Part) (string, bool) {
	t, ok := p.(Text)
	return string(t), ok
}

// AsExpression returns the part as an Expression, if it is one.
func AsExpression(p Part) (*Expression, bool) {
	e, ok := p.(*Expression)
	return e, ok
}

// AsMarkup returns the part as a Markup, if it is one.
func AsMarkup(p Part) (*Markup, bool) {
	m, ok := p.(*Markup)
	return m, ok
}

// Value is an expression argument or option value:
// either a Literal or a VariableRef.
type Value interface {
	value()
}

// Literal is a literal string value.
type Literal string

// VariableRef is a reference to a declared or external variable.
type VariableRef struct {
	Name string
}

func (Literal) value()     {}
func (VariableRef) value() {}

// Expression is a placeholder. A valid Expression carries an Arg, a
// Function, or both; Options require a Function.
type Expression struct {
	Arg        Value
	Function   string
	Options    Options
	Attributes Attributes
}

// NewExpression validates and constructs an Expression.
func NewExpression(arg Value, function string, options Options, attributes Attributes) (*Expression, error) {
	if arg == nil && function == "" {
		return nil, errors.New("expression with no operand and no function")
	}
	if function == "" && len(options) > 0 {
		return nil, errors.New("expression with options but no function")
	}
	return &Expression{Arg: arg, Function: function, Options: options, Attributes: attributes}, nil
}

// SourceAttr returns the value of the "source" attribute, when present.
// Adapters record the matched source text of a placeholder there so that
// formats without a native representation can still round-trip it.
func (e *Expression) SourceAttr() (string, bool) {
	for _, a := range e.Attributes {
		if a.Name == "source" && a.HasValue {
			return a.Value, true
		}
	}
	return "", false
}

// MarkupKind discriminates markup tags.
type MarkupKind string

const (
	MarkupOpen       MarkupKind = "open"
	MarkupClose      MarkupKind = "close"
	MarkupStandalone MarkupKind = "standalone"
)

// Markup is a structural tag embedded in a pattern.
type Markup struct {
	Kind       MarkupKind
	Name       string
	Options    Options
	Attributes Attributes
}

// NewMarkup validates and constructs a Markup part.
func NewMarkup(kind MarkupKind, name string, options Options, attributes Attributes) (*Markup, error) {
	switch kind {
	case MarkupOpen, MarkupClose, MarkupStandalone:
	default:
		return nil, fmt.Errorf("invalid markup kind: %q", kind)
	}
	if name == "" {
		return nil, errors.New("markup with empty name")
	}
	return &Markup{Kind: kind, Name: name, Options: options, Attributes: attributes}, nil
}

// Option is one named option; Options preserve insertion order.
type Option struct {
	Name  string
	Value Value
}

type Options []Option

// Get returns the value of the named option.
func (o Options) Get(name string) (Value, bool) {
	for _, opt := range o {
		if opt.Name == name {
			return opt.Value, true
		}
	}
	return nil, false
}

// Set replaces the named option or appends it.
func (o *Options) Set(name string, value Value) {
	for i, opt := range *o {
		if opt.Name == name {
			(*o)[i].Value = value
			return
		}
	}
	*o = append(*o, Option{Name: name, Value: value})
}

// Attribute is one named attribute: either a bare flag (HasValue false)
// or a string value. Attributes preserve insertion order.
type Attribute struct {
	Name     string
	Value    string
	HasValue bool
}

type Attributes []Attribute

// Get returns the named attribute.
func (a Attributes) Get(name string) (Attribute, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// Declaration binds a name to an expression, once per message.
type Declaration struct {
	Name  string
	Value *Expression
}

// IsInput reports whether the declaration binds an external value, i.e.
// its expression's argument is a variable reference with the same name.
func (d Declaration) IsInput() bool {
	v, ok := d.Value.Arg.(VariableRef)
	return ok && v.Name == d.Name
}

type Declarations []Declaration

// Get returns the expression declared under name.
func (d Declarations) Get(name string) (*Expression, bool) {
	for _, decl := range d {
		if decl.Name == name {
			return decl.Value, true
		}
	}
	return nil, false
}

// Has reports whether name is declared.
func (d Declarations) Has(name string) bool {
	_, ok := d.Get(name)
	return ok
}

// Message is either a *PatternMessage or a *SelectMessage.
type Message interface {
	message()
}

// PatternMessage is a message without selectors and with a single pattern.
type PatternMessage struct {
	Declarations Declarations
	Pattern      Pattern
}

func (*PatternMessage) message() {}
func (*SelectMessage) message()  {}

// SelectMessage is a message with one or more selectors and a matrix of
// keyed variant patterns.
type SelectMessage struct {
	Declarations Declarations
	Selectors    []VariableRef
	Variants     []Variant
}

// Variant pairs a key tuple (one key per selector) with a pattern.
type Variant struct {
	Keys    []Key
	Pattern Pattern
}

// Key is a variant key: a literal match value, or the catchall marker.
// A catchall key may carry a name hint in Value; all catchall keys are
// considered equal to each other regardless of hint.
type Key struct {
	Value    string
	Catchall bool
}

// Catchall returns a catchall key with an optional name hint.
func Catchall(hint string) Key {
	return Key{Value: hint, Catchall: true}
}

// Equal reports key equality, ignoring catchall name hints.
func (k Key) Equal(o Key) bool {
	if k.Catchall || o.Catchall {
		return k.Catchall == o.Catchall
	}
	return k.Value == o.Value
}

func keysEqual(a, b []Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// NewSelectMessage validates and constructs a SelectMessage: every variant
// key tuple must match the selector count, key tuples must be unique, and
// one variant must be all-catchall so that matching is exhaustive.
func NewSelectMessage(declarations Declarations, selectors []VariableRef, variants []Variant) (*SelectMessage, error) {
	if len(selectors) == 0 {
		return nil, errors.New("select message without selectors")
	}
	fallback := false
	for i, v := range variants {
		if len(v.Keys) != len(selectors) {
			return nil, fmt.Errorf("variant key count %d does not match %d selectors", len(v.Keys), len(selectors))
		}
		for _, prev := range variants[:i] {
			if keysEqual(prev.Keys, v.Keys) {
				return nil, fmt.Errorf("duplicate variant keys: %v", v.Keys)
			}
		}
		all := true
		for _, k := range v.Keys {
			if !k.Catchall {
				all = false
				break
			}
		}
		if all {
			fallback = true
		}
	}
	if !fallback {
		return nil, errors.New("missing all-catchall fallback variant")
	}
	return &SelectMessage{Declarations: declarations, Selectors: selectors, Variants: variants}, nil
}

// SelectorExpressions resolves each selector through the declarations.
func (m *SelectMessage) SelectorExpressions() []*Expression {
	exprs := make([]*Expression, len(m.Selectors))
	for i, sel := range m.Selectors {
		if expr, ok := m.Declarations.Get(sel.Name); ok {
			exprs[i] = expr
		}
	}
	return exprs
}

// IsEmpty reports whether all variant patterns are empty.
func (m *SelectMessage) IsEmpty() bool {
	for _, v := range m.Variants {
		if !v.Pattern.IsEmpty() {
			return false
		}
	}
	return true
}

// Property is a named sub-message of an entry, such as an attribute of a
// template-language term.
type Property struct {
	Name  string
	Value Message
}

// Entry is one resource record: an identifier, a message value, and any
// named sub-messages. Entries have no identity beyond the parse or
// serialize call that produced them.
type Entry struct {
	Id         []string
	Value      Message
	Properties []Property
}
