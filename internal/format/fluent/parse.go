// Package fluent implements the template-language message value adapter.
//
// A value is one message body: text with placeables, where a placeable may
// be an inline expression or a select expression whose variant bodies nest
// further selects. Parsing normalizes that selector tree into the flat
// multi-selector message shape; serialization reconstructs a minimal
// nested tree from the flat variant matrix.
package fluent

import (
	"regexp"
	"strconv"
	"strings"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

var numberLitRe = regexp.MustCompile(`^-?[0-9]+(?:\.[0-9]+)?`)

// Parse reads a message value. Grammar errors are structural and abort the
// call regardless of sink; normalization defects such as a selector
// classified both numeric and string report through the sink.
func Parse(source string, _ model.Message, sink format.Sink) (model.Message, error) {
	p := &parser{source: source}
	root, err := p.pattern(false)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.source) {
		return nil, p.defect("extra content at value end")
	}
	return normalize(root, source, sink)
}

type parser struct {
	source string
	pos    int
	// entryMode terminates top-level patterns at a line-head dot, where
	// an entry attribute begins.
	entryMode bool
}

func (p *parser) defect(msg string) *format.Defect {
	end := p.pos + 1
	if end > len(p.source) {
		end = len(p.source)
	}
	return format.ParseDefect(msg, p.pos, end)
}

// patItem is one lexed pattern piece: a text run, an element, or a line
// break carrying the indent of the following line. Indents are resolved
// against the pattern's common indent only once the pattern is complete.
type patItem struct {
	text   string
	el     element
	brk    bool
	blank  bool
	indent int
}

// pattern reads pattern content. Inside a variant the pattern ends at a
// closing brace or at a line starting a new variant key.
func (p *parser) pattern(inVariant bool) (*node, error) {
	var items []patItem

scan:
	for p.pos < len(p.source) {
		c := p.source[p.pos]
		switch {
		case c == '\n':
			p.pos++
			indent := 0
			for p.pos < len(p.source) && p.source[p.pos] == ' ' {
				p.pos++
				indent++
			}
			if p.pos >= len(p.source) {
				break scan
			}
			next := p.source[p.pos]
			if next == '\n' {
				items = append(items, patItem{brk: true, blank: true})
				continue
			}
			if inVariant && (next == '[' || next == '*' || next == '}') {
				break scan
			}
			if p.entryMode && !inVariant && next == '.' {
				break scan
			}
			items = append(items, patItem{brk: true, indent: indent})
		case c == '{':
			el, err := p.placeable()
			if err != nil {
				return nil, err
			}
			items = append(items, patItem{el: el})
		case inVariant && c == '}':
			break scan
		default:
			start := p.pos
			for p.pos < len(p.source) {
				c := p.source[p.pos]
				if c == '\n' || c == '{' || (inVariant && c == '}') {
					break
				}
				p.pos++
			}
			items = append(items, patItem{text: p.source[start:p.pos]})
		}
	}

	return assemble(items), nil
}

// assemble resolves line breaks into text. Leading and trailing breaks are
// dropped; the remaining continuation lines keep their indentation beyond
// the pattern's common indent.
func assemble(items []patItem) *node {
	start := 0
	for start < len(items) && items[start].brk {
		start++
	}
	end := len(items)
	for end > start && items[end-1].brk {
		end--
	}

	minIndent := -1
	for _, it := range items[:end] {
		if it.brk && !it.blank && (minIndent < 0 || it.indent < minIndent) {
			minIndent = it.indent
		}
	}
	if minIndent < 0 {
		minIndent = 0
	}

	n := &node{}
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			n.addText(text.String())
			text.Reset()
		}
	}
	for _, it := range items[start:end] {
		switch {
		case it.brk:
			text.WriteByte('\n')
			if !it.blank {
				text.WriteString(strings.Repeat(" ", it.indent-minIndent))
			}
		case it.el != nil:
			flush()
			n.elements = append(n.elements, it.el)
		default:
			text.WriteString(it.text)
		}
	}
	flush()
	return n
}

func (n *node) addText(s string) {
	if len(n.elements) > 0 {
		if t, ok := n.elements[len(n.elements)-1].(textElement); ok {
			n.elements[len(n.elements)-1] = textElement{value: t.value + s}
			return
		}
	}
	n.elements = append(n.elements, textElement{value: s})
}

func (p *parser) skipBlank() {
	for p.pos < len(p.source) {
		switch p.source[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) placeable() (element, error) {
	p.pos++ // {
	p.skipBlank()
	expr, err := p.inlineExpr()
	if err != nil {
		return nil, err
	}
	p.skipBlank()
	if strings.HasPrefix(p.source[p.pos:], "->") {
		p.pos += 2
		return p.selectTail(expr)
	}
	if p.pos < len(p.source) && p.source[p.pos] == '}' {
		p.pos++
		return expr, nil
	}
	return nil, p.defect("expected } to close placeable")
}

func (p *parser) selectTail(selector inlineExpr) (element, error) {
	sel := &selectElement{selector: selector}
	defaults := 0
	for {
		p.skipBlank()
		if p.pos >= len(p.source) {
			return nil, p.defect("unterminated select expression")
		}
		if p.source[p.pos] == '}' {
			p.pos++
			break
		}
		def := false
		if p.source[p.pos] == '*' {
			def = true
			defaults++
			p.pos++
		}
		if p.pos >= len(p.source) || p.source[p.pos] != '[' {
			return nil, p.defect("expected [ to start variant key")
		}
		p.pos++
		key, err := p.variantKey()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.source) || p.source[p.pos] != ']' {
			return nil, p.defect("expected ] to close variant key")
		}
		p.pos++
		for p.pos < len(p.source) && p.source[p.pos] == ' ' {
			p.pos++
		}
		body, err := p.pattern(true)
		if err != nil {
			return nil, err
		}
		sel.variants = append(sel.variants, variant{key: key, defaultMarker: def, body: body})
	}
	if len(sel.variants) == 0 {
		return nil, p.defect("select expression without variants")
	}
	if defaults != 1 {
		return nil, p.defect("select expression must have exactly one default variant")
	}
	return sel, nil
}

func (p *parser) variantKey() (variantKey, error) {
	for p.pos < len(p.source) && p.source[p.pos] == ' ' {
		p.pos++
	}
	if m := numberLitRe.FindString(p.source[p.pos:]); m != "" {
		p.pos += len(m)
		return variantKey{value: m, numeric: true}, nil
	}
	name := p.identifier()
	if name == "" {
		return variantKey{}, p.defect("expected variant key")
	}
	for p.pos < len(p.source) && p.source[p.pos] == ' ' {
		p.pos++
	}
	return variantKey{value: name}, nil
}

func (p *parser) identifier() string {
	start := p.pos
	if p.pos >= len(p.source) || !isAlpha(p.source[p.pos]) {
		return ""
	}
	p.pos++
	for p.pos < len(p.source) {
		c := p.source[p.pos]
		if isAlpha(c) || isDigit(c) || c == '_' || c == '-' {
			p.pos++
		} else {
			break
		}
	}
	return p.source[start:p.pos]
}

func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *parser) inlineExpr() (inlineExpr, error) {
	if p.pos >= len(p.source) {
		return nil, p.defect("expected expression")
	}
	c := p.source[p.pos]
	switch {
	case c == '"':
		return p.stringLiteral()
	case c == '$':
		p.pos++
		name := p.identifier()
		if name == "" {
			return nil, p.defect("expected variable name")
		}
		return variableRef{name: name}, nil
	case isDigit(c), c == '-' && p.pos+1 < len(p.source) && isDigit(p.source[p.pos+1]):
		m := numberLitRe.FindString(p.source[p.pos:])
		p.pos += len(m)
		return numberLiteral{value: m}, nil
	case c == '-':
		p.pos++
		return p.reference("-")
	case isAlpha(c):
		name := p.identifier()
		if p.pos < len(p.source) && p.source[p.pos] == '(' {
			return p.functionCall(name)
		}
		return p.referenceTail(name, "")
	}
	return nil, p.defect("expected expression")
}

// reference reads a message or term reference: an identifier, an optional
// .attribute, and for terms an optional argument list.
func (p *parser) reference(prefix string) (inlineExpr, error) {
	name := p.identifier()
	if name == "" {
		return nil, p.defect("expected reference name")
	}
	return p.referenceTail(name, prefix)
}

func (p *parser) referenceTail(name, prefix string) (inlineExpr, error) {
	full := prefix + name
	if p.pos < len(p.source) && p.source[p.pos] == '.' {
		p.pos++
		attr := p.identifier()
		if attr == "" {
			return nil, p.defect("expected attribute name")
		}
		full += "." + attr
	}
	ref := messageRef{name: full}
	if p.pos < len(p.source) && p.source[p.pos] == '(' {
		if prefix != "-" {
			return nil, p.defect("unexpected arguments on message reference")
		}
		_, named, err := p.callArgs()
		if err != nil {
			return nil, err
		}
		ref.options = named
	}
	return ref, nil
}

func (p *parser) functionCall(name string) (inlineExpr, error) {
	positional, named, err := p.callArgs()
	if err != nil {
		return nil, err
	}
	fn := &functionRef{name: name, named: named}
	if len(positional) > 1 {
		return nil, p.defect("function " + name + " has more than one positional argument")
	}
	if len(positional) == 1 {
		switch positional[0].(type) {
		case stringLiteral, numberLiteral, variableRef:
			fn.arg = positional[0]
		default:
			return nil, p.defect("unexpected positional argument for " + name)
		}
	}
	return fn, nil
}

func (p *parser) callArgs() (positional []inlineExpr, named []namedArg, err error) {
	p.pos++ // (
	for {
		p.skipBlank()
		if p.pos >= len(p.source) {
			return nil, nil, p.defect("unterminated argument list")
		}
		if p.source[p.pos] == ')' {
			p.pos++
			return positional, named, nil
		}
		save := p.pos
		isNamed := false
		var optName string
		if isAlpha(p.source[p.pos]) {
			optName = p.identifier()
			p.skipBlank()
			if p.pos < len(p.source) && p.source[p.pos] == ':' {
				isNamed = true
				p.pos++
				p.skipBlank()
			} else {
				p.pos = save
			}
		}
		if isNamed {
			value, err := p.literalValue()
			if err != nil {
				return nil, nil, err
			}
			named = append(named, namedArg{name: optName, value: value})
		} else {
			arg, err := p.inlineExpr()
			if err != nil {
				return nil, nil, err
			}
			positional = append(positional, arg)
		}
		p.skipBlank()
		if p.pos < len(p.source) && p.source[p.pos] == ',' {
			p.pos++
		}
	}
}

// literalValue reads a string or number literal used as an option value.
func (p *parser) literalValue() (string, error) {
	if p.pos >= len(p.source) {
		return "", p.defect("expected option value")
	}
	c := p.source[p.pos]
	if c == '"' {
		lit, err := p.stringLiteral()
		if err != nil {
			return "", err
		}
		return lit.(stringLiteral).value, nil
	}
	if m := numberLitRe.FindString(p.source[p.pos:]); m != "" {
		p.pos += len(m)
		return m, nil
	}
	return "", p.defect("expected literal option value")
}

func (p *parser) stringLiteral() (inlineExpr, error) {
	p.pos++ // "
	var sb strings.Builder
	for p.pos < len(p.source) {
		c := p.source[p.pos]
		switch c {
		case '"':
			p.pos++
			return stringLiteral{value: sb.String()}, nil
		case '\n':
			return nil, p.defect("unterminated string literal")
		case '\\':
			p.pos++
			if p.pos >= len(p.source) {
				return nil, p.defect("unterminated string literal")
			}
			esc := p.source[p.pos]
			switch esc {
			case '\\', '"':
				sb.WriteByte(esc)
				p.pos++
			case 'u', 'U':
				width := 4
				if esc == 'U' {
					width = 6
				}
				p.pos++
				if p.pos+width > len(p.source) {
					return nil, p.defect("invalid unicode escape")
				}
				n, err := strconv.ParseUint(p.source[p.pos:p.pos+width], 16, 32)
				if err != nil {
					return nil, p.defect("invalid unicode escape")
				}
				sb.WriteRune(rune(n))
				p.pos += width
			default:
				return nil, p.defect("unknown escape sequence")
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return nil, p.defect("unterminated string literal")
}
