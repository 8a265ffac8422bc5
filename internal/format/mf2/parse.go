package mf2

import (
	"errors"
	"strings"
	"unicode/utf8"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

// Parse reads a message in MessageFormat 2 syntax. With a sink, the first
// grammar defect is reported through it and the best-effort partial message
// is returned; without one the defect aborts the call.
func Parse(source string, _ model.Message, sink format.Sink) (model.Message, error) {
	p := &parser{source: source}
	msg, err := p.message()
	if err != nil {
		var d *format.Defect
		if !errors.As(err, &d) {
			return nil, err
		}
		if rerr := format.Report(sink, d); rerr != nil {
			return nil, rerr
		}
		if msg == nil {
			msg = &model.PatternMessage{}
		}
	}
	return msg, nil
}

type parser struct {
	source string
	pos    int
}

func (p *parser) defect(msg string) *format.Defect {
	end := p.pos + 1
	if end > len(p.source) {
		end = len(p.source)
	}
	return format.ParseDefect(msg, p.pos, end)
}

func (p *parser) message() (model.Message, error) {
	ch := p.skipOptSpace()
	var msg model.Message
	var err error
	if ch == '.' {
		msg, err = p.complexMessage()
	} else if strings.HasPrefix(p.source[p.pos:], "{{") {
		var pattern model.Pattern
		pattern, err = p.quotedPattern()
		msg = &model.PatternMessage{Pattern: pattern}
	} else {
		p.pos = 0
		var pattern model.Pattern
		pattern, err = p.pattern()
		msg = &model.PatternMessage{Pattern: pattern}
	}
	if err != nil {
		return msg, err
	}
	if p.pos != len(p.source) {
		return msg, p.defect("extra content at message end")
	}
	return msg, nil
}

func (p *parser) complexMessage() (model.Message, error) {
	declarations := model.Declarations{}
	declared := map[string]bool{}
	keyword := ""
	for {
		keyword = p.peekKeyword()
		var name string
		var expr *model.Expression
		var err error
		if keyword == ".input" {
			name, expr, err = p.inputDeclaration()
		} else if keyword == ".local" {
			name, expr, err = p.localDeclaration()
			if err == nil {
				if v, ok := expr.Arg.(model.VariableRef); ok {
					declared[v.Name] = true
				}
			}
		} else {
			break
		}
		if err != nil {
			return &model.PatternMessage{Declarations: declarations}, err
		}
		if expr.Function != "" {
			for _, opt := range expr.Options {
				if v, ok := opt.Value.(model.VariableRef); ok {
					declared[v.Name] = true
				}
			}
		}
		if declared[name] {
			return &model.PatternMessage{Declarations: declarations},
				p.defect("duplicate declaration for $" + name)
		}
		declarations = append(declarations, model.Declaration{Name: name, Value: expr})
		declared[name] = true
		p.skipOptSpace()
	}

	if keyword == ".match" {
		return p.selectMessage(declarations)
	}
	pattern, err := p.quotedPattern()
	return &model.PatternMessage{Declarations: declarations, Pattern: pattern}, err
}

func (p *parser) selectMessage(declarations model.Declarations) (model.Message, error) {
	selectors, err := p.matchStatement()
	partial := &model.SelectMessage{Declarations: declarations, Selectors: selectors}
	if err != nil {
		return partial, err
	}
	for _, sel := range selectors {
		selName := sel.Name
		selExpr, _ := declarations.Get(selName)
		for selExpr != nil && selExpr.Function == "" {
			if v, ok := selExpr.Arg.(model.VariableRef); ok && v.Name != selName {
				selName = v.Name
				selExpr, _ = declarations.Get(selName)
			} else {
				selExpr = nil
			}
		}
		if selExpr == nil {
			return partial, p.defect("missing selector annotation for $" + sel.Name)
		}
	}

	var variants []model.Variant
	hasFallback := false
	for p.pos < len(p.source) {
		keys, pattern, err := p.variant(len(selectors))
		if err != nil {
			partial.Variants = variants
			return partial, err
		}
		allCatchall := true
		for _, v := range variants {
			match := len(v.Keys) == len(keys)
			for j := 0; match && j < len(keys); j++ {
				match = v.Keys[j].Equal(keys[j])
			}
			if match {
				partial.Variants = variants
				return partial, p.defect("duplicate variant keys")
			}
		}
		for _, k := range keys {
			if !k.Catchall {
				allCatchall = false
			}
		}
		if allCatchall {
			hasFallback = true
		}
		variants = append(variants, model.Variant{Keys: keys, Pattern: pattern})
	}
	partial.Variants = variants
	if !hasFallback {
		return partial, p.defect("missing fallback variant")
	}
	return partial, nil
}

func (p *parser) peekKeyword() string {
	end := p.pos + 6
	if end > len(p.source) {
		end = len(p.source)
	}
	return p.source[p.pos:end]
}

func (p *parser) inputDeclaration() (string, *model.Expression, error) {
	p.pos += len(".input")
	ch := p.skipOptSpace()
	if err := p.expect('{', ch); err != nil {
		return "", nil, err
	}
	part, err := p.expressionOrMarkup()
	if err != nil {
		return "", nil, err
	}
	expr, ok := part.(*model.Expression)
	if !ok {
		return "", nil, p.defect("variable argument required for .input")
	}
	v, ok := expr.Arg.(model.VariableRef)
	if !ok {
		return "", nil, p.defect("variable argument required for .input")
	}
	return v.Name, expr, nil
}

func (p *parser) localDeclaration() (string, *model.Expression, error) {
	p.pos += len(".local")
	if !p.reqSpace() || p.char() != '$' {
		return "", nil, p.defect("expected $ with leading space")
	}
	name, err := p.name(1)
	if err != nil {
		return "", nil, err
	}
	if err := p.expect('=', p.skipOptSpace()); err != nil {
		return "", nil, err
	}
	if err := p.expect('{', p.skipOptSpace()); err != nil {
		return "", nil, err
	}
	part, err := p.expressionOrMarkup()
	if err != nil {
		return "", nil, err
	}
	expr, ok := part.(*model.Expression)
	if !ok {
		return "", nil, p.defect("markup is not a valid .local value")
	}
	if v, ok := expr.Arg.(model.VariableRef); ok && v.Name == name {
		return "", nil, p.defect("a .local declaration cannot be self-referential")
	}
	return name, expr, nil
}

func (p *parser) matchStatement() ([]model.VariableRef, error) {
	p.pos += len(".match")
	var names []string
	hasSpace := false
	for {
		hasSpace = p.reqSpace()
		if !hasSpace || p.char() != '$' {
			break
		}
		name, err := p.name(1)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, p.defect("at least one variable reference is required for .match")
	}
	if !hasSpace {
		return nil, p.defect("expected space")
	}
	selectors := make([]model.VariableRef, len(names))
	for i, name := range names {
		selectors[i] = model.VariableRef{Name: name}
	}
	return selectors, nil
}

func (p *parser) variant(numSel int) ([]model.Key, model.Pattern, error) {
	var keys []model.Key
	ch := p.char()
	for ch != '{' && ch != 0 {
		if ch == '*' {
			keys = append(keys, model.Catchall(""))
			p.pos++
		} else {
			lit, err := p.literal()
			if err != nil {
				return keys, nil, err
			}
			keys = append(keys, model.Key{Value: lit})
		}
		if !p.reqSpace() {
			break
		}
		ch = p.char()
	}
	if len(keys) != numSel {
		return keys, nil, p.defect("variant key mismatch")
	}
	pattern, err := p.quotedPattern()
	return keys, pattern, err
}

func (p *parser) quotedPattern() (model.Pattern, error) {
	if !strings.HasPrefix(p.source[p.pos:], "{{") {
		return nil, p.defect("expected {{")
	}
	p.pos += 2
	pattern, err := p.pattern()
	if err != nil {
		return pattern, err
	}
	if !strings.HasPrefix(p.source[p.pos:], "}}") {
		return pattern, p.defect("expected }}")
	}
	p.pos += 2
	p.skipOptSpace()
	return pattern, nil
}

func (p *parser) pattern() (model.Pattern, error) {
	var pattern model.Pattern
	ch := p.char()
	for ch != 0 && ch != '}' {
		if ch == '{' {
			p.pos++
			part, err := p.expressionOrMarkup()
			if err != nil {
				return pattern, err
			}
			pattern.Add(part)
		} else {
			text, err := p.text()
			pattern.AddText(text)
			if err != nil {
				return pattern, err
			}
		}
		ch = p.char()
	}
	return pattern, nil
}

func (p *parser) text() (string, error) {
	var sb strings.Builder
	atEsc := false
	for p.pos < len(p.source) {
		r, n := utf8.DecodeRuneInString(p.source[p.pos:])
		if atEsc {
			if !isEscapable(r) {
				return sb.String(), p.defect(`invalid escape \` + string(r))
			}
			sb.WriteRune(r)
			atEsc = false
		} else if r == 0 {
			return sb.String(), p.defect("NUL character is not allowed")
		} else if r == '\\' {
			atEsc = true
		} else if r == '{' || r == '}' {
			break
		} else {
			sb.WriteRune(r)
		}
		p.pos += n
	}
	return sb.String(), nil
}

func (p *parser) expressionOrMarkup() (model.Part, error) {
	ch := p.skipOptSpace()
	var part model.Part
	var err error
	if ch == '#' || ch == '/' {
		part, err = p.markupBody(ch)
	} else {
		part, err = p.expressionBody(ch)
	}
	if err != nil {
		return part, err
	}
	if err := p.expect('}', 0); err != nil {
		return part, err
	}
	return part, nil
}

func (p *parser) expressionBody(ch rune) (*model.Expression, error) {
	var arg model.Value
	argEnd := p.pos
	if ch == '$' {
		v, err := p.variable()
		if err != nil {
			return nil, err
		}
		arg = v
		argEnd = p.pos
		ch = p.skipOptSpace()
	} else if ch != ':' {
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		arg = model.Literal(lit)
		argEnd = p.pos
		ch = p.skipOptSpace()
	}
	var function string
	var options model.Options
	if ch == ':' {
		if arg != nil && p.pos == argEnd {
			return nil, p.defect("expected space")
		}
		var err error
		function, err = p.identifier(1)
		if err != nil {
			return nil, err
		}
		options, err = p.options()
		if err != nil {
			return nil, err
		}
	} else {
		p.pos = argEnd
	}
	attributes, err := p.attributes()
	if err != nil {
		return nil, err
	}
	p.skipOptSpace()
	return &model.Expression{Arg: arg, Function: function, Options: options, Attributes: attributes}, nil
}

func (p *parser) markupBody(ch rune) (*model.Markup, error) {
	var kind model.MarkupKind
	switch ch {
	case '#':
		kind = model.MarkupOpen
	case '/':
		kind = model.MarkupClose
	default:
		return nil, p.defect("expected # or /")
	}
	name, err := p.identifier(1)
	if err != nil {
		return nil, err
	}
	options, err := p.options()
	if err != nil {
		return nil, err
	}
	attributes, err := p.attributes()
	if err != nil {
		return nil, err
	}
	if p.skipOptSpace() == '/' {
		if kind != model.MarkupOpen {
			return nil, p.defect("expected }")
		}
		kind = model.MarkupStandalone
		p.pos++
	}
	return &model.Markup{Kind: kind, Name: name, Options: options, Attributes: attributes}, nil
}

func (p *parser) options() (model.Options, error) {
	var options model.Options
	optEnd := p.pos
	for p.reqSpace() {
		ch := p.char()
		if ch == 0 || ch == '@' || ch == '/' || ch == '}' {
			p.pos = optEnd
			break
		}
		id, err := p.identifier(0)
		if err != nil {
			return options, err
		}
		if _, dup := options.Get(id); dup {
			return options, p.defect("duplicate option name " + id)
		}
		if err := p.expect('=', p.skipOptSpace()); err != nil {
			return options, err
		}
		var value model.Value
		if p.skipOptSpace() == '$' {
			value, err = p.variable()
		} else {
			var lit string
			lit, err = p.literal()
			value = model.Literal(lit)
		}
		if err != nil {
			return options, err
		}
		options = append(options, model.Option{Name: id, Value: value})
		optEnd = p.pos
	}
	return options, nil
}

func (p *parser) attributes() (model.Attributes, error) {
	var attributes model.Attributes
	attrEnd := p.pos
	for p.reqSpace() {
		if p.char() != '@' {
			p.pos = attrEnd
			break
		}
		id, err := p.identifier(1)
		if err != nil {
			return attributes, err
		}
		idEnd := p.pos
		if _, dup := attributes.Get(id); dup {
			return attributes, p.defect("duplicate attribute name " + id)
		}
		if p.skipOptSpace() == '=' {
			p.pos++
			p.skipOptSpace()
			lit, err := p.literal()
			if err != nil {
				return attributes, err
			}
			attributes = append(attributes, model.Attribute{Name: id, Value: lit, HasValue: true})
		} else {
			p.pos = idEnd
			attributes = append(attributes, model.Attribute{Name: id})
		}
		attrEnd = p.pos
	}
	return attributes, nil
}

func (p *parser) variable() (model.VariableRef, error) {
	name, err := p.name(1)
	if err != nil {
		return model.VariableRef{}, err
	}
	return model.VariableRef{Name: name}, nil
}

func (p *parser) literal() (string, error) {
	if p.char() == '|' {
		return p.quotedLiteral()
	}
	return p.unquotedLiteral()
}

func (p *parser) quotedLiteral() (string, error) {
	p.pos++
	var sb strings.Builder
	atEsc := false
	for p.pos < len(p.source) {
		r, n := utf8.DecodeRuneInString(p.source[p.pos:])
		p.pos += n
		if atEsc {
			if !isEscapable(r) {
				return sb.String(), p.defect(`invalid escape \` + string(r))
			}
			sb.WriteRune(r)
			atEsc = false
		} else if r == 0 {
			return sb.String(), p.defect("NUL character is not allowed")
		} else if r == '\\' {
			atEsc = true
		} else if r == '|' {
			return sb.String(), nil
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String(), p.defect("expected |")
}

func (p *parser) unquotedLiteral() (string, error) {
	rest := p.source[p.pos:]
	loc := numberRe.FindStringIndex(rest)
	if loc == nil {
		loc = nameRe.FindStringIndex(rest)
	}
	if loc == nil {
		return "", p.defect("invalid name or number")
	}
	value := rest[:loc[1]]
	p.pos += loc[1]
	return value, nil
}

func (p *parser) identifier(offset int) (string, error) {
	ns, err := p.name(offset)
	if err != nil {
		return "", err
	}
	if p.char() != ':' {
		return ns, nil
	}
	name, err := p.name(1)
	if err != nil {
		return "", err
	}
	return ns + ":" + name, nil
}

func (p *parser) name(offset int) (string, error) {
	p.pos += offset
	p.skipBidi()
	loc := nameRe.FindStringIndex(p.source[p.pos:])
	if loc == nil {
		return "", p.defect("invalid name")
	}
	name := p.source[p.pos : p.pos+loc[1]]
	p.pos += loc[1]
	p.skipBidi()
	return name, nil
}

func (p *parser) reqSpace() bool {
	start := p.pos
	ch := p.skipBidi()
	if !isSpace(ch) {
		p.pos = start
		return false
	}
	for isSpace(ch) || isBidi(ch) {
		p.advance()
		ch = p.char()
	}
	return true
}

func (p *parser) skipOptSpace() rune {
	ch := p.char()
	for isSpace(ch) || isBidi(ch) {
		p.advance()
		ch = p.char()
	}
	return ch
}

func (p *parser) skipBidi() rune {
	ch := p.char()
	for isBidi(ch) {
		p.advance()
		ch = p.char()
	}
	return ch
}

// expect advances past exp. When ch is non-zero it is the character already
// looked at by the caller; otherwise the current character is checked.
func (p *parser) expect(exp rune, ch rune) error {
	c := ch
	if c == 0 {
		c = p.char()
	}
	if c != exp {
		return p.defect("expected " + string(exp))
	}
	p.pos++
	return nil
}

func (p *parser) char() rune {
	if p.pos >= len(p.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(p.source[p.pos:])
	return r
}

func (p *parser) advance() {
	if p.pos < len(p.source) {
		_, n := utf8.DecodeRuneInString(p.source[p.pos:])
		p.pos += n
	}
}
