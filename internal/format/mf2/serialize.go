package mf2

import (
	"regexp"
	"strings"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

var (
	complexStartRe = regexp.MustCompile(`^[\t\n\r \x{3000}]*\.`)
	textEscRe      = regexp.MustCompile(`[\\{}]`)
	literalEscRe   = regexp.MustCompile(`[\\|]`)
)

// Serialize renders a message in MessageFormat 2 syntax. Pattern data that
// has no valid MF2 form is reported as a serialize defect; with a sink the
// error marker is substituted and serialization continues.
func Serialize(msg model.Message, sink format.Sink) (string, error) {
	s := &serializer{sink: sink}
	switch msg := msg.(type) {
	case *model.PatternMessage:
		if len(msg.Declarations) == 0 && !startsComplex(msg.Pattern) {
			if err := s.pattern(msg.Pattern); err != nil {
				return "", err
			}
			return s.sb.String(), nil
		}
		if err := s.declarations(msg.Declarations); err != nil {
			return "", err
		}
		if err := s.quotedPattern(msg.Pattern); err != nil {
			return "", err
		}
	case *model.SelectMessage:
		if err := s.declarations(msg.Declarations); err != nil {
			return "", err
		}
		s.sb.WriteString(".match")
		for _, sel := range msg.Selectors {
			s.sb.WriteByte(' ')
			if err := s.variable(sel.Name); err != nil {
				return "", err
			}
		}
		for _, v := range msg.Variants {
			s.sb.WriteByte('\n')
			for _, key := range v.Keys {
				if key.Catchall {
					s.sb.WriteString("* ")
				} else {
					if err := s.literal(key.Value); err != nil {
						return "", err
					}
					s.sb.WriteByte(' ')
				}
			}
			if err := s.quotedPattern(v.Pattern); err != nil {
				return "", err
			}
		}
	}
	return s.sb.String(), nil
}

// A pattern whose leading text could be mistaken for a declaration keyword
// must be serialized in quoted form.
func startsComplex(pattern model.Pattern) bool {
	if len(pattern) == 0 {
		return false
	}
	text, ok := model.AsText(pattern[0])
	return ok && complexStartRe.MatchString(text)
}

type serializer struct {
	sb   strings.Builder
	sink format.Sink
}

func (s *serializer) fail(msg string) error {
	if err := format.Report(s.sink, format.SerializeDefect(msg, s.sb.Len())); err != nil {
		return err
	}
	s.sb.WriteString(format.ErrorMarker)
	return nil
}

func (s *serializer) declarations(declarations model.Declarations) error {
	for _, decl := range declarations {
		if decl.IsInput() {
			s.sb.WriteString(".input ")
		} else {
			s.sb.WriteString(".local ")
			if err := s.variable(decl.Name); err != nil {
				return err
			}
			s.sb.WriteString(" = ")
		}
		if err := s.expression(decl.Value); err != nil {
			return err
		}
		s.sb.WriteByte('\n')
	}
	return nil
}

func (s *serializer) quotedPattern(pattern model.Pattern) error {
	s.sb.WriteString("{{")
	if err := s.pattern(pattern); err != nil {
		return err
	}
	s.sb.WriteString("}}")
	return nil
}

func (s *serializer) pattern(pattern model.Pattern) error {
	for _, part := range pattern {
		var err error
		switch part := part.(type) {
		case model.Text:
			s.sb.WriteString(textEscRe.ReplaceAllString(string(part), `\$0`))
		case *model.Expression:
			err = s.expression(part)
		case *model.Markup:
			err = s.markup(part)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *serializer) expression(e *model.Expression) error {
	s.sb.WriteByte('{')
	if e.Arg != nil {
		if err := s.value(e.Arg); err != nil {
			return err
		}
	}
	if e.Function != "" {
		if !identFullRe.MatchString(e.Function) {
			if err := s.fail("invalid function name: " + e.Function); err != nil {
				return err
			}
		} else {
			if e.Arg != nil {
				s.sb.WriteByte(' ')
			}
			s.sb.WriteByte(':')
			s.sb.WriteString(e.Function)
		}
	} else if e.Arg == nil {
		if err := s.fail("expression with no operand and no function"); err != nil {
			return err
		}
	} else if len(e.Options) > 0 {
		if err := s.fail("expression with options but no function"); err != nil {
			return err
		}
	}
	if err := s.options(e.Options); err != nil {
		return err
	}
	if err := s.attributes(e.Attributes); err != nil {
		return err
	}
	s.sb.WriteByte('}')
	return nil
}

func (s *serializer) markup(m *model.Markup) error {
	if m.Kind == model.MarkupClose {
		s.sb.WriteString("{/")
	} else {
		s.sb.WriteString("{#")
	}
	if !identFullRe.MatchString(m.Name) {
		if err := s.fail("invalid markup name: " + m.Name); err != nil {
			return err
		}
	} else {
		s.sb.WriteString(m.Name)
	}
	if err := s.options(m.Options); err != nil {
		return err
	}
	if err := s.attributes(m.Attributes); err != nil {
		return err
	}
	if m.Kind == model.MarkupStandalone {
		s.sb.WriteString(" /}")
	} else {
		s.sb.WriteByte('}')
	}
	return nil
}

func (s *serializer) options(options model.Options) error {
	for _, opt := range options {
		if !identFullRe.MatchString(opt.Name) {
			if err := s.fail("invalid option name: " + opt.Name); err != nil {
				return err
			}
			continue
		}
		s.sb.WriteByte(' ')
		s.sb.WriteString(opt.Name)
		s.sb.WriteByte('=')
		if err := s.value(opt.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *serializer) attributes(attributes model.Attributes) error {
	for _, attr := range attributes {
		if !identFullRe.MatchString(attr.Name) {
			if err := s.fail("invalid attribute name: " + attr.Name); err != nil {
				return err
			}
			continue
		}
		s.sb.WriteString(" @")
		s.sb.WriteString(attr.Name)
		if attr.HasValue {
			s.sb.WriteByte('=')
			if err := s.literal(attr.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *serializer) value(v model.Value) error {
	switch v := v.(type) {
	case model.Literal:
		return s.literal(string(v))
	case model.VariableRef:
		return s.variable(v.Name)
	}
	return s.fail("invalid value")
}

func (s *serializer) variable(name string) error {
	if !nameFullRe.MatchString(name) {
		return s.fail("invalid variable name: " + name)
	}
	s.sb.WriteByte('$')
	s.sb.WriteString(name)
	return nil
}

func (s *serializer) literal(literal string) error {
	if nameFullRe.MatchString(literal) || numberFullRe.MatchString(literal) {
		s.sb.WriteString(literal)
		return nil
	}
	s.sb.WriteByte('|')
	s.sb.WriteString(literalEscRe.ReplaceAllString(literal, `\$0`))
	s.sb.WriteByte('|')
	return nil
}
