// Package webext implements the messages.json placeholder format adapter.
//
// Named placeholders like $URL$ have no meaning on their own; their content
// comes from the placeholders object of the containing message. The parse
// contract passes that context in as the base message's declarations.
package webext

import (
	"regexp"
	"strings"

	"msgconv/internal/format"
	"msgconv/internal/model"
	"msgconv/internal/scan"
)

var (
	posArgRe  = regexp.MustCompile(`^\$([1-9])$`)
	dollarsRe = regexp.MustCompile(`\$+`)
)

// Parse reads a messages.json message string. Named $NAME$ placeholders are
// resolved through the base message's declarations; an unresolvable name is
// a parse defect, and with a sink the matched text is kept as literal text.
func Parse(source string, base model.Message, sink format.Sink) (model.Message, error) {
	var baseDecls model.Declarations
	switch base := base.(type) {
	case *model.PatternMessage:
		baseDecls = base.Declarations
	case *model.SelectMessage:
		baseDecls = base.Declarations
	}

	var pattern model.Pattern
	var declarations model.Declarations
	resolved := map[string]string{} // lowercased source name -> declaration name

	var rs scan.Ruleset
	var abort error
	rs.Rule(`\$([a-zA-Z0-9_@]+)\$`, func(m scan.Match) error {
		key := strings.ToLower(m.Groups[1])
		name, ok := resolved[key]
		if !ok {
			decl, found := lookupDeclaration(baseDecls, key)
			if !found {
				if err := format.Report(sink, format.ParseDefect(
					"missing placeholders entry for "+key, m.Start, m.End)); err != nil {
					abort = err
					return err
				}
				pattern.AddText(m.Groups[0])
				return nil
			}
			name = placeholderName(m.Groups[1])
			declarations = append(declarations, model.Declaration{Name: name, Value: decl})
			resolved[key] = name
		}
		pattern.Add(&model.Expression{
			Arg:        model.VariableRef{Name: name},
			Attributes: model.Attributes{{Name: "source", Value: m.Groups[0], HasValue: true}},
		})
		return nil
	})
	rs.Rule(`\$[1-9]`, func(m scan.Match) error {
		pattern.Add(&model.Expression{
			Arg:        model.VariableRef{Name: "arg" + m.Groups[0][1:]},
			Attributes: model.Attributes{{Name: "source", Value: m.Groups[0], HasValue: true}},
		})
		return nil
	})
	rs.Rule(`\$(\$+)`, func(m scan.Match) error {
		pattern.AddText(m.Groups[1])
		return nil
	})

	err := rs.Split(source, func(s string, start, end int) error {
		pattern.AddText(s)
		return nil
	})
	if err != nil {
		if abort != nil {
			return nil, abort
		}
		return nil, err
	}
	return &model.PatternMessage{Declarations: declarations, Pattern: pattern}, nil
}

// ParseContent converts one placeholder content string into the declaration
// expression the parse contract expects on the base message: $n content
// becomes an indexed argN variable, anything else a literal.
func ParseContent(content, example string) *model.Expression {
	var expr *model.Expression
	if m := posArgRe.FindStringSubmatch(content); m != nil {
		expr = &model.Expression{
			Arg:        model.VariableRef{Name: "arg" + m[1]},
			Attributes: model.Attributes{{Name: "source", Value: content, HasValue: true}},
		}
	} else {
		expr = &model.Expression{Arg: model.Literal(content)}
	}
	if example != "" {
		expr.Attributes = append(expr.Attributes, model.Attribute{Name: "example", Value: example, HasValue: true})
	}
	return expr
}

func lookupDeclaration(decls model.Declarations, lowerName string) (*model.Expression, bool) {
	for _, d := range decls {
		if strings.ToLower(d.Name) == lowerName {
			return d.Value, true
		}
	}
	return nil, false
}

func placeholderName(source string) string {
	name := strings.ReplaceAll(source, "@", "_")
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// Serialize renders a message as a messages.json message string. Literal
// dollar signs double, and variable placeholders render from their source
// attribute or declaration name. Markup and annotated placeholders are
// serialize defects; select messages have no messages.json form at all and
// abort regardless of sink.
func Serialize(msg model.Message, sink format.Sink) (string, error) {
	pm, ok := msg.(*model.PatternMessage)
	if !ok {
		return "", format.SerializeDefect("select message has no messages.json form", 0)
	}
	var sb strings.Builder
	fail := func(msg string) error {
		if err := format.Report(sink, format.SerializeDefect(msg, sb.Len())); err != nil {
			return err
		}
		sb.WriteString(format.ErrorMarker)
		return nil
	}
	for _, part := range pm.Pattern {
		switch part := part.(type) {
		case model.Text:
			sb.WriteString(dollarsRe.ReplaceAllString(string(part), `$$$0`))
		case *model.Expression:
			v, isVar := part.Arg.(model.VariableRef)
			if !isVar || part.Function != "" {
				if err := fail("unsupported placeholder"); err != nil {
					return "", err
				}
				continue
			}
			source, hasSource := part.SourceAttr()
			if local, ok := pm.Declarations.Get(v.Name); ok {
				if local.Function != "" {
					if err := fail("unsupported annotation for " + v.Name); err != nil {
						return "", err
					}
					continue
				}
				if hasSource && len(source) >= 3 && strings.HasPrefix(source, "$") && strings.HasSuffix(source, "$") {
					sb.WriteString(source)
				} else {
					sb.WriteString("$" + v.Name + "$")
				}
			} else {
				name := v.Name
				if hasSource {
					name = source
				}
				if !strings.HasPrefix(name, "$") {
					sb.WriteString("$")
				}
				sb.WriteString(name)
			}
		case *model.Markup:
			if err := fail("unsupported markup"); err != nil {
				return "", err
			}
		}
	}
	return sb.String(), nil
}
