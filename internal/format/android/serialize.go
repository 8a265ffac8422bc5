package android

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/beevik/etree"

	"msgconv/internal/format"
	"msgconv/internal/model"
	"msgconv/internal/scan"
)

// Serialize renders one string resource value. Patterns with markup build a
// real element tree and skip android escaping; plain patterns apply the
// character escapes and explicit unicode space escapes. Select messages
// have no single string value form and abort regardless of sink.
func Serialize(msg model.Message, sink format.Sink) (string, error) {
	pm, ok := msg.(*model.PatternMessage)
	if !ok {
		return "", format.SerializeDefect("select message has no string value form", 0)
	}
	for _, part := range pm.Pattern {
		if _, ok := model.AsMarkup(part); ok {
			return serializeMarkup(pm.Pattern, sink)
		}
	}
	return serializeString(pm.Pattern, sink)
}

func entityName(e *model.Expression) string {
	if e.Function != "entity" {
		return ""
	}
	if v, ok := e.Arg.(model.VariableRef); ok {
		return v.Name
	}
	return ""
}

func serializeString(pattern model.Pattern, sink format.Sink) (string, error) {
	protector := &scan.Protector{}
	var src strings.Builder
	for _, part := range pattern {
		switch part := part.(type) {
		case model.Text:
			// Literal percent signs double so the printf scan cannot
			// claim them on reparse.
			src.WriteString(strings.ReplaceAll(string(part), "%", "%%"))
		case *model.Expression:
			if name := entityName(part); name != "" {
				src.WriteString(protector.Protect("&" + name + ";"))
				continue
			}
			if s, ok := part.SourceAttr(); ok {
				src.WriteString(protector.Protect(s))
				continue
			}
			switch arg := part.Arg.(type) {
			case model.Literal:
				src.WriteString(strings.ReplaceAll(string(arg), "%", "%%"))
			case model.VariableRef:
				src.WriteString(arg.Name)
			default:
				if err := format.Report(sink, format.SerializeDefect("unsupported placeholder", src.Len())); err != nil {
					return "", err
				}
				src.WriteString(format.ErrorMarker)
			}
		}
	}
	escaped := xmlEscape(escapeString(src.String()))
	return protector.Restore(escaped), nil
}

// escapeString applies the android character escapes, then hex-escapes
// control characters and non-space whitespace. A space escapes to \u0020
// when whitespace collapsing would eat it on reparse: at the start or end
// of the value, and from the second space of every run.
func escapeString(src string) string {
	runes := []rune(src)
	first := len(runes)
	last := -1
	for i, r := range runes {
		if r != ' ' {
			if i < first {
				first = i
			}
			last = i
		}
	}

	var sb strings.Builder
	spaceRun := 0
	for i, r := range runes {
		if r != ' ' {
			spaceRun = 0
		}
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\'':
			sb.WriteString(`\'`)
		case r == '"':
			sb.WriteString(`\"`)
		case r == ' ':
			spaceRun++
			if i < first || i > last || spaceRun > 1 {
				sb.WriteString(`\u0020`)
			} else {
				sb.WriteByte(' ')
			}
		case r < 0x20 || r == 0x7F || unicode.IsSpace(r):
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func xmlEscape(src string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(src)
}

func serializeMarkup(pattern model.Pattern, sink format.Sink) (string, error) {
	protector := &scan.Protector{}
	doc := etree.NewDocument()
	root := doc.CreateElement("m")
	parent := root
	var open []*etree.Element

	outPos := func() int {
		s, _ := doc.WriteToString()
		return len(s)
	}

	for _, part := range pattern {
		switch part := part.(type) {
		case model.Text:
			parent.CreateText(string(part))
		case *model.Expression:
			if name := entityName(part); name != "" {
				parent.CreateText(protector.Protect("&" + name + ";"))
				continue
			}
			if s, ok := part.SourceAttr(); ok {
				parent.CreateText(protector.Protect(s))
				continue
			}
			if err := format.Report(sink, format.SerializeDefect("unsupported placeholder in markup", outPos())); err != nil {
				return "", err
			}
			parent.CreateText(format.ErrorMarker)
		case *model.Markup:
			switch part.Kind {
			case model.MarkupStandalone:
				el := parent.CreateElement(part.Name)
				setAttrs(el, part.Options)
			case model.MarkupOpen:
				el := parent.CreateElement(part.Name)
				setAttrs(el, part.Options)
				open = append(open, el)
				parent = el
			case model.MarkupClose:
				if len(open) == 0 || parent.Tag != part.Name {
					if err := format.Report(sink, format.SerializeDefect("improperly nested markup "+part.Name, outPos())); err != nil {
						return "", err
					}
					continue
				}
				open = open[:len(open)-1]
				if len(open) > 0 {
					parent = open[len(open)-1]
				} else {
					parent = root
				}
			}
		}
	}

	// Open elements are closed by the tree itself; still report each one.
	for i := len(open) - 1; i >= 0; i-- {
		if err := format.Report(sink, format.SerializeDefect("unclosed markup "+open[i].Tag, outPos())); err != nil {
			return "", err
		}
	}

	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("write element tree: %w", err)
	}
	out = strings.TrimPrefix(out, "<m>")
	out = strings.TrimSuffix(out, "</m>")
	if out == "<m/>" {
		out = ""
	}
	return protector.Restore(out), nil
}

func setAttrs(el *etree.Element, options model.Options) {
	for _, opt := range options {
		if lit, ok := opt.Value.(model.Literal); ok {
			el.CreateAttr(opt.Name, string(lit))
		} else if v, ok := opt.Value.(model.VariableRef); ok {
			el.CreateAttr(opt.Name, v.Name)
		}
	}
}
