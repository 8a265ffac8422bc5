package fluent

import (
	"fmt"
	"regexp"
	"strings"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

var numberFullRe = regexp.MustCompile(`^-?[0-9]+(?:\.[0-9]+)?$`)

// Serialize renders a message value. Pattern messages render inline;
// select messages reconstruct a nested selector tree from the flat
// variant matrix.
func Serialize(msg model.Message, sink format.Sink) (string, error) {
	switch msg := msg.(type) {
	case *model.PatternMessage:
		return renderPattern(msg.Pattern, msg.Declarations, sink)
	case *model.SelectMessage:
		return reconstruct(msg, sink)
	}
	return "", format.SerializeDefect("unsupported message shape", 0)
}

func renderPattern(pattern model.Pattern, decls model.Declarations, sink format.Sink) (string, error) {
	var sb strings.Builder
	for i, part := range pattern {
		switch part := part.(type) {
		case model.Text:
			writeText(&sb, string(part), i == len(pattern)-1)
		case *model.Expression:
			s, err := renderExpression(part, decls, sink, sb.Len())
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
		case *model.Markup:
			d := format.SerializeDefect("markup has no template form", sb.Len())
			if err := format.Report(sink, d); err != nil {
				return "", err
			}
			sb.WriteString(format.ErrorMarker)
		}
	}
	return sb.String(), nil
}

// writeText writes a text run. Braces cannot appear in template text and
// escape to string-literal placeables; a newline does the same wherever
// reparsing would drop or reindent it, so text content always survives a
// round trip.
func writeText(sb *strings.Builder, s string, last bool) {
	for i, r := range s {
		switch r {
		case '{':
			sb.WriteString("{ " + quoteLiteral("{") + " }")
		case '}':
			sb.WriteString("{ " + quoteLiteral("}") + " }")
		case '\n':
			if newlineSafe(sb.Len(), s, i, last) {
				sb.WriteByte('\n')
			} else {
				sb.WriteString("{ " + quoteLiteral("\n") + " }")
			}
		default:
			sb.WriteRune(r)
		}
	}
}

// newlineSafe reports whether a raw newline at byte i of s survives
// reparsing intact. Unsafe positions: the head of the value (leading
// breaks are dropped), the tail (trailing breaks are dropped), before a
// space (continuation indent is stripped against the common indent), and
// before a character that reads as a variant key or attribute marker at
// the head of a line.
func newlineSafe(written int, s string, i int, last bool) bool {
	if written == 0 {
		return false
	}
	if i+1 >= len(s) {
		// A following placeable keeps the line non-empty.
		return !last
	}
	switch s[i+1] {
	case ' ', '.', '[', '*':
		return false
	}
	return true
}

func renderExpression(e *model.Expression, decls model.Declarations, sink format.Sink, outPos int) (string, error) {
	if v, ok := e.Arg.(model.VariableRef); ok {
		if decl, ok := decls.Get(v.Name); ok && e.Function == "" {
			return "{ " + renderSelector(decl) + " }", nil
		}
		if e.Function == "" {
			return "{ $" + v.Name + " }", nil
		}
		return "{ " + renderCall(e.Function, "$"+v.Name, e.Options) + " }", nil
	}
	if lit, ok := e.Arg.(model.Literal); ok {
		switch {
		case e.Function == "message":
			if len(e.Options) == 0 {
				return "{ " + string(lit) + " }", nil
			}
			return "{ " + string(lit) + "(" + renderOptions(e.Options) + ") }", nil
		case e.Function == "number" && numberFullRe.MatchString(string(lit)):
			return "{ " + string(lit) + " }", nil
		case e.Function == "":
			return "{ " + quoteLiteral(string(lit)) + " }", nil
		default:
			return "{ " + renderCall(e.Function, quoteLiteral(string(lit)), e.Options) + " }", nil
		}
	}
	if e.Function != "" {
		return "{ " + renderCall(e.Function, "", e.Options) + " }", nil
	}
	d := format.SerializeDefect("placeholder without value or function", outPos)
	if err := format.Report(sink, d); err != nil {
		return "", err
	}
	return format.ErrorMarker, nil
}

// renderSelector renders a declaration expression the way it appears in
// selector position. Synthesized numeric and string annotations on a plain
// variable are dropped, message references render bare, and anything else
// renders as a function call.
func renderSelector(e *model.Expression) string {
	if v, ok := e.Arg.(model.VariableRef); ok {
		switch e.Function {
		case "", "number", "string":
			if len(e.Options) == 0 {
				return "$" + v.Name
			}
		}
		return renderCall(e.Function, "$"+v.Name, e.Options)
	}
	if lit, ok := e.Arg.(model.Literal); ok {
		if e.Function == "message" {
			if len(e.Options) == 0 {
				return string(lit)
			}
			return string(lit) + "(" + renderOptions(e.Options) + ")"
		}
		return renderCall(e.Function, quoteLiteral(string(lit)), e.Options)
	}
	return renderCall(e.Function, "", e.Options)
}

func renderCall(fn, arg string, options model.Options) string {
	var sb strings.Builder
	sb.WriteString(upperASCII(fn))
	sb.WriteByte('(')
	sb.WriteString(arg)
	if len(options) > 0 {
		if arg != "" {
			sb.WriteString(", ")
		}
		sb.WriteString(renderOptions(options))
	}
	sb.WriteByte(')')
	return sb.String()
}

func renderOptions(options model.Options) string {
	var sb strings.Builder
	for i, opt := range options {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(opt.Name)
		sb.WriteString(": ")
		switch v := opt.Value.(type) {
		case model.Literal:
			if numberFullRe.MatchString(string(v)) {
				sb.WriteString(string(v))
			} else {
				sb.WriteString(quoteLiteral(string(v)))
			}
		case model.VariableRef:
			sb.WriteString("$" + v.Name)
		}
	}
	return sb.String()
}

// quoteLiteral renders a quoted string literal, escaping backslash and
// quote characters and hex-escaping control characters and newlines.
func quoteLiteral(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '"':
			sb.WriteString(`\"`)
		case r < 0x20 || r == 0x7F:
			fmt.Fprintf(&sb, `\u%04X`, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
