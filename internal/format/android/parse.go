// Package android implements the strings.xml message value adapter.
//
// A value string mixes several inline layers: XML entities, android
// character escapes, printf placeholders, escaped HTML, and optional real
// child elements. Parsing decodes all of them into the canonical pattern;
// serialization applies explicit unicode escapes for whitespace instead of
// the legacy outer double-quote rewrite.
package android

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/beevik/etree"

	"msgconv/internal/format"
	"msgconv/internal/model"
	"msgconv/internal/scan"
)

var (
	entityRe      = regexp.MustCompile(`&([A-Za-z_][A-Za-z0-9._-]*);`)
	resourceRefRe = regexp.MustCompile(`^(?:@(?:\w+:)?\w+/\w+|\?(?:\w+:)?(?:\w+/)?\w+)$`)
)

func isPredefinedEntity(name string) bool {
	switch name {
	case "amp", "lt", "gt", "apos", "quot":
		return true
	}
	return false
}

// Parse reads one string resource value. Whitespace runs collapse outside
// double-quoted spans; NBSP counts as collapsible whitespace.
func Parse(source string, base model.Message, sink format.Sink) (model.Message, error) {
	return parse(source, sink, false)
}

// ParseASCIISpaces is Parse with only ASCII whitespace treated as
// collapsible, leaving NBSP and other unicode spaces intact.
func ParseASCIISpaces(source string, base model.Message, sink format.Sink) (model.Message, error) {
	return parse(source, sink, true)
}

func parse(source string, sink format.Sink, asciiSpaces bool) (model.Message, error) {
	// Custom entity references cannot survive an XML parse; stand each in
	// with a protection token first.
	protector := &scan.Protector{}
	protected := entityRe.ReplaceAllStringFunc(source, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if isPredefinedEntity(name) {
			return ref
		}
		return protector.Protect(ref)
	})

	doc := etree.NewDocument()
	if err := doc.ReadFromString("<m>" + protected + "</m>"); err != nil {
		// Malformed XML is irrecoverable regardless of sink.
		return nil, format.ParseDefect("malformed XML: "+err.Error(), 0, len(source))
	}
	root := doc.Root()

	hasElements := false
	for _, child := range root.Child {
		if _, ok := child.(*etree.Element); ok {
			hasElements = true
			break
		}
	}

	var pattern model.Pattern
	if !hasElements {
		var text strings.Builder
		for _, child := range root.Child {
			if cd, ok := child.(*etree.CharData); ok {
				text.WriteString(cd.Data)
			}
		}
		src := text.String()
		if protector.Restore(src) == src && resourceRefRe.MatchString(src) {
			pattern.Add(&model.Expression{Arg: model.VariableRef{Name: src}, Function: "reference"})
			return &model.PatternMessage{Pattern: pattern}, nil
		}
		if err := parseInline(collapseSpaces(src, asciiSpaces), protector, &pattern, sink); err != nil {
			return nil, err
		}
	} else {
		// Real child elements: markup passes through without android
		// escape handling.
		if err := parseNodes(root, protector, &pattern); err != nil {
			return nil, err
		}
	}
	return &model.PatternMessage{Pattern: pattern}, nil
}

// collapseSpaces collapses whitespace runs to a single space outside
// "double quoted" spans. The quotes themselves are dropped.
func collapseSpaces(src string, asciiSpaces bool) string {
	collapsible := func(r rune) bool {
		if asciiSpaces {
			switch r {
			case ' ', '\t', '\n', '\r', '\f', '\v':
				return true
			}
			return false
		}
		return unicode.IsSpace(r)
	}

	var sb strings.Builder
	inQuote := false
	escaped := false
	inRun := false
	for _, r := range src {
		if escaped {
			sb.WriteRune(r)
			escaped = false
			inRun = false
			continue
		}
		if r == '\\' {
			sb.WriteRune(r)
			escaped = true
			inRun = false
			continue
		}
		if r == '"' {
			inQuote = !inQuote
			inRun = false
			continue
		}
		if !inQuote && collapsible(r) {
			if !inRun {
				sb.WriteRune(' ')
				inRun = true
			}
			continue
		}
		sb.WriteRune(r)
		inRun = false
	}
	return sb.String()
}

func parseInline(src string, protector *scan.Protector, pattern *model.Pattern, sink format.Sink) error {
	var rs scan.Ruleset
	var pf scan.Printf

	rs.Rule(scan.TokenPattern, func(m scan.Match) error {
		ref, ok := protector.Original(m.Groups[0])
		if !ok {
			pattern.AddText(m.Groups[0])
			return nil
		}
		name := ref[1 : len(ref)-1]
		pattern.Add(&model.Expression{Arg: model.VariableRef{Name: name}, Function: "entity"})
		return nil
	})
	rs.Rule(`\\([\\@?nt'"])`, func(m scan.Match) error {
		switch m.Groups[1] {
		case "n":
			pattern.AddText("\n")
		case "t":
			pattern.AddText("\t")
		default:
			pattern.AddText(m.Groups[1])
		}
		return nil
	})
	rs.Rule(`\\u([0-9a-fA-F]{4})`, func(m scan.Match) error {
		n, err := strconv.ParseUint(m.Groups[1], 16, 32)
		if err != nil {
			return format.Report(sink, format.ParseDefect("invalid unicode escape", m.Start, m.End))
		}
		pattern.AddText(string(rune(n)))
		return nil
	})
	rs.Rule(`<[^%>]+>`, func(m scan.Match) error {
		// Escaped HTML such as &lt;b>, decoded by the XML pass.
		pattern.Add(&model.Expression{Arg: model.Literal(m.Groups[0]), Function: "html"})
		return nil
	})
	rs.Rule(scan.PrintfPattern, func(m scan.Match) error {
		pattern.Add(pf.Part(m))
		return nil
	})

	return rs.Split(src, func(s string, start, end int) error {
		pattern.AddText(s)
		return nil
	})
}

func parseNodes(el *etree.Element, protector *scan.Protector, pattern *model.Pattern) error {
	for _, child := range el.Child {
		switch child := child.(type) {
		case *etree.CharData:
			if err := parseMarkupText(child.Data, protector, pattern); err != nil {
				return err
			}
		case *etree.Element:
			var options model.Options
			for _, attr := range child.Attr {
				options = append(options, model.Option{Name: attr.Key, Value: model.Literal(attr.Value)})
			}
			pattern.Add(&model.Markup{Kind: model.MarkupOpen, Name: child.Tag, Options: options})
			if err := parseNodes(child, protector, pattern); err != nil {
				return err
			}
			pattern.Add(&model.Markup{Kind: model.MarkupClose, Name: child.Tag})
		}
	}
	return nil
}

func parseMarkupText(src string, protector *scan.Protector, pattern *model.Pattern) error {
	var rs scan.Ruleset
	rs.Rule(scan.TokenPattern, func(m scan.Match) error {
		ref, ok := protector.Original(m.Groups[0])
		if !ok {
			pattern.AddText(m.Groups[0])
			return nil
		}
		name := ref[1 : len(ref)-1]
		pattern.Add(&model.Expression{Arg: model.VariableRef{Name: name}, Function: "entity"})
		return nil
	})
	return rs.Split(src, func(s string, start, end int) error {
		pattern.AddText(s)
		return nil
	})
}
