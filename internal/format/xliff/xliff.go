// Package xliff implements the translation-interchange message value
// adapter. A value is the content of a target element: child elements map
// to markup, with x, bx and ex as standalone placeholders, and text runs
// carry printf placeholders but no character escapes of their own.
package xliff

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"msgconv/internal/format"
	"msgconv/internal/model"
	"msgconv/internal/scan"
)

func isStandalone(tag string) bool {
	switch tag {
	case "x", "bx", "ex":
		return true
	}
	return false
}

// Parse reads one target element's content.
func Parse(source string, base model.Message, sink format.Sink) (model.Message, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString("<m>" + source + "</m>"); err != nil {
		// Malformed XML is irrecoverable regardless of sink.
		return nil, format.ParseDefect("malformed XML: "+err.Error(), 0, len(source))
	}

	var pattern model.Pattern
	var pf scan.Printf
	if err := parseNodes(doc.Root(), &pattern, &pf); err != nil {
		return nil, err
	}
	return &model.PatternMessage{Pattern: pattern}, nil
}

func parseNodes(el *etree.Element, pattern *model.Pattern, pf *scan.Printf) error {
	for _, child := range el.Child {
		switch child := child.(type) {
		case *etree.CharData:
			if err := parseText(child.Data, pattern, pf); err != nil {
				return err
			}
		case *etree.Element:
			var options model.Options
			for _, attr := range child.Attr {
				options = append(options, model.Option{Name: attr.Key, Value: model.Literal(attr.Value)})
			}
			if isStandalone(child.Tag) {
				pattern.Add(&model.Markup{Kind: model.MarkupStandalone, Name: child.Tag, Options: options})
				continue
			}
			pattern.Add(&model.Markup{Kind: model.MarkupOpen, Name: child.Tag, Options: options})
			if err := parseNodes(child, pattern, pf); err != nil {
				return err
			}
			pattern.Add(&model.Markup{Kind: model.MarkupClose, Name: child.Tag})
		}
	}
	return nil
}

func parseText(src string, pattern *model.Pattern, pf *scan.Printf) error {
	var rs scan.Ruleset
	rs.Rule(scan.PrintfPattern, func(m scan.Match) error {
		pattern.Add(pf.Part(m))
		return nil
	})
	return rs.Split(src, func(s string, start, end int) error {
		pattern.AddText(s)
		return nil
	})
}

// Serialize renders a pattern as target element content. Improperly nested
// or unclosed markup is reported once per offending part and the element
// tree closes itself; select messages have no single target form and abort
// regardless of sink.
func Serialize(msg model.Message, sink format.Sink) (string, error) {
	pm, ok := msg.(*model.PatternMessage)
	if !ok {
		return "", format.SerializeDefect("select message has no target form", 0)
	}

	doc := etree.NewDocument()
	root := doc.CreateElement("m")
	parent := root
	var open []*etree.Element

	outPos := func() int {
		s, _ := doc.WriteToString()
		return len(s)
	}

	for _, part := range pm.Pattern {
		switch part := part.(type) {
		case model.Text:
			// Bare percent signs double so the printf scan cannot claim
			// them on reparse.
			parent.CreateText(strings.ReplaceAll(string(part), "%", "%%"))
		case *model.Expression:
			if s, ok := part.SourceAttr(); ok {
				parent.CreateText(s)
				continue
			}
			if lit, ok := part.Arg.(model.Literal); ok {
				parent.CreateText(strings.ReplaceAll(string(lit), "%", "%%"))
				continue
			}
			if err := format.Report(sink, format.SerializeDefect("unsupported placeholder", outPos())); err != nil {
				return "", err
			}
			parent.CreateText(format.ErrorMarker)
		case *model.Markup:
			switch part.Kind {
			case model.MarkupStandalone:
				el := parent.CreateElement(part.Name)
				if err := setAttrs(el, part.Options, sink, outPos); err != nil {
					return "", err
				}
			case model.MarkupOpen:
				el := parent.CreateElement(part.Name)
				if err := setAttrs(el, part.Options, sink, outPos); err != nil {
					return "", err
				}
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
	return out, nil
}

func setAttrs(el *etree.Element, options model.Options, sink format.Sink, outPos func() int) error {
	for _, opt := range options {
		lit, ok := opt.Value.(model.Literal)
		if !ok {
			if err := format.Report(sink, format.SerializeDefect(
				"unsupported variable option "+opt.Name, outPos())); err != nil {
				return err
			}
			continue
		}
		el.CreateAttr(opt.Name, string(lit))
	}
	return nil
}
