// Package plain is the identity adapter used for unknown format tags:
// text passes through unchanged and placeholders only survive when they
// carry their original source text.
package plain

import (
	"strings"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

// Parse returns the source as a single text run.
func Parse(source string, _ model.Message, _ format.Sink) (model.Message, error) {
	var p model.Pattern
	p.AddText(source)
	return &model.PatternMessage{Pattern: p}, nil
}

// Serialize renders text parts as is. A non-text part is rendered from its
// source attribute when one is present; otherwise it is a defect and the
// error marker is emitted in its place. Select messages have no plain-text
// form and abort regardless of sink.
func Serialize(msg model.Message, sink format.Sink) (string, error) {
	pm, ok := msg.(*model.PatternMessage)
	if !ok {
		return "", format.SerializeDefect("select message has no plain-text form", 0)
	}
	var sb strings.Builder
	for _, part := range pm.Pattern {
		switch part := part.(type) {
		case model.Text:
			sb.WriteString(string(part))
		case *model.Expression:
			if src, ok := part.SourceAttr(); ok {
				sb.WriteString(src)
				continue
			}
			if err := format.Report(sink, format.SerializeDefect("unsupported placeholder", sb.Len())); err != nil {
				return "", err
			}
			sb.WriteString(format.ErrorMarker)
		case *model.Markup:
			if err := format.Report(sink, format.SerializeDefect("unsupported markup", sb.Len())); err != nil {
				return "", err
			}
			sb.WriteString(format.ErrorMarker)
		}
	}
	return sb.String(), nil
}
