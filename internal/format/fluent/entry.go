package fluent

import (
	"regexp"
	"strings"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

var attrNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ParseEntry reads a full entry: a message value followed by zero or more
// dotted attribute lines. Each attribute value is its own pattern and
// normalizes independently, so attributes may carry selectors of their own.
func ParseEntry(id, source string, sink format.Sink) (*model.Entry, error) {
	p := &parser{source: source, entryMode: true}
	root, err := p.pattern(false)
	if err != nil {
		return nil, err
	}
	value, err := normalize(root, source, sink)
	if err != nil {
		return nil, err
	}
	entry := &model.Entry{Id: []string{id}, Value: value}

	for p.pos < len(p.source) {
		if p.source[p.pos] != '.' {
			return nil, p.defect("expected attribute after value")
		}
		p.pos++
		name := p.identifier()
		if name == "" {
			return nil, p.defect("expected attribute name")
		}
		p.skipSpacesOnLine()
		if p.pos >= len(p.source) || p.source[p.pos] != '=' {
			return nil, p.defect("expected = after attribute name")
		}
		p.pos++
		p.skipSpacesOnLine()
		attrRoot, err := p.pattern(false)
		if err != nil {
			return nil, err
		}
		attrMsg, err := normalize(attrRoot, source, sink)
		if err != nil {
			return nil, err
		}
		entry.Properties = append(entry.Properties, model.Property{Name: name, Value: attrMsg})
	}
	return entry, nil
}

// SerializeEntry renders an entry as its value followed by one indented
// attribute line per property. Attribute bodies render like variant
// bodies: multi-line values start on the following line one level deeper.
func SerializeEntry(entry *model.Entry, sink format.Sink) (string, error) {
	value, err := Serialize(entry.Value, sink)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(value)
	for _, prop := range entry.Properties {
		if !attrNameRe.MatchString(prop.Name) {
			d := format.SerializeDefect("invalid attribute name "+prop.Name, sb.Len())
			if err := format.Report(sink, d); err != nil {
				return "", err
			}
			continue
		}
		text, err := Serialize(prop.Value, sink)
		if err != nil {
			return "", err
		}
		sb.WriteString("\n    ." + prop.Name + " =")
		sb.WriteString(renderBody(text))
	}
	return sb.String(), nil
}

func (p *parser) skipSpacesOnLine() {
	for p.pos < len(p.source) && p.source[p.pos] == ' ' {
		p.pos++
	}
}
