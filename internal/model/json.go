package model

// JSON wire contract for the canonical message shapes, following the
// MessageFormat 2 data model schema. Sequence order and mapping-key order
// are semantically significant, so Options and Attributes marshal as JSON
// objects in insertion order and unmarshal in document order.

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func jsonLiteral(value string) orderedObject {
	obj := orderedObject{}
	obj.add("type", "literal")
	obj.add("value", value)
	return obj
}

func jsonValue(v Value) any {
	switch v := v.(type) {
	case Literal:
		return jsonLiteral(string(v))
	case VariableRef:
		obj := orderedObject{}
		obj.add("type", "variable")
		obj.add("name", v.Name)
		return obj
	}
	return nil
}

// MarshalJSON writes the options as a JSON object in insertion order.
func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(opt.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(jsonValue(opt.Value))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving its key order.
func (o *Options) UnmarshalJSON(data []byte) error {
	fields, err := orderedFields(data)
	if err != nil {
		return err
	}
	opts := make(Options, 0, len(fields))
	for _, f := range fields {
		value, err := unmarshalValue(f.raw)
		if err != nil {
			return err
		}
		opts = append(opts, Option{Name: f.name, Value: value})
	}
	*o = opts
	return nil
}

// MarshalJSON writes the attributes as a JSON object in insertion order;
// bare attributes marshal as true, valued ones as literal objects.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if attr.HasValue {
			val, err := json.Marshal(jsonLiteral(attr.Value))
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		} else {
			buf.WriteString("true")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving its key order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	fields, err := orderedFields(data)
	if err != nil {
		return err
	}
	attrs := make(Attributes, 0, len(fields))
	for _, f := range fields {
		if bytes.Equal(bytes.TrimSpace(f.raw), []byte("true")) {
			attrs = append(attrs, Attribute{Name: f.name})
			continue
		}
		value, err := unmarshalValue(f.raw)
		if err != nil {
			return err
		}
		lit, ok := value.(Literal)
		if !ok {
			return fmt.Errorf("invalid attribute value for %q", f.name)
		}
		attrs = append(attrs, Attribute{Name: f.name, Value: string(lit), HasValue: true})
	}
	*a = attrs
	return nil
}

func (e *Expression) MarshalJSON() ([]byte, error) {
	obj := orderedObject{}
	obj.add("type", "expression")
	if e.Arg != nil {
		obj.add("arg", jsonValue(e.Arg))
	}
	if e.Function != "" {
		fn := orderedObject{}
		fn.add("type", "function")
		fn.add("name", e.Function)
		if len(e.Options) > 0 {
			fn.add("options", e.Options)
		}
		obj.add("function", fn)
	}
	if len(e.Attributes) > 0 {
		obj.add("attributes", e.Attributes)
	}
	return obj.MarshalJSON()
}

func (m *Markup) MarshalJSON() ([]byte, error) {
	obj := orderedObject{}
	obj.add("type", "markup")
	obj.add("kind", string(m.Kind))
	obj.add("name", m.Name)
	if len(m.Options) > 0 {
		obj.add("options", m.Options)
	}
	if len(m.Attributes) > 0 {
		obj.add("attributes", m.Attributes)
	}
	return obj.MarshalJSON()
}

func (k Key) MarshalJSON() ([]byte, error) {
	if !k.Catchall {
		return json.Marshal(jsonLiteral(k.Value))
	}
	obj := orderedObject{}
	obj.add("type", "*")
	if k.Value != "" {
		obj.add("value", k.Value)
	}
	return obj.MarshalJSON()
}

func (p Pattern) MarshalJSON() ([]byte, error) {
	parts := make([]any, len(p))
	for i, part := range p {
		if t, ok := part.(Text); ok {
			parts[i] = string(t)
		} else {
			parts[i] = part
		}
	}
	return json.Marshal(parts)
}

func marshalDeclarations(d Declarations) []any {
	decls := make([]any, 0, len(d))
	for _, decl := range d {
		obj := orderedObject{}
		if decl.IsInput() {
			obj.add("type", "input")
		} else {
			obj.add("type", "local")
		}
		obj.add("name", decl.Name)
		obj.add("value", decl.Value)
		decls = append(decls, obj)
	}
	return decls
}

func (m *PatternMessage) MarshalJSON() ([]byte, error) {
	obj := orderedObject{}
	obj.add("type", "message")
	obj.add("declarations", marshalDeclarations(m.Declarations))
	obj.add("pattern", m.Pattern)
	return obj.MarshalJSON()
}

func (m *SelectMessage) MarshalJSON() ([]byte, error) {
	selectors := make([]any, len(m.Selectors))
	for i, sel := range m.Selectors {
		selectors[i] = jsonValue(sel)
	}
	variants := make([]any, len(m.Variants))
	for i, v := range m.Variants {
		vobj := orderedObject{}
		vobj.add("keys", v.Keys)
		vobj.add("value", v.Pattern)
		variants[i] = vobj
	}
	obj := orderedObject{}
	obj.add("type", "select")
	obj.add("declarations", marshalDeclarations(m.Declarations))
	obj.add("selectors", selectors)
	obj.add("variants", variants)
	return obj.MarshalJSON()
}

// MarshalMessage renders a message in its JSON wire form.
func MarshalMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalMessage reads a message from its JSON wire form.
func UnmarshalMessage(data []byte) (Message, error) {
	var head struct {
		Type         string            `json:"type"`
		Declarations []json.RawMessage `json:"declarations"`
		Pattern      []json.RawMessage `json:"pattern"`
		Selectors    []json.RawMessage `json:"selectors"`
		Variants     []struct {
			Keys  []json.RawMessage `json:"keys"`
			Value []json.RawMessage `json:"value"`
		} `json:"variants"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	declarations := make(Declarations, 0, len(head.Declarations))
	for _, raw := range head.Declarations {
		var decl struct {
			Type  string          `json:"type"`
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &decl); err != nil {
			return nil, err
		}
		if decl.Type != "input" && decl.Type != "local" {
			return nil, fmt.Errorf("invalid declaration type: %q", decl.Type)
		}
		expr, err := unmarshalExpression(decl.Value)
		if err != nil {
			return nil, err
		}
		if decl.Type == "input" {
			if v, ok := expr.Arg.(VariableRef); !ok || v.Name != decl.Name {
				return nil, fmt.Errorf("invalid input declaration for %q", decl.Name)
			}
		}
		if declarations.Has(decl.Name) {
			return nil, fmt.Errorf("duplicate declaration for %q", decl.Name)
		}
		declarations = append(declarations, Declaration{Name: decl.Name, Value: expr})
	}

	switch head.Type {
	case "message":
		pattern, err := unmarshalPattern(head.Pattern)
		if err != nil {
			return nil, err
		}
		return &PatternMessage{Declarations: declarations, Pattern: pattern}, nil
	case "select":
		selectors := make([]VariableRef, 0, len(head.Selectors))
		for _, raw := range head.Selectors {
			value, err := unmarshalValue(raw)
			if err != nil {
				return nil, err
			}
			v, ok := value.(VariableRef)
			if !ok {
				return nil, fmt.Errorf("invalid selector: %s", raw)
			}
			selectors = append(selectors, v)
		}
		variants := make([]Variant, 0, len(head.Variants))
		for _, raw := range head.Variants {
			keys := make([]Key, 0, len(raw.Keys))
			for _, kraw := range raw.Keys {
				key, err := unmarshalKey(kraw)
				if err != nil {
					return nil, err
				}
				keys = append(keys, key)
			}
			pattern, err := unmarshalPattern(raw.Value)
			if err != nil {
				return nil, err
			}
			variants = append(variants, Variant{Keys: keys, Pattern: pattern})
		}
		return NewSelectMessage(declarations, selectors, variants)
	default:
		return nil, fmt.Errorf("invalid message type: %q", head.Type)
	}
}

func unmarshalPattern(raws []json.RawMessage) (Pattern, error) {
	var pattern Pattern
	for _, raw := range raws {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			pattern.AddText(s)
			continue
		}
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, err
		}
		if head.Type == "markup" {
			markup, err := unmarshalMarkup(raw)
			if err != nil {
				return nil, err
			}
			pattern.Add(markup)
		} else {
			expr, err := unmarshalExpression(raw)
			if err != nil {
				return nil, err
			}
			pattern.Add(expr)
		}
	}
	return pattern, nil
}

func unmarshalExpression(raw json.RawMessage) (*Expression, error) {
	var head struct {
		Type       string          `json:"type"`
		Arg        json.RawMessage `json:"arg"`
		Function   json.RawMessage `json:"function"`
		Attributes Attributes      `json:"attributes"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	if head.Type != "expression" {
		return nil, fmt.Errorf("invalid expression type: %q", head.Type)
	}
	var arg Value
	if len(head.Arg) > 0 {
		var err error
		if arg, err = unmarshalValue(head.Arg); err != nil {
			return nil, err
		}
	}
	var function string
	var options Options
	if len(head.Function) > 0 {
		var fn struct {
			Type    string  `json:"type"`
			Name    string  `json:"name"`
			Options Options `json:"options"`
		}
		if err := json.Unmarshal(head.Function, &fn); err != nil {
			return nil, err
		}
		if fn.Type != "function" {
			return nil, fmt.Errorf("invalid function type: %q", fn.Type)
		}
		function = fn.Name
		options = fn.Options
	}
	return NewExpression(arg, function, options, head.Attributes)
}

func unmarshalMarkup(raw json.RawMessage) (*Markup, error) {
	var head struct {
		Kind       string     `json:"kind"`
		Name       string     `json:"name"`
		Options    Options    `json:"options"`
		Attributes Attributes `json:"attributes"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	return NewMarkup(MarkupKind(head.Kind), head.Name, head.Options, head.Attributes)
}

func unmarshalKey(raw json.RawMessage) (Key, error) {
	var head struct {
		Type  string `json:"type"`
		Value string `json:"value"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Key{}, err
	}
	switch head.Type {
	case "literal":
		return Key{Value: head.Value}, nil
	case "*":
		return Catchall(head.Value), nil
	}
	return Key{}, fmt.Errorf("invalid variant key type: %q", head.Type)
}

func unmarshalValue(raw json.RawMessage) (Value, error) {
	var head struct {
		Type  string `json:"type"`
		Value string `json:"value"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case "literal":
		return Literal(head.Value), nil
	case "variable":
		return VariableRef{Name: head.Name}, nil
	}
	return nil, fmt.Errorf("invalid value type: %q", head.Type)
}

type jsonField struct {
	name string
	raw  json.RawMessage
}

// orderedFields decodes a JSON object into its fields in document order.
func orderedFields(data []byte) ([]jsonField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}
	var fields []jsonField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, jsonField{name: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// orderedObject builds a JSON object with a fixed field order.
type orderedObject []jsonField

func (o *orderedObject) add(name string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		raw = []byte("null")
	}
	*o = append(*o, jsonField{name: name, raw: raw})
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(f.raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
