package fluent

import (
	"fmt"
	"sort"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

var pluralCategories = map[string]bool{
	"zero": true, "one": true, "two": true, "few": true, "many": true, "other": true,
}

// keyTriple is a variant key during normalization: its match value, whether
// it was written as a number literal, and whether it carried the default
// marker.
type keyTriple struct {
	value   string
	numeric bool
	def     bool
}

// selectorData tracks one logical selector: its identity expression, the
// choice nodes that share it, and their merged key list in first-seen order.
type selectorData struct {
	expr  *model.Expression
	nodes []*selectElement
	keys  []keyTriple
}

// normalize flattens a selector tree into a canonical message. Two choice
// nodes denote the same logical selector when their identity expressions
// are structurally equal; the variant matrix is the cross product of the
// selectors' key sets, populated by re-walking the tree with one key
// filter slot per selector, then pruned of rows no branch ever wrote to.
func normalize(root *node, source string, sink format.Sink) (model.Message, error) {
	var selData []*selectorData
	if err := findSelectors(root, &selData); err != nil {
		return nil, err
	}
	if err := reportClassConflicts(selData, source, sink); err != nil {
		return nil, err
	}

	keyLists := make([][]keyTriple, len(selData))
	for i, sd := range selData {
		keyLists[i] = sortKeys(dedupKeys(sd.keys))
	}
	rows := crossProduct(keyLists)
	patterns := make([]model.Pattern, len(rows))

	filter := make([]*keyTriple, len(selData))
	varNames := map[string]bool{}
	var addPattern func(n *node) error
	addPattern = func(n *node) error {
		for _, el := range n.elements {
			if sel, ok := el.(*selectElement); ok {
				idx := selectorIndex(selData, sel)
				prev := filter[idx]
				for _, v := range sel.variants {
					key := keyTriple{value: v.key.value, numeric: v.key.numeric, def: v.defaultMarker}
					filter[idx] = &key
					if err := addPattern(v.body); err != nil {
						return err
					}
				}
				filter[idx] = prev
				continue
			}
			var expr *model.Expression
			if inline, ok := el.(inlineExpr); ok {
				var err error
				expr, err = inlineExpression(inline)
				if err != nil {
					return err
				}
				if v, ok := expr.Arg.(model.VariableRef); ok {
					varNames[v.Name] = true
				}
			}
			for i, keys := range rows {
				if !compatible(keys, filter) {
					continue
				}
				if expr != nil {
					patterns[i].Add(expr)
				} else {
					patterns[i].AddText(el.(textElement).value)
				}
			}
		}
		return nil
	}
	if err := addPattern(root); err != nil {
		return nil, err
	}

	if len(selData) == 0 {
		return &model.PatternMessage{Pattern: patterns[0]}, nil
	}

	var declarations model.Declarations
	var selectors []model.VariableRef
	for _, sd := range selData {
		stem := ""
		if v, ok := sd.expr.Arg.(model.VariableRef); ok {
			stem = v.Name
		}
		name := stem
		for i := 1; name == "" || varNames[name]; i++ {
			name = fmt.Sprintf("%s_%d", stem, i)
		}
		varNames[name] = true
		declarations = append(declarations, model.Declaration{Name: name, Value: sd.expr})
		selectors = append(selectors, model.VariableRef{Name: name})
	}

	var variants []model.Variant
	for i, keys := range rows {
		if patterns[i].IsEmpty() {
			continue
		}
		mk := make([]model.Key, len(keys))
		for j, k := range keys {
			if k.def {
				mk[j] = model.Catchall(k.value)
			} else {
				mk[j] = model.Key{Value: k.value}
			}
		}
		variants = append(variants, model.Variant{Keys: mk, Pattern: patterns[i]})
	}
	msg, err := model.NewSelectMessage(declarations, selectors, variants)
	if err != nil {
		return nil, format.ParseDefect(err.Error(), 0, len(source))
	}
	return msg, nil
}

func findSelectors(n *node, result *[]*selectorData) error {
	for _, el := range n.elements {
		sel, ok := el.(*selectElement)
		if !ok {
			continue
		}
		keys := make([]keyTriple, len(sel.variants))
		for i, v := range sel.variants {
			keys[i] = keyTriple{value: v.key.value, numeric: v.key.numeric, def: v.defaultMarker}
		}
		expr, err := selectExpression(sel.selector, keys)
		if err != nil {
			return err
		}
		merged := false
		for _, sd := range *result {
			if exprEqual(sd.expr, expr) {
				sd.nodes = append(sd.nodes, sel)
				sd.keys = append(sd.keys, keys...)
				merged = true
				break
			}
		}
		if !merged {
			*result = append(*result, &selectorData{expr: expr, nodes: []*selectElement{sel}, keys: keys})
		}
		for _, v := range sel.variants {
			if err := findSelectors(v.body, result); err != nil {
				return err
			}
		}
	}
	return nil
}

// selectExpression computes a choice node's identity. A bare variable
// selector is classified numeric when every key is a number literal or a
// plural category name, string-typed otherwise; the classification is part
// of the identity.
func selectExpression(sel inlineExpr, keys []keyTriple) (*model.Expression, error) {
	switch sel := sel.(type) {
	case variableRef:
		fn := "number"
		for _, k := range keys {
			if !k.numeric && !pluralCategories[k.value] {
				fn = "string"
				break
			}
		}
		return &model.Expression{Arg: model.VariableRef{Name: sel.name}, Function: fn}, nil
	case stringLiteral:
		return &model.Expression{Arg: model.Literal(sel.value), Function: "string"}, nil
	default:
		return inlineExpression(sel)
	}
}

// reportClassConflicts flags selectors over the same variable whose key
// sets classified one numeric and the other string-typed. The selectors
// stay distinct; the mismatch is reported rather than silently unioned.
func reportClassConflicts(selData []*selectorData, source string, sink format.Sink) error {
	for i, a := range selData {
		av, ok := a.expr.Arg.(model.VariableRef)
		if !ok {
			continue
		}
		for _, b := range selData[i+1:] {
			bv, ok := b.expr.Arg.(model.VariableRef)
			if !ok || av.Name != bv.Name || a.expr.Function == b.expr.Function {
				continue
			}
			d := format.ParseDefect(
				"selector $"+av.Name+" classified both numeric and string", 0, len(source))
			if err := format.Report(sink, d); err != nil {
				return err
			}
		}
	}
	return nil
}

func selectorIndex(selData []*selectorData, sel *selectElement) int {
	for i, sd := range selData {
		for _, n := range sd.nodes {
			if n == sel {
				return i
			}
		}
	}
	return -1
}

func dedupKeys(keys []keyTriple) []keyTriple {
	seen := map[keyTriple]bool{}
	out := keys[:0:0]
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// sortKeys orders a selector's keys: non-default before default, number
// literals before names, stable otherwise.
func sortKeys(keys []keyTriple) []keyTriple {
	out := make([]keyTriple, len(keys))
	copy(out, keys)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.def != b.def {
			return !a.def
		}
		return a.numeric && !b.numeric
	})
	return out
}

// crossProduct builds the candidate key tuples in row-major order, first
// selector slowest. Zero selectors yields one empty tuple.
func crossProduct(keyLists [][]keyTriple) [][]keyTriple {
	rows := [][]keyTriple{{}}
	for _, keys := range keyLists {
		next := make([][]keyTriple, 0, len(rows)*len(keys))
		for _, row := range rows {
			for _, k := range keys {
				t := make([]keyTriple, len(row)+1)
				copy(t, row)
				t[len(row)] = k
				next = append(next, t)
			}
		}
		rows = next
	}
	return rows
}

func compatible(keys []keyTriple, filter []*keyTriple) bool {
	for i, f := range filter {
		if f != nil && keys[i] != *f {
			return false
		}
	}
	return true
}

// inlineExpression converts an inline placeable to a canonical expression.
// Message and term references become message-function expressions and
// function names are lower-cased.
func inlineExpression(exp inlineExpr) (*model.Expression, error) {
	switch exp := exp.(type) {
	case numberLiteral:
		return &model.Expression{Arg: model.Literal(exp.value), Function: "number"}, nil
	case stringLiteral:
		return &model.Expression{Arg: model.Literal(exp.value)}, nil
	case variableRef:
		return &model.Expression{Arg: model.VariableRef{Name: exp.name}}, nil
	case messageRef:
		e := &model.Expression{Arg: model.Literal(exp.name), Function: "message"}
		for _, opt := range exp.options {
			e.Options = append(e.Options, model.Option{Name: opt.name, Value: model.Literal(opt.value)})
		}
		return e, nil
	case *functionRef:
		e := &model.Expression{Function: lowerASCII(exp.name)}
		switch arg := exp.arg.(type) {
		case nil:
		case stringLiteral:
			e.Arg = model.Literal(arg.value)
		case numberLiteral:
			e.Arg = model.Literal(arg.value)
		case variableRef:
			e.Arg = model.VariableRef{Name: arg.name}
		}
		for _, opt := range exp.named {
			e.Options = append(e.Options, model.Option{Name: opt.name, Value: model.Literal(opt.value)})
		}
		return e, nil
	}
	return nil, fmt.Errorf("unsupported inline expression %T", exp)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// exprEqual reports structural equality of two expressions, with options
// compared by name regardless of order.
func exprEqual(a, b *model.Expression) bool {
	if a.Function != b.Function {
		return false
	}
	switch av := a.Arg.(type) {
	case nil:
		if b.Arg != nil {
			return false
		}
	case model.Literal:
		bv, ok := b.Arg.(model.Literal)
		if !ok || av != bv {
			return false
		}
	case model.VariableRef:
		bv, ok := b.Arg.(model.VariableRef)
		if !ok || av.Name != bv.Name {
			return false
		}
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for _, opt := range a.Options {
		other, ok := b.Options.Get(opt.Name)
		if !ok || other != opt.Value {
			return false
		}
	}
	return true
}
