package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPatternAddText(t *testing.T) {
	var p Pattern
	p.AddText("one ")
	p.AddText("two")
	p.Add(&Expression{Arg: VariableRef{Name: "x"}})
	p.AddText("")
	p.AddText(" three")

	want := Pattern{
		Text("one two"),
		&Expression{Arg: VariableRef{Name: "x"}},
		Text(" three"),
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}
}

func TestPatternAppendCoalesces(t *testing.T) {
	var p Pattern
	p.AddText("a")
	p.Append(Pattern{Text("b"), &Markup{Kind: MarkupStandalone, Name: "x"}, Text("c")})

	want := Pattern{Text("ab"), &Markup{Kind: MarkupStandalone, Name: "x"}, Text("c")}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}
}

func TestPatternIsEmpty(t *testing.T) {
	if !(Pattern{}).IsEmpty() {
		t.Error("empty pattern should be empty")
	}
	if (Pattern{Text("x")}).IsEmpty() {
		t.Error("text pattern should not be empty")
	}
	if (Pattern{&Expression{Arg: Literal("1")}}).IsEmpty() {
		t.Error("expression pattern should not be empty")
	}
}

func TestNewExpression(t *testing.T) {
	if _, err := NewExpression(nil, "", nil, nil); err == nil {
		t.Error("expected error for expression with no operand and no function")
	}
	opts := Options{{Name: "style", Value: Literal("percent")}}
	if _, err := NewExpression(Literal("1"), "", opts, nil); err == nil {
		t.Error("expected error for options without a function")
	}
	if _, err := NewExpression(nil, "number", opts, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewMarkup(t *testing.T) {
	if _, err := NewMarkup("wrap", "b", nil, nil); err == nil {
		t.Error("expected error for invalid markup kind")
	}
	if _, err := NewMarkup(MarkupOpen, "", nil, nil); err == nil {
		t.Error("expected error for empty markup name")
	}
}

func TestKeyEqual(t *testing.T) {
	if !Catchall("one").Equal(Catchall("two")) {
		t.Error("catchall keys should compare equal regardless of hint")
	}
	if Catchall("one").Equal(Key{Value: "one"}) {
		t.Error("catchall should not equal a literal key")
	}
	if !(Key{Value: "one"}).Equal(Key{Value: "one"}) {
		t.Error("equal literal keys should compare equal")
	}
}

func TestDeclarationIsInput(t *testing.T) {
	input := Declaration{Name: "n", Value: &Expression{Arg: VariableRef{Name: "n"}, Function: "number"}}
	if !input.IsInput() {
		t.Error("declaration binding its own variable should be input")
	}
	local := Declaration{Name: "n", Value: &Expression{Arg: VariableRef{Name: "count"}, Function: "number"}}
	if local.IsInput() {
		t.Error("declaration binding another variable should be local")
	}
}

func TestNewSelectMessage(t *testing.T) {
	sel := []VariableRef{{Name: "n"}}
	one := Variant{Keys: []Key{{Value: "one"}}, Pattern: Pattern{Text("one")}}
	other := Variant{Keys: []Key{Catchall("")}, Pattern: Pattern{Text("other")}}

	if _, err := NewSelectMessage(nil, nil, []Variant{other}); err == nil {
		t.Error("expected error for select without selectors")
	}
	if _, err := NewSelectMessage(nil, sel, []Variant{one}); err == nil {
		t.Error("expected error for missing fallback variant")
	}
	if _, err := NewSelectMessage(nil, sel, []Variant{other, {Keys: []Key{Catchall("x")}, Pattern: nil}}); err == nil {
		t.Error("expected error for duplicate key tuples")
	}
	bad := Variant{Keys: []Key{{Value: "a"}, {Value: "b"}}}
	if _, err := NewSelectMessage(nil, sel, []Variant{bad, other}); err == nil {
		t.Error("expected error for key count mismatch")
	}
	if _, err := NewSelectMessage(nil, sel, []Variant{one, other}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSelectorExpressions(t *testing.T) {
	decl := Declarations{{Name: "n", Value: &Expression{Arg: VariableRef{Name: "n"}, Function: "number"}}}
	m, err := NewSelectMessage(decl, []VariableRef{{Name: "n"}, {Name: "x"}}, []Variant{
		{Keys: []Key{Catchall(""), Catchall("")}},
	})
	if err != nil {
		t.Fatal(err)
	}
	exprs := m.SelectorExpressions()
	if len(exprs) != 2 || exprs[0] == nil || exprs[0].Function != "number" || exprs[1] != nil {
		t.Errorf("unexpected selector expressions: %v", exprs)
	}
}
