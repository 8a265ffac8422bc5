package plain

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

func TestParse(t *testing.T) {
	msg, err := Parse("Hello {world}", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := &model.PatternMessage{Pattern: model.Pattern{model.Text("Hello {world}")}}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("parse mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeUsesSourceAttr(t *testing.T) {
	msg := &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Used "),
		&model.Expression{
			Arg:        model.VariableRef{Name: "arg1"},
			Function:   "integer",
			Attributes: model.Attributes{{Name: "source", Value: "%1$d", HasValue: true}},
		},
		model.Text(" times"),
	}}
	got, err := Serialize(msg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Used %1$d times" {
		t.Errorf("serialize = %q", got)
	}
}

func TestSerializeDefects(t *testing.T) {
	msg := &model.PatternMessage{Pattern: model.Pattern{
		model.Text("a"),
		&model.Expression{Arg: model.VariableRef{Name: "x"}},
		&model.Markup{Kind: model.MarkupOpen, Name: "b"},
	}}

	if _, err := Serialize(msg, nil); err == nil {
		t.Error("strict mode must abort on first defect")
	}

	var sink format.Collector
	got, err := Serialize(msg, &sink)
	if err != nil {
		t.Fatal(err)
	}
	if got != "a"+format.ErrorMarker+format.ErrorMarker {
		t.Errorf("serialize = %q", got)
	}
	if len(sink.Defects) != 2 {
		t.Fatalf("expected 2 defects, got %d", len(sink.Defects))
	}
	if sink.Defects[0].Offset != 1 {
		t.Errorf("first defect offset = %d", sink.Defects[0].Offset)
	}
}

func TestSerializeRejectsSelect(t *testing.T) {
	msg, err := model.NewSelectMessage(nil, []model.VariableRef{{Name: "n"}}, []model.Variant{
		{Keys: []model.Key{model.Catchall("")}},
	})
	if err != nil {
		t.Fatal(err)
	}
	var sink format.Collector
	if _, err := Serialize(msg, &sink); err == nil {
		t.Error("select message must abort even with a sink")
	}
}
