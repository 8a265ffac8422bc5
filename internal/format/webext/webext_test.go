package webext

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

func TestParseIndexedPlaceholders(t *testing.T) {
	msg, err := Parse("Visit $1 or $2 today", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Visit "),
		&model.Expression{
			Arg:        model.VariableRef{Name: "arg1"},
			Attributes: model.Attributes{{Name: "source", Value: "$1", HasValue: true}},
		},
		model.Text(" or "),
		&model.Expression{
			Arg:        model.VariableRef{Name: "arg2"},
			Attributes: model.Attributes{{Name: "source", Value: "$2", HasValue: true}},
		},
		model.Text(" today"),
	}}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNamedPlaceholder(t *testing.T) {
	base := &model.PatternMessage{Declarations: model.Declarations{
		{Name: "url", Value: ParseContent("$1", "https://example.com")},
	}}
	msg, err := Parse("Go to $URL$ now", base, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := &model.PatternMessage{
		Declarations: model.Declarations{
			{Name: "URL", Value: ParseContent("$1", "https://example.com")},
		},
		Pattern: model.Pattern{
			model.Text("Go to "),
			&model.Expression{
				Arg:        model.VariableRef{Name: "URL"},
				Attributes: model.Attributes{{Name: "source", Value: "$URL$", HasValue: true}},
			},
			model.Text(" now"),
		},
	}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMissingPlaceholder(t *testing.T) {
	if _, err := Parse("Go to $URL$", nil, nil); err == nil {
		t.Error("strict mode must abort on missing placeholder data")
	}

	var sink format.Collector
	msg, err := Parse("Go to $URL$", nil, &sink)
	if err != nil {
		t.Fatal(err)
	}
	if len(sink.Defects) != 1 {
		t.Fatalf("expected 1 defect, got %d", len(sink.Defects))
	}
	if sink.Defects[0].Start != 6 || sink.Defects[0].End != 11 {
		t.Errorf("defect range = [%d,%d)", sink.Defects[0].Start, sink.Defects[0].End)
	}
	want := &model.PatternMessage{Pattern: model.Pattern{model.Text("Go to $URL$")}}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("recovered message mismatch (-want +got):\n%s", diff)
	}
}

func TestDollarEscapes(t *testing.T) {
	msg, err := Parse("Pay $$10 or $$$more", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := &model.PatternMessage{Pattern: model.Pattern{model.Text("Pay $10 or $$more")}}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("parse mismatch (-want +got):\n%s", diff)
	}

	out, err := Serialize(msg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Pay $$10 or $$$$more" {
		t.Errorf("serialize = %q", out)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	base := &model.PatternMessage{Declarations: model.Declarations{
		{Name: "name", Value: ParseContent("$1", "")},
	}}
	for _, src := range []string{
		"plain text",
		"Hi $NAME$!",
		"Item $1 of $2",
		"100$$ guaranteed",
	} {
		msg, err := Parse(src, base, nil)
		if err != nil {
			t.Fatalf("parse %q: %v", src, err)
		}
		out, err := Serialize(msg, nil)
		if err != nil {
			t.Fatalf("serialize %q: %v", src, err)
		}
		if out != src {
			t.Errorf("round trip %q = %q", src, out)
		}
	}
}

func TestSerializeDefects(t *testing.T) {
	msg := &model.PatternMessage{Pattern: model.Pattern{
		&model.Markup{Kind: model.MarkupOpen, Name: "b"},
		&model.Expression{Arg: model.VariableRef{Name: "n"}, Function: "number"},
	}}
	if _, err := Serialize(msg, nil); err == nil {
		t.Error("strict mode must abort on first defect")
	}
	var sink format.Collector
	out, err := Serialize(msg, &sink)
	if err != nil {
		t.Fatal(err)
	}
	if out != format.ErrorMarker+format.ErrorMarker {
		t.Errorf("serialize = %q", out)
	}
	if len(sink.Defects) != 2 {
		t.Errorf("expected 2 defects, got %d", len(sink.Defects))
	}
}
