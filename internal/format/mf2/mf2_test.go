package mf2

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

func mustParse(t *testing.T, src string) model.Message {
	t.Helper()
	msg, err := Parse(src, nil, nil)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return msg
}

func TestParsePattern(t *testing.T) {
	for _, tt := range []struct {
		src  string
		want model.Message
	}{
		{"pattern", &model.PatternMessage{Pattern: model.Pattern{model.Text("pattern")}}},
		{" pattern ", &model.PatternMessage{Pattern: model.Pattern{model.Text(" pattern ")}}},
		{"{{quoted}}", &model.PatternMessage{Pattern: model.Pattern{model.Text("quoted")}}},
		{`esc \{ \| \\`, &model.PatternMessage{Pattern: model.Pattern{model.Text(`esc { | \`)}}},
		{"{name}", &model.PatternMessage{Pattern: model.Pattern{
			&model.Expression{Arg: model.Literal("name")},
		}}},
		{"{-13e-09}", &model.PatternMessage{Pattern: model.Pattern{
			&model.Expression{Arg: model.Literal("-13e-09")},
		}}},
		{"{|quoted}|}", &model.PatternMessage{Pattern: model.Pattern{
			&model.Expression{Arg: model.Literal("quoted}")},
		}}},
		{"{ $var }", &model.PatternMessage{Pattern: model.Pattern{
			&model.Expression{Arg: model.VariableRef{Name: "var"}},
		}}},
		{"{$n :number style=percent}", &model.PatternMessage{Pattern: model.Pattern{
			&model.Expression{
				Arg:      model.VariableRef{Name: "n"},
				Function: "number",
				Options:  model.Options{{Name: "style", Value: model.Literal("percent")}},
			},
		}}},
		{"{#b}bold{/b}{#img /}", &model.PatternMessage{Pattern: model.Pattern{
			&model.Markup{Kind: model.MarkupOpen, Name: "b"},
			model.Text("bold"),
			&model.Markup{Kind: model.MarkupClose, Name: "b"},
			&model.Markup{Kind: model.MarkupStandalone, Name: "img"},
		}}},
		{"{$x @translate @locale=en}", &model.PatternMessage{Pattern: model.Pattern{
			&model.Expression{
				Arg: model.VariableRef{Name: "x"},
				Attributes: model.Attributes{
					{Name: "translate"},
					{Name: "locale", Value: "en", HasValue: true},
				},
			},
		}}},
	} {
		if diff := cmp.Diff(tt.want, mustParse(t, tt.src)); diff != "" {
			t.Errorf("parse %q mismatch (-want +got):\n%s", tt.src, diff)
		}
	}
}

func TestParseComplexMessage(t *testing.T) {
	src := ".input {$n :number}\n.local $half = {$n :math divide=2}\n{{Half is {$half}}}"
	want := &model.PatternMessage{
		Declarations: model.Declarations{
			{Name: "n", Value: &model.Expression{Arg: model.VariableRef{Name: "n"}, Function: "number"}},
			{Name: "half", Value: &model.Expression{
				Arg:      model.VariableRef{Name: "n"},
				Function: "math",
				Options:  model.Options{{Name: "divide", Value: model.Literal("2")}},
			}},
		},
		Pattern: model.Pattern{
			model.Text("Half is "),
			&model.Expression{Arg: model.VariableRef{Name: "half"}},
		},
	}
	if diff := cmp.Diff(want, mustParse(t, src)); diff != "" {
		t.Errorf("parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSelectMessage(t *testing.T) {
	src := ".input {$count :number}\n.match $count\none {{one item}}\n* {{{$count} items}}"
	want := &model.SelectMessage{
		Declarations: model.Declarations{
			{Name: "count", Value: &model.Expression{Arg: model.VariableRef{Name: "count"}, Function: "number"}},
		},
		Selectors: []model.VariableRef{{Name: "count"}},
		Variants: []model.Variant{
			{Keys: []model.Key{{Value: "one"}}, Pattern: model.Pattern{model.Text("one item")}},
			{Keys: []model.Key{model.Catchall("")}, Pattern: model.Pattern{
				&model.Expression{Arg: model.VariableRef{Name: "count"}},
				model.Text(" items"),
			}},
		},
	}
	if diff := cmp.Diff(want, mustParse(t, src)); diff != "" {
		t.Errorf("parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFailures(t *testing.T) {
	for _, src := range []string{
		"pattern}",
		"pattern{{quoted}}",
		"{{quoted}} x",
		"{{quoted}",
		"{",
		"{}",
		"{ }",
		"{42.99.13}",
		"{-name}",
		"{|quoted}",
		"{$n :number style=percent style=decimal}",
		"{$x @a @a}",
		".local $x = {$x}{{}}",
		".input {$n}\n.input {$n}\n{{}}",
		".match $n\n* {{...}}",
		".input {$n :number}\n.match $n\none {{one}}",
	} {
		if _, err := Parse(src, nil, nil); err == nil {
			t.Errorf("expected error for %q", src)
		}
	}
}

func TestParseErrorSink(t *testing.T) {
	var sink format.Collector
	msg, err := Parse("extra }", nil, &sink)
	if err != nil {
		t.Fatal(err)
	}
	if len(sink.Defects) != 1 {
		t.Fatalf("expected exactly 1 defect, got %d", len(sink.Defects))
	}
	if sink.Defects[0].Kind != format.KindParse {
		t.Errorf("defect kind = %v", sink.Defects[0].Kind)
	}
	want := &model.PatternMessage{Pattern: model.Pattern{model.Text("extra ")}}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("partial message mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	for _, src := range []string{
		"pattern",
		" pattern ",
		`esc \{ \| \\`,
		"{name}",
		"{42.99}",
		"{$var}",
		"{$n :number style=percent}",
		"{x :string @translate @locale=en}",
		"{#b class=warn}bold{/b}{#img /}",
		"{|quoted literal|}",
		".input {$n :number}\n{{n = {$n}}}",
		".local $x = {42 :number}\n{{x = {$x}}}",
		".input {$count :number}\n.match $count\none {{one item}}\n* {{{$count} items}}",
	} {
		msg := mustParse(t, src)
		out, err := Serialize(msg, nil)
		if err != nil {
			t.Fatalf("serialize %q: %v", src, err)
		}
		back, err := Parse(out, nil, nil)
		if err != nil {
			t.Fatalf("reparse %q (from %q): %v", out, src, err)
		}
		if diff := cmp.Diff(msg, back); diff != "" {
			t.Errorf("round trip %q via %q mismatch (-want +got):\n%s", src, out, diff)
		}
	}
}

func TestSerializeQuotesComplexStart(t *testing.T) {
	msg := &model.PatternMessage{Pattern: model.Pattern{model.Text(".local is text")}}
	out, err := Serialize(msg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "{{.local is text}}" {
		t.Errorf("serialize = %q", out)
	}
	back, err := Parse(out, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(msg, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeDefects(t *testing.T) {
	msg := &model.PatternMessage{Pattern: model.Pattern{
		&model.Expression{Arg: model.Literal("x"), Options: model.Options{{Name: "o", Value: model.Literal("1")}}},
	}}
	if _, err := Serialize(msg, nil); err == nil {
		t.Error("strict mode must abort on options without function")
	}
	var sink format.Collector
	if _, err := Serialize(msg, &sink); err != nil {
		t.Fatal(err)
	}
	if len(sink.Defects) != 1 || sink.Defects[0].Kind != format.KindSerialize {
		t.Errorf("unexpected defects: %v", sink.Defects)
	}
}
