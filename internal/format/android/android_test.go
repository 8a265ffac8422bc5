package android

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

func mustParse(t *testing.T, src string) *model.PatternMessage {
	t.Helper()
	msg, err := Parse(src, nil, nil)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return msg.(*model.PatternMessage)
}

func TestParsePrintf(t *testing.T) {
	msg := mustParse(t, "Used %1$s of %2$s: %d%%")
	want := model.Pattern{
		model.Text("Used "),
		&model.Expression{
			Arg:        model.VariableRef{Name: "arg1"},
			Function:   "string",
			Attributes: model.Attributes{{Name: "source", Value: "%1$s", HasValue: true}},
		},
		model.Text(" of "),
		&model.Expression{
			Arg:        model.VariableRef{Name: "arg2"},
			Function:   "string",
			Attributes: model.Attributes{{Name: "source", Value: "%2$s", HasValue: true}},
		},
		model.Text(": "),
		&model.Expression{
			Arg:        model.VariableRef{Name: "arg1"},
			Function:   "integer",
			Attributes: model.Attributes{{Name: "source", Value: "%d", HasValue: true}},
		},
		model.Text("%"),
	}
	if diff := cmp.Diff(want, msg.Pattern); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEscapesAndSpaces(t *testing.T) {
	for _, tt := range []struct {
		src  string
		want string
	}{
		{`one\ntwo`, "one\ntwo"},
		{`a\tb`, "a\tb"},
		{`it\'s \"here\"`, `it's "here"`},
		{`at@ q?`, "at@ q?"},
		{"collapse   all\n\twhitespace", "collapse all whitespace"},
		{`"  keep  quoted  "`, "  keep  quoted  "},
		{` fixed`, " fixed"},
	} {
		msg := mustParse(t, tt.src)
		want := model.Pattern{model.Text(tt.want)}
		if diff := cmp.Diff(want, msg.Pattern); diff != "" {
			t.Errorf("parse %q mismatch (-want +got):\n%s", tt.src, diff)
		}
	}
}

func TestParseASCIISpaces(t *testing.T) {
	// NBSP collapses by default but survives the ASCII-spaces variant.
	src := "a   b"
	msg := mustParse(t, src)
	if diff := cmp.Diff(model.Pattern{model.Text("a b")}, msg.Pattern); diff != "" {
		t.Errorf("default mismatch (-want +got):\n%s", diff)
	}
	got, err := ParseASCIISpaces(src, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := model.Pattern{model.Text("a   b")}
	if diff := cmp.Diff(want, got.(*model.PatternMessage).Pattern); diff != "" {
		t.Errorf("ascii-spaces mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEntity(t *testing.T) {
	msg := mustParse(t, "Get &brandName; &amp; more")
	want := model.Pattern{
		model.Text("Get "),
		&model.Expression{Arg: model.VariableRef{Name: "brandName"}, Function: "entity"},
		model.Text(" & more"),
	}
	if diff := cmp.Diff(want, msg.Pattern); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEscapedHTML(t *testing.T) {
	msg := mustParse(t, "Click &lt;b>here&lt;/b> now")
	want := model.Pattern{
		model.Text("Click "),
		&model.Expression{Arg: model.Literal("<b>"), Function: "html"},
		model.Text("here"),
		&model.Expression{Arg: model.Literal("</b>"), Function: "html"},
		model.Text(" now"),
	}
	if diff := cmp.Diff(want, msg.Pattern); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResourceRef(t *testing.T) {
	msg := mustParse(t, "@string/app_name")
	want := model.Pattern{
		&model.Expression{Arg: model.VariableRef{Name: "@string/app_name"}, Function: "reference"},
	}
	if diff := cmp.Diff(want, msg.Pattern); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMarkup(t *testing.T) {
	msg := mustParse(t, `Press <b class="key">%1$s</b> twice`)
	want := model.Pattern{
		model.Text("Press "),
		&model.Markup{Kind: model.MarkupOpen, Name: "b",
			Options: model.Options{{Name: "class", Value: model.Literal("key")}}},
		model.Text("%1$s"),
		&model.Markup{Kind: model.MarkupClose, Name: "b"},
		model.Text(" twice"),
	}
	if diff := cmp.Diff(want, msg.Pattern); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMalformedXML(t *testing.T) {
	var sink format.Collector
	if _, err := Parse("broken <b", nil, &sink); err == nil {
		t.Error("malformed XML must abort even with a sink")
	}
}

func TestSerializeEscaping(t *testing.T) {
	msg := &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Hello\nthe\n\n  \tworld"),
	}}
	out, err := Serialize(msg, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := `Hello\nthe\n\n \u0020\tworld`
	if out != want {
		t.Errorf("serialize = %q, want %q", out, want)
	}

	back := mustParse(t, out)
	if diff := cmp.Diff(msg.Pattern, back.Pattern); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeSpaceEscapes(t *testing.T) {
	for _, tt := range []struct {
		text, want string
	}{
		{" lead", `\u0020lead`},
		{"trail ", `trail\u0020`},
		{"a  b", `a \u0020b`},
		{"nb\u00a0sp", `nb\u00a0sp`},
		{"it's \"quoted\"", `it\'s \"quoted\"`},
	} {
		out, err := Serialize(&model.PatternMessage{Pattern: model.Pattern{model.Text(tt.text)}}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if out != tt.want {
			t.Errorf("serialize %q = %q, want %q", tt.text, out, tt.want)
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	for _, src := range []string{
		"Used %1$s of %2$s",
		"Get &brandName; now",
		"100%% done",
		`it\'s \"quoted\"`,
		"five&lt;b>six&lt;/b>",
	} {
		msg := mustParse(t, src)
		out, err := Serialize(msg, nil)
		if err != nil {
			t.Fatalf("serialize %q: %v", src, err)
		}
		back := mustParse(t, out)
		if diff := cmp.Diff(msg.Pattern, back.Pattern); diff != "" {
			t.Errorf("round trip %q via %q mismatch (-want +got):\n%s", src, out, diff)
		}
	}
}

func TestSerializeLiteralPercent(t *testing.T) {
	// A literal percent must double like text so the printf scan cannot
	// claim it on reparse.
	msg := &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Loading: "),
		&model.Expression{Arg: model.Literal("50%")},
	}}
	out, err := Serialize(msg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Loading: 50%%" {
		t.Errorf("serialize = %q, want %q", out, "Loading: 50%%")
	}
	back := mustParse(t, out)
	want := model.Pattern{model.Text("Loading: 50%")}
	if diff := cmp.Diff(want, back.Pattern); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeMarkupTree(t *testing.T) {
	msg := &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Press "),
		&model.Markup{Kind: model.MarkupOpen, Name: "b",
			Options: model.Options{{Name: "class", Value: model.Literal("key")}}},
		model.Text("enter"),
		&model.Markup{Kind: model.MarkupClose, Name: "b"},
	}}
	out, err := Serialize(msg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != `Press <b class="key">enter</b>` {
		t.Errorf("serialize = %q", out)
	}
}

func TestSerializeMarkupBalance(t *testing.T) {
	msg := &model.PatternMessage{Pattern: model.Pattern{
		&model.Markup{Kind: model.MarkupOpen, Name: "b"},
		model.Text("bold"),
	}}
	var sink format.Collector
	out, err := Serialize(msg, &sink)
	if err != nil {
		t.Fatal(err)
	}
	if out != "<b>bold</b>" {
		t.Errorf("serialize = %q", out)
	}
	if len(sink.Defects) != 1 {
		t.Errorf("expected exactly 1 defect, got %d", len(sink.Defects))
	}
}
