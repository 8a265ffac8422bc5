package scan

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"msgconv/internal/model"
)

func TestRulesetSplit(t *testing.T) {
	var got []string
	var rs Ruleset
	rs.Rule(`\$[1-9]`, func(m Match) error {
		got = append(got, "arg:"+m.Groups[0])
		return nil
	})
	rs.Rule(`\$\$`, func(m Match) error {
		got = append(got, "esc")
		return nil
	})
	err := rs.Split("a $1 b $$ c", func(s string, start, end int) error {
		got = append(got, "text:"+s)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"text:a ", "arg:$1", "text: b ", "esc", "text: c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("split mismatch (-want +got):\n%s", diff)
	}
}

func TestRulesetOverlapResolution(t *testing.T) {
	// Both rules match at the same offset; the longer match wins.
	var got []string
	var rs Ruleset
	rs.Rule(`ab`, func(m Match) error {
		got = append(got, "short")
		return nil
	})
	rs.Rule(`abc`, func(m Match) error {
		got = append(got, "long")
		return nil
	})
	if err := rs.Split("abc", nil); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"long"}, got); diff != "" {
		t.Errorf("overlap mismatch (-want +got):\n%s", diff)
	}
}

func TestRulesetSplitAbort(t *testing.T) {
	var rs Ruleset
	rs.Rule(`x`, func(m Match) error { return nil })
	wantErr := errors.New("stop")
	err := rs.Split("ax", func(s string, start, end int) error { return wantErr })
	if err != wantErr {
		t.Errorf("expected text callback error to propagate, got %v", err)
	}
}

func TestPrintfPart(t *testing.T) {
	var rs Ruleset
	var pf Printf
	var pattern model.Pattern
	rs.Rule(PrintfPattern, func(m Match) error {
		pattern.Add(pf.Part(m))
		return nil
	})
	err := rs.Split("%d%% of %2$s at %tm", func(s string, start, end int) error {
		pattern.AddText(s)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := model.Pattern{
		&model.Expression{
			Arg:        model.VariableRef{Name: "arg1"},
			Function:   "integer",
			Attributes: model.Attributes{{Name: "source", Value: "%d", HasValue: true}},
		},
		model.Text("% of "),
		&model.Expression{
			Arg:        model.VariableRef{Name: "arg2"},
			Function:   "string",
			Attributes: model.Attributes{{Name: "source", Value: "%2$s", HasValue: true}},
		},
		model.Text(" at "),
		&model.Expression{
			Arg:        model.VariableRef{Name: "arg2"},
			Function:   "datetime",
			Attributes: model.Attributes{{Name: "source", Value: "%tm", HasValue: true}},
		},
	}
	if diff := cmp.Diff(want, pattern); diff != "" {
		t.Errorf("printf mismatch (-want +got):\n%s", diff)
	}
}

func TestConversion(t *testing.T) {
	for conv, want := range map[string]string{
		"s": "string", "S": "string", "c": "string",
		"d": "integer", "x": "integer",
		"f": "number", "e": "number",
		"tY": "datetime", "TH": "datetime",
		"b": "boolean",
		"q": "",
	} {
		if got := Conversion(conv); got != want {
			t.Errorf("Conversion(%q) = %q, want %q", conv, got, want)
		}
	}
}

func TestProtectorRoundTrip(t *testing.T) {
	var p Protector
	t1 := p.Protect("&brand;")
	t2 := p.Protect("&vendor;")
	if t1 == t2 {
		t.Fatal("tokens must be distinct")
	}
	if s, ok := p.Original(t1); !ok || s != "&brand;" {
		t.Errorf("Original(%q) = %q, %v", t1, s, ok)
	}
	mixed := "Get " + t1 + " from " + t2 + " now"
	if got := p.Restore(mixed); got != "Get &brand; from &vendor; now" {
		t.Errorf("Restore = %q", got)
	}
}

func TestProtectorScopedPerCall(t *testing.T) {
	var a, b Protector
	ta := a.Protect("one")
	tb := b.Protect("two")
	if ta != tb {
		t.Fatalf("independent counters should mint equal first tokens: %q vs %q", ta, tb)
	}
	// A token minted elsewhere is left alone.
	if got := b.Restore(ta + "!"); got != "two!" {
		t.Errorf("Restore = %q", got)
	}
}
