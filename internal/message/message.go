// Package message is the dispatch façade: it routes parse and serialize
// calls to the adapter registered for a format tag. Unknown tags fall
// back to the plain-text adapter so a caller handling mixed resources
// never fails outright on a format it does not recognize.
package message

import (
	"fmt"

	"msgconv/internal/format"
	"msgconv/internal/format/android"
	"msgconv/internal/format/fluent"
	"msgconv/internal/format/mf2"
	"msgconv/internal/format/plain"
	"msgconv/internal/format/webext"
	"msgconv/internal/format/xliff"
	"msgconv/internal/model"
)

var adapters = map[format.Tag]format.Adapter{
	format.Android: {Tag: format.Android, Parse: android.Parse, Serialize: android.Serialize},
	format.Fluent:  {Tag: format.Fluent, Parse: fluent.Parse, Serialize: fluent.Serialize},
	format.MF2:     {Tag: format.MF2, Parse: mf2.Parse, Serialize: mf2.Serialize},
	format.Plain:   {Tag: format.Plain, Parse: plain.Parse, Serialize: plain.Serialize},
	format.WebExt:  {Tag: format.WebExt, Parse: webext.Parse, Serialize: webext.Serialize},
	format.XLIFF:   {Tag: format.XLIFF, Parse: xliff.Parse, Serialize: xliff.Serialize},
}

// Lookup returns the adapter for a tag and whether the tag is known.
// Unknown tags get the plain adapter.
func Lookup(tag format.Tag) (format.Adapter, bool) {
	if a, ok := adapters[tag]; ok {
		return a, true
	}
	return adapters[format.Plain], false
}

// Parse parses a message in the tagged format. An unknown tag reports
// one defect through the sink and parses as plain text.
func Parse(tag format.Tag, source string, base model.Message, sink format.Sink) (model.Message, error) {
	a, known := Lookup(tag)
	if !known && sink != nil {
		d := format.ParseDefect(fmt.Sprintf("unknown format %q", tag), 0, len(source))
		if err := sink.Report(d); err != nil {
			return nil, err
		}
	}
	return a.Parse(source, base, sink)
}

// Serialize renders a message in the tagged format. An unknown tag
// reports one defect through the sink and serializes as plain text.
func Serialize(tag format.Tag, msg model.Message, sink format.Sink) (string, error) {
	a, known := Lookup(tag)
	if !known && sink != nil {
		d := format.SerializeDefect(fmt.Sprintf("unknown format %q", tag), 0)
		if err := sink.Report(d); err != nil {
			return "", err
		}
	}
	return a.Serialize(msg, sink)
}
