// Package format defines the format tags shared by the adapters and the
// defect reporting model used by every parse and serialize call.
package format

import (
	"msgconv/internal/model"
)

// Tag identifies a message serialization format.
type Tag string

const (
	Android Tag = "android"
	Fluent  Tag = "fluent"
	MF2     Tag = "mf2"
	Plain   Tag = "plain"
	WebExt  Tag = "webext"
	XLIFF   Tag = "xliff"
)

// ErrorMarker is substituted into the output for defective content when a
// sink collects defects instead of aborting the call.
const ErrorMarker = "�"

// ParseFunc parses one message from its serialized form. The base message
// supplies contextual data the bare source string cannot carry; most
// adapters ignore it.
type ParseFunc func(source string, base model.Message, sink Sink) (model.Message, error)

// SerializeFunc renders one message in the adapter's serialized form.
type SerializeFunc func(msg model.Message, sink Sink) (string, error)

// Adapter is one format's (parse, serialize, tag) triple.
type Adapter struct {
	Tag       Tag
	Parse     ParseFunc
	Serialize SerializeFunc
}
