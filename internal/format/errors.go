package format

import "fmt"

// Kind discriminates the two defect classes.
type Kind string

const (
	// KindParse marks malformed input; the defect carries a [Start, End)
	// offset range into the source text.
	KindParse Kind = "parse"
	// KindSerialize marks pattern data not representable in the target
	// format; the defect carries an offset into the output built so far.
	KindSerialize Kind = "serialize"
)

// Defect is one reported anomaly in a parse or serialize call.
type Defect struct {
	Kind       Kind
	Message    string
	Start, End int // source offsets for parse defects
	Offset     int // output offset for serialize defects
}

func (d *Defect) Error() string {
	if d.Kind == KindSerialize {
		return fmt.Sprintf("serialize at %d: %s", d.Offset, d.Message)
	}
	return fmt.Sprintf("parse at [%d,%d): %s", d.Start, d.End, d.Message)
}

// ParseDefect builds a parse defect for the source span [start, end).
func ParseDefect(msg string, start, end int) *Defect {
	return &Defect{Kind: KindParse, Message: msg, Start: start, End: end}
}

// SerializeDefect builds a serialize defect at an output offset.
func SerializeDefect(msg string, offset int) *Defect {
	return &Defect{Kind: KindSerialize, Message: msg, Offset: offset}
}

// Sink receives recoverable defects. Report returning a non-nil error
// aborts the call with that error.
type Sink interface {
	Report(d *Defect) error
}

// Report routes a defect through the sink; with a nil sink the defect
// itself is returned, aborting the call on first defect.
func Report(sink Sink, d *Defect) error {
	if sink == nil {
		return d
	}
	return sink.Report(d)
}

// Collector is a Sink that records every defect and never aborts.
type Collector struct {
	Defects []*Defect
}

func (c *Collector) Report(d *Defect) error {
	c.Defects = append(c.Defects, d)
	return nil
}
