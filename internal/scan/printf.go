package scan

import (
	"fmt"
	"strconv"

	"msgconv/internal/model"
)

// PrintfPattern matches printf-style placeholders with an optional explicit
// argument index, e.g. %s, %1$d, %.2f, %tY. Capture group 1 is the index,
// group 2 the conversion.
const PrintfPattern = `%(?:([1-9][0-9]*)\$)?[-#+ 0,(]?[0-9.]*([a-su-zA-SU-Z%]|[tT][a-zA-Z])`

// Printf tracks the positional argument counter across one inline scan so
// that unindexed conversions number their variables in occurrence order.
type Printf struct {
	next int
}

// Part converts a PrintfPattern match into a pattern part: a variable
// placeholder annotated with the conversion's value type and the matched
// source text, or a literal "%" text run for %%.
func (p *Printf) Part(m Match) model.Part {
	conv := m.Groups[2]
	if conv == "%" {
		return model.Text("%")
	}
	n := 0
	if m.Groups[1] != "" {
		n, _ = strconv.Atoi(m.Groups[1])
	} else {
		p.next++
		n = p.next
	}
	return &model.Expression{
		Arg:      model.VariableRef{Name: fmt.Sprintf("arg%d", n)},
		Function: Conversion(conv),
		Attributes: model.Attributes{
			{Name: "source", Value: m.Groups[0], HasValue: true},
		},
	}
}

// Conversion maps a printf conversion to the function name describing its
// value type. Unrecognized conversions yield an empty name.
func Conversion(conv string) string {
	switch conv[0] {
	case 'b', 'B':
		return "boolean"
	case 'c', 'C', 's', 'S':
		return "string"
	case 'd', 'h', 'H', 'o', 'x', 'X':
		return "integer"
	case 'a', 'A', 'e', 'E', 'f', 'g', 'G':
		return "number"
	case 't', 'T':
		return "datetime"
	}
	return ""
}
