// Package mf2 implements the MessageFormat 2 message syntax adapter.
package mf2

import "regexp"

const nameStart = `a-zA-Z_\x{C0}-\x{D6}\x{D8}-\x{F6}\x{F8}-\x{2FF}` +
	`\x{370}-\x{37D}\x{37F}-\x{61B}\x{61D}-\x{1FFF}\x{200C}-\x{200D}` +
	`\x{2070}-\x{218F}\x{2C00}-\x{2FEF}\x{3001}-\x{D7FF}\x{F900}-\x{FDCF}` +
	`\x{FDF0}-\x{FFFC}\x{10000}-\x{EFFFF}`

const nameRest = `0-9\-.\x{B7}\x{300}-\x{36F}\x{203F}-\x{2040}`

const namePattern = `[` + nameStart + `][` + nameStart + nameRest + `]*`

var (
	nameRe       = regexp.MustCompile(`^` + namePattern)
	nameFullRe   = regexp.MustCompile(`^` + namePattern + `$`)
	identFullRe  = regexp.MustCompile(`^` + namePattern + `(?::` + namePattern + `)?$`)
	numberRe     = regexp.MustCompile(`^-?(?:0|[1-9][0-9]*)(?:\.[0-9]+)?(?:[eE][-+]?[0-9]+)?`)
	numberFullRe = regexp.MustCompile(`^-?(?:0|[1-9][0-9]*)(?:\.[0-9]+)?(?:[eE][-+]?[0-9]+)?$`)
)

// Bidirectional marks and isolates may surround names and literals.
func isBidi(r rune) bool {
	switch r {
	case 0x061C, 0x200E, 0x200F, 0x2066, 0x2067, 0x2068, 0x2069:
		return true
	}
	return false
}

func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\r', ' ', 0x3000:
		return true
	}
	return false
}

func isEscapable(r rune) bool {
	return r == '\\' || r == '{' || r == '|' || r == '}'
}
