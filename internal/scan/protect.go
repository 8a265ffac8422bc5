package scan

import (
	"regexp"
	"strconv"
	"strings"
)

// Protection tokens are delimited by private-use characters that cannot
// occur in well-formed localizable text.
const (
	tokenOpen  = ''
	tokenClose = ''
)

// TokenPattern matches a protection token.
const TokenPattern = "[0-9]+"

var tokenRe = regexp.MustCompile(TokenPattern)

// Protector mints collision-free tokens that stand in for spans which must
// survive an intermediate processing pass unchanged, such as entity
// references carried through an XML parse. The counter is scoped to one
// parse or serialize call; concurrent calls each use their own Protector.
type Protector struct {
	seq       int
	originals map[string]string
}

// Protect returns a fresh token standing in for original.
func (p *Protector) Protect(original string) string {
	p.seq++
	token := string(tokenOpen) + strconv.Itoa(p.seq) + string(tokenClose)
	if p.originals == nil {
		p.originals = make(map[string]string)
	}
	p.originals[token] = original
	return token
}

// Original returns the span a token stands in for.
func (p *Protector) Original(token string) (string, bool) {
	s, ok := p.originals[token]
	return s, ok
}

// Restore substitutes all of this Protector's tokens in s back with their
// original spans. Tokens minted by another Protector are left as is.
func (p *Protector) Restore(s string) string {
	if p.originals == nil || !strings.ContainsRune(s, tokenOpen) {
		return s
	}
	return tokenRe.ReplaceAllStringFunc(s, func(token string) string {
		if original, ok := p.originals[token]; ok {
			return original
		}
		return token
	})
}
