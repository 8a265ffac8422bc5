package fluent

// The value grammar is parsed into a small syntax tree before
// normalization. Selector trees nest arbitrarily deep: a variant body is
// itself a pattern that may contain further select expressions.

type node struct {
	elements []element
}

// element is a text run, an inline placeable, or a select placeable.
type element interface {
	isElement()
}

type textElement struct {
	value string
}

// selectElement is a choice node: a selector expression and its ordered
// variants, exactly one of which carries the default marker.
type selectElement struct {
	selector inlineExpr
	variants []variant
}

type variant struct {
	key           variantKey
	defaultMarker bool
	body          *node
}

// variantKey is a literal match value, flagged numeric when written as a
// number literal.
type variantKey struct {
	value   string
	numeric bool
}

func (textElement) isElement()    {}
func (*selectElement) isElement() {}

// inlineExpr is an inline placeable expression.
type inlineExpr interface {
	isElement()
	isInline()
}

type stringLiteral struct {
	value string
}

// numberLiteral keeps the raw source digits so values round-trip exactly.
type numberLiteral struct {
	value string
}

type variableRef struct {
	name string
}

// messageRef covers both message and term references; term names carry
// their leading dash and attribute names are joined with a dot.
type messageRef struct {
	name    string
	options []namedArg
}

type functionRef struct {
	name  string
	arg   inlineExpr // nil for a bare call
	named []namedArg
}

type namedArg struct {
	name  string
	value string
}

func (stringLiteral) isElement() {}
func (stringLiteral) isInline()  {}
func (numberLiteral) isElement() {}
func (numberLiteral) isInline()  {}
func (variableRef) isElement()   {}
func (variableRef) isInline()    {}
func (messageRef) isElement()    {}
func (messageRef) isInline()     {}
func (*functionRef) isElement()  {}
func (*functionRef) isInline()   {}
