package expr

import "strings"

// Comparator is one of the six binary comparison operators.
type Comparator int

const (
	Eq Comparator = iota + 1
	Ne
	Lt
	Lte
	Gt
	Gte
)

func (c Comparator) String() string {
	switch c {
	case Eq:
		return "="
	case Ne:
		return "<>"
	case Lt:
		return "<"
	case Lte:
		return "<="
	case Gt:
		return ">"
	case Gte:
		return ">="
	default:
		return ""
	}
}

// ConditionalFunction is one of the built-in predicate functions.
type ConditionalFunction int

const (
	AttributeExistsFunc ConditionalFunction = iota + 1
	AttributeNotExistsFunc
	AttributeTypeFunc
	BeginsWithFunc
	ContainsFunc
)

func (f ConditionalFunction) String() string {
	switch f {
	case AttributeExistsFunc:
		return "attribute_exists"
	case AttributeNotExistsFunc:
		return "attribute_not_exists"
	case AttributeTypeFunc:
		return "attribute_type"
	case BeginsWithFunc:
		return "begins_with"
	case ContainsFunc:
		return "contains"
	default:
		return ""
	}
}

type conditionMode int

const (
	unsetMode conditionMode = iota
	compareMode
	betweenMode
	inMode
	functionMode
	andMode
	orMode
	notMode
	parenMode
)

// ConditionExpression is a node of a condition expression tree. Values are
// immutable; combining two expressions builds a new node.
//
// And and Or never add parentheses. DynamoDB does not apply the precedence
// a reader might expect from the rendered text, so wrap operands with Paren
// wherever grouping matters.
type ConditionExpression struct {
	mode       conditionMode
	comparator Comparator
	function   ConditionalFunction
	operands   []Operand
	children   []ConditionExpression
}

func compare(left, right Operand, c Comparator) ConditionExpression {
	return ConditionExpression{mode: compareMode, comparator: c, operands: []Operand{left, right}}
}

func function(f ConditionalFunction, args ...Operand) ConditionExpression {
	return ConditionExpression{mode: functionMode, function: f, operands: args}
}

// IsSet reports whether c was built by one of the constructors. The zero
// value is unset and renders as the empty string.
func (c ConditionExpression) IsSet() bool {
	return c.mode != unsetMode
}

// And builds "c AND right".
func (c ConditionExpression) And(right ConditionExpression) ConditionExpression {
	return ConditionExpression{mode: andMode, children: []ConditionExpression{c, right}}
}

// Or builds "c OR right".
func (c ConditionExpression) Or(right ConditionExpression) ConditionExpression {
	return ConditionExpression{mode: orMode, children: []ConditionExpression{c, right}}
}

// And folds the conditions left to right: And(a, b, c) is a.And(b).And(c).
func And(left, right ConditionExpression, more ...ConditionExpression) ConditionExpression {
	out := left.And(right)
	for _, c := range more {
		out = out.And(c)
	}
	return out
}

// Or folds the conditions left to right: Or(a, b, c) is a.Or(b).Or(c).
func Or(left, right ConditionExpression, more ...ConditionExpression) ConditionExpression {
	out := left.Or(right)
	for _, c := range more {
		out = out.Or(c)
	}
	return out
}

// Not builds "NOT c".
func Not(c ConditionExpression) ConditionExpression {
	return ConditionExpression{mode: notMode, children: []ConditionExpression{c}}
}

// Paren builds "(c)".
func Paren(c ConditionExpression) ConditionExpression {
	return ConditionExpression{mode: parenMode, children: []ConditionExpression{c}}
}

func AttributeExists(path Operand) ConditionExpression {
	return function(AttributeExistsFunc, path)
}

func AttributeNotExists(path Operand) ConditionExpression {
	return function(AttributeNotExistsFunc, path)
}

// AttributeType checks the type of path against a value alias holding one
// of S, SS, N, NS, B, BS, BOOL, NULL, L or M.
func AttributeType(path, typ Operand) ConditionExpression {
	return function(AttributeTypeFunc, path, typ)
}

func BeginsWith(path, substr Operand) ConditionExpression {
	return function(BeginsWithFunc, path, substr)
}

// Contains matches a substring of a string attribute or an element of a set
// or list attribute.
func Contains(path, operand Operand) ConditionExpression {
	return function(ContainsFunc, path, operand)
}

func (c ConditionExpression) String() string {
	var sb strings.Builder
	c.render(&sb)
	return sb.String()
}

func (c ConditionExpression) render(sb *strings.Builder) {
	switch c.mode {
	case compareMode:
		sb.WriteString(c.operands[0].text)
		sb.WriteByte(' ')
		sb.WriteString(c.comparator.String())
		sb.WriteByte(' ')
		sb.WriteString(c.operands[1].text)
	case betweenMode:
		sb.WriteString(c.operands[0].text)
		sb.WriteString(" BETWEEN ")
		sb.WriteString(c.operands[1].text)
		sb.WriteString(" AND ")
		sb.WriteString(c.operands[2].text)
	case inMode:
		sb.WriteString(c.operands[0].text)
		sb.WriteString(" IN (")
		writeList(sb, c.operands[1:])
		sb.WriteByte(')')
	case functionMode:
		sb.WriteString(c.function.String())
		sb.WriteString(" (")
		writeList(sb, c.operands)
		sb.WriteByte(')')
	case andMode:
		c.children[0].render(sb)
		sb.WriteString(" AND ")
		c.children[1].render(sb)
	case orMode:
		c.children[0].render(sb)
		sb.WriteString(" OR ")
		c.children[1].render(sb)
	case notMode:
		sb.WriteString("NOT ")
		c.children[0].render(sb)
	case parenMode:
		sb.WriteByte('(')
		c.children[0].render(sb)
		sb.WriteByte(')')
	}
}

func writeList(sb *strings.Builder, ops []Operand) {
	for i, op := range ops {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(op.text)
	}
}
