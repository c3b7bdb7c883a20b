// Package expr builds DynamoDB condition, filter, key-condition and update
// expressions as small immutable trees and renders them to the exact text
// grammar DynamoDB parses.
//
// Operands are opaque text: attribute names, name aliases (#x), value
// aliases (:x), document paths (a.b[1]) or the output of size(). Nothing in
// this package validates them; malformed text is reported by DynamoDB.
package expr

import "strings"

// Operand is a piece of expression text used as a path, an alias or a value.
type Operand struct {
	text string
}

// NewOperand wraps text verbatim.
func NewOperand(text string) Operand {
	return Operand{text: text}
}

// Op joins path segments with "." to address nested attributes.
//
//	Op("#Pictures", "#SideView") // #Pictures.#SideView
func Op(segments ...string) Operand {
	return Operand{text: strings.Join(segments, ".")}
}

func (o Operand) String() string {
	return o.text
}

// Size wraps the operand in the size function. The result is itself an
// operand so it can be compared like any other value.
//
//	Size(Op("#tags")).Gt(Op(":n")) // size (#tags) > :n
func Size(o Operand) Operand {
	return Operand{text: "size (" + o.text + ")"}
}

func (o Operand) Eq(right Operand) ConditionExpression {
	return compare(o, right, Eq)
}

func (o Operand) Ne(right Operand) ConditionExpression {
	return compare(o, right, Ne)
}

func (o Operand) Lt(right Operand) ConditionExpression {
	return compare(o, right, Lt)
}

func (o Operand) Lte(right Operand) ConditionExpression {
	return compare(o, right, Lte)
}

func (o Operand) Gt(right Operand) ConditionExpression {
	return compare(o, right, Gt)
}

func (o Operand) Gte(right Operand) ConditionExpression {
	return compare(o, right, Gte)
}

// Between builds "o BETWEEN from AND to".
func (o Operand) Between(from, to Operand) ConditionExpression {
	return ConditionExpression{mode: betweenMode, operands: []Operand{o, from, to}}
}

// In builds "o IN (v1, v2, ...)". An empty list renders "o IN ()", which
// DynamoDB rejects; it is passed through as is.
func (o Operand) In(values ...Operand) ConditionExpression {
	operands := make([]Operand, 0, len(values)+1)
	operands = append(operands, o)
	operands = append(operands, values...)
	return ConditionExpression{mode: inMode, operands: operands}
}
