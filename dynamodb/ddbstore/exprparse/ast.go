// Package exprparse parses and evaluates the DynamoDB expression grammar
// (conditions, key conditions, updates and projections) for the local store.
package exprparse

import (
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PathElem is a map key, or a list index when IsIndex is set.
type PathElem struct {
	Name    string
	Index   int
	IsIndex bool
}

// Path is a document path with all name placeholders resolved.
type Path []PathElem

func (p Path) String() string {
	var b strings.Builder
	for i, e := range p {
		if e.IsIndex {
			b.WriteString("[" + strconv.Itoa(e.Index) + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(e.Name)
	}
	return b.String()
}

// Attribute is the top-level attribute the path lives under.
func (p Path) Attribute() string {
	return p[0].Name
}

// Operand is a value-producing node: a path, a bound value or size().
type Operand interface {
	operand()
}

type PathOperand struct{ Path Path }

type ValueOperand struct {
	Placeholder string
	Value       types.AttributeValue
}

type SizeOperand struct{ Path Path }

func (PathOperand) operand()  {}
func (ValueOperand) operand() {}
func (SizeOperand) operand()  {}

// Condition is a boolean node.
type Condition interface {
	condition()
}

type Compare struct {
	Op          string
	Left, Right Operand
}

type Between struct {
	Operand  Operand
	From, To Operand
}

type In struct {
	Operand Operand
	List    []Operand
}

type Function struct {
	Name string
	Args []Operand
}

type And struct{ Left, Right Condition }
type Or struct{ Left, Right Condition }
type Not struct{ Condition Condition }

func (Compare) condition()  {}
func (Between) condition()  {}
func (In) condition()       {}
func (Function) condition() {}
func (And) condition()      {}
func (Or) condition()       {}
func (Not) condition()      {}

// SetValue is the right hand side of a SET action.
type SetValue interface {
	setValue()
}

type OperandValue struct{ Operand Operand }

type Arithmetic struct {
	Op          byte // '+' or '-'
	Left, Right SetValue
}

type ListAppend struct{ Left, Right SetValue }

type IfNotExists struct {
	Path    Path
	Default SetValue
}

func (OperandValue) setValue() {}
func (Arithmetic) setValue()   {}
func (ListAppend) setValue()   {}
func (IfNotExists) setValue()  {}

type SetAction struct {
	Path  Path
	Value SetValue
}

// PathValue is an ADD or DELETE action.
type PathValue struct {
	Path  Path
	Value ValueOperand
}

type Update struct {
	Set    []SetAction
	Remove []Path
	Add    []PathValue
	Delete []PathValue
}
