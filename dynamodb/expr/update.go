package expr

import "strings"

// SetValue is the right hand side of a SET action: an operand, a built-in
// function or a single addition/subtraction of those.
type SetValue interface {
	String() string
	setValue()
}

// SetOperand is an argument of SET arithmetic: an operand or a built-in
// function. Arithmetic results are not operands, so they cannot nest.
type SetOperand interface {
	SetValue
	setOperand()
}

func (Operand) setValue()   {}
func (Operand) setOperand() {}

// SetFunction is one of the built-in functions usable inside SET.
type SetFunction struct {
	name string
	args [2]Operand
}

func (SetFunction) setValue()   {}
func (SetFunction) setOperand() {}

// ListAppend builds "list_append (list1, list2)".
func ListAppend(list1, list2 Operand) SetFunction {
	return SetFunction{name: "list_append", args: [2]Operand{list1, list2}}
}

// IfNotExists builds "if_not_exists (path, value)".
func IfNotExists(path, value Operand) SetFunction {
	return SetFunction{name: "if_not_exists", args: [2]Operand{path, value}}
}

func (f SetFunction) String() string {
	return f.name + " (" + f.args[0].text + ", " + f.args[1].text + ")"
}

func (f SetFunction) Plus(right SetOperand) Arithmetic {
	return Arithmetic{left: f, right: right, operator: "+"}
}

func (f SetFunction) Minus(right SetOperand) Arithmetic {
	return Arithmetic{left: f, right: right, operator: "-"}
}

// Arithmetic is "left + right" or "left - right" inside a SET action.
type Arithmetic struct {
	left     SetOperand
	right    SetOperand
	operator string
}

func (Arithmetic) setValue() {}

func (a Arithmetic) String() string {
	return a.left.String() + " " + a.operator + " " + a.right.String()
}

// Plus builds "o + right".
func (o Operand) Plus(right SetOperand) Arithmetic {
	return Arithmetic{left: o, right: right, operator: "+"}
}

// Minus builds "o - right".
func (o Operand) Minus(right SetOperand) Arithmetic {
	return Arithmetic{left: o, right: right, operator: "-"}
}

// To builds the SET action "o = value".
func (o Operand) To(value SetValue) SetAction {
	return SetAction{path: o, value: value}
}

type SetAction struct {
	path  Operand
	value SetValue
}

func (a SetAction) String() string {
	return a.path.text + " = " + a.value.String()
}

type addAction struct {
	path  Operand
	value Operand
}

func (a addAction) String() string {
	return a.path.text + " " + a.value.text
}

type deleteAction struct {
	path   Operand
	subset Operand
}

func (a deleteAction) String() string {
	return a.path.text + " " + a.subset.text
}

// UpdateExpression holds the four clause lists of an update expression.
// The zero value is an empty expression and renders as "".
type UpdateExpression struct {
	set    []SetAction
	remove []Operand
	add    []addAction
	delete []deleteAction
}

// Set builds an update expression with a single SET action.
//
//	Set(Op("#x").To(ListAppend(Op("#x"), Op(":vals")))) // SET #x = list_append (#x, :vals)
func Set(action SetAction) UpdateExpression {
	return UpdateExpression{set: []SetAction{action}}
}

// Remove builds "REMOVE path".
func Remove(path Operand) UpdateExpression {
	return UpdateExpression{remove: []Operand{path}}
}

// Add builds "ADD path value". The attribute must be a number or a set.
func Add(path, value Operand) UpdateExpression {
	return UpdateExpression{add: []addAction{{path: path, value: value}}}
}

// Delete builds "DELETE path subset". The attribute must be a set.
func Delete(path, subset Operand) UpdateExpression {
	return UpdateExpression{delete: []deleteAction{{path: path, subset: subset}}}
}

// And merges other into u. Each clause kind keeps u's actions first, then
// other's, in call order.
//
//	Set(Op("Price").To(Op("Price").Minus(Op(":p")))).And(Remove(Op("InStock")))
//	// SET Price = Price - :p REMOVE InStock
func (u UpdateExpression) And(other UpdateExpression) UpdateExpression {
	return UpdateExpression{
		set:    concat(u.set, other.set),
		remove: concat(u.remove, other.remove),
		add:    concat(u.add, other.add),
		delete: concat(u.delete, other.delete),
	}
}

// IsEmpty reports whether u has no actions at all.
func (u UpdateExpression) IsEmpty() bool {
	return len(u.set) == 0 && len(u.remove) == 0 && len(u.add) == 0 && len(u.delete) == 0
}

func (u UpdateExpression) String() string {
	var segments []string
	if len(u.set) > 0 {
		segments = append(segments, "SET "+join(u.set))
	}
	if len(u.remove) > 0 {
		segments = append(segments, "REMOVE "+join(u.remove))
	}
	if len(u.add) > 0 {
		segments = append(segments, "ADD "+join(u.add))
	}
	if len(u.delete) > 0 {
		segments = append(segments, "DELETE "+join(u.delete))
	}
	return strings.Join(segments, " ")
}

// concat never appends into a or b, so merged expressions share no backing
// arrays with their inputs.
func concat[T any](a, b []T) []T {
	if len(a)+len(b) == 0 {
		return nil
	}
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func join[T interface{ String() string }](items []T) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}
