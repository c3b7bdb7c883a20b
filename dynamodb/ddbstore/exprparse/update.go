package exprparse

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var errInvalidUpdatePath = errors.New("the document path provided in the update expression is invalid for update")

// EvalOutput is the result of applying an update to an item.
type EvalOutput struct {
	// Item is the document after the update.
	Item Item
	// ReturnAttributes holds the attributes selected by ReturnValues.
	ReturnAttributes Item
}

// Apply applies u to a copy of old. All SET operands read the item as it was
// before the update. old is left untouched.
func Apply(u *Update, old Item, returnValues types.ReturnValue) (*EvalOutput, error) {
	if err := validateNoOverlap(u); err != nil {
		return nil, err
	}
	doc := CloneItem(old)
	if doc == nil {
		doc = Item{}
	}
	touched := map[string]bool{}

	values := make([]types.AttributeValue, len(u.Set))
	for i, a := range u.Set {
		v, err := evalSetValue(a.Value, old)
		if err != nil {
			return nil, fmt.Errorf("SET %s: %w", a.Path, err)
		}
		values[i] = v
	}
	for i, a := range u.Set {
		if err := setPath(doc, a.Path, values[i]); err != nil {
			return nil, fmt.Errorf("SET %s: %w", a.Path, err)
		}
		touched[a.Path.Attribute()] = true
	}

	for _, p := range removalOrder(u.Remove) {
		removePath(doc, p)
		touched[p.Attribute()] = true
	}

	for _, a := range u.Add {
		cur, exists := Resolve(doc, a.Path)
		next := Clone(a.Value.Value)
		if exists {
			var err error
			if next, err = addValue(cur, a.Value.Value); err != nil {
				return nil, fmt.Errorf("ADD %s: %w", a.Path, err)
			}
		} else if !isAddable(next) {
			return nil, fmt.Errorf("ADD %s: operand must be a number or a set, got %s", a.Path, TypeName(next))
		}
		if err := setPath(doc, a.Path, next); err != nil {
			return nil, fmt.Errorf("ADD %s: %w", a.Path, err)
		}
		touched[a.Path.Attribute()] = true
	}

	for _, a := range u.Delete {
		cur, exists := Resolve(doc, a.Path)
		if !exists {
			continue
		}
		next, empty, err := subtractSet(cur, a.Value.Value)
		if err != nil {
			return nil, fmt.Errorf("DELETE %s: %w", a.Path, err)
		}
		if empty {
			removePath(doc, a.Path)
		} else if err := setPath(doc, a.Path, next); err != nil {
			return nil, fmt.Errorf("DELETE %s: %w", a.Path, err)
		}
		touched[a.Path.Attribute()] = true
	}

	return &EvalOutput{
		Item:             doc,
		ReturnAttributes: returnAttributes(returnValues, old, doc, touched),
	}, nil
}

func returnAttributes(rv types.ReturnValue, old, updated Item, touched map[string]bool) Item {
	pick := func(src Item) Item {
		out := Item{}
		for name := range touched {
			if v, ok := src[name]; ok {
				out[name] = v
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	switch rv {
	case types.ReturnValueAllOld:
		if len(old) == 0 {
			return nil
		}
		return CloneItem(old)
	case types.ReturnValueAllNew:
		return CloneItem(updated)
	case types.ReturnValueUpdatedOld:
		return CloneItem(pick(old))
	case types.ReturnValueUpdatedNew:
		return CloneItem(pick(updated))
	default:
		return nil
	}
}

func evalSetValue(v SetValue, item Item) (types.AttributeValue, error) {
	switch v := v.(type) {
	case OperandValue:
		val, ok, err := evalOperand(v.Operand, item)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("the provided expression refers to an attribute that does not exist in the item")
		}
		return Clone(val), nil
	case Arithmetic:
		l, err := evalSetValue(v.Left, item)
		if err != nil {
			return nil, err
		}
		r, err := evalSetValue(v.Right, item)
		if err != nil {
			return nil, err
		}
		return addNumbers(l, r, v.Op == '-')
	case ListAppend:
		l, err := evalSetValue(v.Left, item)
		if err != nil {
			return nil, err
		}
		r, err := evalSetValue(v.Right, item)
		if err != nil {
			return nil, err
		}
		ll, lok := l.(*types.AttributeValueMemberL)
		rl, rok := r.(*types.AttributeValueMemberL)
		if !lok || !rok {
			return nil, fmt.Errorf("list_append operands must be lists")
		}
		out := append(append([]types.AttributeValue{}, ll.Value...), rl.Value...)
		return &types.AttributeValueMemberL{Value: out}, nil
	case IfNotExists:
		if cur, ok := Resolve(item, v.Path); ok {
			return Clone(cur), nil
		}
		return evalSetValue(v.Default, item)
	default:
		return nil, fmt.Errorf("unknown set value %T", v)
	}
}

func setPath(doc Item, path Path, v types.AttributeValue) error {
	if len(path) == 1 {
		doc[path[0].Name] = v
		return nil
	}
	parent, ok := Resolve(doc, path[:len(path)-1])
	if !ok {
		return errInvalidUpdatePath
	}
	last := path[len(path)-1]
	switch p := parent.(type) {
	case *types.AttributeValueMemberM:
		if last.IsIndex {
			return errInvalidUpdatePath
		}
		p.Value[last.Name] = v
	case *types.AttributeValueMemberL:
		if !last.IsIndex {
			return errInvalidUpdatePath
		}
		if last.Index < len(p.Value) {
			p.Value[last.Index] = v
		} else {
			p.Value = append(p.Value, v)
		}
	default:
		return errInvalidUpdatePath
	}
	return nil
}

func removePath(doc Item, path Path) {
	if len(path) == 1 {
		delete(doc, path[0].Name)
		return
	}
	parent, ok := Resolve(doc, path[:len(path)-1])
	if !ok {
		return
	}
	last := path[len(path)-1]
	switch p := parent.(type) {
	case *types.AttributeValueMemberM:
		delete(p.Value, last.Name)
	case *types.AttributeValueMemberL:
		if last.IsIndex && last.Index < len(p.Value) {
			p.Value = append(p.Value[:last.Index:last.Index], p.Value[last.Index+1:]...)
		}
	}
}

// removalOrder removes higher list indexes first so that earlier removals do
// not shift later ones.
func removalOrder(paths []Path) []Path {
	out := append([]Path(nil), paths...)
	index := func(p Path) int {
		if last := p[len(p)-1]; last.IsIndex {
			return last.Index
		}
		return -1
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i][:len(out[i])-1].String(), out[j][:len(out[j])-1].String()
		if a != b {
			return a < b
		}
		return index(out[i]) > index(out[j])
	})
	return out
}

func isAddable(v types.AttributeValue) bool {
	switch v.(type) {
	case *types.AttributeValueMemberN, *types.AttributeValueMemberSS,
		*types.AttributeValueMemberNS, *types.AttributeValueMemberBS:
		return true
	}
	return false
}

func addValue(cur, v types.AttributeValue) (types.AttributeValue, error) {
	switch c := cur.(type) {
	case *types.AttributeValueMemberN:
		return addNumbers(c, v, false)
	case *types.AttributeValueMemberSS:
		add, ok := v.(*types.AttributeValueMemberSS)
		if !ok {
			return nil, fmt.Errorf("cannot add %s to SS", TypeName(v))
		}
		return &types.AttributeValueMemberSS{Value: union(c.Value, add.Value, func(x, y string) bool { return x == y })}, nil
	case *types.AttributeValueMemberNS:
		add, ok := v.(*types.AttributeValueMemberNS)
		if !ok {
			return nil, fmt.Errorf("cannot add %s to NS", TypeName(v))
		}
		return &types.AttributeValueMemberNS{Value: union(c.Value, add.Value, numbersEqual)}, nil
	case *types.AttributeValueMemberBS:
		add, ok := v.(*types.AttributeValueMemberBS)
		if !ok {
			return nil, fmt.Errorf("cannot add %s to BS", TypeName(v))
		}
		return &types.AttributeValueMemberBS{Value: union(c.Value, add.Value, bytes.Equal)}, nil
	default:
		return nil, fmt.Errorf("ADD is not supported for type %s", TypeName(cur))
	}
}

func union[T any](a, b []T, eq func(T, T) bool) []T {
	out := append([]T(nil), a...)
	for _, x := range b {
		if !setContains(out, x, eq) {
			out = append(out, x)
		}
	}
	return out
}

func difference[T any](a, b []T, eq func(T, T) bool) []T {
	var out []T
	for _, x := range a {
		if !setContains(b, x, eq) {
			out = append(out, x)
		}
	}
	return out
}

func subtractSet(cur, v types.AttributeValue) (types.AttributeValue, bool, error) {
	switch c := cur.(type) {
	case *types.AttributeValueMemberSS:
		del, ok := v.(*types.AttributeValueMemberSS)
		if !ok {
			return nil, false, fmt.Errorf("cannot delete %s from SS", TypeName(v))
		}
		rest := difference(c.Value, del.Value, func(x, y string) bool { return x == y })
		return &types.AttributeValueMemberSS{Value: rest}, len(rest) == 0, nil
	case *types.AttributeValueMemberNS:
		del, ok := v.(*types.AttributeValueMemberNS)
		if !ok {
			return nil, false, fmt.Errorf("cannot delete %s from NS", TypeName(v))
		}
		rest := difference(c.Value, del.Value, numbersEqual)
		return &types.AttributeValueMemberNS{Value: rest}, len(rest) == 0, nil
	case *types.AttributeValueMemberBS:
		del, ok := v.(*types.AttributeValueMemberBS)
		if !ok {
			return nil, false, fmt.Errorf("cannot delete %s from BS", TypeName(v))
		}
		rest := difference(c.Value, del.Value, bytes.Equal)
		return &types.AttributeValueMemberBS{Value: rest}, len(rest) == 0, nil
	default:
		return nil, false, fmt.Errorf("DELETE is only supported for sets, got %s", TypeName(cur))
	}
}

func validateNoOverlap(u *Update) error {
	var paths []Path
	for _, a := range u.Set {
		paths = append(paths, a.Path)
	}
	paths = append(paths, u.Remove...)
	for _, a := range u.Add {
		paths = append(paths, a.Path)
	}
	for _, a := range u.Delete {
		paths = append(paths, a.Path)
	}
	for i := range paths {
		for j := i + 1; j < len(paths); j++ {
			if overlaps(paths[i], paths[j]) {
				return fmt.Errorf("two document paths overlap with each other: [%s] and [%s]", paths[i], paths[j])
			}
		}
	}
	return nil
}

func overlaps(a, b Path) bool {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
