package exprparse

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Item = map[string]types.AttributeValue

// Resolve returns the value at path, or false when any segment is missing.
func Resolve(item Item, path Path) (types.AttributeValue, bool) {
	if len(path) == 0 || path[0].IsIndex {
		return nil, false
	}
	cur, ok := item[path[0].Name]
	if !ok {
		return nil, false
	}
	for _, e := range path[1:] {
		switch v := cur.(type) {
		case *types.AttributeValueMemberM:
			if e.IsIndex {
				return nil, false
			}
			if cur, ok = v.Value[e.Name]; !ok {
				return nil, false
			}
		case *types.AttributeValueMemberL:
			if !e.IsIndex || e.Index >= len(v.Value) {
				return nil, false
			}
			cur = v.Value[e.Index]
		default:
			return nil, false
		}
	}
	return cur, true
}

func evalOperand(o Operand, item Item) (types.AttributeValue, bool, error) {
	switch o := o.(type) {
	case ValueOperand:
		return o.Value, true, nil
	case PathOperand:
		v, ok := Resolve(item, o.Path)
		return v, ok, nil
	case SizeOperand:
		v, ok := Resolve(item, o.Path)
		if !ok {
			return nil, false, nil
		}
		n, err := size(v)
		if err != nil {
			return nil, false, err
		}
		return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}, true, nil
	default:
		return nil, false, fmt.Errorf("unknown operand %T", o)
	}
}

// Eval evaluates a condition against item. A nil item is a missing item.
func Eval(c Condition, item Item) (bool, error) {
	switch c := c.(type) {
	case And:
		l, err := Eval(c.Left, item)
		if err != nil || !l {
			return false, err
		}
		return Eval(c.Right, item)
	case Or:
		l, err := Eval(c.Left, item)
		if err != nil || l {
			return l, err
		}
		return Eval(c.Right, item)
	case Not:
		v, err := Eval(c.Condition, item)
		return !v, err
	case Compare:
		return evalCompare(c, item)
	case Between:
		v, ok, err := evalOperand(c.Operand, item)
		if err != nil || !ok {
			return false, err
		}
		from, ok, err := evalOperand(c.From, item)
		if err != nil || !ok {
			return false, err
		}
		to, ok, err := evalOperand(c.To, item)
		if err != nil || !ok {
			return false, err
		}
		lo, ok1 := CompareValues(v, from)
		hi, ok2 := CompareValues(v, to)
		return ok1 && ok2 && lo >= 0 && hi <= 0, nil
	case In:
		v, ok, err := evalOperand(c.Operand, item)
		if err != nil || !ok {
			return false, err
		}
		for _, o := range c.List {
			candidate, ok, err := evalOperand(o, item)
			if err != nil {
				return false, err
			}
			if ok && Equal(v, candidate) {
				return true, nil
			}
		}
		return false, nil
	case Function:
		return evalFunction(c, item)
	default:
		return false, fmt.Errorf("unknown condition %T", c)
	}
}

func evalCompare(c Compare, item Item) (bool, error) {
	l, lok, err := evalOperand(c.Left, item)
	if err != nil {
		return false, err
	}
	r, rok, err := evalOperand(c.Right, item)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case "=":
		return lok && rok && Equal(l, r), nil
	case "<>":
		return !(lok && rok && Equal(l, r)), nil
	}
	if !lok || !rok {
		return false, nil
	}
	cmp, ok := CompareValues(l, r)
	if !ok {
		return false, nil
	}
	switch c.Op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unknown comparator %q", c.Op)
}

func evalFunction(f Function, item Item) (bool, error) {
	path := f.Args[0].(PathOperand).Path
	v, exists := Resolve(item, path)
	switch f.Name {
	case "attribute_exists":
		return exists, nil
	case "attribute_not_exists":
		return !exists, nil
	}

	arg, ok, err := evalOperand(f.Args[1], item)
	if err != nil || !ok || !exists {
		return false, err
	}
	switch f.Name {
	case "attribute_type":
		want, isS := arg.(*types.AttributeValueMemberS)
		if !isS {
			return false, fmt.Errorf("attribute_type expects a string type descriptor")
		}
		return TypeName(v) == want.Value, nil
	case "begins_with":
		switch v := v.(type) {
		case *types.AttributeValueMemberS:
			prefix, isS := arg.(*types.AttributeValueMemberS)
			return isS && strings.HasPrefix(v.Value, prefix.Value), nil
		case *types.AttributeValueMemberB:
			prefix, isB := arg.(*types.AttributeValueMemberB)
			return isB && bytes.HasPrefix(v.Value, prefix.Value), nil
		}
		return false, nil
	case "contains":
		return contains(v, arg), nil
	}
	return false, fmt.Errorf("unknown function %q", f.Name)
}

func contains(v, arg types.AttributeValue) bool {
	switch v := v.(type) {
	case *types.AttributeValueMemberS:
		sub, ok := arg.(*types.AttributeValueMemberS)
		return ok && strings.Contains(v.Value, sub.Value)
	case *types.AttributeValueMemberB:
		sub, ok := arg.(*types.AttributeValueMemberB)
		return ok && bytes.Contains(v.Value, sub.Value)
	case *types.AttributeValueMemberSS:
		e, ok := arg.(*types.AttributeValueMemberS)
		return ok && setContains(v.Value, e.Value, func(x, y string) bool { return x == y })
	case *types.AttributeValueMemberNS:
		e, ok := arg.(*types.AttributeValueMemberN)
		return ok && setContains(v.Value, e.Value, numbersEqual)
	case *types.AttributeValueMemberBS:
		e, ok := arg.(*types.AttributeValueMemberB)
		return ok && setContains(v.Value, e.Value, bytes.Equal)
	case *types.AttributeValueMemberL:
		for _, e := range v.Value {
			if Equal(e, arg) {
				return true
			}
		}
	}
	return false
}
