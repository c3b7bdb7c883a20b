package exprparse

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Project keeps only the attributes named by a projection expression. A nil
// expression returns item unchanged.
func Project(expr *string, names map[string]string, item Item) (Item, error) {
	if expr == nil || item == nil {
		return item, nil
	}
	paths, err := ParseProjection(*expr, names)
	if err != nil {
		return nil, err
	}
	out := Item{}
	for _, p := range paths {
		v, ok := Resolve(item, p)
		if !ok {
			continue
		}
		if len(p) == 1 {
			out[p[0].Name] = Clone(v)
			continue
		}
		// Nested paths keep their enclosing maps; list indexes collapse
		// into a list of the selected elements.
		graft(out, item, p)
	}
	return out, nil
}

func graft(out, src Item, p Path) {
	srcCur := src[p[0].Name]
	dst, ok := out[p[0].Name]
	if !ok {
		dst = emptyLike(srcCur)
		out[p[0].Name] = dst
	}
	for i := 1; i < len(p); i++ {
		e := p[i]
		last := i == len(p)-1
		var next types.AttributeValue
		switch s := srcCur.(type) {
		case *types.AttributeValueMemberM:
			next = s.Value[e.Name]
		case *types.AttributeValueMemberL:
			next = s.Value[e.Index]
		}
		var child types.AttributeValue
		if last {
			child = Clone(next)
		} else {
			child = emptyLike(next)
		}
		switch d := dst.(type) {
		case *types.AttributeValueMemberM:
			if existing, ok := d.Value[e.Name]; ok && !last {
				child = existing
			} else {
				d.Value[e.Name] = child
			}
		case *types.AttributeValueMemberL:
			d.Value = append(d.Value, child)
		default:
			return
		}
		dst, srcCur = child, next
	}
}

func emptyLike(v types.AttributeValue) types.AttributeValue {
	if _, ok := v.(*types.AttributeValueMemberL); ok {
		return &types.AttributeValueMemberL{}
	}
	return &types.AttributeValueMemberM{Value: Item{}}
}
