package exprparse

import (
	"fmt"

	"github.com/acksell/dynamap/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// KeyCondition is a parsed key condition expression: an equality on the
// partition key and at most one condition on the sort key.
type KeyCondition struct {
	Partition types.AttributeValue
	// Sort is nil when the expression does not constrain the sort key.
	Sort Condition
}

// Matches reports whether item satisfies the sort key condition.
func (k KeyCondition) Matches(item Item) (bool, error) {
	if k.Sort == nil {
		return true, nil
	}
	return Eval(k.Sort, item)
}

// ParseKeyCondition parses a key condition expression against the key
// attributes of a table or index.
func ParseKeyCondition(expr string, params ParseParams, keys table.PrimaryKeyDefinition) (KeyCondition, error) {
	c, err := ParseCondition(expr, params)
	if err != nil {
		return KeyCondition{}, err
	}
	var kc KeyCondition
	for _, term := range flattenAnd(c) {
		attr, err := keyTermAttribute(term)
		if err != nil {
			return KeyCondition{}, err
		}
		switch {
		case attr == keys.PartitionKey.Name:
			cmp, ok := term.(Compare)
			if !ok || cmp.Op != "=" {
				return KeyCondition{}, fmt.Errorf("partition key %q only supports equality", attr)
			}
			v, ok := cmp.Right.(ValueOperand)
			if !ok {
				return KeyCondition{}, fmt.Errorf("partition key %q must be compared to a value", attr)
			}
			if kc.Partition != nil {
				return KeyCondition{}, fmt.Errorf("partition key %q is constrained more than once", attr)
			}
			kc.Partition = v.Value
		case keys.HasSortKey() && attr == keys.SortKey.Name:
			if kc.Sort != nil {
				return KeyCondition{}, fmt.Errorf("sort key %q is constrained more than once", attr)
			}
			kc.Sort = term
		default:
			return KeyCondition{}, fmt.Errorf("key condition references non-key attribute %q", attr)
		}
	}
	if kc.Partition == nil {
		return KeyCondition{}, fmt.Errorf("key condition must constrain partition key %q", keys.PartitionKey.Name)
	}
	return kc, nil
}

func flattenAnd(c Condition) []Condition {
	if a, ok := c.(And); ok {
		return append(flattenAnd(a.Left), flattenAnd(a.Right)...)
	}
	return []Condition{c}
}

func keyTermAttribute(c Condition) (string, error) {
	var left Operand
	switch c := c.(type) {
	case Compare:
		if c.Op == "<>" {
			return "", fmt.Errorf("<> is not supported in key conditions")
		}
		left = c.Left
	case Between:
		left = c.Operand
	case Function:
		if c.Name != "begins_with" {
			return "", fmt.Errorf("%s is not supported in key conditions", c.Name)
		}
		left = c.Args[0]
	default:
		return "", fmt.Errorf("unsupported key condition term %T", c)
	}
	p, ok := left.(PathOperand)
	if !ok || len(p.Path) != 1 {
		return "", fmt.Errorf("key condition terms must start with a top-level key attribute")
	}
	return p.Path.Attribute(), nil
}
