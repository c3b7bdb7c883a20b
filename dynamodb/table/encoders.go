package table

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/constraints"
)

// Encoders for KeySchema.Partition and KeySchema.Sort.

// StringKey encodes the input verbatim as a string.
func StringKey(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

// FmtKey passes the inputs to the format string, e.g. FmtKey[string]("USER#%s").
// A tuple-like struct input can be spread by a custom encoder instead.
func FmtKey[T any](format string) func(T) types.AttributeValue {
	return func(v T) types.AttributeValue {
		return &types.AttributeValueMemberS{Value: fmt.Sprintf(format, v)}
	}
}

type number interface {
	constraints.Integer | constraints.Float
}

// NumberKey encodes the input as a number attribute.
func NumberKey[T number](v T) types.AttributeValue {
	switch n := any(v).(type) {
	case float32:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(float64(n), 'f', -1, 32)}
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(n, 'f', -1, 64)}
	default:
		return &types.AttributeValueMemberN{Value: fmt.Sprint(v)}
	}
}

// ConstKey ignores the input and always yields val.
func ConstKey[T any](val types.AttributeValue) func(T) types.AttributeValue {
	return func(T) types.AttributeValue {
		return val
	}
}

// Required adapts an encoder to the sort key signature. The component is
// always considered supplied.
func Required[T any](enc func(T) types.AttributeValue) func(T) (types.AttributeValue, bool) {
	return func(v T) (types.AttributeValue, bool) {
		return enc(v), true
	}
}

// Optional adapts an encoder to the sort key signature, treating the zero
// value of T as "not supplied".
func Optional[T comparable](enc func(T) types.AttributeValue) func(T) (types.AttributeValue, bool) {
	return func(v T) (types.AttributeValue, bool) {
		var zero T
		if v == zero {
			return nil, false
		}
		return enc(v), true
	}
}
