// Package attrmap is a typed builder and accessor over DynamoDB items.
//
//	item := attrmap.New().
//		SetS("pk", "PERSON#12345").
//		SetN("age", "36").
//		Item()
//
// Setters write into the receiver and return it for chaining. Getters report
// false when the attribute is missing or holds another type.
package attrmap

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/constraints"
)

type Map map[string]types.AttributeValue

func New() Map {
	return Map{}
}

// From wraps an existing item. The item is not copied.
func From(item map[string]types.AttributeValue) Map {
	if item == nil {
		return Map{}
	}
	return Map(item)
}

// Item returns the underlying item.
func (m Map) Item() map[string]types.AttributeValue {
	return m
}

func (m Map) Get(key string) (types.AttributeValue, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Map) Set(key string, v types.AttributeValue) Map {
	m[key] = v
	return m
}

func (m Map) SetS(key, v string) Map {
	return m.Set(key, &types.AttributeValueMemberS{Value: v})
}

// SetN stores a number given in its string form.
func (m Map) SetN(key, v string) Map {
	return m.Set(key, &types.AttributeValueMemberN{Value: v})
}

func (m Map) SetB(key string, v []byte) Map {
	return m.Set(key, &types.AttributeValueMemberB{Value: v})
}

func (m Map) SetBool(key string, v bool) Map {
	return m.Set(key, &types.AttributeValueMemberBOOL{Value: v})
}

func (m Map) SetNull(key string) Map {
	return m.Set(key, &types.AttributeValueMemberNULL{Value: true})
}

func (m Map) SetSS(key string, v ...string) Map {
	return m.Set(key, &types.AttributeValueMemberSS{Value: v})
}

func (m Map) SetNS(key string, v ...string) Map {
	return m.Set(key, &types.AttributeValueMemberNS{Value: v})
}

func (m Map) SetBS(key string, v ...[]byte) Map {
	return m.Set(key, &types.AttributeValueMemberBS{Value: v})
}

func (m Map) SetL(key string, v ...types.AttributeValue) Map {
	return m.Set(key, &types.AttributeValueMemberL{Value: v})
}

func (m Map) SetM(key string, v map[string]types.AttributeValue) Map {
	return m.Set(key, &types.AttributeValueMemberM{Value: v})
}

type Numeric interface {
	constraints.Integer | constraints.Float
}

// SetNumber stores a Go number as an N attribute.
func SetNumber[T Numeric](m Map, key string, v T) Map {
	return m.SetN(key, formatNumber(v))
}

func formatNumber[T Numeric](v T) string {
	switch n := any(v).(type) {
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Marshal stores any Go value using the attributevalue encoder.
func (m Map) Marshal(key string, v any) error {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	m[key] = av
	return nil
}

// Unmarshal decodes the attribute into out using the attributevalue decoder.
// A missing attribute leaves out untouched.
func (m Map) Unmarshal(key string, out any) error {
	v, ok := m[key]
	if !ok {
		return nil
	}
	if err := attributevalue.Unmarshal(v, out); err != nil {
		return fmt.Errorf("unmarshal %q: %w", key, err)
	}
	return nil
}

func get[T types.AttributeValue](m Map, key string) (T, bool) {
	v, ok := m[key].(T)
	return v, ok
}

func (m Map) S(key string) (string, bool) {
	v, ok := get[*types.AttributeValueMemberS](m, key)
	if !ok {
		return "", false
	}
	return v.Value, true
}

func (m Map) N(key string) (string, bool) {
	v, ok := get[*types.AttributeValueMemberN](m, key)
	if !ok {
		return "", false
	}
	return v.Value, true
}

func (m Map) B(key string) ([]byte, bool) {
	v, ok := get[*types.AttributeValueMemberB](m, key)
	if !ok {
		return nil, false
	}
	return v.Value, true
}

func (m Map) Bool(key string) (bool, bool) {
	v, ok := get[*types.AttributeValueMemberBOOL](m, key)
	if !ok {
		return false, false
	}
	return v.Value, true
}

// Null reports whether the attribute is present and NULL.
func (m Map) Null(key string) bool {
	v, ok := get[*types.AttributeValueMemberNULL](m, key)
	return ok && v.Value
}

func (m Map) SS(key string) ([]string, bool) {
	v, ok := get[*types.AttributeValueMemberSS](m, key)
	if !ok {
		return nil, false
	}
	return v.Value, true
}

func (m Map) NS(key string) ([]string, bool) {
	v, ok := get[*types.AttributeValueMemberNS](m, key)
	if !ok {
		return nil, false
	}
	return v.Value, true
}

func (m Map) BS(key string) ([][]byte, bool) {
	v, ok := get[*types.AttributeValueMemberBS](m, key)
	if !ok {
		return nil, false
	}
	return v.Value, true
}

func (m Map) L(key string) ([]types.AttributeValue, bool) {
	v, ok := get[*types.AttributeValueMemberL](m, key)
	if !ok {
		return nil, false
	}
	return v.Value, true
}

// M returns a nested map as a Map.
func (m Map) M(key string) (Map, bool) {
	v, ok := get[*types.AttributeValueMemberM](m, key)
	if !ok {
		return nil, false
	}
	return From(v.Value), true
}

// GetNumber parses an N attribute into T.
func GetNumber[T Numeric](m Map, key string) (T, bool, error) {
	var zero T
	s, ok := m.N(key)
	if !ok {
		return zero, false, nil
	}
	var out T
	if err := attributevalue.Unmarshal(&types.AttributeValueMemberN{Value: s}, &out); err != nil {
		return zero, true, fmt.Errorf("parse %q: %w", key, err)
	}
	return out, true, nil
}
