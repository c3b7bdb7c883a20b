// Package ddbsdk maps typed records onto DynamoDB Get, Put, Query, Update and
// Delete requests.
//
// A Mapper carries the static configuration of one record type: its table
// schema, item conversion and per-operation defaults. Builders obtained from a
// Mapper are values; every setter returns a modified copy. Input assembles the
// SDK request without I/O and Send dispatches it exactly once.
//
// Dispatching a Get, Update or Delete without a full primary key, or a Query
// without a partition key, is a programming error and panics with an error
// wrapping table.ErrMissingPartitionKey or table.ErrMissingSortKey before any
// request is made. Key values of the wrong kind panic with
// table.ErrKeyKindMismatch, and a schema failing Validate panics with
// table.ErrInvalidKeySchema.
package ddbsdk

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/dynamap/dynamodb/table"
)

// Mapper is the per-record-type configuration shared by all builders.
//
// Decode and Encode default to attributevalue.UnmarshalMap and MarshalMap.
// KeyInputs derives the key inputs of a record and is required by Put to
// attach key attributes, and by the instance forms Update and Delete.
type Mapper[T, P, S any] struct {
	Schema    table.Schema[P, S]
	Decode    func(Item) (T, error)
	Encode    func(T) Item
	KeyInputs func(T) (P, S)

	GetDefaults    GetOptions
	PutDefaults    PutOptions
	UpdateDefaults UpdateOptions
	DeleteDefaults DeleteOptions
	QueryDefaults  QueryOptions
}

// GetOptions are the fields of a GetItem request a mapper may preset.
type GetOptions struct {
	ConsistentRead           *bool
	ProjectionExpression     *string
	ExpressionAttributeNames map[string]string
}

type PutOptions struct {
	ReturnValues              types.ReturnValue
	ConditionExpression       *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue
}

type UpdateOptions struct {
	ReturnValues              types.ReturnValue
	UpdateExpression          *string
	ConditionExpression       *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue
}

type DeleteOptions struct {
	ReturnValues              types.ReturnValue
	ConditionExpression       *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue
}

type QueryOptions struct {
	IndexName                 *string
	Limit                     *int32
	ConsistentRead            *bool
	ScanIndexForward          *bool
	ProjectionExpression      *string
	FilterExpression          *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue
}

func (m *Mapper[T, P, S]) Validate() error {
	return m.Schema.Validate()
}

func (m *Mapper[T, P, S]) decode(item Item) (T, error) {
	if m.Decode != nil {
		return m.Decode(item)
	}
	var rec T
	err := attributevalue.UnmarshalMap(item, &rec)
	return rec, err
}

func (m *Mapper[T, P, S]) encode(rec T) (Item, error) {
	if m.Encode != nil {
		return m.Encode(rec), nil
	}
	return attributevalue.MarshalMap(rec)
}

// decodeAttributes converts returned attributes when rv asks for a whole item.
func (m *Mapper[T, P, S]) decodeAttributes(rv types.ReturnValue, attrs Item) (*T, error) {
	if rv != types.ReturnValueAllNew && rv != types.ReturnValueAllOld {
		return nil, nil
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	rec, err := m.decode(attrs)
	if err != nil {
		return nil, &ConversionError{Err: err}
	}
	return &rec, nil
}

func (m *Mapper[T, P, S]) keyInputs(rec T) (P, S) {
	if m.KeyInputs == nil {
		panic(fmt.Errorf("%w: table %q", ErrNoKeyInputs, m.Schema.Name))
	}
	return m.KeyInputs(rec)
}

// keyState tracks the key inputs given to a Get, Update or Delete builder.
type keyState[P, S any] struct {
	p    P
	s    S
	hasP bool
	hasS bool
}

func (k keyState[P, S]) withPartition(p P) keyState[P, S] {
	k.p, k.hasP = p, true
	return k
}

func (k keyState[P, S]) withSort(s S) keyState[P, S] {
	k.s, k.hasS = s, true
	return k
}

// build encodes the full primary key, panicking when a component is missing.
func (k keyState[P, S]) build(schema table.KeySchema[P, S]) Item {
	if !k.hasP {
		panic(fmt.Errorf("%w: %q", table.ErrMissingPartitionKey, schema.Keys.PartitionKey.Name))
	}
	if schema.Keys.HasSortKey() && !k.hasS {
		panic(fmt.Errorf("%w: %q", table.ErrMissingSortKey, schema.Keys.SortKey.Name))
	}
	key, err := schema.Key(k.p, k.s)
	if err != nil {
		panic(err)
	}
	return key
}
