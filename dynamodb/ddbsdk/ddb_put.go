package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/dynamap/dynamodb/expr"
)

// Put builds a PutItem request for one record.
type Put[T, P, S any] struct {
	m      *Mapper[T, P, S]
	rec    T
	hasRec bool

	condition    *string
	returnValues types.ReturnValue
	names        map[string]string
	values       map[string]types.AttributeValue
}

type PutOutput[T any] struct {
	// Attributes holds the replaced record when ReturnValues is ALL_OLD.
	Attributes *T
}

func (m *Mapper[T, P, S]) PutItem() Put[T, P, S] {
	d := m.PutDefaults
	return Put[T, P, S]{
		m:            m,
		condition:    d.ConditionExpression,
		returnValues: d.ReturnValues,
		names:        d.ExpressionAttributeNames,
		values:       d.ExpressionAttributeValues,
	}
}

// Put is PutItem().Item(rec).
func (m *Mapper[T, P, S]) Put(rec T) Put[T, P, S] {
	return m.PutItem().Item(rec)
}

func (p Put[T, P, S]) Item(rec T) Put[T, P, S] {
	p.rec, p.hasRec = rec, true
	return p
}

func (p Put[T, P, S]) Condition(c expr.ConditionExpression) Put[T, P, S] {
	return p.ConditionExpression(c.String())
}

func (p Put[T, P, S]) ConditionExpression(text string) Put[T, P, S] {
	p.condition = &text
	return p
}

func (p Put[T, P, S]) ReturnValues(rv types.ReturnValue) Put[T, P, S] {
	p.returnValues = rv
	return p
}

func (p Put[T, P, S]) Names(names map[string]string) Put[T, P, S] {
	p.names = merge(names)
	return p
}

func (p Put[T, P, S]) Name(alias, attr string) Put[T, P, S] {
	p.names = withEntry(p.names, alias, attr)
	return p
}

func (p Put[T, P, S]) Values(values map[string]types.AttributeValue) Put[T, P, S] {
	p.values = merge(values)
	return p
}

func (p Put[T, P, S]) Value(alias string, v types.AttributeValue) Put[T, P, S] {
	p.values = withEntry(p.values, alias, v)
	return p
}

// Input encodes the record and attaches its key attributes as derived by
// the mapper's KeyInputs. Without KeyInputs the encoded item is sent as is.
func (p Put[T, P, S]) Input() (*dynamodb.PutItemInput, error) {
	if !p.hasRec {
		panic(fmt.Errorf("%w: table %q", ErrMissingRecord, p.m.Schema.Name))
	}
	encoded, err := p.m.encode(p.rec)
	if err != nil {
		return nil, &ConversionError{Err: err}
	}
	item := encoded
	if p.m.KeyInputs != nil {
		pk, sk := p.m.KeyInputs(p.rec)
		key, err := p.m.Schema.Key.Key(pk, sk)
		if err != nil {
			return nil, fmt.Errorf("failed to derive key: %w", err)
		}
		item = merge(encoded, key)
	}
	return &dynamodb.PutItemInput{
		TableName:                 aws.String(p.m.Schema.Name),
		Item:                      item,
		ConditionExpression:       p.condition,
		ExpressionAttributeNames:  merge(p.names),
		ExpressionAttributeValues: merge(p.values),
		ReturnValues:              p.returnValues,
	}, nil
}

func (p Put[T, P, S]) Send(ctx context.Context, client AWSDynamoClientV2) (PutOutput[T], error) {
	in, err := p.Input()
	if err != nil {
		return PutOutput[T]{}, err
	}
	strField(debugRequest(ctx, "PutItem", in.TableName), "condition", in.ConditionExpression).Msg("sending request")

	res, err := client.PutItem(ctx, in)
	if err != nil {
		return PutOutput[T]{}, &StoreError{Op: "PutItem", Err: err}
	}
	old, err := p.m.decodeAttributes(p.returnValues, res.Attributes)
	if err != nil {
		return PutOutput[T]{}, err
	}
	return PutOutput[T]{Attributes: old}, nil
}
