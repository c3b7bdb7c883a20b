package ddbsdk

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/dynamap/dynamodb/expr"
)

// Update builds an UpdateItem request.
type Update[T, P, S any] struct {
	m   *Mapper[T, P, S]
	key keyState[P, S]

	update       *string
	condition    *string
	returnValues types.ReturnValue
	names        map[string]string
	values       map[string]types.AttributeValue
}

type UpdateOutput[T any] struct {
	// Attributes holds the whole record when ReturnValues is ALL_OLD or
	// ALL_NEW. Partial UPDATED_* results are not decoded.
	Attributes *T
}

func (m *Mapper[T, P, S]) UpdateItem() Update[T, P, S] {
	d := m.UpdateDefaults
	return Update[T, P, S]{
		m:            m,
		update:       d.UpdateExpression,
		condition:    d.ConditionExpression,
		returnValues: d.ReturnValues,
		names:        d.ExpressionAttributeNames,
		values:       d.ExpressionAttributeValues,
	}
}

// Update targets the item stored under the key of rec.
func (m *Mapper[T, P, S]) Update(rec T) Update[T, P, S] {
	p, s := m.keyInputs(rec)
	return m.UpdateItem().Key(p, s)
}

func (u Update[T, P, S]) PK(p P) Update[T, P, S] {
	u.key = u.key.withPartition(p)
	return u
}

func (u Update[T, P, S]) SK(s S) Update[T, P, S] {
	u.key = u.key.withSort(s)
	return u
}

func (u Update[T, P, S]) Key(p P, s S) Update[T, P, S] {
	return u.PK(p).SK(s)
}

func (u Update[T, P, S]) Update(e expr.UpdateExpression) Update[T, P, S] {
	return u.UpdateExpression(e.String())
}

func (u Update[T, P, S]) UpdateExpression(text string) Update[T, P, S] {
	u.update = &text
	return u
}

func (u Update[T, P, S]) Condition(c expr.ConditionExpression) Update[T, P, S] {
	return u.ConditionExpression(c.String())
}

func (u Update[T, P, S]) ConditionExpression(text string) Update[T, P, S] {
	u.condition = &text
	return u
}

func (u Update[T, P, S]) ReturnValues(rv types.ReturnValue) Update[T, P, S] {
	u.returnValues = rv
	return u
}

func (u Update[T, P, S]) Names(names map[string]string) Update[T, P, S] {
	u.names = merge(names)
	return u
}

func (u Update[T, P, S]) Name(alias, attr string) Update[T, P, S] {
	u.names = withEntry(u.names, alias, attr)
	return u
}

func (u Update[T, P, S]) Values(values map[string]types.AttributeValue) Update[T, P, S] {
	u.values = merge(values)
	return u
}

func (u Update[T, P, S]) Value(alias string, v types.AttributeValue) Update[T, P, S] {
	u.values = withEntry(u.values, alias, v)
	return u
}

// Input assembles the request without sending it. An empty update
// expression is passed through for the store to reject.
func (u Update[T, P, S]) Input() (*dynamodb.UpdateItemInput, error) {
	key := u.key.build(u.m.Schema.Key)
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(u.m.Schema.Name),
		Key:                       key,
		UpdateExpression:          u.update,
		ConditionExpression:       u.condition,
		ExpressionAttributeNames:  merge(u.names),
		ExpressionAttributeValues: merge(u.values),
		ReturnValues:              u.returnValues,
	}, nil
}

func (u Update[T, P, S]) Send(ctx context.Context, client AWSDynamoClientV2) (UpdateOutput[T], error) {
	in, err := u.Input()
	if err != nil {
		return UpdateOutput[T]{}, err
	}
	e := debugRequest(ctx, "UpdateItem", in.TableName)
	e = strField(e, "update", in.UpdateExpression)
	strField(e, "condition", in.ConditionExpression).Msg("sending request")

	res, err := client.UpdateItem(ctx, in)
	if err != nil {
		return UpdateOutput[T]{}, &StoreError{Op: "UpdateItem", Err: err}
	}
	attrs, err := u.m.decodeAttributes(u.returnValues, res.Attributes)
	if err != nil {
		return UpdateOutput[T]{}, err
	}
	return UpdateOutput[T]{Attributes: attrs}, nil
}
