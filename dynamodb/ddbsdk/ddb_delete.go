package ddbsdk

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/dynamap/dynamodb/expr"
)

// Delete builds a DeleteItem request.
type Delete[T, P, S any] struct {
	m   *Mapper[T, P, S]
	key keyState[P, S]

	condition    *string
	returnValues types.ReturnValue
	names        map[string]string
	values       map[string]types.AttributeValue
}

type DeleteOutput[T any] struct {
	// Attributes holds the deleted record when ReturnValues is ALL_OLD.
	Attributes *T
}

func (m *Mapper[T, P, S]) DeleteItem() Delete[T, P, S] {
	d := m.DeleteDefaults
	return Delete[T, P, S]{
		m:            m,
		condition:    d.ConditionExpression,
		returnValues: d.ReturnValues,
		names:        d.ExpressionAttributeNames,
		values:       d.ExpressionAttributeValues,
	}
}

// Delete targets the item stored under the key of rec.
func (m *Mapper[T, P, S]) Delete(rec T) Delete[T, P, S] {
	p, s := m.keyInputs(rec)
	return m.DeleteItem().Key(p, s)
}

func (d Delete[T, P, S]) PK(p P) Delete[T, P, S] {
	d.key = d.key.withPartition(p)
	return d
}

func (d Delete[T, P, S]) SK(s S) Delete[T, P, S] {
	d.key = d.key.withSort(s)
	return d
}

func (d Delete[T, P, S]) Key(p P, s S) Delete[T, P, S] {
	return d.PK(p).SK(s)
}

func (d Delete[T, P, S]) Condition(c expr.ConditionExpression) Delete[T, P, S] {
	return d.ConditionExpression(c.String())
}

func (d Delete[T, P, S]) ConditionExpression(text string) Delete[T, P, S] {
	d.condition = &text
	return d
}

func (d Delete[T, P, S]) ReturnValues(rv types.ReturnValue) Delete[T, P, S] {
	d.returnValues = rv
	return d
}

func (d Delete[T, P, S]) Names(names map[string]string) Delete[T, P, S] {
	d.names = merge(names)
	return d
}

func (d Delete[T, P, S]) Name(alias, attr string) Delete[T, P, S] {
	d.names = withEntry(d.names, alias, attr)
	return d
}

func (d Delete[T, P, S]) Values(values map[string]types.AttributeValue) Delete[T, P, S] {
	d.values = merge(values)
	return d
}

func (d Delete[T, P, S]) Value(alias string, v types.AttributeValue) Delete[T, P, S] {
	d.values = withEntry(d.values, alias, v)
	return d
}

func (d Delete[T, P, S]) Input() (*dynamodb.DeleteItemInput, error) {
	key := d.key.build(d.m.Schema.Key)
	return &dynamodb.DeleteItemInput{
		TableName:                 aws.String(d.m.Schema.Name),
		Key:                       key,
		ConditionExpression:       d.condition,
		ExpressionAttributeNames:  merge(d.names),
		ExpressionAttributeValues: merge(d.values),
		ReturnValues:              d.returnValues,
	}, nil
}

func (d Delete[T, P, S]) Send(ctx context.Context, client AWSDynamoClientV2) (DeleteOutput[T], error) {
	in, err := d.Input()
	if err != nil {
		return DeleteOutput[T]{}, err
	}
	strField(debugRequest(ctx, "DeleteItem", in.TableName), "condition", in.ConditionExpression).Msg("sending request")

	res, err := client.DeleteItem(ctx, in)
	if err != nil {
		return DeleteOutput[T]{}, &StoreError{Op: "DeleteItem", Err: err}
	}
	old, err := d.m.decodeAttributes(d.returnValues, res.Attributes)
	if err != nil {
		return DeleteOutput[T]{}, err
	}
	return DeleteOutput[T]{Attributes: old}, nil
}
