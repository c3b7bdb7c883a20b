package ddbsdk

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Get builds a GetItem request.
type Get[T, P, S any] struct {
	m   *Mapper[T, P, S]
	key keyState[P, S]

	consistentRead  *bool
	projection      *string
	projectionAttrs []string
	names           map[string]string
}

type GetOutput[T any] struct {
	// Item is nil when no item exists under the key.
	Item *T
}

func (m *Mapper[T, P, S]) GetItem() Get[T, P, S] {
	d := m.GetDefaults
	return Get[T, P, S]{
		m:              m,
		consistentRead: d.ConsistentRead,
		projection:     d.ProjectionExpression,
		names:          d.ExpressionAttributeNames,
	}
}

func (g Get[T, P, S]) PK(p P) Get[T, P, S] {
	g.key = g.key.withPartition(p)
	return g
}

func (g Get[T, P, S]) SK(s S) Get[T, P, S] {
	g.key = g.key.withSort(s)
	return g
}

func (g Get[T, P, S]) Key(p P, s S) Get[T, P, S] {
	return g.PK(p).SK(s)
}

func (g Get[T, P, S]) ConsistentRead(v bool) Get[T, P, S] {
	g.consistentRead = &v
	return g
}

// Projection limits the returned attributes. It replaces any projection
// expression set before.
func (g Get[T, P, S]) Projection(attrs ...string) Get[T, P, S] {
	g.projectionAttrs = append([]string(nil), attrs...)
	return g
}

// ProjectionExpression sets raw projection text. Attribute name placeholders
// in it must be bound with Names or Name.
func (g Get[T, P, S]) ProjectionExpression(text string) Get[T, P, S] {
	g.projection = &text
	g.projectionAttrs = nil
	return g
}

func (g Get[T, P, S]) Names(names map[string]string) Get[T, P, S] {
	g.names = merge(names)
	return g
}

func (g Get[T, P, S]) Name(alias, attr string) Get[T, P, S] {
	g.names = withEntry(g.names, alias, attr)
	return g
}

// Input assembles the request without sending it.
func (g Get[T, P, S]) Input() (*dynamodb.GetItemInput, error) {
	key := g.key.build(g.m.Schema.Key)
	proj, names, err := resolveProjection(g.projection, g.projectionAttrs, g.names)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemInput{
		TableName:                aws.String(g.m.Schema.Name),
		Key:                      key,
		ConsistentRead:           g.consistentRead,
		ProjectionExpression:     proj,
		ExpressionAttributeNames: names,
	}, nil
}

func (g Get[T, P, S]) Send(ctx context.Context, client AWSDynamoClientV2) (GetOutput[T], error) {
	in, err := g.Input()
	if err != nil {
		return GetOutput[T]{}, err
	}
	strField(debugRequest(ctx, "GetItem", in.TableName), "projection", in.ProjectionExpression).Msg("sending request")

	res, err := client.GetItem(ctx, in)
	if err != nil {
		return GetOutput[T]{}, &StoreError{Op: "GetItem", Err: err}
	}
	if len(res.Item) == 0 {
		return GetOutput[T]{}, nil
	}
	rec, err := g.m.decode(res.Item)
	if err != nil {
		return GetOutput[T]{}, &ConversionError{Err: err}
	}
	return GetOutput[T]{Item: &rec}, nil
}
