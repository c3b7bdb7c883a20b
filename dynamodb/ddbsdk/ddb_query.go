package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/dynamap/dynamodb/expr"
	"github.com/acksell/dynamap/dynamodb/table"
)

// Placeholders reserved for the key condition of a Query. Filter names and
// values must not reuse them: the key bindings overwrite caller bindings of
// the same alias, and no error is reported.
const (
	PKName      = "#PK"
	SKName      = "#SK"
	PKValue     = ":PK"
	SKValue     = ":SK"
	SKFromValue = ":SK_FROM"
	SKToValue   = ":SK_TO"
)

type sortOp int

const (
	sortEq sortOp = iota
	sortLt
	sortLte
	sortGt
	sortGte
	sortBetween
	sortBeginsWith
)

type sortCondition struct {
	op       sortOp
	value    types.AttributeValue
	from, to types.AttributeValue
}

// Query builds a Query request. A partition key is required; at most one
// sort key condition is active and setting another replaces it.
type Query[T, P, S any] struct {
	m  *Mapper[T, P, S]
	pk types.AttributeValue
	sk *sortCondition

	indexName        *string
	limit            *int32
	consistentRead   *bool
	scanIndexForward *bool
	projection       *string
	projectionAttrs  []string
	filter           *string
	names            map[string]string
	values           map[string]types.AttributeValue
}

type QueryOutput[T any] struct {
	Items []T
	// LastEvaluatedKey is passed as startKey to fetch the next page. It is nil
	// on the last page.
	LastEvaluatedKey Item
}

func (m *Mapper[T, P, S]) Query() Query[T, P, S] {
	d := m.QueryDefaults
	return Query[T, P, S]{
		m:                m,
		indexName:        d.IndexName,
		limit:            d.Limit,
		consistentRead:   d.ConsistentRead,
		scanIndexForward: d.ScanIndexForward,
		projection:       d.ProjectionExpression,
		filter:           d.FilterExpression,
		names:            d.ExpressionAttributeNames,
		values:           d.ExpressionAttributeValues,
	}
}

func (q Query[T, P, S]) PKEq(p P) Query[T, P, S] {
	q.pk = q.m.Schema.Key.PartitionValue(p)
	return q
}

// withSort replaces the sort condition. An input the encoder reports as
// absent clears it.
func (q Query[T, P, S]) withSort(op sortOp, s S) Query[T, P, S] {
	v, ok := q.m.Schema.Key.SortValue(s)
	if !ok {
		q.sk = nil
		return q
	}
	q.sk = &sortCondition{op: op, value: v}
	return q
}

func (q Query[T, P, S]) SKEq(s S) Query[T, P, S]  { return q.withSort(sortEq, s) }
func (q Query[T, P, S]) SKLt(s S) Query[T, P, S]  { return q.withSort(sortLt, s) }
func (q Query[T, P, S]) SKLte(s S) Query[T, P, S] { return q.withSort(sortLte, s) }
func (q Query[T, P, S]) SKGt(s S) Query[T, P, S]  { return q.withSort(sortGt, s) }
func (q Query[T, P, S]) SKGte(s S) Query[T, P, S] { return q.withSort(sortGte, s) }

func (q Query[T, P, S]) SKBetween(from, to S) Query[T, P, S] {
	fv, fok := q.m.Schema.Key.SortValue(from)
	tv, tok := q.m.Schema.Key.SortValue(to)
	if !fok || !tok {
		q.sk = nil
		return q
	}
	q.sk = &sortCondition{op: sortBetween, from: fv, to: tv}
	return q
}

// SKBeginsWith matches sort keys starting with prefix. The prefix is not
// passed through the sort key encoder.
func (q Query[T, P, S]) SKBeginsWith(prefix types.AttributeValue) Query[T, P, S] {
	q.sk = &sortCondition{op: sortBeginsWith, value: prefix}
	return q
}

func (q Query[T, P, S]) Index(name string) Query[T, P, S] {
	q.indexName = &name
	return q
}

func (q Query[T, P, S]) Limit(n int32) Query[T, P, S] {
	q.limit = &n
	return q
}

func (q Query[T, P, S]) ConsistentRead(v bool) Query[T, P, S] {
	q.consistentRead = &v
	return q
}

func (q Query[T, P, S]) ScanIndexForward(v bool) Query[T, P, S] {
	q.scanIndexForward = &v
	return q
}

func (q Query[T, P, S]) Filter(c expr.ConditionExpression) Query[T, P, S] {
	return q.FilterExpression(c.String())
}

func (q Query[T, P, S]) FilterExpression(text string) Query[T, P, S] {
	q.filter = &text
	return q
}

func (q Query[T, P, S]) Projection(attrs ...string) Query[T, P, S] {
	q.projectionAttrs = append([]string(nil), attrs...)
	return q
}

func (q Query[T, P, S]) ProjectionExpression(text string) Query[T, P, S] {
	q.projection = &text
	q.projectionAttrs = nil
	return q
}

func (q Query[T, P, S]) Names(names map[string]string) Query[T, P, S] {
	q.names = merge(names)
	return q
}

func (q Query[T, P, S]) Name(alias, attr string) Query[T, P, S] {
	q.names = withEntry(q.names, alias, attr)
	return q
}

func (q Query[T, P, S]) Values(values map[string]types.AttributeValue) Query[T, P, S] {
	q.values = merge(values)
	return q
}

func (q Query[T, P, S]) Value(alias string, v types.AttributeValue) Query[T, P, S] {
	q.values = withEntry(q.values, alias, v)
	return q
}

// keyCondition renders the key condition and its bindings. The sort
// condition is dropped when the schema declares no sort key. Key values of
// the wrong kind panic like missing ones.
func (q Query[T, P, S]) keyCondition() (string, map[string]string, Item) {
	if err := q.m.Schema.Key.Validate(); err != nil {
		panic(err)
	}
	keys := q.m.Schema.Key.Keys
	if q.pk == nil {
		panic(fmt.Errorf("%w: %q", table.ErrMissingPartitionKey, keys.PartitionKey.Name))
	}
	mustKind(keys.PartitionKey, q.pk)
	cond := expr.NewOperand(PKName).Eq(expr.NewOperand(PKValue))
	names := map[string]string{PKName: keys.PartitionKey.Name}
	values := Item{PKValue: q.pk}
	if !keys.HasSortKey() || q.sk == nil {
		return cond.String(), names, values
	}

	names[SKName] = keys.SortKey.Name
	sk := expr.NewOperand(SKName)
	val := expr.NewOperand(SKValue)
	var skCond expr.ConditionExpression
	switch q.sk.op {
	case sortEq:
		skCond = sk.Eq(val)
	case sortLt:
		skCond = sk.Lt(val)
	case sortLte:
		skCond = sk.Lte(val)
	case sortGt:
		skCond = sk.Gt(val)
	case sortGte:
		skCond = sk.Gte(val)
	case sortBeginsWith:
		skCond = expr.BeginsWith(sk, val)
	case sortBetween:
		skCond = sk.Between(expr.NewOperand(SKFromValue), expr.NewOperand(SKToValue))
		mustKind(keys.SortKey, q.sk.from)
		mustKind(keys.SortKey, q.sk.to)
		values[SKFromValue] = q.sk.from
		values[SKToValue] = q.sk.to
		return cond.And(skCond).String(), names, values
	}
	mustKind(keys.SortKey, q.sk.value)
	values[SKValue] = q.sk.value
	return cond.And(skCond).String(), names, values
}

func mustKind(def table.KeyDef, v types.AttributeValue) {
	if err := def.Check(v); err != nil {
		panic(err)
	}
}

// Input assembles the request without sending it. Caller names and values
// are extended with the key condition bindings, which win on collision.
func (q Query[T, P, S]) Input() (*dynamodb.QueryInput, error) {
	keyCond, keyNames, keyValues := q.keyCondition()
	proj, names, err := resolveProjection(q.projection, q.projectionAttrs, q.names)
	if err != nil {
		return nil, err
	}
	return &dynamodb.QueryInput{
		TableName:                 aws.String(q.m.Schema.Name),
		IndexName:                 q.indexName,
		KeyConditionExpression:    aws.String(keyCond),
		FilterExpression:          q.filter,
		ProjectionExpression:      proj,
		ExpressionAttributeNames:  merge(names, keyNames),
		ExpressionAttributeValues: merge(q.values, keyValues),
		Limit:                     q.limit,
		ConsistentRead:            q.consistentRead,
		ScanIndexForward:          q.scanIndexForward,
	}, nil
}

// Send fetches one page starting after startKey, which may be nil. It does
// not follow LastEvaluatedKey.
func (q Query[T, P, S]) Send(ctx context.Context, client AWSDynamoClientV2, startKey Item) (QueryOutput[T], error) {
	in, err := q.Input()
	if err != nil {
		return QueryOutput[T]{}, err
	}
	in.ExclusiveStartKey = startKey
	e := debugRequest(ctx, "Query", in.TableName)
	e = strField(e, "index", in.IndexName)
	e = strField(e, "key_condition", in.KeyConditionExpression)
	strField(e, "filter", in.FilterExpression).Bool("paginated", startKey != nil).Msg("sending request")

	res, err := client.Query(ctx, in)
	if err != nil {
		return QueryOutput[T]{}, &StoreError{Op: "Query", Err: err}
	}
	items := make([]T, 0, len(res.Items))
	for i, item := range res.Items {
		rec, err := q.m.decode(item)
		if err != nil {
			return QueryOutput[T]{}, &ConversionError{Err: fmt.Errorf("item %d: %w", i, err)}
		}
		items = append(items, rec)
	}
	return QueryOutput[T]{Items: items, LastEvaluatedKey: res.LastEvaluatedKey}, nil
}
