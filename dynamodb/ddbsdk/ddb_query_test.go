package ddbsdk

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/acksell/dynamap/dynamodb/expr"
	"github.com/acksell/dynamap/dynamodb/table"
)

func TestQueryKeyCondition(t *testing.T) {
	orders := newOrders()
	base := orders.Query().PKEq("c1")

	tests := []struct {
		name   string
		query  Query[Order, string, string]
		cond   string
		names  map[string]string
		values Item
	}{
		{
			name:   "partition only",
			query:  base,
			cond:   "#PK = :PK",
			names:  map[string]string{"#PK": "pk"},
			values: Item{":PK": sv("CUSTOMER#c1")},
		},
		{
			name:   "eq",
			query:  base.SKEq("o1"),
			cond:   "#PK = :PK AND #SK = :SK",
			names:  map[string]string{"#PK": "pk", "#SK": "sk"},
			values: Item{":PK": sv("CUSTOMER#c1"), ":SK": sv("ORDER#o1")},
		},
		{
			name:   "lt",
			query:  base.SKLt("o1"),
			cond:   "#PK = :PK AND #SK < :SK",
			names:  map[string]string{"#PK": "pk", "#SK": "sk"},
			values: Item{":PK": sv("CUSTOMER#c1"), ":SK": sv("ORDER#o1")},
		},
		{
			name:   "lte",
			query:  base.SKLte("o1"),
			cond:   "#PK = :PK AND #SK <= :SK",
			names:  map[string]string{"#PK": "pk", "#SK": "sk"},
			values: Item{":PK": sv("CUSTOMER#c1"), ":SK": sv("ORDER#o1")},
		},
		{
			name:   "gt",
			query:  base.SKGt("o1"),
			cond:   "#PK = :PK AND #SK > :SK",
			names:  map[string]string{"#PK": "pk", "#SK": "sk"},
			values: Item{":PK": sv("CUSTOMER#c1"), ":SK": sv("ORDER#o1")},
		},
		{
			name:   "gte",
			query:  base.SKGte("o1"),
			cond:   "#PK = :PK AND #SK >= :SK",
			names:  map[string]string{"#PK": "pk", "#SK": "sk"},
			values: Item{":PK": sv("CUSTOMER#c1"), ":SK": sv("ORDER#o1")},
		},
		{
			name:   "between",
			query:  base.SKBetween("o1", "o5"),
			cond:   "#PK = :PK AND #SK BETWEEN :SK_FROM AND :SK_TO",
			names:  map[string]string{"#PK": "pk", "#SK": "sk"},
			values: Item{":PK": sv("CUSTOMER#c1"), ":SK_FROM": sv("ORDER#o1"), ":SK_TO": sv("ORDER#o5")},
		},
		{
			name:   "begins with",
			query:  base.SKBeginsWith(sv("ORDER#2024")),
			cond:   "#PK = :PK AND begins_with (#SK, :SK)",
			names:  map[string]string{"#PK": "pk", "#SK": "sk"},
			values: Item{":PK": sv("CUSTOMER#c1"), ":SK": sv("ORDER#2024")},
		},
		{
			name:   "last sort condition wins",
			query:  base.SKEq("o1").SKBetween("o1", "o2").SKGt("o3"),
			cond:   "#PK = :PK AND #SK > :SK",
			names:  map[string]string{"#PK": "pk", "#SK": "sk"},
			values: Item{":PK": sv("CUSTOMER#c1"), ":SK": sv("ORDER#o3")},
		},
		{
			name:   "absent sort input clears condition",
			query:  base.SKEq("o1").SKEq(""),
			cond:   "#PK = :PK",
			names:  map[string]string{"#PK": "pk"},
			values: Item{":PK": sv("CUSTOMER#c1")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := tt.query.Input()
			require.NoError(t, err)
			assert.Equal(t, tt.cond, aws.ToString(in.KeyConditionExpression))
			assert.Equal(t, tt.names, in.ExpressionAttributeNames)
			assert.Equal(t, tt.values, in.ExpressionAttributeValues)
		})
	}
}

func TestQueryIgnoresSortConditionWithoutSortKey(t *testing.T) {
	t.Run("raw prefix", func(t *testing.T) {
		in, err := newPeople().Query().PKEq("1").SKBeginsWith(sv("x")).Input()
		require.NoError(t, err)
		assert.Equal(t, "#PK = :PK", aws.ToString(in.KeyConditionExpression))
		assert.Equal(t, map[string]string{"#PK": "pk"}, in.ExpressionAttributeNames)
		assert.Equal(t, Item{":PK": sv("PERSON#1")}, in.ExpressionAttributeValues)
	})

	t.Run("encoder present but attribute undeclared", func(t *testing.T) {
		m := &Mapper[Person, string, string]{
			Schema: table.Schema[string, string]{
				Name: "people",
				Key: table.KeySchema[string, string]{
					Keys:      table.PrimaryKeyDefinition{PartitionKey: table.KeyDef{Name: "pk"}},
					Partition: table.StringKey,
					Sort:      table.Required(table.StringKey),
				},
			},
		}
		in, err := m.Query().PKEq("1").SKEq("a").SKBetween("a", "b").Input()
		require.NoError(t, err)
		assert.Equal(t, "#PK = :PK", aws.ToString(in.KeyConditionExpression))
		assert.Len(t, in.ExpressionAttributeValues, 1)
	})
}

func TestQueryKeyBindingsOverrideCallerBindings(t *testing.T) {
	in, err := newOrders().Query().
		PKEq("c1").
		SKBeginsWith(sv("ORDER#")).
		Filter(expr.Op("#status").Eq(expr.Op(":status"))).
		Names(map[string]string{"#PK": "bogus", "#SK": "bogus", "#status": "status"}).
		Values(map[string]types.AttributeValue{":PK": sv("bogus"), ":SK": sv("bogus"), ":status": sv("open")}).
		Input()
	require.NoError(t, err)

	assert.Equal(t, "#status = :status", aws.ToString(in.FilterExpression))
	assert.Equal(t, map[string]string{"#PK": "pk", "#SK": "sk", "#status": "status"}, in.ExpressionAttributeNames)
	assert.Equal(t, Item{
		":PK":     sv("CUSTOMER#c1"),
		":SK":     sv("ORDER#"),
		":status": sv("open"),
	}, in.ExpressionAttributeValues)
}

func TestQueryFilterPassesThroughUnchecked(t *testing.T) {
	in, err := newOrders().Query().
		PKEq("c1").
		Filter(expr.Op("#status").In()).
		Name("#status", "status").
		Input()
	require.NoError(t, err)
	assert.Equal(t, "#status IN ()", aws.ToString(in.FilterExpression))
}

func TestQueryCallerMapsNotAliased(t *testing.T) {
	names := map[string]string{"#status": "status"}
	q := newOrders().Query().PKEq("c1").Names(names)
	names["#late"] = "late"

	in, err := q.Input()
	require.NoError(t, err)
	assert.NotContains(t, in.ExpressionAttributeNames, "#late")

	q.Name("#extra", "extra")
	in, err = q.Input()
	require.NoError(t, err)
	assert.NotContains(t, in.ExpressionAttributeNames, "#extra")
	assert.Len(t, names, 2)
}

func TestQueryPanicsWithoutPartitionKey(t *testing.T) {
	client := &mockClient{}
	err := recoverErr(func() {
		_, _ = newOrders().Query().SKEq("o1").Send(context.Background(), client, nil)
	})
	require.ErrorIs(t, err, table.ErrMissingPartitionKey)
	client.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestQueryPanicsOnKeyKindMismatch(t *testing.T) {
	numericPK := newOrders()
	numericPK.Schema.Key.Partition = func(id string) types.AttributeValue { return nv(id) }

	tests := map[string]Query[Order, string, string]{
		"partition": numericPK.Query().PKEq("1"),
		"sort":      newOrders().Query().PKEq("c1").SKBeginsWith(nv("2024")),
	}
	for name, q := range tests {
		t.Run(name, func(t *testing.T) {
			client := &mockClient{}
			err := recoverErr(func() {
				_, _ = q.Send(context.Background(), client, nil)
			})
			require.ErrorIs(t, err, table.ErrKeyKindMismatch)
			client.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
		})
	}
}

func TestQueryPanicsOnInvalidKeySchema(t *testing.T) {
	m := &Mapper[Order, string, string]{
		Schema: table.Schema[string, string]{
			Name: "orders",
			Key: table.KeySchema[string, string]{
				Keys: table.PrimaryKeyDefinition{PartitionKey: table.KeyDef{Name: "pk"}},
			},
		},
	}
	client := &mockClient{}
	err := recoverErr(func() {
		_, _ = m.Query().PKEq("c1").Send(context.Background(), client, nil)
	})
	require.ErrorIs(t, err, table.ErrInvalidKeySchema)
	client.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)

	err = recoverErr(func() {
		_, _ = m.GetItem().Key("c1", "o1").Input()
	})
	require.ErrorIs(t, err, table.ErrInvalidKeySchema)
}

func TestQuerySend(t *testing.T) {
	ctx := context.Background()
	orders := newOrders()
	orders.QueryDefaults = QueryOptions{
		Limit:          aws.Int32(25),
		ConsistentRead: aws.Bool(true),
	}
	start := Item{"pk": sv("CUSTOMER#c1"), "sk": sv("ORDER#o1")}
	next := Item{"pk": sv("CUSTOMER#c1"), "sk": sv("ORDER#o3")}

	client := &mockClient{}
	client.On("Query", ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.TableName) == "orders" &&
			aws.ToString(in.IndexName) == "byStatus" &&
			aws.ToInt32(in.Limit) == 2 &&
			aws.ToBool(in.ConsistentRead) &&
			in.ScanIndexForward != nil && !*in.ScanIndexForward &&
			assert.ObjectsAreEqual(start, in.ExclusiveStartKey)
	})).Return(&dynamodb.QueryOutput{
		Items: []Item{
			encodeOrder(Order{CustomerID: "c1", OrderID: "o2", Status: "open", Total: 10}),
			encodeOrder(Order{CustomerID: "c1", OrderID: "o3", Status: "open", Total: 20}),
		},
		LastEvaluatedKey: next,
	}, nil).Once()

	out, err := orders.Query().
		PKEq("c1").
		Index("byStatus").
		Limit(2).
		ScanIndexForward(false).
		Send(ctx, client, start)
	require.NoError(t, err)

	assert.Equal(t, []Order{
		{CustomerID: "c1", OrderID: "o2", Status: "open", Total: 10},
		{CustomerID: "c1", OrderID: "o3", Status: "open", Total: 20},
	}, out.Items)
	assert.Equal(t, next, out.LastEvaluatedKey)
	client.AssertExpectations(t)
}

func TestQueryConversionFailureAbortsPage(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	client.On("Query", ctx, mock.Anything).Return(&dynamodb.QueryOutput{
		Items: []Item{
			encodeOrder(Order{CustomerID: "c1", OrderID: "o1"}),
			{"order": sv("o2")},
		},
	}, nil)

	out, err := newOrders().Query().PKEq("c1").Send(ctx, client, nil)
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Contains(t, convErr.Error(), "item 1")
	assert.Empty(t, out.Items)
}
