package ddbsdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/mock"

	"github.com/acksell/dynamap/dynamodb/attrmap"
	"github.com/acksell/dynamap/dynamodb/table"
)

// Person lives in a partition-only table and uses the default codec.
type Person struct {
	ID   string `dynamodbav:"id"`
	Name string `dynamodbav:"name"`
	Age  int    `dynamodbav:"age"`
}

func newPeople() *Mapper[Person, string, table.NoSortKey] {
	return &Mapper[Person, string, table.NoSortKey]{
		Schema: table.Schema[string, table.NoSortKey]{
			Name: "people",
			Key: table.KeySchema[string, table.NoSortKey]{
				Keys: table.PrimaryKeyDefinition{
					PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
				},
				Partition: table.FmtKey[string]("PERSON#%s"),
			},
		},
		KeyInputs: func(p Person) (string, table.NoSortKey) {
			return p.ID, table.NoSortKey{}
		},
	}
}

// Order lives in a composite-key table and converts through attrmap.
type Order struct {
	CustomerID string
	OrderID    string
	Status     string
	Total      int
}

func decodeOrder(item Item) (Order, error) {
	m := attrmap.From(item)
	customer, ok := m.S("customer")
	if !ok {
		return Order{}, errors.New("missing customer")
	}
	orderID, ok := m.S("order")
	if !ok {
		return Order{}, errors.New("missing order")
	}
	status, _ := m.S("status")
	total, _, err := attrmap.GetNumber[int](m, "total")
	if err != nil {
		return Order{}, fmt.Errorf("total: %w", err)
	}
	return Order{CustomerID: customer, OrderID: orderID, Status: status, Total: total}, nil
}

func encodeOrder(o Order) Item {
	m := attrmap.New().
		SetS("customer", o.CustomerID).
		SetS("order", o.OrderID).
		SetS("status", o.Status)
	return attrmap.SetNumber(m, "total", o.Total).Item()
}

func newOrders() *Mapper[Order, string, string] {
	return &Mapper[Order, string, string]{
		Schema: table.Schema[string, string]{
			Name: "orders",
			Key: table.KeySchema[string, string]{
				Keys: table.PrimaryKeyDefinition{
					PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
					SortKey:      table.KeyDef{Name: "sk", Kind: table.KeyKindS},
				},
				Partition: table.FmtKey[string]("CUSTOMER#%s"),
				Sort:      table.Optional(table.FmtKey[string]("ORDER#%s")),
			},
		},
		Decode: decodeOrder,
		Encode: encodeOrder,
		KeyInputs: func(o Order) (string, string) {
			return o.CustomerID, o.OrderID
		},
	}
}

func sv(s string) types.AttributeValue { return &types.AttributeValueMemberS{Value: s} }
func nv(s string) types.AttributeValue { return &types.AttributeValueMemberN{Value: s} }

// recoverErr runs f and returns the error it panicked with, if any.
func recoverErr(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
			if err == nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	f()
	return nil
}

type mockClient struct {
	mock.Mock
}

var _ AWSDynamoClientV2 = (*mockClient)(nil)

func (m *mockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) Query(ctx context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}
