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

func TestPutAttachesKey(t *testing.T) {
	in, err := newPeople().Put(Person{ID: "42", Name: "Ada", Age: 36}).Input()
	require.NoError(t, err)

	assert.Equal(t, "people", aws.ToString(in.TableName))
	assert.Equal(t, Item{
		"pk":   sv("PERSON#42"),
		"id":   sv("42"),
		"name": sv("Ada"),
		"age":  nv("36"),
	}, in.Item)
	assert.Empty(t, in.ReturnValues)
}

func TestPutKeyOverridesEncodedAttribute(t *testing.T) {
	orders := newOrders()
	orders.Encode = func(o Order) Item {
		item := encodeOrder(o)
		item["pk"] = sv("stale")
		return item
	}
	in, err := orders.Put(Order{CustomerID: "c1", OrderID: "o1"}).Input()
	require.NoError(t, err)
	assert.Equal(t, sv("CUSTOMER#c1"), in.Item["pk"])
	assert.Equal(t, sv("ORDER#o1"), in.Item["sk"])
}

func TestPutErrors(t *testing.T) {
	t.Run("no record panics", func(t *testing.T) {
		err := recoverErr(func() { _, _ = newPeople().PutItem().Input() })
		require.ErrorIs(t, err, ErrMissingRecord)
	})

	t.Run("record without sort key", func(t *testing.T) {
		_, err := newOrders().Put(Order{CustomerID: "c1"}).Input()
		require.ErrorIs(t, err, table.ErrMissingSortKey)
	})
}

func TestPutConditionAndReturnValues(t *testing.T) {
	ctx := context.Background()
	people := newPeople()
	rec := Person{ID: "1", Name: "Ada", Age: 37}
	old := Item{"pk": sv("PERSON#1"), "id": sv("1"), "name": sv("Ada"), "age": nv("36")}

	put := people.Put(rec).
		Condition(expr.AttributeExists(expr.Op("#id"))).
		Name("#id", "id")

	t.Run("ALL_OLD decodes previous record", func(t *testing.T) {
		client := &mockClient{}
		client.On("PutItem", ctx, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			return aws.ToString(in.ConditionExpression) == "attribute_exists (#id)" &&
				in.ReturnValues == types.ReturnValueAllOld
		})).Return(&dynamodb.PutItemOutput{Attributes: old}, nil)

		out, err := put.ReturnValues(types.ReturnValueAllOld).Send(ctx, client)
		require.NoError(t, err)
		require.NotNil(t, out.Attributes)
		assert.Equal(t, 36, out.Attributes.Age)
	})

	t.Run("NONE ignores attributes", func(t *testing.T) {
		client := &mockClient{}
		client.On("PutItem", ctx, mock.Anything).Return(&dynamodb.PutItemOutput{Attributes: old}, nil)

		out, err := put.Send(ctx, client)
		require.NoError(t, err)
		assert.Nil(t, out.Attributes)
	})

	t.Run("conditional check failure", func(t *testing.T) {
		client := &mockClient{}
		client.On("PutItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("nope")})

		_, err := put.Send(ctx, client)
		var ccf *types.ConditionalCheckFailedException
		require.ErrorAs(t, err, &ccf)
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "PutItem", storeErr.Op)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	orders := newOrders()
	rec := Order{CustomerID: "c1", OrderID: "o1", Status: "open", Total: 10}

	update := orders.Update(rec).
		Update(expr.Set(expr.Op("#status").To(expr.Op(":status"))).
			And(expr.Add(expr.Op("#total"), expr.Op(":inc")))).
		Condition(expr.Op("#status").Ne(expr.Op(":status"))).
		Name("#status", "status").
		Name("#total", "total").
		Value(":status", sv("shipped")).
		Value(":inc", nv("5"))

	in, err := update.Input()
	require.NoError(t, err)
	assert.Equal(t, Item{"pk": sv("CUSTOMER#c1"), "sk": sv("ORDER#o1")}, in.Key)
	assert.Equal(t, "SET #status = :status ADD #total :inc", aws.ToString(in.UpdateExpression))
	assert.Equal(t, "#status <> :status", aws.ToString(in.ConditionExpression))
	assert.Equal(t, map[string]string{"#status": "status", "#total": "total"}, in.ExpressionAttributeNames)

	updated := encodeOrder(Order{CustomerID: "c1", OrderID: "o1", Status: "shipped", Total: 15})

	t.Run("ALL_NEW decodes", func(t *testing.T) {
		client := &mockClient{}
		client.On("UpdateItem", ctx, mock.MatchedBy(func(got *dynamodb.UpdateItemInput) bool {
			return got.ReturnValues == types.ReturnValueAllNew &&
				aws.ToString(got.UpdateExpression) == aws.ToString(in.UpdateExpression)
		})).Return(&dynamodb.UpdateItemOutput{Attributes: updated}, nil)

		out, err := update.ReturnValues(types.ReturnValueAllNew).Send(ctx, client)
		require.NoError(t, err)
		require.NotNil(t, out.Attributes)
		assert.Equal(t, "shipped", out.Attributes.Status)
		assert.Equal(t, 15, out.Attributes.Total)
	})

	t.Run("UPDATED_NEW not decoded", func(t *testing.T) {
		client := &mockClient{}
		client.On("UpdateItem", ctx, mock.Anything).Return(&dynamodb.UpdateItemOutput{
			Attributes: Item{"status": sv("shipped")},
		}, nil)

		out, err := update.ReturnValues(types.ReturnValueUpdatedNew).Send(ctx, client)
		require.NoError(t, err)
		assert.Nil(t, out.Attributes)
	})

	t.Run("defaults", func(t *testing.T) {
		m := newOrders()
		m.UpdateDefaults = UpdateOptions{
			UpdateExpression:         aws.String("REMOVE #tmp"),
			ExpressionAttributeNames: map[string]string{"#tmp": "tmp"},
		}
		in, err := m.UpdateItem().Key("c1", "o1").Input()
		require.NoError(t, err)
		assert.Equal(t, "REMOVE #tmp", aws.ToString(in.UpdateExpression))
		assert.Equal(t, map[string]string{"#tmp": "tmp"}, in.ExpressionAttributeNames)
	})

	t.Run("instance form needs KeyInputs", func(t *testing.T) {
		m := newOrders()
		m.KeyInputs = nil
		err := recoverErr(func() { m.Update(rec) })
		require.ErrorIs(t, err, ErrNoKeyInputs)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	people := newPeople()

	t.Run("panics without key", func(t *testing.T) {
		client := &mockClient{}
		err := recoverErr(func() { _, _ = people.DeleteItem().Send(ctx, client) })
		require.ErrorIs(t, err, table.ErrMissingPartitionKey)
		client.AssertNotCalled(t, "DeleteItem", mock.Anything, mock.Anything)
	})

	t.Run("ALL_OLD", func(t *testing.T) {
		client := &mockClient{}
		client.On("DeleteItem", ctx, &dynamodb.DeleteItemInput{
			TableName:    aws.String("people"),
			Key:          Item{"pk": sv("PERSON#9")},
			ReturnValues: types.ReturnValueAllOld,
		}).Return(&dynamodb.DeleteItemOutput{Attributes: Item{
			"id":   sv("9"),
			"name": sv("Linus"),
		}}, nil).Once()

		out, err := people.Delete(Person{ID: "9"}).ReturnValues(types.ReturnValueAllOld).Send(ctx, client)
		require.NoError(t, err)
		require.NotNil(t, out.Attributes)
		assert.Equal(t, "Linus", out.Attributes.Name)
		client.AssertExpectations(t)
	})

	t.Run("condition", func(t *testing.T) {
		in, err := people.DeleteItem().
			PK("9").
			Condition(expr.Op("#age").Gt(expr.Op(":min"))).
			Name("#age", "age").
			Value(":min", nv("18")).
			Input()
		require.NoError(t, err)
		assert.Equal(t, "#age > :min", aws.ToString(in.ConditionExpression))
		assert.Equal(t, map[string]types.AttributeValue{":min": nv("18")}, in.ExpressionAttributeValues)
	})
}
