package ddbsdk

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/acksell/dynamap/dynamodb/table"
)

func TestGetInputBuildsKeyWithoutIO(t *testing.T) {
	in, err := newPeople().GetItem().PK("12345").Input()
	require.NoError(t, err)

	assert.Equal(t, "people", aws.ToString(in.TableName))
	assert.Equal(t, Item{"pk": sv("PERSON#12345")}, in.Key)
	assert.Nil(t, in.ConsistentRead)
	assert.Nil(t, in.ProjectionExpression)
	assert.Nil(t, in.ExpressionAttributeNames)
}

func TestGetCompositeKey(t *testing.T) {
	in, err := newOrders().GetItem().Key("c1", "o1").Input()
	require.NoError(t, err)
	assert.Equal(t, Item{"pk": sv("CUSTOMER#c1"), "sk": sv("ORDER#o1")}, in.Key)
}

func TestGetPanicsWithoutKey(t *testing.T) {
	client := &mockClient{}

	t.Run("partition key", func(t *testing.T) {
		err := recoverErr(func() {
			_, _ = newPeople().GetItem().Send(context.Background(), client)
		})
		require.ErrorIs(t, err, table.ErrMissingPartitionKey)
	})

	t.Run("sort key", func(t *testing.T) {
		err := recoverErr(func() {
			_, _ = newOrders().GetItem().PK("c1").Input()
		})
		require.ErrorIs(t, err, table.ErrMissingSortKey)
	})

	t.Run("sort key reported absent by encoder", func(t *testing.T) {
		err := recoverErr(func() {
			_, _ = newOrders().GetItem().Key("c1", "").Input()
		})
		require.ErrorIs(t, err, table.ErrMissingSortKey)
	})

	client.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
}

func TestGetProjection(t *testing.T) {
	in, err := newPeople().GetItem().
		PK("1").
		Name("#x", "unrelated").
		Projection("name", "age").
		Input()
	require.NoError(t, err)

	assert.Equal(t, "#0, #1", aws.ToString(in.ProjectionExpression))
	assert.Equal(t, map[string]string{"#0": "name", "#1": "age", "#x": "unrelated"}, in.ExpressionAttributeNames)

	t.Run("raw expression replaces attribute list", func(t *testing.T) {
		in, err := newPeople().GetItem().
			PK("1").
			Projection("name").
			ProjectionExpression("#n").
			Name("#n", "name").
			Input()
		require.NoError(t, err)
		assert.Equal(t, "#n", aws.ToString(in.ProjectionExpression))
		assert.Equal(t, map[string]string{"#n": "name"}, in.ExpressionAttributeNames)
	})
}

func TestGetDefaultsAndCopies(t *testing.T) {
	people := newPeople()
	people.GetDefaults = GetOptions{ConsistentRead: aws.Bool(true)}

	base := people.GetItem().PK("1").Name("#a", "a")
	derived := base.Name("#b", "b").ConsistentRead(false)

	baseIn, err := base.Input()
	require.NoError(t, err)
	derivedIn, err := derived.Input()
	require.NoError(t, err)

	assert.True(t, aws.ToBool(baseIn.ConsistentRead))
	assert.Equal(t, map[string]string{"#a": "a"}, baseIn.ExpressionAttributeNames)
	assert.False(t, aws.ToBool(derivedIn.ConsistentRead))
	assert.Equal(t, map[string]string{"#a": "a", "#b": "b"}, derivedIn.ExpressionAttributeNames)
}

func TestGetSend(t *testing.T) {
	ctx := context.Background()
	people := newPeople()
	get := people.GetItem().PK("7")

	t.Run("decodes item", func(t *testing.T) {
		client := &mockClient{}
		client.On("GetItem", ctx, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return aws.ToString(in.TableName) == "people"
		})).Return(&dynamodb.GetItemOutput{Item: Item{
			"pk":   sv("PERSON#7"),
			"id":   sv("7"),
			"name": sv("Grace"),
			"age":  nv("85"),
		}}, nil).Once()

		out, err := get.Send(ctx, client)
		require.NoError(t, err)
		require.NotNil(t, out.Item)
		assert.Equal(t, Person{ID: "7", Name: "Grace", Age: 85}, *out.Item)
		client.AssertExpectations(t)
	})

	t.Run("missing item", func(t *testing.T) {
		client := &mockClient{}
		client.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		out, err := get.Send(ctx, client)
		require.NoError(t, err)
		assert.Nil(t, out.Item)
	})

	t.Run("store error forwarded", func(t *testing.T) {
		apiErr := &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"}
		client := &mockClient{}
		client.On("GetItem", ctx, mock.Anything).Return(nil, apiErr)

		_, err := get.Send(ctx, client)
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "GetItem", storeErr.Op)

		var ae smithy.APIError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "ProvisionedThroughputExceededException", ae.ErrorCode())
	})

	t.Run("conversion error", func(t *testing.T) {
		client := &mockClient{}
		client.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{Item: Item{
			"age": sv("not a number"),
		}}, nil)

		_, err := get.Send(ctx, client)
		var convErr *ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.False(t, errors.As(err, new(*StoreError)))
	})
}
