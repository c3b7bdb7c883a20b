package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// DeleteItem removes an item by its primary key. Conditions are evaluated
// against the missing item when nothing is stored under the key.
func (s *Store) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if params == nil || params.Key == nil {
		return nil, validationError("Key is required")
	}
	switch params.ReturnValues {
	case "", types.ReturnValueNone, types.ReturnValueAllOld:
	default:
		return nil, validationError("ReturnValues for DeleteItem must be NONE or ALL_OLD")
	}
	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	key, _, err := t.base.encode(params.Key)
	if err != nil {
		return nil, validationErrorf(err, "invalid Key")
	}
	condParams := parseParams(params.ExpressionAttributeNames, params.ExpressionAttributeValues)

	var old map[string]types.AttributeValue
	err = s.db.Update(func(txn *badger.Txn) error {
		if old, err = readItem(txn, key); err != nil {
			return err
		}
		if err := checkCondition(params.ConditionExpression, condParams, old); err != nil {
			return err
		}
		if old == nil {
			return nil
		}
		if err := s.unindex(txn, t, old); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("table", t.definition.Name).Bool("deleted", old != nil).Msg("ddbstore delete item")

	out := &dynamodb.DeleteItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}
