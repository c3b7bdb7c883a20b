package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// PutItem creates or replaces an item.
func (s *Store) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if params == nil || params.Item == nil {
		return nil, validationError("Item is required")
	}
	switch params.ReturnValues {
	case "", types.ReturnValueNone, types.ReturnValueAllOld:
	default:
		return nil, validationError("ReturnValues for PutItem must be NONE or ALL_OLD")
	}
	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	key, _, err := t.base.encode(params.Item)
	if err != nil {
		return nil, validationErrorf(err, "invalid Item")
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
		return s.writeItem(txn, t, key, params.Item, old)
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("table", t.definition.Name).Bool("replaced", old != nil).Msg("ddbstore put item")

	out := &dynamodb.PutItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}
