package ddbstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/acksell/dynamap/dynamodb/ddbstore/exprparse"
)

// UpdateItem edits an existing item or creates it from its key.
func (s *Store) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if params == nil || params.Key == nil {
		return nil, validationError("Key is required")
	}
	if params.UpdateExpression == nil {
		return nil, validationError("UpdateExpression is required")
	}
	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	key, _, err := t.base.encode(params.Key)
	if err != nil {
		return nil, validationErrorf(err, "invalid Key")
	}
	exprParams := parseParams(params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	update, err := exprparse.ParseUpdate(*params.UpdateExpression, exprParams)
	if err != nil {
		return nil, validationErrorf(err, "invalid UpdateExpression")
	}

	var result *exprparse.EvalOutput
	err = s.db.Update(func(txn *badger.Txn) error {
		old, err := readItem(txn, key)
		if err != nil {
			return err
		}
		if err := checkCondition(params.ConditionExpression, exprParams, old); err != nil {
			return err
		}
		base := old
		if base == nil {
			base = exprparse.CloneItem(params.Key)
		}
		result, err = exprparse.Apply(update, base, params.ReturnValues)
		if err != nil {
			return validationErrorf(err, "invalid UpdateExpression")
		}
		if old == nil && params.ReturnValues == types.ReturnValueAllOld {
			result.ReturnAttributes = nil
		}
		if err := checkKeyUnchanged(t.definition.KeyDefinitions.PartitionKey.Name, params.Key, result.Item); err != nil {
			return err
		}
		if t.definition.KeyDefinitions.HasSortKey() {
			if err := checkKeyUnchanged(t.definition.KeyDefinitions.SortKey.Name, params.Key, result.Item); err != nil {
				return err
			}
		}
		return s.writeItem(txn, t, key, result.Item, old)
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("table", t.definition.Name).Msg("ddbstore update item")

	return &dynamodb.UpdateItemOutput{Attributes: result.ReturnAttributes}, nil
}

func checkKeyUnchanged(name string, key, item map[string]types.AttributeValue) error {
	if !exprparse.Equal(key[name], item[name]) {
		return validationError(fmt.Sprintf("Cannot update attribute %s. This attribute is part of the key", name))
	}
	return nil
}
