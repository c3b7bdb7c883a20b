package ddbstore

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/acksell/dynamap/dynamodb/ddbstore/exprparse"
)

// Query reads one partition of a table or index in sort key order. Limit
// caps the number of items evaluated, before the filter applies, and a
// LastEvaluatedKey is returned when more items may follow.
func (s *Store) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if params == nil || params.KeyConditionExpression == nil {
		return nil, validationError("KeyConditionExpression is required")
	}
	if params.Limit != nil && *params.Limit <= 0 {
		return nil, validationError("Limit must be greater than 0")
	}
	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	enc, err := t.encoder(params.IndexName)
	if err != nil {
		return nil, err
	}
	if enc.isIndex() && params.ConsistentRead != nil && *params.ConsistentRead {
		return nil, validationError("Consistent reads are not supported on global secondary indexes")
	}

	exprParams := parseParams(params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	keyCond, err := exprparse.ParseKeyCondition(*params.KeyConditionExpression, exprParams, enc.keys)
	if err != nil {
		return nil, validationErrorf(err, "invalid KeyConditionExpression")
	}
	var filter exprparse.Condition
	if params.FilterExpression != nil {
		if filter, err = exprparse.ParseCondition(*params.FilterExpression, exprParams); err != nil {
			return nil, validationErrorf(err, "invalid FilterExpression")
		}
	}
	prefix, err := enc.partitionPrefix(keyCond.Partition)
	if err != nil {
		return nil, validationErrorf(err, "invalid KeyConditionExpression")
	}
	var startKey []byte
	if params.ExclusiveStartKey != nil {
		if startKey, _, err = enc.encode(params.ExclusiveStartKey); err != nil || startKey == nil {
			return nil, validationError("invalid ExclusiveStartKey")
		}
	}

	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	limit := 0
	if params.Limit != nil {
		limit = int(*params.Limit)
	}

	out := &dynamodb.QueryOutput{}
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = !forward
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		switch {
		case startKey != nil:
			it.Seek(startKey)
			if it.Valid() && bytes.Equal(it.Item().Key(), startKey) {
				it.Next()
			}
		case forward:
			it.Seek(prefix)
		default:
			it.Seek(prefixEnd(prefix))
		}

		scanned := 0
		for ; it.ValidForPrefix(prefix); it.Next() {
			var item map[string]types.AttributeValue
			if err := it.Item().Value(func(val []byte) error {
				var err error
				item, err = deserializeItem(val)
				return err
			}); err != nil {
				return err
			}
			ok, err := keyCond.Matches(item)
			if err != nil {
				return validationErrorf(err, "invalid KeyConditionExpression")
			}
			if !ok {
				continue
			}
			scanned++
			keep := true
			if filter != nil {
				if keep, err = exprparse.Eval(filter, item); err != nil {
					return validationErrorf(err, "invalid FilterExpression")
				}
			}
			if keep {
				projected, err := exprparse.Project(params.ProjectionExpression, params.ExpressionAttributeNames, item)
				if err != nil {
					return validationErrorf(err, "invalid ProjectionExpression")
				}
				out.Items = append(out.Items, projected)
			}
			if limit > 0 && scanned == limit {
				it.Next()
				if it.ValidForPrefix(prefix) {
					out.LastEvaluatedKey = enc.lastEvaluatedKey(item)
				}
				break
			}
		}
		out.ScannedCount = int32(scanned)
		out.Count = int32(len(out.Items))
		return nil
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().
		Str("table", t.definition.Name).
		Int32("count", out.Count).
		Int32("scanned", out.ScannedCount).
		Bool("more", out.LastEvaluatedKey != nil).
		Msg("ddbstore query")
	return out, nil
}
