package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/acksell/dynamap/dynamodb/ddbstore/exprparse"
)

// GetItem retrieves a single item by its primary key. A missing item yields
// an output without Item, like DynamoDB.
func (s *Store) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if params == nil || params.Key == nil {
		return nil, validationError("Key is required")
	}
	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	key, _, err := t.base.encode(params.Key)
	if err != nil {
		return nil, validationErrorf(err, "invalid Key")
	}

	var item map[string]types.AttributeValue
	err = s.db.View(func(txn *badger.Txn) error {
		item, err = readItem(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("table", t.definition.Name).Bool("found", item != nil).Msg("ddbstore get item")

	item, err = exprparse.Project(params.ProjectionExpression, params.ExpressionAttributeNames, item)
	if err != nil {
		return nil, validationErrorf(err, "invalid ProjectionExpression")
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}
