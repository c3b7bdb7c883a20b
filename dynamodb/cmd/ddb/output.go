package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/acksell/dynamap/dynamodb/ddbsdk"
)

// request is the printable form of an assembled request.
type request struct {
	Operation        string            `json:"operation"`
	Table            string            `json:"table"`
	Index            *string           `json:"index,omitempty"`
	Key              map[string]any    `json:"key,omitempty"`
	KeyCondition     *string           `json:"keyCondition,omitempty"`
	Filter           *string           `json:"filter,omitempty"`
	Projection       *string           `json:"projection,omitempty"`
	Names            map[string]string `json:"names,omitempty"`
	Values           map[string]any    `json:"values,omitempty"`
	Limit            *int32            `json:"limit,omitempty"`
	ScanIndexForward *bool             `json:"scanIndexForward,omitempty"`
	ConsistentRead   *bool             `json:"consistentRead,omitempty"`
}

func describeGet(in *dynamodb.GetItemInput) (request, error) {
	key, err := plain(in.Key)
	if err != nil {
		return request{}, err
	}
	return request{
		Operation:      "GetItem",
		Table:          *in.TableName,
		Key:            key,
		Projection:     in.ProjectionExpression,
		Names:          in.ExpressionAttributeNames,
		ConsistentRead: in.ConsistentRead,
	}, nil
}

func describeQuery(in *dynamodb.QueryInput) (request, error) {
	values, err := plain(in.ExpressionAttributeValues)
	if err != nil {
		return request{}, err
	}
	return request{
		Operation:        "Query",
		Table:            *in.TableName,
		Index:            in.IndexName,
		KeyCondition:     in.KeyConditionExpression,
		Filter:           in.FilterExpression,
		Projection:       in.ProjectionExpression,
		Names:            in.ExpressionAttributeNames,
		Values:           values,
		Limit:            in.Limit,
		ScanIndexForward: in.ScanIndexForward,
		ConsistentRead:   in.ConsistentRead,
	}, nil
}

// plain converts an item to JSON-friendly Go values.
func plain(item map[string]types.AttributeValue) (map[string]any, error) {
	if len(item) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := attributevalue.UnmarshalMap(item, &out); err != nil {
		return nil, fmt.Errorf("convert item: %w", err)
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printItem(w io.Writer, item ddbsdk.Item) error {
	out, err := plain(item)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(out)
}

// describeError renders DynamoDB API errors with their code and fault.
func describeError(err error) string {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	msg := fmt.Sprintf("%s (%s fault): %s", apiErr.ErrorCode(), apiErr.ErrorFault(), apiErr.ErrorMessage())
	var storeErr *ddbsdk.StoreError
	if errors.As(err, &storeErr) {
		msg = storeErr.Op + ": " + msg
	}
	return msg
}
