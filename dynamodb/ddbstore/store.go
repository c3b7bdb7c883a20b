// Package ddbstore is a local DynamoDB stand-in backed by BadgerDB. It serves
// the item operations used by the mapper (GetItem, PutItem, UpdateItem,
// DeleteItem and Query) with DynamoDB's expression semantics, which makes it
// suitable for tests and offline tooling.
package ddbstore

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/acksell/dynamap/dynamodb/ddbstore/exprparse"
	"github.com/acksell/dynamap/dynamodb/table"
)

// Store is a DynamoDB-compatible store backed by BadgerDB.
type Store struct {
	db     *badger.DB
	tables map[string]*tableSchema
}

type tableSchema struct {
	definition table.TableDefinition
	base       *keyEncoder
	gsis       map[string]*keyEncoder
}

// Options configures the store.
type Options struct {
	// Path to the database directory. An empty path runs in memory.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger receives badger's internal logs. Nil disables them.
	Logger *zerolog.Logger
}

// New opens a store serving the given tables.
func New(opts Options, defs ...table.TableDefinition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(badgerLogger{opts.Logger.With().Str("component", "badger").Logger()})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	tables := make(map[string]*tableSchema, len(defs))
	for _, def := range defs {
		if def.Name == "" || def.KeyDefinitions.PartitionKey.Name == "" {
			return nil, fmt.Errorf("table %q: name and partition key are required", def.Name)
		}
		if _, dup := tables[def.Name]; dup {
			return nil, fmt.Errorf("table %q defined twice", def.Name)
		}
		schema := &tableSchema{
			definition: def,
			base: &keyEncoder{
				tableName: def.Name,
				keys:      def.KeyDefinitions,
				tableKeys: def.KeyDefinitions,
			},
			gsis: make(map[string]*keyEncoder, len(def.GSIs)),
		}
		for _, gsi := range def.GSIs {
			schema.gsis[gsi.Name] = &keyEncoder{
				tableName: def.Name,
				indexName: gsi.Name,
				keys:      gsi.KeyDefinitions,
				tableKeys: def.KeyDefinitions,
			}
		}
		tables[def.Name] = schema
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db, tables: tables}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getTable(name *string) (*tableSchema, error) {
	if name == nil {
		return nil, validationError("TableName is required")
	}
	t, ok := s.tables[*name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String(fmt.Sprintf("table not found: %s", *name))}
	}
	return t, nil
}

// encoder returns the key encoder of the table or one of its indexes.
func (t *tableSchema) encoder(indexName *string) (*keyEncoder, error) {
	if indexName == nil || *indexName == "" {
		return t.base, nil
	}
	gsi, ok := t.gsis[*indexName]
	if !ok {
		return nil, validationError(fmt.Sprintf("table %s has no index %s", t.definition.Name, *indexName))
	}
	return gsi, nil
}

// ValidationError mirrors the DynamoDB ValidationException error code.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "ValidationException: " + e.Message
}

func (e *ValidationError) ErrorCode() string             { return "ValidationException" }
func (e *ValidationError) ErrorMessage() string          { return e.Message }
func (e *ValidationError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var _ smithy.APIError = (*ValidationError)(nil)

func validationError(msg string) error {
	return &ValidationError{Message: msg}
}

func validationErrorf(err error, format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...) + ": " + err.Error()}
}

var errConditionFailed = &types.ConditionalCheckFailedException{
	Message: aws.String("The conditional request failed"),
}

func parseParams(names map[string]string, values map[string]types.AttributeValue) exprparse.ParseParams {
	return exprparse.ParseParams{Names: names, Values: values}
}

// checkCondition evaluates an optional condition expression against the
// current item, nil when absent.
func checkCondition(expr *string, params exprparse.ParseParams, current map[string]types.AttributeValue) error {
	if expr == nil {
		return nil
	}
	c, err := exprparse.ParseCondition(*expr, params)
	if err != nil {
		return validationErrorf(err, "invalid ConditionExpression")
	}
	ok, err := exprparse.Eval(c, current)
	if err != nil {
		return validationErrorf(err, "invalid ConditionExpression")
	}
	if !ok {
		return errConditionFailed
	}
	return nil
}

func readItem(txn *badger.Txn, key []byte) (map[string]types.AttributeValue, error) {
	it, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item map[string]types.AttributeValue
	err = it.Value(func(val []byte) error {
		item, err = deserializeItem(val)
		return err
	})
	return item, err
}

// writeItem stores item under the base table and maintains every index.
// old is the previous version of the item, nil when there was none.
func (s *Store) writeItem(txn *badger.Txn, t *tableSchema, key []byte, item, old map[string]types.AttributeValue) error {
	if err := s.unindex(txn, t, old); err != nil {
		return err
	}
	data, err := serializeItem(item)
	if err != nil {
		return err
	}
	if err := txn.Set(key, data); err != nil {
		return err
	}
	for name, gsi := range t.gsis {
		gsiKey, ok, err := gsi.encode(item)
		if err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
		if !ok {
			continue
		}
		if err := txn.Set(gsiKey, data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) unindex(txn *badger.Txn, t *tableSchema, old map[string]types.AttributeValue) error {
	if old == nil {
		return nil
	}
	for name, gsi := range t.gsis {
		gsiKey, ok, err := gsi.encode(old)
		if err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
		if !ok {
			continue
		}
		if err := txn.Delete(gsiKey); err != nil {
			return err
		}
	}
	return nil
}

// badgerLogger adapts zerolog to badger.Logger.
type badgerLogger struct {
	zerolog.Logger
}

func (l badgerLogger) Errorf(f string, v ...any) { l.Error().Msgf(f, v...) }

func (l badgerLogger) Warningf(f string, v ...any) { l.Warn().Msgf(f, v...) }

func (l badgerLogger) Infof(f string, v ...any) { l.Info().Msgf(f, v...) }

func (l badgerLogger) Debugf(f string, v ...any) { l.Debug().Msgf(f, v...) }
