package table

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// NoSortKey is the sort key input type of tables without a sort key.
type NoSortKey = struct{}

// KeySchema declares the key attributes of a record type and how typed
// inputs are encoded into key values.
//
// Partition encodes the partition key input. Sort encodes the sort key input
// and reports false when the caller did not supply a sort key component. Sort
// is nil when Keys declares no sort key.
type KeySchema[P, S any] struct {
	Keys      PrimaryKeyDefinition
	Partition func(P) types.AttributeValue
	Sort      func(S) (types.AttributeValue, bool)
}

func (k KeySchema[P, S]) Validate() error {
	var errs []error
	if k.Keys.PartitionKey.Name == "" {
		errs = append(errs, errors.New("partition key attribute name is required"))
	}
	if k.Partition == nil {
		errs = append(errs, errors.New("partition key encoder is required"))
	}
	if k.Keys.HasSortKey() && k.Sort == nil {
		errs = append(errs, fmt.Errorf("sort key %q declared without an encoder", k.Keys.SortKey.Name))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidKeySchema, errors.Join(errs...))
}

// PartitionValue encodes p. A nil result means no partition key, which is
// also the result when the schema has no partition encoder.
func (k KeySchema[P, S]) PartitionValue(p P) types.AttributeValue {
	if k.Partition == nil {
		return nil
	}
	return k.Partition(p)
}

// SortValue encodes s. It reports false when the schema declares no sort key,
// without calling the encoder, or when the encoder reports no value.
func (k KeySchema[P, S]) SortValue(s S) (types.AttributeValue, bool) {
	if !k.Keys.HasSortKey() || k.Sort == nil {
		return nil, false
	}
	v, ok := k.Sort(s)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Key builds the full primary key of a record. Both components are required
// when the schema declares a sort key. A sort encoder producing a value for a
// schema without a sort key attribute is rejected with ErrUndeclaredSortKey.
func (k KeySchema[P, S]) Key(p P, s S) (map[string]types.AttributeValue, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	pv := k.Partition(p)
	if pv == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingPartitionKey, k.Keys.PartitionKey.Name)
	}
	if err := attributeMatchesDefinition(k.Keys.PartitionKey.Kind, pv); err != nil {
		return nil, fmt.Errorf("partition key %q: %w", k.Keys.PartitionKey.Name, err)
	}
	key := map[string]types.AttributeValue{k.Keys.PartitionKey.Name: pv}

	if !k.Keys.HasSortKey() {
		if k.Sort != nil {
			if v, ok := k.Sort(s); ok && v != nil {
				return nil, ErrUndeclaredSortKey
			}
		}
		return key, nil
	}

	sv, ok := k.SortValue(s)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingSortKey, k.Keys.SortKey.Name)
	}
	if err := attributeMatchesDefinition(k.Keys.SortKey.Kind, sv); err != nil {
		return nil, fmt.Errorf("sort key %q: %w", k.Keys.SortKey.Name, err)
	}
	key[k.Keys.SortKey.Name] = sv
	return key, nil
}

// Schema is the static table configuration of one record type.
type Schema[P, S any] struct {
	Name string
	Key  KeySchema[P, S]
	GSIs []GSIDefinition
}

func (s Schema[P, S]) Validate() error {
	if s.Name == "" {
		return errors.New("table name is required")
	}
	if err := s.Key.Validate(); err != nil {
		return fmt.Errorf("table %q: %w", s.Name, err)
	}
	return nil
}

// Definition returns the physical table definition described by s.
func (s Schema[P, S]) Definition() TableDefinition {
	return TableDefinition{
		Name:           s.Name,
		KeyDefinitions: s.Key.Keys,
		GSIs:           s.GSIs,
	}
}
