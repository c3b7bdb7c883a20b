package table

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrMissingPartitionKey = errors.New("partition key is not set")
	ErrMissingSortKey      = errors.New("sort key is not set")
	ErrUndeclaredSortKey   = errors.New("sort key value given for a table without a sort key")
	ErrKeyKindMismatch     = errors.New("key kind mismatch")
	ErrInvalidKeySchema    = errors.New("invalid key schema")
)

type PrimaryKeyDefinition struct {
	PartitionKey KeyDef
	SortKey      KeyDef // zero value means the table has no sort key
}

// HasSortKey reports whether a sort key attribute is declared.
func (k PrimaryKeyDefinition) HasSortKey() bool {
	return k.SortKey.Name != ""
}

type KeyDef struct {
	Name string
	// Kind is optional for key schemas. When set, encoded key values must
	// carry the matching attribute value tag.
	Kind KeyKind
}

type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

type PrimaryKeyValues struct {
	PartitionKey types.AttributeValue
	SortKey      types.AttributeValue
}

type PrimaryKey struct {
	Definition PrimaryKeyDefinition
	Values     PrimaryKeyValues
}

// KindOf returns the key kind of a scalar attribute value.
func KindOf(v types.AttributeValue) (KeyKind, error) {
	switch v.(type) {
	case *types.AttributeValueMemberS:
		return KeyKindS, nil
	case *types.AttributeValueMemberN:
		return KeyKindN, nil
	case *types.AttributeValueMemberB:
		return KeyKindB, nil
	default:
		return "", fmt.Errorf("unexpected key attribute type %T", v)
	}
}

// Check reports whether v is a scalar of the kind d declares.
func (d KeyDef) Check(v types.AttributeValue) error {
	if err := attributeMatchesDefinition(d.Kind, v); err != nil {
		return fmt.Errorf("key %q: %w", d.Name, err)
	}
	return nil
}

// An empty want accepts any scalar kind.
func attributeMatchesDefinition(want KeyKind, v types.AttributeValue) error {
	got, err := KindOf(v)
	if err != nil {
		return err
	}
	if want != "" && got != want {
		return fmt.Errorf("%w: got KeyKind %q want %q", ErrKeyKindMismatch, got, want)
	}
	return nil
}
