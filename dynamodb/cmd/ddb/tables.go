package main

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/dynamap/dynamodb/attrmap"
	"github.com/acksell/dynamap/dynamodb/ddbsdk"
	"github.com/acksell/dynamap/dynamodb/table"
)

// itemMapper maps raw items of any configured table. Key inputs are the
// command line strings, formatted per KeyConfig.
type itemMapper = ddbsdk.Mapper[attrmap.Map, string, string]

func (k KeyConfig) def() table.KeyDef {
	return table.KeyDef{Name: k.Name, Kind: table.KeyKind(k.Kind)}
}

func (k KeyConfig) encoder() func(string) types.AttributeValue {
	format := k.Format
	if format == "" {
		format = "%s"
	}
	switch table.KeyKind(k.Kind) {
	case table.KeyKindN:
		return func(v string) types.AttributeValue {
			return &types.AttributeValueMemberN{Value: fmt.Sprintf(format, v)}
		}
	case table.KeyKindB:
		return func(v string) types.AttributeValue {
			return &types.AttributeValueMemberB{Value: []byte(fmt.Sprintf(format, v))}
		}
	default:
		return table.FmtKey[string](format)
	}
}

func keySchema(pk KeyConfig, sk *KeyConfig) table.KeySchema[string, string] {
	ks := table.KeySchema[string, string]{
		Keys:      table.PrimaryKeyDefinition{PartitionKey: pk.def()},
		Partition: partitionOnly(table.Optional(pk.encoder())),
	}
	if sk != nil {
		ks.Keys.SortKey = sk.def()
		ks.Sort = table.Optional(sk.encoder())
	}
	return ks
}

// partitionOnly maps an absent partition input to a nil value.
func partitionOnly(enc func(string) (types.AttributeValue, bool)) func(string) types.AttributeValue {
	return func(v string) types.AttributeValue {
		av, _ := enc(v)
		return av
	}
}

// Definition is the table the local store creates.
func (t TableConfig) Definition() table.TableDefinition {
	def := table.TableDefinition{
		Name: t.Name,
		KeyDefinitions: table.PrimaryKeyDefinition{
			PartitionKey: t.PartitionKey.def(),
		},
	}
	if t.SortKey != nil {
		def.KeyDefinitions.SortKey = t.SortKey.def()
	}
	for _, g := range t.GSIs {
		gsi := table.GSIDefinition{
			Name:           g.Name,
			KeyDefinitions: table.PrimaryKeyDefinition{PartitionKey: g.PartitionKey.def()},
		}
		if g.SortKey != nil {
			gsi.KeyDefinitions.SortKey = g.SortKey.def()
		}
		def.GSIs = append(def.GSIs, gsi)
	}
	return def
}

// Mapper maps the base table. An empty partition input counts as missing.
func (t TableConfig) Mapper() *itemMapper {
	ks := keySchema(t.PartitionKey, t.SortKey)
	return newItemMapper(t.Name, ks, t.Definition().GSIs)
}

// IndexMapper maps a GSI. Queries built from it target the index.
func (t TableConfig) IndexMapper(index string) (*itemMapper, error) {
	g, err := t.GSI(index)
	if err != nil {
		return nil, err
	}
	m := newItemMapper(t.Name, keySchema(g.PartitionKey, g.SortKey), nil)
	m.QueryDefaults.IndexName = aws.String(index)
	return m, nil
}

func newItemMapper(name string, ks table.KeySchema[string, string], gsis []table.GSIDefinition) *itemMapper {
	return &itemMapper{
		Schema: table.Schema[string, string]{Name: name, Key: ks, GSIs: gsis},
		Decode: func(item ddbsdk.Item) (attrmap.Map, error) {
			return attrmap.From(item), nil
		},
		Encode: attrmap.Map.Item,
	}
}
