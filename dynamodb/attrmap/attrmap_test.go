package attrmap

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAndRead(t *testing.T) {
	m := New().
		SetN("id", "123").
		SetS("name", "tanaka").
		SetB("blob", []byte{1, 2}).
		SetBool("active", true).
		SetNull("deleted").
		SetSS("tags", "a", "b").
		SetNS("scores", "1", "2").
		SetBS("chunks", []byte{3}).
		SetL("list", &types.AttributeValueMemberS{Value: "x"}).
		SetM("nested", New().SetS("city", "Tokyo").Item())

	assert.Equal(t, map[string]types.AttributeValue{
		"id":   &types.AttributeValueMemberN{Value: "123"},
		"name": &types.AttributeValueMemberS{Value: "tanaka"},
	}, map[string]types.AttributeValue{"id": m["id"], "name": m["name"]})

	id, ok := m.N("id")
	assert.True(t, ok)
	assert.Equal(t, "123", id)
	name, _ := m.S("name")
	assert.Equal(t, "tanaka", name)
	blob, _ := m.B("blob")
	assert.Equal(t, []byte{1, 2}, blob)
	active, _ := m.Bool("active")
	assert.True(t, active)
	assert.True(t, m.Null("deleted"))
	assert.False(t, m.Null("name"))
	tags, _ := m.SS("tags")
	assert.Equal(t, []string{"a", "b"}, tags)
	scores, _ := m.NS("scores")
	assert.Equal(t, []string{"1", "2"}, scores)
	chunks, _ := m.BS("chunks")
	assert.Equal(t, [][]byte{{3}}, chunks)
	list, _ := m.L("list")
	assert.Len(t, list, 1)
	nested, ok := m.M("nested")
	require.True(t, ok)
	city, _ := nested.S("city")
	assert.Equal(t, "Tokyo", city)
}

func TestWrongTypeOrMissing(t *testing.T) {
	m := New().SetN("id", "1")
	_, ok := m.S("id")
	assert.False(t, ok)
	_, ok = m.N("missing")
	assert.False(t, ok)
	_, ok = m.M("id")
	assert.False(t, ok)
}

func TestNumbers(t *testing.T) {
	m := SetNumber(New(), "count", 42)
	m = SetNumber(m, "ratio", 0.25)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "42"}, m["count"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "0.25"}, m["ratio"])

	n, ok, err := GetNumber[int64](m, "count")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok, err = GetNumber[int](m, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = GetNumber[int](m, "ratio")
	require.Error(t, err)
}

func TestMarshalUnmarshal(t *testing.T) {
	type address struct {
		City string `dynamodbav:"city"`
	}
	m := New()
	require.NoError(t, m.Marshal("address", address{City: "Osaka"}))

	nested, ok := m.M("address")
	require.True(t, ok)
	city, _ := nested.S("city")
	assert.Equal(t, "Osaka", city)

	var got address
	require.NoError(t, m.Unmarshal("address", &got))
	assert.Equal(t, "Osaka", got.City)

	got = address{City: "unchanged"}
	require.NoError(t, m.Unmarshal("missing", &got))
	assert.Equal(t, "unchanged", got.City)
}
