package ddbstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/dynamap/dynamodb/table"
)

// Storage keys sort the same way DynamoDB orders keys:
//
//	table 0x00 index 0x00 partition 0x00 sort
//
// Index entries append the base table key so that items sharing index keys
// do not collide:
//
//	table 0x00 index 0x00 gsiPartition 0x00 gsiSort 0x00 partition 0x00 sort
//
// Key values are escaped so that 0x00 only ever appears as a separator.

const keySeparator byte = 0x00

type keyEncoder struct {
	tableName string
	indexName string // empty for the base table
	keys      table.PrimaryKeyDefinition
	tableKeys table.PrimaryKeyDefinition
}

func (e *keyEncoder) isIndex() bool {
	return e.indexName != ""
}

func (e *keyEncoder) prefix() []byte {
	var buf bytes.Buffer
	buf.WriteString(e.tableName)
	buf.WriteByte(keySeparator)
	buf.WriteString(e.indexName)
	buf.WriteByte(keySeparator)
	return buf.Bytes()
}

func (e *keyEncoder) partitionPrefix(v types.AttributeValue) ([]byte, error) {
	enc, err := encodeKeyValue(v)
	if err != nil {
		return nil, fmt.Errorf("partition key %q: %w", e.keys.PartitionKey.Name, err)
	}
	buf := bytes.NewBuffer(e.prefix())
	buf.Write(enc)
	buf.WriteByte(keySeparator)
	return buf.Bytes(), nil
}

// encode builds the storage key of item. For indexes, ok is false when the
// item lacks the index key attributes and so does not appear in the index.
func (e *keyEncoder) encode(item map[string]types.AttributeValue) (key []byte, ok bool, err error) {
	pk, err := e.keys.ExtractPrimaryKey(item)
	if err != nil {
		if e.isIndex() {
			return nil, false, nil
		}
		return nil, false, err
	}
	buf, err := e.partitionPrefix(pk.Values.PartitionKey)
	if err != nil {
		return nil, false, err
	}
	out := bytes.NewBuffer(buf)
	if e.keys.HasSortKey() {
		if err := writeKeyValue(out, pk.Values.SortKey); err != nil {
			return nil, false, fmt.Errorf("sort key %q: %w", e.keys.SortKey.Name, err)
		}
	}
	if e.isIndex() {
		base, err := e.tableKeys.ExtractPrimaryKey(item)
		if err != nil {
			return nil, false, err
		}
		out.WriteByte(keySeparator)
		if err := writeKeyValue(out, base.Values.PartitionKey); err != nil {
			return nil, false, err
		}
		if e.tableKeys.HasSortKey() {
			out.WriteByte(keySeparator)
			if err := writeKeyValue(out, base.Values.SortKey); err != nil {
				return nil, false, err
			}
		}
	}
	return out.Bytes(), true, nil
}

// lastEvaluatedKey returns the key attributes a paginated read resumes from.
func (e *keyEncoder) lastEvaluatedKey(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := map[string]types.AttributeValue{}
	for _, defs := range []table.PrimaryKeyDefinition{e.keys, e.tableKeys} {
		for _, name := range []string{defs.PartitionKey.Name, defs.SortKey.Name} {
			if v, ok := item[name]; ok && name != "" {
				out[name] = v
			}
		}
	}
	return out
}

func writeKeyValue(buf *bytes.Buffer, v types.AttributeValue) error {
	enc, err := encodeKeyValue(v)
	if err != nil {
		return err
	}
	buf.Write(enc)
	return nil
}

func encodeKeyValue(v types.AttributeValue) ([]byte, error) {
	switch v := v.(type) {
	case *types.AttributeValueMemberS:
		return append([]byte{'S'}, escapeBytes([]byte(v.Value))...), nil
	case *types.AttributeValueMemberB:
		return append([]byte{'B'}, escapeBytes(v.Value)...), nil
	case *types.AttributeValueMemberN:
		n, err := encodeNumber(v.Value)
		if err != nil {
			return nil, err
		}
		return append([]byte{'N'}, escapeBytes(n)...), nil
	default:
		return nil, fmt.Errorf("unsupported key attribute type %T", v)
	}
}

// encodeNumber maps a decimal number onto bytes that sort in numeric order
// without losing precision. The layout is a sign byte, then for non-zero
// values a biased exponent and the significant digits. Negative values
// invert both and end with 0xFF so that longer digit strings sort first.
func encodeNumber(s string) ([]byte, error) {
	neg, digits, exp, err := decimalParts(s)
	if err != nil {
		return nil, err
	}
	if digits == "" {
		return []byte{0x80}, nil
	}
	out := make([]byte, 0, 6+len(digits))
	e := uint32(exp) ^ 1<<31
	if neg {
		e = ^e
		out = append(out, 0x40)
	} else {
		out = append(out, 0xC0)
	}
	out = binary.BigEndian.AppendUint32(out, e)
	for i := 0; i < len(digits); i++ {
		if neg {
			out = append(out, 0xFF-digits[i])
		} else {
			out = append(out, digits[i])
		}
	}
	if neg {
		out = append(out, 0xFF)
	}
	return out, nil
}

// decimalParts normalizes s to sign, significant digits and exponent with
// value 0.digits * 10^exp. Zero, including -0, has no digits.
func decimalParts(s string) (neg bool, digits string, exp int32, err error) {
	s = strings.TrimSpace(s)
	if strings.Trim(s, "0123456789.eE+-") != "" {
		return false, "", 0, fmt.Errorf("parse number %q", s)
	}
	if _, ok := new(big.Rat).SetString(s); !ok {
		return false, "", 0, fmt.Errorf("parse number %q", s)
	}
	mantissa, expPart, hasExp := strings.Cut(strings.ToLower(s), "e")
	e := 0
	if hasExp {
		if e, err = strconv.Atoi(expPart); err != nil {
			return false, "", 0, fmt.Errorf("parse number %q: %w", s, err)
		}
	}
	switch {
	case strings.HasPrefix(mantissa, "-"):
		neg, mantissa = true, mantissa[1:]
	case strings.HasPrefix(mantissa, "+"):
		mantissa = mantissa[1:]
	}
	intPart, frac, _ := strings.Cut(mantissa, ".")
	digits = intPart + frac
	e += len(intPart)
	trimmed := strings.TrimLeft(digits, "0")
	e -= len(digits) - len(trimmed)
	digits = strings.TrimRight(trimmed, "0")
	if digits == "" {
		return false, "", 0, nil
	}
	if e > math.MaxInt32 || e < math.MinInt32 {
		return false, "", 0, fmt.Errorf("number %q out of range", s)
	}
	return neg, digits, int32(e), nil
}

// escapeBytes rewrites 0x00 as 0x01 0x01 and 0x01 as 0x01 0x02. The mapping
// preserves byte order.
func escapeBytes(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case 0x00:
			out = append(out, 0x01, 0x01)
		case 0x01:
			out = append(out, 0x01, 0x02)
		default:
			out = append(out, c)
		}
	}
	return out
}

func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// storedValue is the gob form of an attribute value.
type storedValue struct {
	Kind string
	S    string // S and N
	B    []byte
	Bool bool
	Set  []string // SS and NS
	Bin  [][]byte // BS
	L    []storedValue
	M    map[string]storedValue
}

func toStored(av types.AttributeValue) (storedValue, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return storedValue{Kind: "S", S: v.Value}, nil
	case *types.AttributeValueMemberN:
		return storedValue{Kind: "N", S: v.Value}, nil
	case *types.AttributeValueMemberB:
		return storedValue{Kind: "B", B: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return storedValue{Kind: "BOOL", Bool: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return storedValue{Kind: "NULL", Bool: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return storedValue{Kind: "SS", Set: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return storedValue{Kind: "NS", Set: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return storedValue{Kind: "BS", Bin: v.Value}, nil
	case *types.AttributeValueMemberL:
		l := make([]storedValue, len(v.Value))
		for i, e := range v.Value {
			sv, err := toStored(e)
			if err != nil {
				return storedValue{}, err
			}
			l[i] = sv
		}
		return storedValue{Kind: "L", L: l}, nil
	case *types.AttributeValueMemberM:
		m, err := toStoredMap(v.Value)
		if err != nil {
			return storedValue{}, err
		}
		return storedValue{Kind: "M", M: m}, nil
	default:
		return storedValue{}, fmt.Errorf("unsupported attribute value type %T", av)
	}
}

func toStoredMap(item map[string]types.AttributeValue) (map[string]storedValue, error) {
	m := make(map[string]storedValue, len(item))
	for k, e := range item {
		sv, err := toStored(e)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		m[k] = sv
	}
	return m, nil
}

func (sv storedValue) attributeValue() types.AttributeValue {
	switch sv.Kind {
	case "S":
		return &types.AttributeValueMemberS{Value: sv.S}
	case "N":
		return &types.AttributeValueMemberN{Value: sv.S}
	case "B":
		return &types.AttributeValueMemberB{Value: sv.B}
	case "BOOL":
		return &types.AttributeValueMemberBOOL{Value: sv.Bool}
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: sv.Bool}
	case "SS":
		return &types.AttributeValueMemberSS{Value: sv.Set}
	case "NS":
		return &types.AttributeValueMemberNS{Value: sv.Set}
	case "BS":
		return &types.AttributeValueMemberBS{Value: sv.Bin}
	case "L":
		l := make([]types.AttributeValue, len(sv.L))
		for i, e := range sv.L {
			l[i] = e.attributeValue()
		}
		return &types.AttributeValueMemberL{Value: l}
	default:
		return &types.AttributeValueMemberM{Value: fromStoredMap(sv.M)}
	}
}

func fromStoredMap(m map[string]storedValue) map[string]types.AttributeValue {
	item := make(map[string]types.AttributeValue, len(m))
	for k, sv := range m {
		item[k] = sv.attributeValue()
	}
	return item
}

func serializeItem(item map[string]types.AttributeValue) ([]byte, error) {
	m, err := toStoredMap(item)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return buf.Bytes(), nil
}

func deserializeItem(data []byte) (map[string]types.AttributeValue, error) {
	var m map[string]storedValue
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return fromStoredMap(m), nil
}
