package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/dynamap/dynamodb/attrmap"
	"github.com/acksell/dynamap/dynamodb/ddbsdk"
	"github.com/acksell/dynamap/dynamodb/ddbstore"
)

type testApp struct {
	*app
	stdout, stderr *bytes.Buffer
	configPath     string
	customer       string
}

// newTestApp serves every command from one in-memory store seeded with six
// orders of a single customer.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	path := writeConfig(t, t.TempDir(), testConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	client, _, err := openLocal(context.Background(), cfg)
	require.NoError(t, err)
	store := client.(*ddbstore.Store)
	t.Cleanup(func() { store.Close() })

	orders, err := cfg.Table("orders")
	require.NoError(t, err)
	customer := uuid.NewString()
	statuses := []string{"open", "shipped", "open", "cancelled", "open", "shipped"}
	for i, status := range statuses {
		item := attrmap.New().
			SetS("pk", "CUSTOMER#"+customer).
			SetS("sk", fmt.Sprintf("ORDER#2024-0%d", i+1)).
			SetS("status", status)
		_, err := orders.Mapper().Put(attrmap.SetNumber(item, "total", (i+1)*10)).Send(context.Background(), store)
		require.NoError(t, err)
	}

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &testApp{
		app: &app{
			stdout: stdout,
			stderr: stderr,
			connect: func(context.Context, Config, bool) (ddbsdk.AWSDynamoClientV2, func() error, error) {
				return store, func() error { return nil }, nil
			},
		},
		stdout:     stdout,
		stderr:     stderr,
		configPath: path,
		customer:   customer,
	}
}

func (a *testApp) run(t *testing.T, args ...string) error {
	t.Helper()
	a.stdout.Reset()
	a.stderr.Reset()
	n := 1
	if args[0] == "explain" && len(args) > 1 {
		n = 2
	}
	args = append(args[:n:n], append([]string{"-config", a.configPath}, args[n:]...)...)
	return a.app.run(context.Background(), args)
}

func (a *testApp) items(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(strings.NewReader(a.stdout.String()))
	for dec.More() {
		var item map[string]any
		require.NoError(t, dec.Decode(&item))
		out = append(out, item)
	}
	return out
}

func sortKeys(items []map[string]any) []string {
	var out []string
	for _, item := range items {
		out = append(out, item["sk"].(string))
	}
	return out
}

func TestGetCommand(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.run(t, "get", "-table", "orders", "-pk", a.customer, "-sk", "2024-03"))
	items := a.items(t)
	require.Len(t, items, 1)
	assert.Equal(t, "open", items[0]["status"])
	assert.Equal(t, float64(30), items[0]["total"])

	require.NoError(t, a.run(t, "get", "-table", "orders", "-pk", a.customer, "-sk", "2024-03", "-projection", "total"))
	items = a.items(t)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"total": float64(30)}, items[0])

	require.NoError(t, a.run(t, "get", "-table", "orders", "-pk", a.customer, "-sk", "2030-01"))
	assert.Empty(t, a.stdout.String())
	assert.Contains(t, a.stderr.String(), "item not found")

	err := a.run(t, "get", "-table", "orders", "-pk", a.customer)
	assert.ErrorContains(t, err, "-sk is required")
}

func TestQueryCommand(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "whole partition",
			want: []string{"ORDER#2024-01", "ORDER#2024-02", "ORDER#2024-03", "ORDER#2024-04", "ORDER#2024-05", "ORDER#2024-06"},
		},
		{
			name: "between descending",
			args: []string{"-sk-from", "2024-02", "-sk-to", "2024-04", "-desc"},
			want: []string{"ORDER#2024-04", "ORDER#2024-03", "ORDER#2024-02"},
		},
		{
			name: "prefix",
			args: []string{"-sk-prefix", "ORDER#2024-0", "-limit", "2", "-all"},
			want: []string{"ORDER#2024-01", "ORDER#2024-02", "ORDER#2024-03", "ORDER#2024-04", "ORDER#2024-05", "ORDER#2024-06"},
		},
		{
			name: "filter",
			args: []string{"-sk-gte", "2024-03", "-filter", "#s = :s", "-name", "#s=status", "-value", ":s=S:open"},
			want: []string{"ORDER#2024-03", "ORDER#2024-05"},
		},
		{
			name: "first page only",
			args: []string{"-limit", "2"},
			want: []string{"ORDER#2024-01", "ORDER#2024-02"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"query", "-table", "orders", "-pk", a.customer}, tt.args...)
			require.NoError(t, a.run(t, args...))
			assert.Equal(t, tt.want, sortKeys(a.items(t)))
		})
	}

	t.Run("index", func(t *testing.T) {
		require.NoError(t, a.run(t, "query", "-table", "orders", "-index", "byStatus", "-pk", "shipped"))
		assert.Equal(t, []string{"ORDER#2024-02", "ORDER#2024-06"}, sortKeys(a.items(t)))
	})

	t.Run("conflicting sort conditions", func(t *testing.T) {
		err := a.run(t, "query", "-table", "orders", "-pk", a.customer, "-sk-eq", "a", "-sk-gt", "b")
		assert.ErrorContains(t, err, "at most one")
	})

	t.Run("prefix on numeric sort key", func(t *testing.T) {
		err := a.run(t, "query", "-table", "scores", "-pk", "chess", "-sk-prefix", "12")
		assert.ErrorContains(t, err, "-sk-prefix needs a string sort key")
	})

	t.Run("store error", func(t *testing.T) {
		err := a.run(t, "query", "-table", "orders", "-pk", a.customer, "-filter", "#missing = :x")
		require.Error(t, err)
		assert.Contains(t, describeError(err), "Query: ValidationException")
	})
}

func TestExplainCommand(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.run(t, "explain", "query",
		"-table", "orders", "-pk", "42", "-sk-from", "2024-01", "-sk-to", "2024-02",
		"-name", "#PK=bogus", "-limit", "5"))

	var req request
	require.NoError(t, json.Unmarshal(a.stdout.Bytes(), &req))
	assert.Equal(t, "Query", req.Operation)
	assert.Equal(t, "#PK = :PK AND #SK BETWEEN :SK_FROM AND :SK_TO", *req.KeyCondition)
	assert.Equal(t, map[string]string{"#PK": "pk", "#SK": "sk"}, req.Names)
	assert.Equal(t, map[string]any{
		":PK":      "CUSTOMER#42",
		":SK_FROM": "ORDER#2024-01",
		":SK_TO":   "ORDER#2024-02",
	}, req.Values)
	assert.Equal(t, int32(5), *req.Limit)

	require.NoError(t, a.run(t, "explain", "get", "-table", "orders", "-pk", "42", "-sk", "2024-01"))
	req = request{}
	require.NoError(t, json.Unmarshal(a.stdout.Bytes(), &req))
	assert.Equal(t, map[string]any{"pk": "CUSTOMER#42", "sk": "ORDER#2024-01"}, req.Key)
}
