package main

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// commonFlags are accepted by every command.
type commonFlags struct {
	config  string
	table   string
	local   bool
	verbose bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "path to ddb.yaml (default: search upwards from the working directory)")
	fs.StringVar(&c.table, "table", "", "table name from ddb.yaml (optional when only one is configured)")
	fs.BoolVar(&c.local, "local", false, "use the local badger store instead of DynamoDB")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
}

func (c commonFlags) load() (Config, TableConfig, error) {
	cfg, err := LoadConfig(c.config)
	if err != nil {
		return Config{}, TableConfig{}, err
	}
	t, err := cfg.Table(c.table)
	if err != nil {
		return Config{}, TableConfig{}, err
	}
	return cfg, t, nil
}

func (c commonFlags) logger(w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if c.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// pairsFlag collects repeated alias=value flags.
type pairsFlag map[string]string

func (p pairsFlag) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+p[k])
	}
	return strings.Join(parts, ",")
}

func (p pairsFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected alias=value, got %q", s)
	}
	p[k] = v
	return nil
}

// parseValues turns ":alias=TYPE:literal" flags into attribute values.
// TYPE is one of S, N, BOOL, NULL; a value without a type is a string.
func parseValues(p pairsFlag) (map[string]types.AttributeValue, error) {
	if len(p) == 0 {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(p))
	for alias, raw := range p {
		v, err := parseAttributeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("value %s: %w", alias, err)
		}
		out[alias] = v
	}
	return out, nil
}

func parseAttributeValue(raw string) (types.AttributeValue, error) {
	typ, lit, ok := strings.Cut(raw, ":")
	if !ok {
		return &types.AttributeValueMemberS{Value: raw}, nil
	}
	switch strings.ToUpper(typ) {
	case "S":
		return &types.AttributeValueMemberS{Value: lit}, nil
	case "N":
		return &types.AttributeValueMemberN{Value: lit}, nil
	case "BOOL":
		switch lit {
		case "true":
			return &types.AttributeValueMemberBOOL{Value: true}, nil
		case "false":
			return &types.AttributeValueMemberBOOL{Value: false}, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", lit)
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: true}, nil
	default:
		return &types.AttributeValueMemberS{Value: raw}, nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
