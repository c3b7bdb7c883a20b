package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/acksell/dynamap/dynamodb/attrmap"
	"github.com/acksell/dynamap/dynamodb/ddbsdk"
	"github.com/acksell/dynamap/dynamodb/table"
)

type app struct {
	stdout  io.Writer
	stderr  io.Writer
	connect connectFunc
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) runGet(ctx context.Context, args []string, explain bool) error {
	fs := a.flagSet("get")
	var common commonFlags
	common.register(fs)
	var (
		pk         = fs.String("pk", "", "partition key input, formatted per ddb.yaml")
		sk         = fs.String("sk", "", "sort key input, formatted per ddb.yaml")
		projection = fs.String("projection", "", "comma separated attributes to return")
		consistent = fs.Bool("consistent", false, "strongly consistent read")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pk == "" {
		return errors.New("-pk is required")
	}

	cfg, t, err := common.load()
	if err != nil {
		return err
	}
	if t.SortKey != nil && *sk == "" {
		return fmt.Errorf("-sk is required for table %q", t.Name)
	}

	get := t.Mapper().GetItem().Key(*pk, *sk)
	if *consistent {
		get = get.ConsistentRead(true)
	}
	if attrs := splitList(*projection); len(attrs) > 0 {
		get = get.Projection(attrs...)
	}

	if explain {
		in, err := get.Input()
		if err != nil {
			return err
		}
		req, err := describeGet(in)
		if err != nil {
			return err
		}
		return printJSON(a.stdout, req)
	}

	ctx = common.logger(a.stderr).WithContext(ctx)
	client, closeClient, err := a.connect(ctx, cfg, common.local)
	if err != nil {
		return err
	}
	defer closeClient()

	out, err := get.Send(ctx, client)
	if err != nil {
		return err
	}
	if out.Item == nil {
		zerolog.Ctx(ctx).Info().Str("table", t.Name).Str("pk", *pk).Str("sk", *sk).Msg("item not found")
		return nil
	}
	return printItem(a.stdout, out.Item.Item())
}

// sortFlags holds the mutually exclusive sort key conditions of a query.
type sortFlags struct {
	eq, lt, lte, gt, gte string
	from, to             string
	prefix               string
}

func (s *sortFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.eq, "sk-eq", "", "sort key = input")
	fs.StringVar(&s.lt, "sk-lt", "", "sort key < input")
	fs.StringVar(&s.lte, "sk-lte", "", "sort key <= input")
	fs.StringVar(&s.gt, "sk-gt", "", "sort key > input")
	fs.StringVar(&s.gte, "sk-gte", "", "sort key >= input")
	fs.StringVar(&s.from, "sk-from", "", "lower bound of sort key BETWEEN (requires -sk-to)")
	fs.StringVar(&s.to, "sk-to", "", "upper bound of sort key BETWEEN (requires -sk-from)")
	fs.StringVar(&s.prefix, "sk-prefix", "", "raw sort key prefix for begins_with, not formatted")
}

func (s sortFlags) apply(q ddbsdk.Query[attrmap.Map, string, string]) (ddbsdk.Query[attrmap.Map, string, string], error) {
	set := 0
	for _, v := range []string{s.eq, s.lt, s.lte, s.gt, s.gte, s.prefix} {
		if v != "" {
			set++
		}
	}
	if s.from != "" || s.to != "" {
		if s.from == "" || s.to == "" {
			return q, errors.New("-sk-from and -sk-to must be used together")
		}
		set++
	}
	if set > 1 {
		return q, errors.New("at most one sort key condition may be given")
	}

	switch {
	case s.eq != "":
		q = q.SKEq(s.eq)
	case s.lt != "":
		q = q.SKLt(s.lt)
	case s.lte != "":
		q = q.SKLte(s.lte)
	case s.gt != "":
		q = q.SKGt(s.gt)
	case s.gte != "":
		q = q.SKGte(s.gte)
	case s.from != "":
		q = q.SKBetween(s.from, s.to)
	case s.prefix != "":
		q = q.SKBeginsWith(&types.AttributeValueMemberS{Value: s.prefix})
	}
	return q, nil
}

func (a *app) runQuery(ctx context.Context, args []string, explain bool) error {
	fs := a.flagSet("query")
	var common commonFlags
	common.register(fs)
	var sorts sortFlags
	sorts.register(fs)
	names, values := pairsFlag{}, pairsFlag{}
	fs.Var(names, "name", "expression attribute name, #alias=attribute (repeatable)")
	fs.Var(values, "value", "expression attribute value, :alias=TYPE:literal with TYPE S, N, BOOL or NULL (repeatable)")
	var (
		pk         = fs.String("pk", "", "partition key input, formatted per ddb.yaml")
		index      = fs.String("index", "", "GSI to query")
		filter     = fs.String("filter", "", "filter expression")
		projection = fs.String("projection", "", "comma separated attributes to return")
		limit      = fs.Int("limit", 0, "maximum items evaluated per page")
		desc       = fs.Bool("desc", false, "descending sort key order")
		consistent = fs.Bool("consistent", false, "strongly consistent read")
		all        = fs.Bool("all", false, "follow LastEvaluatedKey until the last page")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pk == "" {
		return errors.New("-pk is required")
	}

	cfg, t, err := common.load()
	if err != nil {
		return err
	}
	m := t.Mapper()
	if *index != "" {
		if m, err = t.IndexMapper(*index); err != nil {
			return err
		}
	}

	if kind := m.Schema.Key.Keys.SortKey.Kind; sorts.prefix != "" && kind != "" && kind != table.KeyKindS {
		return fmt.Errorf("-sk-prefix needs a string sort key, %q has kind %s", m.Schema.Key.Keys.SortKey.Name, kind)
	}
	q, err := sorts.apply(m.Query().PKEq(*pk))
	if err != nil {
		return err
	}
	vals, err := parseValues(values)
	if err != nil {
		return err
	}
	q = q.Names(names).Values(vals)
	if *filter != "" {
		q = q.FilterExpression(*filter)
	}
	if attrs := splitList(*projection); len(attrs) > 0 {
		q = q.Projection(attrs...)
	}
	if *limit > 0 {
		q = q.Limit(int32(*limit))
	}
	if *desc {
		q = q.ScanIndexForward(false)
	}
	if *consistent {
		q = q.ConsistentRead(true)
	}

	if explain {
		in, err := q.Input()
		if err != nil {
			return err
		}
		req, err := describeQuery(in)
		if err != nil {
			return err
		}
		return printJSON(a.stdout, req)
	}

	ctx = common.logger(a.stderr).WithContext(ctx)
	client, closeClient, err := a.connect(ctx, cfg, common.local)
	if err != nil {
		return err
	}
	defer closeClient()

	var start ddbsdk.Item
	for page := 1; ; page++ {
		out, err := q.Send(ctx, client, start)
		if err != nil {
			return err
		}
		for _, item := range out.Items {
			if err := printItem(a.stdout, item.Item()); err != nil {
				return err
			}
		}
		zerolog.Ctx(ctx).Debug().Int("page", page).Int("items", len(out.Items)).Msg("query page")
		if out.LastEvaluatedKey == nil {
			return nil
		}
		if !*all {
			zerolog.Ctx(ctx).Info().Msg("more items available, rerun with -all to fetch every page")
			return nil
		}
		start = out.LastEvaluatedKey
	}
}
