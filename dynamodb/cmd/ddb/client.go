package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/acksell/dynamap/dynamodb/ddbsdk"
	"github.com/acksell/dynamap/dynamodb/ddbstore"
	"github.com/acksell/dynamap/dynamodb/table"
)

// connectFunc opens the client commands send requests with. The returned
// close function releases it.
type connectFunc func(ctx context.Context, cfg Config, local bool) (ddbsdk.AWSDynamoClientV2, func() error, error)

func connect(ctx context.Context, cfg Config, local bool) (ddbsdk.AWSDynamoClientV2, func() error, error) {
	if local {
		return openLocal(ctx, cfg)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	zerolog.Ctx(ctx).Debug().Str("region", awsCfg.Region).Str("endpoint", cfg.Endpoint).Msg("using DynamoDB")
	return client, func() error { return nil }, nil
}

// openLocal opens the badger-backed store with every configured table.
func openLocal(ctx context.Context, cfg Config) (ddbsdk.AWSDynamoClientV2, func() error, error) {
	defs := make([]table.TableDefinition, 0, len(cfg.Tables))
	for _, t := range cfg.Tables {
		defs = append(defs, t.Definition())
	}
	logger := zerolog.Ctx(ctx)
	store, err := ddbstore.New(ddbstore.Options{
		Path:     cfg.DataDir,
		InMemory: cfg.DataDir == "",
		Logger:   logger,
	}, defs...)
	if err != nil {
		return nil, nil, fmt.Errorf("open local store: %w", err)
	}
	logger.Debug().Str("dataDir", cfg.DataDir).Int("tables", len(defs)).Msg("using local store")
	return store, store.Close, nil
}
