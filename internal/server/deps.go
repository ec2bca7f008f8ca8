package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/internal/config"
	"github.com/insightloop/dataqual/internal/insight"
	"github.com/insightloop/dataqual/internal/profiler"
	"github.com/insightloop/dataqual/internal/storage/implementations/dynamodb"
	"github.com/insightloop/dataqual/internal/storage/implementations/memory"
	"github.com/insightloop/dataqual/internal/storage/implementations/redis"
	"github.com/insightloop/dataqual/internal/storage/implementations/s3"
	"github.com/insightloop/dataqual/internal/storage/interfaces"
)

// buildStorage creates the metadata and blob stores for the configured
// backend, wrapping the metadata store with the Redis cache when enabled
func buildStorage(cfg *config.Config, logger *logrus.Logger) (interfaces.MetadataStore, interfaces.BlobStore, error) {
	var (
		store interfaces.MetadataStore
		blobs interfaces.BlobStore
		err   error
	)

	switch cfg.Storage.Backend {
	case "memory":
		store = memory.NewMetadataStore(logger)
		blobs = memory.NewBlobStore()

	case "aws":
		store, err = dynamodb.NewDynamoDBStore(&dynamodb.DynamoDBConfig{
			Region:          cfg.Storage.AWS.Region,
			DatasetTable:    cfg.Storage.AWS.DatasetTable,
			AnalysisTable:   cfg.Storage.AWS.AnalysisTable,
			AccessKeyID:     cfg.Storage.AWS.AccessKeyID,
			SecretAccessKey: cfg.Storage.AWS.SecretAccessKey,
			Endpoint:        cfg.Storage.AWS.Endpoint,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create DynamoDB store: %w", err)
		}

		blobs, err = s3.NewS3Store(&s3.S3Config{
			Region:          cfg.Storage.AWS.Region,
			Bucket:          cfg.Storage.AWS.Bucket,
			AccessKeyID:     cfg.Storage.AWS.AccessKeyID,
			SecretAccessKey: cfg.Storage.AWS.SecretAccessKey,
			Endpoint:        cfg.Storage.AWS.Endpoint,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 store: %w", err)
		}

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.Redis.Enabled {
		store, err = redis.NewCachedMetadataStore(store, &redis.CacheConfig{
			Address:  cfg.Storage.Redis.Address,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			TTL:      cfg.Storage.Redis.TTL,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Redis cache: %w", err)
		}
	}

	return store, blobs, nil
}

// buildProfiler creates the configured profiler implementation
func buildProfiler(cfg *config.Config, logger *logrus.Logger) (profiler.Profiler, error) {
	switch cfg.Profiler.Mode {
	case "local":
		return profiler.NewLocalProfiler(logger), nil
	case "http":
		return profiler.NewHTTPProfiler(&profiler.HTTPConfig{
			BaseURL: cfg.Profiler.BaseURL,
			APIKey:  cfg.Profiler.APIKey,
			Timeout: cfg.Profiler.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown profiler mode %q", cfg.Profiler.Mode)
	}
}

// buildInsightRequester creates the insight requester. With insight
// disabled the requester has no generator and always answers with the
// deterministic fallback.
func buildInsightRequester(cfg *config.Config, logger *logrus.Logger) (*insight.Requester, error) {
	if !cfg.Insight.Enabled {
		return insight.NewRequester(nil, cfg.Insight.Timeout, logger), nil
	}

	generator, err := insight.NewBedrockGenerator(&insight.BedrockConfig{
		Region:      cfg.Insight.Region,
		ModelID:     cfg.Insight.ModelID,
		MaxTokens:   cfg.Insight.MaxTokens,
		Temperature: cfg.Insight.Temperature,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bedrock generator: %w", err)
	}
	return insight.NewRequester(generator, cfg.Insight.Timeout, logger), nil
}
