package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/internal/storage/interfaces"
	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

// CacheConfig holds configuration for the Redis analysis cache
type CacheConfig struct {
	Address   string        `json:"address"`
	Password  string        `json:"password,omitempty"`
	DB        int           `json:"db"`
	KeyPrefix string        `json:"key_prefix"`
	TTL       time.Duration `json:"ttl"`
	PoolSize  int           `json:"pool_size"`
}

// CachedMetadataStore wraps a MetadataStore with a Redis read-through cache
// for completed analysis records. Only terminal records are cached;
// in_progress state must always come from the backing store so the
// single-flight conditional write stays authoritative. Cache failures are
// logged and fall through to the backing store.
type CachedMetadataStore struct {
	interfaces.MetadataStore

	config *CacheConfig
	client *redis.Client
	logger *logrus.Logger
}

// NewCachedMetadataStore wraps the given store with a Redis cache
func NewCachedMetadataStore(store interfaces.MetadataStore, config *CacheConfig, logger *logrus.Logger) (*CachedMetadataStore, error) {
	if store == nil {
		return nil, errors.NewPersistenceError(errors.CodeInvalidConfig, "backing store cannot be nil")
	}
	if config == nil {
		return nil, errors.NewPersistenceError(errors.CodeInvalidConfig, "Redis config cannot be nil")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = constants.DefaultCacheKeyPrefix
	}
	if config.TTL <= 0 {
		config.TTL = constants.DefaultCacheTTL
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &CachedMetadataStore{
		MetadataStore: store,
		config:        config,
		logger:        logger,
	}, nil
}

// Connect connects the backing store and the Redis client
func (c *CachedMetadataStore) Connect(ctx context.Context) error {
	if err := c.MetadataStore.Connect(ctx); err != nil {
		return err
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     c.config.Address,
		Password: c.config.Password,
		DB:       c.config.DB,
		PoolSize: c.config.PoolSize,
	})

	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeNotConnected, "Failed to connect to Redis")
	}

	c.logger.WithFields(logrus.Fields{
		"address": c.config.Address,
		"db":      c.config.DB,
		"ttl":     c.config.TTL,
	}).Info("Connected to Redis analysis cache")

	return nil
}

// Close closes the Redis client and the backing store
func (c *CachedMetadataStore) Close() error {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.WithError(err).Warn("Failed to close Redis client")
		}
		c.client = nil
	}
	return c.MetadataStore.Close()
}

// Ping verifies both the cache and the backing store
func (c *CachedMetadataStore) Ping(ctx context.Context) error {
	if c.client != nil {
		if err := c.client.Ping(ctx).Err(); err != nil {
			return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeNotConnected, "Redis ping failed")
		}
	}
	return c.MetadataStore.Ping(ctx)
}

// GetAnalysis serves terminal records from the cache when possible
func (c *CachedMetadataStore) GetAnalysis(ctx context.Context, datasetID string) (*models.AnalysisRecord, error) {
	if record := c.cachedRecord(ctx, datasetID); record != nil {
		return record, nil
	}

	record, err := c.MetadataStore.GetAnalysis(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	if isTerminal(record.Status) {
		c.storeRecord(ctx, record)
	}
	return record, nil
}

// BeginAnalysis invalidates the cached record before the transition so a
// reader never sees a stale terminal record for a run that has restarted
func (c *CachedMetadataStore) BeginAnalysis(ctx context.Context, datasetID string) error {
	c.invalidate(ctx, datasetID)
	return c.MetadataStore.BeginAnalysis(ctx, datasetID)
}

// PutAnalysis writes through to the backing store and refreshes the cache
func (c *CachedMetadataStore) PutAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	if err := c.MetadataStore.PutAnalysis(ctx, record); err != nil {
		return err
	}

	if record != nil {
		if isTerminal(record.Status) {
			c.storeRecord(ctx, record)
		} else {
			c.invalidate(ctx, record.DatasetID)
		}
	}
	return nil
}

// DeleteDataset removes the cached record along with the stored one
func (c *CachedMetadataStore) DeleteDataset(ctx context.Context, datasetID string) error {
	c.invalidate(ctx, datasetID)
	return c.MetadataStore.DeleteDataset(ctx, datasetID)
}

func (c *CachedMetadataStore) cachedRecord(ctx context.Context, datasetID string) *models.AnalysisRecord {
	if c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, c.analysisKey(datasetID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("Redis read failed, falling through to store")
		}
		return nil
	}

	var record models.AnalysisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		c.logger.WithError(err).Warn("Discarding unreadable cached analysis record")
		c.invalidate(ctx, datasetID)
		return nil
	}
	return &record
}

func (c *CachedMetadataStore) storeRecord(ctx context.Context, record *models.AnalysisRecord) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal analysis record for cache")
		return
	}

	if err := c.client.Set(ctx, c.analysisKey(record.DatasetID), data, c.config.TTL).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis write failed")
	}
}

func (c *CachedMetadataStore) invalidate(ctx context.Context, datasetID string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.analysisKey(datasetID)).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis delete failed")
	}
}

func (c *CachedMetadataStore) analysisKey(datasetID string) string {
	return fmt.Sprintf("%s:analysis:%s", c.config.KeyPrefix, datasetID)
}

func isTerminal(status models.AnalysisStatus) bool {
	return status == models.AnalysisCompleted || status == models.AnalysisFailed
}

var _ interfaces.MetadataStore = (*CachedMetadataStore)(nil)
