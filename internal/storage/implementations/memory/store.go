package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/internal/storage/interfaces"
	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

// MetadataStore is an in-memory MetadataStore used for development and
// tests. All operations are safe for concurrent use.
type MetadataStore struct {
	mu       sync.Mutex
	datasets map[string]*models.DatasetMeta
	analyses map[string]*models.AnalysisRecord
	logger   *logrus.Logger
	closed   bool
}

// NewMetadataStore creates an empty in-memory metadata store
func NewMetadataStore(logger *logrus.Logger) *MetadataStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &MetadataStore{
		datasets: make(map[string]*models.DatasetMeta),
		analyses: make(map[string]*models.AnalysisRecord),
		logger:   logger,
	}
}

func (m *MetadataStore) Connect(ctx context.Context) error { return nil }

func (m *MetadataStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MetadataStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.NewPersistenceError(errors.CodeNotConnected, "store is closed")
	}
	return nil
}

func (m *MetadataStore) PutDataset(ctx context.Context, meta *models.DatasetMeta) error {
	if meta == nil || meta.ID == "" {
		return errors.NewValidationError(errors.CodeInvalidDataset, "dataset metadata requires an id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *meta
	m.datasets[meta.ID] = &cp
	return nil
}

func (m *MetadataStore) GetDataset(ctx context.Context, datasetID string) (*models.DatasetMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.datasets[datasetID]
	if !ok {
		return nil, errors.ErrDatasetNotFound
	}
	cp := *meta
	return &cp, nil
}

func (m *MetadataStore) ListDatasets(ctx context.Context, ownerID string) ([]*models.DatasetMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.DatasetMeta
	for _, meta := range m.datasets {
		if meta.OwnerID == ownerID {
			cp := *meta
			out = append(out, &cp)
		}
	}
	// Newest first, id as a stable tiebreak
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MetadataStore) DeleteDataset(ctx context.Context, datasetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[datasetID]; !ok {
		return errors.ErrDatasetNotFound
	}
	delete(m.datasets, datasetID)
	delete(m.analyses, datasetID)
	return nil
}

func (m *MetadataStore) GetAnalysis(ctx context.Context, datasetID string) (*models.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.analyses[datasetID]
	if !ok {
		return nil, errors.ErrAnalysisNotFound
	}
	cp := *record
	return &cp, nil
}

// BeginAnalysis transitions the record to in_progress. The check and the
// write happen under one lock, matching the conditional-write semantics of
// the DynamoDB implementation.
func (m *MetadataStore) BeginAnalysis(ctx context.Context, datasetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.analyses[datasetID]; ok && existing.Status == models.AnalysisInProgress {
		return errors.ErrAnalysisInProgress
	}
	m.analyses[datasetID] = &models.AnalysisRecord{
		DatasetID: datasetID,
		Status:    models.AnalysisInProgress,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (m *MetadataStore) PutAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	if record == nil || record.DatasetID == "" {
		return errors.NewValidationError(errors.CodeInvalidDataset, "analysis record requires a dataset id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	m.analyses[record.DatasetID] = &cp
	return nil
}

// BlobStore is an in-memory BlobStore used for development and tests.
type BlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	closed  bool
}

// NewBlobStore creates an empty in-memory blob store
func NewBlobStore() *BlobStore {
	return &BlobStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (b *BlobStore) Connect(ctx context.Context) error { return nil }

func (b *BlobStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *BlobStore) Ping(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.NewPersistenceError(errors.CodeNotConnected, "store is closed")
	}
	return nil
}

func (b *BlobStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed, "failed to read object body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.types[key] = contentType
	return nil
}

func (b *BlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.NewPersistenceError(errors.CodeReadFailed, fmt.Sprintf("object '%s' not found", key))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *BlobStore) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	delete(b.types, key)
	return nil
}

func (b *BlobStore) PresignedURL(key string, expiry time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return "", errors.NewPersistenceError(errors.CodeReadFailed, fmt.Sprintf("object '%s' not found", key))
	}
	return "memory://" + key, nil
}

var (
	_ interfaces.MetadataStore = (*MetadataStore)(nil)
	_ interfaces.BlobStore     = (*BlobStore)(nil)
)
