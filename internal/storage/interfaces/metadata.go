package interfaces

import (
	"context"

	"github.com/insightloop/dataqual/pkg/models"
)

// MetadataStore persists dataset metadata and analysis records. There is
// exactly one analysis record per dataset id; writes overwrite.
type MetadataStore interface {
	// Connect establishes the backend connection
	Connect(ctx context.Context) error

	// Close releases the backend connection
	Close() error

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// PutDataset stores dataset metadata
	PutDataset(ctx context.Context, meta *models.DatasetMeta) error

	// GetDataset retrieves dataset metadata by id; returns
	// errors.ErrDatasetNotFound when absent
	GetDataset(ctx context.Context, datasetID string) (*models.DatasetMeta, error)

	// ListDatasets returns all datasets owned by the given user
	ListDatasets(ctx context.Context, ownerID string) ([]*models.DatasetMeta, error)

	// DeleteDataset removes dataset metadata and its analysis record
	DeleteDataset(ctx context.Context, datasetID string) error

	// GetAnalysis retrieves the analysis record for a dataset; returns
	// errors.ErrAnalysisNotFound when no run has ever been recorded
	GetAnalysis(ctx context.Context, datasetID string) (*models.AnalysisRecord, error)

	// BeginAnalysis atomically transitions the record to in_progress.
	// The write succeeds only when no record exists or the existing
	// record is not in_progress; a concurrent in-flight run surfaces as
	// errors.ErrAnalysisInProgress. This conditional write is the
	// single-flight guarantee across processes.
	BeginAnalysis(ctx context.Context, datasetID string) error

	// PutAnalysis overwrites the analysis record for a dataset
	PutAnalysis(ctx context.Context, record *models.AnalysisRecord) error
}
