package memory

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

func TestMetadataStoreDatasetRoundTrip(t *testing.T) {
	store := NewMetadataStore(nil)
	ctx := context.Background()

	meta := &models.DatasetMeta{
		ID:          "ds-1",
		OwnerID:     "user-1",
		Filename:    "orders.csv",
		ContentType: "text/csv",
		SizeBytes:   2048,
		BlobKey:     "uploads/user-1/orders.csv",
		RowCount:    500,
		ColumnCount: 6,
		Columns:     []string{"id", "amount"},
		UploadedAt:  time.Now().UTC(),
	}

	require.NoError(t, store.PutDataset(ctx, meta))

	got, err := store.GetDataset(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, meta.Filename, got.Filename)
	assert.Equal(t, meta.BlobKey, got.BlobKey)

	_, err = store.GetDataset(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrDatasetNotFound)
}

func TestMetadataStoreListByOwner(t *testing.T) {
	store := NewMetadataStore(nil)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, owner := range []string{"alice", "bob", "alice"} {
		require.NoError(t, store.PutDataset(ctx, &models.DatasetMeta{
			ID:         []string{"ds-a", "ds-b", "ds-c"}[i],
			OwnerID:    owner,
			UploadedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	metas, err := store.ListDatasets(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, metas, 2)
	// Newest first
	assert.Equal(t, "ds-c", metas[0].ID)
	assert.Equal(t, "ds-a", metas[1].ID)

	metas, err = store.ListDatasets(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestBeginAnalysisSingleFlight(t *testing.T) {
	store := NewMetadataStore(nil)
	ctx := context.Background()

	require.NoError(t, store.BeginAnalysis(ctx, "ds-1"))

	err := store.BeginAnalysis(ctx, "ds-1")
	assert.ErrorIs(t, err, errors.ErrAnalysisInProgress)

	record, err := store.GetAnalysis(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisInProgress, record.Status)
}

func TestBeginAnalysisConcurrent(t *testing.T) {
	store := NewMetadataStore(nil)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.BeginAnalysis(ctx, "ds-1")
		}()
	}
	wg.Wait()
	close(results)

	var won, busy int
	for err := range results {
		switch {
		case err == nil:
			won++
		case stderrors.Is(err, errors.ErrAnalysisInProgress):
			busy++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, won, "exactly one caller should win the transition")
	assert.Equal(t, workers-1, busy)
}

func TestBeginAnalysisAllowedAfterTerminalState(t *testing.T) {
	store := NewMetadataStore(nil)
	ctx := context.Background()

	require.NoError(t, store.BeginAnalysis(ctx, "ds-1"))
	require.NoError(t, store.PutAnalysis(ctx, &models.AnalysisRecord{
		DatasetID: "ds-1",
		Status:    models.AnalysisCompleted,
		CreatedAt: time.Now().UTC(),
	}))

	// A completed run does not block a re-run
	require.NoError(t, store.BeginAnalysis(ctx, "ds-1"))

	record, err := store.GetAnalysis(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisInProgress, record.Status)
}

func TestGetAnalysisNotFound(t *testing.T) {
	store := NewMetadataStore(nil)

	_, err := store.GetAnalysis(context.Background(), "never-analyzed")
	assert.ErrorIs(t, err, errors.ErrAnalysisNotFound)
}

func TestDeleteDatasetRemovesAnalysis(t *testing.T) {
	store := NewMetadataStore(nil)
	ctx := context.Background()

	require.NoError(t, store.PutDataset(ctx, &models.DatasetMeta{ID: "ds-1", OwnerID: "u"}))
	require.NoError(t, store.BeginAnalysis(ctx, "ds-1"))
	require.NoError(t, store.DeleteDataset(ctx, "ds-1"))

	_, err := store.GetDataset(ctx, "ds-1")
	assert.ErrorIs(t, err, errors.ErrDatasetNotFound)
	_, err = store.GetAnalysis(ctx, "ds-1")
	assert.ErrorIs(t, err, errors.ErrAnalysisNotFound)
}

func TestBlobStoreRoundTrip(t *testing.T) {
	store := NewBlobStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "uploads/u/a.csv", strings.NewReader("id,name\n1,x\n"), "text/csv"))

	rc, err := store.Get(ctx, "uploads/u/a.csv")
	require.NoError(t, err)
	defer rc.Close()

	data := make([]byte, 64)
	n, _ := rc.Read(data)
	assert.Contains(t, string(data[:n]), "id,name")

	url, err := store.PresignedURL("uploads/u/a.csv", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "memory://uploads/u/a.csv", url)

	require.NoError(t, store.Delete(ctx, "uploads/u/a.csv"))
	_, err = store.Get(ctx, "uploads/u/a.csv")
	assert.Error(t, err)
}
