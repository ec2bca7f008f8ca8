package profiler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightloop/dataqual/pkg/models"
)

func TestLocalProfilerInfersTypes(t *testing.T) {
	ds := &models.Dataset{
		Meta:    &models.DatasetMeta{ID: "ds-1"},
		Columns: []string{"id", "price", "active", "signup", "segment", "notes"},
		Rows: [][]string{
			{"1", "10.5", "true", "2026-01-01", "gold", "first purchase in march"},
			{"2", "3.2", "false", "2026-01-02", "gold", "asked about refunds"},
			{"3", "", "yes", "2026-01-03", "silver", "churn risk flagged by sales"},
			{"4", "8.0", "no", "2026-01-04", "gold", "renewed annual contract"},
		},
	}

	profile, err := NewLocalProfiler(nil).Profile(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, "ds-1", profile.DatasetID)
	assert.Equal(t, 4, profile.RowCount)
	assert.Equal(t, 6, profile.ColumnCount)

	assert.Equal(t, models.ColumnTypeNumeric, profile.Column("id").InferredType)
	assert.Equal(t, models.ColumnTypeNumeric, profile.Column("price").InferredType)
	assert.Equal(t, models.ColumnTypeBoolean, profile.Column("active").InferredType)
	assert.Equal(t, models.ColumnTypeDatetime, profile.Column("signup").InferredType)
	assert.Equal(t, models.ColumnTypeCategorical, profile.Column("segment").InferredType)
	assert.Equal(t, models.ColumnTypeText, profile.Column("notes").InferredType)

	assert.Equal(t, 1, profile.Column("price").NullCount)
	assert.Equal(t, 0, profile.Column("id").NullCount)
}

func TestLocalProfilerRejectsEmptyDataset(t *testing.T) {
	_, err := NewLocalProfiler(nil).Profile(context.Background(), &models.Dataset{})
	assert.Error(t, err)

	_, err = NewLocalProfiler(nil).Profile(context.Background(), nil)
	assert.Error(t, err)
}

func TestHTTPProfilerRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profile", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req struct {
			DatasetID string     `json:"dataset_id"`
			Columns   []string   `json:"columns"`
			Rows      [][]string `json:"rows"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ds-9", req.DatasetID)

		json.NewEncoder(w).Encode(&models.DatasetProfile{
			DatasetID:   req.DatasetID,
			RowCount:    len(req.Rows),
			ColumnCount: len(req.Columns),
			Columns: []models.ColumnProfile{
				{Name: "id", InferredType: models.ColumnTypeNumeric, NullCount: 0},
			},
			ReportKey: "reports/20260301_120000_ds-9.html",
		})
	}))
	defer server.Close()

	p, err := NewHTTPProfiler(&HTTPConfig{BaseURL: server.URL, APIKey: "secret"}, nil)
	require.NoError(t, err)

	profile, err := p.Profile(context.Background(), &models.Dataset{
		Meta:    &models.DatasetMeta{ID: "ds-9"},
		Columns: []string{"id"},
		Rows:    [][]string{{"1"}, {"2"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, profile.RowCount)
	assert.Equal(t, "reports/20260301_120000_ds-9.html", profile.ReportKey)
	assert.False(t, profile.GeneratedAt.IsZero())
}

func TestHTTPProfilerServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "profiling blew up", http.StatusInternalServerError)
	}))
	defer server.Close()

	p, err := NewHTTPProfiler(&HTTPConfig{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = p.Profile(context.Background(), &models.Dataset{Columns: []string{"id"}, Rows: [][]string{{"1"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPProfilerTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	p, err := NewHTTPProfiler(&HTTPConfig{BaseURL: server.URL, Timeout: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = p.Profile(context.Background(), &models.Dataset{Columns: []string{"id"}, Rows: [][]string{{"1"}}})
	assert.Error(t, err)
}

func TestHTTPProfilerRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPProfiler(&HTTPConfig{}, nil)
	assert.Error(t, err)
	_, err = NewHTTPProfiler(nil, nil)
	assert.Error(t, err)
}
