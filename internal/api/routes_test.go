package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightloop/dataqual/internal/api/middleware"
	"github.com/insightloop/dataqual/internal/coordinator"
	"github.com/insightloop/dataqual/internal/insight"
	"github.com/insightloop/dataqual/internal/profiler"
	"github.com/insightloop/dataqual/internal/storage/implementations/memory"
	"github.com/insightloop/dataqual/pkg/models"
)

const testCSV = "id,amount,segment\n" +
	"1,10.5,gold\n" +
	"2,,gold\n" +
	"3,7.0,silver\n" +
	"4,8.1,gold\n"

type testAPI struct {
	router *httptest.Server
	coord  *coordinator.Coordinator
	auth   *middleware.AuthMiddleware
}

func newTestAPI(t *testing.T, authEnabled bool) *testAPI {
	t.Helper()

	store := memory.NewMetadataStore(nil)
	blobs := memory.NewBlobStore()
	coord := coordinator.NewCoordinator(
		store,
		blobs,
		profiler.NewLocalProfiler(nil),
		insight.NewRequester(nil, time.Second, nil),
		nil,
		&coordinator.Config{PipelineTimeout: 5 * time.Second},
		nil,
	)

	authConfig := &middleware.AuthConfig{
		Enabled:   authEnabled,
		JWTSecret: "test-secret",
	}

	router := NewRouter(coord, store, blobs, nil, &RouterConfig{
		Auth:    authConfig,
		Logging: &middleware.LoggingConfig{Enabled: false},
	}, nil)

	server := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(server.Close)

	return &testAPI{
		router: server,
		coord:  coord,
		auth:   middleware.NewAuthMiddleware(authConfig, nil),
	}
}

func (a *testAPI) uploadCSV(t *testing.T, csv string) string {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "orders.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, a.router.URL+"/api/v1/datasets", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var meta models.DatasetMeta
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
	require.NotEmpty(t, meta.ID)
	return meta.ID
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestUploadListAndDelete(t *testing.T) {
	a := newTestAPI(t, false)
	id := a.uploadCSV(t, testCSV)

	var listing struct {
		Datasets []models.DatasetMeta `json:"datasets"`
		Count    int                  `json:"count"`
	}
	code := getJSON(t, a.router.URL+"/api/v1/datasets", &listing)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, listing.Count)
	assert.Equal(t, id, listing.Datasets[0].ID)
	assert.Equal(t, 4, listing.Datasets[0].RowCount)

	req, err := http.NewRequest(http.MethodDelete, a.router.URL+"/api/v1/datasets/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	code = getJSON(t, a.router.URL+"/api/v1/datasets/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUploadRejectsNonCSV(t *testing.T) {
	a := newTestAPI(t, false)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "data.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(`{"not":"csv"}`))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, a.router.URL+"/api/v1/datasets", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalysisLifecycleOverAPI(t *testing.T) {
	a := newTestAPI(t, false)
	id := a.uploadCSV(t, testCSV)

	// Before any run the status is not_started
	var state struct {
		Status string `json:"status"`
	}
	code := getJSON(t, a.router.URL+"/api/v1/datasets/"+id+"/analysis", &state)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "not_started", state.Status)

	// Trigger
	resp, err := http.Post(a.router.URL+"/api/v1/datasets/"+id+"/analysis", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	a.coord.Wait()

	var result struct {
		Status       string            `json:"status"`
		QualityScore *int              `json:"quality_score"`
		Issues       []models.Issue    `json:"issues"`
		Insight      *models.AIInsight `json:"ai_insight"`
	}
	code = getJSON(t, a.router.URL+"/api/v1/datasets/"+id+"/analysis", &result)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", result.Status)
	require.NotNil(t, result.QualityScore)
	assert.Positive(t, *result.QualityScore)
	require.NotNil(t, result.Insight)
	assert.Equal(t, models.InsightSourceFallback, result.Insight.GeneratedBy)
}

func TestAnalysisTriggerUnknownDataset(t *testing.T) {
	a := newTestAPI(t, false)

	resp, err := http.Post(a.router.URL+"/api/v1/datasets/nope/analysis", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthRequiredWhenEnabled(t *testing.T) {
	a := newTestAPI(t, true)

	// No token
	code := getJSON(t, a.router.URL+"/api/v1/datasets", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// Health stays open
	code = getJSON(t, a.router.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, code)

	// With a valid token
	token, err := a.auth.IssueToken(&middleware.User{ID: "user-1", Username: "alice"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, a.router.URL+"/api/v1/datasets", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVersionEndpoint(t *testing.T) {
	a := newTestAPI(t, false)

	var version map[string]string
	code := getJSON(t, a.router.URL+"/version", &version)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, version["version"])
}
