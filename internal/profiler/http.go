package profiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

// HTTPConfig holds configuration for the external profiling service
type HTTPConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key,omitempty"`
	Timeout time.Duration `json:"timeout"`
}

// HTTPProfiler calls an external profiling service. The service reads the
// dataset rows from the request body, stores the HTML report itself, and
// returns the profile together with the report's storage key.
type HTTPProfiler struct {
	config *HTTPConfig
	client *http.Client
	logger *logrus.Logger
}

type profileRequest struct {
	DatasetID string     `json:"dataset_id"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
}

// NewHTTPProfiler creates a profiler backed by an external HTTP service
func NewHTTPProfiler(config *HTTPConfig, logger *logrus.Logger) (*HTTPProfiler, error) {
	if config == nil || config.BaseURL == "" {
		return nil, errors.NewProfilingError(errors.CodeProfilerUnavailable, "profiler base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = constants.DefaultProfilerTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &HTTPProfiler{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

// Profile sends the dataset to the profiling service and decodes the result
func (p *HTTPProfiler) Profile(ctx context.Context, dataset *models.Dataset) (*models.DatasetProfile, error) {
	if dataset == nil {
		return nil, errors.NewProfilingError(errors.CodeProfilingFailed, "dataset cannot be nil")
	}

	datasetID := ""
	if dataset.Meta != nil {
		datasetID = dataset.Meta.ID
	}

	payload, err := json.Marshal(&profileRequest{
		DatasetID: datasetID,
		Columns:   dataset.Columns,
		Rows:      dataset.Rows,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeProfiling, errors.CodeProfilingFailed,
			"Failed to encode profile request")
	}

	url := p.config.BaseURL + "/profile"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeProfiling, errors.CodeProfilingFailed,
			"Failed to build profile request")
	}
	req.Header.Set("Content-Type", constants.MimeTypeJSON)
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeProfiling, errors.CodeProfilerUnavailable,
			"Profiling service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.NewProfilingError(errors.CodeProfilingFailed,
			fmt.Sprintf("profiling service returned %d: %s", resp.StatusCode, string(body)))
	}

	var profile models.DatasetProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeProfiling, errors.CodeProfilerBadResponse,
			"Failed to decode profile response")
	}

	if profile.GeneratedAt.IsZero() {
		profile.GeneratedAt = time.Now().UTC()
	}
	if profile.DatasetID == "" {
		profile.DatasetID = datasetID
	}

	p.logger.WithFields(logrus.Fields{
		"dataset_id": datasetID,
		"columns":    len(profile.Columns),
		"duration":   time.Since(start),
	}).Debug("Dataset profiled")

	return &profile, nil
}

var _ Profiler = (*HTTPProfiler)(nil)
