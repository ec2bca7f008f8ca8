package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/internal/api/middleware"
	"github.com/insightloop/dataqual/internal/api/responses"
	"github.com/insightloop/dataqual/internal/coordinator"
	"github.com/insightloop/dataqual/internal/storage/interfaces"
	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

// AnalysisHandler serves analysis trigger and fetch endpoints
type AnalysisHandler struct {
	coord     *coordinator.Coordinator
	store     interfaces.MetadataStore
	blobs     interfaces.BlobStore
	reportTTL time.Duration
	logger    *logrus.Logger
}

// analysisResponse is the wire shape of an analysis state. Completed runs
// additionally carry a presigned report URL when the profiler stored one.
type analysisResponse struct {
	DatasetID    string                 `json:"dataset_id"`
	Status       models.AnalysisStatus  `json:"status"`
	QualityScore *int                   `json:"quality_score,omitempty"`
	Metrics      *models.DatasetMetrics `json:"metrics,omitempty"`
	Issues       []models.Issue         `json:"issues,omitempty"`
	Insight      *models.AIInsight      `json:"ai_insight,omitempty"`
	ReportURL    string                 `json:"report_url,omitempty"`
	CreatedAt    *time.Time             `json:"created_at,omitempty"`
	Error        *models.AnalysisError  `json:"error,omitempty"`
}

// NewAnalysisHandler creates an analysis handler
func NewAnalysisHandler(
	coord *coordinator.Coordinator,
	store interfaces.MetadataStore,
	blobs interfaces.BlobStore,
	reportTTL time.Duration,
	logger *logrus.Logger,
) *AnalysisHandler {
	if reportTTL <= 0 {
		reportTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &AnalysisHandler{
		coord:     coord,
		store:     store,
		blobs:     blobs,
		reportTTL: reportTTL,
		logger:    logger,
	}
}

// Start handles POST /api/v1/datasets/{id}/analysis. Responds 202 when the
// run is claimed, 409 when one is already in flight.
func (h *AnalysisHandler) Start(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := h.authorizedDatasetID(w, r)
	if !ok {
		return
	}

	if err := h.coord.Start(r.Context(), datasetID); err != nil {
		responses.WriteError(w, err)
		return
	}

	responses.WriteJSON(w, http.StatusAccepted, &analysisResponse{
		DatasetID: datasetID,
		Status:    models.AnalysisInProgress,
	})
}

// Get handles GET /api/v1/datasets/{id}/analysis
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := h.authorizedDatasetID(w, r)
	if !ok {
		return
	}

	record, err := h.coord.Fetch(r.Context(), datasetID)
	if err != nil {
		responses.WriteError(w, err)
		return
	}

	responses.WriteJSON(w, http.StatusOK, h.toResponse(record))
}

func (h *AnalysisHandler) toResponse(record *models.AnalysisRecord) *analysisResponse {
	resp := &analysisResponse{
		DatasetID: record.DatasetID,
		Status:    record.Status,
		Error:     record.Error,
	}

	if record.Status == models.AnalysisNotStarted {
		return resp
	}

	createdAt := record.CreatedAt
	resp.CreatedAt = &createdAt

	if record.Status != models.AnalysisCompleted {
		return resp
	}

	score := record.QualityScore
	resp.QualityScore = &score
	resp.Metrics = record.Metrics
	resp.Issues = record.Issues
	resp.Insight = record.Insight

	if record.ReportKey != "" {
		url, err := h.blobs.PresignedURL(record.ReportKey, h.reportTTL)
		if err != nil {
			h.logger.WithError(err).WithField("key", record.ReportKey).Warn("Failed to presign report URL")
		} else {
			resp.ReportURL = url
		}
	}
	return resp
}

// authorizedDatasetID resolves the route id and enforces ownership
func (h *AnalysisHandler) authorizedDatasetID(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		responses.WriteError(w, errors.NewAuthError(errors.CodeUnauthorized, "No caller identity"))
		return "", false
	}

	datasetID := mux.Vars(r)["id"]
	meta, err := h.store.GetDataset(r.Context(), datasetID)
	if err != nil {
		responses.WriteError(w, err)
		return "", false
	}
	if meta.OwnerID != user.ID {
		responses.WriteError(w, errors.NewAuthError(errors.CodeOwnerMismatch, "Dataset belongs to another user"))
		return "", false
	}
	return datasetID, true
}
