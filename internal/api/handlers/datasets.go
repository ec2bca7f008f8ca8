package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/internal/api/middleware"
	"github.com/insightloop/dataqual/internal/api/responses"
	"github.com/insightloop/dataqual/internal/dataset"
	"github.com/insightloop/dataqual/internal/observability/metrics"
	"github.com/insightloop/dataqual/internal/storage/implementations/s3"
	"github.com/insightloop/dataqual/internal/storage/interfaces"
	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

// DatasetsHandler serves dataset upload, listing and deletion
type DatasetsHandler struct {
	store    interfaces.MetadataStore
	blobs    interfaces.BlobStore
	decoder  *dataset.Decoder
	metrics  *metrics.PrometheusMetrics
	logger   *logrus.Logger
	maxBytes int64
}

// NewDatasetsHandler creates a datasets handler
func NewDatasetsHandler(
	store interfaces.MetadataStore,
	blobs interfaces.BlobStore,
	pm *metrics.PrometheusMetrics,
	maxBytes int64,
	logger *logrus.Logger,
) *DatasetsHandler {
	if maxBytes <= 0 {
		maxBytes = constants.DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &DatasetsHandler{
		store:    store,
		blobs:    blobs,
		decoder:  dataset.NewDecoder(maxBytes, logger),
		metrics:  pm,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// Upload handles POST /api/v1/datasets. Expects a multipart form with the
// CSV content in the "file" field. The upload is decoded up front so
// malformed files are rejected before anything is stored.
func (h *DatasetsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		responses.WriteError(w, errors.NewAuthError(errors.CodeUnauthorized, "No caller identity"))
		return
	}

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		h.recordUpload("rejected", 0)
		responses.WriteError(w, errors.NewValidationError(errors.CodeMalformedInput, "Invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.recordUpload("rejected", 0)
		responses.WriteError(w, errors.NewValidationError(errors.CodeMalformedInput, "Missing 'file' form field"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := dataset.ValidateUpload(header.Filename, contentType); err != nil {
		h.recordUpload("rejected", header.Size)
		responses.WriteError(w, err)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		h.recordUpload("failed", header.Size)
		responses.WriteError(w, errors.NewInternalError("Failed to read upload"))
		return
	}
	if int64(len(raw)) > h.maxBytes {
		h.recordUpload("rejected", int64(len(raw)))
		responses.WriteError(w, errors.NewValidationError(errors.CodeInvalidDataset, "Upload exceeds the size limit"))
		return
	}

	ds, err := h.decoder.Decode(bytes.NewReader(raw))
	if err != nil {
		h.recordUpload("rejected", int64(len(raw)))
		responses.WriteError(w, err)
		return
	}

	meta := dataset.NewMeta(user.ID, header.Filename, contentType, int64(len(raw)), ds)
	meta.BlobKey = s3.UploadKey(user.ID, header.Filename)

	if err := h.blobs.Put(r.Context(), meta.BlobKey, bytes.NewReader(raw), constants.MimeTypeCSV); err != nil {
		h.recordUpload("failed", meta.SizeBytes)
		responses.WriteError(w, err)
		return
	}

	if err := h.store.PutDataset(r.Context(), meta); err != nil {
		// Do not leave an orphaned blob behind
		if delErr := h.blobs.Delete(r.Context(), meta.BlobKey); delErr != nil {
			h.logger.WithError(delErr).WithField("key", meta.BlobKey).Warn("Failed to clean up blob after metadata write failure")
		}
		h.recordUpload("failed", meta.SizeBytes)
		responses.WriteError(w, err)
		return
	}

	h.recordUpload("accepted", meta.SizeBytes)
	h.logger.WithFields(logrus.Fields{
		"dataset_id": meta.ID,
		"owner_id":   meta.OwnerID,
		"filename":   meta.Filename,
		"rows":       meta.RowCount,
		"columns":    meta.ColumnCount,
	}).Info("Dataset uploaded")

	responses.WriteJSON(w, http.StatusCreated, meta)
}

// List handles GET /api/v1/datasets
func (h *DatasetsHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		responses.WriteError(w, errors.NewAuthError(errors.CodeUnauthorized, "No caller identity"))
		return
	}

	metas, err := h.store.ListDatasets(r.Context(), user.ID)
	if err != nil {
		responses.WriteError(w, err)
		return
	}
	if metas == nil {
		metas = []*models.DatasetMeta{}
	}

	responses.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": metas,
		"count":    len(metas),
	})
}

// Get handles GET /api/v1/datasets/{id}
func (h *DatasetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.ownedDataset(w, r)
	if !ok {
		return
	}
	responses.WriteJSON(w, http.StatusOK, meta)
}

// Delete handles DELETE /api/v1/datasets/{id}. Removes the blob, the
// metadata and any analysis record.
func (h *DatasetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.ownedDataset(w, r)
	if !ok {
		return
	}

	if err := h.blobs.Delete(r.Context(), meta.BlobKey); err != nil {
		h.logger.WithError(err).WithField("key", meta.BlobKey).Warn("Failed to delete blob; continuing with metadata delete")
	}
	if err := h.store.DeleteDataset(r.Context(), meta.ID); err != nil {
		responses.WriteError(w, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"dataset_id": meta.ID,
		"owner_id":   meta.OwnerID,
	}).Info("Dataset deleted")

	w.WriteHeader(http.StatusNoContent)
}

// ownedDataset loads the dataset from the route and enforces ownership
func (h *DatasetsHandler) ownedDataset(w http.ResponseWriter, r *http.Request) (*models.DatasetMeta, bool) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		responses.WriteError(w, errors.NewAuthError(errors.CodeUnauthorized, "No caller identity"))
		return nil, false
	}

	datasetID := mux.Vars(r)["id"]
	meta, err := h.store.GetDataset(r.Context(), datasetID)
	if err != nil {
		responses.WriteError(w, err)
		return nil, false
	}

	if meta.OwnerID != user.ID {
		responses.WriteError(w, errors.NewAuthError(errors.CodeOwnerMismatch, "Dataset belongs to another user"))
		return nil, false
	}
	return meta, true
}

func (h *DatasetsHandler) recordUpload(status string, size int64) {
	if h.metrics != nil {
		h.metrics.RecordUpload(status, size)
	}
}
