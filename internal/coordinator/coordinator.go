package coordinator

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/internal/dataset"
	"github.com/insightloop/dataqual/internal/engine"
	"github.com/insightloop/dataqual/internal/insight"
	"github.com/insightloop/dataqual/internal/observability/metrics"
	"github.com/insightloop/dataqual/internal/profiler"
	"github.com/insightloop/dataqual/internal/storage/interfaces"
	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

// Config holds coordinator configuration
type Config struct {
	PipelineTimeout time.Duration `json:"pipeline_timeout"`
	MaxUploadBytes  int64         `json:"max_upload_bytes"`

	// StuckThreshold is how long an in_progress record may sit with no
	// local run before Fetch flags it as possibly stuck. A record can
	// only get into that state when a failure write itself failed.
	StuckThreshold time.Duration `json:"stuck_threshold"`
}

// Coordinator drives the analysis lifecycle for datasets. Each run moves a
// persisted record through in_progress to completed or failed; at most one
// run per dataset id is in flight at a time. Runs execute on their own
// goroutine so starting an analysis returns immediately.
type Coordinator struct {
	store    interfaces.MetadataStore
	blobs    interfaces.BlobStore
	profiler profiler.Profiler
	insight  *insight.Requester
	decoder  *dataset.Decoder
	metrics  *metrics.PrometheusMetrics
	logger   *logrus.Logger
	config   *Config

	// In-process guard in front of the store's conditional transition.
	// The store write is the real single-flight; this only keeps one
	// process from burning a conditional write it is bound to lose.
	inflight sync.Map
	wg       sync.WaitGroup
}

// NewCoordinator creates an analysis coordinator
func NewCoordinator(
	store interfaces.MetadataStore,
	blobs interfaces.BlobStore,
	prof profiler.Profiler,
	requester *insight.Requester,
	pm *metrics.PrometheusMetrics,
	config *Config,
	logger *logrus.Logger,
) *Coordinator {
	if config == nil {
		config = &Config{}
	}
	if config.PipelineTimeout <= 0 {
		config.PipelineTimeout = constants.DefaultProfilerTimeout + constants.DefaultInsightTimeout
	}
	if config.StuckThreshold <= 0 {
		config.StuckThreshold = 2 * config.PipelineTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Coordinator{
		store:    store,
		blobs:    blobs,
		profiler: prof,
		insight:  requester,
		decoder:  dataset.NewDecoder(config.MaxUploadBytes, logger),
		metrics:  pm,
		logger:   logger,
		config:   config,
	}
}

// Start begins an analysis run for the dataset. It returns once the run has
// been claimed and scheduled; the pipeline itself executes asynchronously.
// Returns errors.ErrDatasetNotFound for unknown ids and
// errors.ErrAnalysisInProgress when a run is already in flight.
func (c *Coordinator) Start(ctx context.Context, datasetID string) error {
	meta, err := c.store.GetDataset(ctx, datasetID)
	if err != nil {
		return err
	}

	if _, loaded := c.inflight.LoadOrStore(datasetID, struct{}{}); loaded {
		c.recordBusy()
		return errors.ErrAnalysisInProgress
	}

	// The conditional transition on the persisted record is what actually
	// serializes runs across processes.
	if err := c.store.BeginAnalysis(ctx, datasetID); err != nil {
		c.inflight.Delete(datasetID)
		if stderrors.Is(err, errors.ErrAnalysisInProgress) {
			c.recordBusy()
		}
		return err
	}

	if c.metrics != nil {
		c.metrics.RecordAnalysisStarted()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inflight.Delete(datasetID)
		c.run(meta)
	}()

	return nil
}

// Fetch returns the current analysis state for the dataset. A dataset that
// exists but has never been analyzed yields a not_started record rather
// than an error; an unknown dataset yields errors.ErrDatasetNotFound.
func (c *Coordinator) Fetch(ctx context.Context, datasetID string) (*models.AnalysisRecord, error) {
	if _, err := c.store.GetDataset(ctx, datasetID); err != nil {
		return nil, err
	}

	record, err := c.store.GetAnalysis(ctx, datasetID)
	if err != nil {
		if stderrors.Is(err, errors.ErrAnalysisNotFound) {
			return &models.AnalysisRecord{
				DatasetID: datasetID,
				Status:    models.AnalysisNotStarted,
			}, nil
		}
		return nil, err
	}

	c.annotateIfStuck(datasetID, record)
	return record, nil
}

// annotateIfStuck flags an in_progress record that has outlived any local
// run. That state means a past run failed and its failure write failed too,
// so the caller should know the status can no longer be trusted.
func (c *Coordinator) annotateIfStuck(datasetID string, record *models.AnalysisRecord) {
	if record.Status != models.AnalysisInProgress {
		return
	}
	if time.Since(record.CreatedAt) < c.config.StuckThreshold {
		return
	}
	if _, running := c.inflight.Load(datasetID); running {
		return
	}

	c.logger.WithFields(logrus.Fields{
		"dataset_id": datasetID,
		"started_at": record.CreatedAt,
	}).Warn("Analysis record appears stuck in_progress")

	record.Error = &models.AnalysisError{
		Stage:   models.StagePersistence,
		Message: errors.ErrRecordStuck.Error(),
	}
}

// Wait blocks until all in-flight runs finish. Used by graceful shutdown.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// run executes the full pipeline for one claimed dataset
func (c *Coordinator) run(meta *models.DatasetMeta) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.PipelineTimeout)
	defer cancel()

	start := time.Now()
	log := c.logger.WithFields(logrus.Fields{
		"dataset_id": meta.ID,
		"filename":   meta.Filename,
	})
	log.Info("Analysis run started")

	ds, err := c.loadDataset(ctx, meta)
	if err != nil {
		c.markFailed(ctx, meta.ID, models.StageProfiling, err, start)
		return
	}

	profile, err := c.profiler.Profile(ctx, ds)
	if err != nil {
		c.markFailed(ctx, meta.ID, models.StageProfiling, err, start)
		return
	}

	dm, err := engine.Extract(ds, profile)
	if err != nil {
		c.markFailed(ctx, meta.ID, models.StageExtraction, err, start)
		return
	}

	issues := engine.DetectIssues(dm)
	score := engine.CalculateScore(dm, issues)

	aiInsight := c.insight.RequestInsight(ctx, &insight.Request{
		DatasetName: meta.Filename,
		Columns:     ds.Columns,
		Metrics:     dm,
		Issues:      issues,
		Score:       score,
	})

	record := &models.AnalysisRecord{
		DatasetID:    meta.ID,
		Status:       models.AnalysisCompleted,
		QualityScore: score,
		Metrics:      dm,
		Issues:       issues,
		Insight:      aiInsight,
		ReportKey:    profile.ReportKey,
		CreatedAt:    time.Now().UTC(),
	}

	if err := c.store.PutAnalysis(ctx, record); err != nil {
		c.markFailed(ctx, meta.ID, models.StagePersistence, err, start)
		return
	}

	c.recordCompleted(score, issues, aiInsight, start)
	log.WithFields(logrus.Fields{
		"score":    score,
		"issues":   len(issues),
		"insight":  aiInsight.GeneratedBy,
		"duration": time.Since(start),
	}).Info("Analysis run completed")
}

// loadDataset pulls the stored blob and decodes it
func (c *Coordinator) loadDataset(ctx context.Context, meta *models.DatasetMeta) (*models.Dataset, error) {
	body, err := c.blobs.Get(ctx, meta.BlobKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	ds, err := c.decoder.Decode(body)
	if err != nil {
		return nil, err
	}
	ds.Meta = meta
	return ds, nil
}

// markFailed writes the terminal failed record. The write is best effort:
// if even this write fails the record stays in_progress in the store, so
// log loudly and rely on the fetch path's staleness diagnostics.
func (c *Coordinator) markFailed(ctx context.Context, datasetID string, stage models.PipelineStage, cause error, start time.Time) {
	log := c.logger.WithFields(logrus.Fields{
		"dataset_id": datasetID,
		"stage":      stage,
	})
	log.WithError(cause).Error("Analysis run failed")

	record := &models.AnalysisRecord{
		DatasetID: datasetID,
		Status:    models.AnalysisFailed,
		CreatedAt: time.Now().UTC(),
		Error: &models.AnalysisError{
			Stage:   stage,
			Message: cause.Error(),
		},
	}

	// The pipeline context may already be cancelled or expired; the
	// failure write gets its own deadline.
	writeCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultStorageTimeout)
	defer cancel()

	if err := c.store.PutAnalysis(writeCtx, record); err != nil {
		log.WithError(err).Error("Failed to persist failed state; record may be stuck in_progress")
	}

	if c.metrics != nil {
		c.metrics.RecordAnalysisFailed(string(stage), time.Since(start))
	}
}

func (c *Coordinator) recordBusy() {
	if c.metrics != nil {
		c.metrics.RecordAnalysisBusy()
	}
}

func (c *Coordinator) recordCompleted(score int, issues []models.Issue, aiInsight *models.AIInsight, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordAnalysisCompleted(score, time.Since(start))
	for _, issue := range issues {
		c.metrics.RecordIssueDetected(string(issue.Type), string(issue.Severity))
	}
	if aiInsight != nil && aiInsight.GeneratedBy == models.InsightSourceFallback {
		c.metrics.RecordInsightFallback()
	}
}
