package insight

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/models"
)

// Generator produces free-text insight for a prompt. Implementations wrap an
// external model endpoint and are expected to fail; the Requester absorbs
// every failure.
type Generator interface {
	GenerateInsight(ctx context.Context, prompt string) (string, error)
}

// Request carries the quantitative findings the insight is generated from.
type Request struct {
	DatasetName string
	Columns     []string
	Metrics     *models.DatasetMetrics
	Issues      []models.Issue
	Score       int
}

// Requester builds the model prompt, parses the structured response and
// degrades to a deterministic fallback when the external generator fails or
// returns unusable output. It never returns an error: absence of real model
// insight is a valid state, not a pipeline failure.
type Requester struct {
	generator Generator
	timeout   time.Duration
	logger    *logrus.Logger
}

// NewRequester creates a new insight requester.
func NewRequester(generator Generator, timeout time.Duration, logger *logrus.Logger) *Requester {
	if timeout <= 0 {
		timeout = constants.DefaultInsightTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Requester{
		generator: generator,
		timeout:   timeout,
		logger:    logger,
	}
}

// RequestInsight returns an AI insight for the given findings. The external
// call is bounded by the configured timeout so it can never block the
// pipeline indefinitely.
func (r *Requester) RequestInsight(ctx context.Context, req *Request) *models.AIInsight {
	if r.generator == nil {
		return Fallback(req)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	prompt := BuildPrompt(req)

	text, err := r.generator.GenerateInsight(ctx, prompt)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"dataset": req.DatasetName,
			"error":   err,
		}).Warn("Insight generation failed, using fallback")
		return Fallback(req)
	}

	assessment, recommendations := ParseResponse(text)
	if strings.TrimSpace(assessment) == "" {
		r.logger.WithField("dataset", req.DatasetName).Warn("Insight response unusable, using fallback")
		return Fallback(req)
	}

	if len(recommendations) == 0 {
		recommendations = fallbackRecommendations(req.Issues)
	}

	return &models.AIInsight{
		Assessment:      assessment,
		Recommendations: recommendations,
		GeneratedBy:     models.InsightSourceModel,
	}
}
