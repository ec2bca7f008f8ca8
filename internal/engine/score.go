package engine

import (
	"math"

	"github.com/insightloop/dataqual/pkg/models"
)

// Score deductions. Issues and raw-metric penalties deliberately
// double-count the same degradation so the score reacts before thresholds
// are crossed.
const (
	criticalDeduction = 20.0
	warningDeduction  = 10.0
	infoDeduction     = 2.0

	missingPenaltyPerPct   = 0.5
	missingPenaltyCap      = 30.0
	duplicatePenaltyPerPct = 0.3
	duplicatePenaltyCap    = 20.0
)

// CalculateScore combines a metrics snapshot and its detected issues into a
// single 0-100 quality score. The function is pure: identical input always
// yields the identical score.
func CalculateScore(metrics *models.DatasetMetrics, issues []models.Issue) int {
	deductions := 0.0

	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityCritical:
			deductions += criticalDeduction
		case models.SeverityWarning:
			deductions += warningDeduction
		case models.SeverityInfo:
			deductions += infoDeduction
		}
	}

	deductions += math.Min(metrics.MissingPercentage*missingPenaltyPerPct, missingPenaltyCap)

	if metrics.TotalRows > 0 && metrics.DuplicateRows > 0 {
		duplicatePct := float64(metrics.DuplicateRows) / float64(metrics.TotalRows) * 100
		deductions += math.Min(duplicatePct*duplicatePenaltyPerPct, duplicatePenaltyCap)
	}

	score := int(math.Round(100 - deductions))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ScoreTier maps a quality score onto the qualitative band used in reports
// and fallback insight text.
func ScoreTier(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 75:
		return "good"
	case score >= 50:
		return "fair"
	default:
		return "poor"
	}
}
