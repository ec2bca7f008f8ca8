package insight

import (
	"fmt"

	"github.com/insightloop/dataqual/internal/engine"
	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/models"
)

// Fallback synthesizes a deterministic insight from the detected issues.
// It is used whenever the external generator is unavailable or returns
// unusable output, so the overall analysis still completes.
func Fallback(req *Request) *models.AIInsight {
	var assessment string
	if len(req.Issues) == 0 {
		assessment = fmt.Sprintf("Dataset quality is %s with a score of %d/100. No quality issues were detected.",
			engine.ScoreTier(req.Score), req.Score)
	} else {
		assessment = fmt.Sprintf("Dataset quality is %s with a score of %d/100. Review the %d detected issues below.",
			engine.ScoreTier(req.Score), req.Score, len(req.Issues))
	}

	return &models.AIInsight{
		Assessment:      assessment,
		Recommendations: fallbackRecommendations(req.Issues),
		GeneratedBy:     models.InsightSourceFallback,
	}
}

// fallbackRecommendations derives recommendations directly from each issue's
// suggestion, deduplicated in issue order.
func fallbackRecommendations(issues []models.Issue) []string {
	seen := make(map[string]struct{}, len(issues))
	recommendations := make([]string, 0, len(issues))

	for _, issue := range issues {
		if _, ok := seen[issue.Suggestion]; ok {
			continue
		}
		seen[issue.Suggestion] = struct{}{}
		recommendations = append(recommendations, issue.Suggestion)
		if len(recommendations) == constants.MaxRecommendations {
			return recommendations
		}
	}

	if len(recommendations) == 0 {
		recommendations = []string{
			"Review the full profiling report for detailed column statistics",
			"Re-run the analysis after the next data refresh to track quality over time",
		}
	}

	return recommendations
}
