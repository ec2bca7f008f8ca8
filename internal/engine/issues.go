package engine

import (
	"fmt"
	"sort"

	"github.com/insightloop/dataqual/pkg/models"
)

// Detection thresholds are fixed constants so that identical metrics always
// produce identical issues.
const (
	missingWarnPct     = 5.0
	missingCritPct     = 20.0
	duplicateCritRatio = 0.1
	smallDatasetRows   = 100
	tinyDatasetRows    = 20
	imbalanceTopRatio  = 0.9
	cardinalityRatio   = 0.5
)

// DetectIssues evaluates the fixed rule set against a metrics snapshot and
// returns the detected issues sorted most severe first. Ties keep rule
// evaluation order; per-column rules fire once per offending column. The
// function is pure and total: no metrics value makes it fail.
func DetectIssues(metrics *models.DatasetMetrics) []models.Issue {
	issues := make([]models.Issue, 0, 4)

	if issue := checkMissingData(metrics); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := checkDuplicates(metrics); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := checkSmallDataset(metrics); issue != nil {
		issues = append(issues, *issue)
	}
	issues = append(issues, checkClassImbalance(metrics)...)
	issues = append(issues, checkHighCardinality(metrics)...)

	// Severity descending, rule order preserved for equal severities.
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.Rank() > issues[j].Severity.Rank()
	})

	return issues
}

func checkMissingData(m *models.DatasetMetrics) *models.Issue {
	if m.MissingPercentage <= missingWarnPct {
		return nil
	}

	severity := models.SeverityWarning
	if m.MissingPercentage > missingCritPct {
		severity = models.SeverityCritical
	}

	affected := 0
	for _, count := range m.MissingByColumn {
		if count > 0 {
			affected++
		}
	}

	return &models.Issue{
		Type:     models.IssueMissingData,
		Severity: severity,
		Message: fmt.Sprintf("%.2f%% of values are missing across %d of %d columns",
			m.MissingPercentage, affected, m.TotalColumns),
		Suggestion: "Consider imputation strategies or removing columns with high missing rates",
	}
}

func checkDuplicates(m *models.DatasetMetrics) *models.Issue {
	if m.DuplicateRows <= 0 || m.TotalRows <= 0 {
		return nil
	}

	ratio := float64(m.DuplicateRows) / float64(m.TotalRows)
	severity := models.SeverityWarning
	if ratio > duplicateCritRatio {
		severity = models.SeverityCritical
	}

	return &models.Issue{
		Type:     models.IssueDuplicates,
		Severity: severity,
		Message: fmt.Sprintf("%d duplicate rows found (%.1f%% of %d rows)",
			m.DuplicateRows, ratio*100, m.TotalRows),
		Suggestion: "Remove duplicate rows to avoid bias in model training",
	}
}

// checkSmallDataset emits at most one issue: the critical tier supersedes
// the warning tier when both conditions hold.
func checkSmallDataset(m *models.DatasetMetrics) *models.Issue {
	switch {
	case m.TotalRows < tinyDatasetRows:
		return &models.Issue{
			Type:     models.IssueSmallDataset,
			Severity: models.SeverityCritical,
			Message: fmt.Sprintf("Only %d rows available; fewer than %d rows rarely supports reliable modeling",
				m.TotalRows, tinyDatasetRows),
			Suggestion: "Collect more data before training or evaluating models",
		}
	case m.TotalRows < smallDatasetRows:
		return &models.Issue{
			Type:     models.IssueSmallDataset,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("Only %d rows available; datasets under %d rows limit model performance",
				m.TotalRows, smallDatasetRows),
			Suggestion: "Collect more data for better model performance",
		}
	default:
		return nil
	}
}

func checkClassImbalance(m *models.DatasetMetrics) []models.Issue {
	var issues []models.Issue

	for _, col := range sortedCategoricalColumns(m) {
		ratio, ok := m.TopValueRatios[col]
		if !ok || ratio <= imbalanceTopRatio {
			continue
		}
		issues = append(issues, models.Issue{
			Type:     models.IssueClassImbalance,
			Severity: models.SeverityWarning,
			Column:   col,
			Message: fmt.Sprintf("Column %q: a single value covers %.1f%% of non-null entries",
				col, ratio*100),
			Suggestion: "Rebalance classes or use stratified sampling before training",
		})
	}

	return issues
}

func checkHighCardinality(m *models.DatasetMetrics) []models.Issue {
	var issues []models.Issue

	for _, col := range sortedCategoricalColumns(m) {
		distinct, ok := m.DistinctCounts[col]
		if !ok || m.TotalRows == 0 {
			continue
		}
		if float64(distinct) <= cardinalityRatio*float64(m.TotalRows) {
			continue
		}
		issues = append(issues, models.Issue{
			Type:     models.IssueHighCardinality,
			Severity: models.SeverityInfo,
			Column:   col,
			Message: fmt.Sprintf("Column %q has %d distinct values across %d rows",
				col, distinct, m.TotalRows),
			Suggestion: "Consider hashing, grouping or embedding high-cardinality features",
		})
	}

	return issues
}

// sortedCategoricalColumns returns categorical column names in a stable
// order so per-column issues are emitted deterministically.
func sortedCategoricalColumns(m *models.DatasetMetrics) []string {
	cols := make([]string, 0, len(m.ColumnTypes))
	for col, colType := range m.ColumnTypes {
		if colType == models.ColumnTypeCategorical {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return cols
}
