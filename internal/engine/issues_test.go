package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightloop/dataqual/pkg/models"
)

func cleanMetrics(rows int) *models.DatasetMetrics {
	return &models.DatasetMetrics{
		TotalRows:       rows,
		TotalColumns:    8,
		MissingByColumn: map[string]int{},
		ColumnTypes:     map[string]models.ColumnType{},
		DistinctCounts:  map[string]int{},
		TopValueRatios:  map[string]float64{},
	}
}

func TestDetectIssuesCleanDataset(t *testing.T) {
	issues := DetectIssues(cleanMetrics(500))
	assert.Empty(t, issues)
}

func TestDetectMissingDataTiers(t *testing.T) {
	tests := []struct {
		name     string
		missing  float64
		expected models.Severity
		none     bool
	}{
		{name: "below threshold", missing: 5.0, none: true},
		{name: "warning tier", missing: 6.2, expected: models.SeverityWarning},
		{name: "upper warning boundary", missing: 20.0, expected: models.SeverityWarning},
		{name: "critical tier", missing: 20.5, expected: models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := cleanMetrics(500)
			m.MissingPercentage = tt.missing
			m.MissingByColumn = map[string]int{"a": 10, "b": 4}

			issues := DetectIssues(m)
			if tt.none {
				assert.Empty(t, issues)
				return
			}
			require.Len(t, issues, 1)
			assert.Equal(t, models.IssueMissingData, issues[0].Type)
			assert.Equal(t, tt.expected, issues[0].Severity)
			assert.Contains(t, issues[0].Message, "columns")
		})
	}
}

func TestDetectDuplicatesSeverity(t *testing.T) {
	tests := []struct {
		name       string
		duplicates int
		expected   models.Severity
	}{
		{name: "few duplicates", duplicates: 5, expected: models.SeverityWarning},
		{name: "exactly ten percent", duplicates: 10, expected: models.SeverityWarning},
		{name: "many duplicates", duplicates: 15, expected: models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := cleanMetrics(100)
			m.DuplicateRows = tt.duplicates

			issues := DetectIssues(m)
			require.Len(t, issues, 1)
			assert.Equal(t, models.IssueDuplicates, issues[0].Type)
			assert.Equal(t, tt.expected, issues[0].Severity)
		})
	}
}

func TestDetectSmallDatasetCriticalSupersedesWarning(t *testing.T) {
	issues := DetectIssues(cleanMetrics(15))

	smallCount := 0
	for _, issue := range issues {
		if issue.Type == models.IssueSmallDataset {
			smallCount++
			assert.Equal(t, models.SeverityCritical, issue.Severity)
			assert.Contains(t, issue.Message, "15")
		}
	}
	assert.Equal(t, 1, smallCount)
}

func TestDetectSmallDatasetWarningTier(t *testing.T) {
	issues := DetectIssues(cleanMetrics(50))
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueSmallDataset, issues[0].Type)
	assert.Equal(t, models.SeverityWarning, issues[0].Severity)
}

func TestDetectClassImbalancePerColumn(t *testing.T) {
	m := cleanMetrics(500)
	m.ColumnTypes = map[string]models.ColumnType{
		"label":  models.ColumnTypeCategorical,
		"region": models.ColumnTypeCategorical,
		"price":  models.ColumnTypeNumeric,
	}
	m.TopValueRatios = map[string]float64{
		"label":  0.95,
		"region": 0.4,
	}

	issues := DetectIssues(m)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueClassImbalance, issues[0].Type)
	assert.Equal(t, "label", issues[0].Column)
	assert.Contains(t, issues[0].Message, "95.0%")
}

func TestDetectHighCardinality(t *testing.T) {
	m := cleanMetrics(100)
	m.ColumnTypes = map[string]models.ColumnType{
		"user_id": models.ColumnTypeCategorical,
		"country": models.ColumnTypeCategorical,
	}
	m.DistinctCounts = map[string]int{
		"user_id": 90,
		"country": 12,
	}

	issues := DetectIssues(m)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueHighCardinality, issues[0].Type)
	assert.Equal(t, models.SeverityInfo, issues[0].Severity)
	assert.Equal(t, "user_id", issues[0].Column)
}

func TestDetectIssuesOrderedBySeverity(t *testing.T) {
	m := cleanMetrics(50) // small_dataset warning
	m.MissingPercentage = 25.0
	m.MissingByColumn = map[string]int{"a": 100}
	m.DuplicateRows = 1 // 2%, warning
	m.ColumnTypes = map[string]models.ColumnType{"id": models.ColumnTypeCategorical}
	m.DistinctCounts = map[string]int{"id": 49}

	issues := DetectIssues(m)
	require.Len(t, issues, 4)

	// Critical first, then warnings in rule order, info last.
	assert.Equal(t, models.IssueMissingData, issues[0].Type)
	assert.Equal(t, models.SeverityCritical, issues[0].Severity)
	assert.Equal(t, models.IssueDuplicates, issues[1].Type)
	assert.Equal(t, models.IssueSmallDataset, issues[2].Type)
	assert.Equal(t, models.IssueHighCardinality, issues[3].Type)
}

func TestDetectIssuesDeterministic(t *testing.T) {
	m := cleanMetrics(40)
	m.ColumnTypes = map[string]models.ColumnType{
		"b": models.ColumnTypeCategorical,
		"a": models.ColumnTypeCategorical,
	}
	m.TopValueRatios = map[string]float64{"a": 0.99, "b": 0.95}

	first := DetectIssues(m)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, DetectIssues(m))
	}
}
