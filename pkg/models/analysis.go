package models

import "time"

// Severity classifies how serious a detected quality issue is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so issues can be sorted most severe first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// IssueType tags the kind of quality problem an issue describes.
type IssueType string

const (
	IssueMissingData     IssueType = "missing_data"
	IssueDuplicates      IssueType = "duplicates"
	IssueSmallDataset    IssueType = "small_dataset"
	IssueClassImbalance  IssueType = "class_imbalance"
	IssueHighCardinality IssueType = "high_cardinality"
)

// Issue is one detected data quality problem with an actionable suggestion.
// Column is set only for issues scoped to a single column.
type Issue struct {
	Type       IssueType `json:"type"`
	Severity   Severity  `json:"severity"`
	Column     string    `json:"column,omitempty"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`
}

// DatasetMetrics is the structural metrics snapshot computed for one
// analysis run. Values are never mutated after extraction.
type DatasetMetrics struct {
	TotalRows         int                   `json:"total_rows"`
	TotalColumns      int                   `json:"total_columns"`
	MissingPercentage float64               `json:"missing_percentage"`
	DuplicateRows     int                   `json:"duplicate_rows"`
	MissingByColumn   map[string]int        `json:"missing_by_column"`
	ColumnTypes       map[string]ColumnType `json:"column_types"`
	DistinctCounts    map[string]int        `json:"distinct_counts"`
	TopValueRatios    map[string]float64    `json:"top_value_ratios"`
}

// AIInsight is the optional natural-language assessment of a quality report.
// GeneratedBy distinguishes a real model response from the deterministic
// fallback.
type AIInsight struct {
	Assessment      string   `json:"assessment"`
	Recommendations []string `json:"recommendations"`
	GeneratedBy     string   `json:"generated_by"`
}

const (
	InsightSourceModel    = "model"
	InsightSourceFallback = "fallback"
)

// AnalysisStatus is the lifecycle state of an analysis run.
type AnalysisStatus string

const (
	AnalysisNotStarted AnalysisStatus = "not_started"
	AnalysisInProgress AnalysisStatus = "in_progress"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// PipelineStage identifies where in the analysis pipeline a failure occurred.
type PipelineStage string

const (
	StageProfiling   PipelineStage = "profiling"
	StageExtraction  PipelineStage = "extraction"
	StageDetection   PipelineStage = "detection"
	StageScoring     PipelineStage = "scoring"
	StageInsight     PipelineStage = "insight"
	StagePersistence PipelineStage = "persistence"
)

// AnalysisError carries the failing stage and a user-presentable message for
// a failed run.
type AnalysisError struct {
	Stage   PipelineStage `json:"stage"`
	Message string        `json:"message"`
}

// AnalysisRecord is the persisted result of one analysis run. There is
// exactly one record per dataset id; a re-run overwrites the previous record.
type AnalysisRecord struct {
	DatasetID    string          `json:"dataset_id"`
	Status       AnalysisStatus  `json:"status"`
	QualityScore int             `json:"quality_score"`
	Metrics      *DatasetMetrics `json:"metrics,omitempty"`
	Issues       []Issue         `json:"issues,omitempty"`
	Insight      *AIInsight      `json:"ai_insight,omitempty"`
	ReportKey    string          `json:"report_key,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Error        *AnalysisError  `json:"error,omitempty"`
}
