package models

import "time"

// ColumnType classifies a dataset column as inferred by the profiler.
type ColumnType string

const (
	ColumnTypeNumeric     ColumnType = "numeric"
	ColumnTypeCategorical ColumnType = "categorical"
	ColumnTypeDatetime    ColumnType = "datetime"
	ColumnTypeText        ColumnType = "text"
	ColumnTypeBoolean     ColumnType = "boolean"
)

// DatasetMeta is the persisted reference to an uploaded tabular file.
// It is immutable once the upload completes.
type DatasetMeta struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	BlobKey     string    `json:"blob_key"`
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
	Columns     []string  `json:"columns"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Dataset holds the decoded tabular content of an uploaded file. Rows are
// aligned with Columns; an empty cell represents a missing value.
type Dataset struct {
	Meta    *DatasetMeta
	Columns []string
	Rows    [][]string
}

// ColumnProfile is the per-column output of the external profiler.
type ColumnProfile struct {
	Name         string     `json:"name"`
	InferredType ColumnType `json:"inferred_type"`
	NullCount    int        `json:"null_count"`
}

// DatasetProfile is the statistical profile computed by the external
// profiling collaborator, together with the location of its HTML report.
type DatasetProfile struct {
	DatasetID   string          `json:"dataset_id"`
	RowCount    int             `json:"row_count"`
	ColumnCount int             `json:"column_count"`
	Columns     []ColumnProfile `json:"columns"`
	ReportKey   string          `json:"report_key"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Column returns the profile for the named column, or nil if the profiler
// did not report it.
func (p *DatasetProfile) Column(name string) *ColumnProfile {
	for i := range p.Columns {
		if p.Columns[i].Name == name {
			return &p.Columns[i]
		}
	}
	return nil
}
