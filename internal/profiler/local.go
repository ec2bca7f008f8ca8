package profiler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

// LocalProfiler profiles datasets in-process. It infers column types from
// cell values and counts empty cells as nulls. Used in development and as
// the test double target; production deployments point at the external
// profiling service instead.
type LocalProfiler struct {
	logger *logrus.Logger
}

// NewLocalProfiler creates an in-process profiler
func NewLocalProfiler(logger *logrus.Logger) *LocalProfiler {
	if logger == nil {
		logger = logrus.New()
	}
	return &LocalProfiler{logger: logger}
}

// Profile computes per-column null counts and inferred types
func (p *LocalProfiler) Profile(ctx context.Context, dataset *models.Dataset) (*models.DatasetProfile, error) {
	if dataset == nil || len(dataset.Columns) == 0 {
		return nil, errors.NewProfilingError(errors.CodeProfilingFailed, "dataset has no columns")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeProfiling, errors.CodeProfilingFailed, "profiling cancelled")
	}

	datasetID := ""
	if dataset.Meta != nil {
		datasetID = dataset.Meta.ID
	}

	columns := make([]models.ColumnProfile, len(dataset.Columns))
	for i, name := range dataset.Columns {
		values := make([]string, 0, len(dataset.Rows))
		nulls := 0
		for _, row := range dataset.Rows {
			if i >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				nulls++
				continue
			}
			values = append(values, cell)
		}
		columns[i] = models.ColumnProfile{
			Name:         name,
			InferredType: inferType(values, len(dataset.Rows)),
			NullCount:    nulls,
		}
	}

	return &models.DatasetProfile{
		DatasetID:   datasetID,
		RowCount:    len(dataset.Rows),
		ColumnCount: len(dataset.Columns),
		Columns:     columns,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// inferType classifies a column from its non-empty values. Order matters:
// boolean before numeric so "1"/"0" columns mixed with "true" stay boolean,
// and a distinctness check separates categorical from free text.
func inferType(values []string, totalRows int) models.ColumnType {
	if len(values) == 0 {
		return models.ColumnTypeText
	}

	allBool, allNumeric, allDatetime := true, true, true
	distinct := make(map[string]struct{}, len(values))

	for _, v := range values {
		distinct[v] = struct{}{}
		if allBool && !isBool(v) {
			allBool = false
		}
		if allNumeric && !isNumeric(v) {
			allNumeric = false
		}
		if allDatetime && !isDatetime(v) {
			allDatetime = false
		}
	}

	switch {
	case allBool:
		return models.ColumnTypeBoolean
	case allNumeric:
		return models.ColumnTypeNumeric
	case allDatetime:
		return models.ColumnTypeDatetime
	}

	// Low distinctness relative to row count reads as categorical
	if totalRows > 0 && float64(len(distinct))/float64(totalRows) <= 0.5 {
		return models.ColumnTypeCategorical
	}
	return models.ColumnTypeText
}

func isBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false", "yes", "no":
		return true
	}
	return false
}

func isNumeric(v string) bool {
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

func isDatetime(v string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

var _ Profiler = (*LocalProfiler)(nil)
