package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

// Extract computes the structural metrics snapshot for one analysis run from
// the decoded dataset and the external profiler's column statistics.
//
// Row and column totals come from the dataset shape. The missing percentage
// is derived from the profiler's per-column null counts; columns the profiler
// did not report default to type "text" with zero nulls. Duplicate rows are
// counted by exact full-row equality, keeping the first occurrence and
// counting only repeats.
func Extract(dataset *models.Dataset, profile *models.DatasetProfile) (*models.DatasetMetrics, error) {
	if dataset == nil {
		return nil, errors.NewDatasetError(errors.CodeInvalidDataset, "dataset cannot be nil")
	}
	if profile == nil {
		return nil, errors.NewDatasetError(errors.CodeInvalidDataset, "dataset profile cannot be nil")
	}
	if len(dataset.Columns) == 0 {
		return nil, errors.NewDatasetError(errors.CodeEmptyDataset, "dataset has no columns")
	}

	totalRows := len(dataset.Rows)
	totalColumns := len(dataset.Columns)

	metrics := &models.DatasetMetrics{
		TotalRows:       totalRows,
		TotalColumns:    totalColumns,
		MissingByColumn: make(map[string]int, totalColumns),
		ColumnTypes:     make(map[string]models.ColumnType, totalColumns),
		DistinctCounts:  make(map[string]int),
		TopValueRatios:  make(map[string]float64),
	}

	totalMissing := 0
	for _, col := range dataset.Columns {
		if cp := profile.Column(col); cp != nil {
			metrics.MissingByColumn[col] = cp.NullCount
			metrics.ColumnTypes[col] = cp.InferredType
			totalMissing += cp.NullCount
		} else {
			metrics.MissingByColumn[col] = 0
			metrics.ColumnTypes[col] = models.ColumnTypeText
		}
	}

	// 0 when the cell grid is empty, never a division by zero.
	totalCells := totalRows * totalColumns
	if totalCells > 0 {
		metrics.MissingPercentage = round2(float64(totalMissing) / float64(totalCells) * 100)
	}

	duplicates, err := countDuplicateRows(dataset)
	if err != nil {
		return nil, err
	}
	metrics.DuplicateRows = duplicates

	if err := summarizeCategoricalColumns(dataset, metrics); err != nil {
		return nil, err
	}

	return metrics, nil
}

// countDuplicateRows counts rows that exactly repeat an earlier row across
// all columns.
func countDuplicateRows(dataset *models.Dataset) (int, error) {
	seen := make(map[string]struct{}, len(dataset.Rows))
	duplicates := 0

	for i, row := range dataset.Rows {
		if len(row) != len(dataset.Columns) {
			return 0, errors.NewDatasetError(errors.CodeRowWidthMismatch,
				fmt.Sprintf("row %d has %d cells, expected %d", i+1, len(row), len(dataset.Columns)))
		}
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			duplicates++
		} else {
			seen[key] = struct{}{}
		}
	}

	return duplicates, nil
}

// summarizeCategoricalColumns fills distinct-value counts and dominant-value
// ratios for categorical columns. Empty cells are treated as missing and
// excluded from both.
func summarizeCategoricalColumns(dataset *models.Dataset, metrics *models.DatasetMetrics) error {
	for idx, col := range dataset.Columns {
		if metrics.ColumnTypes[col] != models.ColumnTypeCategorical {
			continue
		}

		counts := make(map[string]int)
		nonNull := 0
		for _, row := range dataset.Rows {
			value := row[idx]
			if value == "" {
				continue
			}
			counts[value]++
			nonNull++
		}

		metrics.DistinctCounts[col] = len(counts)

		if nonNull > 0 {
			top := 0
			for _, n := range counts {
				if n > top {
					top = n
				}
			}
			metrics.TopValueRatios[col] = float64(top) / float64(nonNull)
		}
	}

	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
