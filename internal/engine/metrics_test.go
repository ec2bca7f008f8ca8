package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightloop/dataqual/pkg/models"
)

func TestExtractBasicShape(t *testing.T) {
	dataset := &models.Dataset{
		Columns: []string{"id", "name"},
		Rows: [][]string{
			{"1", "alice"},
			{"2", "bob"},
			{"3", "carol"},
		},
	}
	profile := &models.DatasetProfile{
		Columns: []models.ColumnProfile{
			{Name: "id", InferredType: models.ColumnTypeNumeric, NullCount: 0},
			{Name: "name", InferredType: models.ColumnTypeText, NullCount: 0},
		},
	}

	metrics, err := Extract(dataset, profile)
	require.NoError(t, err)
	assert.Equal(t, 3, metrics.TotalRows)
	assert.Equal(t, 2, metrics.TotalColumns)
	assert.Equal(t, 0.0, metrics.MissingPercentage)
	assert.Equal(t, 0, metrics.DuplicateRows)
	assert.Equal(t, models.ColumnTypeNumeric, metrics.ColumnTypes["id"])
}

func TestExtractNilInputs(t *testing.T) {
	_, err := Extract(nil, &models.DatasetProfile{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset cannot be nil")

	_, err = Extract(&models.Dataset{Columns: []string{"a"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile cannot be nil")
}

func TestExtractNoColumns(t *testing.T) {
	_, err := Extract(&models.Dataset{}, &models.DatasetProfile{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestExtractEmptyGridHasZeroMissing(t *testing.T) {
	dataset := &models.Dataset{Columns: []string{"a", "b"}}
	profile := &models.DatasetProfile{
		Columns: []models.ColumnProfile{
			{Name: "a", InferredType: models.ColumnTypeText},
			{Name: "b", InferredType: models.ColumnTypeText},
		},
	}

	metrics, err := Extract(dataset, profile)
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.TotalRows)
	assert.Equal(t, 0.0, metrics.MissingPercentage)
}

func TestExtractMissingPercentageRounding(t *testing.T) {
	dataset := &models.Dataset{
		Columns: []string{"a", "b", "c"},
		Rows: [][]string{
			{"1", "", "x"},
			{"2", "v", "y"},
			{"3", "w", "z"},
		},
	}
	profile := &models.DatasetProfile{
		Columns: []models.ColumnProfile{
			{Name: "a", InferredType: models.ColumnTypeNumeric, NullCount: 0},
			{Name: "b", InferredType: models.ColumnTypeText, NullCount: 1},
			{Name: "c", InferredType: models.ColumnTypeText, NullCount: 0},
		},
	}

	metrics, err := Extract(dataset, profile)
	require.NoError(t, err)
	// 1 null cell out of 9, rounded to two decimals.
	assert.Equal(t, 11.11, metrics.MissingPercentage)
}

func TestExtractCountsOnlyRepeatedRows(t *testing.T) {
	dataset := &models.Dataset{
		Columns: []string{"a", "b"},
		Rows: [][]string{
			{"1", "x"},
			{"2", "y"},
			{"1", "x"},
			{"1", "x"},
			{"3", "z"},
		},
	}
	profile := &models.DatasetProfile{
		Columns: []models.ColumnProfile{
			{Name: "a", InferredType: models.ColumnTypeText},
			{Name: "b", InferredType: models.ColumnTypeText},
		},
	}

	metrics, err := Extract(dataset, profile)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.DuplicateRows)
}

func TestExtractUnreportedColumnDefaults(t *testing.T) {
	dataset := &models.Dataset{
		Columns: []string{"a", "b"},
		Rows:    [][]string{{"1", "x"}},
	}
	profile := &models.DatasetProfile{
		Columns: []models.ColumnProfile{
			{Name: "a", InferredType: models.ColumnTypeNumeric, NullCount: 0},
		},
	}

	metrics, err := Extract(dataset, profile)
	require.NoError(t, err)
	assert.Equal(t, models.ColumnTypeText, metrics.ColumnTypes["b"])
	assert.Equal(t, 0, metrics.MissingByColumn["b"])
}

func TestExtractRowWidthMismatch(t *testing.T) {
	dataset := &models.Dataset{
		Columns: []string{"a", "b"},
		Rows:    [][]string{{"1", "x"}, {"short"}},
	}
	profile := &models.DatasetProfile{
		Columns: []models.ColumnProfile{
			{Name: "a", InferredType: models.ColumnTypeText},
			{Name: "b", InferredType: models.ColumnTypeText},
		},
	}

	_, err := Extract(dataset, profile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestExtractCategoricalSummary(t *testing.T) {
	dataset := &models.Dataset{
		Columns: []string{"label"},
		Rows: [][]string{
			{"spam"}, {"spam"}, {"spam"}, {"ham"}, {""},
		},
	}
	profile := &models.DatasetProfile{
		Columns: []models.ColumnProfile{
			{Name: "label", InferredType: models.ColumnTypeCategorical, NullCount: 1},
		},
	}

	metrics, err := Extract(dataset, profile)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.DistinctCounts["label"])
	// 3 of 4 non-null entries are "spam".
	assert.InDelta(t, 0.75, metrics.TopValueRatios["label"], 1e-9)
}
