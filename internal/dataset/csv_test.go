package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightloop/dataqual/pkg/models"
)

func TestDecodeValidCSV(t *testing.T) {
	input := "id,name,amount\n1,alice,10.5\n2,bob,\n3,carol,7.0\n"

	ds, err := NewDecoder(0, nil).Decode(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "amount"}, ds.Columns)
	require.Len(t, ds.Rows, 3)
	assert.Equal(t, []string{"2", "bob", ""}, ds.Rows[1])
}

func TestDecodeStripsBOM(t *testing.T) {
	input := "\uFEFFid,name\n1,x\n"

	ds, err := NewDecoder(0, nil).Decode(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, ds.Columns)
}

func TestDecodeRejectsEmptyInput(t *testing.T) {
	_, err := NewDecoder(0, nil).Decode(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestDecodeRejectsHeaderOnly(t *testing.T) {
	_, err := NewDecoder(0, nil).Decode(strings.NewReader("id,name\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data rows")
}

func TestDecodeRejectsRaggedRows(t *testing.T) {
	_, err := NewDecoder(0, nil).Decode(strings.NewReader("id,name\n1,x\n2,y,extra\n"))
	assert.Error(t, err)
}

func TestDecodeRejectsDuplicateColumns(t *testing.T) {
	_, err := NewDecoder(0, nil).Decode(strings.NewReader("id,id\n1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name")
}

func TestDecodeRejectsEmptyColumnName(t *testing.T) {
	_, err := NewDecoder(0, nil).Decode(strings.NewReader("id,,name\n1,2,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty name")
}

func TestDecodeEnforcesSizeLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id,payload\n")
	for i := 0; i < 100; i++ {
		sb.WriteString("1,")
		sb.WriteString(strings.Repeat("x", 100))
		sb.WriteString("\n")
	}

	_, err := NewDecoder(512, nil).Decode(strings.NewReader(sb.String()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "byte limit")
}

func TestValidateUpload(t *testing.T) {
	assert.NoError(t, ValidateUpload("data.csv", "text/csv"))
	assert.NoError(t, ValidateUpload("DATA.CSV", ""))
	assert.Error(t, ValidateUpload("", "text/csv"))
	assert.Error(t, ValidateUpload("data.json", "application/json"))
	assert.Error(t, ValidateUpload("data.csv", "image/png"))
}

func TestNewMeta(t *testing.T) {
	ds := &models.Dataset{
		Columns: []string{"a", "b"},
		Rows:    [][]string{{"1", "2"}, {"3", "4"}},
	}

	meta := NewMeta("user-1", "data.csv", "text/csv", 42, ds)

	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, "user-1", meta.OwnerID)
	assert.Equal(t, 2, meta.RowCount)
	assert.Equal(t, 2, meta.ColumnCount)
	assert.Equal(t, []string{"a", "b"}, meta.Columns)
	assert.False(t, meta.UploadedAt.IsZero())

	// Column slice is a copy, not an alias
	meta.Columns[0] = "mutated"
	assert.Equal(t, "a", ds.Columns[0])
}
