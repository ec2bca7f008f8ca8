package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

// Decoder turns uploaded CSV content into a Dataset. The header row is
// required and becomes the column list; every data row must match the
// header width.
type Decoder struct {
	maxBytes int64
	logger   *logrus.Logger
}

// NewDecoder creates a dataset decoder with the given size limit.
// A non-positive limit falls back to the default.
func NewDecoder(maxBytes int64, logger *logrus.Logger) *Decoder {
	if maxBytes <= 0 {
		maxBytes = constants.DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Decoder{maxBytes: maxBytes, logger: logger}
}

// Decode parses CSV content into a Dataset. Cell values keep their raw
// string form; the empty string represents a missing value.
func (d *Decoder) Decode(r io.Reader) (*models.Dataset, error) {
	reader := csv.NewReader(io.LimitReader(r, d.maxBytes+1))
	reader.FieldsPerRecord = 0 // enforce the header width on every row
	reader.TrimLeadingSpace = true

	var (
		columns []string
		rows    [][]string
		total   int64
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeDataset, errors.CodeMalformedInput,
				"CSV content could not be parsed")
		}

		for _, cell := range record {
			total += int64(len(cell))
		}
		if total > d.maxBytes {
			return nil, errors.NewDatasetError(errors.CodeInvalidDataset,
				fmt.Sprintf("upload exceeds the %d byte limit", d.maxBytes))
		}

		if columns == nil {
			columns = normalizeHeader(record)
			if err := validateHeader(columns); err != nil {
				return nil, err
			}
			continue
		}
		rows = append(rows, record)
	}

	if columns == nil {
		return nil, errors.NewDatasetError(errors.CodeEmptyDataset, "uploaded file has no header row")
	}
	if len(rows) == 0 {
		return nil, errors.NewDatasetError(errors.CodeEmptyDataset, "uploaded file has no data rows")
	}

	d.logger.WithFields(logrus.Fields{
		"rows":    len(rows),
		"columns": len(columns),
	}).Debug("Decoded CSV dataset")

	return &models.Dataset{
		Columns: columns,
		Rows:    rows,
	}, nil
}

// NewMeta builds upload metadata for a decoded dataset. The id is a fresh
// UUID; BlobKey is assigned by the caller once the blob upload succeeds.
func NewMeta(ownerID, filename, contentType string, sizeBytes int64, ds *models.Dataset) *models.DatasetMeta {
	return &models.DatasetMeta{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		RowCount:    len(ds.Rows),
		ColumnCount: len(ds.Columns),
		Columns:     append([]string(nil), ds.Columns...),
		UploadedAt:  time.Now().UTC(),
	}
}

// ValidateUpload checks the filename and content type before any decoding
// work happens.
func ValidateUpload(filename, contentType string) error {
	if filename == "" {
		return errors.NewValidationError(errors.CodeInvalidDataset, "filename is required")
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return errors.NewDatasetError(errors.CodeInvalidDataset, "only .csv files are supported")
	}
	switch contentType {
	case "", constants.MimeTypeCSV, "application/vnd.ms-excel", "application/octet-stream", "text/plain":
		return nil
	default:
		return errors.NewDatasetError(errors.CodeInvalidDataset,
			fmt.Sprintf("unsupported content type '%s'", contentType))
	}
}

func normalizeHeader(record []string) []string {
	out := make([]string, len(record))
	for i, name := range record {
		out[i] = strings.TrimSpace(name)
	}
	// Strip a UTF-8 BOM if the file carries one
	if len(out) > 0 {
		out[0] = strings.TrimPrefix(out[0], "\uFEFF")
	}
	return out
}

func validateHeader(columns []string) error {
	seen := make(map[string]struct{}, len(columns))
	for i, name := range columns {
		if name == "" {
			return errors.NewDatasetError(errors.CodeMalformedInput,
				fmt.Sprintf("column %d has an empty name", i+1))
		}
		if _, ok := seen[name]; ok {
			return errors.NewDatasetError(errors.CodeMalformedInput,
				fmt.Sprintf("duplicate column name '%s'", name))
		}
		seen[name] = struct{}{}
	}
	return nil
}
