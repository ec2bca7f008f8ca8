package dynamodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

// DynamoDBConfig holds configuration for DynamoDB metadata storage
type DynamoDBConfig struct {
	Region          string `json:"region"`
	DatasetTable    string `json:"dataset_table"`
	AnalysisTable   string `json:"analysis_table"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	MaxRetries      int    `json:"max_retries"`
}

// DynamoDBStore implements the MetadataStore interface on DynamoDB.
// Datasets and analysis records live in two tables keyed by dataset id.
type DynamoDBStore struct {
	config *DynamoDBConfig
	client *dynamodb.DynamoDB
	logger *logrus.Logger
	mu     sync.RWMutex
	closed bool
}

type datasetItem struct {
	DatasetID   string   `dynamodbav:"dataset_id"`
	OwnerID     string   `dynamodbav:"owner_id"`
	Filename    string   `dynamodbav:"filename"`
	ContentType string   `dynamodbav:"content_type"`
	SizeBytes   int64    `dynamodbav:"size_bytes"`
	BlobKey     string   `dynamodbav:"blob_key"`
	RowCount    int      `dynamodbav:"row_count"`
	ColumnCount int      `dynamodbav:"column_count"`
	Columns     []string `dynamodbav:"columns,omitempty"`
	UploadedAt  string   `dynamodbav:"uploaded_at"`
}

type analysisItem struct {
	DatasetID    string                 `dynamodbav:"dataset_id"`
	Status       string                 `dynamodbav:"analysis_status"`
	QualityScore int                    `dynamodbav:"quality_score"`
	Metrics      *models.DatasetMetrics `dynamodbav:"metrics,omitempty"`
	Issues       []models.Issue         `dynamodbav:"issues,omitempty"`
	Insight      *models.AIInsight      `dynamodbav:"ai_insight,omitempty"`
	ReportKey    string                 `dynamodbav:"report_key,omitempty"`
	CreatedAt    string                 `dynamodbav:"created_at"`
	ErrorStage   string                 `dynamodbav:"error_stage,omitempty"`
	ErrorMessage string                 `dynamodbav:"error_message,omitempty"`
}

// NewDynamoDBStore creates a new DynamoDB metadata store instance
func NewDynamoDBStore(config *DynamoDBConfig, logger *logrus.Logger) (*DynamoDBStore, error) {
	if config == nil {
		return nil, errors.NewPersistenceError(errors.CodeInvalidConfig, "DynamoDB config cannot be nil")
	}
	if config.DatasetTable == "" {
		config.DatasetTable = constants.DefaultDatasetTable
	}
	if config.AnalysisTable == "" {
		config.AnalysisTable = constants.DefaultAnalysisTable
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &DynamoDBStore{
		config: config,
		logger: logger,
	}, nil
}

// Connect establishes connection to DynamoDB
func (d *DynamoDBStore) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client != nil {
		return nil // Already connected
	}

	awsConfig := &aws.Config{
		Region:     aws.String(d.config.Region),
		MaxRetries: aws.Int(d.config.MaxRetries),
	}

	if d.config.AccessKeyID != "" && d.config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			d.config.AccessKeyID,
			d.config.SecretAccessKey,
			d.config.SessionToken,
		)
	}

	// Custom endpoint for DynamoDB Local
	if d.config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(d.config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, "SESSION_FAILED", "Failed to create AWS session")
	}

	d.client = dynamodb.New(sess)

	for _, table := range []string{d.config.DatasetTable, d.config.AnalysisTable} {
		_, err = d.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(table),
		})
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypePersistence, "TABLE_ACCESS_FAILED",
				fmt.Sprintf("Failed to access table '%s'", table))
		}
	}

	d.logger.WithFields(logrus.Fields{
		"region":         d.config.Region,
		"dataset_table":  d.config.DatasetTable,
		"analysis_table": d.config.AnalysisTable,
	}).Info("Connected to DynamoDB")

	return nil
}

// Close closes the DynamoDB connection
func (d *DynamoDBStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	d.client = nil
	d.closed = true

	d.logger.Info("DynamoDB connection closed")
	return nil
}

// Ping tests the DynamoDB connection
func (d *DynamoDBStore) Ping(ctx context.Context) error {
	client, err := d.activeClient()
	if err != nil {
		return err
	}

	_, err = client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.config.DatasetTable),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeNotConnected, "DynamoDB ping failed")
	}

	return nil
}

// PutDataset stores dataset metadata
func (d *DynamoDBStore) PutDataset(ctx context.Context, meta *models.DatasetMeta) error {
	client, err := d.activeClient()
	if err != nil {
		return err
	}
	if meta == nil || meta.ID == "" {
		return errors.NewValidationError(errors.CodeInvalidDataset, "dataset metadata requires an id")
	}

	item, err := dynamodbattribute.MarshalMap(&datasetItem{
		DatasetID:   meta.ID,
		OwnerID:     meta.OwnerID,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		SizeBytes:   meta.SizeBytes,
		BlobKey:     meta.BlobKey,
		RowCount:    meta.RowCount,
		ColumnCount: meta.ColumnCount,
		Columns:     meta.Columns,
		UploadedAt:  meta.UploadedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed, "Failed to marshal dataset item")
	}

	_, err = client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.config.DatasetTable),
		Item:      item,
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed,
			fmt.Sprintf("Failed to store dataset '%s'", meta.ID))
	}

	return nil
}

// GetDataset retrieves dataset metadata by id
func (d *DynamoDBStore) GetDataset(ctx context.Context, datasetID string) (*models.DatasetMeta, error) {
	client, err := d.activeClient()
	if err != nil {
		return nil, err
	}

	output, err := client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.config.DatasetTable),
		Key:            datasetKey(datasetID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeReadFailed,
			fmt.Sprintf("Failed to read dataset '%s'", datasetID))
	}
	if output.Item == nil {
		return nil, errors.ErrDatasetNotFound
	}

	var item datasetItem
	if err := dynamodbattribute.UnmarshalMap(output.Item, &item); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeReadFailed, "Failed to unmarshal dataset item")
	}

	return item.toMeta()
}

// ListDatasets returns all datasets owned by the given user. Datasets are
// indexed by id, so this scans with an owner filter; acceptable at the
// per-user dataset counts this service handles.
func (d *DynamoDBStore) ListDatasets(ctx context.Context, ownerID string) ([]*models.DatasetMeta, error) {
	client, err := d.activeClient()
	if err != nil {
		return nil, err
	}

	var metas []*models.DatasetMeta
	input := &dynamodb.ScanInput{
		TableName:        aws.String(d.config.DatasetTable),
		FilterExpression: aws.String("owner_id = :owner"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":owner": {S: aws.String(ownerID)},
		},
	}

	err = client.ScanPagesWithContext(ctx, input, func(page *dynamodb.ScanOutput, lastPage bool) bool {
		for _, raw := range page.Items {
			var item datasetItem
			if err := dynamodbattribute.UnmarshalMap(raw, &item); err != nil {
				d.logger.WithError(err).Warn("Skipping unreadable dataset item")
				continue
			}
			meta, err := item.toMeta()
			if err != nil {
				d.logger.WithError(err).Warn("Skipping unreadable dataset item")
				continue
			}
			metas = append(metas, meta)
		}
		return true
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeReadFailed, "Failed to list datasets")
	}

	return metas, nil
}

// DeleteDataset removes dataset metadata and its analysis record
func (d *DynamoDBStore) DeleteDataset(ctx context.Context, datasetID string) error {
	client, err := d.activeClient()
	if err != nil {
		return err
	}

	_, err = client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.config.DatasetTable),
		Key:       datasetKey(datasetID),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed,
			fmt.Sprintf("Failed to delete dataset '%s'", datasetID))
	}

	_, err = client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.config.AnalysisTable),
		Key:       datasetKey(datasetID),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed,
			fmt.Sprintf("Failed to delete analysis record for dataset '%s'", datasetID))
	}

	return nil
}

// GetAnalysis retrieves the analysis record for a dataset
func (d *DynamoDBStore) GetAnalysis(ctx context.Context, datasetID string) (*models.AnalysisRecord, error) {
	client, err := d.activeClient()
	if err != nil {
		return nil, err
	}

	output, err := client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.config.AnalysisTable),
		Key:            datasetKey(datasetID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeReadFailed,
			fmt.Sprintf("Failed to read analysis record for dataset '%s'", datasetID))
	}
	if output.Item == nil {
		return nil, errors.ErrAnalysisNotFound
	}

	var item analysisItem
	if err := dynamodbattribute.UnmarshalMap(output.Item, &item); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeReadFailed, "Failed to unmarshal analysis item")
	}

	return item.toRecord()
}

// BeginAnalysis atomically transitions the record to in_progress. The
// ConditionExpression makes DynamoDB itself reject the write when another
// run is already in flight, so the single-flight guarantee holds across
// processes, not just within one.
func (d *DynamoDBStore) BeginAnalysis(ctx context.Context, datasetID string) error {
	client, err := d.activeClient()
	if err != nil {
		return err
	}

	item, err := dynamodbattribute.MarshalMap(&analysisItem{
		DatasetID: datasetID,
		Status:    string(models.AnalysisInProgress),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed, "Failed to marshal analysis item")
	}

	_, err = client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.config.AnalysisTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(dataset_id) OR analysis_status <> :in_progress"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":in_progress": {S: aws.String(string(models.AnalysisInProgress))},
		},
	})
	if err != nil {
		var awsErr awserr.Error
		if stderrors.As(err, &awsErr) && awsErr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return errors.ErrAnalysisInProgress
		}
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed,
			fmt.Sprintf("Failed to begin analysis for dataset '%s'", datasetID))
	}

	return nil
}

// PutAnalysis overwrites the analysis record for a dataset
func (d *DynamoDBStore) PutAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	client, err := d.activeClient()
	if err != nil {
		return err
	}
	if record == nil || record.DatasetID == "" {
		return errors.NewValidationError(errors.CodeInvalidDataset, "analysis record requires a dataset id")
	}

	item := &analysisItem{
		DatasetID:    record.DatasetID,
		Status:       string(record.Status),
		QualityScore: record.QualityScore,
		Metrics:      record.Metrics,
		Issues:       record.Issues,
		Insight:      record.Insight,
		ReportKey:    record.ReportKey,
		CreatedAt:    record.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if record.Error != nil {
		item.ErrorStage = string(record.Error.Stage)
		item.ErrorMessage = record.Error.Message
	}

	raw, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed, "Failed to marshal analysis item")
	}

	_, err = client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.config.AnalysisTable),
		Item:      raw,
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed,
			fmt.Sprintf("Failed to store analysis record for dataset '%s'", record.DatasetID))
	}

	return nil
}

func (d *DynamoDBStore) activeClient() (*dynamodb.DynamoDB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed || d.client == nil {
		return nil, errors.NewPersistenceError(errors.CodeNotConnected, "DynamoDB not connected")
	}
	return d.client, nil
}

func datasetKey(datasetID string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"dataset_id": {S: aws.String(datasetID)},
	}
}

func (i *datasetItem) toMeta() (*models.DatasetMeta, error) {
	uploadedAt, err := time.Parse(time.RFC3339Nano, i.UploadedAt)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeReadFailed, "Invalid uploaded_at timestamp")
	}
	return &models.DatasetMeta{
		ID:          i.DatasetID,
		OwnerID:     i.OwnerID,
		Filename:    i.Filename,
		ContentType: i.ContentType,
		SizeBytes:   i.SizeBytes,
		BlobKey:     i.BlobKey,
		RowCount:    i.RowCount,
		ColumnCount: i.ColumnCount,
		Columns:     i.Columns,
		UploadedAt:  uploadedAt,
	}, nil
}

func (i *analysisItem) toRecord() (*models.AnalysisRecord, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, i.CreatedAt)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeReadFailed, "Invalid created_at timestamp")
	}
	record := &models.AnalysisRecord{
		DatasetID:    i.DatasetID,
		Status:       models.AnalysisStatus(i.Status),
		QualityScore: i.QualityScore,
		Metrics:      i.Metrics,
		Issues:       i.Issues,
		Insight:      i.Insight,
		ReportKey:    i.ReportKey,
		CreatedAt:    createdAt,
	}
	if i.ErrorMessage != "" || i.ErrorStage != "" {
		record.Error = &models.AnalysisError{
			Stage:   models.PipelineStage(i.ErrorStage),
			Message: i.ErrorMessage,
		}
	}
	return record, nil
}
