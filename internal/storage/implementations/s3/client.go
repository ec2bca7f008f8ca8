package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/errors"
)

// S3Config holds configuration for S3 blob storage
type S3Config struct {
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	ForcePathStyle  bool   `json:"force_path_style"`
	DisableSSL      bool   `json:"disable_ssl"`
	Prefix          string `json:"prefix"`
	PartSize        int64  `json:"part_size"`
	MaxRetries      int    `json:"max_retries"`
}

// S3Store implements the BlobStore interface for AWS S3
type S3Store struct {
	config     *S3Config
	s3Client   *s3.S3
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	logger     *logrus.Logger
	mu         sync.RWMutex
	metrics    *storeMetrics
	closed     bool
}

type storeMetrics struct {
	readOps      int64
	writeOps     int64
	deleteOps    int64
	errorCount   int64
	bytesWritten int64
	startTime    time.Time
	mu           sync.RWMutex
}

// NewS3Store creates a new S3 blob store instance
func NewS3Store(config *S3Config, logger *logrus.Logger) (*S3Store, error) {
	if config == nil {
		return nil, errors.NewPersistenceError(errors.CodeInvalidConfig, "S3 config cannot be nil")
	}
	if config.Bucket == "" {
		return nil, errors.NewPersistenceError(errors.CodeInvalidConfig, "S3 bucket is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &S3Store{
		config: config,
		logger: logger,
		metrics: &storeMetrics{
			startTime: time.Now(),
		},
	}, nil
}

// Connect establishes connection to S3
func (s *S3Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.s3Client != nil {
		return nil // Already connected
	}

	awsConfig := &aws.Config{
		Region:     aws.String(s.config.Region),
		MaxRetries: aws.Int(s.config.MaxRetries),
	}

	if s.config.AccessKeyID != "" && s.config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			s.config.AccessKeyID,
			s.config.SecretAccessKey,
			s.config.SessionToken,
		)
	}

	// Custom endpoint for S3-compatible services
	if s.config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s.config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(s.config.ForcePathStyle)
	}

	if s.config.DisableSSL {
		awsConfig.DisableSSL = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, "SESSION_FAILED", "Failed to create AWS session")
	}

	s.s3Client = s3.New(sess)
	s.uploader = s3manager.NewUploader(sess)
	s.downloader = s3manager.NewDownloader(sess)

	if s.config.PartSize > 0 {
		s.uploader.PartSize = s.config.PartSize
	}

	_, err = s.s3Client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypePersistence, "BUCKET_ACCESS_FAILED",
			fmt.Sprintf("Failed to access bucket '%s'", s.config.Bucket))
	}

	s.logger.WithFields(logrus.Fields{
		"region": s.config.Region,
		"bucket": s.config.Bucket,
	}).Info("Connected to S3")

	return nil
}

// Close closes the S3 connection
func (s *S3Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.s3Client = nil
	s.uploader = nil
	s.downloader = nil
	s.closed = true

	s.logger.Info("S3 connection closed")
	return nil
}

// Ping tests the S3 connection
func (s *S3Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.s3Client == nil {
		return errors.NewPersistenceError(errors.CodeNotConnected, "S3 not connected")
	}

	_, err := s.s3Client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	})
	if err != nil {
		s.incrementErrorCount()
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeNotConnected, "S3 ping failed")
	}

	return nil
}

// Put stores an object under the given key
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	s.mu.RLock()
	uploader := s.uploader
	s.mu.RUnlock()

	if uploader == nil {
		return errors.NewPersistenceError(errors.CodeNotConnected, "S3 not connected")
	}

	_, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.incrementErrorCount()
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed,
			fmt.Sprintf("Failed to upload object '%s'", key))
	}

	s.incrementWriteOps()
	s.logger.WithFields(logrus.Fields{
		"key":          key,
		"content_type": contentType,
	}).Debug("Object uploaded")

	return nil
}

// Get retrieves an object; the caller must close the returned reader
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	client := s.s3Client
	s.mu.RUnlock()

	if client == nil {
		return nil, errors.NewPersistenceError(errors.CodeNotConnected, "S3 not connected")
	}

	output, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		s.incrementErrorCount()
		return nil, errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeReadFailed,
			fmt.Sprintf("Failed to download object '%s'", key))
	}

	s.incrementReadOps()
	return output.Body, nil
}

// Delete removes an object
func (s *S3Store) Delete(ctx context.Context, key string) error {
	s.mu.RLock()
	client := s.s3Client
	s.mu.RUnlock()

	if client == nil {
		return errors.NewPersistenceError(errors.CodeNotConnected, "S3 not connected")
	}

	_, err := client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		s.incrementErrorCount()
		return errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeWriteFailed,
			fmt.Sprintf("Failed to delete object '%s'", key))
	}

	s.incrementDeleteOps()
	return nil
}

// PresignedURL returns a time-limited download URL for an object
func (s *S3Store) PresignedURL(key string, expiry time.Duration) (string, error) {
	s.mu.RLock()
	client := s.s3Client
	s.mu.RUnlock()

	if client == nil {
		return "", errors.NewPersistenceError(errors.CodeNotConnected, "S3 not connected")
	}

	req, _ := client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})

	url, err := req.Presign(expiry)
	if err != nil {
		s.incrementErrorCount()
		return "", errors.WrapError(err, errors.ErrorTypePersistence, errors.CodeReadFailed,
			fmt.Sprintf("Failed to presign object '%s'", key))
	}

	return url, nil
}

// UploadKey builds the object key for an uploaded dataset file. Keys follow
// uploads/<owner>/<timestamp>_<short-id>.<ext>, mirroring how reports are
// grouped under reports/.
func UploadKey(ownerID, filename string) string {
	ext := path.Ext(filename)
	stamp := time.Now().UTC().Format("20060102_150405")
	shortID := uuid.New().String()[:8]
	return fmt.Sprintf("%s/%s/%s_%s%s", constants.DefaultUploadPrefix, ownerID, stamp, shortID, ext)
}

// ReportKey builds the object key for a profiler HTML report artifact.
func ReportKey(datasetID string) string {
	stamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s.html", constants.DefaultReportPrefix, stamp, datasetID)
}

func (s *S3Store) objectKey(key string) string {
	if s.config.Prefix == "" {
		return key
	}
	return path.Join(s.config.Prefix, key)
}

func (s *S3Store) incrementReadOps() {
	s.metrics.mu.Lock()
	s.metrics.readOps++
	s.metrics.mu.Unlock()
}

func (s *S3Store) incrementWriteOps() {
	s.metrics.mu.Lock()
	s.metrics.writeOps++
	s.metrics.mu.Unlock()
}

func (s *S3Store) incrementDeleteOps() {
	s.metrics.mu.Lock()
	s.metrics.deleteOps++
	s.metrics.mu.Unlock()
}

func (s *S3Store) incrementErrorCount() {
	s.metrics.mu.Lock()
	s.metrics.errorCount++
	s.metrics.mu.Unlock()
}
