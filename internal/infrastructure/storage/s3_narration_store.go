package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"WhereAmI/internal/config"
	"WhereAmI/internal/ports"
)

// S3NarrationStore caches narrations as public objects in one bucket.
type S3NarrationStore struct {
	s3Svc       s3iface.S3API
	uploader    s3manageriface.UploaderAPI
	bucket      string
	contentType string
	presignTTL  time.Duration
	logger      *slog.Logger
}

var _ ports.NarrationStore = (*S3NarrationStore)(nil)

// NewS3NarrationStore wires an S3 client and an uploader built on it.
func NewS3NarrationStore(s3Svc s3iface.S3API, uploader s3manageriface.UploaderAPI, cfg config.NarrationConfig, logger *slog.Logger) *S3NarrationStore {
	if uploader == nil {
		uploader = s3manager.NewUploaderWithClient(s3Svc)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	contentType := cfg.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &S3NarrationStore{
		s3Svc:       s3Svc,
		uploader:    uploader,
		bucket:      cfg.Bucket,
		contentType: contentType,
		presignTTL:  ttl,
		logger:      logger,
	}
}

// Lookup returns a presigned URL for an existing object, or "" when the
// bucket has no object under filename.
func (s *S3NarrationStore) Lookup(ctx context.Context, filename string) (string, error) {
	s.logger.Debug("locating narration", "bucket", s.bucket, "key", filename)

	_, err := s.s3Svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filename),
	})
	if isNotFound(err) {
		s.logger.Info("narration not cached", "key", filename)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("head %s: %w", filename, err)
	}

	req, _ := s.s3Svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filename),
	})
	url, err := req.Presign(s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", filename, err)
	}
	return url, nil
}

// Store uploads audio as a public-read object and returns its location.
func (s *S3NarrationStore) Store(ctx context.Context, filename string, audio []byte) (string, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(filename),
		Body:        bytes.NewReader(audio),
		ACL:         aws.String(s3.ObjectCannedACLPublicRead),
		ContentType: aws.String(s.contentType),
	})
	if err != nil {
		s.logger.Error("upload narration", "bucket", s.bucket, "key", filename, "error", err)
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}

	s.logger.Debug("uploaded narration", "location", out.Location)
	return out.Location, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	return errors.As(err, &aerr) && (aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey)
}
