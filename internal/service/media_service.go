package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/motionlab/capserver/internal/config"
)

// MediaService works against S3-compatible object storage: it stores media
// objects and hands out short-lived presigned GET links. Path-style
// addressing keeps it compatible with MinIO and other non-AWS endpoints.
type MediaService struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	expiry        time.Duration
}

// NewMediaService creates a media service for the configured bucket.
func NewMediaService(cfg *config.Config) *MediaService {
	opts := s3.Options{
		Region: cfg.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.S3KeyID, cfg.S3Secret, "",
		),
		UsePathStyle: true,
	}
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", cfg.S3Endpoint))
	}
	client := s3.New(opts)

	return &MediaService{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.S3Bucket,
		expiry:        cfg.SignedURLExpiry,
	}
}

// PresignGet generates a presigned GET URL for an object key.
func (s *MediaService) PresignGet(ctx context.Context, key string) (string, error) {
	result, err := s.presignClient.PresignGetObject(ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(s.expiry),
	)
	if err != nil {
		return "", fmt.Errorf("presign GetObject for %q: %w", key, err)
	}
	return result.URL, nil
}

// Upload stores an object under the given key.
func (s *MediaService) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Download opens an object for reading. The caller closes the body.
func (s *MediaService) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	return out.Body, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Object key layout
// ────────────────────────────────────────────────────────────────────────────

// SessionQRKey returns the object key of a session's pairing QR code.
func SessionQRKey(sessionID string) string {
	return fmt.Sprintf("sessions/%s/qrcode.png", sessionID)
}

// CalibrationImageKey returns the object key of a session's calibration
// preview image.
func CalibrationImageKey(sessionID string) string {
	return fmt.Sprintf("sessions/%s/calibration.jpg", sessionID)
}

// NeutralImageKey returns the object key of a session's neutral pose image.
func NeutralImageKey(sessionID string) string {
	return fmt.Sprintf("sessions/%s/neutral.jpg", sessionID)
}

// ArchiveKey returns the object key of a finished archive.
func ArchiveKey(taskID string) string {
	return fmt.Sprintf("archives/%s.zip", taskID)
}
