package utils

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MediaStorage uploads public media (avatars, club logos) to an S3-compatible bucket (R2).
type MediaStorage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

type MediaConfig struct {
	AccountID string
	KeyID     string
	Secret    string
	Bucket    string
	CDNURL    string
}

func NewMediaStorage(ctx context.Context, mc MediaConfig) (*MediaStorage, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", mc.AccountID)
	baseURL := strings.TrimRight(mc.CDNURL, "/")
	if baseURL == "" {
		baseURL = endpoint + "/" + mc.Bucket
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			mc.KeyID, mc.Secret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load media storage config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &MediaStorage{client: client, bucket: mc.Bucket, baseURL: baseURL}, nil
}

// Upload stores body under key and returns its public URL.
func (m *MediaStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to media storage: %w", err)
	}
	return m.baseURL + "/" + key, nil
}
