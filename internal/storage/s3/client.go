package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"deal-service/internal/config"
	"deal-service/internal/storage/cache"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const (
	emptyAWSSessionToken = ""

	errFailedCreateAWSSessionFmt          = "failed to create AWS session: %w"
	errFailedGeneratePresignedDownloadFmt = "failed to generate presigned download URL: %w"
	errFailedUploadObjectFmt              = "failed to upload object: %w"
	errFailedDeleteObjectFmt              = "failed to delete object: %w"
)

type Client struct {
	svc                *s3.S3
	presignedURLExpiry time.Duration
	urlCache           *cache.URLCache
}

func NewClient(cfg *config.AWSConfig, presignedURLExpiry time.Duration) (*Client, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			emptyAWSSessionToken,
		),
	})

	if err != nil {
		return nil, fmt.Errorf(errFailedCreateAWSSessionFmt, err)
	}

	return &Client{
		svc:                s3.New(sess),
		presignedURLExpiry: presignedURLExpiry,
		urlCache:           cache.NewURLCache(),
	}, nil
}

// GeneratePresignedDownloadURL mints a time-bounded GET URL for the object.
// The expiry is the capability content-URL window. Minted URLs are cached
// for half their validity, so every URL served still has at least half its
// window left for the document server's fetch.
func (c *Client) GeneratePresignedDownloadURL(ctx context.Context, bucketName, objectKey string) (string, error) {
	cacheKey := bucketName + "/" + objectKey
	if url, ok := c.urlCache.Get(cacheKey); ok {
		return url, nil
	}

	req, _ := c.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	})
	req.SetContext(ctx)

	url, err := req.Presign(c.presignedURLExpiry)
	if err != nil {
		return "", fmt.Errorf(errFailedGeneratePresignedDownloadFmt, err)
	}

	c.urlCache.Set(cacheKey, url, time.Now().Add(c.presignedURLExpiry/2))
	return url, nil
}

// UploadObject writes bytes server-side. Version commits upload directly
// rather than via presigned URLs because the bytes come from the document
// server, not a browser.
func (c *Client) UploadObject(ctx context.Context, bucketName, objectKey, contentType string, body []byte) error {
	_, err := c.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(body),
	})

	if err != nil {
		return fmt.Errorf(errFailedUploadObjectFmt, err)
	}

	c.urlCache.Invalidate(bucketName + "/" + objectKey)
	return nil
}

// SweepURLCache drops expired cached URLs on an interval until ctx is done.
// Run it as a goroutine from main.
func (c *Client) SweepURLCache(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.urlCache.Sweep()
		}
	}
}

func (c *Client) DeleteObject(ctx context.Context, bucketName, objectKey string) error {
	_, err := c.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	})

	if err != nil {
		return fmt.Errorf(errFailedDeleteObjectFmt, err)
	}

	return nil
}
