// Package storage presigns object-storage URLs for model assets and
// profile images, and removes stored objects when their owner is deleted.
// Bytes never pass through the API server.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	sc "github.com/dmitrijs2005/sketchhub/internal/server/config"
	"github.com/google/uuid"
)

// Storage is what services need from object storage.
type Storage interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	PublicURL(key string) string
	DeletePrefix(ctx context.Context, prefix string) error
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return c.ListObjectsV2(ctx, in)
	}

	deleteObjects = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		return c.DeleteObjects(ctx, in)
	}
)

type S3Storage struct {
	client       *s3.Client
	presign      *s3.PresignClient
	bucket       string
	baseEndpoint string
	ttl          time.Duration
}

func NewS3Storage(ctx context.Context, c *sc.Config) (*S3Storage, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	ttl := c.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &S3Storage{
		client:       client,
		presign:      newS3PresignClient(client),
		bucket:       c.S3Bucket,
		baseEndpoint: strings.TrimRight(c.S3BaseEndpoint, "/"),
		ttl:          ttl,
	}, nil
}

func (s *S3Storage) PresignPut(ctx context.Context, key string) (string, error) {
	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Storage) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// PublicURL is the path-style URL of key in a publicly readable bucket.
func (s *S3Storage) PublicURL(key string) string {
	return s.baseEndpoint + "/" + s.bucket + "/" + strings.TrimLeft(key, "/")
}

// DeletePrefix removes every object whose key starts with prefix.
func (s *S3Storage) DeletePrefix(ctx context.Context, prefix string) error {
	var token *string
	for {
		out, err := listObjectsV2(s.client, ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("list %s: %w", prefix, err)
		}

		if len(out.Contents) > 0 {
			ids := make([]types.ObjectIdentifier, 0, len(out.Contents))
			for _, obj := range out.Contents {
				ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
			}
			if _, err := deleteObjects(s.client, ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
			}); err != nil {
				return fmt.Errorf("delete %s: %w", prefix, err)
			}
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			return nil
		}
		token = out.NextContinuationToken
	}
}

// ModelPrefix is the key prefix of every asset of one model upload.
func ModelPrefix(authorID int64, uploadID string) string {
	return fmt.Sprintf("users/%d/models/%s/", authorID, uploadID)
}

// UserPrefix covers everything a user stored.
func UserPrefix(userID int64) string {
	return fmt.Sprintf("users/%d/", userID)
}

// ProfileImageKey returns a fresh key for a profile image upload.
func ProfileImageKey(userID int64) string {
	return fmt.Sprintf("users/%d/profile/%s", userID, uuid.NewString())
}

// NewUploadID names one model upload.
func NewUploadID() string {
	return uuid.NewString()
}
