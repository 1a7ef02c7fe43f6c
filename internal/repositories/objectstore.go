package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/yemaney/filevector/internal/config"
)

// ObjectStore wraps an S3-compatible client scoped to a single bucket.
// Uploaded file bytes live here under keys of the form {userID}/{filename}.
type ObjectStore struct {
	client *s3.Client
	bucket string
}

// NewObjectStore initializes the S3 client using static credentials and a
// custom endpoint, and provisions the bucket if it doesn't exist yet.
func NewObjectStore(ctx context.Context, cfg config.S3Config) (*ObjectStore, error) {
	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	store := &ObjectStore{client: client, bucket: cfg.BucketName}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	log.Println("Successfully initialized object store client")
	return store, nil
}

func (o *ObjectStore) ensureBucket(ctx context.Context) error {
	_, err := o.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(o.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *s3types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to check bucket %q: %w", o.bucket, err)
	}

	_, err = o.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(o.bucket),
	})
	if err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %q: %w", o.bucket, err)
	}

	log.Printf("Created bucket %q", o.bucket)
	return nil
}

// Put writes an object under the given key, overwriting any previous version.
func (o *ObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to store object %q: %w", key, err)
	}
	return nil
}

// Get returns a reader over the object's bytes. The caller must close it.
func (o *ObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object %q: %w", key, err)
	}
	return out.Body, nil
}

// Stat returns the authoritative byte size of a stored object.
func (o *ObjectStore) Stat(ctx context.Context, key string) (int64, error) {
	out, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to stat object %q: %w", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// ObjectKey derives the storage key for a user's file.
func ObjectKey(userID uint, filename string) string {
	return fmt.Sprintf("%d/%s", userID, filename)
}
