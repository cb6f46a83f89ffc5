// Package media stores uploaded portal assets (element images, news
// attachments) in an S3-compatible object store.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var mediaLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	mediaLogger = l
}

// Object describes one stored media asset.
type Object struct {
	Key          string
	ContentType  string
	Size         int64
	LastModified time.Time
}

type Store interface {
	Upload(ctx context.Context, name, contentType string, data io.Reader) (*Object, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, key string) error
}

type S3Store struct { // implements Store
	client *s3.Client
	bucket string
}

func NewS3Store(accessKeyID, accessKeySecret, baseEndpoint, bucket string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(baseEndpoint)
	})

	return &S3Store{
		client: client,
		bucket: bucket,
	}, nil
}

// Upload stores the asset under a fresh unique key derived from the
// given name and returns the stored object's metadata.
func (s *S3Store) Upload(ctx context.Context, name, contentType string, data io.Reader) (*Object, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("error reading upload body: %w", err)
	}

	key := uuid.NewString() + "/" + name
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("error uploading media object: %w", err)
	}

	mediaLogger.Info().Str("key", key).Int("size", len(body)).Msg("Media object uploaded")

	return &Object{
		Key:          key,
		ContentType:  contentType,
		Size:         int64(len(body)),
		LastModified: time.Now().UTC(),
	}, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("error fetching media object: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("error reading media object: %w", err)
	}

	return body, aws.ToString(out.ContentType), nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("error listing media objects: %w", err)
	}

	objects := make([]Object, 0, len(out.Contents))
	for _, entry := range out.Contents {
		objects = append(objects, Object{
			Key:          aws.ToString(entry.Key),
			Size:         aws.ToInt64(entry.Size),
			LastModified: aws.ToTime(entry.LastModified),
		})
	}
	return objects, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error deleting media object: %w", err)
	}
	return nil
}
