package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service stores car images in Amazon S3 (or compatible APIs) and hands out
// presigned GET URLs instead of serving files from this process.
type S3Service struct {
	client    *s3.Client
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	bucket    string
	keyPrefix string
	urlTTL    time.Duration
}

func NewS3Service(client *s3.Client, bucket, keyPrefix string, urlTTL time.Duration) (*S3Service, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &S3Service{
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		urlTTL:    urlTTL,
	}, nil
}

func (s *S3Service) Save(ctx context.Context, file *multipart.FileHeader) (*Object, error) {
	contentType, err := validateImage(file)
	if err != nil {
		return nil, err
	}

	name := storedName(file.Filename)

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", file.Filename, err)
	}
	defer src.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        src,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", file.Filename, err)
	}

	return &Object{
		Name:         name,
		OriginalName: file.Filename,
		Size:         file.Size,
		ContentType:  contentType,
	}, nil
}

func (s *S3Service) Remove(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", name, err)
	}
	return nil
}

func (s *S3Service) URL(ctx context.Context, name, _ string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", name, err)
	}
	return req.URL, nil
}

func (s *S3Service) StaticDir() string {
	return ""
}

func (s *S3Service) key(name string) string {
	if s.keyPrefix == "" {
		return name
	}
	return s.keyPrefix + "/" + name
}

var _ Service = (*S3Service)(nil)
