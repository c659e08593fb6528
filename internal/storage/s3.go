package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const s3RefPrefix = "s3:"

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// presigner is the subset of *s3.PresignClient the store uses.
type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Options configures NewS3.
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string // set for MinIO and other S3-compatible servers
	AccessKeyID     string
	SecretAccessKey string
	PresignTTL      time.Duration
}

// S3 keeps images in a bucket and hands out short-lived presigned GET
// URLs. References that are not "s3:" keys (inline data URLs from before
// the bucket was configured) resolve to themselves.
type S3 struct {
	bucket  string
	ttl     time.Duration
	objects objectAPI
	presign presigner
	now     func() time.Time
}

func NewS3(ctx context.Context, o S3Options) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	ttl := o.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3{
		bucket:  o.Bucket,
		ttl:     ttl,
		objects: client,
		presign: s3.NewPresignClient(client),
		now:     time.Now,
	}, nil
}

func (s *S3) objectKey() string {
	d := s.now().UTC()
	return fmt.Sprintf("feedback/%d/%02d/%s", d.Year(), d.Month(), uuid.NewString())
}

func (s *S3) Save(ctx context.Context, data []byte) (string, error) {
	ct, err := DetectImage(data)
	if err != nil {
		return "", err
	}
	key := s.objectKey()
	_, err = s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ct),
	})
	if err != nil {
		return "", fmt.Errorf("put image: %w", err)
	}
	return s3RefPrefix + key, nil
}

func (s *S3) Resolve(ctx context.Context, ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, s3RefPrefix)
	if !ok {
		return ref, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign image: %w", err)
	}
	return req.URL, nil
}

func (s *S3) Delete(ctx context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, s3RefPrefix)
	if !ok {
		return nil
	}
	_, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
