package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// R2Store is a BlobStore on a Cloudflare R2 (S3-compatible) bucket.
type R2Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewR2Store initializes the R2 client using static credentials and the
// account's custom endpoint.
func NewR2Store(accessKey, secretKey, accountID, bucketName, region string) (*R2Store, error) {
	if accountID == "" || bucketName == "" {
		return nil, errors.New("r2: account id and bucket name are required")
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)

	cfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		Region:      region,
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	log.Info().Str("bucket", bucketName).Msg("Successfully initialized R2 client")

	return &R2Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucketName,
	}, nil
}

func (r *R2Store) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("r2 put %s: %w", key, err)
	}
	return nil
}

// Stat returns the object's size, or ErrBlobNotFound.
func (r *R2Store) Stat(ctx context.Context, key string) (BlobInfo, error) {
	out, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return BlobInfo{}, ErrBlobNotFound
		}
		return BlobInfo{}, fmt.Errorf("r2 head %s: %w", key, err)
	}
	return BlobInfo{Key: key, Size: aws.ToInt64(out.ContentLength)}, nil
}

func (r *R2Store) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("r2 delete %s: %w", key, err)
	}
	return nil
}

// Copy duplicates an object server-side.
func (r *R2Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := r.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(r.bucket),
		CopySource: aws.String(r.bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("r2 copy %s -> %s: %w", srcKey, dstKey, err)
	}
	return nil
}

// PresignPut creates a presigned URL for uploading a file to R2.
func (r *R2Store) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := r.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignGet creates a presigned URL for downloading a file from R2.
func (r *R2Store) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
