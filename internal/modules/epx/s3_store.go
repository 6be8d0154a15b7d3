package epx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// S3Options configures an S3-compatible bucket (Cloudflare R2)
type S3Options struct {
	Endpoint        string
	Bucket          string
	ObjectKey       string
	AccessKeyID     string
	SecretAccessKey string
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Store keeps the series as a JSON object in a bucket
type S3Store struct {
	client   objectGetter
	uploader objectUploader
	bucket   string
	key      string
	log      zerolog.Logger
}

// NewS3Store builds an R2 client with static credentials and path-style addressing
func NewS3Store(ctx context.Context, opts S3Options, log zerolog.Logger) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})

	return newS3Store(client, manager.NewUploader(client), opts.Bucket, opts.ObjectKey, log), nil
}

func newS3Store(client objectGetter, uploader objectUploader, bucket, key string, log zerolog.Logger) *S3Store {
	return &S3Store{
		client:   client,
		uploader: uploader,
		bucket:   bucket,
		key:      key,
		log:      log.With().Str("component", "epx_s3_store").Str("bucket", bucket).Logger(),
	}
}

// Load downloads the series; a missing object is an empty series
func (s *S3Store) Load(ctx context.Context) ([]domain.EpxIndex, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			s.log.Debug().Str("key", s.key).Msg("EPX object not found, starting empty")
			return []domain.EpxIndex{}, nil
		}
		return nil, fmt.Errorf("failed to get EPX object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read EPX object: %w", err)
	}
	return decodeSeries(data), nil
}

// Save uploads the series as pretty-printed JSON
func (s *S3Store) Save(ctx context.Context, series []domain.EpxIndex) error {
	data, err := encodeSeries(series)
	if err != nil {
		return err
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload EPX object: %w", err)
	}

	s.log.Debug().Str("key", s.key).Int("rows", len(series)).Msg("Uploaded EPX series")
	return nil
}
