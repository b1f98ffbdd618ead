package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/charmbracelet/log"
)

// S3Kind is the cache kind of S3 queries.
const S3Kind = "S3Query"

// ErrObjectNotFound is returned when the queried object does not exist.
var ErrObjectNotFound = errors.New("source: object not found")

// GetObjectAPI is the part of the S3 client used by S3Query.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Query reads CSV objects from a bucket. The object for key is
// {prefix}{key}{suffix}.
type S3Query struct {
	client GetObjectAPI
	bucket string
	prefix string
	suffix string
	logger *log.Logger
}

// S3Option customizes an S3Query.
type S3Option func(*S3Query)

// WithPrefix sets the object key prefix.
func WithPrefix(prefix string) S3Option {
	return func(q *S3Query) { q.prefix = prefix }
}

// WithSuffix sets the object key suffix. Defaults to ".csv".
func WithSuffix(suffix string) S3Option {
	return func(q *S3Query) { q.suffix = suffix }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) S3Option {
	return func(q *S3Query) { q.logger = l }
}

// NewS3Query creates a query against bucket.
func NewS3Query(client GetObjectAPI, bucket string, opts ...S3Option) *S3Query {
	q := &S3Query{
		client: client,
		bucket: bucket,
		suffix: ".csv",
		logger: log.Default().WithPrefix("s3"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// ObjectKey returns the object key queried for key.
func (q *S3Query) ObjectKey(key string) string {
	return q.prefix + key + q.suffix
}

// Query fetches and parses the object for key.
func (q *S3Query) Query(ctx context.Context, key string) (Table, error) {
	objectKey := q.ObjectKey(key)
	q.logger.Debug("S3 query", "bucket", q.bucket, "key", objectKey)

	out, err := q.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(q.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return Table{}, fmt.Errorf("s3://%s/%s: %w", q.bucket, objectKey, ErrObjectNotFound)
		}
		return Table{}, fmt.Errorf("unable to get s3://%s/%s: %w", q.bucket, objectKey, err)
	}
	defer out.Body.Close() //nolint:errcheck

	t, err := ParseCSV(out.Body)
	if err != nil {
		return Table{}, fmt.Errorf("s3://%s/%s: %w", q.bucket, objectKey, err)
	}
	return t, nil
}

// LoadS3Client builds an S3 client from the shared AWS config chain
// (environment, ~/.aws/config, IMDS). Empty region or profile keep the chain
// defaults.
func LoadS3Client(ctx context.Context, region, profile string) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}
