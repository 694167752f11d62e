package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"face-auth-backend/internal/shared/storage/object"
	"face-auth-backend/internal/shared/util"
)

const defaultPresignTTL = time.Hour

// API is the subset of the S3 client used by Store.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Presigner signs GET requests so stored images can be handed out as URLs.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Options configures an S3-backed store.
type Options struct {
	Region     string
	Bucket     string
	Prefix     string
	KMSKeyID   string
	PresignTTL time.Duration
}

// Store implements ObjectStore using Amazon S3, one key prefix per namespace.
type Store struct {
	client     API
	presign    Presigner
	bucket     string
	prefix     string
	kmsKeyID   string
	presignTTL time.Duration
}

// New creates a new S3-backed object store from the default AWS credential chain.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return NewWithClient(client, s3.NewPresignClient(client), opts)
}

// NewWithClient builds a Store around an existing client.
func NewWithClient(client API, presign Presigner, opts Options) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &Store{
		client:     client,
		presign:    presign,
		bucket:     strings.TrimSpace(opts.Bucket),
		prefix:     normalizePrefix(opts.Prefix),
		kmsKeyID:   strings.TrimSpace(opts.KMSKeyID),
		presignTTL: ttl,
	}, nil
}

// Put uploads the reader contents to prefix/namespace/name, replacing any previous object.
func (s *Store) Put(ctx context.Context, namespace, name, contentType string, r io.Reader) (object.Ref, error) {
	ns, err := util.SanitizeSegment(namespace)
	if err != nil {
		return object.Ref{}, fmt.Errorf("sanitize namespace: %w", err)
	}
	objName, err := util.SanitizeSegment(name)
	if err != nil {
		return object.Ref{}, fmt.Errorf("sanitize name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return object.Ref{}, err
	}

	storageKey := path.Join(ns, objName)
	objectKey := applyPrefix(s.prefix, storageKey)
	counter := &countingReader{r: r}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
		Body:   counter,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return object.Ref{}, fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}

	return object.Ref{
		Key:          storageKey,
		Name:         objName,
		Location:     s.location(ctx, objectKey),
		Size:         counter.n,
		LastModified: time.Now().UTC(),
	}, nil
}

// List pages through every object under prefix/namespace/.
func (s *Store) List(ctx context.Context, namespace string) ([]object.Ref, error) {
	ns, err := util.SanitizeSegment(namespace)
	if err != nil {
		return nil, fmt.Errorf("sanitize namespace: %w", err)
	}

	nsPrefix := applyPrefix(s.prefix, ns) + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(nsPrefix),
	})

	refs := []object.Ref{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects bucket=%s prefix=%s: %w", s.bucket, nsPrefix, err)
		}
		for _, obj := range page.Contents {
			objectKey := aws.ToString(obj.Key)
			name := strings.TrimPrefix(objectKey, nsPrefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			ref := object.Ref{
				Key:      path.Join(ns, name),
				Name:     name,
				Location: s.location(ctx, objectKey),
				Size:     aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				ref.LastModified = obj.LastModified.UTC()
			}
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Open downloads a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objectKey := applyPrefix(s.prefix, storageKey)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: s3 key=%s", object.ErrNotFound, objectKey)
		}
		return nil, fmt.Errorf("s3 get object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return out.Body, nil
}

// location returns a presigned GET URL, or the s3:// URI when signing is unavailable.
func (s *Store) location(ctx context.Context, objectKey string) string {
	fallback := "s3://" + s.bucket + "/" + objectKey
	if s.presign == nil {
		return fallback
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil || req == nil {
		return fallback
	}
	return req.URL
}

func isNotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

// JoinPrefix joins key prefixes, dropping empty parts and stray slashes.
func JoinPrefix(prefix, key string) string {
	return applyPrefix(prefix, key)
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ object.ObjectStore = (*Store)(nil)
