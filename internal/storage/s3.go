// Package storage provides the remote file store used for sourcing assets
// and delivering finished videos. The pipeline only sees local paths and a
// temp directory handle to reclaim; whether they came from S3 is its
// implementation detail.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Config holds the S3 connection settings.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store lists, downloads and uploads objects in one bucket. It implements
// the asset Source contract: listings are materialized into a fresh temp
// directory whose cleanup belongs to the caller.
type S3Store struct {
	logger zerolog.Logger
	client *s3.Client
	bucket string
}

// NewS3Store creates an S3-backed store.
func NewS3Store(logger zerolog.Logger, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("s3 bucket and region are required")
	}

	var configOpts []func(*awsconfig.LoadOptions) error
	configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		logger: logger.With().Str("component", "storage").Logger(),
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		bucket: cfg.Bucket,
	}, nil
}

// ListFiles lists objects under the prefix, downloads those matching the
// extension allow-list into a new temp directory, and returns the local
// paths plus the directory for caller-owned cleanup. The temp directory is
// removed here only when the listing or a download fails.
func (s *S3Store) ListFiles(ctx context.Context, location string, extensions []string) ([]string, string, error) {
	prefix := strings.Trim(location, "/")
	if prefix != "" {
		prefix += "/"
	}

	tempDir, err := os.MkdirTemp("", "slideforge-assets-")
	if err != nil {
		return nil, "", fmt.Errorf("create temp directory: %w", err)
	}

	var paths []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			os.RemoveAll(tempDir)
			return nil, "", fmt.Errorf("list %s: %w", location, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			// Only direct children of the prefix
			if strings.Contains(strings.TrimPrefix(key, prefix), "/") {
				continue
			}
			if !matchesExtension(key, extensions) {
				continue
			}

			local := filepath.Join(tempDir, path.Base(key))
			if err := s.download(ctx, key, local); err != nil {
				os.RemoveAll(tempDir)
				return nil, "", err
			}
			paths = append(paths, local)
		}
	}

	s.logger.Info().
		Str("prefix", location).
		Int("files", len(paths)).
		Msg("downloaded remote listing")
	return paths, tempDir, nil
}

// FetchFile downloads a single object into a new temp directory.
func (s *S3Store) FetchFile(ctx context.Context, location string) (string, string, error) {
	tempDir, err := os.MkdirTemp("", "slideforge-fetch-")
	if err != nil {
		return "", "", fmt.Errorf("create temp directory: %w", err)
	}

	key := strings.Trim(location, "/")
	local := filepath.Join(tempDir, path.Base(key))
	if err := s.download(ctx, key, local); err != nil {
		os.RemoveAll(tempDir)
		return "", "", err
	}

	return local, tempDir, nil
}

// Store uploads a local file to the given object key. Invoked once after a
// successful export when an upload destination is configured.
func (s *S3Store) Store(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	key = strings.Trim(key, "/")
	s.logger.Info().Str("key", key).Msg("uploading to remote store")

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Info().Str("key", key).Msg("upload complete")
	return nil
}

func (s *S3Store) download(ctx context.Context, key, local string) error {
	s.logger.Debug().Str("key", key).Str("local", local).Msg("downloading object")

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("create %s: %w", local, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("write %s: %w", local, err)
	}
	return nil
}

func matchesExtension(key string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(key))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}
