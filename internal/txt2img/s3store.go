package txt2img

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config selects a bucket on AWS S3 or an S3-compatible provider.
type S3Config struct {
	Bucket      string `json:"bucket" yaml:"bucket" toml:"bucket"`
	Region      string `json:"region" yaml:"region" toml:"region"`
	EndpointURL string `json:"endpoint_url" yaml:"endpoint_url" toml:"endpoint_url"`
	AccessKey   string `json:"access_key" yaml:"access_key" toml:"access_key"`
	SecretKey   string `json:"secret_key" yaml:"secret_key" toml:"secret_key"`
	Folder      string `json:"folder" yaml:"folder" toml:"folder"`
	// VanityURL is the public prefix objects are served from, if any.
	VanityURL string `json:"vanity_url" yaml:"vanity_url" toml:"vanity_url"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool { return strings.TrimSpace(c.Bucket) != "" }

// putter is the part of *s3.Client the store needs.
type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads artifacts as public-read objects.
type S3Store struct {
	client putter
	cfg    S3Config
}

// NewS3Store builds a store with static credentials. An empty region means
// "auto", which S3-compatible providers such as R2 expect.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if !cfg.Enabled() {
		return nil, errors.New("txt2img: s3 bucket is not set")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("txt2img: aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	})
	return &S3Store{client: client, cfg: cfg}, nil
}

func (s *S3Store) key(name string) string {
	folder := strings.Trim(s.cfg.Folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// Save uploads data and returns its public URL.
func (s *S3Store) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := s.key(name)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("txt2img: upload %s: %w", key, err)
	}
	return s.publicURL(key)
}

func (s *S3Store) publicURL(key string) (string, error) {
	if s.cfg.VanityURL != "" {
		return strings.TrimSuffix(s.cfg.VanityURL, "/") + "/" + key, nil
	}
	endpoint := strings.TrimSuffix(s.cfg.EndpointURL, "/")
	switch {
	case endpoint == "":
		region := s.cfg.Region
		if region == "" || region == "auto" {
			return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.Bucket, key), nil
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, region, key), nil
	case strings.Contains(endpoint, "digitaloceanspaces.com"):
		return fmt.Sprintf("https://%s.%s.cdn.digitaloceanspaces.com/%s", s.cfg.Bucket, s.cfg.Region, key), nil
	case strings.Contains(endpoint, "amazonaws.com"):
		host := strings.TrimPrefix(endpoint, "https://")
		return fmt.Sprintf("https://%s.%s/%s", s.cfg.Bucket, host, key), nil
	default:
		return "", fmt.Errorf("txt2img: uploaded %s but cannot infer a public URL for %s; set s3.vanity_url", key, endpoint)
	}
}
