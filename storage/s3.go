package storage

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"news-hand/config"
)

// ObjectStore ist die Ablage für Artikeltexte. Das Interface existiert,
// damit die Services gegen eine Fake-Ablage getestet werden können.
type ObjectStore interface {
	// UploadArticleText schreibt den Text unter dem Schlüssel; vorhandene
	// Objekte werden überschrieben.
	UploadArticleText(ctx context.Context, key, body string) error

	// PresignArticle stellt eine zeitlich begrenzte Abruf-URL für den
	// Schlüssel aus.
	PresignArticle(ctx context.Context, key string) (string, error)
}

// S3Store ist die S3-Implementierung des ObjectStore.
type S3Store struct {
	Client        *s3.Client
	PresignClient *s3.PresignClient
	Bucket        string
	PresignTTL    time.Duration
}

// NewS3Store erstellt den S3-Client samt Presign-Client. Ein eigener
// Endpoint (z.B. Strato HiDrive oder MinIO) und statische Credentials sind
// optional; ohne sie greift die Default-Credential-Chain der AWS-SDK.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}

	if endpoint := strings.TrimSpace(cfg.S3Endpoint); endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					SigningRegion:     cfg.S3Region,
					HostnameImmutable: true,
				}, nil
			},
		)
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	if cfg.S3Key != "" && cfg.S3Secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		Client:        client,
		PresignClient: s3.NewPresignClient(client),
		Bucket:        cfg.S3Bucket,
		PresignTTL:    cfg.PresignDuration(),
	}, nil
}

// UploadArticleText lädt den Artikeltext als text/plain ins S3 hoch.
func (s *S3Store) UploadArticleText(ctx context.Context, key, body string) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(body),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	return err
}

// PresignArticle stellt eine GET-URL mit der konfigurierten Gültigkeit aus.
func (s *S3Store) PresignArticle(ctx context.Context, key string) (string, error) {
	presigned, err := s.PresignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = s.PresignTTL
	})
	if err != nil {
		return "", err
	}
	return presigned.URL, nil
}
