package storage

import (
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"go_ingest_backend/config"
)

const s3Endpoint = "s3.amazonaws.com"

// newBucketClient builds a MinIO client for either a self-hosted MinIO endpoint or AWS S3.
func newBucketClient(cfg *config.Config) (*minio.Client, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.BucketAccessID, cfg.BucketAccessKey, ""),
		Secure: cfg.UseSSL,
	}
	endpoint := cfg.BucketEndpoint
	switch cfg.StorageType {
	case TypeMinio:
		if endpoint == "" {
			return nil, fmt.Errorf("BUCKET_ENDPOINT is required for minio storage")
		}
	case TypeS3:
		endpoint = s3Endpoint
		opts.Region = cfg.BucketRegion
	default:
		return nil, fmt.Errorf("storage type %q has no bucket client", cfg.StorageType)
	}
	return minio.New(endpoint, opts)
}
