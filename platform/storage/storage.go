package storage

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"

	"go_ingest_backend/config"
	"go_ingest_backend/pkg/apperr"
	"go_ingest_backend/pkg/logging"
)

// Storage backends selected by STORAGE_TYPE.
const (
	TypeLocal = "local"
	TypeMinio = "minio"
	TypeS3    = "s3"
)

// Opener reads a stored object. Parsers depend only on this.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ObjectStore keeps the raw uploaded files. Keys are "<fileId>/<clean name>".
type ObjectStore interface {
	Opener
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// InitStorageService returns the object store configured by cfg.StorageType.
func InitStorageService(cfg *config.Config) (ObjectStore, error) {
	switch cfg.StorageType {
	case TypeLocal, "":
		store, err := NewLocalStore(cfg.UploadDir)
		if err != nil {
			logging.Logger.Error("fail InitStorageService", "error", err)
			return nil, err
		}
		logging.Logger.Info("Storage service initialized", "type", TypeLocal, "dir", cfg.UploadDir)
		return store, nil
	}

	client, err := newBucketClient(cfg)
	if err != nil {
		logging.Logger.Error("fail InitStorageService", "error", err)
		return nil, err
	}
	ss := &Service{
		Client:      client,
		Bucket:      cfg.BucketName,
		Region:      cfg.BucketRegion,
		StorageType: cfg.StorageType,
	}
	if err := ss.EnsureBucketExists(context.Background()); err != nil {
		logging.Logger.Error("fail InitStorageService", "error", err)
		return nil, err
	}
	logging.Logger.Info("Storage service initialized",
		"type", cfg.StorageType,
		"bucket", cfg.BucketName,
		"region", cfg.BucketRegion,
	)
	return ss, nil
}

// Service stores objects in a MinIO or S3 bucket.
type Service struct {
	Client      *minio.Client
	Bucket      string
	Region      string
	StorageType string
}

func (ss *Service) EnsureBucketExists(ctx context.Context) error {
	exists, err := ss.Client.BucketExists(ctx, ss.Bucket)
	if err != nil {
		logging.Logger.Error("fail EnsureBucketExists", "error", err)
		return err
	}
	if exists {
		logging.Logger.Info("Bucket already exists", "bucket", ss.Bucket)
		return nil
	}
	err = ss.Client.MakeBucket(ctx, ss.Bucket, minio.MakeBucketOptions{Region: ss.Region})
	if err != nil {
		if ss.StorageType == TypeS3 {
			logging.Logger.Warn("Could not create S3 bucket (might exist or no permission)",
				"bucket", ss.Bucket, "error", err)
			return nil
		}
		logging.Logger.Error("fail EnsureBucketExists", "error", err)
		return err
	}
	logging.Logger.Info("Bucket created successfully", "bucket", ss.Bucket)
	return nil
}

func (ss *Service) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := ss.Client.PutObject(ctx, ss.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return apperr.Transport("put object", err)
	}
	return nil
}

// Open stats the object first so a missing key surfaces as NotFoundError
// instead of failing on the first Read.
func (ss *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := ss.Client.StatObject(ctx, ss.Bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, apperr.NotFound("object", key)
		}
		return nil, apperr.Transport("stat object", err)
	}
	obj, err := ss.Client.GetObject(ctx, ss.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperr.Transport("get object", err)
	}
	return obj, nil
}

func (ss *Service) Delete(ctx context.Context, key string) error {
	if err := ss.Client.RemoveObject(ctx, ss.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apperr.Transport("remove object", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
