package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
)

// S3Store keeps scan files in an S3-compatible bucket, one key prefix per
// scan. Relative paths are object keys.
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

var _ domain.BlobStore = (*S3Store)(nil)

// NewS3Store buat koneksi MinIO
func NewS3Store(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*S3Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", domain.ErrStorage, endpoint, err)
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: check bucket %s: %v", domain.ErrStorage, bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("%w: create bucket %s: %v", domain.ErrStorage, bucket, err)
		}
	}

	return &S3Store{client: cli, bucketName: bucket, region: region}, nil
}

// Allocate is a naming step only; buckets have no directories.
func (s *S3Store) Allocate(ctx context.Context, id domain.ScanID) (string, error) {
	return string(id), nil
}

// WriteUpload streams src to dir/logicalName plus the upload's extension.
func (s *S3Store) WriteUpload(ctx context.Context, dir, logicalName string, src io.Reader, originalName string) (string, error) {
	if src == nil {
		return "", fmt.Errorf("%w: %s upload stream is missing", domain.ErrValidation, logicalName)
	}
	key := dir + "/" + logicalName + UploadExt(originalName)

	tr := &trackedReader{r: src}
	info, err := s.client.PutObject(ctx, s.bucketName, key, tr, -1, minio.PutObjectOptions{
		ContentType: contentTypeFor(key),
	})
	if err != nil {
		if tr.err != nil {
			return "", fmt.Errorf("%w: %s upload stream: %v", domain.ErrValidation, logicalName, tr.err)
		}
		return "", fmt.Errorf("%w: put %s: %v", domain.ErrStorage, key, err)
	}
	if info.Size == 0 {
		_ = s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
		return "", fmt.Errorf("%w: %s upload is empty", domain.ErrValidation, logicalName)
	}
	return key, nil
}

// WriteArtifact serializes data to JSON under dir/name. A PutObject is all
// or nothing, the key never holds a partial object.
func (s *S3Store) WriteArtifact(ctx context.Context, dir, name string, data any) (string, error) {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encode %s: %v", domain.ErrSerialization, name, err)
	}
	key := dir + "/" + name
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(buf), int64(len(buf)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %v", domain.ErrStorage, key, err)
	}
	return key, nil
}

// Open baca object by key
func (s *S3Store) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, relPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStorage, relPath, err)
	}
	return obj, nil
}

// Remove hapus satu object; object hilang bukan error
func (s *S3Store) Remove(ctx context.Context, relPath string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, relPath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: remove %s: %v", domain.ErrStorage, relPath, err)
	}
	return nil
}

// Delete hapus semua object di prefix milik scan
func (s *S3Store) Delete(ctx context.Context, id domain.ScanID) error {
	prefix := string(id) + "/"
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("%w: list %s: %v", domain.ErrStorage, prefix, obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucketName, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("%w: remove %s: %v", domain.ErrStorage, obj.Key, err)
		}
	}
	return nil
}

// URL publik (jika bucket public), kalau private harus generate presigned URL
func (s *S3Store) URL(relPath string) string {
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL(), s.bucketName, relPath)
}

// Ping reports whether the bucket is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucketName)
	}
	return nil
}
