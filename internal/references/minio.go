package references

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures an S3-compatible reference store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// MinioStore keeps reference images in an S3-compatible bucket using the same
// "<id>_<slug>/<angle>.jpg" layout as DirStore, below an optional prefix.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStore connects to the object store and ensures the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
	}

	log.Printf("[references] connected to MinIO endpoint %s, bucket=%s", cfg.Endpoint, cfg.Bucket)

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &MinioStore{client: cli, bucket: cfg.Bucket, prefix: prefix}, nil
}

// References lists all reference objects below the prefix, sorted by key.
func (s *MinioStore) References(ctx context.Context) ([]Reference, error) {
	var refs []Reference
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing references: %w", obj.Err)
		}
		if ref, ok := parseKey(strings.TrimPrefix(obj.Key, s.prefix)); ok {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key < refs[j].Key })
	return refs, nil
}

// Open downloads a reference object.
func (s *MinioStore) Open(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.prefix+key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting reference %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("reading reference %s: %w", key, err)
	}
	return data, nil
}

// Save uploads the reference image of one angle.
func (s *MinioStore) Save(ctx context.Context, identityID, displayName, angle string, data []byte) (string, error) {
	key := objectKey(identityID, displayName, angle)
	_, err := s.client.PutObject(ctx, s.bucket, s.prefix+key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/jpeg"})
	if err != nil {
		return "", fmt.Errorf("uploading reference %s: %w", key, err)
	}
	return key, nil
}

// Delete removes every object of the identity below the prefix.
func (s *MinioStore) Delete(ctx context.Context, identityID string) (int, error) {
	removed := 0
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix + identityID + "_",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return removed, fmt.Errorf("listing references of %s: %w", identityID, obj.Err)
		}
		ref, ok := parseKey(strings.TrimPrefix(obj.Key, s.prefix))
		if !ok || ref.IdentityID != identityID {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("removing reference %s: %w", ref.Key, err)
		}
		removed++
	}
	return removed, nil
}
