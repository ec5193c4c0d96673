// Package blob uploads patient documents and session attachments to S3
// compatible object storage.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Object describes a stored upload.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
	StoredAt    time.Time
}

// Storage is the subset of object storage the services use.
type Storage interface {
	Put(ctx context.Context, prefix, name string, r io.Reader, size int64, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3 stores objects with minio-go.
type S3 struct {
	cl     *minio.Client
	bucket string
}

func NewS3(cfg Config) (*S3, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: connect: %w", err)
	}
	return &S3{cl: cl, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3) EnsureBucket(ctx context.Context, region string) error {
	ok, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("blob: check bucket: %w", err)
	}
	if ok {
		return nil
	}
	if err := s.cl.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("blob: create bucket: %w", err)
	}
	return nil
}

// Put uploads r under prefix with a generated key. size may be -1 when unknown.
func (s *S3) Put(ctx context.Context, prefix, name string, r io.Reader, size int64, contentType string) (Object, error) {
	key := ObjectKey(prefix, name)
	info, err := s.cl.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Object{}, fmt.Errorf("blob: upload %s: %w", name, err)
	}
	u := *s.cl.EndpointURL()
	u.Path = path.Join("/", s.bucket, key)
	return Object{
		Key:         key,
		URL:         u.String(),
		ContentType: contentType,
		Size:        info.Size,
		StoredAt:    time.Now().UTC(),
	}, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	if err := s.cl.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("blob: delete %s: %w", key, err)
	}
	return nil
}

// ObjectKey builds "<prefix>/<uuid>-<sanitized name>".
func ObjectKey(prefix, name string) string {
	return strings.Trim(prefix, "/") + "/" + uuid.NewString() + "-" + sanitize(name)
}

func sanitize(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return strings.ReplaceAll(url.PathEscape(name), "%2F", "_")
}

// Memory keeps objects in process. Tests and local runs without object
// storage use it.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, prefix, name string, r io.Reader, _ int64, contentType string) (Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, fmt.Errorf("blob: read %s: %w", name, err)
	}
	key := ObjectKey(prefix, name)
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return Object{
		Key:         key,
		URL:         "memory://" + key,
		ContentType: contentType,
		Size:        int64(len(data)),
		StoredAt:    time.Now().UTC(),
	}, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Get returns the stored bytes for key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}
