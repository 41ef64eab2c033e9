package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Storage persists generated artifacts (bank files, journal exports) and
// returns a stable URI for them.
type Storage interface {
	Put(ctx context.Context, name string, contentType string, data []byte) (string, error)
}

type gcsStorage struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCS opens a Cloud Storage client. credentialsJSON may be empty to use
// application default credentials.
func NewGCS(ctx context.Context, bucket, prefix, credentialsJSON string) (Storage, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &gcsStorage{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *gcsStorage) Put(ctx context.Context, name string, contentType string, data []byte) (string, error) {
	object := name
	if s.prefix != "" {
		object = s.prefix + "/" + name
	}

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
}

// Memory keeps artifacts in process. It backs local runs without a bucket
// and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (m *Memory) Put(ctx context.Context, name string, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[name] = cp
	return "mem://" + name, nil
}

func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[name]
	return data, ok
}
