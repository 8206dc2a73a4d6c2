package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jjudge-oj/accountsvc/internal/storage"
)

// ObjectStore is an in-memory object storage bucket.
type ObjectStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	options map[string]storage.PutOptions
	PutErr  error
	ensured bool
}

func NewObjectStore(bucket string) *ObjectStore {
	return &ObjectStore{
		bucket:  bucket,
		objects: make(map[string][]byte),
		options: make(map[string]storage.PutOptions),
	}
}

func (s *ObjectStore) EnsureBucket(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = true
	return nil
}

func (s *ObjectStore) Put(_ context.Context, key string, r io.Reader, size int64, opts storage.PutOptions) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("put %s: read %d bytes, want %d", key, len(data), size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.options[key] = opts
	return nil
}

func (s *ObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", s.bucket, key, storage.ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *ObjectStore) Bucket() string {
	return s.bucket
}

func (s *ObjectStore) Close() error {
	return nil
}

// Object returns the stored bytes and upload options for key.
func (s *ObjectStore) Object(key string) ([]byte, storage.PutOptions, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, s.options[key], ok
}

// Ensured reports whether EnsureBucket was called.
func (s *ObjectStore) Ensured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensured
}
