package repositories

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// MemoryBlobStore keeps blobs in process memory. Used for local runs and tests.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Put(_ context.Context, key string, body io.ReadSeeker, size int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("memory put %s: declared %d bytes, read %d", key, size, len(data))
	}
	m.mu.Lock()
	m.blobs[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryBlobStore) Stat(_ context.Context, key string) (BlobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return BlobInfo{}, ErrBlobNotFound
	}
	return BlobInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *MemoryBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.blobs, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBlobStore) Copy(_ context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[srcKey]
	if !ok {
		return ErrBlobNotFound
	}
	m.blobs[dstKey] = bytes.Clone(data)
	return nil
}

func (m *MemoryBlobStore) PresignPut(_ context.Context, key string, expires time.Duration) (string, error) {
	return presignMemory("put", key, expires), nil
}

func (m *MemoryBlobStore) PresignGet(_ context.Context, key string, expires time.Duration) (string, error) {
	return presignMemory("get", key, expires), nil
}

// Bytes returns a copy of the blob at key.
func (m *MemoryBlobStore) Bytes(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	return bytes.Clone(data), ok
}

// Len is the number of stored blobs.
func (m *MemoryBlobStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

func presignMemory(method, key string, expires time.Duration) string {
	q := url.Values{}
	q.Set("method", method)
	q.Set("expires", expires.String())
	return "memory:///" + url.PathEscape(key) + "?" + q.Encode()
}
