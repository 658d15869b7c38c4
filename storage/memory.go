package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

// MemoryStore keeps files in process. It backs local runs without object
// storage and the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	// FailPut makes every Put fail with the given error.
	FailPut error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string][]byte{}}
}

func (m *MemoryStore) Put(ctx context.Context, folder, filename, contentType string, data []byte) (Object, error) {
	if m.FailPut != nil {
		return Object{}, m.FailPut
	}
	key := NewKey(folder, filename, time.Now())
	m.mu.Lock()
	m.objects[key] = append([]byte(nil), data...)
	m.mu.Unlock()
	return Object{Key: key, URL: "memory://" + key, Size: int64(len(data))}, nil
}

func (m *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
