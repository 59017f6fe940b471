package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process ObjectStore used for dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func objectID(bucket, key string) string {
	return bucket + "/" + key
}

func (m *MemoryStore) Put(_ context.Context, bucket, key string, content []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := objectID(bucket, key)
	m.objects[id] = append([]byte(nil), content...)
	m.types[id] = contentType
	return nil
}

func (m *MemoryStore) List(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for id := range m.objects {
		key, ok := strings.CutPrefix(id, bucket+"/")
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[objectID(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
	}
	return append([]byte(nil), data...), nil
}

// ContentType returns the content type stored with bucket/key.
func (m *MemoryStore) ContentType(bucket, key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[objectID(bucket, key)]
}
