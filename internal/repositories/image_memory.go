package repositories

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"storefront/internal/models"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryImageStore keeps images in a map. Used in tests and local runs.
type MemoryImageStore struct {
	objects map[string]memoryObject
	mu      sync.RWMutex
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryImageStore) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = memoryObject{data: data, contentType: contentType}
	return nil
}

func (s *MemoryImageStore) Open(ctx context.Context, path string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, "", fmt.Errorf("%s: %w", path, models.ErrImageNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (s *MemoryImageStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return fmt.Errorf("%s: %w", path, models.ErrImageNotFound)
	}
	delete(s.objects, path)
	return nil
}

// Len reports how many objects are stored.
func (s *MemoryImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
