// Package memory provides a thread-safe in-memory implementation of
// storage.ObjectStore. Suitable for testing, demos, and single-process use.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paragondesignz/spachat/storage"
)

type object struct {
	data []byte
	info storage.ObjectInfo
}

// Store is a thread-safe in-memory implementation of storage.ObjectStore.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

var _ storage.ObjectStore = (*Store)(nil)

// NewStore creates a new empty in-memory Store.
func NewStore() *Store {
	return &Store{
		objects: make(map[string]object),
		now:     time.Now,
	}
}

// SetClock overrides the upload timestamp source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) (storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := storage.ObjectInfo{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedAt:  s.now().UTC(),
	}
	s.objects[key] = object{
		data: append([]byte(nil), data...),
		info: info,
	}
	return info, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *Store) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var infos []storage.ObjectInfo
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, obj.info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}
