package memory

import (
	"context"
	"sort"
	"sync"
)

type Namespace string

const (
	Creeps Namespace = "creeps"
	Spawns Namespace = "spawns"
	Flags  Namespace = "flags"
	Rooms  Namespace = "rooms"
	Config Namespace = "config"
)

// Namespaces lists every namespace the controller reads or writes.
var Namespaces = []Namespace{Creeps, Spawns, Flags, Rooms, Config}

// Store is the host's persistent key-value region. Records are opaque JSON.
type Store interface {
	Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, ns Namespace, key string, rec []byte) error
	Delete(ctx context.Context, ns Namespace, key string) error
	// Keys returns the keys of ns in ascending order.
	Keys(ctx context.Context, ns Namespace) ([]string, error)
}

var _ Store = (*MemStore)(nil)

// MemStore keeps records in process memory.
type MemStore struct {
	mu   sync.RWMutex
	data map[Namespace]map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[Namespace]map[string][]byte{}}
}

func (s *MemStore) Get(_ context.Context, ns Namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[ns][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (s *MemStore) Set(_ context.Context, ns Namespace, key string, rec []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.data[ns]
	if m == nil {
		m = map[string][]byte{}
		s.data[ns] = m
	}
	m[key] = append([]byte(nil), rec...)
	return nil
}

func (s *MemStore) Delete(_ context.Context, ns Namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[ns], key)
	return nil
}

func (s *MemStore) Keys(_ context.Context, ns Namespace) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data[ns]))
	for k := range s.data[ns] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}
