package credential

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	items map[string]Credentials
	mutex sync.RWMutex
}

// NewMemory builds an in-process credential store.
func NewMemory() Store {
	return &memoryStore{items: make(map[string]Credentials)}
}

func (s *memoryStore) Put(_ context.Context, creds Credentials) error {
	if err := validate(creds); err != nil {
		return err
	}
	s.mutex.Lock()
	s.items[creds.Name] = creds
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, name string) (Credentials, error) {
	s.mutex.RLock()
	creds, ok := s.items[name]
	s.mutex.RUnlock()
	if !ok || !creds.Configured() {
		return Credentials{}, ErrNotConfigured
	}
	return creds, nil
}

func (s *memoryStore) Remove(_ context.Context, name string) error {
	s.mutex.Lock()
	delete(s.items, name)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	names := make([]string, 0, len(s.items))
	for name := range s.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	configured := 0
	for _, c := range s.items {
		if c.Configured() {
			configured++
		}
	}
	return map[string]any{
		"type":       DriverMemory,
		"total":      len(s.items),
		"configured": configured,
	}, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}
