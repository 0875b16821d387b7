package storage

import (
	"errors"
	"sync"
)

// MemStore is an in-memory ObjectStore for tests. Paths listed in FailPaths
// return an error from Delete, to exercise best-effort sweep behavior.
type MemStore struct {
	mu        sync.Mutex
	Objects   map[string]struct{}
	Deleted   []string
	FailPaths map[string]struct{}
}

func NewMemStore() *MemStore {
	return &MemStore{
		Objects:   make(map[string]struct{}),
		FailPaths: make(map[string]struct{}),
	}
}

func (s *MemStore) Put(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[path] = struct{}{}
}

func (s *MemStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, fail := s.FailPaths[path]; fail {
		return errors.New("storage unavailable for " + path)
	}
	delete(s.Objects, path)
	s.Deleted = append(s.Deleted, path)
	return nil
}

func (s *MemStore) DeleteMany(paths []string) []error {
	errs := make([]error, len(paths))
	for i, p := range paths {
		errs[i] = s.Delete(p)
	}
	return errs
}
