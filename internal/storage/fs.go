package storage

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FSStore deletes evidence objects from a local directory tree. Paths stored
// on capture rows are relative to BaseDir.
type FSStore struct {
	BaseDir string
	mu      sync.Mutex
}

func NewFSStore(baseDir string) *FSStore {
	os.MkdirAll(baseDir, 0755)
	return &FSStore{BaseDir: baseDir}
}

func (s *FSStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clean := filepath.Clean(path)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil // never reach outside the base dir
	}
	err := os.Remove(filepath.Join(s.BaseDir, clean))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FSStore) DeleteMany(paths []string) []error {
	errs := make([]error, len(paths))
	for i, p := range paths {
		errs[i] = s.Delete(p)
	}
	return errs
}
