// Package storage abstracts the object store that holds evidence image
// bytes. The accounting engine only ever deletes objects; uploads happen in
// the capture agent's ingestion path, outside this service.
package storage

// ObjectStore is the collaborator interface consumed by the retention sweep.
// Implementations must treat a missing object as success so sweeps stay
// idempotent.
type ObjectStore interface {
	Delete(path string) error
	DeleteMany(paths []string) []error
}
