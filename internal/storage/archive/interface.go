// internal/storage/archive/interface.go
package archive

import "context"

// Storage is the backend contract for the result archive. Paths are
// slash-separated keys relative to the backend root.
type Storage interface {
	// Write stores a blob at the given key, creating parents as needed.
	Write(ctx context.Context, path string, data []byte) error

	// Read returns the blob stored at the given key.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns every stored key under the prefix, in the same form
	// Write received them.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the blob at the given key.
	Delete(ctx context.Context, path string) error

	// Exists reports whether a blob is stored at the given key.
	Exists(ctx context.Context, path string) (bool, error)
}
