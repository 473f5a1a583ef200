package storage

import "context"

// ObjectStore holds raw file bytes. Implementations must be safe for
// concurrent use; callers keep metadata in the database and only the bytes
// here.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
