package port

import "context"

// FileStorage stores evidence files under keys relative to a storage root
type FileStorage interface {
	Save(ctx context.Context, key string, content []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) error
	// URL returns the address clients use to fetch key back
	URL(key string) string
	// KeyFromURL reverses URL; ok is false for foreign URLs
	KeyFromURL(url string) (key string, ok bool)
}
