package application

import "context"

// ExtractCache short-circuits the Extract step when the same run parameters
// recur within the cache TTL. Payloads are the raw extraction results as JSON.
type ExtractCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte) error
}

// NoopCache disables extract caching.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, string, []byte) error         { return nil }
