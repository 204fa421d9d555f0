package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"marketpipe/internal/domain"
)

type fakeSchema struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSchema) EnsureSchema(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeProvider struct {
	mu            sync.Mutex
	snapshotCalls int
	ohlcCalls     int
	snapshot      []domain.RawAssetRecord
	bars          []domain.RawBar
	err           error
}

func (f *fakeProvider) FetchSnapshot(context.Context, SnapshotParams) ([]domain.RawAssetRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotCalls++
	return f.snapshot, f.err
}

func (f *fakeProvider) FetchOHLC(context.Context, string, int) ([]domain.RawBar, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) FetchOHLCBatch(context.Context, []string, int) ([]domain.RawBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ohlcCalls++
	return f.bars, f.err
}

type fakeSnapshotStore struct {
	mu       sync.Mutex
	appended [][]domain.AssetQuote
	tracked  []string
	appendEr error
}

func (f *fakeSnapshotStore) Append(_ context.Context, quotes []domain.AssetQuote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendEr != nil {
		return f.appendEr
	}
	f.appended = append(f.appended, quotes)
	return nil
}

func (f *fakeSnapshotStore) Latest(context.Context) ([]domain.AssetQuote, error)  { return nil, nil }
func (f *fakeSnapshotStore) History(context.Context, time.Duration) ([]domain.AssetQuote, error) {
	return nil, nil
}
func (f *fakeSnapshotStore) TopN(context.Context, int) ([]domain.AssetQuote, error) { return nil, nil }
func (f *fakeSnapshotStore) TrackedAssetIDs(context.Context, int) ([]string, error) {
	return f.tracked, nil
}

type fakeBarStore struct {
	mu           sync.Mutex
	appended     [][]domain.OhlcBar
	dedupeCalls  int
	rebuiltViews []string
}

func (f *fakeBarStore) Append(_ context.Context, bars []domain.OhlcBar) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, bars)
	return nil
}

func (f *fakeBarStore) Deduplicate(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dedupeCalls++
	return 0, nil
}

func (f *fakeBarStore) RebuildView(_ context.Context, assetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuiltViews = append(f.rebuiltViews, assetID)
	return nil
}

func (f *fakeBarStore) History(context.Context, string, time.Duration) ([]domain.OhlcBar, error) {
	return nil, nil
}

type memCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newMemCache() *memCache { return &memCache{store: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = payload
	return nil
}

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }
