package idempotency

import (
	"context"
	"sync"
	"time"
)

// Windows used by the pipeline. Inbound guards re-entrant execution of the
// whole pipeline for a duplicate event; outbound guards duplicate delivery of
// the same response content.
const (
	DefaultInboundWindow  = 500 * time.Millisecond
	DefaultOutboundWindow = 10 * time.Second
	DefaultRetention      = 60 * time.Second
)

// Store tracks message fingerprints across concurrent pipeline invocations.
// Implementations must be safe for concurrent use. CheckAndMark* returns true
// when the fingerprint was not seen inside the window and has now been marked.
type Store interface {
	CheckAndMarkInbound(ctx context.Context, fingerprint string) (bool, error)
	CheckAndMarkOutbound(ctx context.Context, fingerprint string) (bool, error)
}

// MemoryStore is the single-process Store backed by in-memory maps with TTL
// eviction. All map access is serialized by one mutex; the lock is never held
// across I/O.
type MemoryStore struct {
	inboundWindow  time.Duration
	outboundWindow time.Duration
	retention      time.Duration
	now            func() time.Time

	mu       sync.Mutex
	inbound  map[string]time.Time // execution tokens: fingerprint -> first seen
	outbound map[string]time.Time // delivery records: fingerprint -> last sent
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithWindows overrides the inbound and outbound dedup windows.
func WithWindows(inbound, outbound time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if inbound > 0 {
			s.inboundWindow = inbound
		}
		if outbound > 0 {
			s.outboundWindow = outbound
		}
	}
}

// WithRetention overrides how long entries survive before eviction.
func WithRetention(retention time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates a Store for a single-process deployment.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		inboundWindow:  DefaultInboundWindow,
		outboundWindow: DefaultOutboundWindow,
		retention:      DefaultRetention,
		now:            time.Now,
		inbound:        make(map[string]time.Time),
		outbound:       make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckAndMarkInbound records an execution token for the fingerprint unless an
// unexpired one already exists.
func (s *MemoryStore) CheckAndMarkInbound(_ context.Context, fingerprint string) (bool, error) {
	return s.checkAndMark(s.inbound, fingerprint, s.inboundWindow), nil
}

// CheckAndMarkOutbound records a delivery record for the fingerprint unless an
// unexpired one already exists. An expired record is refreshed.
func (s *MemoryStore) CheckAndMarkOutbound(_ context.Context, fingerprint string) (bool, error) {
	return s.checkAndMark(s.outbound, fingerprint, s.outboundWindow), nil
}

func (s *MemoryStore) checkAndMark(m map[string]time.Time, fingerprint string, window time.Duration) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Opportunistic eviction on every call bounds memory without a sweeper
	// goroutine.
	for key, seen := range s.inbound {
		if now.Sub(seen) > s.retention {
			delete(s.inbound, key)
		}
	}
	for key, seen := range s.outbound {
		if now.Sub(seen) > s.retention {
			delete(s.outbound, key)
		}
	}

	if seen, ok := m[fingerprint]; ok && now.Sub(seen) < window {
		return false
	}
	m[fingerprint] = now
	return true
}
