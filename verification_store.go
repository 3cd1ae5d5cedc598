package paygate

import (
	"context"
	"sync"
	"time"
)

// DefaultVerificationTTL is how long a verification result stays cached.
const DefaultVerificationTTL = 5 * time.Minute

// VerificationStatus represents the result of checking the store.
type VerificationStatus int

const (
	// StatusNotFound means no cached record and no in-flight verify.
	StatusNotFound VerificationStatus = iota
	// StatusCached means a cached record was found.
	StatusCached
	// StatusInFlight means another request is currently verifying this reference.
	StatusInFlight
)

// VerificationStore caches verification outcomes by reference and tracks
// in-flight verify calls so that concurrent requests for the same reference
// issue exactly one upstream call. Implementations must be safe for
// concurrent use.
//
// The interface is designed to support both in-memory and shared backends
// (Redis, database, etc.) for different deployment scenarios.
type VerificationStore interface {
	// CheckAndMark atomically checks the store and marks the reference as
	// in-flight if needed.
	//
	// Returns:
	//   - StatusCached + record + nil: a cached record exists, return it immediately
	//   - StatusInFlight + nil + done: another request is verifying, wait on done
	//   - StatusNotFound + nil + done: this request should proceed (now marked in-flight)
	//
	// The done channel must be passed to Complete() or Fail() when the
	// verify finishes.
	CheckAndMark(reference string) (VerificationStatus, *VerificationRecord, chan struct{})

	// WaitForResult waits for an in-flight verify to complete, respecting
	// context cancellation. Returns nil (no error) if the in-flight verify
	// failed and the caller should retry.
	WaitForResult(ctx context.Context, reference string, done chan struct{}) (*VerificationRecord, error)

	// Get returns the cached record for a reference, or nil when absent or
	// expired.
	Get(reference string) (*VerificationRecord, error)

	// Complete caches the record, removes the in-flight marker, and signals
	// any waiting goroutines via the done channel.
	Complete(reference string, record *VerificationRecord, done chan struct{})

	// Fail removes the in-flight marker without caching a record, signaling
	// waiters that they should retry.
	Fail(reference string, done chan struct{})

	// Put caches a record directly, outside the in-flight protocol. Used by
	// provider callbacks that deliver a result unprompted.
	Put(reference string, record *VerificationRecord)

	// Sweep evicts expired records and reports how many were removed.
	Sweep() int
}

// InMemoryVerificationStore provides an in-memory implementation of
// VerificationStore.
//
// It is suitable for single-instance deployments where cache state doesn't
// need to be shared across processes. For load-balanced clusters, implement
// VerificationStore with a shared backend.
type InMemoryVerificationStore struct {
	mu       sync.Mutex
	records  map[string]*VerificationRecord
	expiry   map[string]time.Time
	inFlight map[string]chan struct{}
	ttl      time.Duration
}

var _ VerificationStore = (*InMemoryVerificationStore)(nil)

// NewInMemoryVerificationStore creates an in-memory store with the given TTL.
// A non-positive TTL falls back to DefaultVerificationTTL.
func NewInMemoryVerificationStore(ttl time.Duration) *InMemoryVerificationStore {
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	return &InMemoryVerificationStore{
		records:  make(map[string]*VerificationRecord),
		expiry:   make(map[string]time.Time),
		inFlight: make(map[string]chan struct{}),
		ttl:      ttl,
	}
}

// CheckAndMark atomically checks the store and marks the reference as
// in-flight if needed.
func (s *InMemoryVerificationStore) CheckAndMark(reference string) (VerificationStatus, *VerificationRecord, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for cached record first
	if expiry, exists := s.expiry[reference]; exists {
		if time.Now().Before(expiry) {
			if record, ok := s.records[reference]; ok {
				return StatusCached, record, nil
			}
		}
		// Expired - clean it up
		delete(s.records, reference)
		delete(s.expiry, reference)
	}

	// Check if in-flight
	if done, exists := s.inFlight[reference]; exists {
		return StatusInFlight, nil, done
	}

	// Mark as in-flight
	done := make(chan struct{})
	s.inFlight[reference] = done
	return StatusNotFound, nil, done
}

// WaitForResult waits for an in-flight verify to complete, respecting
// context cancellation.
func (s *InMemoryVerificationStore) WaitForResult(ctx context.Context, reference string, done chan struct{}) (*VerificationRecord, error) {
	select {
	case <-done:
		// In-flight verify completed, check for a cached record
		return s.Get(reference)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get retrieves a cached record if it exists and hasn't expired.
// Returns the record and nil error if found, nil and nil otherwise.
func (s *InMemoryVerificationStore) Get(reference string) (*VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, exists := s.expiry[reference]
	if !exists {
		return nil, nil
	}

	if time.Now().After(expiry) {
		// Expired - clean it up
		delete(s.records, reference)
		delete(s.expiry, reference)
		return nil, nil
	}

	return s.records[reference], nil
}

// Complete caches the record, removes the in-flight marker, and signals any
// waiting goroutines.
func (s *InMemoryVerificationStore) Complete(reference string, record *VerificationRecord, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Cache the record
	s.records[reference] = record
	s.expiry[reference] = time.Now().Add(s.ttl)

	// Remove from in-flight
	delete(s.inFlight, reference)

	// Signal waiters
	close(done)

	// Lazy cleanup of expired entries
	s.sweepLocked()
}

// Fail removes the in-flight marker without caching a record, allowing the
// verify to be retried.
func (s *InMemoryVerificationStore) Fail(reference string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Remove from in-flight without caching
	delete(s.inFlight, reference)

	// Signal waiters (they'll retry since no record cached)
	close(done)
}

// Put caches a record directly. Callback deliveries use this path; it does
// not touch the in-flight map, so a concurrent verify still completes on
// its own and overwrites the entry.
func (s *InMemoryVerificationStore) Put(reference string, record *VerificationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[reference] = record
	s.expiry[reference] = time.Now().Add(s.ttl)
}

// Sweep evicts expired records and reports how many were removed. Intended
// to be called periodically so idle processes don't accumulate entries that
// lazy cleanup would never touch.
func (s *InMemoryVerificationStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// sweepLocked removes expired entries. Must be called with lock held.
func (s *InMemoryVerificationStore) sweepLocked() int {
	now := time.Now()
	evicted := 0
	for reference, expiry := range s.expiry {
		if now.After(expiry) {
			delete(s.records, reference)
			delete(s.expiry, reference)
			evicted++
		}
	}
	return evicted
}
