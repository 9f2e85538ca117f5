package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IdempotencyStore remembers which event IDs a consumer has already handled.
// Kafka redelivers on rebalance and on consumer restart, and the order
// service may emit the same completion twice, so handlers sit behind this
// guard. Implementations must be safe for concurrent use.
type IdempotencyStore interface {
	// Contains reports whether the event ID was already processed.
	Contains(ctx context.Context, eventID string) (bool, error)
	// Add records the event ID after its handler succeeded.
	Add(ctx context.Context, eventID string) error
}

// MemoryIdempotencyStore keeps processed IDs in a map with a TTL. Entries are
// purged lazily when looked up past their TTL, which bounds memory as long as
// duplicates arrive within the window (they do; redeliveries are seconds
// apart, the TTL is hours).
type MemoryIdempotencyStore struct {
	mu   sync.RWMutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewMemoryIdempotencyStore creates a store whose entries expire after ttl.
func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// Contains reports whether eventID is recorded and still fresh, dropping the
// entry when it has expired.
func (s *MemoryIdempotencyStore) Contains(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	recordedAt, ok := s.seen[eventID]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if time.Since(recordedAt) > s.ttl {
		s.mu.Lock()
		delete(s.seen, eventID)
		s.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// Add records eventID with the current time.
func (s *MemoryIdempotencyStore) Add(_ context.Context, eventID string) error {
	s.mu.Lock()
	s.seen[eventID] = time.Now()
	s.mu.Unlock()
	return nil
}

// Len returns the number of recorded IDs, expired entries included.
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// IdempotentHandler wraps inner so duplicate deliveries of the same event are
// acknowledged without reprocessing. The guard fails open: when the store is
// unreachable a message is handled again rather than dropped, because every
// handler behind it is idempotent at the database level anyway.
func IdempotentHandler(store IdempotencyStore, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		if event.EventID == "" {
			// Nothing to deduplicate on.
			return inner(ctx, event)
		}

		seen, err := store.Contains(ctx, event.EventID)
		if err != nil {
			logger.Warn("idempotency store lookup failed, processing anyway",
				slog.String("event_id", event.EventID),
				slog.String("error", err.Error()),
			)
			return inner(ctx, event)
		}

		if seen {
			ConsumerMessagesDuplicate.WithLabelValues(event.EventType).Inc()
			logger.Debug("skipping duplicate event",
				slog.String("event_id", event.EventID),
				slog.String("event_type", event.EventType),
				slog.String("aggregate_id", event.AggregateID),
			)
			return nil
		}

		if err := inner(ctx, event); err != nil {
			return err
		}

		// Record only after success so a failed handler gets retried.
		if addErr := store.Add(ctx, event.EventID); addErr != nil {
			logger.Warn("failed to record processed event",
				slog.String("event_id", event.EventID),
				slog.String("error", addErr.Error()),
			)
		}

		return nil
	}
}
