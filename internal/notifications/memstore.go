package notifications

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore keeps scheduled notifications in process memory. It implements
// the same semantics as PGStore and serves two roles: the degraded fallback
// when no durable store is reachable (records then live only as long as the
// process, strictly worse than Postgres but better than nothing), and the
// store used by tests.
type MemStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]ScheduledNotification
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1, records: make(map[int64]ScheduledNotification)}
}

func (s *MemStore) CreateMany(ctx context.Context, records []ScheduledNotification) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, n := range records {
		if s.hasPendingLocked(n.BetID, n.UserID, n.Channel) {
			continue
		}
		n.ID = s.nextID
		s.nextID++
		n.Sent = false
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		s.records[n.ID] = n
		inserted++
	}
	return inserted, nil
}

func (s *MemStore) hasPendingLocked(betID int64, userID string, c Channel) bool {
	for _, r := range s.records {
		if !r.Sent && r.BetID == betID && r.UserID == userID && r.Channel == c {
			return true
		}
	}
	return false
}

func (s *MemStore) ListPending(ctx context.Context, userID string) ([]ScheduledNotification, error) {
	return s.list(func(n ScheduledNotification) bool {
		return !n.Sent && n.UserID == userID
	}), nil
}

func (s *MemStore) ListAllPending(ctx context.Context) ([]ScheduledNotification, error) {
	return s.list(func(n ScheduledNotification) bool { return !n.Sent }), nil
}

func (s *MemStore) list(keep func(ScheduledNotification) bool) []ScheduledNotification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []ScheduledNotification
	for _, n := range s.records {
		if keep(n) {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledTime.Before(result[j].ScheduledTime)
	})
	return result
}

func (s *MemStore) MarkSent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Already sent or already deleted both mean the work is done.
	if n, ok := s.records[id]; ok && !n.Sent {
		n.Sent = true
		s.records[id] = n
	}
	return nil
}

func (s *MemStore) DeleteByEvent(ctx context.Context, betID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, n := range s.records {
		if !n.Sent && n.BetID == betID {
			delete(s.records, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Get returns one record by id. Test helper.
func (s *MemStore) Get(id int64) (ScheduledNotification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.records[id]
	return n, ok
}
