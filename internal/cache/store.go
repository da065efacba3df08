package cache

import (
	"context"
	"sync"
	"time"

	"shiftmarket/internal/realtime"
	"shiftmarket/pkg/logger"
)

// FetchFunc loads fresh data for one group from the API.
type FetchFunc func(ctx context.Context) (interface{}, error)

type entry struct {
	fetch     FetchFunc
	value     interface{}
	stale     bool
	fetchedAt time.Time
}

// Store is a group-keyed fetch cache. Invalidating a group marks it stale and
// triggers an asynchronous refetch; readers get the last good value until the
// refetch lands.
type Store struct {
	log logger.Logger

	mu      sync.Mutex
	entries map[realtime.Group]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewStore(log logger.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		log:     log,
		entries: make(map[realtime.Group]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterGroup installs the fetcher for a group. The group starts stale so
// the first Invalidate or Refresh populates it.
func (s *Store) RegisterGroup(group realtime.Group, fetch FetchFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[group] = &entry{fetch: fetch, stale: true}
}

// Invalidate marks the group stale and refetches in the background. Unknown
// groups are ignored; the realtime client may invalidate groups this consumer
// never registered.
func (s *Store) Invalidate(group realtime.Group) {
	s.mu.Lock()
	ent, ok := s.entries[group]
	if !ok {
		s.mu.Unlock()
		return
	}
	ent.stale = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Refresh(s.ctx, group); err != nil {
			s.log.Warn("cache refresh failed", "group", string(group), "error", err)
		}
	}()
}

// Refresh synchronously refetches one group.
func (s *Store) Refresh(ctx context.Context, group realtime.Group) error {
	s.mu.Lock()
	ent, ok := s.entries[group]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	value, err := ent.fetch(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	ent.value = value
	ent.stale = false
	ent.fetchedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// Get returns the cached value and whether it is currently fresh.
func (s *Store) Get(group realtime.Group) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.entries[group]
	if !ok {
		return nil, false
	}
	return ent.value, !ent.stale
}

// GroupStatus reports per-group freshness for diagnostics.
type GroupStatus struct {
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (s *Store) Snapshot() map[string]GroupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]GroupStatus, len(s.entries))
	for group, ent := range s.entries {
		snapshot[string(group)] = GroupStatus{Stale: ent.stale, FetchedAt: ent.fetchedAt}
	}
	return snapshot
}

// Close cancels in-flight refetches and waits for them to finish.
func (s *Store) Close() {
	s.cancel()
	s.wg.Wait()
}
