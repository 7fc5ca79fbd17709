// Package store provides the in-memory complaint store, the default
// persistence backend when Supabase is not configured.
package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cleannadu/complaint-bot-go/internal/domain"

	"github.com/google/uuid"
)

// Memory is a thread-safe in-memory complaint store. The tracking counter is
// a single process-wide atomic, shared by every session, so concurrent
// filings always get distinct IDs.
type Memory struct {
	counter atomic.Uint64

	mu         sync.RWMutex
	byTracking map[string]*domain.Complaint
	ordered    []string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byTracking: make(map[string]*domain.Complaint)}
}

// NextTrackingID allocates the next tracking ID. Allocation is committed
// once issued: a failed insert later does not return the ID to the pool.
func (m *Memory) NextTrackingID(_ context.Context) (string, error) {
	return domain.FormatTrackingID(m.counter.Add(1)), nil
}

// Insert stores a complaint record. The record ID is assigned here if the
// caller left it empty.
func (m *Memory) Insert(_ context.Context, c *domain.Complaint) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.byTracking[c.TrackingID] = &cp
	m.ordered = append(m.ordered, c.TrackingID)
	return nil
}

// FindByTrackingID returns the complaint with the given tracking ID.
func (m *Memory) FindByTrackingID(_ context.Context, trackingID string) (*domain.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.byTracking[trackingID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "complaint", ID: trackingID}
	}
	cp := *c
	return &cp, nil
}

// List returns complaints in filing order, newest first.
func (m *Memory) List(_ context.Context, page, pageSize int) ([]domain.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.ordered)
	start := (page - 1) * pageSize
	if start >= n {
		return []domain.Complaint{}, nil
	}
	end := start + pageSize
	if end > n {
		end = n
	}

	out := make([]domain.Complaint, 0, end-start)
	for i := 0; i < end-start; i++ {
		// newest first: walk the order slice backwards
		id := m.ordered[n-1-start-i]
		out = append(out, *m.byTracking[id])
	}
	return out, nil
}

// CountByStatus returns the number of complaints with the given status.
func (m *Memory) CountByStatus(_ context.Context, status domain.ComplaintStatus) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, c := range m.byTracking {
		if c.Status == status {
			count++
		}
	}
	return count, nil
}

// UpdateStatus mutates the status of an existing complaint. This is the only
// mutation a record sees after filing.
func (m *Memory) UpdateStatus(_ context.Context, trackingID string, status domain.ComplaintStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byTracking[trackingID]
	if !ok {
		return &domain.ErrNotFound{Resource: "complaint", ID: trackingID}
	}
	c.Status = status
	return nil
}
