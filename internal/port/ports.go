// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the engine and
// handlers from concrete implementations.
package port

import (
	"context"

	"github.com/cleannadu/complaint-bot-go/internal/domain"
)

// ComplaintStore persists complaint records and owns the shared tracking-ID
// counter. Implemented by the in-memory store and the Supabase adapter.
//
// NextTrackingID must be a single atomic increment shared across all
// sessions: an ID, once issued, is never reused even if the subsequent
// Insert fails.
type ComplaintStore interface {
	NextTrackingID(ctx context.Context) (string, error)
	Insert(ctx context.Context, c *domain.Complaint) error
	FindByTrackingID(ctx context.Context, trackingID string) (*domain.Complaint, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Complaint, error)
	CountByStatus(ctx context.Context, status domain.ComplaintStatus) (int, error)
	UpdateStatus(ctx context.Context, trackingID string, status domain.ComplaintStatus) error
}
