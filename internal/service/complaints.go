package service

import (
	"context"
	"fmt"

	"github.com/cleannadu/complaint-bot-go/internal/domain"
	"github.com/cleannadu/complaint-bot-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var complaintsTracer = otel.Tracer("internal/service/complaints")

// ComplaintsService exposes the resolution-side operations over the same
// store the conversation engine writes to.
type ComplaintsService struct {
	store  port.ComplaintStore
	logger *zap.Logger
}

// NewComplaintsService creates the complaints service.
func NewComplaintsService(store port.ComplaintStore, logger *zap.Logger) *ComplaintsService {
	return &ComplaintsService{store: store, logger: logger}
}

// List returns a page of complaints, newest first.
func (s *ComplaintsService) List(ctx context.Context, page, pageSize int) ([]domain.Complaint, error) {
	ctx, span := complaintsTracer.Start(ctx, "ComplaintsService.List")
	defer span.End()

	return s.store.List(ctx, page, pageSize)
}

// Get fetches one complaint by tracking ID.
func (s *ComplaintsService) Get(ctx context.Context, trackingID string) (*domain.Complaint, error) {
	ctx, span := complaintsTracer.Start(ctx, "ComplaintsService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("complaint.tracking_id", trackingID))

	if !domain.ValidTrackingID(trackingID) {
		return nil, &domain.ErrValidation{Field: "tracking_id", Message: "must match CLN-XXXXXX"}
	}
	return s.store.FindByTrackingID(ctx, trackingID)
}

// UpdateStatus moves a complaint through its lifecycle. This is the only
// write the resolution side performs.
func (s *ComplaintsService) UpdateStatus(ctx context.Context, trackingID, status string) error {
	ctx, span := complaintsTracer.Start(ctx, "ComplaintsService.UpdateStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("complaint.tracking_id", trackingID),
		attribute.String("complaint.status", status),
	)

	if !domain.ValidTrackingID(trackingID) {
		return &domain.ErrValidation{Field: "tracking_id", Message: "must match CLN-XXXXXX"}
	}
	if !domain.ValidStatus(status) {
		return &domain.ErrValidation{Field: "status", Message: "must be Pending, InProgress or Resolved"}
	}

	if err := s.store.UpdateStatus(ctx, trackingID, domain.ComplaintStatus(status)); err != nil {
		return err
	}

	s.logger.Info("complaint status updated",
		zap.String("tracking_id", trackingID),
		zap.String("status", status),
	)
	return nil
}

// Summary aggregates per-status totals. The three counts are independent
// queries, so they run concurrently.
func (s *ComplaintsService) Summary(ctx context.Context) (*domain.ComplaintSummary, error) {
	ctx, span := complaintsTracer.Start(ctx, "ComplaintsService.Summary")
	defer span.End()

	var pending, inProgress, resolved int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountByStatus(gctx, domain.StatusPending)
		if err != nil {
			return fmt.Errorf("count pending: %w", err)
		}
		pending = n
		return nil
	})
	g.Go(func() error {
		n, err := s.store.CountByStatus(gctx, domain.StatusInProgress)
		if err != nil {
			return fmt.Errorf("count in_progress: %w", err)
		}
		inProgress = n
		return nil
	})
	g.Go(func() error {
		n, err := s.store.CountByStatus(gctx, domain.StatusResolved)
		if err != nil {
			return fmt.Errorf("count resolved: %w", err)
		}
		resolved = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.ComplaintSummary{
		Total:      pending + inProgress + resolved,
		Pending:    pending,
		InProgress: inProgress,
		Resolved:   resolved,
	}, nil
}
