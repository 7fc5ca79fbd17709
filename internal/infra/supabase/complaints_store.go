package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cleannadu/complaint-bot-go/internal/domain"
	"github.com/cleannadu/complaint-bot-go/internal/infra/resilience"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Complaints table (implements port.ComplaintStore)
// ============================================================

// complaintRow maps the complaints table columns to our domain.
type complaintRow struct {
	ID         string          `json:"id"`
	TrackingID string          `json:"tracking_id"`
	ReporterID string          `json:"reporter_id"`
	IssueType  string          `json:"issue_type"`
	Location   domain.Location `json:"location"`
	PhotoRef   string          `json:"photo_ref"`
	Language   string          `json:"language"`
	Status     string          `json:"status"`
	CreatedAt  string          `json:"created_at"`
}

func (r complaintRow) toDomain() domain.Complaint {
	t, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return domain.Complaint{
		ID:         r.ID,
		TrackingID: r.TrackingID,
		ReporterID: r.ReporterID,
		IssueType:  r.IssueType,
		Location:   r.Location,
		PhotoRef:   r.PhotoRef,
		Language:   domain.Language(r.Language),
		Status:     domain.ComplaintStatus(r.Status),
		CreatedAt:  t,
	}
}

// NextTrackingID allocates the next value of the shared sequence via the
// next_tracking_seq Postgres function, so IDs stay unique across replicas.
func (c *Client) NextTrackingID(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.NextTrackingID")
	defer span.End()

	var seq uint64
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRPC(ctx, "next_tracking_seq", nil)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(body, &seq); err != nil {
				return fmt.Errorf("failed to decode tracking sequence: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return "", &domain.ErrExternalService{Service: "supabase/complaints", Err: err}
	}

	return domain.FormatTrackingID(seq), nil
}

// Insert persists a new complaint record.
func (c *Client) Insert(ctx context.Context, complaint *domain.Complaint) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertComplaint")
	defer span.End()
	span.SetAttributes(attribute.String("complaint.tracking_id", complaint.TrackingID))

	if complaint.ID == "" {
		complaint.ID = uuid.New().String()
	}

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			_, err := c.doPost(ctx, "complaints", map[string]any{
				"id":          complaint.ID,
				"tracking_id": complaint.TrackingID,
				"reporter_id": complaint.ReporterID,
				"issue_type":  complaint.IssueType,
				"location":    complaint.Location,
				"photo_ref":   complaint.PhotoRef,
				"language":    string(complaint.Language),
				"status":      string(complaint.Status),
				"created_at":  complaint.CreatedAt.Format(time.RFC3339),
			})
			return err
		})
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/complaints", Err: err}
	}
	return nil
}

// FindByTrackingID fetches one complaint by its public tracking ID.
func (c *Client) FindByTrackingID(ctx context.Context, trackingID string) (*domain.Complaint, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindByTrackingID")
	defer span.End()
	span.SetAttributes(attribute.String("complaint.tracking_id", trackingID))

	var complaint *domain.Complaint

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("complaints?tracking_id=eq.%s&limit=1", url.QueryEscape(trackingID))
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "complaint", ID: trackingID}
			}

			var rows []complaintRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode complaint: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "complaint", ID: trackingID}
			}

			cp := rows[0].toDomain()
			complaint = &cp
			return nil
		})
	})
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/complaints", Err: err}
	}

	return complaint, nil
}

// List returns complaints ordered newest first, paginated.
func (c *Client) List(ctx context.Context, page, pageSize int) ([]domain.Complaint, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListComplaints")
	defer span.End()

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	var complaints []domain.Complaint

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("complaints?order=created_at.desc&limit=%d&offset=%d", pageSize, offset)
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			if body == nil || string(body) == "[]" {
				complaints = []domain.Complaint{}
				return nil
			}

			var rows []complaintRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode complaints: %w", err)
			}
			complaints = make([]domain.Complaint, 0, len(rows))
			for _, r := range rows {
				complaints = append(complaints, r.toDomain())
			}
			return nil
		})
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/complaints", Err: err}
	}

	return complaints, nil
}

// CountByStatus returns the number of complaints with the given status.
func (c *Client) CountByStatus(ctx context.Context, status domain.ComplaintStatus) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountByStatus")
	defer span.End()

	var count int
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("complaints?status=eq.%s&select=id", url.QueryEscape(string(status)))
			n, err := c.doCount(ctx, path)
			if err != nil {
				return err
			}
			count = n
			return nil
		})
	})
	if err != nil {
		return 0, &domain.ErrExternalService{Service: "supabase/complaints", Err: err}
	}

	return count, nil
}

// UpdateStatus sets the status of an existing complaint.
func (c *Client) UpdateStatus(ctx context.Context, trackingID string, status domain.ComplaintStatus) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("complaint.tracking_id", trackingID))

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("complaints?tracking_id=eq.%s", url.QueryEscape(trackingID))
			body, err := c.doPatch(ctx, path, map[string]any{
				"status": string(status),
			})
			if err != nil {
				return err
			}
			// PostgREST returns the updated rows; an empty array means the
			// filter matched nothing.
			if string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "complaint", ID: trackingID}
			}
			return nil
		})
	})
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return notFound
		}
		return &domain.ErrExternalService{Service: "supabase/complaints", Err: err}
	}
	return nil
}
