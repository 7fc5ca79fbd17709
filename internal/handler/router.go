package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cleannadu/complaint-bot-go/internal/domain"
	"github.com/cleannadu/complaint-bot-go/internal/engine"
	"github.com/cleannadu/complaint-bot-go/internal/infra/observability"
	"github.com/cleannadu/complaint-bot-go/internal/infra/resilience"
	"github.com/cleannadu/complaint-bot-go/internal/port"
	"github.com/cleannadu/complaint-bot-go/internal/service"
	"github.com/cleannadu/complaint-bot-go/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps bundles everything the router needs.
type Deps struct {
	Engine     *engine.Engine
	Sessions   *session.Store
	Store      port.ComplaintStore
	Complaints *service.ComplaintsService
	Auth       *service.AuthService
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Bulkhead   *resilience.Bulkhead

	TwilioAuthToken string
	VerifyToken     string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(d.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/", bannerHandler())
	r.Get("/healthz", healthzHandler(d.Store))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- Chat webhook ---
	r.Get("/webhook", verifyHandler(d.VerifyToken, d.Logger))
	r.Group(func(r chi.Router) {
		r.Use(TwilioSignatureMiddleware(d.TwilioAuthToken, d.Logger))
		r.Post("/webhook", webhookHandler(d.Engine, d.Sessions, d.Bulkhead, d.Logger))
	})

	// --- API v1 (resolution side) ---
	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", loginHandler(d.Auth, d.Logger))
		r.Get("/metrics/bot", botMetricsHandler(d.Metrics))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, d.Logger))
			r.Get("/complaints", listComplaintsHandler(d.Complaints, d.Logger))
			r.Get("/complaints/summary", complaintsSummaryHandler(d.Complaints, d.Logger))
			r.Get("/complaints/{trackingId}", getComplaintHandler(d.Complaints, d.Logger))
			r.Put("/complaints/{trackingId}/status", updateStatusHandler(d.Complaints, d.Logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func bannerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "cleannadu-complaint-bot",
			"status":  "running",
		})
	}
}

func healthzHandler(store port.ComplaintStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := "healthy"
		if _, err := store.CountByStatus(r.Context(), domain.StatusPending); err != nil {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"checked_at": time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func botMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetBotSnapshot())
	}
}

// ============================================================
// Auth — POST /v1/auth/login
// ============================================================

func loginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req service.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		resp, err := authSvc.Login(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Complaints (resolution API)
// ============================================================

func listComplaintsHandler(svc *service.ComplaintsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/complaints")
		defer span.End()

		page, pageSize := parsePagination(r)
		complaints, err := svc.List(ctx, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"complaints": complaints,
			"page":       page,
			"page_size":  pageSize,
		})
	}
}

func getComplaintHandler(svc *service.ComplaintsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/complaints/{trackingId}")
		defer span.End()

		trackingID := chi.URLParam(r, "trackingId")
		span.SetAttributes(attribute.String("complaint.tracking_id", trackingID))

		complaint, err := svc.Get(ctx, trackingID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, complaint)
	}
}

func updateStatusHandler(svc *service.ComplaintsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/complaints/{trackingId}/status")
		defer span.End()

		trackingID := chi.URLParam(r, "trackingId")
		span.SetAttributes(attribute.String("complaint.tracking_id", trackingID))

		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.UpdateStatus(ctx, trackingID, body.Status); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func complaintsSummaryHandler(svc *service.ComplaintsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/complaints/summary")
		defer span.End()

		summary, err := svc.Summary(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
