package handler

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/cleannadu/complaint-bot-go/internal/domain"
	"github.com/cleannadu/complaint-bot-go/internal/engine"
	"github.com/cleannadu/complaint-bot-go/internal/infra/resilience"
	"github.com/cleannadu/complaint-bot-go/internal/session"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// twimlResponse is the XML body the chat transport expects back: the reply
// text wrapped in a Response/Message envelope.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// webhookHandler receives one inbound chat message and answers with TwiML.
// The bulkhead caps how many turns run concurrently; per-user ordering is
// enforced by the session store, not here.
func webhookHandler(eng *engine.Engine, sessions *session.Store, bulkhead *resilience.Bulkhead, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /webhook")
		defer span.End()

		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "malformed form body")
			return
		}

		msg := parseInbound(r)
		if msg.From == "" {
			writeError(w, http.StatusBadRequest, "From is required")
			return
		}
		span.SetAttributes(attribute.String("message.from", msg.From))

		if err := bulkhead.Acquire(ctx); err != nil {
			logger.Warn("webhook: bulkhead saturated", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "service busy")
			return
		}
		defer bulkhead.Release()

		var reply string
		sessions.Do(msg.From, func(sess *domain.Session) {
			reply = eng.HandleTurn(ctx, sess, msg)
		})

		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		if err := xml.NewEncoder(w).Encode(twimlResponse{Message: reply}); err != nil {
			logger.Error("webhook: failed to encode response", zap.Error(err))
		}
	}
}

// parseInbound maps the transport's form fields onto our message shape.
func parseInbound(r *http.Request) *domain.InboundMessage {
	msg := &domain.InboundMessage{
		From: r.PostFormValue("From"),
		Body: r.PostFormValue("Body"),
	}
	if n, err := strconv.Atoi(r.PostFormValue("NumMedia")); err == nil {
		msg.NumMedia = n
	}
	if msg.NumMedia > 0 {
		msg.MediaURL = r.PostFormValue("MediaUrl0")
	}
	if lat, err := strconv.ParseFloat(r.PostFormValue("Latitude"), 64); err == nil {
		if lng, err := strconv.ParseFloat(r.PostFormValue("Longitude"), 64); err == nil {
			msg.Latitude = &lat
			msg.Longitude = &lng
		}
	}
	return msg
}

// verifyHandler answers the GET /webhook subscription handshake: echo the
// challenge when the mode and token match, reject otherwise.
func verifyHandler(verifyToken string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := r.URL.Query().Get("hub.mode")
		token := r.URL.Query().Get("hub.verify_token")
		challenge := r.URL.Query().Get("hub.challenge")

		if mode == "subscribe" && verifyToken != "" && token == verifyToken {
			logger.Info("webhook verified")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(challenge))
			return
		}

		logger.Warn("webhook verification rejected",
			zap.String("mode", mode),
			zap.String("remote_addr", r.RemoteAddr),
		)
		w.WriteHeader(http.StatusForbidden)
	}
}
