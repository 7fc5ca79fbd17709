// Package engine implements the conversation state machine. Each inbound
// message is resolved to exactly one reply through a fixed pipeline:
//
//  1. a pending language confirmation owns the whole turn;
//  2. language intents are classified (direct tier commits, fuzzy tier asks);
//  3. global commands are intercepted, EXIT > MENU > TRACK > FILE;
//  4. the current state handles whatever remains;
//  5. an unrecognized state resets the session instead of wedging it.
//
// The engine mutates the session it is handed; the caller is responsible for
// serializing turns per user (see the session package).
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cleannadu/complaint-bot-go/internal/catalog"
	"github.com/cleannadu/complaint-bot-go/internal/domain"
	"github.com/cleannadu/complaint-bot-go/internal/infra/observability"
	"github.com/cleannadu/complaint-bot-go/internal/intent"
	"github.com/cleannadu/complaint-bot-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("internal/engine")

// defaultIssueType tags complaints filed through the main menu.
const defaultIssueType = "cleanliness"

// Engine drives one conversation turn at a time.
type Engine struct {
	catalog *catalog.Catalog
	store   port.ComplaintStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a conversation engine.
func New(cat *catalog.Catalog, store port.ComplaintStore, metrics *observability.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		catalog: cat,
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleTurn processes one inbound message against the user's session and
// returns the single reply to send. It never panics outward: a panic in any
// handler is converted into a localized apology so the user is never left
// without an answer.
func (e *Engine) HandleTurn(ctx context.Context, sess *domain.Session, msg *domain.InboundMessage) (reply string) {
	ctx, span := tracer.Start(ctx, "engine.HandleTurn")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.state", string(sess.State)),
		attribute.String("session.language", string(sess.Language)),
	)

	entryState := string(sess.State)
	start := e.now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn handler panicked",
				zap.Any("panic", r),
				zap.String("state", entryState),
			)
			e.metrics.IncrTurn("error")
			reply = e.catalog.Render(sess.Language, catalog.KeyApology, nil)
			return
		}
		e.metrics.IncrTurn("ok")
	}()
	defer func() {
		e.metrics.RecordTurnDuration(entryState, e.now().Sub(start))
	}()

	return e.process(ctx, sess, msg)
}

func (e *Engine) process(ctx context.Context, sess *domain.Session, msg *domain.InboundMessage) string {
	// A pending confirmation consumes the turn before anything else: the
	// user was asked a direct YES/NO question and the answer must not be
	// re-interpreted as a command or a new language intent.
	if sess.State == domain.StateLanguageConfirmation {
		return e.handleConfirmation(sess, msg)
	}

	// Language switching works from any other state, but only toward a
	// DIFFERENT language: an alias of the active language is ordinary text
	// (an address containing "English Colony" must not eat the turn).
	// Inside language selection the state handler owns detection itself,
	// including the 1/2/3 shortcuts.
	if sess.State != domain.StateLanguageSelection {
		if lang, tier := intent.ClassifyLanguage(msg.Body); tier != intent.TierNone && lang != sess.Language {
			switch tier {
			case intent.TierDirect:
				return e.commitLanguage(sess, lang)
			case intent.TierFuzzy:
				return e.askConfirmation(sess, lang)
			}
		}
	}

	// Global commands beat whatever the current state expects. A user who
	// types "exit" mid-filing means exit, not an address.
	if gi := intent.ClassifyGlobalIntent(msg.Body); gi != intent.IntentNone {
		e.metrics.IncrIntent(string(gi))
		switch gi {
		case intent.IntentExit:
			return e.handleExit(sess)
		case intent.IntentMenu:
			return e.gotoMenu(sess)
		case intent.IntentTrack:
			return e.gotoTracking(sess)
		case intent.IntentFile:
			return e.startFiling(sess)
		}
	}

	switch sess.State {
	case domain.StateLanguageSelection:
		return e.handleLanguageSelection(sess, msg)
	case domain.StateMainMenu:
		return e.handleMainMenu(sess, msg)
	case domain.StateWaitingPhoto:
		return e.handleWaitingPhoto(sess, msg)
	case domain.StateWaitingLocationChoice:
		return e.handleLocationChoice(ctx, sess, msg)
	case domain.StateWaitingGPSLocation:
		return e.handleGPSLocation(ctx, sess, msg)
	case domain.StateWaitingAddressText:
		return e.handleAddressText(ctx, sess, msg)
	case domain.StateWaitingTrackingID:
		return e.handleTrackingID(ctx, sess, msg)
	}

	// Unknown state (e.g. after a deploy that dropped a state constant).
	// Reset to language selection, same as the MENU command, instead of
	// looping on errors.
	e.logger.Warn("session in unknown state, resetting", zap.String("state", string(sess.State)))
	sess.ClearDraft()
	sess.State = domain.StateLanguageSelection
	return e.catalog.Render(sess.Language, catalog.KeyWelcome, nil)
}

// ============================================================
// Language handling
// ============================================================

// commitLanguage applies a direct-tier language switch and re-renders the
// prompt of wherever the user currently is, in the new language. Selecting
// the language already active is idempotent and produces the same reply.
func (e *Engine) commitLanguage(sess *domain.Session, lang domain.Language) string {
	sess.Language = lang
	e.metrics.IncrLanguageSelection(lang)

	changed := e.catalog.Render(lang, catalog.KeyLanguageChanged, nil)
	if sess.State == domain.StateLanguageSelection {
		sess.State = domain.StateMainMenu
	}
	return changed + "\n\n" + e.promptFor(sess)
}

// askConfirmation parks the session in the confirmation state. The question
// is rendered in the CANDIDATE language so the user sees what they would get.
func (e *Engine) askConfirmation(sess *domain.Session, lang domain.Language) string {
	sess.PendingLanguage = lang
	sess.PreviousState = sess.State
	sess.State = domain.StateLanguageConfirmation
	return e.catalog.Render(lang, catalog.KeyLanguageConfirm, nil)
}

// handleConfirmation resolves a pending fuzzy language match. Anything that
// is not an explicit affirmative counts as NO.
func (e *Engine) handleConfirmation(sess *domain.Session, msg *domain.InboundMessage) string {
	pending := sess.PendingLanguage
	previous := sess.PreviousState
	sess.PendingLanguage = domain.LangUnset
	sess.PreviousState = ""

	if intent.IsAffirmative(msg.Body) {
		sess.State = previous
		return e.commitLanguage(sess, pending)
	}

	sess.State = previous
	return e.promptFor(sess)
}

func (e *Engine) handleLanguageSelection(sess *domain.Session, msg *domain.InboundMessage) string {
	if lang, ok := intent.NumericLanguage(msg.Body); ok {
		return e.commitLanguage(sess, lang)
	}
	if lang, tier := intent.ClassifyLanguage(msg.Body); tier != intent.TierNone {
		if tier == intent.TierDirect {
			return e.commitLanguage(sess, lang)
		}
		return e.askConfirmation(sess, lang)
	}
	return e.catalog.Render(sess.Language, catalog.KeyWelcome, nil)
}

// ============================================================
// Global commands
// ============================================================

// handleExit ends the conversation. The committed language survives the
// reset so the farewell (and a future return visit) stays localized.
func (e *Engine) handleExit(sess *domain.Session) string {
	farewell := e.catalog.Render(sess.Language, catalog.KeyFarewell, nil)
	sess.State = domain.StateLanguageSelection
	sess.ClearDraft()
	sess.PendingLanguage = domain.LangUnset
	sess.PreviousState = ""
	return farewell
}

// gotoMenu resets the conversation the same way EXIT does, but instead of a
// farewell it re-opens with the language choice. The committed language is
// kept so the prompt renders localized.
func (e *Engine) gotoMenu(sess *domain.Session) string {
	sess.ClearDraft()
	sess.State = domain.StateLanguageSelection
	return e.catalog.Render(sess.Language, catalog.KeyWelcome, nil)
}

func (e *Engine) gotoTracking(sess *domain.Session) string {
	sess.ClearDraft()
	sess.State = domain.StateWaitingTrackingID
	return e.catalog.Render(sess.Language, catalog.KeyTrackPrompt, nil)
}

func (e *Engine) startFiling(sess *domain.Session) string {
	sess.ClearDraft()
	sess.Draft.IssueType = defaultIssueType
	sess.State = domain.StateWaitingPhoto
	return e.catalog.Render(sess.Language, catalog.KeyPhotoPrompt, nil)
}

// ============================================================
// State handlers
// ============================================================

func (e *Engine) handleMainMenu(sess *domain.Session, msg *domain.InboundMessage) string {
	switch strings.TrimSpace(msg.Body) {
	case "1":
		return e.startFiling(sess)
	case "2":
		return e.gotoTracking(sess)
	}
	return e.catalog.Render(sess.Language, catalog.KeyInvalidOption, nil) + "\n\n" + e.menuReply(sess)
}

func (e *Engine) handleWaitingPhoto(sess *domain.Session, msg *domain.InboundMessage) string {
	if msg.NumMedia > 0 {
		sess.Draft.PhotoRef = msg.MediaURL
		sess.State = domain.StateWaitingLocationChoice
		return e.catalog.Render(sess.Language, catalog.KeyLocationChoice, nil)
	}
	return e.catalog.Render(sess.Language, catalog.KeyPhotoPrompt, nil)
}

func (e *Engine) handleLocationChoice(ctx context.Context, sess *domain.Session, msg *domain.InboundMessage) string {
	// Users routinely skip the menu and just share the pin.
	if msg.HasLocation() {
		return e.finalize(ctx, sess, msg, domain.Location{
			Kind:      domain.LocationGPS,
			Latitude:  *msg.Latitude,
			Longitude: *msg.Longitude,
		})
	}

	switch strings.TrimSpace(msg.Body) {
	case "1":
		sess.State = domain.StateWaitingGPSLocation
		return e.catalog.Render(sess.Language, catalog.KeyGPSPrompt, nil)
	case "2":
		sess.State = domain.StateWaitingAddressText
		return e.catalog.Render(sess.Language, catalog.KeyAddressPrompt, nil)
	}
	return e.catalog.Render(sess.Language, catalog.KeyInvalidOption, nil) + "\n\n" +
		e.catalog.Render(sess.Language, catalog.KeyLocationChoice, nil)
}

func (e *Engine) handleGPSLocation(ctx context.Context, sess *domain.Session, msg *domain.InboundMessage) string {
	if msg.HasLocation() {
		return e.finalize(ctx, sess, msg, domain.Location{
			Kind:      domain.LocationGPS,
			Latitude:  *msg.Latitude,
			Longitude: *msg.Longitude,
		})
	}
	// The GPS prompt offers typing the address as an escape hatch.
	if body := strings.TrimSpace(msg.Body); body != "" {
		return e.finalize(ctx, sess, msg, domain.Location{
			Kind:    domain.LocationAddress,
			Address: body,
		})
	}
	return e.catalog.Render(sess.Language, catalog.KeyGPSPrompt, nil)
}

func (e *Engine) handleAddressText(ctx context.Context, sess *domain.Session, msg *domain.InboundMessage) string {
	if msg.HasLocation() {
		return e.finalize(ctx, sess, msg, domain.Location{
			Kind:      domain.LocationGPS,
			Latitude:  *msg.Latitude,
			Longitude: *msg.Longitude,
		})
	}
	if body := strings.TrimSpace(msg.Body); body != "" {
		return e.finalize(ctx, sess, msg, domain.Location{
			Kind:    domain.LocationAddress,
			Address: body,
		})
	}
	if msg.NumMedia > 0 {
		return e.finalize(ctx, sess, msg, domain.Location{
			Kind:     domain.LocationMedia,
			MediaRef: msg.MediaURL,
		})
	}
	return e.catalog.Render(sess.Language, catalog.KeyAddressPrompt, nil)
}

func (e *Engine) handleTrackingID(ctx context.Context, sess *domain.Session, msg *domain.InboundMessage) string {
	id := strings.ToUpper(strings.TrimSpace(msg.Body))
	if !domain.ValidTrackingID(id) {
		e.metrics.IncrTrackingLookup("invalid")
		return e.catalog.Render(sess.Language, catalog.KeyInvalidTrackingID, nil)
	}

	c, err := e.store.FindByTrackingID(ctx, id)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			// Stay here: mistyping one digit should not force the user
			// back through the menu.
			e.metrics.IncrTrackingLookup("not_found")
			return e.catalog.Render(sess.Language, catalog.KeyNotFound, nil)
		}
		e.metrics.IncrTrackingLookup("error")
		e.metrics.IncrStoreError("find")
		e.logger.Error("tracking lookup failed", zap.String("tracking_id", id), zap.Error(err))
		return e.catalog.Render(sess.Language, catalog.KeyRetryLater, nil)
	}

	e.metrics.IncrTrackingLookup("found")
	sess.State = domain.StateMainMenu
	details := e.catalog.Render(sess.Language, catalog.KeyStatus, map[string]string{
		"id":       c.TrackingID,
		"status":   string(c.Status),
		"location": c.Location.String(),
		"date":     c.CreatedAt.Format("02 Jan 2006"),
	})
	return details + "\n\n" + e.menuReply(sess)
}

// ============================================================
// Finalization
// ============================================================

// finalize allocates a tracking ID, persists the complaint and returns the
// confirmation. On store failure the session keeps its state AND its draft,
// so the user can retry by resending the same message.
func (e *Engine) finalize(ctx context.Context, sess *domain.Session, msg *domain.InboundMessage, loc domain.Location) string {
	ctx, span := tracer.Start(ctx, "engine.finalize")
	defer span.End()

	trackingID, err := e.store.NextTrackingID(ctx)
	if err != nil {
		e.metrics.IncrStoreError("next_tracking_id")
		e.logger.Error("tracking id allocation failed", zap.Error(err))
		return e.catalog.Render(sess.Language, catalog.KeyRetryLater, nil)
	}

	issueType := sess.Draft.IssueType
	if issueType == "" {
		issueType = defaultIssueType
	}
	c := &domain.Complaint{
		TrackingID: trackingID,
		ReporterID: msg.From,
		IssueType:  issueType,
		Location:   loc,
		PhotoRef:   sess.Draft.PhotoRef,
		Language:   sess.Language.OrDefault(),
		Status:     domain.StatusPending,
		CreatedAt:  e.now().UTC(),
	}
	if err := e.store.Insert(ctx, c); err != nil {
		e.metrics.IncrStoreError("insert")
		e.logger.Error("complaint insert failed", zap.String("tracking_id", trackingID), zap.Error(err))
		return e.catalog.Render(sess.Language, catalog.KeyRetryLater, nil)
	}

	e.metrics.IncrComplaintFiled()
	e.logger.Info("complaint registered",
		zap.String("tracking_id", trackingID),
		zap.String("location_kind", string(loc.Kind)),
		zap.String("language", string(c.Language)),
	)
	span.SetAttributes(attribute.String("complaint.tracking_id", trackingID))

	sess.ClearDraft()
	sess.State = domain.StateMainMenu
	registered := e.catalog.Render(sess.Language, catalog.KeyRegistered, map[string]string{"id": trackingID})
	return registered + "\n\n" + e.menuReply(sess)
}

// ============================================================
// Prompts
// ============================================================

// menuReply renders the main menu with the language-selector footer.
func (e *Engine) menuReply(sess *domain.Session) string {
	return e.catalog.WithSelector(sess.Language, e.catalog.Render(sess.Language, catalog.KeyMenu, nil))
}

// promptFor re-renders the prompt belonging to the session's current state,
// used when a turn changes language (or declines to) without advancing.
func (e *Engine) promptFor(sess *domain.Session) string {
	switch sess.State {
	case domain.StateLanguageSelection:
		return e.catalog.Render(sess.Language, catalog.KeyWelcome, nil)
	case domain.StateWaitingPhoto:
		return e.catalog.Render(sess.Language, catalog.KeyPhotoPrompt, nil)
	case domain.StateWaitingLocationChoice:
		return e.catalog.Render(sess.Language, catalog.KeyLocationChoice, nil)
	case domain.StateWaitingGPSLocation:
		return e.catalog.Render(sess.Language, catalog.KeyGPSPrompt, nil)
	case domain.StateWaitingAddressText:
		return e.catalog.Render(sess.Language, catalog.KeyAddressPrompt, nil)
	case domain.StateWaitingTrackingID:
		return e.catalog.Render(sess.Language, catalog.KeyTrackPrompt, nil)
	}
	return e.menuReply(sess)
}
