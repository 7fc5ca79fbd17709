// Package domain holds the data model of the complaint bot: the per-user
// conversation session, the complaint record, and the inbound/outbound
// message shapes exchanged with the chat transport.
package domain

import (
	"strconv"
	"time"
)

// ============================================================
// Languages
// ============================================================

// Language is one of the three supported locales. The zero value means the
// user has not selected a language yet.
type Language string

const (
	LangUnset   Language = ""
	LangTamil   Language = "ta"
	LangEnglish Language = "en"
	LangHindi   Language = "hi"
)

// LanguagePriority is the fixed order in which language intents are
// evaluated and the order of the 1/2/3 numeric shortcuts.
var LanguagePriority = []Language{LangTamil, LangEnglish, LangHindi}

// DisplayName returns the native display name used in prompts.
func (l Language) DisplayName() string {
	switch l {
	case LangTamil:
		return "தமிழ்"
	case LangEnglish:
		return "English"
	case LangHindi:
		return "हिंदी"
	}
	return "English"
}

// OrDefault returns the language itself, or English when unset.
// Every outbound message must render in *some* language.
func (l Language) OrDefault() Language {
	if l == LangUnset {
		return LangEnglish
	}
	return l
}

// ============================================================
// Conversation states
// ============================================================

// State is the position of a session in the conversation state machine.
type State string

const (
	StateLanguageSelection     State = "LANGUAGE_SELECTION"
	StateLanguageConfirmation  State = "LANGUAGE_CONFIRMATION"
	StateMainMenu              State = "MAIN_MENU"
	StateWaitingPhoto          State = "WAITING_PHOTO"
	StateWaitingLocationChoice State = "WAITING_LOCATION_DECISION"
	StateWaitingGPSLocation    State = "WAITING_GPS_LOCATION"
	StateWaitingAddressText    State = "WAITING_ADDRESS_TEXT"
	StateWaitingTrackingID     State = "WAITING_TRACKING_ID"
)

// FilingStates are the sub-states during which a complaint draft may hold data.
func (s State) IsFiling() bool {
	switch s {
	case StateWaitingPhoto, StateWaitingLocationChoice, StateWaitingGPSLocation, StateWaitingAddressText:
		return true
	}
	return false
}

// ============================================================
// Session
// ============================================================

// Draft accumulates complaint data while a filing flow is in progress.
// It is cleared on completion, cancellation and restart.
type Draft struct {
	PhotoRef  string
	IssueType string
}

// Empty reports whether no filing data has been collected.
func (d Draft) Empty() bool {
	return d.PhotoRef == "" && d.IssueType == ""
}

// Session is the mutable conversation context of one user, keyed by the
// sender address. Invariants:
//   - PendingLanguage is set iff State == LANGUAGE_CONFIRMATION.
//   - Draft is non-empty only while State is a filing sub-state.
type Session struct {
	State           State
	Language        Language
	PendingLanguage Language
	PreviousState   State
	Draft           Draft

	CreatedAt time.Time
	LastSeen  time.Time
}

// NewSession returns the default session created on first contact.
func NewSession(now time.Time) *Session {
	return &Session{
		State:     StateLanguageSelection,
		Language:  LangUnset,
		CreatedAt: now,
		LastSeen:  now,
	}
}

// ClearDraft drops all accumulated filing data.
func (s *Session) ClearDraft() {
	s.Draft = Draft{}
}

// ============================================================
// Complaints
// ============================================================

// ComplaintStatus is the lifecycle status of a filed complaint.
// Only the (out-of-band) resolution process mutates it.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "Pending"
	StatusInProgress ComplaintStatus = "InProgress"
	StatusResolved   ComplaintStatus = "Resolved"
)

// ValidStatus reports whether s is a known complaint status.
func ValidStatus(s string) bool {
	switch ComplaintStatus(s) {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// LocationKind tags the variant held by a Location descriptor.
type LocationKind string

const (
	LocationGPS     LocationKind = "gps"
	LocationAddress LocationKind = "address"
	LocationMedia   LocationKind = "media"
)

// Location is a tagged location descriptor: GPS coordinates, a free-text
// address, or a media reference.
type Location struct {
	Kind      LocationKind `json:"kind"`
	Latitude  float64      `json:"latitude,omitempty"`
	Longitude float64      `json:"longitude,omitempty"`
	Address   string       `json:"address,omitempty"`
	MediaRef  string       `json:"media_ref,omitempty"`
}

// String renders the descriptor for status replies and logs.
func (l Location) String() string {
	switch l.Kind {
	case LocationGPS:
		return "GPS: " + formatCoord(l.Latitude) + ", " + formatCoord(l.Longitude)
	case LocationAddress:
		return "Address: " + l.Address
	case LocationMedia:
		return "Media: " + l.MediaRef
	}
	return ""
}

func formatCoord(f float64) string {
	// six decimal places is street-level precision
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// Complaint is the immutable record created once per completed filing.
// Status is the only field mutated afterwards.
type Complaint struct {
	ID         string          `json:"id"`
	TrackingID string          `json:"tracking_id"`
	ReporterID string          `json:"reporter_id"`
	IssueType  string          `json:"issue_type"`
	Location   Location        `json:"location"`
	PhotoRef   string          `json:"photo_ref,omitempty"`
	Language   Language        `json:"language"`
	Status     ComplaintStatus `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ============================================================
// Transport messages
// ============================================================

// InboundMessage is one event received from the chat transport.
type InboundMessage struct {
	From     string
	Body     string
	NumMedia int
	MediaURL string

	// GPS pair; both nil unless the transport delivered coordinates.
	Latitude  *float64
	Longitude *float64
}

// HasLocation reports whether the event carries a coordinate pair.
func (m *InboundMessage) HasLocation() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// ============================================================
// Operational metrics
// ============================================================

// BotMetrics is the aggregated snapshot served by GET /v1/metrics/bot.
type BotMetrics struct {
	TotalTurns      int64   `json:"total_turns"`
	ErrorRate       float64 `json:"error_rate"`
	ComplaintsFiled int64   `json:"complaints_filed"`
	TrackingLookups int64   `json:"tracking_lookups"`
	LookupHitRate   float64 `json:"lookup_hit_rate"`
	Period          string  `json:"period"`
}

// ComplaintSummary is the aggregate served by GET /v1/complaints/summary.
type ComplaintSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}
