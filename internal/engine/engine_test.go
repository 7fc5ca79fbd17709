package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cleannadu/complaint-bot-go/internal/catalog"
	"github.com/cleannadu/complaint-bot-go/internal/domain"
	"github.com/cleannadu/complaint-bot-go/internal/engine"
	"github.com/cleannadu/complaint-bot-go/internal/infra/observability"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockStore struct {
	seq        uint64
	nextErr    error
	insertErr  error
	inserted   []*domain.Complaint
	found      *domain.Complaint
	findErr    error
	panicOnGet bool
}

func (m *mockStore) NextTrackingID(_ context.Context) (string, error) {
	if m.nextErr != nil {
		return "", m.nextErr
	}
	m.seq++
	return domain.FormatTrackingID(m.seq), nil
}

func (m *mockStore) Insert(_ context.Context, c *domain.Complaint) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, c)
	return nil
}

func (m *mockStore) FindByTrackingID(_ context.Context, trackingID string) (*domain.Complaint, error) {
	if m.panicOnGet {
		panic("store exploded")
	}
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.found == nil {
		return nil, &domain.ErrNotFound{Resource: "complaint", ID: trackingID}
	}
	return m.found, nil
}

func (m *mockStore) List(_ context.Context, _, _ int) ([]domain.Complaint, error) {
	return nil, nil
}

func (m *mockStore) CountByStatus(_ context.Context, _ domain.ComplaintStatus) (int, error) {
	return 0, nil
}

func (m *mockStore) UpdateStatus(_ context.Context, _ string, _ domain.ComplaintStatus) error {
	return nil
}

// --- Helpers ---

func newEngine(store *mockStore) *engine.Engine {
	return engine.New(catalog.New(), store, observability.NewMetrics(nil), zap.NewNop())
}

func newSession() *domain.Session {
	return domain.NewSession(time.Now())
}

func text(body string) *domain.InboundMessage {
	return &domain.InboundMessage{From: "whatsapp:+919876543210", Body: body}
}

func photo() *domain.InboundMessage {
	return &domain.InboundMessage{
		From:     "whatsapp:+919876543210",
		NumMedia: 1,
		MediaURL: "https://media.example/photo.jpg",
	}
}

func gps(lat, lng float64) *domain.InboundMessage {
	return &domain.InboundMessage{From: "whatsapp:+919876543210", Latitude: &lat, Longitude: &lng}
}

// --- Filing flow ---

func TestFullFilingFlow_Address(t *testing.T) {
	store := &mockStore{}
	eng := newEngine(store)
	sess := newSession()
	ctx := context.Background()

	// Language selection via numeric shortcut.
	reply := eng.HandleTurn(ctx, sess, text("1"))
	if sess.Language != domain.LangTamil || sess.State != domain.StateMainMenu {
		t.Fatalf("after '1': lang=%q state=%q", sess.Language, sess.State)
	}
	if !strings.Contains(reply, "மொழி தமிழுக்கு") {
		t.Errorf("expected Tamil language-changed reply, got %q", reply)
	}

	// Menu option 1 starts filing.
	reply = eng.HandleTurn(ctx, sess, text("1"))
	if sess.State != domain.StateWaitingPhoto {
		t.Fatalf("state = %q, want waiting photo", sess.State)
	}
	if !strings.Contains(reply, "📸") {
		t.Errorf("expected photo prompt, got %q", reply)
	}

	// Photo advances to location choice.
	reply = eng.HandleTurn(ctx, sess, photo())
	if sess.State != domain.StateWaitingLocationChoice {
		t.Fatalf("state = %q, want location choice", sess.State)
	}
	if sess.Draft.PhotoRef == "" {
		t.Error("photo ref not captured in draft")
	}

	// Choose typed address, then send it.
	eng.HandleTurn(ctx, sess, text("2"))
	if sess.State != domain.StateWaitingAddressText {
		t.Fatalf("state = %q, want address text", sess.State)
	}
	reply = eng.HandleTurn(ctx, sess, text("23 Anna Salai, Chennai"))

	if !strings.Contains(reply, "CLN-000001") {
		t.Errorf("registration reply missing tracking id: %q", reply)
	}
	if sess.State != domain.StateMainMenu {
		t.Errorf("state = %q, want main menu after filing", sess.State)
	}
	if !sess.Draft.Empty() {
		t.Errorf("draft not cleared after filing: %+v", sess.Draft)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d complaints, want 1", len(store.inserted))
	}
	c := store.inserted[0]
	if c.Location.Kind != domain.LocationAddress || c.Location.Address != "23 Anna Salai, Chennai" {
		t.Errorf("wrong location: %+v", c.Location)
	}
	if c.Status != domain.StatusPending || c.Language != domain.LangTamil {
		t.Errorf("wrong record fields: %+v", c)
	}
}

func TestFilingFlow_GPSShortcut(t *testing.T) {
	store := &mockStore{}
	eng := newEngine(store)
	sess := newSession()
	ctx := context.Background()

	eng.HandleTurn(ctx, sess, text("2")) // English
	eng.HandleTurn(ctx, sess, text("1")) // file
	eng.HandleTurn(ctx, sess, photo())

	// Sharing the pin directly from the location-choice menu finalizes.
	reply := eng.HandleTurn(ctx, sess, gps(13.0827, 80.2707))
	if !strings.Contains(reply, "CLN-000001") {
		t.Errorf("expected registration, got %q", reply)
	}
	if len(store.inserted) != 1 || store.inserted[0].Location.Kind != domain.LocationGPS {
		t.Fatalf("expected one GPS complaint, got %+v", store.inserted)
	}
	if store.inserted[0].Location.Latitude != 13.0827 {
		t.Errorf("latitude = %v", store.inserted[0].Location.Latitude)
	}
}

func TestWaitingPhoto_TextReprompts(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingPhoto

	reply := eng.HandleTurn(context.Background(), sess, text("here is my issue"))
	if sess.State != domain.StateWaitingPhoto {
		t.Errorf("state = %q, want still waiting photo", sess.State)
	}
	if !strings.Contains(reply, "photo") {
		t.Errorf("expected photo re-prompt, got %q", reply)
	}
}

func TestGPSState_TypedAddressEscapeHatch(t *testing.T) {
	store := &mockStore{}
	eng := newEngine(store)
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingGPSLocation
	sess.Draft.IssueType = "cleanliness"

	reply := eng.HandleTurn(context.Background(), sess, text("Gandhi Nagar 2nd Cross"))
	if !strings.Contains(reply, "CLN-") {
		t.Errorf("typed address in GPS state should finalize, got %q", reply)
	}
	if store.inserted[0].Location.Kind != domain.LocationAddress {
		t.Errorf("location kind = %q, want address", store.inserted[0].Location.Kind)
	}
}

func TestFinalize_StoreDownKeepsStateAndDraft(t *testing.T) {
	store := &mockStore{nextErr: errors.New("connection refused")}
	eng := newEngine(store)
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingAddressText
	sess.Draft = domain.Draft{PhotoRef: "ref", IssueType: "cleanliness"}

	reply := eng.HandleTurn(context.Background(), sess, text("Main Road"))
	if !strings.Contains(reply, "try again") {
		t.Errorf("expected retry-later reply, got %q", reply)
	}
	if sess.State != domain.StateWaitingAddressText {
		t.Errorf("state = %q, must stay for retry", sess.State)
	}
	if sess.Draft.PhotoRef != "ref" {
		t.Error("draft must survive a store failure")
	}

	// Store recovers; resending the same message completes the filing.
	store.nextErr = nil
	reply = eng.HandleTurn(context.Background(), sess, text("Main Road"))
	if !strings.Contains(reply, "CLN-000001") {
		t.Errorf("retry should register, got %q", reply)
	}
}

// --- Language handling ---

func TestLanguageSelection_DirectAliasCommits(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()

	reply := eng.HandleTurn(context.Background(), sess, text("hindi"))
	if sess.Language != domain.LangHindi || sess.State != domain.StateMainMenu {
		t.Fatalf("lang=%q state=%q", sess.Language, sess.State)
	}
	if !strings.Contains(reply, "हिंदी में बदल") {
		t.Errorf("expected Hindi confirmation, got %q", reply)
	}
}

func TestLanguageSelection_GibberishRepromptsWelcome(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()

	reply := eng.HandleTurn(context.Background(), sess, text("qwerty"))
	if sess.State != domain.StateLanguageSelection {
		t.Errorf("state = %q, want still language selection", sess.State)
	}
	if !strings.Contains(reply, "1️⃣") {
		t.Errorf("expected welcome reprompt, got %q", reply)
	}
}

func TestFuzzyMatch_ConfirmYes(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	ctx := context.Background()

	reply := eng.HandleTurn(ctx, sess, text("tmil"))
	if sess.State != domain.StateLanguageConfirmation {
		t.Fatalf("state = %q, want confirmation", sess.State)
	}
	if sess.PendingLanguage != domain.LangTamil {
		t.Fatalf("pending = %q, want ta", sess.PendingLanguage)
	}
	if !strings.Contains(reply, "YES") {
		t.Errorf("expected YES/NO question, got %q", reply)
	}

	reply = eng.HandleTurn(ctx, sess, text("yes"))
	if sess.Language != domain.LangTamil || sess.State != domain.StateMainMenu {
		t.Errorf("after yes: lang=%q state=%q", sess.Language, sess.State)
	}
	if sess.PendingLanguage != domain.LangUnset {
		t.Error("pending language must be cleared")
	}
	if !strings.Contains(reply, "தமிழுக்கு") {
		t.Errorf("expected Tamil committed reply, got %q", reply)
	}
}

func TestFuzzyMatch_ConfirmNoRestoresState(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingTrackingID
	ctx := context.Background()

	eng.HandleTurn(ctx, sess, text("indhi"))
	if sess.State != domain.StateLanguageConfirmation {
		t.Fatalf("state = %q, want confirmation", sess.State)
	}

	reply := eng.HandleTurn(ctx, sess, text("no"))
	if sess.State != domain.StateWaitingTrackingID {
		t.Errorf("state = %q, want restored tracking state", sess.State)
	}
	if sess.Language != domain.LangEnglish {
		t.Errorf("language = %q, must be unchanged", sess.Language)
	}
	if !strings.Contains(reply, "complaint ID") {
		t.Errorf("expected tracking prompt restored, got %q", reply)
	}
}

func TestConfirmation_NonAffirmativeCountsAsNo(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateMainMenu
	ctx := context.Background()

	eng.HandleTurn(ctx, sess, text("hin"))
	eng.HandleTurn(ctx, sess, text("whatever"))
	if sess.Language != domain.LangEnglish || sess.State != domain.StateMainMenu {
		t.Errorf("ambiguous answer must count as NO: lang=%q state=%q", sess.Language, sess.State)
	}
}

func TestLanguageSwitch_MidFlowKeepsState(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangTamil
	sess.State = domain.StateWaitingPhoto

	reply := eng.HandleTurn(context.Background(), sess, text("english"))
	if sess.Language != domain.LangEnglish {
		t.Errorf("language = %q, want en", sess.Language)
	}
	if sess.State != domain.StateWaitingPhoto {
		t.Errorf("state = %q, switching language must not lose position", sess.State)
	}
	if !strings.Contains(reply, "photo") {
		t.Errorf("expected current prompt re-rendered in English, got %q", reply)
	}
}

func TestSameLanguageAlias_IsOrdinaryInput(t *testing.T) {
	store := &mockStore{}
	eng := newEngine(store)
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingAddressText
	sess.Draft = domain.Draft{PhotoRef: "ref", IssueType: "cleanliness"}

	// The address contains an alias of the ACTIVE language; it must be
	// treated as the address, not as a language switch.
	reply := eng.HandleTurn(context.Background(), sess, text("12 English Colony Road"))
	if len(store.inserted) != 1 {
		t.Fatalf("address turn must file the complaint, inserted %d", len(store.inserted))
	}
	if store.inserted[0].Location.Address != "12 English Colony Road" {
		t.Errorf("address = %q", store.inserted[0].Location.Address)
	}
	if !strings.Contains(reply, "CLN-000001") {
		t.Errorf("expected registration reply, got %q", reply)
	}
	if sess.Language != domain.LangEnglish {
		t.Errorf("language = %q, must be unchanged", sess.Language)
	}
}

func TestLanguageSwitch_Idempotent(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateMainMenu
	ctx := context.Background()

	first := eng.HandleTurn(ctx, sess, text("english"))
	second := eng.HandleTurn(ctx, sess, text("english"))
	if first != second {
		t.Errorf("re-selecting the active language must be idempotent:\n%q\nvs\n%q", first, second)
	}
}

func TestNumericShortcut_OnlyInLanguageSelection(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateMainMenu

	eng.HandleTurn(context.Background(), sess, text("1"))
	if sess.Language != domain.LangEnglish {
		t.Error("'1' in the menu must not switch language")
	}
	if sess.State != domain.StateWaitingPhoto {
		t.Errorf("'1' in the menu must start filing, state = %q", sess.State)
	}
}

// --- Global intents ---

func TestExit_MidFilingClearsDraftKeepsLanguage(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangTamil
	sess.State = domain.StateWaitingAddressText
	sess.Draft = domain.Draft{PhotoRef: "ref", IssueType: "cleanliness"}

	reply := eng.HandleTurn(context.Background(), sess, text("exit"))
	if sess.State != domain.StateLanguageSelection {
		t.Errorf("state = %q, want language selection after exit", sess.State)
	}
	if !sess.Draft.Empty() {
		t.Error("draft must be dropped on exit")
	}
	if sess.Language != domain.LangTamil {
		t.Error("committed language must survive exit")
	}
	if !strings.Contains(reply, "நன்றி") {
		t.Errorf("farewell must render in the prior language, got %q", reply)
	}
}

func TestMenu_AbandonsFilingAndReturnsToLanguageSelection(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingLocationChoice
	sess.Draft = domain.Draft{PhotoRef: "ref"}

	reply := eng.HandleTurn(context.Background(), sess, text("menu"))
	if sess.State != domain.StateLanguageSelection {
		t.Errorf("state = %q, menu must reset to language selection", sess.State)
	}
	if !sess.Draft.Empty() {
		t.Errorf("menu must drop the draft: %+v", sess.Draft)
	}
	if sess.Language != domain.LangEnglish {
		t.Error("committed language must survive the menu reset")
	}
	if !strings.Contains(reply, "preferred language") {
		t.Errorf("expected the language-choice prompt, got %q", reply)
	}
}

func TestGlobalIntent_PriorityExitOverTrack(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateMainMenu

	eng.HandleTurn(context.Background(), sess, text("exit status"))
	if sess.State != domain.StateLanguageSelection {
		t.Errorf("exit must win over track, state = %q", sess.State)
	}
}

func TestTrackIntent_FromAnyState(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingPhoto

	reply := eng.HandleTurn(context.Background(), sess, text("track"))
	if sess.State != domain.StateWaitingTrackingID {
		t.Errorf("state = %q, want tracking", sess.State)
	}
	if !strings.Contains(reply, "CLN-000001") {
		t.Errorf("tracking prompt should show the example id, got %q", reply)
	}
}

// --- Tracking ---

func TestTracking_InvalidFormatStays(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingTrackingID

	reply := eng.HandleTurn(context.Background(), sess, text("CLN-42"))
	if sess.State != domain.StateWaitingTrackingID {
		t.Errorf("state = %q, must stay on invalid format", sess.State)
	}
	if !strings.Contains(reply, "CLN-XXXXXX") {
		t.Errorf("expected format message, got %q", reply)
	}
}

func TestTracking_NotFoundStays(t *testing.T) {
	eng := newEngine(&mockStore{})
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingTrackingID

	reply := eng.HandleTurn(context.Background(), sess, text("CLN-999999"))
	if sess.State != domain.StateWaitingTrackingID {
		t.Errorf("state = %q, must stay after not-found so user can correct", sess.State)
	}
	if !strings.Contains(reply, "not found") {
		t.Errorf("expected not-found message, got %q", reply)
	}
}

func TestTracking_FoundShowsDetailsAndReturnsToMenu(t *testing.T) {
	filed := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	store := &mockStore{found: &domain.Complaint{
		TrackingID: "CLN-000042",
		Status:     domain.StatusInProgress,
		Location:   domain.Location{Kind: domain.LocationAddress, Address: "T Nagar"},
		CreatedAt:  filed,
	}}
	eng := newEngine(store)
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingTrackingID

	reply := eng.HandleTurn(context.Background(), sess, text("cln-000042"))
	for _, want := range []string{"CLN-000042", "InProgress", "T Nagar", "15 Aug 2026"} {
		if !strings.Contains(reply, want) {
			t.Errorf("status reply missing %q: %q", want, reply)
		}
	}
	if sess.State != domain.StateMainMenu {
		t.Errorf("state = %q, want main menu after successful lookup", sess.State)
	}
}

func TestTracking_StoreErrorStays(t *testing.T) {
	store := &mockStore{findErr: &domain.ErrExternalService{Service: "supabase/complaints", Err: errors.New("boom")}}
	eng := newEngine(store)
	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.StateWaitingTrackingID

	reply := eng.HandleTurn(context.Background(), sess, text("CLN-000001"))
	if sess.State != domain.StateWaitingTrackingID {
		t.Errorf("state = %q, must stay on store error", sess.State)
	}
	if !strings.Contains(reply, "try again") {
		t.Errorf("expected retry-later, got %q", reply)
	}
}

// --- Robustness ---

func TestUnknownState_ResetsRecoverably(t *testing.T) {
	eng := newEngine(&mockStore{})
	ctx := context.Background()

	sess := newSession()
	sess.Language = domain.LangEnglish
	sess.State = domain.State("LEGACY_STATE")
	reply := eng.HandleTurn(ctx, sess, text("hello"))
	if sess.State != domain.StateLanguageSelection {
		t.Errorf("state = %q, want language selection reset", sess.State)
	}
	if sess.Language != domain.LangEnglish {
		t.Error("committed language must survive the reset")
	}
	if !strings.Contains(reply, "preferred language") {
		t.Errorf("expected the language-choice prompt, got %q", reply)
	}
}

func TestPanicBarrier_RepliesApology(t *testing.T) {
	eng := newEngine(&mockStore{panicOnGet: true})
	sess := newSession()
	sess.Language = domain.LangTamil
	sess.State = domain.StateWaitingTrackingID

	reply := eng.HandleTurn(context.Background(), sess, text("CLN-000001"))
	if reply == "" {
		t.Fatal("a panic must still produce a reply")
	}
	if !strings.Contains(reply, "மன்னிக்கவும்") {
		t.Errorf("apology must render in the session language, got %q", reply)
	}
}

func TestEveryTurnProducesExactlyOneNonEmptyReply(t *testing.T) {
	states := []domain.State{
		domain.StateLanguageSelection,
		domain.StateLanguageConfirmation,
		domain.StateMainMenu,
		domain.StateWaitingPhoto,
		domain.StateWaitingLocationChoice,
		domain.StateWaitingGPSLocation,
		domain.StateWaitingAddressText,
		domain.StateWaitingTrackingID,
		domain.State("BOGUS"),
	}
	inputs := []*domain.InboundMessage{
		text(""), text("1"), text("2"), text("99"), text("hello"),
		text("exit"), text("menu"), text("track"), text("file"),
		text("tamil"), text("hin"), text("yes"), text("no"),
		text("CLN-000001"), text("CLN-abc"),
		photo(), gps(13.0, 80.2),
	}

	ctx := context.Background()
	for _, state := range states {
		for i, msg := range inputs {
			eng := newEngine(&mockStore{})
			sess := newSession()
			sess.Language = domain.LangEnglish
			sess.State = state
			if state == domain.StateLanguageConfirmation {
				sess.PendingLanguage = domain.LangHindi
				sess.PreviousState = domain.StateMainMenu
			}

			reply := eng.HandleTurn(ctx, sess, msg)
			if reply == "" {
				t.Errorf("state %q input #%d: empty reply", state, i)
			}
		}
	}
}

func TestDraftInvariant_NonFilingStatesHaveEmptyDraft(t *testing.T) {
	store := &mockStore{}
	eng := newEngine(store)
	ctx := context.Background()

	// Walk a full conversation and assert the invariant after every turn.
	sess := newSession()
	script := []*domain.InboundMessage{
		text("2"),         // english → menu
		text("1"),         // file → photo
		photo(),           // → location choice
		text("menu"),      // abandon, back to language selection
		text("2"),         // english again → menu
		text("2"),         // → tracking
		text("CLN-0001x"), // invalid, stays
		text("exit"),      // farewell
	}
	for i, msg := range script {
		eng.HandleTurn(ctx, sess, msg)
		if !sess.State.IsFiling() && !sess.Draft.Empty() {
			t.Fatalf("turn %d: draft %+v left behind in state %q", i, sess.Draft, sess.State)
		}
	}
	if len(store.inserted) != 0 {
		t.Errorf("abandoned flow must not file, inserted %d", len(store.inserted))
	}
}
