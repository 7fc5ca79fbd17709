package intent_test

import (
	"testing"

	"github.com/cleannadu/complaint-bot-go/internal/domain"
	"github.com/cleannadu/complaint-bot-go/internal/intent"
)

func TestClassifyLanguage_DirectTier(t *testing.T) {
	cases := []struct {
		input string
		want  domain.Language
	}{
		{"tamil", domain.LangTamil},
		{"Tamizh", domain.LangTamil},
		{"THAMIL", domain.LangTamil},
		{"தமிழ்", domain.LangTamil},
		{"english", domain.LangEnglish},
		{"eng", domain.LangEnglish},
		{"inglish", domain.LangEnglish},
		{"hindi", domain.LangHindi},
		{"हिंदी", domain.LangHindi},
		{"I want tamil please", domain.LangTamil},
	}

	for _, tc := range cases {
		lang, tier := intent.ClassifyLanguage(tc.input)
		if lang != tc.want {
			t.Errorf("ClassifyLanguage(%q) = %q, want %q", tc.input, lang, tc.want)
		}
		if tier != intent.TierDirect {
			t.Errorf("ClassifyLanguage(%q) tier = %v, want direct", tc.input, tier)
		}
	}
}

func TestClassifyLanguage_FuzzyTier(t *testing.T) {
	fuzzy := []struct {
		input string
		want  domain.Language
	}{
		{"tmil", domain.LangTamil},
		{"hin", domain.LangHindi},
		{"indhi", domain.LangHindi},
	}
	for _, tc := range fuzzy {
		lang, tier := intent.ClassifyLanguage(tc.input)
		if lang != tc.want {
			t.Errorf("ClassifyLanguage(%q) = %q, want %q", tc.input, lang, tc.want)
		}
		if tier != intent.TierFuzzy {
			t.Errorf("ClassifyLanguage(%q) tier = %v, want fuzzy", tc.input, tier)
		}
	}
}

func TestClassifyLanguage_NoMatch(t *testing.T) {
	for _, input := range []string{"", "   ", "hello there", "1", "CLN-000001"} {
		lang, tier := intent.ClassifyLanguage(input)
		if tier != intent.TierNone || lang != domain.LangUnset {
			t.Errorf("ClassifyLanguage(%q) = (%q, %v), want no match", input, lang, tier)
		}
	}
}

func TestClassifyLanguage_AliasBeatsFragment(t *testing.T) {
	// "hindi" is both a Hindi alias and contains the fragment "hin";
	// the direct tier must win so no confirmation is asked.
	lang, tier := intent.ClassifyLanguage("hindi")
	if lang != domain.LangHindi || tier != intent.TierDirect {
		t.Errorf("got (%q, %v), want (hi, direct)", lang, tier)
	}
}

func TestClassifyLanguage_Deterministic(t *testing.T) {
	first, firstTier := intent.ClassifyLanguage("thamizh")
	for i := 0; i < 50; i++ {
		lang, tier := intent.ClassifyLanguage("thamizh")
		if lang != first || tier != firstTier {
			t.Fatalf("classification not deterministic: got (%q, %v) then (%q, %v)", first, firstTier, lang, tier)
		}
	}
}

func TestNumericLanguage(t *testing.T) {
	cases := []struct {
		input string
		want  domain.Language
		ok    bool
	}{
		{"1", domain.LangTamil, true},
		{"2", domain.LangEnglish, true},
		{"3", domain.LangHindi, true},
		{" 2 ", domain.LangEnglish, true},
		{"4", domain.LangUnset, false},
		{"12", domain.LangUnset, false},
	}
	for _, tc := range cases {
		lang, ok := intent.NumericLanguage(tc.input)
		if ok != tc.ok || lang != tc.want {
			t.Errorf("NumericLanguage(%q) = (%q, %v), want (%q, %v)", tc.input, lang, ok, tc.want, tc.ok)
		}
	}
}

func TestClassifyGlobalIntent_Priority(t *testing.T) {
	// A message matching several families resolves to the highest priority.
	if got := intent.ClassifyGlobalIntent("exit menu"); got != intent.IntentExit {
		t.Errorf("exit must beat menu, got %q", got)
	}
	if got := intent.ClassifyGlobalIntent("menu status"); got != intent.IntentMenu {
		t.Errorf("menu must beat track, got %q", got)
	}
	if got := intent.ClassifyGlobalIntent("track complaint"); got != intent.IntentTrack {
		t.Errorf("track must beat file, got %q", got)
	}
}

func TestClassifyGlobalIntent_Families(t *testing.T) {
	cases := []struct {
		input string
		want  intent.GlobalIntent
	}{
		{"exit", intent.IntentExit},
		{"QUIT", intent.IntentExit},
		{"bye", intent.IntentExit},
		{"வெளியேறு", intent.IntentExit},
		{"menu", intent.IntentMenu},
		{"home", intent.IntentMenu},
		{"track", intent.IntentTrack},
		{"check status", intent.IntentTrack},
		{"file", intent.IntentFile},
		{"new complaint", intent.IntentFile},
		{"शिकायत", intent.IntentFile},
		{"hello", intent.IntentNone},
		{"", intent.IntentNone},
	}
	for _, tc := range cases {
		if got := intent.ClassifyGlobalIntent(tc.input); got != tc.want {
			t.Errorf("ClassifyGlobalIntent(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestShortPatternsNeedTokenBoundary(t *testing.T) {
	// Street names and addresses must not trip short aliases or commands.
	if _, tier := intent.ClassifyLanguage("12 Bengaluru Main Road"); tier != intent.TierNone {
		t.Error("'Bengaluru' must not match the short alias 'eng'")
	}
	if got := intent.ClassifyGlobalIntent("Newtown 4th street"); got != intent.IntentNone {
		t.Errorf("'Newtown' must not match the short command 'new', got %q", got)
	}
	// The same tokens standing alone still match.
	if _, tier := intent.ClassifyLanguage("eng"); tier != intent.TierDirect {
		t.Error("bare 'eng' should match directly")
	}
	if got := intent.ClassifyGlobalIntent("new"); got != intent.IntentFile {
		t.Errorf("bare 'new' should start filing, got %q", got)
	}
}

func TestIsAffirmative(t *testing.T) {
	for _, yes := range []string{"yes", "YES", " y ", "ok", "haan", "ஆம்", "हां"} {
		if !intent.IsAffirmative(yes) {
			t.Errorf("IsAffirmative(%q) = false, want true", yes)
		}
	}
	for _, no := range []string{"no", "nah", "", "2", "maybe"} {
		if intent.IsAffirmative(no) {
			t.Errorf("IsAffirmative(%q) = true, want false", no)
		}
	}
}
