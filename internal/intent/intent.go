// Package intent classifies raw chat text against language aliases, fuzzy
// language fragments and global command patterns.
//
// The detector is stateless and side-effect-free: the same input always
// yields the same classification. Matching is table-driven — an explicit,
// enumerable list of aliases and fragments per language/intent — rather than
// inline regexes, so every tier can be tested on its own.
package intent

import (
	"strings"
	"unicode/utf8"

	"github.com/cleannadu/complaint-bot-go/internal/domain"
)

// Tier is the confidence tier of a language match.
type Tier int

const (
	// TierNone means no language intent was found.
	TierNone Tier = iota
	// TierDirect is an exact/alias match; the engine commits it immediately.
	TierDirect
	// TierFuzzy is a loose fragment match; the engine asks for confirmation.
	TierFuzzy
)

// GlobalIntent is a command recognized regardless of conversation state.
type GlobalIntent string

const (
	IntentNone  GlobalIntent = ""
	IntentExit  GlobalIntent = "EXIT"
	IntentMenu  GlobalIntent = "MENU"
	IntentTrack GlobalIntent = "TRACK"
	IntentFile  GlobalIntent = "FILE"
)

// ============================================================
// Matching tables
// ============================================================

// languageAliases are the direct-tier alias sets. Common misspellings are
// covered by enumeration; both Latin transliterations and native-script
// tokens are listed.
var languageAliases = map[domain.Language][]string{
	domain.LangTamil:   {"tamil", "tamizh", "tamiz", "thamil", "thamizh", "taml", "தமிழ்"},
	domain.LangEnglish: {"english", "eng", "engl", "englsh", "englidh", "inglish"},
	domain.LangHindi:   {"hindi", "hind", "hindie", "indi", "हिंदी", "हिन्दी"},
}

// languageFragments are the fuzzy-tier diagnostic fragments. An input that
// contains one of these — without hitting any alias first — is a fuzzy
// candidate that needs a YES/NO confirmation.
var languageFragments = map[domain.Language][]string{
	domain.LangTamil:   {"tami", "tmil", "tham", "தமி"},
	domain.LangEnglish: {"engli", "ngli", "ingl"},
	domain.LangHindi:   {"hin", "indhi", "हिं", "हिन"},
}

// numericShortcuts map the 1/2/3 menu digits to the fixed language ordering.
// Only the language-selection state consults these.
var numericShortcuts = map[string]domain.Language{
	"1": domain.LangTamil,
	"2": domain.LangEnglish,
	"3": domain.LangHindi,
}

// globalCommands are evaluated in priority order: EXIT > MENU > TRACK > FILE.
// Each family includes transliterated equivalents in every supported language.
var globalCommands = []struct {
	intent   GlobalIntent
	patterns []string
}{
	{IntentExit, []string{"exit", "quit", "cancel", "stop", "bye", "வெளியேறு", "बाहर", "veliyeru", "bahar"}},
	{IntentMenu, []string{"menu", "home", "முகப்பு", "मेनू", "मेन्यू", "mugappu"}},
	{IntentTrack, []string{"track", "status", "check", "கண்காணி", "ट्रैक", "स्थिति", "kankaani", "nilai"}},
	{IntentFile, []string{"file", "register", "complaint", "report", "new", "புகார்", "शिकायत", "pukaar", "shikayat"}},
}

// affirmatives accepted as YES during language confirmation.
// Anything else counts as NO.
var affirmatives = map[string]bool{
	"yes": true, "y": true, "yeah": true, "ok": true,
	"ஆம்": true, "ஆமாம்": true, "aam": true,
	"हां": true, "हाँ": true, "haan": true, "ha": true,
}

// ============================================================
// Classification
// ============================================================

// Normalize lowercases and trims the input; all matching runs on the
// normalized form.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// ClassifyLanguage resolves a language intent with its confidence tier.
// The alias tier is checked for every language before any fuzzy fragment,
// in the fixed priority order Tamil > English > Hindi, so a single input
// never resolves to two languages.
func ClassifyLanguage(text string) (domain.Language, Tier) {
	norm := Normalize(text)
	if norm == "" {
		return domain.LangUnset, TierNone
	}

	for _, lang := range domain.LanguagePriority {
		for _, alias := range languageAliases[lang] {
			if matches(norm, alias) {
				return lang, TierDirect
			}
		}
	}

	for _, lang := range domain.LanguagePriority {
		for _, frag := range languageFragments[lang] {
			if strings.Contains(norm, frag) {
				return lang, TierFuzzy
			}
		}
	}

	return domain.LangUnset, TierNone
}

// NumericLanguage resolves the 1/2/3 shortcut. The caller is responsible for
// only consulting it while the session is in language selection.
func NumericLanguage(text string) (domain.Language, bool) {
	lang, ok := numericShortcuts[strings.TrimSpace(text)]
	return lang, ok
}

// ClassifyGlobalIntent returns the first matching command family in priority
// order, or IntentNone. Matching is substring-based (not distance-based) to
// avoid false positives on short tokens.
func ClassifyGlobalIntent(text string) GlobalIntent {
	norm := Normalize(text)
	if norm == "" {
		return IntentNone
	}
	for _, family := range globalCommands {
		for _, p := range family.patterns {
			if matches(norm, p) {
				return family.intent
			}
		}
	}
	return IntentNone
}

// IsAffirmative reports whether the input counts as YES in a confirmation.
func IsAffirmative(text string) bool {
	return affirmatives[Normalize(text)]
}

// matches checks pattern containment. Short patterns (under five runes, e.g.
// "eng", "new") must appear as a whole token — plain substring matching would
// fire on street names like "Bengaluru" mid-filing. Longer patterns match as
// substrings so that "tamilplease" still resolves.
func matches(norm, pattern string) bool {
	if norm == pattern {
		return true
	}
	if utf8.RuneCountInString(pattern) >= 5 {
		return strings.Contains(norm, pattern)
	}
	for _, tok := range strings.Fields(norm) {
		if tok == pattern {
			return true
		}
	}
	return false
}
