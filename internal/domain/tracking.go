package domain

import (
	"fmt"
	"regexp"
)

// TrackingPrefix is the fixed textual prefix of every tracking ID.
const TrackingPrefix = "CLN-"

// trackingPattern: prefix plus exactly six zero-padded digits, e.g. CLN-000042.
var trackingPattern = regexp.MustCompile(`^CLN-\d{6}$`)

// FormatTrackingID renders the n-th allocation of the shared counter.
func FormatTrackingID(n uint64) string {
	return fmt.Sprintf("%s%06d", TrackingPrefix, n)
}

// ValidTrackingID reports whether s has the lexical shape of a tracking ID.
// Lookups validate first so malformed input gets the dedicated format
// message instead of a generic not-found.
func ValidTrackingID(s string) bool {
	return trackingPattern.MatchString(s)
}
