package venue

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cdts/execution/pkg/types"
)

// Phrases that identify a geo/IP restriction in venue error text. Matched
// case-insensitively; first match wins.
var geoBlockPhrases = []string{
	"http 403",
	"forbidden",
	"restricted location",
	"geo-block",
	"geoblock",
	"region is not supported",
	"not available in your region",
	"service unavailable from a restricted location",
}

// GeoBlockRegistry is a process-lifetime disable list keyed by venue.
// Registration is permanent: geo-IP restrictions do not change mid-session,
// so there is deliberately no re-enable path.
type GeoBlockRegistry struct {
	disabled sync.Map // venue -> types.DisabledVenueState
	logger   *logrus.Entry
}

// NewGeoBlockRegistry creates an empty registry.
func NewGeoBlockRegistry() *GeoBlockRegistry {
	return &GeoBlockRegistry{
		logger: logrus.WithField("component", "geoblock-registry"),
	}
}

// TryDisableFromError inspects err against the phrase list and, on match,
// permanently disables the venue. Returns true when the venue is disabled
// (newly or already). Logs once per venue, at registration.
func (r *GeoBlockRegistry) TryDisableFromError(venueName string, err error) bool {
	if err == nil {
		return false
	}
	phrase := matchGeoPhrase(err.Error())
	if phrase == "" {
		return false
	}

	name := NormalizeName(venueName)
	state := types.DisabledVenueState{
		Venue:         name,
		DisabledAtUTC: time.Now().UTC(),
		Reason:        "geo-restricted: " + phrase,
	}
	if _, loaded := r.disabled.LoadOrStore(name, state); !loaded {
		r.logger.WithFields(logrus.Fields{
			"venue":  name,
			"phrase": phrase,
		}).Warn("venue permanently disabled for this process")
	}
	return true
}

// IsDisabled reports whether a venue has been geo-disabled.
func (r *GeoBlockRegistry) IsDisabled(venueName string) bool {
	_, ok := r.disabled.Load(NormalizeName(venueName))
	return ok
}

// Reason returns the recorded disable reason, if any.
func (r *GeoBlockRegistry) Reason(venueName string) (string, bool) {
	v, ok := r.disabled.Load(NormalizeName(venueName))
	if !ok {
		return "", false
	}
	return v.(types.DisabledVenueState).Reason, true
}

// Snapshot returns the current disabled set.
func (r *GeoBlockRegistry) Snapshot() []types.DisabledVenueState {
	var out []types.DisabledVenueState
	r.disabled.Range(func(_, v interface{}) bool {
		out = append(out, v.(types.DisabledVenueState))
		return true
	})
	return out
}

// NormalizeName lowercases and trims a venue identifier.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func matchGeoPhrase(msg string) string {
	lower := strings.ToLower(msg)
	for _, phrase := range geoBlockPhrases {
		if strings.Contains(lower, phrase) {
			return phrase
		}
	}
	return ""
}
