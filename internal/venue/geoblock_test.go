package venue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeoBlockRegistry_PhraseMatching(t *testing.T) {
	cases := []struct {
		msg     string
		blocked bool
	}{
		{"HTTP 403 Forbidden", true},
		{"Service unavailable from a restricted location", true},
		{"request blocked: geo-block policy", true},
		{"GEOBLOCK", true},
		{"this region is not supported", true},
		{"product not available in your region", true},
		{"connection reset by peer", false},
		{"insufficient balance", false},
		{"HTTP 429 too many requests", false},
	}

	for _, tc := range cases {
		r := NewGeoBlockRegistry()
		got := r.TryDisableFromError("kraken", errors.New(tc.msg))
		assert.Equal(t, tc.blocked, got, "msg=%q", tc.msg)
		assert.Equal(t, tc.blocked, r.IsDisabled("kraken"), "msg=%q", tc.msg)
	}
}

func TestGeoBlockRegistry_NilErrorIsIgnored(t *testing.T) {
	r := NewGeoBlockRegistry()
	assert.False(t, r.TryDisableFromError("binance", nil))
	assert.False(t, r.IsDisabled("binance"))
}

func TestGeoBlockRegistry_DisableIsPermanentAndIdempotent(t *testing.T) {
	r := NewGeoBlockRegistry()

	assert.True(t, r.TryDisableFromError("Kraken", errors.New("HTTP 403")))
	reason, ok := r.Reason("kraken")
	assert.True(t, ok)
	assert.Equal(t, "geo-restricted: http 403", reason)

	// A second match must not replace the recorded state.
	assert.True(t, r.TryDisableFromError("kraken", errors.New("restricted location")))
	again, _ := r.Reason("KRAKEN")
	assert.Equal(t, reason, again)

	snap := r.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, "kraken", snap[0].Venue)
	assert.False(t, snap[0].DisabledAtUTC.IsZero())
}

func TestGeoBlockRegistry_NameNormalization(t *testing.T) {
	r := NewGeoBlockRegistry()
	r.TryDisableFromError("  Binance ", errors.New("forbidden"))

	assert.True(t, r.IsDisabled("binance"))
	assert.True(t, r.IsDisabled("BINANCE"))

	_, ok := r.Reason("coinbase")
	assert.False(t, ok)
}
