package fetch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierOrdering(t *testing.T) {
	t.Parallel()

	tiers := CanonicalTiers()
	require.Len(t, tiers, 6)
	for i := 1; i < len(tiers); i++ {
		assert.Less(t, tiers[i-1], tiers[i], "canonical order must be strictly increasing")
	}
	assert.Greater(t, TierBlocked, TierRemoteB, "blocked ranks above every executable tier")
}

func TestTierRoundTrip(t *testing.T) {
	t.Parallel()

	for _, tier := range CanonicalTiers() {
		parsed, err := ParseTier(tier.String())
		require.NoError(t, err)
		assert.Equal(t, tier, parsed)
	}

	_, err := ParseTier("carrier-pigeon")
	require.Error(t, err)
}

func TestTierPaid(t *testing.T) {
	t.Parallel()

	assert.True(t, TierRemoteA.Paid())
	assert.True(t, TierRemoteB.Paid())
	assert.False(t, TierDirect.Paid())
	assert.False(t, TierHeadless.Paid())
}

func TestResultSuccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result Result
		want   bool
	}{
		{"long body no error", Result{HTML: string(make([]byte, 200))}, true},
		{"exactly threshold", Result{HTML: string(make([]byte, 100))}, true},
		{"thin body", Result{HTML: "<html></html>"}, false},
		{"error set", Result{HTML: string(make([]byte, 200)), Error: "boom"}, false},
		{"empty", Result{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.result.Success(DefaultMinValidLength))
		})
	}
}

func TestFinalizeStampsDerivedFields(t *testing.T) {
	t.Parallel()

	r := Result{URL: "http://x.test", HTML: "<html>hello</html>", Latency: 1500 * time.Millisecond}
	r = r.Finalize(TierStatic)

	assert.Equal(t, TierStatic, r.Tier)
	assert.Equal(t, "static", r.TierName)
	assert.Equal(t, len(r.HTML), r.ContentLength)
	assert.Equal(t, int64(1500), r.LatencyMs)
}

func TestBlockedResult(t *testing.T) {
	t.Parallel()

	r := Blocked("http://x.test", "")
	assert.Equal(t, TierBlocked, r.Tier)
	assert.Equal(t, "all fetch tiers failed", r.Error)
	assert.False(t, r.Success(1))

	r = Blocked("http://x.test", "status 403")
	assert.Equal(t, "status 403", r.Error)
}

func TestFailureResult(t *testing.T) {
	t.Parallel()

	r := Failure("http://x.test", TierDirect, errors.New("connection refused"))
	assert.Equal(t, TierDirect, r.Tier)
	assert.Equal(t, "connection refused", r.Error)
	assert.Zero(t, r.ContentLength)
}
