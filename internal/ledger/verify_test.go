package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Cached-sum verification
// =============================================================================

func TestVerifyCached_ReleaseValueAgrees(t *testing.T) {
	// Recomputing S(5253) from scratch must land within 1e-10 of the
	// published 11-digit value.
	require.NoError(t, VerifyCached(context.Background(), Release()))
}

func TestVerifyCached_DetectsDrift(t *testing.T) {
	c := Release()
	c.CachedHarmonicSum = "1.20348675358" // off by 1e-7

	err := VerifyCached(context.Background(), c)
	require.Error(t, err)
	require.True(t, IsConsistencyError(err))

	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int64(5253), ce.Q)
	assert.Equal(t, "1.20348675358", ce.Cached)
	assert.Equal(t, ReleaseTolerance, ce.Tolerance)
}

func TestVerifyCached_SmallCutoff(t *testing.T) {
	// S(10) = 30953/30240 = 1.0235780423...; an 11-digit cache within
	// tolerance passes, a wrong one fails.
	c := Constants{Q: 10, SFloor: 1.2, K: 10, CW: 2, CachedHarmonicSum: "1.0235780423"}
	require.NoError(t, VerifyCached(context.Background(), c))

	c.CachedHarmonicSum = "1.0235790423"
	err := VerifyCached(context.Background(), c)
	require.Error(t, err)
	assert.True(t, IsConsistencyError(err))
}

func TestVerifyCached_RejectsInvalidConstants(t *testing.T) {
	err := VerifyCached(context.Background(), Constants{})
	require.Error(t, err)
	assert.False(t, IsConsistencyError(err))
}

func TestVerifyCached_RejectsNonDecimalCache(t *testing.T) {
	c := Release()
	c.CachedHarmonicSum = "one-point-two"
	err := VerifyCached(context.Background(), c)
	require.Error(t, err)

	var de *DomainError
	assert.ErrorAs(t, err, &de)
}
