package sieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Harmonic sum S(Q) = sum_{q=2}^{Q} 1/(q*phi(q))
// =============================================================================

func TestHarmonicSum_EmptyAtOne(t *testing.T) {
	exact, err := HarmonicSum(context.Background(), 1, Exact{})
	require.NoError(t, err)
	assert.Equal(t, "0", exact.Cumulative())

	dec, err := HarmonicSum(context.Background(), 1, Decimal{})
	require.NoError(t, err)
	assert.Equal(t, "0", dec.Cumulative())
}

func TestHarmonicSum_ExactSmallValues(t *testing.T) {
	cases := map[uint64]string{
		2:  "1/2",
		3:  "2/3",
		4:  "19/24",
		10: "30953/30240",
	}
	for upTo, want := range cases {
		acc, err := HarmonicSum(context.Background(), upTo, Exact{})
		require.NoError(t, err)
		assert.Equal(t, want, acc.Cumulative(), "S(%d)", upTo)
	}
}

func TestHarmonicSum_DecimalSmallValues(t *testing.T) {
	acc, err := HarmonicSum(context.Background(), 10, Decimal{})
	require.NoError(t, err)
	assert.Equal(t, "1.0235780423280423280423280423280423280423280423281", acc.Cumulative())
}

func TestHarmonicSum_RecurrenceStep(t *testing.T) {
	// S(Q) = S(Q-1) + 1/(Q*phi(Q)) for Q >= 2, in both modes.
	prev, err := HarmonicSum(context.Background(), 9, Exact{})
	require.NoError(t, err)

	step := prev.(*ExactAccumulator)
	_, err = step.Add(10, 4)
	require.NoError(t, err)

	full, err := HarmonicSum(context.Background(), 10, Exact{})
	require.NoError(t, err)
	assert.Equal(t, full.Cumulative(), step.Cumulative())
}

func TestHarmonicSum_PublishedReleaseValue(t *testing.T) {
	// The 50-digit ceiling-rounded sum at the release cutoff Q = 5253.
	acc, err := HarmonicSum(context.Background(), 5253, Decimal{})
	require.NoError(t, err)
	assert.Equal(t,
		"1.2034866535843931701566170992274521926855944169961",
		acc.Cumulative())
}

func TestHarmonicSum_InvalidUpTo(t *testing.T) {
	_, err := HarmonicSum(context.Background(), 0, Exact{})
	require.Error(t, err)
	assert.True(t, IsDomainError(err))
}
