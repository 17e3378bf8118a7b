package sieve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Totients
// =============================================================================

func TestTotients_KnownValues(t *testing.T) {
	phi, err := Totients(20)
	require.NoError(t, err)

	want := []uint64{0, 1, 1, 2, 2, 4, 2, 6, 4, 6, 4, 10, 4, 12, 6, 8, 8, 16, 6, 18, 8}
	require.Len(t, phi, 21)
	for q := 1; q <= 20; q++ {
		assert.Equal(t, want[q], phi[q], "phi(%d)", q)
	}
}

func TestTotients_PrimesAndPrimePowers(t *testing.T) {
	phi, err := Totients(128)
	require.NoError(t, err)

	// phi(p) = p-1 for primes.
	for _, p := range []uint64{2, 3, 5, 7, 11, 13, 97, 101, 127} {
		assert.Equal(t, p-1, phi[p], "phi(%d)", p)
	}
	// phi(p^k) = p^k - p^(k-1).
	assert.Equal(t, uint64(64), phi[128])
	assert.Equal(t, uint64(54), phi[81])
	assert.Equal(t, uint64(100), phi[125])
}

func TestTotients_Multiplicative(t *testing.T) {
	phi, err := Totients(1000)
	require.NoError(t, err)

	// phi(m*n) = phi(m)*phi(n) for coprime m, n.
	assert.Equal(t, phi[7]*phi[11], phi[77])
	assert.Equal(t, phi[8]*phi[9], phi[72])
	assert.Equal(t, phi[25]*phi[12], phi[300])
}

func TestTotients_InvalidUpTo(t *testing.T) {
	_, err := Totients(0)
	require.Error(t, err)
	assert.True(t, IsDomainError(err))

	_, err = Totients(-5)
	require.Error(t, err)
	assert.True(t, IsDomainError(err))
}

// =============================================================================
// Segmented sieve
// =============================================================================

func TestTotientSegment_MatchesFullSieve(t *testing.T) {
	full, err := Totients(5000)
	require.NoError(t, err)

	primes := primesUpTo(isqrt(5000))
	for _, span := range []struct{ lo, hi uint64 }{
		{2, 100},
		{100, 100},
		{101, 997},
		{4000, 5000},
		{4999, 5000},
	} {
		seg := totientSegment(span.lo, span.hi, primes)
		require.Len(t, seg, int(span.hi-span.lo+1))
		for q := span.lo; q <= span.hi; q++ {
			assert.Equal(t, full[q], seg[q-span.lo], "phi(%d) in segment [%d,%d]", q, span.lo, span.hi)
		}
	}
}

func TestTotientSegment_LargePrimeCofactor(t *testing.T) {
	// 4999 is prime and exceeds sqrt(5000): only the cofactor pass can
	// reduce it.
	primes := primesUpTo(isqrt(5000))
	seg := totientSegment(4999, 4999, primes)
	assert.Equal(t, uint64(4998), seg[0])
}

func TestPrimesUpTo(t *testing.T) {
	assert.Nil(t, primesUpTo(0))
	assert.Nil(t, primesUpTo(1))
	assert.Equal(t, []uint64{2}, primesUpTo(2))
	assert.Equal(t, []uint64{2, 3, 5, 7, 11, 13, 17, 19}, primesUpTo(20))
}

func TestIsqrt(t *testing.T) {
	cases := map[uint64]uint64{
		0: 0, 1: 1, 2: 1, 3: 1, 4: 2, 8: 2, 9: 3,
		15: 3, 16: 4, 5252: 72, 5253: 72, 5329: 73,
	}
	for n, want := range cases {
		assert.Equal(t, want, isqrt(n), "isqrt(%d)", n)
	}
}
