package verify

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDec(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return d
}

// =============================================================================
// Major-arc combination
// =============================================================================

func TestCombine_SimpleValues(t *testing.T) {
	actx := apd.BaseContext.WithPrecision(20)
	// (C_W / R) * contribution = 2 * 3 / 4.
	major, err := Combine(actx, mustDec(t, "10"), mustDec(t, "1.2"),
		mustDec(t, "2"), mustDec(t, "3"), mustDec(t, "4"))
	require.NoError(t, err)
	assert.Equal(t, "1.5", major.String())
}

func TestCombine_GrowsWithCW(t *testing.T) {
	actx := apd.BaseContext.WithPrecision(30)
	k, s := mustDec(t, "10"), mustDec(t, "1.2")
	contribution, r := mustDec(t, "1.2034866535"), mustDec(t, "144955932736")

	one, err := Combine(actx, k, s, mustDec(t, "1"), contribution, r)
	require.NoError(t, err)
	two, err := Combine(actx, k, s, mustDec(t, "2"), contribution, r)
	require.NoError(t, err)

	assert.Equal(t, 1, two.Cmp(one))
	assert.Equal(t, 1, one.Sign())
}

func TestCombine_RejectsNonPositiveConstants(t *testing.T) {
	actx := apd.BaseContext.WithPrecision(20)
	good := mustDec(t, "1")

	for name, args := range map[string][3]*apd.Decimal{
		"zero K":          {mustDec(t, "0"), good, good},
		"negative SFloor": {good, mustDec(t, "-1"), good},
		"zero CW":         {good, good, mustDec(t, "0")},
		"nil K":           {nil, good, good},
	} {
		_, err := Combine(actx, args[0], args[1], args[2], good, good)
		require.Error(t, err, name)
		assert.True(t, IsDomainError(err), name)
	}
}

// =============================================================================
// Threshold
// =============================================================================

func TestThreshold_SimpleValues(t *testing.T) {
	actx := apd.BaseContext.WithPrecision(20)
	// (1.2 / 80) * 1000 / 4 = 3.75 with ln N = 2.
	th, err := Threshold(actx, mustDec(t, "10"), mustDec(t, "1.2"),
		mustDec(t, "1000"), mustDec(t, "2"))
	require.NoError(t, err)
	assert.Equal(t, "3.75", th.String())
}

func TestThreshold_GrowsWithSFloorShrinksWithK(t *testing.T) {
	actx := apd.BaseContext.WithPrecision(30)
	n, logN := mustDec(t, "4000000000000000000"), mustDec(t, "42.8")

	base, err := Threshold(actx, mustDec(t, "10"), mustDec(t, "1.2"), n, logN)
	require.NoError(t, err)
	moreS, err := Threshold(actx, mustDec(t, "10"), mustDec(t, "2.4"), n, logN)
	require.NoError(t, err)
	moreK, err := Threshold(actx, mustDec(t, "20"), mustDec(t, "1.2"), n, logN)
	require.NoError(t, err)

	assert.Equal(t, 1, moreS.Cmp(base))
	assert.Equal(t, -1, moreK.Cmp(base))
}

func TestThreshold_RejectsNonPositiveConstants(t *testing.T) {
	actx := apd.BaseContext.WithPrecision(20)
	n, logN := mustDec(t, "1000"), mustDec(t, "2")

	_, err := Threshold(actx, mustDec(t, "0"), mustDec(t, "1.2"), n, logN)
	require.Error(t, err)
	assert.True(t, IsDomainError(err))

	_, err = Threshold(actx, mustDec(t, "10"), nil, n, logN)
	require.Error(t, err)
	assert.True(t, IsDomainError(err))
}
