package verify

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailcheck/internal/envelope"
	"tailcheck/internal/sieve"
)

func releaseParams() Params {
	return Params{
		N:         "4000000000000000000",
		Q:         5253,
		Qcap:      5253,
		K:         "10",
		SFloor:    "1.2",
		Wsup:      "1.0",
		CW:        "2",
		Rexp:      CanonicalRexp,
		Precision: sieve.Decimal{},
		Model:     envelope.Uniform{},
	}
}

// =============================================================================
// Release regression
// =============================================================================

func TestCheck_ReleaseDecimal(t *testing.T) {
	res, err := Check(context.Background(), releaseParams())
	require.NoError(t, err)

	assert.Equal(t, "4000000000000000000", res.N)
	assert.Equal(t, "decimal", res.Mode)
	assert.Equal(t, uint32(50), res.Precision)
	assert.Equal(t, "uniform", res.Model)
	assert.Equal(t, int64(5253), res.Q)
	assert.Equal(t, int64(5253), res.Qcap)
	assert.Equal(t, "42.8328260350", res.LogN)
	assert.Equal(t, "144955932736", res.R)
	assert.Equal(t, "1.20348665358", res.HarmonicSum)
	assert.Equal(t, "9691.66867349", res.MajorBound)
	assert.Equal(t, "35252346.6798", res.MinorBound)
	assert.Equal(t, "35262038.3485", res.TotalBound)
	assert.Equal(t, "3.27037678845E+13", res.Threshold)
	assert.Equal(t, "3.27037326225E+13", res.Margin)
	assert.Equal(t, "0.00000107822555716", res.Ratio)
	assert.Zero(t, res.FallbackCount)
	assert.Equal(t, VerdictPass, res.Verdict)
	assert.Empty(t, res.Note)
	assert.NoError(t, res.PrecisionErr())
}

func TestCheck_ReleaseDecimalGolden(t *testing.T) {
	res, err := Check(context.Background(), releaseParams())
	require.NoError(t, err)

	data, err := json.MarshalIndent(res, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "release_decimal", data)
}

func TestCheck_CappedHarmonicSum(t *testing.T) {
	p := releaseParams()
	p.Qcap = 1000
	res, err := Check(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, int64(5253), res.Q)
	assert.Equal(t, int64(1000), res.Qcap)
	assert.Equal(t, "1.20191438333", res.HarmonicSum)
	assert.Equal(t, "9679.00719336", res.MajorBound)
	assert.Equal(t, "35262025.6870", res.TotalBound)
	assert.Equal(t, "0.00000107822517000", res.Ratio)
	assert.Equal(t, VerdictPass, res.Verdict)
}

func TestCheck_ExactMode(t *testing.T) {
	p := releaseParams()
	p.Precision = sieve.Exact{}
	res, err := Check(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, "exact", res.Mode)
	assert.Equal(t, uint32(60), res.Precision, "the first escalation step should already separate the bounds")
	assert.Equal(t, "1.20348665358", res.HarmonicSum)
	assert.True(t, strings.Contains(res.HarmonicSumExact, "/"), "exact sum must be a reduced rational")
	assert.Equal(t, VerdictPass, res.Verdict)
}

func TestCheck_IndeterminateAtCoarsePrecision(t *testing.T) {
	// At 3 working digits the rounding slack charged for a 200-term sum
	// exceeds the quantities themselves, so neither side of the inequality
	// can be proved. The verdict must say so rather than default to Pass.
	p := releaseParams()
	p.Qcap = 200
	p.Precision = sieve.Decimal{Digits: 3}

	res, err := Check(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, VerdictIndeterminate, res.Verdict)
	assert.Equal(t, uint32(3), res.Precision)

	perr := res.PrecisionErr()
	require.Error(t, perr)
	assert.True(t, IsPrecisionError(perr))
}

func TestCheck_Deterministic(t *testing.T) {
	a, err := Check(context.Background(), releaseParams())
	require.NoError(t, err)
	b, err := Check(context.Background(), releaseParams())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// =============================================================================
// Parameter derivation
// =============================================================================

func TestCheck_DerivesCutoffFromN(t *testing.T) {
	p := releaseParams()
	p.Q = 0
	p.Qcap = 0
	res, err := Check(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, int64(5253), res.Q)
	assert.Equal(t, int64(5253), res.Qcap)
}

func TestCheck_QcapClampedToQ(t *testing.T) {
	p := releaseParams()
	p.Qcap = 100000
	res, err := Check(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(5253), res.Qcap)
}

func TestCheck_DefaultCWIsTwiceWsup(t *testing.T) {
	explicit := releaseParams()
	derived := releaseParams()
	derived.CW = ""

	a, err := Check(context.Background(), explicit)
	require.NoError(t, err)
	b, err := Check(context.Background(), derived)
	require.NoError(t, err)
	assert.Equal(t, a.MajorBound, b.MajorBound)
	assert.Equal(t, a.Verdict, b.Verdict)
}

// =============================================================================
// Per-modulus model
// =============================================================================

func TestCheck_PerModulusUniformFallback(t *testing.T) {
	p := releaseParams()
	p.Qcap = 50
	p.Model = envelope.PerModulus{Table: &envelope.Table{}, Fallback: envelope.FallbackUseUniform}

	res, err := Check(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, "per_modulus", res.Model)
	assert.Equal(t, int64(49), res.FallbackCount, "every modulus in [2,50] misses the empty table")
	assert.Equal(t, VerdictPass, res.Verdict)

	// The stream that folds the contribution also produces S(50).
	acc, err := sieve.HarmonicSum(context.Background(), 50, sieve.Decimal{})
	require.NoError(t, err)
	want := acc.(*sieve.DecimalAccumulator).Decimal()
	assert.Equal(t, render(want), res.HarmonicSum)
}

func TestCheck_PerModulusMissingData(t *testing.T) {
	p := releaseParams()
	p.Qcap = 50
	p.Model = envelope.PerModulus{Table: &envelope.Table{}, Fallback: envelope.FallbackError}

	_, err := Check(context.Background(), p)
	require.Error(t, err)
	assert.True(t, envelope.IsMissingData(err))
}

// =============================================================================
// Invalid inputs
// =============================================================================

func TestCheck_InvalidInputs(t *testing.T) {
	cases := map[string]func(*Params){
		"empty N":       func(p *Params) { p.N = "" },
		"N of one":      func(p *Params) { p.N = "1" },
		"negative Q":    func(p *Params) { p.Q = -1 },
		"negative Qcap": func(p *Params) { p.Qcap = -1 },
		"zero K":        func(p *Params) { p.K = "0" },
		"bad SFloor":    func(p *Params) { p.SFloor = "abc" },
		"zero Wsup":     func(p *Params) { p.Wsup = "0" },
		"bad Rexp":      func(p *Params) { p.Rexp = "-0.6" },
		"bad CW":        func(p *Params) { p.CW = "-2" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := releaseParams()
			mutate(&p)
			_, err := Check(context.Background(), p)
			require.Error(t, err)
			assert.True(t, IsDomainError(err))
		})
	}
}
