package verify

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"tailcheck/internal/sieve"
)

// Diagnostics compares the harmonic sum across precisions and against the
// exact rational around the derived cutoff, and checks that consecutive
// sums are strictly increasing. A non-increasing delta means the
// accumulation is broken and the verdict cannot be trusted.
type Diagnostics struct {
	Q                  int64             `json:"q"`
	SDecimalBase       string            `json:"s_decimal_base"`
	SDecimalHi         string            `json:"s_decimal_hi"`
	SExact             string            `json:"s_exact"`
	DecimalMinusExact  string            `json:"s_decimal_minus_exact_abs"`
	MonotoneDeltas     map[string]string `json:"monotone_deltas_hi_prec"`
	BasePrecision      uint32            `json:"base_precision"`
	HiPrecision        uint32            `json:"hi_precision"`
	StrictlyIncreasing bool              `json:"strictly_increasing"`
}

// RunDiagnostics evaluates strict diagnostics for N at two decimal
// precisions, looking kmax moduli to either side of Q = floor(N^(1/5)).
func RunDiagnostics(ctx context.Context, nLiteral string, basePrec, hiPrec uint32, kmax int) (*Diagnostics, error) {
	n, err := ParseN(nLiteral)
	if err != nil {
		return nil, err
	}
	if n.Sign() <= 0 {
		return nil, &DomainError{Param: "N", Value: nLiteral, Constraint: "must be positive"}
	}
	if basePrec == 0 || hiPrec == 0 || hiPrec < basePrec {
		return nil, &DomainError{
			Param:      "precision",
			Value:      fmt.Sprintf("base=%d hi=%d", basePrec, hiPrec),
			Constraint: "must satisfy 0 < base <= hi",
		}
	}
	if kmax < 1 {
		return nil, &DomainError{Param: "kmax", Value: strconv.Itoa(kmax), Constraint: "must be >= 1"}
	}

	root, err := NthRootFloor(n, 5)
	if err != nil {
		return nil, err
	}
	if !root.IsInt64() {
		return nil, &DomainError{Param: "N", Value: nLiteral, Constraint: "derived cutoff floor(N^(1/5)) exceeds int64"}
	}
	q := root.Int64()
	if q < 2 {
		return nil, &DomainError{Param: "N", Value: nLiteral, Constraint: "derived cutoff must be >= 2"}
	}

	d := &Diagnostics{
		Q:                  q,
		BasePrecision:      basePrec,
		HiPrecision:        hiPrec,
		MonotoneDeltas:     make(map[string]string),
		StrictlyIncreasing: true,
	}

	base, err := sumAt(ctx, uint64(q), basePrec)
	if err != nil {
		return nil, err
	}
	d.SDecimalBase = base.String()

	// High-precision sums at Q-kmax..Q+kmax for the monotone deltas.
	hi := make(map[int64]*apd.Decimal)
	for k := -kmax; k <= kmax; k++ {
		at := q + int64(k)
		if at < 1 {
			continue
		}
		s, err := sumAt(ctx, uint64(at), hiPrec)
		if err != nil {
			return nil, err
		}
		hi[at] = s
	}
	d.SDecimalHi = hi[q].String()

	hctx := apd.BaseContext.WithPrecision(hiPrec)
	ed := apd.MakeErrDecimal(hctx)
	for k := 1; k <= kmax; k++ {
		at := q + int64(k)
		prev, cur := hi[at-1], hi[at]
		if prev == nil || cur == nil {
			continue
		}
		delta := new(apd.Decimal)
		ed.Sub(delta, cur, prev)
		if delta.Sign() <= 0 {
			d.StrictlyIncreasing = false
		}
		d.MonotoneDeltas[strconv.Itoa(k)] = delta.String()
	}

	exactAcc, err := sieve.HarmonicSum(ctx, uint64(q), sieve.Exact{})
	if err != nil {
		return nil, err
	}
	exact := exactAcc.(*sieve.ExactAccumulator).Rat()
	d.SExact = exact.RatString()

	diff, err := absRatDelta(hctx, hi[q], exact)
	if err != nil {
		return nil, err
	}
	d.DecimalMinusExact = diff.String()
	if err := ed.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// sumAt is S(upTo) in decimal mode at the given precision.
func sumAt(ctx context.Context, upTo uint64, prec uint32) (*apd.Decimal, error) {
	acc, err := sieve.HarmonicSum(ctx, upTo, sieve.Decimal{Digits: prec})
	if err != nil {
		return nil, err
	}
	return acc.(*sieve.DecimalAccumulator).Decimal(), nil
}

// absRatDelta is |d - num/den| evaluated under hctx.
func absRatDelta(hctx *apd.Context, d *apd.Decimal, r *big.Rat) (*apd.Decimal, error) {
	num, _, err := apd.NewFromString(r.Num().String())
	if err != nil {
		return nil, err
	}
	den, _, err := apd.NewFromString(r.Denom().String())
	if err != nil {
		return nil, err
	}
	out := new(apd.Decimal)
	ed := apd.MakeErrDecimal(hctx)
	ed.Quo(out, num, den)
	ed.Sub(out, d, out)
	ed.Abs(out, out)
	return out, ed.Err()
}
