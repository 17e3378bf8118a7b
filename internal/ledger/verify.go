package ledger

import (
	"context"

	"github.com/cockroachdb/apd/v3"

	"tailcheck/internal/sieve"
)

// VerifyCached recomputes S(Q) in decimal mode at the release precision and
// compares it against the cached ledger value. A deviation beyond the
// release tolerance is a ConsistencyError.
func VerifyCached(ctx context.Context, c Constants) error {
	if err := c.Validate(); err != nil {
		return err
	}

	cached, _, err := apd.NewFromString(c.CachedHarmonicSum)
	if err != nil {
		return &DomainError{
			Param:      "cached_harmonic_sum_at_Q",
			Value:      c.CachedHarmonicSum,
			Constraint: "must be a decimal number",
		}
	}

	acc, err := sieve.HarmonicSum(ctx, uint64(c.Q), sieve.Decimal{})
	if err != nil {
		return err
	}
	recomputed := acc.(*sieve.DecimalAccumulator).Decimal()

	actx := apd.BaseContext.WithPrecision(sieve.DefaultDigits)
	tol, _, err := apd.NewFromString(ReleaseTolerance)
	if err != nil {
		return err
	}
	diff := new(apd.Decimal)
	ed := apd.MakeErrDecimal(actx)
	ed.Sub(diff, recomputed, cached)
	ed.Abs(diff, diff)
	if err := ed.Err(); err != nil {
		return err
	}
	if diff.Cmp(tol) > 0 {
		return &ConsistencyError{
			Q:          c.Q,
			Cached:     c.CachedHarmonicSum,
			Recomputed: recomputed.String(),
			Tolerance:  ReleaseTolerance,
		}
	}
	return nil
}
