package sieve

import (
	"context"
	"strconv"
)

// HarmonicSum computes S(upTo) = sum over q in [2, upTo] of 1/(q*phi(q))
// in the given precision mode and returns the final accumulator.
//
// S(1) is the empty sum: the lower limit q=2 is fixed by the published
// release value S(5253) = 1.20348665358.
func HarmonicSum(ctx context.Context, upTo uint64, p Precision) (Accumulator, error) {
	if upTo < 1 {
		return nil, NewDomainError("upTo", strconv.FormatUint(upTo, 10), "must be >= 1")
	}
	return Stream(ctx, StreamConfig{UpTo: upTo, Precision: p}, nil)
}
