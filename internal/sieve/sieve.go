package sieve

import (
	"math"
	"strconv"
)

// Totients returns phi(q) for every q in [1, upTo] via a multiplicative
// sieve in O(upTo log log upTo). Index 0 of the result is unused.
func Totients(upTo int) ([]uint64, error) {
	if upTo < 1 {
		return nil, NewDomainError("upTo", strconv.Itoa(upTo), "must be >= 1")
	}

	phi := make([]uint64, upTo+1)
	for i := range phi {
		phi[i] = uint64(i)
	}
	for p := 2; p <= upTo; p++ {
		if phi[p] != uint64(p) {
			continue // p is composite, already reduced
		}
		for k := p; k <= upTo; k += p {
			phi[k] -= phi[k] / uint64(p)
		}
	}
	return phi, nil
}

// primesUpTo returns all primes in [2, limit] in ascending order.
func primesUpTo(limit uint64) []uint64 {
	if limit < 2 {
		return nil
	}
	composite := make([]bool, limit+1)
	var primes []uint64
	for p := uint64(2); p <= limit; p++ {
		if composite[p] {
			continue
		}
		primes = append(primes, p)
		for k := p * p; k <= limit; k += p {
			composite[k] = true
		}
	}
	return primes
}

// totientSegment computes phi(q) for every q in [lo, hi] using the primes
// up to sqrt(hi). The returned slice is indexed by q-lo.
//
// For each modulus the segment tracks the remaining unfactored cofactor;
// after all small primes are applied, a cofactor > 1 is a single prime
// factor larger than sqrt(hi).
func totientSegment(lo, hi uint64, primes []uint64) []uint64 {
	n := hi - lo + 1
	res := make([]uint64, n)
	rem := make([]uint64, n)
	for i := uint64(0); i < n; i++ {
		v := lo + i
		res[i] = v
		rem[i] = v
	}
	for _, p := range primes {
		if p*p > hi {
			break
		}
		start := (lo + p - 1) / p * p
		for k := start; k <= hi; k += p {
			i := k - lo
			if rem[i]%p != 0 {
				continue
			}
			res[i] -= res[i] / p
			for rem[i]%p == 0 {
				rem[i] /= p
			}
		}
	}
	for i := uint64(0); i < n; i++ {
		if rem[i] > 1 {
			res[i] -= res[i] / rem[i]
		}
	}
	return res
}

// isqrt returns floor(sqrt(n)).
func isqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	r := uint64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
