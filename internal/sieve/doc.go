// Package sieve computes Euler totients and the harmonic sum
// S(Q) = sum over q in [2,Q] of 1/(q*phi(q)).
//
// ARCHITECTURE:
//
// Segmented Streaming:
// Moduli are processed in fixed-size blocks so a large cutoff never forces
// the full totient table into memory. Primes up to sqrt(cutoff) are sieved
// once; each block derives its totients from them independently.
//
// Ordered Prefix Fold:
// Block totients may be computed in parallel (the work is independent per
// modulus), but the cumulative sum column is a strictly ordered prefix fold.
// Blocks are always merged and accumulated in ascending modulus order, in a
// single consumer goroutine. Out-of-order merging would corrupt the
// monotonicity of the cumulative column.
//
// Precision:
// Two accumulation modes exist. Exact mode keeps the running sum as a
// reduced big.Rat with no precision loss. Decimal mode accumulates apd
// decimals with ceiling rounding at every step, so the reported sum never
// understates the true sum. The sum feeds an upper bound in a soundness
// check; understating it would be unsound.
//
// Determinism:
// Identical inputs yield byte-identical terms and cumulative values
// regardless of block size or worker count. Resuming from a previously
// emitted (q, cumulative) pair reproduces the unbroken stream exactly.
package sieve
