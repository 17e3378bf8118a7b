// Package verify evaluates the tail inequality and renders a verdict.
//
// The check combines a major-arc bound (window constant times envelope
// contribution over the arc radius), a minor-arc bound (the uniform envelope
// at the minor-arc scale, weighted by the supremum factor), and a threshold
// derived from the singular-series floor and the safety factor:
//
//	major     = (C_W / R) * E(N) * S(Qcap)
//	minor     = Wsup * R / (160 ln R)
//	threshold = (S_floor / (8K)) * N / (ln N)^2
//	verdict   = Pass iff major + minor < threshold
//
// ARCHITECTURE:
//
// Sound Verdicts:
// Every scalar is evaluated once nominally (for reporting) and bracketed by
// an explicit error slack proportional to the operation count and the
// working precision. Pass is declared only when the inflated total clears
// the deflated threshold; Fail only when the deflated total meets the
// inflated threshold. A straddle is Indeterminate in decimal mode. Exact
// mode keeps the harmonic sum as a reduced rational and escalates precision
// until the sign resolves, so it never returns Indeterminate; a strict
// inequality that cannot be proved is reported as Fail, never Pass.
//
// Determinism:
// Identical parameters and precision mode produce bit-identical results.
// There is no randomness, no wall-clock input, and no retry logic anywhere
// in the evaluation.
package verify
