// Package envelope evaluates per-modulus major-arc error bounds.
//
// The model set is sealed: Uniform (the closed form N/(160 ln N)), Trivial
// (N ln N + N, the no-information bound kept for diagnostics), and
// PerModulus (a table of tighter modulus-specific bounds with an explicit
// fallback policy for missing entries). Dispatch sites type-switch over the
// sealed set, so adding a model is a compile-visible change rather than an
// implicit default argument.
//
// The uniform form encodes the known result that the per-modulus major-arc
// error for arithmetic-progression prime counts is uniformly dominated by
// N/(160 log N); the per-modulus table exists only to allow tighter bounds
// where one has been proved.
package envelope
