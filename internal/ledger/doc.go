// Package ledger holds the fixed constants of the verification and guards
// them against drift.
//
// The persisted record is {Q, S_floor, K, C_W, cached_harmonic_sum_at_Q}.
// Constants is a plain immutable value passed into every computation, never
// process-wide state, so several configurations can be verified in one run
// without cross-contamination.
//
// Files are YAML, validated against an embedded CUE schema before decoding.
// On load the engine recomputes S(Q) and fails with a ConsistencyError if
// it diverges from the cached value beyond the release tolerance. This is
// the guard against a hand-edited or stale constant.
package ledger
