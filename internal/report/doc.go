// Package report streams one audit row per modulus: q, phi(q), the
// harmonic term, the running cumulative sum, and, when an envelope model is
// attached, the per-modulus envelope value and whether the uniform fallback
// was substituted.
//
// ARCHITECTURE:
//
// Append-Only Rows:
// Rows are emitted in ascending modulus order and, once written for a given
// modulus, are never revised. CSV output is flushed every FlushEvery rows
// so an interrupted run leaves a valid prefix.
//
// Resumable Runs:
// When a SQLite store is attached every row is also persisted under a run
// token (UUIDv7), with conflict-ignoring inserts so replaying a prefix is
// idempotent. Resuming reads the highest stored modulus and its cumulative
// sum, seeds the accumulator, and extends the stream; deterministic
// accumulation makes the extension byte-identical to an unbroken run. A
// resumed run must match the mode, precision and model recorded for its
// token.
//
// The store is single-writer, mirroring the engine's overall discipline;
// WAL mode keeps concurrent readers (audit queries) cheap.
package report
