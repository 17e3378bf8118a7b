package report

import (
	"context"
	"database/sql"
	"fmt"
)

// RunRecord identifies one reporter run and the arithmetic it was recorded with.
type RunRecord struct {
	Token     string
	Qcap      int64
	Mode      string
	Precision uint32
	Model     string
}

// CreateRun records a new run. The token must be unique.
func (s *Store) CreateRun(ctx context.Context, run RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (token, qcap, mode, precision, model)
		VALUES (?, ?, ?, ?, ?)
	`, run.Token, run.Qcap, run.Mode, run.Precision, run.Model)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// GetRun loads the run recorded under token.
func (s *Store) GetRun(ctx context.Context, token string) (RunRecord, error) {
	var run RunRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT token, qcap, mode, precision, model
		FROM runs WHERE token = ?
	`, token).Scan(&run.Token, &run.Qcap, &run.Mode, &run.Precision, &run.Model)
	if err == sql.ErrNoRows {
		return RunRecord{}, &DomainError{Param: "resume", Value: token, Constraint: "no run recorded under this token"}
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ExtendRun raises the recorded qcap after a resumed run streams past it.
func (s *Store) ExtendRun(ctx context.Context, token string, qcap int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET qcap = ? WHERE token = ? AND qcap < ?
	`, qcap, token, qcap)
	if err != nil {
		return fmt.Errorf("extend run: %w", err)
	}
	return nil
}

// WriteRow inserts one report row. Uses ON CONFLICT DO NOTHING for
// idempotency - recomputing a previously emitted row is a no-op, which is
// what makes resume safe.
func (s *Store) WriteRow(ctx context.Context, token string, row Row) error {
	var envelopeQ any
	if row.EnvelopeQ != "" {
		envelopeQ = row.EnvelopeQ
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_rows (run_token, q, phi, term, cumulative, envelope_q, fallback_used)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_token, q) DO NOTHING
	`, token, row.Q, row.Phi, row.Term, row.Cumulative, envelopeQ, row.FallbackUsed)
	if err != nil {
		return fmt.Errorf("write row q=%d: %w", row.Q, err)
	}
	return nil
}
