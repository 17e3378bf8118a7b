package report

import (
	"context"
	"database/sql"
	"fmt"
)

// LastRow returns the highest-modulus row stored for a run, which is the
// resume point. ok is false when the run has no rows yet.
func (s *Store) LastRow(ctx context.Context, token string) (Row, bool, error) {
	var row Row
	var envelopeQ sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT q, phi, term, cumulative, envelope_q, fallback_used
		FROM report_rows
		WHERE run_token = ?
		ORDER BY q DESC
		LIMIT 1
	`, token).Scan(&row.Q, &row.Phi, &row.Term, &row.Cumulative, &envelopeQ, &row.FallbackUsed)
	if err == sql.ErrNoRows {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("last row: %w", err)
	}
	row.EnvelopeQ = envelopeQ.String
	return row, true, nil
}

// ReadRows returns every stored row for a run in ascending modulus order.
func (s *Store) ReadRows(ctx context.Context, token string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q, phi, term, cumulative, envelope_q, fallback_used
		FROM report_rows
		WHERE run_token = ?
		ORDER BY q ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var envelopeQ sql.NullString
		if err := rows.Scan(&row.Q, &row.Phi, &row.Term, &row.Cumulative, &envelopeQ, &row.FallbackUsed); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.EnvelopeQ = envelopeQ.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	if out == nil {
		out = []Row{}
	}
	return out, nil
}

// CountRows returns the number of rows stored for a run.
func (s *Store) CountRows(ctx context.Context, token string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM report_rows WHERE run_token = ?
	`, token).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
