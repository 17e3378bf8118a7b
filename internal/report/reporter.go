package report

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"tailcheck/internal/envelope"
	"tailcheck/internal/sieve"
)

// Row is one emitted report row. EnvelopeQ is empty when no model is
// attached.
type Row struct {
	Q            uint64
	Phi          uint64
	Term         string
	Cumulative   string
	EnvelopeQ    string
	FallbackUsed bool
}

// Config configures one reporter run.
type Config struct {
	// Qcap is the last modulus reported, inclusive. Must be > 0.
	Qcap int64

	// N is the envelope scale. Required when Model is attached.
	N string

	// Model optionally attaches per-row envelope columns.
	Model envelope.Model

	// Precision selects the accumulation arithmetic. Nil means
	// Decimal{DefaultDigits}.
	Precision sieve.Precision

	// FlushEvery is the checkpoint interval in rows. 0 means 256.
	FlushEvery int

	// Out, when non-nil, receives CSV rows. The header is written only for
	// fresh runs so a resumed stream appends cleanly.
	Out io.Writer

	// Store, when non-nil, persists rows for resume.
	Store *Store

	// ResumeToken resumes a stored run from its last row.
	ResumeToken string
}

// Summary describes a finished run.
type Summary struct {
	RunToken        string
	Rows            int64
	FirstQ          uint64
	LastQ           uint64
	FinalCumulative string
	Fallbacks       int64
	Resumed         bool
}

// Header returns the CSV header for the configured columns.
func Header(withEnvelope bool) []string {
	h := []string{"q", "phi_q", "term", "cumulative_sum"}
	if withEnvelope {
		h = append(h, "envelope_q", "fallback_used")
	}
	return h
}

// Run streams report rows in ascending modulus order.
func Run(ctx context.Context, cfg Config) (*Summary, error) {
	if cfg.Qcap <= 0 {
		return nil, &DomainError{Param: "Qcap", Value: strconv.FormatInt(cfg.Qcap, 10), Constraint: "must be > 0"}
	}
	precision := cfg.Precision
	if precision == nil {
		precision = sieve.Decimal{}
	}
	flushEvery := cfg.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 256
	}

	var ev *envelope.Evaluator
	if cfg.Model != nil {
		if cfg.N == "" {
			return nil, &DomainError{Param: "N", Value: "", Constraint: "required when an envelope model is attached"}
		}
		n, _, err := apd.NewFromString(cfg.N)
		if err != nil {
			return nil, &DomainError{Param: "N", Value: cfg.N, Constraint: "must be a decimal number"}
		}
		actx := apd.BaseContext.WithPrecision(sieve.Digits(precision))
		if ev, err = envelope.NewEvaluator(actx, cfg.Model, n); err != nil {
			return nil, err
		}
	}

	summary := &Summary{RunToken: cfg.ResumeToken}
	from := uint64(2)
	seed := ""
	if cfg.Store != nil {
		if cfg.ResumeToken != "" {
			run, err := cfg.Store.GetRun(ctx, cfg.ResumeToken)
			if err != nil {
				return nil, err
			}
			if err := checkResume(run, precision, cfg.Model); err != nil {
				return nil, err
			}
			last, ok, err := cfg.Store.LastRow(ctx, cfg.ResumeToken)
			if err != nil {
				return nil, err
			}
			if ok {
				from = last.Q + 1
				seed = last.Cumulative
				summary.Resumed = true
			}
		} else {
			summary.RunToken = uuid.Must(uuid.NewV7()).String()
			err := cfg.Store.CreateRun(ctx, RunRecord{
				Token:     summary.RunToken,
				Qcap:      cfg.Qcap,
				Mode:      sieve.ModeName(precision),
				Precision: sieve.Digits(precision),
				Model:     modelName(cfg.Model),
			})
			if err != nil {
				return nil, err
			}
		}
	}

	var w *csv.Writer
	if cfg.Out != nil {
		w = csv.NewWriter(cfg.Out)
		if !summary.Resumed {
			if err := w.Write(Header(cfg.Model != nil)); err != nil {
				return nil, err
			}
		}
	}

	acc, err := sieve.Stream(ctx, sieve.StreamConfig{
		From:           from,
		UpTo:           uint64(cfg.Qcap),
		Precision:      precision,
		SeedCumulative: seed,
	}, func(sr sieve.Row) error {
		row := Row{Q: sr.Q, Phi: sr.Phi, Term: sr.Term, Cumulative: sr.Cumulative}
		if ev != nil {
			e, fallback, err := ev.At(sr.Q)
			if err != nil {
				return err
			}
			row.EnvelopeQ = e.String()
			row.FallbackUsed = fallback
			if fallback {
				summary.Fallbacks++
			}
		}
		if summary.Rows == 0 {
			summary.FirstQ = sr.Q
		}
		summary.Rows++
		summary.LastQ = sr.Q

		if w != nil {
			if err := w.Write(record(row, cfg.Model != nil)); err != nil {
				return err
			}
			if summary.Rows%int64(flushEvery) == 0 {
				w.Flush()
				if err := w.Error(); err != nil {
					return err
				}
			}
		}
		if cfg.Store != nil {
			return cfg.Store.WriteRow(ctx, summary.RunToken, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if w != nil {
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
	}
	if summary.Resumed {
		if err := cfg.Store.ExtendRun(ctx, summary.RunToken, cfg.Qcap); err != nil {
			return nil, err
		}
	}
	summary.FinalCumulative = acc.Cumulative()
	return summary, nil
}

// record renders a row for CSV.
func record(row Row, withEnvelope bool) []string {
	rec := []string{
		strconv.FormatUint(row.Q, 10),
		strconv.FormatUint(row.Phi, 10),
		row.Term,
		row.Cumulative,
	}
	if withEnvelope {
		rec = append(rec, row.EnvelopeQ, strconv.FormatBool(row.FallbackUsed))
	}
	return rec
}

// checkResume rejects a resume whose arithmetic disagrees with the
// recorded run.
func checkResume(run RunRecord, precision sieve.Precision, model envelope.Model) error {
	if run.Mode != sieve.ModeName(precision) {
		return &ResumeMismatchError{Token: run.Token, Field: "mode", Recorded: run.Mode, Given: sieve.ModeName(precision)}
	}
	if run.Precision != sieve.Digits(precision) {
		return &ResumeMismatchError{
			Token:    run.Token,
			Field:    "precision",
			Recorded: strconv.FormatUint(uint64(run.Precision), 10),
			Given:    strconv.FormatUint(uint64(sieve.Digits(precision)), 10),
		}
	}
	if run.Model != modelName(model) {
		return &ResumeMismatchError{Token: run.Token, Field: "model", Recorded: run.Model, Given: modelName(model)}
	}
	return nil
}

// modelName is the stored spelling of an optional model.
func modelName(m envelope.Model) string {
	if m == nil {
		return "none"
	}
	return envelope.ModelName(m)
}
