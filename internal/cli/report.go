package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tailcheck/internal/envelope"
	"tailcheck/internal/ledger"
	"tailcheck/internal/report"
	"tailcheck/internal/sieve"
)

// ReportOptions holds flags for the per-modulus-envelope command.
type ReportOptions struct {
	*RootOptions
	Qcap       int64
	N          string
	Table      string
	Fallback   string
	Mode       string
	Digits     uint32
	Out        string
	Database   string
	Resume     string
	FlushEvery int
}

// NewReportCommand creates the per-modulus-envelope command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "per-modulus-envelope",
		Short: "Stream the per-modulus envelope report as CSV",
		Long: `Stream one CSV row per modulus q from 2 through Qcap:

  q,phi_q,term,cumulative_sum,envelope_q,fallback_used

term is 1/(q*phi(q)), cumulative_sum its running total under the chosen
arithmetic, and envelope_q the per-modulus bound E(q). Moduli absent from
the table follow the fallback policy.

With --db the rows are also persisted to SQLite, and --resume continues a
stored run from its last checkpoint, producing rows byte-identical to an
unbroken stream.

Examples:
  tailcheck per-modulus-envelope --Qcap 1000
  tailcheck per-modulus-envelope --Qcap 5253 --table envelopes.csv --db runs.db --out report.csv
  tailcheck per-modulus-envelope --Qcap 8000 --db runs.db --resume <token> --out report.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Qcap, "Qcap", 1000, "last modulus reported, inclusive")
	cmd.Flags().StringVar(&opts.N, "N", ledger.ReleaseN, "envelope scale N")
	cmd.Flags().StringVar(&opts.Table, "table", "", "per-modulus envelope CSV (q,form,c1,c2)")
	cmd.Flags().StringVar(&opts.Fallback, "fallback", "uniform", "table miss policy (uniform|error)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "decimal", "arithmetic mode (decimal|exact)")
	cmd.Flags().Uint32Var(&opts.Digits, "prec", sieve.DefaultDigits, "decimal working precision in significant digits")
	cmd.Flags().StringVar(&opts.Out, "out", "-", "CSV output path (- for stdout)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database for persisted rows")
	cmd.Flags().StringVar(&opts.Resume, "resume", "", "run token to resume (requires --db)")
	cmd.Flags().IntVar(&opts.FlushEvery, "flush-every", 0, "checkpoint interval in rows (0 for default)")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Qcap <= 0 {
		return NewExitError(ExitInvalid, fmt.Sprintf("invalid Qcap %d: must be a positive integer", opts.Qcap))
	}
	if opts.Resume != "" && opts.Database == "" {
		return NewExitError(ExitInvalid, "--resume requires --db")
	}

	policy, err := parseFallback(opts.Fallback)
	if err != nil {
		return err
	}
	table, err := loadTableFile(opts.Table)
	if err != nil {
		return err
	}
	precision, err := buildPrecision(opts.Mode, opts.Digits)
	if err != nil {
		return err
	}

	out, closeOut, err := openOut(opts.Out, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	var st *report.Store
	if opts.Database != "" {
		st, err = report.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitInvalid, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		slog.Debug("database ready", "path", opts.Database)
	}

	cfg := report.Config{
		Qcap:        opts.Qcap,
		N:           opts.N,
		Model:       envelope.PerModulus{Table: table, Fallback: policy},
		Precision:   precision,
		FlushEvery:  opts.FlushEvery,
		Out:         out,
		Store:       st,
		ResumeToken: opts.Resume,
	}

	slog.Info("streaming per-modulus report",
		"qcap", opts.Qcap, "n", opts.N, "mode", opts.Mode, "resume", opts.Resume != "")
	summary, err := report.Run(ctx, cfg)
	if err != nil {
		if envelope.IsMissingData(err) {
			return WrapExitError(ExitInvalid, "envelope table incomplete", err)
		}
		return WrapExitError(ExitInvalid, "report failed", err)
	}

	// The summary goes to stderr when the CSV occupies stdout.
	summaryWriter := cmd.OutOrStdout()
	if opts.Out == "-" {
		summaryWriter = cmd.ErrOrStderr()
	}
	formatter := NewOutputFormatter(opts.Format, summaryWriter)
	if err := formatter.PrintSummary(summary); err != nil {
		return WrapExitError(ExitInvalid, "failed to render summary", err)
	}
	return nil
}

// openOut resolves the CSV destination. "-" streams to stdout; any other
// path is opened for append so resumed runs extend the same file.
func openOut(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, WrapExitError(ExitInvalid, "failed to open output file", err)
	}
	return f, func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("error closing output file", "error", closeErr)
		}
	}, nil
}
