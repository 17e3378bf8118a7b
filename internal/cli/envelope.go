package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tailcheck/internal/envelope"
	"tailcheck/internal/ledger"
	"tailcheck/internal/sieve"
	"tailcheck/internal/verify"
)

// EnvelopeOptions holds flags for the major-arc-envelope command.
type EnvelopeOptions struct {
	*RootOptions
	Model     string
	N         string
	K         string
	SFloor    string
	Wsup      string
	CW        string
	Rexp      string
	Qcap      int64
	Mode      string
	Digits    uint32
	Table     string
	Fallback  string
	Constants string
	Strict    bool
}

// NewEnvelopeCommand creates the major-arc-envelope command.
func NewEnvelopeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnvelopeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "major-arc-envelope",
		Short: "Check the tail inequality under a chosen envelope model",
		Long: `Evaluate the tail inequality

  (C_W / R) * sum_{q=2}^{Qcap} E(q) / (q * phi(q)) + Wsup * R / (160 ln R)
      < (S_floor / 8K) * N / (ln N)^2

under the uniform, trivial, or per-modulus envelope model. Numeric flags
take decimal literals so values never pass through binary floating point.

With --constants, the K, S_floor and C_W defaults come from a YAML ledger
file whose cached harmonic sum is recomputed and cross-checked first.
Explicit flags still override ledger values.

Examples:
  tailcheck major-arc-envelope --N 4e18 --Qcap 5253
  tailcheck major-arc-envelope --N 4e18 --Qcap 1000 --model per_modulus --table envelopes.csv
  tailcheck major-arc-envelope --N 4e18 --Qcap 5253 --mode exact --strict`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvelope(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Model, "model", "uniform", "envelope model (uniform|trivial|per_modulus)")
	cmd.Flags().StringVar(&opts.N, "N", ledger.ReleaseN, "even integer scale (integer or scientific literal)")
	cmd.Flags().StringVar(&opts.K, "K", "10", "safety factor K")
	cmd.Flags().StringVar(&opts.SFloor, "S", "1.2", "singular-series lower bound S_floor")
	cmd.Flags().StringVar(&opts.Wsup, "Wsup", "1.0", "weight supremum")
	cmd.Flags().StringVar(&opts.CW, "CW", "", "weight constant C_W (default 2*Wsup)")
	cmd.Flags().StringVar(&opts.Rexp, "Rexp", verify.CanonicalRexp, "minor-arc split exponent (R = N^Rexp)")
	cmd.Flags().Int64Var(&opts.Qcap, "Qcap", 0, "modulus cap for the harmonic sum (required)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "decimal", "arithmetic mode (decimal|exact)")
	cmd.Flags().Uint32Var(&opts.Digits, "prec", sieve.DefaultDigits, "decimal working precision in significant digits")
	cmd.Flags().StringVar(&opts.Table, "table", "", "per-modulus envelope CSV (q,form,c1,c2)")
	cmd.Flags().StringVar(&opts.Fallback, "fallback", "uniform", "per-modulus table miss policy (uniform|error)")
	cmd.Flags().StringVar(&opts.Constants, "constants", "", "YAML constants ledger to load defaults from")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "emit dual-precision and exact-sum diagnostics")
	_ = cmd.MarkFlagRequired("Qcap")

	return cmd
}

func runEnvelope(opts *EnvelopeOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Qcap <= 0 {
		return NewExitError(ExitInvalid, fmt.Sprintf("invalid Qcap %d: must be a positive integer", opts.Qcap))
	}

	if opts.Constants != "" {
		c, err := ledger.Load(opts.Constants)
		if err != nil {
			return WrapExitError(ExitInvalid, "failed to load constants ledger", err)
		}
		slog.Info("constants ledger loaded", "path", opts.Constants, "q", c.Q)
		if err := ledger.VerifyCached(ctx, c); err != nil {
			return WrapExitError(ExitInvalid, "ledger consistency check failed", err)
		}
		// Ledger values replace the built-in defaults; flags the user set
		// explicitly still win.
		if !cmd.Flags().Changed("K") {
			opts.K = c.KString()
		}
		if !cmd.Flags().Changed("S") {
			opts.SFloor = c.SFloorString()
		}
		if !cmd.Flags().Changed("CW") {
			opts.CW = c.CWString()
		}
	}

	model, err := buildModel(opts)
	if err != nil {
		return err
	}

	precision, err := buildPrecision(opts.Mode, opts.Digits)
	if err != nil {
		return err
	}

	params := verify.Params{
		N:         opts.N,
		Qcap:      opts.Qcap,
		K:         opts.K,
		SFloor:    opts.SFloor,
		Wsup:      opts.Wsup,
		CW:        opts.CW,
		Rexp:      opts.Rexp,
		Precision: precision,
		Model:     model,
	}

	slog.Info("evaluating tail inequality",
		"n", opts.N, "qcap", opts.Qcap, "model", opts.Model, "mode", opts.Mode)
	res, err := verify.Check(ctx, params)
	if err != nil {
		return WrapExitError(ExitInvalid, "tail check failed", err)
	}

	formatter := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
	if err := formatter.PrintResult(res); err != nil {
		return WrapExitError(ExitInvalid, "failed to render result", err)
	}

	if opts.Strict {
		basePrec := sieve.Digits(precision)
		if basePrec == 0 { // exact mode carries no working precision
			basePrec = sieve.DefaultDigits
		}
		diag, err := verify.RunDiagnostics(ctx, opts.N, basePrec, 2*basePrec+20, 5)
		if err != nil {
			return WrapExitError(ExitInvalid, "diagnostics failed", err)
		}
		if err := formatter.PrintDiagnostics(diag); err != nil {
			return WrapExitError(ExitInvalid, "failed to render diagnostics", err)
		}
	}

	return verdictErr(res)
}

// buildModel assembles the envelope model from command flags.
func buildModel(opts *EnvelopeOptions) (envelope.Model, error) {
	switch opts.Model {
	case "uniform":
		return envelope.Uniform{}, nil
	case "trivial":
		return envelope.Trivial{}, nil
	case "per_modulus":
		policy, err := parseFallback(opts.Fallback)
		if err != nil {
			return nil, err
		}
		table, err := loadTableFile(opts.Table)
		if err != nil {
			return nil, err
		}
		return envelope.PerModulus{Table: table, Fallback: policy}, nil
	default:
		return nil, NewExitError(ExitInvalid,
			fmt.Sprintf("invalid model %q: must be uniform, trivial or per_modulus", opts.Model))
	}
}

// buildPrecision maps the mode/prec flag pair onto a precision selector.
func buildPrecision(mode string, digits uint32) (sieve.Precision, error) {
	switch mode {
	case "decimal":
		return sieve.Decimal{Digits: digits}, nil
	case "exact":
		return sieve.Exact{}, nil
	default:
		return nil, NewExitError(ExitInvalid,
			fmt.Sprintf("invalid mode %q: must be decimal or exact", mode))
	}
}

func parseFallback(name string) (envelope.FallbackPolicy, error) {
	switch name {
	case "uniform":
		return envelope.FallbackUseUniform, nil
	case "error":
		return envelope.FallbackError, nil
	default:
		return 0, NewExitError(ExitInvalid,
			fmt.Sprintf("invalid fallback %q: must be uniform or error", name))
	}
}

// loadTableFile reads a per-modulus table. An empty path yields an empty
// table, so every modulus goes through the fallback policy.
func loadTableFile(path string) (*envelope.Table, error) {
	if path == "" {
		return &envelope.Table{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitInvalid, "failed to open envelope table", err)
	}
	defer f.Close()

	table, err := envelope.LoadTable(f)
	if err != nil {
		return nil, WrapExitError(ExitInvalid, "failed to parse envelope table", err)
	}
	slog.Debug("envelope table loaded", "path", path, "entries", table.Len())
	return table, nil
}
