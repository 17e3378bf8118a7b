package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"tailcheck/internal/envelope"
	"tailcheck/internal/ledger"
	"tailcheck/internal/sieve"
	"tailcheck/internal/verify"
)

// NewReplicateTailCommand creates the replicate-tail command.
func NewReplicateTailCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replicate-tail",
		Short: "Replicate the published tail verification at N* = 4e18",
		Long: `Rerun the published tail-closure check with the release constants:
N* = 4e18, Q = 5253, K = 10, S_floor = 1.2, uniform envelope, 50-digit
decimal arithmetic with ceiling rounding on the harmonic sum.

The cached harmonic sum in the release ledger is recomputed from scratch
and cross-checked against S(5253) = 1.20348665358 before the inequality
is evaluated. Any drift beyond 1e-10 aborts the run.

Example:
  tailcheck replicate-tail
  tailcheck replicate-tail --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplicate(rootOpts, cmd)
		},
	}

	return cmd
}

func runReplicate(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c := ledger.Release()

	slog.Info("verifying release ledger", "q", c.Q, "cached_sum", c.CachedHarmonicSum)
	if err := ledger.VerifyCached(ctx, c); err != nil {
		return WrapExitError(ExitInvalid, "release ledger consistency check failed", err)
	}
	slog.Debug("cached harmonic sum confirmed", "tolerance", ledger.ReleaseTolerance)

	params := verify.Params{
		N:         ledger.ReleaseN,
		Q:         c.Q,
		Qcap:      c.Q,
		K:         c.KString(),
		SFloor:    c.SFloorString(),
		Wsup:      "1.0",
		CW:        c.CWString(),
		Rexp:      verify.CanonicalRexp,
		Precision: sieve.Decimal{},
		Model:     envelope.Uniform{},
	}

	slog.Info("evaluating tail inequality", "n", params.N, "q", params.Q)
	res, err := verify.Check(ctx, params)
	if err != nil {
		return WrapExitError(ExitInvalid, "tail check failed", err)
	}

	formatter := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
	if err := formatter.PrintResult(res); err != nil {
		return WrapExitError(ExitInvalid, "failed to render result", err)
	}
	return verdictErr(res)
}
