package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tailcheck/internal/report"
	"tailcheck/internal/verify"
)

// Exit codes for CLI commands.
const (
	ExitPass          = 0 // Inequality verified (or plain success)
	ExitFail          = 1 // Inequality violated
	ExitIndeterminate = 2 // Requested precision could not resolve the margin sign
	ExitInvalid       = 3 // Invalid input, consistency failure, missing table data
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// The engine has no transient failure modes, so any error that is not an
// ExitError is treated as invalid input.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitInvalid
}

// verdictErr maps a checker verdict onto the exit-code convention.
// A passing verdict is nil so the process exits 0.
func verdictErr(res *verify.Result) error {
	switch res.Verdict {
	case verify.VerdictPass:
		return nil
	case verify.VerdictIndeterminate:
		return WrapExitError(ExitIndeterminate, "verdict indeterminate", res.PrecisionErr())
	default:
		return NewExitError(ExitFail, fmt.Sprintf("tail inequality violated: margin %s", res.Margin))
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer

	printer *message.Printer
}

// NewOutputFormatter creates a formatter writing to w in the given format.
func NewOutputFormatter(format string, w io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:  format,
		Writer:  w,
		printer: message.NewPrinter(language.English),
	}
}

// PrintResult renders a checker result.
func (f *OutputFormatter) PrintResult(res *verify.Result) error {
	if f.Format == "json" {
		return f.printJSON(res)
	}

	fmt.Fprintln(f.Writer, "Tail inequality check")
	fmt.Fprintf(f.Writer, "  N:            %s\n", res.N)
	if res.Mode == "exact" {
		fmt.Fprintf(f.Writer, "  mode:         exact (decided at %d digits)\n", res.Precision)
	} else {
		fmt.Fprintf(f.Writer, "  mode:         decimal (%d digits)\n", res.Precision)
	}
	fmt.Fprintf(f.Writer, "  model:        %s\n", res.Model)
	fmt.Fprintf(f.Writer, "  Q:            %s\n", f.printer.Sprintf("%d", res.Q))
	fmt.Fprintf(f.Writer, "  Qcap:         %s\n", f.printer.Sprintf("%d", res.Qcap))
	fmt.Fprintf(f.Writer, "  ln N:         %s\n", res.LogN)
	fmt.Fprintf(f.Writer, "  R:            %s\n", res.R)
	fmt.Fprintf(f.Writer, "  S(Qcap):      %s\n", res.HarmonicSum)
	if res.HarmonicSumExact != "" {
		fmt.Fprintf(f.Writer, "  S exact:      %s\n", res.HarmonicSumExact)
	}
	fmt.Fprintf(f.Writer, "  major bound:  %s\n", res.MajorBound)
	fmt.Fprintf(f.Writer, "  minor bound:  %s\n", res.MinorBound)
	fmt.Fprintf(f.Writer, "  total bound:  %s\n", res.TotalBound)
	fmt.Fprintf(f.Writer, "  threshold:    %s\n", res.Threshold)
	fmt.Fprintf(f.Writer, "  margin:       %s\n", res.Margin)
	fmt.Fprintf(f.Writer, "  ratio:        %s\n", res.Ratio)
	if res.FallbackCount > 0 {
		fmt.Fprintf(f.Writer, "  fallbacks:    %s\n", f.printer.Sprintf("%d", res.FallbackCount))
	}
	if res.Note != "" {
		fmt.Fprintf(f.Writer, "  note:         %s\n", res.Note)
	}
	fmt.Fprintf(f.Writer, "Verdict: %s\n", res.Verdict)
	return nil
}

// PrintDiagnostics renders strict-mode diagnostics.
func (f *OutputFormatter) PrintDiagnostics(d *verify.Diagnostics) error {
	if f.Format == "json" {
		return f.printJSON(d)
	}

	fmt.Fprintln(f.Writer, "Strict diagnostics")
	fmt.Fprintf(f.Writer, "  Q:                   %s\n", f.printer.Sprintf("%d", d.Q))
	fmt.Fprintf(f.Writer, "  S at %d digits:      %s\n", d.BasePrecision, d.SDecimalBase)
	fmt.Fprintf(f.Writer, "  S at %d digits:     %s\n", d.HiPrecision, d.SDecimalHi)
	fmt.Fprintf(f.Writer, "  S exact:             %s\n", d.SExact)
	fmt.Fprintf(f.Writer, "  |decimal - exact|:   %s\n", d.DecimalMinusExact)
	fmt.Fprintf(f.Writer, "  strictly increasing: %t\n", d.StrictlyIncreasing)
	for k := 1; ; k++ {
		delta, ok := d.MonotoneDeltas[fmt.Sprintf("%d", k)]
		if !ok {
			break
		}
		fmt.Fprintf(f.Writer, "  delta at Q+%d:        %s\n", k, delta)
	}
	return nil
}

// PrintSummary renders a per-modulus report summary.
func (f *OutputFormatter) PrintSummary(s *report.Summary) error {
	if f.Format == "json" {
		return f.printJSON(s)
	}

	fmt.Fprintln(f.Writer, "Per-modulus report")
	fmt.Fprintf(f.Writer, "  run token:    %s\n", s.RunToken)
	fmt.Fprintf(f.Writer, "  rows:         %s\n", f.printer.Sprintf("%d", s.Rows))
	if s.Rows > 0 {
		fmt.Fprintf(f.Writer, "  moduli:       %s..%s\n",
			f.printer.Sprintf("%d", s.FirstQ), f.printer.Sprintf("%d", s.LastQ))
	}
	fmt.Fprintf(f.Writer, "  cumulative:   %s\n", s.FinalCumulative)
	if s.Fallbacks > 0 {
		fmt.Fprintf(f.Writer, "  fallbacks:    %s\n", f.printer.Sprintf("%d", s.Fallbacks))
	}
	fmt.Fprintf(f.Writer, "  resumed:      %t\n", s.Resumed)
	return nil
}

func (f *OutputFormatter) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.Writer, string(data))
	return err
}
