package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailcheck/internal/report"
	"tailcheck/internal/verify"
)

// =============================================================================
// Exit codes
// =============================================================================

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFail, GetExitCode(NewExitError(ExitFail, "violated")))
	assert.Equal(t, ExitIndeterminate, GetExitCode(NewExitError(ExitIndeterminate, "unresolved")))
	assert.Equal(t, ExitInvalid, GetExitCode(errors.New("plain error")))

	wrapped := WrapExitError(ExitFail, "outer", errors.New("inner"))
	assert.Equal(t, ExitFail, GetExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "outer")
	assert.Contains(t, wrapped.Error(), "inner")
	assert.Equal(t, "inner", errors.Unwrap(wrapped).Error())
}

func TestVerdictErr(t *testing.T) {
	assert.NoError(t, verdictErr(&verify.Result{Verdict: verify.VerdictPass}))

	err := verdictErr(&verify.Result{Verdict: verify.VerdictFail, Margin: "-1.5"})
	require.Error(t, err)
	assert.Equal(t, ExitFail, GetExitCode(err))

	err = verdictErr(&verify.Result{Verdict: verify.VerdictIndeterminate, Precision: 50})
	require.Error(t, err)
	assert.Equal(t, ExitIndeterminate, GetExitCode(err))
	assert.True(t, verify.IsPrecisionError(err))
}

// =============================================================================
// Formatting
// =============================================================================

func sampleResult() *verify.Result {
	return &verify.Result{
		N:           "4000000000000000000",
		Mode:        "decimal",
		Precision:   50,
		Model:       "uniform",
		Q:           5253,
		Qcap:        5253,
		LogN:        "42.8328260350",
		R:           "144955932736",
		HarmonicSum: "1.20348665358",
		MajorBound:  "9691.66867349",
		MinorBound:  "35252346.6798",
		TotalBound:  "35262038.3485",
		Threshold:   "3.27037678845E+13",
		Margin:      "3.27037326225E+13",
		Ratio:       "0.00000107822555716",
		Verdict:     verify.VerdictPass,
	}
}

func TestOutputFormatter_TextResult(t *testing.T) {
	buf := &bytes.Buffer{}
	f := NewOutputFormatter("text", buf)
	require.NoError(t, f.PrintResult(sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "Verdict: PASS")
	assert.Contains(t, out, "N:            4000000000000000000")
	assert.Contains(t, out, "Q:            5,253")
	assert.Contains(t, out, "decimal (50 digits)")
	assert.NotContains(t, out, "fallbacks")
	assert.NotContains(t, out, "note")
}

func TestOutputFormatter_TextResultExactMode(t *testing.T) {
	res := sampleResult()
	res.Mode = "exact"
	res.Precision = 60
	res.HarmonicSumExact = "12/10"
	res.FallbackCount = 3
	res.Note = "escalated once"

	buf := &bytes.Buffer{}
	require.NoError(t, NewOutputFormatter("text", buf).PrintResult(res))

	out := buf.String()
	assert.Contains(t, out, "exact (decided at 60 digits)")
	assert.Contains(t, out, "S exact:      12/10")
	assert.Contains(t, out, "fallbacks:    3")
	assert.Contains(t, out, "note:         escalated once")
}

func TestOutputFormatter_JSONResult(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, NewOutputFormatter("json", buf).PrintResult(sampleResult()))

	var decoded verify.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *sampleResult(), decoded)
}

func TestOutputFormatter_Summary(t *testing.T) {
	s := &report.Summary{
		RunToken:        "tok-1",
		Rows:            999,
		FirstQ:          2,
		LastQ:           1000,
		FinalCumulative: "1.2019143833311225236215940825650288610921235416523",
		Fallbacks:       999,
		Resumed:         true,
	}

	buf := &bytes.Buffer{}
	require.NoError(t, NewOutputFormatter("text", buf).PrintSummary(s))
	out := buf.String()
	assert.Contains(t, out, "rows:         999")
	assert.Contains(t, out, "moduli:       2..1,000")
	assert.Contains(t, out, "resumed:      true")

	buf.Reset()
	require.NoError(t, NewOutputFormatter("json", buf).PrintSummary(s))
	assert.Contains(t, buf.String(), "\"RunToken\": \"tok-1\"")
}
