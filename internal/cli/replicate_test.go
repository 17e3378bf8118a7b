package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailcheck/internal/verify"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// =============================================================================
// replicate-tail
// =============================================================================

func TestReplicateTail_PublishedConstants(t *testing.T) {
	out, err := execute(t, "replicate-tail")
	require.NoError(t, err)

	assert.Contains(t, out, "S(Qcap):      1.20348665358")
	assert.Contains(t, out, "Q:            5,253")
	assert.Contains(t, out, "Verdict: PASS")
}

func TestReplicateTail_JSONFormat(t *testing.T) {
	out, err := execute(t, "replicate-tail", "--format", "json")
	require.NoError(t, err)

	var res verify.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, verify.VerdictPass, res.Verdict)
	assert.Equal(t, "1.20348665358", res.HarmonicSum)
	assert.Equal(t, int64(5253), res.Q)
}

func TestReplicateTail_RejectsArgs(t *testing.T) {
	_, err := execute(t, "replicate-tail", "extra")
	require.Error(t, err)
	assert.Equal(t, ExitInvalid, GetExitCode(err))
}

// =============================================================================
// major-arc-envelope
// =============================================================================

func TestMajorArcEnvelope_SmallCutoff(t *testing.T) {
	out, err := execute(t, "major-arc-envelope", "--Qcap", "100")
	require.NoError(t, err)

	assert.Contains(t, out, "Qcap:         100")
	assert.Contains(t, out, "Verdict: PASS")
}

func TestMajorArcEnvelope_ExactMode(t *testing.T) {
	out, err := execute(t, "major-arc-envelope", "--Qcap", "50", "--mode", "exact", "--format", "json")
	require.NoError(t, err)

	var res verify.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "exact", res.Mode)
	assert.Contains(t, res.HarmonicSumExact, "/")
}

func TestMajorArcEnvelope_IndeterminateExitCode(t *testing.T) {
	// 3 working digits cannot separate the bounds for a 200-term sum; the
	// verdict is INDETERMINATE and the process must exit 2, never 0.
	out, err := execute(t, "major-arc-envelope", "--Qcap", "200", "--prec", "3")
	require.Error(t, err)
	assert.Equal(t, ExitIndeterminate, GetExitCode(err))
	assert.True(t, verify.IsPrecisionError(err))
	assert.Contains(t, out, "Verdict: INDETERMINATE")
}

func TestMajorArcEnvelope_InvalidQcap(t *testing.T) {
	_, err := execute(t, "major-arc-envelope", "--Qcap", "0")
	require.Error(t, err)
	assert.Equal(t, ExitInvalid, GetExitCode(err))
}

func TestMajorArcEnvelope_MissingTableData(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "envelope.csv")
	writeFile(t, table, "q,form,c1,c2\n3,cNoverlog,0.5,0\n")

	_, err := execute(t, "major-arc-envelope",
		"--Qcap", "10", "--model", "per_modulus", "--table", table, "--fallback", "error")
	require.Error(t, err)
	assert.Equal(t, ExitInvalid, GetExitCode(err))
}

// =============================================================================
// per-modulus-envelope
// =============================================================================

func TestPerModulusEnvelope_WritesCSV(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "rows.csv")

	stderr, err := execute(t, "per-modulus-envelope", "--Qcap", "25", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "rows:         24")

	data := readFile(t, out)
	assert.Contains(t, data, "q,phi_q,term,cumulative_sum,envelope_q,fallback_used\n")
	assert.Contains(t, data, "\n2,1,0.5,0.5,")
}

func TestPerModulusEnvelope_ResumeRequiresDB(t *testing.T) {
	_, err := execute(t, "per-modulus-envelope", "--Qcap", "25", "--resume", "tok")
	require.Error(t, err)
	assert.Equal(t, ExitInvalid, GetExitCode(err))
}
