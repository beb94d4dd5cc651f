package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	require.NoError(t, err, buf.String())
	return buf.String()
}

func TestCLI_EndToEnd(t *testing.T) {
	t.Setenv("TRAINSCHED_LOG_LEVEL", "error")
	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	now = func() time.Time { return clock }
	t.Cleanup(func() { now = func() time.Time { return time.Now().UTC() } })

	dir := t.TempDir()
	db := filepath.Join(dir, "data", "trainsched.db")
	gates := filepath.Join(dir, "gates.json")
	require.NoError(t, os.WriteFile(gates,
		[]byte(`[{"id":"linear","type":"volume","threshold":4,"atom_ids":["algebra.linear"]}]`), 0o600))
	common := []string{"--db", db, "--env", filepath.Join(dir, "missing.env"), "--gates", gates}

	out := run(t, append([]string{"record", "--atom", "algebra.linear", "--section", "quant", "--correct", "--seconds", "60"}, common...)...)
	assert.Contains(t, out, "500 → 520")
	assert.Contains(t, out, "unstarted → learning")
	_, err := os.Stat(db)
	require.NoError(t, err, "database is created under --db")

	out = run(t, append([]string{"gates"}, common...)...)
	assert.Contains(t, out, "linear")
	assert.Contains(t, out, "25%")

	out = run(t, append([]string{"plan"}, common...)...)
	assert.Contains(t, out, "algebra.linear")
	assert.Contains(t, out, "gate")

	out = run(t, append([]string{"due"}, common...)...)
	assert.Contains(t, out, "Nothing due")

	out = run(t, append([]string{"stats"}, common...)...)
	assert.Contains(t, out, "XP today")
	assert.Contains(t, out, "100/100")

	out = run(t, append([]string{"snapshot", "save"}, common...)...)
	assert.Contains(t, out, "Saved snapshot 1")

	xlsx := filepath.Join(dir, "out.xlsx")
	out = run(t, append([]string{"export", xlsx}, common...)...)
	assert.Contains(t, out, "1 atoms")
	_, err = os.Stat(xlsx)
	assert.NoError(t, err)
}

func TestCLI_Version(t *testing.T) {
	out := run(t, "version")
	assert.Contains(t, out, "trainsched (devel) rules v1.0.0")
}
