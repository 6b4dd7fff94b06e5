package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"wse-scanner/internal/errors"
	"wse-scanner/internal/export"
)

// setupEnv points the configuration at a temp dir and the quotes fixtures.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	fixtures, err := filepath.Abs(filepath.Join("..", "quotes", "testdata"))
	require.NoError(t, err)

	t.Setenv("GPW_QUOTES_DATA_DIR", fixtures)
	t.Setenv("GPW_QUOTES_INSTRUMENTS_FILE", filepath.Join(dir, "missing.json"))
	t.Setenv("GPW_QUOTES_DB_PATH", filepath.Join(dir, "scanner.db"))
	t.Setenv("GPW_EXPORT_DIR", filepath.Join(dir, "exports"))
	t.Setenv("GPW_LOGGING_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "--config", dir, "version", "--json")
	require.NoError(t, err)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v["version"])

	_, err = os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err, "config template should be written on first run")
}

func TestPatternsCommand(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "--config", dir, "patterns", "--json")
	require.NoError(t, err)

	var entries []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 15)
	assert.Equal(t, "hammer", entries[0]["name"])
	assert.Equal(t, "bearishKicker", entries[14]["name"])

	t.Setenv("GPW_SCANNER_EXTENDED_PATTERNS", "true")
	out, err = run(t, "--config", dir, "patterns")
	require.NoError(t, err)
	assert.Contains(t, out, "Dark Cloud Cover")
}

func TestResampleCommand(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "--config", dir, "resample", "11bit", "--weekly", "--last", "2", "--json")
	require.NoError(t, err)

	var bars []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &bars))
	require.Len(t, bars, 2)
	assert.Equal(t, "20220603", bars[0].Date)
	assert.InDelta(t, 489.0, bars[0].Open, 1e-9)
	assert.InDelta(t, 522.0, bars[0].Close, 1e-9)
	assert.InDelta(t, 14049.0, bars[0].Volume, 1e-9)
	assert.Equal(t, "20220606", bars[1].Date)

	_, err = run(t, "--config", dir, "resample", "NOPE")
	assert.Error(t, err)
}

func TestScanCommandJSON(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("GPW_SCANNER_RISE_FACTOR", "0.5")

	out, err := run(t, "--config", dir, "scan", "--no-date-check", "--dry-run", "--json")
	require.NoError(t, err)

	var report scanReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "daily", string(report.Granularity))
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 1, report.Admitted)
	assert.Empty(t, report.AsOf)
}

func TestScanRecordAndHistory(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, "--config", dir, "scan", "--weekly", "--no-date-check", "--dry-run", "--record")
	require.NoError(t, err)

	out, err := run(t, "--config", dir, "history", "--json")
	require.NoError(t, err)

	var runs []struct {
		Granularity string
		Evaluated   int
	}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "weekly", runs[0].Granularity)
	assert.Equal(t, 1, runs[0].Evaluated)
}

func TestScanStaleDataFails(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("GPW_RETRY_MAX_ATTEMPTS", "1")

	// The fixture ends in 2022, so the date check skips every instrument.
	_, err := run(t, "--config", dir, "scan", "--dry-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoData)
}

func TestExportCommand(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, "--config", dir, "export", "11BIT", "--weekly")
	require.NoError(t, err)

	path := export.FileName(filepath.Join(dir, "exports"), "11BIT", "weekly")
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(export.BarRecord), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	assert.Equal(t, int64(4), pr.GetNumRows())
}

func TestResampleTable(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "--config", dir, "resample", "11BIT", "--last", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "CHANGE")
	assert.Contains(t, out, "20220606")
	assert.Contains(t, out, "-0.77%")
}
