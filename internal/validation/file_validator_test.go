package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurphys/internal/shared/testutil"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestValidateInputDirectory(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cell01.abf"), []byte("ABF2"))

	require.NoError(t, v.ValidateInputDirectory(dir, "*.abf"))
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Input directory validated")
	assert.True(t, handler.ContainsAttr("files_found", 1))
}

func TestValidateInputDirectoryMissing(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	err := v.ValidateInputDirectory(filepath.Join(t.TempDir(), "nope"), "*.abf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	testutil.AssertLogContains(t, handler, slog.LevelError, "Input directory does not exist")
}

func TestValidateInputDirectoryEmptyIsNotAnError(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	require.NoError(t, v.ValidateInputDirectory(t.TempDir(), "*.abf"))
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "No files matching pattern found")
	testutil.AssertNoErrors(t, handler)
}

func TestValidateInputDirectoryRejectsFile(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	path := filepath.Join(t.TempDir(), "cell01.abf")
	writeFile(t, path, []byte("ABF2"))

	err := v.ValidateInputDirectory(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestValidateOutputDirectoryCreates(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	dir := filepath.Join(t.TempDir(), "reports", "nested")
	require.NoError(t, v.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Output directory validated")
}

func TestValidateABFFile(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)
	dir := t.TempDir()

	t.Run("v1 signature", func(t *testing.T) {
		path := filepath.Join(dir, "v1.abf")
		writeFile(t, path, []byte("ABF \x00\x00\x00\x00"))
		assert.NoError(t, v.ValidateABFFile(path))
	})

	t.Run("v2 signature", func(t *testing.T) {
		path := filepath.Join(dir, "v2.abf")
		writeFile(t, path, []byte("ABF2\x00\x00\x00\x00"))
		assert.NoError(t, v.ValidateABFFile(path))
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(dir, "trace.csv")
		writeFile(t, path, []byte("ABF2"))
		err := v.ValidateABFFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not an ABF file")
	})

	t.Run("bad signature", func(t *testing.T) {
		path := filepath.Join(dir, "bad.abf")
		writeFile(t, path, []byte("JUNKJUNK"))
		err := v.ValidateABFFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unrecognized ABF signature")
	})

	t.Run("missing file", func(t *testing.T) {
		err := v.ValidateABFFile(filepath.Join(dir, "absent.abf"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})
}

func TestValidatePrairieViewFolder(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	t.Run("with metadata", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "scan-001.xml"), []byte("<PVScan/>"))
		writeFile(t, filepath.Join(dir, "scan-001_Cycle00001_VoltageRecording_001.csv"), []byte("Time,Primary\n"))
		assert.NoError(t, v.ValidatePrairieViewFolder(dir))
	})

	t.Run("no metadata", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "notes.txt"), []byte("hello"))
		err := v.ValidatePrairieViewFolder(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no PrairieView XML metadata")
	})
}

func TestCountFiles(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), nil)
	writeFile(t, filepath.Join(dir, "b.csv"), nil)
	writeFile(t, filepath.Join(dir, "c.abf"), nil)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.csv"), 0755))

	count, err := v.CountFiles(dir, "*.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestValidateCSVFile(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	dir := t.TempDir()
	good := filepath.Join(dir, "summary.csv")
	writeFile(t, good, []byte("source,sweeps\n"))
	assert.NoError(t, v.ValidateCSVFile(good))

	bad := filepath.Join(dir, "summary.xlsx")
	writeFile(t, bad, nil)
	err := v.ValidateCSVFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a CSV file")
}
