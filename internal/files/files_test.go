package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestFindABFFiles(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "raw", "cell02.abf"))
	writeFile(t, filepath.Join(base, "raw", "cell01.ABF"))
	writeFile(t, filepath.Join(base, "raw", "notes.txt"))

	d := NewDiscovery(base)
	found, err := d.FindABFFiles("raw")
	require.NoError(t, err)

	require.Len(t, found, 2)
	// Name-sorted so sweep order matches acquisition order.
	assert.Equal(t, "cell01.ABF", found[0].Name)
	assert.Equal(t, "cell02.abf", found[1].Name)
}

func TestFindABFFilesMissingDir(t *testing.T) {
	d := NewDiscovery(t.TempDir())
	_, err := d.FindABFFiles("nope")
	assert.Error(t, err)
}

func TestFindABFFilesAbsoluteDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cell01.abf"))

	// A discovery rooted elsewhere still honors absolute directories.
	d := NewDiscovery(t.TempDir())
	found, err := d.FindABFFiles(dir)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(dir, "cell01.abf"), found[0].Path)
}

func TestFindPrairieViewFolders(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "acq", "Cell1-001", "Cell1-001_Cycle00001_VoltageRecording_001.xml"))
	writeFile(t, filepath.Join(base, "acq", "Scan-002", "LineScan-002.csv"))
	writeFile(t, filepath.Join(base, "acq", "misc", "readme.txt"))

	d := NewDiscovery(base)
	folders, err := d.FindPrairieViewFolders("acq")
	require.NoError(t, err)

	require.Len(t, folders, 2)
	assert.Equal(t, "Cell1-001", folders[0].Name)
	assert.Equal(t, "Scan-002", folders[1].Name)
	assert.True(t, folders[0].IsDir)
}
