package fsops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixsafe/pixsafe/internal/stegoerr"
)

func TestStatReportsMissingExistingFileAndDir(t *testing.T) {
	dir := t.TempDir()

	info, err := Stat(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.False(t, info.Exists)

	filePath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0o644))
	info, err = Stat(filePath)
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.False(t, info.IsDir)
	assert.Equal(t, uint64(5), info.Size)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	info, err = Stat(sub)
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.True(t, info.IsDir)
}

func TestEnsureDirCreatesNestedParents(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, EnsureDir(target))
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListPNGsSortedMatchesExtensionCaseInsensitivelyAndSkipsDirs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.PNG", "m.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "c.png"), 0o755))

	names, err := ListPNGsSorted(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.PNG", "b.png", "m.png"}, names)
}

func TestListPNGsSortedRejectsMissingDir(t *testing.T) {
	_, err := ListPNGsSorted(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestListPNGsSortedRejectsNonPNGFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	_, err := ListPNGsSorted(dir)
	require.Error(t, err)
	assert.True(t, stegoerr.Is(err, stegoerr.KindUnsupportedImage))
}

func TestPurgeDirRemovesEntriesAndCreatesMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "y.txt"), nil, 0o644))

	require.NoError(t, PurgeDir(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	missing := filepath.Join(dir, "fresh")
	require.NoError(t, PurgeDir(missing))
	info, err := os.Stat(missing)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPurgeHiddenNonPNGRemovesOnlyHiddenNonPNGFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.png"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.png"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	require.NoError(t, PurgeHiddenNonPNG(dir))

	_, err := os.Stat(filepath.Join(dir, "keep.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ".hidden.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ".DS_Store"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "visible.txt"))
	assert.NoError(t, err, "non-hidden non-PNG files are left for ListPNGsSorted to reject")
}

func TestWriteFileAtomicWritesContentAndLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	require.NoError(t, WriteFileAtomic(path, []byte("payload"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomicOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("new-content"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("new-content"), got)
}
