package dirtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "z.txt"), []byte("zzz"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "nested", "deep.bin"), []byte{0x00, 0xFF, 0x10}, 0o644))
}

func TestBuildSerializeDeserializeRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src)

	root, err := Build(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(src), string(root.Name))
	assert.True(t, root.IsDir)

	encoded := Serialize(root)
	decoded, err := Deserialize(encoded)
	require.NoError(t, err)
	assert.Equal(t, root.Name, decoded.Name)
	assert.Equal(t, root.IsDir, decoded.IsDir)
	assert.Len(t, decoded.Children, len(root.Children))
}

func TestBuildChildrenAreLexicographicallySorted(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src)

	root, err := Build(src)
	require.NoError(t, err)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "a.txt", string(root.Children[0].Name))
	assert.Equal(t, "b", string(root.Children[1].Name))
}

func TestBuildTrailingSlashOmitsRootName(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src)

	root, err := Build(src + "/")
	require.NoError(t, err)
	assert.Empty(t, root.Name)
	assert.True(t, root.IsDir)
	assert.Len(t, root.Children, 2)
}

func TestBuildSingleFile(t *testing.T) {
	src := t.TempDir()
	p := filepath.Join(src, "solo.txt")
	require.NoError(t, os.WriteFile(p, []byte("payload"), 0o644))

	root, err := Build(p)
	require.NoError(t, err)
	assert.Equal(t, "solo.txt", string(root.Name))
	assert.False(t, root.IsDir)
	assert.Equal(t, []byte("payload"), root.Data)
}

func TestWriteToDiskRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src)

	root, err := Build(src)
	require.NoError(t, err)
	encoded := Serialize(root)
	decoded, err := Deserialize(encoded)
	require.NoError(t, err)

	dst := t.TempDir()
	require.NoError(t, WriteToDisk(decoded, dst))

	got, err := os.ReadFile(filepath.Join(dst, string(decoded.Name), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	deep, err := os.ReadFile(filepath.Join(dst, string(decoded.Name), "b", "nested", "deep.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xFF, 0x10}, deep)
}

func TestWriteToDiskTrailingSlashWritesChildrenDirectly(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src)

	root, err := Build(src + "/")
	require.NoError(t, err)
	encoded := Serialize(root)
	decoded, err := Deserialize(encoded)
	require.NoError(t, err)

	dst := t.TempDir()
	require.NoError(t, WriteToDisk(decoded, dst))

	got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestDeserializeTruncatedFails(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src)
	root, err := Build(src)
	require.NoError(t, err)
	encoded := Serialize(root)

	_, err = Deserialize(encoded[:len(encoded)-3])
	assert.Error(t, err)
}

func TestDeserializeTrailingBytesFails(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src)
	root, err := Build(src)
	require.NoError(t, err)
	encoded := Serialize(root)

	_, err = Deserialize(append(encoded, 0x00))
	assert.Error(t, err)
}

func TestDeserializeUnknownTagFails(t *testing.T) {
	_, err := Deserialize([]byte{0x02, 0, 0, 0, 0})
	assert.Error(t, err)
}

func TestWriteToDiskRejectsTraversalName(t *testing.T) {
	malicious := &Node{Name: []byte(".."), IsDir: false, Data: []byte("x")}
	dst := t.TempDir()
	err := WriteToDisk(malicious, dst)
	assert.Error(t, err)
}
