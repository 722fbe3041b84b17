package mountvfs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectZip(t *testing.T) {
	require.IsType(t, ZipSource{}, Detect("/tmp/share.zip"))
}

func TestDetectHTTP(t *testing.T) {
	require.IsType(t, HTTPSource{}, Detect("https://example.invalid/share.zip"))
}

func TestDetectPlainPathIsNil(t *testing.T) {
	require.Nil(t, Detect("/home/user/shared"))
}

func TestZipSourceResolve(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "fixture.zip")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	entry, err := w.Create("hello.txt")
	require.NoError(t, err)
	_, err = entry.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	extracted, err := ZipSource{}.Resolve(archivePath)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(extracted, "hello.txt"))
	require.NoError(t, err)
	require.Equal(t, "hi", string(content))
}

func TestResolveHostPlainPathPassesThrough(t *testing.T) {
	host, err := ResolveHost("/home/user/shared")
	require.NoError(t, err)
	require.Equal(t, "/home/user/shared", host)
}

func TestResolveHostZipDelegatesToZipSource(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "fixture.zip")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	entry, err := w.Create("hello.txt")
	require.NoError(t, err)
	_, err = entry.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	extracted, err := ResolveHost(archivePath)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(extracted, "hello.txt"))
	require.NoError(t, err)
	require.Equal(t, "hi", string(content))
}
