package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLinearizeRewritesEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "web.env", "FOO=bar\n")
	path := writeFile(t, dir, "docker-compose.yml", `
services:
  web:
    image: nginx
    env_file:
      - web.env
`)

	doc, err := Linearize(path)
	require.NoError(t, err)
	require.Len(t, doc.Files, 1)
	require.Equal(t, filepath.Join(dir, "web.env"), doc.Files[0].Local)
	require.Contains(t, string(doc.YAML), doc.Files[0].Remote)
	require.NotContains(t, string(doc.YAML), "- web.env\n")
}

func TestLinearizeInlinesExtends(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yml", `
services:
  base:
    image: alpine
    environment:
      - FOO=bar
`)
	path := writeFile(t, dir, "docker-compose.yml", `
services:
  app:
    extends:
      file: base.yml
      service: base
    environment:
      - BAZ=qux
`)

	doc, err := Linearize(path)
	require.NoError(t, err)
	require.NotContains(t, string(doc.YAML), "extends")
	require.Contains(t, string(doc.YAML), "alpine")
	require.Contains(t, string(doc.YAML), "FOO=bar")
	require.Contains(t, string(doc.YAML), "BAZ=qux")
}

func TestRemoteNameIsDirTailPlusStem(t *testing.T) {
	require.Equal(t, "myproj-web.env", remoteName("/home/user/myproj", "web.env"))
}

func TestStackName(t *testing.T) {
	require.Equal(t, "my-stack_1", StackName("My Stack_1"))
	require.Equal(t, "proj-app", StackName("proj--app"))
}
