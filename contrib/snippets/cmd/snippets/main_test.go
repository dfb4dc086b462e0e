package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchbase/docs-sdk-go/contrib/snippets"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func tree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func TestCommands(t *testing.T) {
	root := tree(t, map[string]string{
		"kv/main.go": "func main() {\n\t// tag::get[]\n\tget()\n\t// end::get[]\n}\n",
	})

	t.Run("list", func(t *testing.T) {
		out, err := run(t, "list", root)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "kv", "main.go")+": get\n", out)
	})

	t.Run("extract", func(t *testing.T) {
		out, err := run(t, "extract", "get", "--root", root)
		require.NoError(t, err)
		assert.Equal(t, "get()\n", out)
	})

	t.Run("extract missing", func(t *testing.T) {
		_, err := run(t, "extract", "put", "--root", root)
		assert.ErrorIs(t, err, snippets.ErrTagNotFound)
	})

	t.Run("check", func(t *testing.T) {
		out, err := run(t, "check", root)
		require.NoError(t, err)
		assert.Contains(t, out, "1 regions in 1 files")
	})
}

func TestCheckFails(t *testing.T) {
	root := tree(t, map[string]string{
		"kv/main.go": "// tag::get[]\n",
	})

	_, err := run(t, "check", root)
	assert.ErrorIs(t, err, snippets.ErrTagUnclosed)
}
