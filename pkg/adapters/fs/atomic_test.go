package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("writes and replaces", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "note.md")

		require.NoError(t, writeFileAtomic(target, []byte("first"), 0644))
		require.NoError(t, writeFileAtomic(target, []byte("second"), 0644))

		got, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, writeFileAtomic(filepath.Join(dir, "note.md"), []byte("x"), 0600))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), TempFilePrefix), "leftover %s", e.Name())
		}
	})

	t.Run("fails when the directory is missing", func(t *testing.T) {
		err := writeFileAtomic(filepath.Join(t.TempDir(), "missing", "note.md"), []byte("x"), 0644)
		assert.Error(t, err)
	})
}
