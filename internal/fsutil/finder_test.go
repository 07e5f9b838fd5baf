package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
}

func TestFindFilesByExtension(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	writeFiles(t, root, "z.hcl", "a.hcl", "sub/m.hcl", "notes.txt", ".git/config.hcl")

	// --- Act ---
	files, err := FindFilesByExtension(root, ".hcl")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "sub", "m.hcl"),
		filepath.Join(root, "z.hcl"),
	}, files)
}

func TestFindFilesByExtension_EmptyExtensionPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir(), "") })
}

func TestHasEntries(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "full/file")
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))

	testCases := []struct {
		dir  string
		want bool
	}{
		{dir: "full", want: true},
		{dir: "empty", want: false},
		{dir: "missing", want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.dir, func(t *testing.T) {
			got, err := HasEntries(filepath.Join(root, tc.dir))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
