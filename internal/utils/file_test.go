package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"cat.jpg", "cat.jpg"},
		{"a/b\\c.png", "a_b_c.png"},
		{"what?.jpg", "what_.jpg"},
		{"  spaced.jpg  ", "spaced.jpg"},
		{"..", "_"},
		{"", "_"},
		{"../../etc/passwd", "_.._etc_passwd"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, SanitizeFilename(test.input), "input %q", test.input)
	}
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.tfrecord")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(file))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	require.NoError(t, EnsureDir(dir))
}

func TestExpandRecordPaths(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "shards")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	for _, name := range []string{"b.tfrecord", "a.tfrecord", ".hidden"} {
		require.NoError(t, os.WriteFile(filepath.Join(sub, name), []byte("x"), 0o644))
	}
	single := filepath.Join(dir, "single.tfrecord")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0o644))

	files, err := ExpandRecordPaths([]string{single, sub})
	require.NoError(t, err)
	assert.Equal(t, []string{
		single,
		filepath.Join(sub, "a.tfrecord"),
		filepath.Join(sub, "b.tfrecord"),
	}, files)

	_, err = ExpandRecordPaths([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KiB", FormatFileSize(1536))
	assert.Equal(t, "-1 B", FormatFileSize(-1))
}
