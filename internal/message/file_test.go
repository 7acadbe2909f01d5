package message

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0o644))

	f, err := FileFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "report.txt", f.Name)
	assert.Equal(t, []byte("contents"), f.Bytes)
}

func TestFileFromPathMissing(t *testing.T) {
	_, err := FileFromPath(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, ErrLoadFile)
}

func TestBasename(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/tmp/dir/report.txt", "report.txt"},
		{"report.txt", "report.txt"},
		{"dir/", "dir"},
		{"/", "unknown"},
		{".", "unknown"},
		{"", "unknown"},
		{"dir/caf\xc3\xa9.txt", "café.txt"},
		{"bad\xff.txt", "bad�.txt"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, basename(tc.path), tc.path)
	}
}

func TestFileSaveCreatesDir(t *testing.T) {
	f := &File{Name: "saved.bin", Bytes: []byte{1, 2, 3}}
	dir := filepath.Join(t.TempDir(), "files")
	path, err := f.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "saved.bin"), path)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f.Bytes, got)
}
