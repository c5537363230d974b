package espi

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`)

	path, err := Save(dir, "bulk_50916", data)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bulk_50916.xml"), path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, written)
}

func TestSave_TimestampedName(t *testing.T) {
	dir := t.TempDir()

	path, err := Save(dir, "", []byte("<feed/>"))
	require.NoError(t, err)

	assert.Regexp(t,
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.xml$`),
		filepath.Base(path),
	)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive", "espi")

	path, err := Save(dir, "payload", []byte("<feed/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "payload.xml"), path)
}

func TestSave_DirectoryNotCreatable(t *testing.T) {
	// A regular file where the directory should go.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := Save(blocker, "payload", []byte("<feed/>"))
	assert.Error(t, err)
}
