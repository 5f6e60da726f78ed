package u

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.json")
	assert.False(t, FileExists(path))
	assert.False(t, FileWritable(path))
	assert.Equal(t, int64(-1), FileSize(path))

	err := TouchFile(path)
	assert.NoError(t, err)
	assert.True(t, FileExists(path))
	assert.True(t, PathExists(path))
	assert.True(t, FileWritable(path))
	assert.Equal(t, int64(0), FileSize(path))

	// touching existing file doesn't truncate it
	err = os.WriteFile(path, []byte("{}"), 0644)
	assert.NoError(t, err)
	err = TouchFile(path)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), FileSize(path))

	assert.True(t, DirExists(dir))
	assert.False(t, FileExists(dir))
	assert.False(t, FileWritable(dir))
}
