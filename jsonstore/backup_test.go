package jsonstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func TestBackupRoundtrip(t *testing.T) {
	data := socialData()
	st := createStore(t, data)
	dir := t.TempDir()
	for _, name := range []string{"b.json", "b.json.br", "b.json.zst", "b.json.gz"} {
		dst := filepath.Join(dir, name)
		err := st.Backup(dst)
		assert.NoError(t, err, name)
		got, err := ReadBackup(dst)
		assert.NoError(t, err, name)
		assert.Equal(t, data, got, name)
	}
}

func TestBackupMissingDir(t *testing.T) {
	st := createStore(t, socialData())
	err := st.Backup(filepath.Join(t.TempDir(), "no", "such", "dir.json"))
	assert.Error(t, err)
}

func TestReadBackupCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.json")
	err := os.WriteFile(path, []byte("[1]"), 0644)
	assert.NoError(t, err)
	_, err = ReadBackup(path)
	assert.True(t, errors.Is(err, ErrCorrupt), "%v", err)
}

func TestRestore(t *testing.T) {
	st := createStore(t, socialData())
	dst := filepath.Join(t.TempDir(), "b.json.br")
	err := st.Backup(dst)
	assert.NoError(t, err)

	assert.True(t, st.Clear())
	assert.Equal(t, 0, st.Len())
	assert.True(t, st.Restore(dst))
	assert.Equal(t, socialData(), st.All())
	assert.Equal(t, socialData(), readFileJSON(t, st.Location()))

	// restore from a missing backup doesn't change anything
	assert.False(t, st.Restore(dst+".missing"))
	assert.Error(t, st.Err())
	assert.Equal(t, socialData(), st.All())
}
