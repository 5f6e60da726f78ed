package minioutil

import (
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func TestValidateConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{Access: "a", Bucket: "b"})
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Secret, Endpoint"), err.Error())

	err = validateConfig(&Config{Access: "a", Secret: "s", Bucket: "b", Endpoint: "e"})
	assert.NoError(t, err)
}

func TestBackupKey(t *testing.T) {
	ts := time.Date(2024, 3, 7, 9, 5, 2, 0, time.UTC)
	got := BackupKey("backups", "/data/settings.json", ts)
	assert.Equal(t, "backups/2024/03-07/settings-090502000.json.br", got)

	got = BackupKey("", "store", ts)
	assert.Equal(t, "2024/03-07/store-090502000.json.br", got)

	// same second, different milliseconds
	ts2 := ts.Add(7 * time.Millisecond)
	got2 := BackupKey("", "store", ts2)
	assert.Equal(t, "2024/03-07/store-090502007.json.br", got2)
	assert.True(t, got < got2)
}

func TestContentTypeForPath(t *testing.T) {
	ct, enc := contentTypeForPath("a/b.json.br")
	assert.True(t, strings.HasPrefix(ct, "application/json"), ct)
	assert.Equal(t, "br", enc)

	ct, enc = contentTypeForPath("a/b.json")
	assert.True(t, strings.HasPrefix(ct, "application/json"), ct)
	assert.Equal(t, "", enc)

	ct, enc = contentTypeForPath("a/b.zst")
	assert.Equal(t, "application/octet-stream", ct)
	assert.Equal(t, "zstd", enc)
}

func TestBackupsToRemove(t *testing.T) {
	keys := []string{
		"b/2024/03-08/settings-010000.json.br",
		"b/2024/03-07/settings-235959.json.br",
		"b/2024/03-07/other-120000.json.br",
		"b/2023/12-31/settings-120000.json.br",
		"b/2024/03-08/settings-extra.txt",
	}
	got := backupsToRemove(keys, "/data/settings.json", 1)
	exp := []string{
		"b/2023/12-31/settings-120000.json.br",
		"b/2024/03-07/settings-235959.json.br",
	}
	assert.Equal(t, exp, got)

	assert.Equal(t, 0, len(backupsToRemove(keys, "settings.json", 3)))
	assert.Equal(t, 3, len(backupsToRemove(keys, "settings.json", 0)))
}
