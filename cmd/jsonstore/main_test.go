package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kjk/storage/log"

	"github.com/alecthomas/assert"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	defer func() {
		log.Output = os.Stdout
		log.Verbose = false
	}()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	assert.NoError(t, err, strings.Join(args, " "))
	return out
}

func newStoreFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "store.json")
	mustRun(t, "-f", path, "init")
	return path
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	mustRun(t, "-f", path, "init")
	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "{}", string(d))

	// init on existing store keeps the data
	mustRun(t, "-f", path, "set", "k", "v")
	mustRun(t, "-f", path, "init")
	assert.Equal(t, "\"v\"\n", mustRun(t, "-f", path, "get", "k"))
}

func TestMissingFile(t *testing.T) {
	_, err := runCmd(t, "get", "k")
	assert.Error(t, err)
	_, err = runCmd(t, "-f", filepath.Join(t.TempDir(), "missing.json"), "get", "k")
	assert.Error(t, err)
}

func TestSetGet(t *testing.T) {
	path := newStoreFile(t)
	mustRun(t, "-f", path, "set", "name", "John")
	mustRun(t, "-f", path, "set", "age", "30")
	mustRun(t, "-f", path, "set", "facebook", `{"clientId":"x","clientSecret":"y"}`)

	assert.Equal(t, "\"John\"\n", mustRun(t, "-f", path, "get", "name"))
	assert.Equal(t, "30\n", mustRun(t, "-f", path, "get", "age"))
	assert.Equal(t, "null\n", mustRun(t, "-f", path, "get", "missing"))
	assert.Equal(t, "\"def\"\n", mustRun(t, "-f", path, "get", "missing", "def"))
	assert.Equal(t, "true\n", mustRun(t, "-f", path, "has", "name"))
	assert.Equal(t, "false\n", mustRun(t, "-f", path, "has", "missing"))
	assert.Equal(t, "age\nfacebook\nname\n", mustRun(t, "-f", path, "keys"))
}

func TestUpdateRemoveClear(t *testing.T) {
	path := newStoreFile(t)
	mustRun(t, "-f", path, "set", "facebook", `{"clientId":"x"}`)
	mustRun(t, "-f", path, "set", "twitter", `{"key":"k"}`)
	mustRun(t, "-f", path, "update", "facebook", `{"accessToken":"tok"}`)

	out := mustRun(t, "-f", path, "get", "facebook")
	var fb map[string]any
	err := json.Unmarshal([]byte(out), &fb)
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"clientId": "x", "accessToken": "tok"}, fb)

	_, err = runCmd(t, "-f", path, "update", "facebook", `[1]`)
	assert.Error(t, err)
	_, err = runCmd(t, "-f", path, "update", "missing", `{"a":1}`)
	assert.Error(t, err)

	mustRun(t, "-f", path, "rm", "twitter")
	_, err = runCmd(t, "-f", path, "rm", "twitter")
	assert.Error(t, err)
	assert.Equal(t, "facebook\n", mustRun(t, "-f", path, "keys"))

	mustRun(t, "-f", path, "clear")
	assert.Equal(t, "{}\n", mustRun(t, "-f", path, "all"))
	st, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), st.Size())

	mustRun(t, "-f", path, "delete")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAllFormats(t *testing.T) {
	path := newStoreFile(t)
	mustRun(t, "-f", path, "set", "name", "John")

	assert.Equal(t, "{\"name\":\"John\"}\n", mustRun(t, "-f", path, "all"))
	assert.Equal(t, "{\n  \"name\": \"John\"\n}\n", mustRun(t, "-f", path, "--pretty", "all"))
	mustRun(t, "-f", path, "set", "cfg", `{"a":{"b":"c"}}`)
	exp := "{\n  \"a\": {\n    \"b\": \"c\"\n  }\n}\n"
	assert.Equal(t, exp, mustRun(t, "-f", path, "--pretty", "get", "cfg"))
	mustRun(t, "-f", path, "rm", "cfg")
	assert.Equal(t, "name: John\n", mustRun(t, "-f", path, "all", "--format", "yaml"))
	out := mustRun(t, "-f", path, "all", "--format", "dump")
	assert.True(t, strings.Contains(out, "John"), out)
	_, err := runCmd(t, "-f", path, "all", "--format", "xml")
	assert.Error(t, err)
}

func TestBackupRestoreDiff(t *testing.T) {
	path := newStoreFile(t)
	mustRun(t, "-f", path, "set", "name", "John")
	backup := filepath.Join(t.TempDir(), "backup.json.zst")
	mustRun(t, "-f", path, "backup", backup)

	assert.Equal(t, "no differences\n", mustRun(t, "-f", path, "diff", backup))

	mustRun(t, "-f", path, "set", "name", "Jane")
	out := mustRun(t, "-f", path, "diff", backup)
	assert.True(t, strings.Contains(out, `-  "name": "John"`), out)
	assert.True(t, strings.Contains(out, `+  "name": "Jane"`), out)

	mustRun(t, "-f", path, "restore", backup)
	assert.Equal(t, "\"John\"\n", mustRun(t, "-f", path, "get", "name"))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, "John", parseValue("John"))
	assert.Equal(t, "John", parseValue(`"John"`))
	assert.Equal(t, float64(30), parseValue("30"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, nil, parseValue("null"))
	assert.Equal(t, []any{"a"}, parseValue(`["a"]`))
	assert.Equal(t, "{bad", parseValue("{bad"))
}

func TestS3ConfigFromEnv(t *testing.T) {
	t.Setenv("JSONSTORE_S3_ACCESS", "access")
	t.Setenv("JSONSTORE_S3_BUCKET", "bucket")
	t.Setenv("JSONSTORE_S3_INSECURE", "true")
	c := s3ConfigFromEnv()
	assert.Equal(t, "access", c.Access)
	assert.Equal(t, "bucket", c.Bucket)
	assert.True(t, c.Insecure)

	// fails config validation before trying to connect
	path := newStoreFile(t)
	_, err := runCmd(t, "-f", path, "backup", "--s3", "backups")
	assert.Error(t, err)
}
