package minioutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kjk/storage/atomicfile"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https e.g. for local minio server
	Insecure     bool
	RequestTrace io.Writer
}

type Client struct {
	Client *minio.Client
	Bucket string
}

func validateConfig(c *Config) error {
	if c == nil {
		return errors.New("must provide config")
	}
	var missing []string
	if c.Access == "" {
		missing = append(missing, "Access")
	}
	if c.Secret == "" {
		missing = append(missing, "Secret")
	}
	if c.Bucket == "" {
		missing = append(missing, "Bucket")
	}
	if c.Endpoint == "" {
		missing = append(missing, "Endpoint")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing config fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// New connects to s3-compatible storage and verifies the bucket exists
func New(config *Config) (*Client, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	c := config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if c.RequestTrace != nil {
		mc.TraceOn(c.RequestTrace)
	}
	found, err := mc.BucketExists(ctx(), c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}
	return &Client{
		Client: mc,
		Bucket: c.Bucket,
	}, nil
}

// BackupKey returns remote path for a backup of store name made at t:
// <prefix>/YYYY/MM-DD/<name>-HHMMSSmmm.json.br
// mmm is milliseconds, so backups made within the same second get
// different keys
func BackupKey(prefix string, name string, t time.Time) string {
	t = t.UTC()
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	ms := t.Nanosecond() / int(time.Millisecond)
	file := fmt.Sprintf("%s-%s%03d.json.br", name, t.Format("150405"), ms)
	return path.Join(prefix, t.Format("2006"), t.Format("01-02"), file)
}

func contentTypeForPath(remotePath string) (contentType string, encoding string) {
	ext := strings.ToLower(path.Ext(remotePath))
	switch ext {
	case ".br":
		encoding = "br"
	case ".gz":
		encoding = "gzip"
	case ".zst", ".zstd":
		encoding = "zstd"
	}
	if encoding != "" {
		ext = strings.ToLower(path.Ext(strings.TrimSuffix(remotePath, path.Ext(remotePath))))
	}
	contentType = mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType, encoding
}

func (c *Client) Exists(remotePath string) bool {
	_, err := c.Client.StatObject(ctx(), c.Bucket, remotePath, minio.StatObjectOptions{})
	return err == nil
}

func (c *Client) UploadData(remotePath string, data []byte) (info minio.UploadInfo, err error) {
	contentType, encoding := contentTypeForPath(remotePath)
	opts := minio.PutObjectOptions{
		ContentType: contentType,
	}
	// a decompressed download would not match what we uploaded, so
	// the encoding is only recorded as metadata
	if encoding != "" {
		opts.UserMetadata = map[string]string{"compression": encoding}
	}
	r := bytes.NewReader(data)
	return c.Client.PutObject(ctx(), c.Bucket, remotePath, r, int64(len(data)), opts)
}

func (c *Client) DownloadFileAtomically(dstPath string, remotePath string) error {
	obj, err := c.Client.GetObject(ctx(), c.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	if err = os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	f, err := atomicfile.New(dstPath)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	if _, err = io.Copy(f, obj); err != nil {
		return err
	}
	return f.Close()
}

// ListObjects returns objects under prefix, recursively
func (c *Client) ListObjects(prefix string) ([]minio.ObjectInfo, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}
	var res []minio.ObjectInfo
	for oi := range c.Client.ListObjects(ctx(), c.Bucket, opts) {
		if oi.Err != nil {
			return nil, oi.Err
		}
		res = append(res, oi)
	}
	return res, nil
}

func (c *Client) Remove(remotePath string) error {
	return c.Client.RemoveObject(ctx(), c.Bucket, remotePath, minio.RemoveObjectOptions{})
}

// backupsToRemove returns all but the newest keep backups of store name.
// Keys created by BackupKey sort chronologically.
func backupsToRemove(keys []string, name string, keep int) []string {
	prefix := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) + "-"
	var matching []string
	for _, k := range keys {
		if strings.HasPrefix(path.Base(k), prefix) && strings.HasSuffix(k, ".json.br") {
			matching = append(matching, k)
		}
	}
	if len(matching) <= keep {
		return nil
	}
	sort.Strings(matching)
	return matching[:len(matching)-keep]
}

// PruneBackups removes all but the newest keep backups of store name
// under prefix. Returns removed keys.
func (c *Client) PruneBackups(prefix string, name string, keep int) ([]string, error) {
	objects, err := c.ListObjects(prefix)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, oi := range objects {
		keys = append(keys, oi.Key)
	}
	toRemove := backupsToRemove(keys, name, keep)
	for i, k := range toRemove {
		if err = c.Remove(k); err != nil {
			return toRemove[:i], err
		}
	}
	return toRemove, nil
}

func ctx() context.Context {
	return context.Background()
}
