package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kjk/storage/jsonstore"
	"github.com/kjk/storage/log"
	"github.com/kjk/storage/minioutil"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

// s3ConfigFromEnv reads s3 credentials from JSONSTORE_S3_* env variables
func s3ConfigFromEnv() *minioutil.Config {
	insecure, _ := strconv.ParseBool(os.Getenv("JSONSTORE_S3_INSECURE"))
	return &minioutil.Config{
		Access:   os.Getenv("JSONSTORE_S3_ACCESS"),
		Secret:   os.Getenv("JSONSTORE_S3_SECRET"),
		Bucket:   os.Getenv("JSONSTORE_S3_BUCKET"),
		Endpoint: os.Getenv("JSONSTORE_S3_ENDPOINT"),
		Region:   os.Getenv("JSONSTORE_S3_REGION"),
		Insecure: insecure,
	}
}

func newBackupCmd(a *app) *cobra.Command {
	toS3 := false
	keep := 0
	cmd := &cobra.Command{
		Use:   "backup <dst>",
		Short: "Save a copy of the store. Compressed if dst ends with .br, .zst or .gz",
		Long: `Save a copy of the store to dst.

With --s3, dst is a prefix in the bucket and the copy is saved as
<dst>/YYYY/MM-DD/<name>-HHMMSSmmm.json.br, brotli compressed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			dst := args[0]
			if !toS3 {
				return st.Backup(dst)
			}
			mc, err := minioutil.New(s3ConfigFromEnv())
			if err != nil {
				return err
			}
			tmpDir, err := os.MkdirTemp("", "jsonstore-backup")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmpDir)
			tmpPath := filepath.Join(tmpDir, "backup.json.br")
			if err = st.Backup(tmpPath); err != nil {
				return err
			}
			d, err := os.ReadFile(tmpPath)
			if err != nil {
				return err
			}
			key := minioutil.BackupKey(dst, st.Location(), time.Now())
			if _, err = mc.UploadData(key, d); err != nil {
				return err
			}
			log.Verbosef("uploaded backup of '%s' to '%s', %d bytes\n", st.Location(), key, len(d))
			fmt.Fprintln(cmd.OutOrStdout(), key)
			if keep <= 0 {
				return nil
			}
			removed, err := mc.PruneBackups(dst, st.Location(), keep)
			for _, k := range removed {
				log.Verbosef("removed old backup '%s'\n", k)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&toS3, "s3", false, "upload to s3-compatible storage configured with JSONSTORE_S3_* env variables")
	cmd.Flags().IntVar(&keep, "keep", 0, "with --s3, remove all but the newest <keep> backups of this store")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	fromS3 := false
	cmd := &cobra.Command{
		Use:   "restore <src>",
		Short: "Replace the store content with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			src := args[0]
			if fromS3 {
				mc, err := minioutil.New(s3ConfigFromEnv())
				if err != nil {
					return err
				}
				if !mc.Exists(src) {
					return fmt.Errorf("'%s' doesn't exist in bucket '%s'", src, mc.Bucket)
				}
				tmpDir, err := os.MkdirTemp("", "jsonstore-restore")
				if err != nil {
					return err
				}
				defer os.RemoveAll(tmpDir)
				// keep the name so that compression is detected from extension
				tmpPath := filepath.Join(tmpDir, path.Base(src))
				if err = mc.DownloadFileAtomically(tmpPath, src); err != nil {
					return err
				}
				src = tmpPath
			}
			return check(st, st.Restore(src))
		},
	}
	cmd.Flags().BoolVar(&fromS3, "s3", false, "src is a key in s3-compatible storage configured with JSONSTORE_S3_* env variables")
	return cmd
}

// formatForDiff returns indented JSON with sorted keys
func formatForDiff(m map[string]any) ([]string, error) {
	d, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return difflib.SplitLines(string(d)), nil
}

func diffStoreAndBackup(st *jsonstore.Store, backupPath string) (string, error) {
	backup, err := jsonstore.ReadBackup(backupPath)
	if err != nil {
		return "", err
	}
	a, err := formatForDiff(backup)
	if err != nil {
		return "", err
	}
	b, err := formatForDiff(st.All())
	if err != nil {
		return "", err
	}
	ud := difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: backupPath,
		ToFile:   st.Location(),
		Context:  2,
	}
	return difflib.GetUnifiedDiffString(ud)
}

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <backup>",
		Short: "Show differences between a backup and the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			s, err := diffStoreAndBackup(st, args[0])
			if err != nil {
				return err
			}
			if s == "" {
				s = "no differences\n"
			}
			fmt.Fprint(cmd.OutOrStdout(), s)
			return nil
		},
	}
}
