package jsonstore

import (
	"io"
	"os"
)

// writeFileLocked over-writes existing file at path with d while holding
// an exclusive lock on it. Unlike os.WriteFile it doesn't create the file.
func writeFileLocked(path string, d []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if err = lockFile(f); err != nil {
		f.Close()
		return err
	}
	err = writeAndSync(f, d)
	errUnlock := unlockFile(f)
	errClose := f.Close()
	if err != nil {
		return err
	}
	if errUnlock != nil {
		return errUnlock
	}
	return errClose
}

// truncate after acquiring the lock, O_TRUNC would truncate before we own the file
func writeAndSync(f *os.File, d []byte) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if len(d) > 0 {
		if _, err := f.Write(d); err != nil {
			return err
		}
	}
	return f.Sync()
}

// readFileLocked reads the whole file while holding a shared lock on it
// so that it never sees a write in progress
func readFileLocked(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if err = lockFileShared(f); err != nil {
		f.Close()
		return nil, err
	}
	d, err := io.ReadAll(f)
	errUnlock := unlockFile(f)
	errClose := f.Close()
	if err != nil {
		return nil, err
	}
	if errUnlock != nil {
		return nil, errUnlock
	}
	if errClose != nil {
		return nil, errClose
	}
	return d, nil
}
