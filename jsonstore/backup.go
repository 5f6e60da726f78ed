package jsonstore

import (
	"fmt"

	"github.com/kjk/storage/atomicfile"
	"github.com/kjk/storage/log"
	"github.com/kjk/storage/u"
)

// Backup saves a copy of the data to dst. The write is atomic: dst either
// has the complete backup or is left unchanged.
// Compression is picked based on extension of dst: .br, .zst, .zstd or .gz
func (s *Store) Backup(dst string) error {
	s.mu.Lock()
	d, err := s.marshal(s.data)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	d, err = u.CompressForPath(dst, d)
	if err != nil {
		return err
	}
	if err = atomicfile.WriteFile(dst, d); err != nil {
		return err
	}
	log.Event("jsonstore.backup", "dst", dst, "size", len(d))
	return nil
}

// ReadBackup reads data saved with Backup
func ReadBackup(path string) (map[string]any, error) {
	d, err := u.ReadFileMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	m, err := decode(d)
	if err != nil {
		return nil, fmt.Errorf("backup '%s': %w (%s)", path, ErrCorrupt, err)
	}
	return m, nil
}

// Restore replaces the data with the content of a backup and saves it
// to the backing file
func (s *Store) Restore(path string) bool {
	m, err := ReadBackup(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.failed("restore", err)
	}
	if !s.commit("restore", m) {
		return false
	}
	log.Event("jsonstore.restore", "src", path, "keys", len(m))
	return true
}
