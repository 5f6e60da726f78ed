package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kjk/storage/log"
	"github.com/kjk/storage/u"

	"github.com/tidwall/pretty"
)

var (
	// ErrInvalidLocation is returned by Create and Open when the backing file
	// doesn't exist, is not a regular file or is not writable
	ErrInvalidLocation = errors.New("file must exist and be writable")

	// ErrCorrupt is returned in Strict mode when the backing file
	// doesn't contain valid JSON
	ErrCorrupt = errors.New("backing file is not valid JSON")

	// ErrNoFile means the backing file disappeared (or the store was deleted)
	ErrNoFile = errors.New("backing file doesn't exist")

	// ErrNotObject means Update was called on a key whose value is not a JSON object
	ErrNotObject = errors.New("value is not an object")
)

type Options struct {
	// Pretty saves indented JSON instead of compact JSON
	Pretty bool
	// Strict makes Open and Reload fail on malformed JSON.
	// By default malformed content is treated as an empty store.
	Strict bool
}

// Store is a key-value mapping persisted as a single JSON object in a file.
// Every mutation re-writes the whole file.
type Store struct {
	Pretty bool
	Strict bool

	location string
	data     map[string]any
	err      error
	mu       sync.Mutex
}

// validateLocation returns absolute path of location if it's an existing,
// writable, regular file
func validateLocation(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("empty path: %w", ErrInvalidLocation)
	}
	path, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("%s: %w", location, ErrInvalidLocation)
	}
	if !u.FileExists(path) {
		return "", fmt.Errorf("'%s' doesn't exist: %w", location, ErrInvalidLocation)
	}
	if !u.FileWritable(path) {
		return "", fmt.Errorf("'%s' is not writable: %w", location, ErrInvalidLocation)
	}
	return path, nil
}

// Open loads the store from location, which must be an existing, writable file
func Open(location string) (*Store, error) {
	return OpenWithOptions(location, nil)
}

func OpenWithOptions(location string, opts *Options) (*Store, error) {
	s := &Store{}
	if opts != nil {
		s.Pretty = opts.Pretty
		s.Strict = opts.Strict
	}
	path, err := validateLocation(location)
	if err != nil {
		return nil, err
	}
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	s.location = path
	s.data = data
	log.Verbosef("jsonstore: opened '%s', %d keys\n", path, len(data))
	return s, nil
}

// Create writes data to location (which must already exist) and returns
// a store bound to it
func Create(data map[string]any, location string) (*Store, error) {
	s := &Store{}
	ok, err := s.Create(data, location)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.Err()
	}
	return s, nil
}

// Create over-writes the file at location with data and re-binds the store
// to location. The file must already exist.
// Returns an error wrapping ErrInvalidLocation if location is not usable and
// false if data couldn't be serialized or written. In both cases the
// store is not changed.
func (s *Store) Create(data map[string]any, location string) (bool, error) {
	path, err := validateLocation(location)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if data == nil {
		data = map[string]any{}
	}
	written, err := s.write(path, data)
	if err != nil {
		return s.failed("create", err), nil
	}
	s.location = path
	s.data = written
	s.err = nil
	log.Event("jsonstore.create", "path", path, "keys", len(data))
	return true, nil
}

// Location returns absolute path of the backing file, "" after Delete()
func (s *Store) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// Err returns the reason the last operation returned false
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Get returns value for the key or defaultValue if the key doesn't exist.
// A key explicitly set to nil returns nil, not the default.
func (s *Store) Get(key string, defaultValue ...any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return cloneValue(v)
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return nil
}

func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Keys returns sorted keys
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns a copy of all data. Changing it doesn't change the store.
func (s *Store) All() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMap(s.data)
}

func (s *Store) Set(key string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := shallowCopy(s.data)
	m[key] = value
	if !s.commit("set", m) {
		return false
	}
	log.Event("jsonstore.set", "key", key)
	return true
}

// Update merges partial into the object stored under key. Only top-level
// keys are merged, nested values are replaced.
// Returns false if key doesn't exist or its value is not an object.
func (s *Store) Update(key string, partial map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !u.FileExists(s.location) {
		return s.failed("update", ErrNoFile)
	}
	existing, ok := s.data[key].(map[string]any)
	if !ok {
		return s.failed("update", fmt.Errorf("key '%s': %w", key, ErrNotObject))
	}
	merged := shallowCopy(existing)
	for k, v := range partial {
		merged[k] = v
	}
	m := shallowCopy(s.data)
	m[key] = merged
	if !s.commit("update", m) {
		return false
	}
	log.Event("jsonstore.update", "key", key, "fields", len(partial))
	return true
}

// Remove deletes the key. Returns false (without writing the file)
// if the key doesn't exist.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return s.failed("remove", fmt.Errorf("key '%s' doesn't exist", key))
	}
	m := shallowCopy(s.data)
	delete(m, key)
	if !s.commit("remove", m) {
		return false
	}
	log.Event("jsonstore.remove", "key", key)
	return true
}

// Clear empties the store. The backing file is kept but truncated to 0 bytes.
func (s *Store) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !u.FileExists(s.location) {
		return s.failed("clear", ErrNoFile)
	}
	if err := writeFileLocked(s.location, nil); err != nil {
		return s.failed("clear", err)
	}
	s.data = map[string]any{}
	s.err = nil
	log.Event("jsonstore.clear", "path", s.location)
	return true
}

// Delete removes the backing file. After that the store is empty and
// all mutations fail.
func (s *Store) Delete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !u.FileExists(s.location) {
		return s.failed("delete", ErrNoFile)
	}
	if err := os.Remove(s.location); err != nil {
		return s.failed("delete", err)
	}
	log.Event("jsonstore.delete", "path", s.location)
	s.data = map[string]any{}
	s.location = ""
	s.err = nil
	return true
}

// Reload re-reads the backing file, discarding in-memory state.
// Use it to pick up changes made by other processes.
func (s *Store) Reload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !u.FileExists(s.location) {
		return s.failed("reload", ErrNoFile)
	}
	data, err := s.read(s.location)
	if err != nil {
		return s.failed("reload", err)
	}
	s.data = data
	s.err = nil
	return true
}

// commit persists m and, only if that succeeded, makes what was written
// the current data. Values are kept in the same form Open would read
// them, e.g. all numbers are float64.
// must be called with s.mu held
func (s *Store) commit(op string, m map[string]any) bool {
	written, err := s.persist(m)
	if err != nil {
		return s.failed(op, err)
	}
	s.data = written
	s.err = nil
	return true
}

// failed records err as the reason op failed, always returns false
// must be called with s.mu held
func (s *Store) failed(op string, err error) bool {
	s.err = fmt.Errorf("jsonstore.%s: %w", op, err)
	log.Verbosef("%s\n", s.err)
	return false
}

// must be called with s.mu held
func (s *Store) persist(data map[string]any) (map[string]any, error) {
	if !u.FileExists(s.location) {
		return nil, ErrNoFile
	}
	return s.write(s.location, data)
}

// write saves data to path and returns it decoded from the saved bytes
func (s *Store) write(path string, data map[string]any) (map[string]any, error) {
	d, err := s.marshal(data)
	if err != nil {
		return nil, err
	}
	if err = writeFileLocked(path, d); err != nil {
		return nil, err
	}
	return decode(d)
}

func (s *Store) marshal(data map[string]any) ([]byte, error) {
	d, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if s.Pretty {
		d = pretty.Pretty(d)
	}
	return d, nil
}

// read returns empty map for empty file and, unless s.Strict, for
// content that is not a JSON object
func (s *Store) read(path string) (map[string]any, error) {
	d, err := readFileLocked(path)
	if err != nil {
		return nil, err
	}
	res, err := decode(d)
	if err != nil {
		if s.Strict {
			return nil, fmt.Errorf("'%s': %w (%s)", path, ErrCorrupt, err)
		}
		log.Verbosef("jsonstore: ignoring malformed '%s': %s\n", path, err)
		return map[string]any{}, nil
	}
	return res, nil
}

func decode(d []byte) (map[string]any, error) {
	if len(d) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(d, &v); err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level value is %T, expected an object", v)
	}
	return m, nil
}
