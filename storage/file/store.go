package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core"
)

// Store keeps storage slots in a JSON file, so that they survive process restarts.
// The file is read on every access: writes made by other processes are seen immediately.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath is the credentials file used when none is configured.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "lms-admin", "credentials.json")
}

func (s *Store) Path() string { return s.path }

// corruptFileError is returned by load when the file does not hold a JSON object.
// The table returned alongside it is empty, so the file reads as holding no slots.
type corruptFileError struct {
	path string
	err  error
}

func (e *corruptFileError) Error() string { return "decoding " + e.path + ": " + e.err.Error() }
func (e *corruptFileError) Cause() error  { return e.err }

func isCorruptFile(err error) bool {
	_, ok := err.(*corruptFileError)
	return ok
}

func (s *Store) load() (map[string]string, error) {
	table := make(map[string]string)
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return table, nil
		}
		return nil, errors.Wrapf(err, "reading %s", s.path)
	}
	if len(b) == 0 {
		return table, nil
	}
	if err = json.Unmarshal(b, &table); err != nil {
		return make(map[string]string), &corruptFileError{path: s.path, err: err}
	}
	return table, nil
}

// save replaces the file atomically.
func (s *Store) save(table map[string]string) error {
	b, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding storage")
	}

	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(b); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "replacing %s", s.path)
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil && !isCorruptFile(err) {
		return "", false, err
	}
	v, ok := table[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		// an unreadable file is overwritten rather than left blocking every write
		table = make(map[string]string)
	}
	table[key] = value
	return s.save(table)
}

func (s *Store) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		table = make(map[string]string)
	}
	changed := false
	for _, key := range keys {
		if _, ok := table[key]; ok {
			delete(table, key)
			changed = true
		}
	}
	if !changed && err == nil {
		return nil
	}
	return s.save(table)
}

// Watch calls onChange every time the file is written, replaced or removed, until ctx is done.
// The parent directory is watched since atomic replacements swap the file's inode.
func (s *Store) Watch(ctx context.Context, logger core.Logger, onChange func()) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer func() { _ = watcher.Close() }()

	if err = watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watching %s", dir)
	}

	name := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watching storage file", err)
		}
	}
}
