package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

var loadOptions = ini.LoadOptions{
	// Values are stored verbatim: engine paths and arguments may contain '#' or ';'.
	IgnoreInlineComment: true,
	// A Windows directory ending in '\' is not a line continuation.
	IgnoreContinuation: true,
	// Quotes are part of the value, e.g. "C:\Program Files\engine.exe".
	PreserveSurroundedQuote: true,
}

// written is a value the caller expects to read back after a rewrite.
type written struct {
	section string
	key     string
	value   string
}

// tierStore owns one settings file. Reads are lock-free; read-modify-write
// cycles hold an exclusive file lock and replace the file by rename.
type tierStore struct {
	fs   afero.Fs
	path string
}

func newTierStore(fsys afero.Fs, path string) *tierStore {
	return &tierStore{fs: fsys, path: path}
}

func emptyFile() *ini.File {
	file := ini.Empty(loadOptions)
	// NewSection only fails for empty names.
	_, _ = file.NewSection(PropertiesSection)
	_, _ = file.NewSection(EnvironmentSection)
	return file
}

func (s *tierStore) load() (*ini.File, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return emptyFile(), nil
		}
		return nil, &StoreError{Path: s.path, Operation: "read", Err: err}
	}
	file, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, &StoreError{Path: s.path, Operation: "parse", Err: err}
	}
	return file, nil
}

func (s *tierStore) update(fn func(*ini.File) ([]written, error)) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()
	file, err := s.load()
	if err != nil {
		return err
	}
	changed, err := fn(file)
	if err != nil {
		return err
	}
	data, err := s.encode(file, changed)
	if err != nil {
		return err
	}
	return s.save(data)
}

// encode renders file and parses the result again, so a value the format
// cannot hold is rejected before the tier file is touched.
func (s *tierStore) encode(file *ini.File, changed []written) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, &StoreError{Path: s.path, Operation: "write", Err: err}
	}
	data := buf.Bytes()
	parsed, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, &StoreError{
			Path:      s.path,
			Operation: "verify",
			Err:       fmt.Errorf("%w: %w", ErrUnrepresentable, err),
		}
	}
	for _, w := range changed {
		if got, ok := lookup(parsed, w.section, w.key); !ok || got != w.value {
			return nil, &StoreError{
				Path:      s.path,
				Operation: "verify",
				Err:       fmt.Errorf("%w: %s %q in section %q", ErrUnrepresentable, w.key, w.value, w.section),
			}
		}
	}
	return data, nil
}

// lock takes the cross-process lock; only meaningful on the OS filesystem.
func (s *tierStore) lock() (func(), error) {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return func() {}, nil
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return nil, &StoreError{Path: s.path, Operation: "mkdir", Err: err}
	}
	fileLock := flock.New(s.path + ".lock")
	if err := fileLock.Lock(); err != nil {
		return nil, &StoreError{Path: s.path, Operation: "lock", Err: err}
	}
	return func() {
		_ = fileLock.Unlock()
	}, nil
}

func (s *tierStore) save(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
		return &StoreError{Path: s.path, Operation: "mkdir", Err: err}
	}
	tmp, err := afero.TempFile(s.fs, dir, configFileName+".*.tmp")
	if err != nil {
		return &StoreError{Path: s.path, Operation: "write", Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(op string, cause error) error {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return &StoreError{Path: s.path, Operation: op, Err: cause}
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup("write", err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup("sync", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return &StoreError{Path: s.path, Operation: "close", Err: err}
	}
	if err := s.fs.Chmod(tmpName, filePerm); err != nil {
		_ = s.fs.Remove(tmpName)
		return &StoreError{Path: s.path, Operation: "chmod", Err: err}
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return &StoreError{Path: s.path, Operation: "rename", Err: fmt.Errorf("replace settings file: %w", err)}
	}
	return nil
}

func lookup(file *ini.File, section, key string) (string, bool) {
	sec, err := file.GetSection(section)
	if err != nil {
		return "", false
	}
	k, err := sec.GetKey(key)
	if err != nil {
		return "", false
	}
	return k.String(), true
}

func entries(file *ini.File, section string) []Entry {
	sec, err := file.GetSection(section)
	if err != nil {
		return []Entry{}
	}
	keys := sec.Keys()
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Key: k.Name(), Value: k.String()})
	}
	return out
}
