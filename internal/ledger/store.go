package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// KV is the namespaced key-value persistence the ledger writes through.
// Set is assumed atomic per key; there is no multi-key transaction.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// Archives stores archived transcript copies keyed by caller-chosen paths.
// Both operations are best-effort from the ledger's point of view.
type Archives interface {
	Write(path string, data []byte) error
	Delete(path string) error
}

// FileKV keeps one JSON file per key under a state directory.
type FileKV struct {
	dir string
}

// NewFileKV creates a file-backed KV rooted at dir.
func NewFileKV(dir string) (*FileKV, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileKV{dir: dir}, nil
}

// DefaultStateDir returns the state directory under the user's home.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ccw", "state"), nil
}

// Get returns the stored value, or nil when the key was never written.
func (s *FileKV) Get(key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// Set writes the value for a key, replacing any previous value.
func (s *FileKV) Set(key string, value []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path(key), value, 0o644)
}

func (s *FileKV) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// FileArchives stores archived transcripts as plain files. Paths outside
// the root are rejected on write; deletes swallow missing files.
type FileArchives struct {
	root string
}

// NewFileArchives creates a dir-rooted archive store.
func NewFileArchives(root string) (*FileArchives, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("archive directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FileArchives{root: root}, nil
}

// DefaultArchiveDir returns the archive directory under the user's home.
func DefaultArchiveDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ccw", "archives"), nil
}

// Path returns the absolute archive path for a session id.
func (s *FileArchives) Path(sessionID string) string {
	return filepath.Join(s.root, sessionID+".json")
}

// Write stores an archived transcript.
func (s *FileArchives) Write(path string, data []byte) error {
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.root)) {
		return errors.New("archive path escapes archive root")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Delete removes an archived transcript. A missing file is not an error.
func (s *FileArchives) Delete(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
