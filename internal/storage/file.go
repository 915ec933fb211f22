package storage

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const fileStoreVersion = "1.0"

// FileStore keeps one YAML document per namespace, e.g.
// ~/.config/portal/api.example.com.yaml
type FileStore struct {
	lock    sync.Mutex
	path    string
	entries map[string]string
}

type fileDocument struct {
	Version   string            `yaml:"version"`
	Timestamp time.Time         `yaml:"timestamp"`
	Entries   map[string]string `yaml:"entries"`
}

func NewFileStore(dir string, namespace string) (*FileStore, error) {
	if len(dir) == 0 {
		defaultDir, err := DefaultDirectory()
		if err != nil {
			return nil, err
		}
		dir = defaultDir
	}

	// Only the owner can read the session directory
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	store := &FileStore{
		path:    filepath.Join(dir, fmt.Sprintf("%s.yaml", SanitiseNamespace(namespace))),
		entries: make(map[string]string),
	}

	if err := store.Load(); err != nil {
		return nil, err
	}

	return store, nil
}

// DefaultDirectory is ~/.config/portal
func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "portal"), nil
}

func (f *FileStore) GetPath() string {
	return f.path
}

// Load re-reads the document from disk, replacing whatever is held in
// memory. A document that fails to parse is treated as empty.
func (f *FileStore) Load() error {
	f.lock.Lock()
	defer f.lock.Unlock()

	logrus.WithFields(logrus.Fields{
		"path": f.path,
	}).Debugln("Loading session store")

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		f.entries = make(map[string]string)
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read session store: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		f.entries = make(map[string]string)
		return nil
	}

	var document fileDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"path": f.path,
		}).Errorln("Failed to parse session store, reinitializing")
		f.entries = make(map[string]string)
		return nil
	}

	if document.Entries == nil {
		document.Entries = make(map[string]string)
	}
	f.entries = document.Entries

	return nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	value, ok := f.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *FileStore) Set(_ context.Context, entries map[string]string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	next := maps.Clone(f.entries)
	maps.Copy(next, entries)

	if err := f.commit(next); err != nil {
		return err
	}
	f.entries = next
	return nil
}

func (f *FileStore) Delete(_ context.Context, keys ...string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	next := maps.Clone(f.entries)
	for _, key := range keys {
		delete(next, key)
	}

	if err := f.commit(next); err != nil {
		return err
	}
	f.entries = next
	return nil
}

func (f *FileStore) Close() error {
	return nil
}

// commit writes the document to a temporary file next to the target and
// renames it into place, so readers never see a half written file.
func (f *FileStore) commit(entries map[string]string) error {
	var buffer bytes.Buffer

	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	err := encoder.Encode(fileDocument{
		Version:   fileStoreVersion,
		Timestamp: time.Now().UTC(),
		Entries:   entries,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session store: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to encode session store: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create session store file: %w", err)
	}
	tempPath := temp.Name()

	cleanup := func() {
		temp.Close()
		os.Remove(tempPath)
	}

	if err := temp.Chmod(0600); err != nil {
		cleanup()
		return fmt.Errorf("failed to secure session store file: %w", err)
	}
	if _, err := temp.Write(buffer.Bytes()); err != nil {
		cleanup()
		return fmt.Errorf("failed to write session store: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write session store: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session store: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"path":    f.path,
		"entries": len(entries),
	}).Debugln("Committed session store")

	return nil
}
