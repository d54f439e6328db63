package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"modelctl/internal/core"
)

// FileStorage keeps the stats snapshot in a single JSON file.
type FileStorage struct {
	mu       sync.Mutex
	filePath string
}

// NewFileStorage returns a FileStorage at filePath, or at the default
// location when filePath is empty.
func NewFileStorage(filePath string) *FileStorage {
	if filePath == "" {
		filePath = core.StatsFilePath
	}
	return &FileStorage{filePath: filePath}
}

// SaveStats writes to a temp file and renames it so readers never see a partial file.
func (fs *FileStorage) SaveStats(stats *core.RequestStats) error {
	data, err := encodeStats(stats)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(fs.filePath), filepath.Base(fs.filePath)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(core.FilePermissionReadWrite); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fs.filePath)
}

// LoadStats reads the snapshot. A missing file yields empty stats.
func (fs *FileStorage) LoadStats() (*core.RequestStats, error) {
	fs.mu.Lock()
	data, err := os.ReadFile(fs.filePath)
	fs.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return emptyStats(), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStats(data)
}

func (fs *FileStorage) Close() error {
	return nil
}

// Path returns the stats file location.
func (fs *FileStorage) Path() string {
	return fs.filePath
}
