package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/noah-isme/certified-copy-api/pkg/storage"
)

const fileLockRetry = 25 * time.Millisecond

// FileBackend stores each key as a JSON file under a data directory. A flock on
// the directory lets the API server and the CLI share the same data safely.
type FileBackend struct {
	files *storage.LocalStorage
	lock  *flock.Flock
}

// NewFileBackend prepares the data directory.
func NewFileBackend(dir string) (*FileBackend, error) {
	files, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}
	return &FileBackend{
		files: files,
		lock:  flock.New(filepath.Join(dir, ".portal.lock")),
	}, nil
}

// LoadAll implements Backend.
func (b *FileBackend) LoadAll(_ context.Context, key string) ([]byte, error) {
	data, err := b.files.Read(key + ".json")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// SaveAll implements Backend.
func (b *FileBackend) SaveAll(_ context.Context, key string, payload []byte) error {
	if err := b.files.Save(key+".json", payload); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Lock implements Locker with an exclusive advisory file lock.
func (b *FileBackend) Lock(ctx context.Context) (func() error, error) {
	ok, err := b.lock.TryLockContext(ctx, fileLockRetry)
	if err != nil {
		return nil, fmt.Errorf("acquire data lock: %w", err)
	}
	if !ok {
		return nil, errors.New("data directory is locked by another process")
	}
	return b.lock.Unlock, nil
}
