package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/slotkeeper/internal/common"
	"github.com/dmitrijs2005/slotkeeper/internal/filex"
)

// FileExt is appended to every key on disk.
const FileExt = ".ovpn"

// FSStore stores each blob as <dir>/<key>.ovpn.
type FSStore struct {
	dir string
}

// NewFSStore creates dir if needed.
func NewFSStore(dir string) (*FSStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &FSStore{dir: abs}, nil
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.dir, key+FileExt)
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, common.ErrorBlobNotFound)
		}
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

func (s *FSStore) Put(_ context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return filex.WriteFileAtomic(s.path(key), data, 0o640)
}
