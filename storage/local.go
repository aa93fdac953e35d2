package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tieubaoca/pdfchat-be/utils"
)

// LocalStore keeps uploads in a directory. Locators are file names relative to it.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	return utils.SaveWithTimestamp(r, s.dir, name)
}

func (s *LocalStore) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", locator, err)
	}
	return f, nil
}

func (s *LocalStore) resolve(locator string) (string, error) {
	clean := filepath.Clean("/" + locator)
	if locator == "" || strings.Contains(locator, "..") || clean == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return filepath.Join(s.dir, clean), nil
}
