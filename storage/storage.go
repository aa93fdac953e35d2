package storage

import (
	"context"
	"errors"
	"io"
)

var ErrInvalidLocator = errors.New("invalid locator")

// ObjectStore holds uploaded PDFs. Locators are opaque to callers.
type ObjectStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) (string, error)
	Fetch(ctx context.Context, locator string) (io.ReadCloser, error)
}
