package database

import (
	"context"
	"errors"

	"github.com/tieubaoca/pdfchat-be/types"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorIndex stores chunk vectors in isolated namespaces, one per document.
type VectorIndex interface {
	// Init makes sure the backing schema exists.
	Init(ctx context.Context) error
	// Upsert writes records by id. Either every record is written or an
	// error is returned.
	Upsert(ctx context.Context, namespace string, records []types.VectorRecord) error
	// Query returns up to topK matches ordered by descending score. A
	// namespace that was never written yields no matches.
	Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]types.Match, error)
	DeleteNamespace(ctx context.Context, namespace string) error
}
