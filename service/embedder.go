package service

import (
	"context"

	"github.com/tieubaoca/pdfchat-be/types"
)

// Embedder maps text to a fixed-size vector. Implementations do not retry.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

func embeddingError(model string, err error) error {
	return types.NewError(types.KindEmbedding, types.CodeEmbeddingFailed, "embedding request to "+model+" failed").
		WithCause(err)
}
