package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/database"
	"github.com/tieubaoca/pdfchat-be/metrics"
	"github.com/tieubaoca/pdfchat-be/types"
	"github.com/tieubaoca/pdfchat-be/utils"
)

const (
	DefaultTopK            = 10
	DefaultMaxContextChars = 10000

	pageBreak = "\n\n--- PAGE BREAK ---\n\n"
)

// ContextAssembler turns a question into a bounded, page-cited context
// string drawn from one document namespace.
type ContextAssembler struct {
	embedder Embedder
	index    database.VectorIndex
	topK     int
	maxChars int
	// matches scoring below minScore are dropped; zero keeps everything
	minScore float32
	log      zerolog.Logger
}

func NewContextAssembler(embedder Embedder, index database.VectorIndex, topK, maxChars int, minScore float32, log zerolog.Logger) *ContextAssembler {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	return &ContextAssembler{
		embedder: embedder,
		index:    index,
		topK:     topK,
		maxChars: maxChars,
		minScore: minScore,
		log:      log.With().Str("component", "context").Logger(),
	}
}

// Assemble returns "" when the namespace holds nothing relevant.
func (a *ContextAssembler) Assemble(ctx context.Context, query, namespace string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	}()

	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return "", types.NewError(types.KindRetrieval, types.CodeEmbeddingFailed, "failed to embed question").
			WithStage("embed").
			WithNamespace(namespace).
			WithCause(err)
	}

	matches, err := a.index.Query(ctx, namespace, vector, a.topK, true)
	if err != nil {
		return "", types.NewError(types.KindRetrieval, types.CodeIndexQueryFailed, "failed to query vector index").
			WithStage("query").
			WithNamespace(namespace).
			WithCause(err)
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Metadata == nil || (a.minScore > 0 && m.Score < a.minScore) {
			continue
		}
		parts = append(parts, renderMatch(m.Metadata))
	}
	a.log.Debug().
		Str("namespace", namespace).
		Int("matches", len(matches)).
		Int("used", len(parts)).
		Msg("context assembled")

	return utils.TruncateRunes(strings.Join(parts, pageBreak), a.maxChars), nil
}

func renderMatch(md *types.ChunkMetadata) string {
	if md.PageNumber > 0 {
		return "[Page " + strconv.Itoa(md.PageNumber) + "]\n" + md.Text
	}
	return md.Text
}
