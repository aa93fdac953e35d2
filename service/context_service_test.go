package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdfchat-be/database"
	"github.com/tieubaoca/pdfchat-be/types"
	"github.com/tieubaoca/pdfchat-be/utils"
)

func upsertTexts(t *testing.T, index database.VectorIndex, embedder Embedder, namespace string, pages map[int]string) {
	t.Helper()
	var records []types.VectorRecord
	for page, text := range pages {
		vec, err := embedder.Embed(context.Background(), text)
		require.NoError(t, err)
		records = append(records, types.VectorRecord{
			ID:       utils.ContentHash(text),
			Vector:   vec,
			Metadata: types.ChunkMetadata{Text: text, PageNumber: page},
		})
	}
	require.NoError(t, index.Upsert(context.Background(), namespace, records))
}

type failingIndex struct {
	database.VectorIndex
}

func (failingIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]types.Match, error) {
	return nil, errors.New("weaviate unreachable")
}

func TestAssembleCitesPagesInRetrievalOrder(t *testing.T) {
	embedder := &keywordEmbedder{}
	index := database.NewMemoryIndex(0)
	upsertTexts(t, index, embedder, "ns_a", map[int]string{
		4: "Vacation policy: twenty vacation days per year.",
		2: "Holiday calendar and vacation requests.",
		7: "Office security rules.",
	})
	a := NewContextAssembler(embedder, index, 0, 0, 0, zerolog.Nop())

	got, err := a.Assemble(context.Background(), "What is the vacation policy?", "ns_a")
	require.NoError(t, err)

	parts := strings.Split(got, "\n\n--- PAGE BREAK ---\n\n")
	require.Len(t, parts, 3)
	assert.Equal(t, "[Page 4]\nVacation policy: twenty vacation days per year.", parts[0])
	assert.True(t, strings.HasPrefix(parts[1], "[Page 2]\n"))
	assert.True(t, strings.HasPrefix(parts[2], "[Page 7]\n"))
}

func TestAssembleOmitsMarkerWithoutPage(t *testing.T) {
	embedder := &keywordEmbedder{}
	index := database.NewMemoryIndex(0)
	upsertTexts(t, index, embedder, "ns_a", map[int]string{0: "Untitled appendix."})
	a := NewContextAssembler(embedder, index, 10, 10000, 0, zerolog.Nop())

	got, err := a.Assemble(context.Background(), "appendix", "ns_a")
	require.NoError(t, err)
	assert.Equal(t, "Untitled appendix.", got)
}

func TestAssembleRespectsBudget(t *testing.T) {
	embedder := &keywordEmbedder{}
	index := database.NewMemoryIndex(0)
	pages := map[int]string{}
	for p := 1; p <= 12; p++ {
		pages[p] = strings.Repeat("é", 2500) + numberedWords(p)
	}
	upsertTexts(t, index, embedder, "ns_a", pages)
	a := NewContextAssembler(embedder, index, 10, 10000, 0, zerolog.Nop())

	got, err := a.Assemble(context.Background(), "anything", "ns_a")
	require.NoError(t, err)
	assert.Equal(t, 10000, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestAssembleEmptyNamespace(t *testing.T) {
	a := NewContextAssembler(&keywordEmbedder{}, database.NewMemoryIndex(0), 10, 10000, 0, zerolog.Nop())
	got, err := a.Assemble(context.Background(), "What is the vacation policy?", "ns_never_written")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssembleMinScore(t *testing.T) {
	embedder := &keywordEmbedder{}
	index := database.NewMemoryIndex(0)
	upsertTexts(t, index, embedder, "ns_a", map[int]string{
		1: "Vacation policy details.",
		2: "Office security rules.",
	})
	a := NewContextAssembler(embedder, index, 10, 10000, 0.5, zerolog.Nop())

	got, err := a.Assemble(context.Background(), "vacation policy", "ns_a")
	require.NoError(t, err)
	assert.Equal(t, "[Page 1]\nVacation policy details.", got)
}

func TestAssembleErrors(t *testing.T) {
	a := NewContextAssembler(&keywordEmbedder{failOn: "vacation"}, database.NewMemoryIndex(0), 10, 10000, 0, zerolog.Nop())
	_, err := a.Assemble(context.Background(), "vacation", "ns_a")
	require.Error(t, err)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.KindRetrieval, e.Kind)
	assert.Equal(t, types.CodeEmbeddingFailed, e.Code)
	assert.Equal(t, "embed", e.Stage)
	assert.Equal(t, "ns_a", e.Namespace)

	a = NewContextAssembler(&keywordEmbedder{}, failingIndex{}, 10, 10000, 0, zerolog.Nop())
	_, err = a.Assemble(context.Background(), "vacation", "ns_a")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.CodeIndexQueryFailed))
	assert.True(t, types.IsKind(err, types.KindRetrieval))
}
