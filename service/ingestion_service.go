package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/database"
	"github.com/tieubaoca/pdfchat-be/metrics"
	"github.com/tieubaoca/pdfchat-be/repository"
	"github.com/tieubaoca/pdfchat-be/storage"
	"github.com/tieubaoca/pdfchat-be/types"
	"github.com/tieubaoca/pdfchat-be/utils"
	"golang.org/x/sync/errgroup"
)

const DefaultIngestConcurrency = 8

// IngestionService fills a document namespace of the vector index from a
// stored PDF and records the document once every chunk is indexed.
type IngestionService struct {
	store       storage.ObjectStore
	extractor   PageExtractor
	chunker     *Chunker
	embedder    Embedder
	index       database.VectorIndex
	documents   repository.DocumentRepo
	chats       repository.ChatRepo
	concurrency int
	tempDir     string
	log         zerolog.Logger
}

func NewIngestionService(
	store storage.ObjectStore,
	extractor PageExtractor,
	chunker *Chunker,
	embedder Embedder,
	index database.VectorIndex,
	documents repository.DocumentRepo,
	chats repository.ChatRepo,
	concurrency int,
	tempDir string,
	log zerolog.Logger,
) *IngestionService {
	if chunker == nil {
		chunker = NewChunker(nil, 0)
	}
	if concurrency <= 0 {
		concurrency = DefaultIngestConcurrency
	}
	return &IngestionService{
		store:       store,
		extractor:   extractor,
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		documents:   documents,
		chats:       chats,
		concurrency: concurrency,
		tempDir:     tempDir,
		log:         log.With().Str("component", "ingestion").Logger(),
	}
}

// Ingest runs the whole pipeline for one stored PDF. Progress updates are
// sent on progress when it is not nil; the caller owns the channel.
func (s *IngestionService) Ingest(ctx context.Context, req types.IngestRequest, progress chan<- types.ProcessingDocumentStatus) (*types.Document, error) {
	doc, err := s.ingest(ctx, req, progress)
	if err != nil {
		metrics.IngestTotal.WithLabelValues("failed").Inc()
		s.log.Error().Err(err).Str("locator", req.Locator).Msg("ingestion failed")
		return nil, err
	}
	metrics.IngestTotal.WithLabelValues("success").Inc()
	metrics.IngestChunksTotal.Add(float64(doc.ChunkCount))
	return doc, nil
}

func (s *IngestionService) ingest(ctx context.Context, req types.IngestRequest, progress chan<- types.ProcessingDocumentStatus) (*types.Document, error) {
	if strings.TrimSpace(req.Locator) == "" {
		return nil, types.NewError(types.KindInvalidInput, types.CodeSourceFetchFailed, "locator is required")
	}
	namespace := utils.NamespaceKey(req.Locator)
	name := req.Name
	if name == "" {
		name = utils.FileNameWithoutExt(req.Locator)
	}
	log := s.log.With().Str("namespace", namespace).Str("name", name).Logger()
	fail := func(code, stage, msg string, cause error) error {
		return types.NewError(types.KindIngestion, code, msg).
			WithStage(stage).
			WithNamespace(namespace).
			WithCause(cause)
	}

	report(ctx, progress, types.ProcessingDocumentStatus{
		Status:  types.ProcessingStatusFetching,
		Message: "Fetching document",
	})
	path, err := s.fetch(ctx, req.Locator)
	if err != nil {
		return nil, fail(types.CodeSourceFetchFailed, "fetch", "failed to fetch "+req.Locator, err)
	}
	defer os.Remove(path)

	pages, err := s.extractor.ExtractPages(ctx, path)
	if err != nil {
		return nil, fail(types.CodeExtractionFailed, "extract", "failed to extract pages", err)
	}

	chunks := s.uniqueChunks(pages)
	if len(chunks) == 0 {
		return nil, fail(types.CodeExtractionFailed, "extract", "document has no extractable text", nil)
	}
	log.Info().Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("document chunked")
	report(ctx, progress, types.ProcessingDocumentStatus{
		Status:      types.ProcessingStatusExtracted,
		Message:     "Extracted text",
		Progress:    0.1,
		TotalPages:  len(pages),
		TotalChunks: len(chunks),
	})

	records, err := s.embedChunks(ctx, chunks, len(pages), progress)
	if err != nil {
		return nil, fail(types.CodeEmbeddingFailed, "embed", "failed to embed chunks", err)
	}

	report(ctx, progress, types.ProcessingDocumentStatus{
		Status:          types.ProcessingStatusIndexing,
		Message:         "Writing to vector index",
		Progress:        0.95,
		TotalPages:      len(pages),
		TotalChunks:     len(chunks),
		ProcessedChunks: len(chunks),
	})
	if err := s.index.Upsert(ctx, namespace, records); err != nil {
		return nil, fail(types.CodeIndexWriteFailed, "upsert", "failed to write vectors", err)
	}

	now := time.Now().UnixMilli()
	doc := &types.Document{
		ID:         uuid.NewString(),
		Name:       name,
		Locator:    req.Locator,
		OwnerID:    req.OwnerID,
		Namespace:  namespace,
		PageCount:  len(pages),
		ChunkCount: len(records),
		CreatedAt:  now,
	}
	if err := s.documents.CreateDocument(ctx, doc); err != nil {
		return nil, fail(types.CodePersistFailed, "persist", "failed to save document", err)
	}
	chat := &types.Chat{
		ID:         doc.ID,
		DocumentID: doc.ID,
		UserID:     req.OwnerID,
		Title:      name,
		CreatedAt:  now,
	}
	if err := s.chats.CreateChat(ctx, chat); err != nil {
		if delErr := s.documents.DeleteDocument(context.WithoutCancel(ctx), doc.ID); delErr != nil {
			log.Error().Err(delErr).Str("document_id", doc.ID).Msg("failed to roll back document")
		}
		return nil, fail(types.CodePersistFailed, "persist", "failed to create default chat", err)
	}

	log.Info().Str("document_id", doc.ID).Int("records", len(records)).Msg("document ingested")
	return doc, nil
}

// fetch copies the object into a temp file and returns its path.
func (s *IngestionService) fetch(ctx context.Context, locator string) (string, error) {
	rc, err := s.store.Fetch(ctx, locator)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	f, err := os.CreateTemp(s.tempDir, "ingest-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("copy %s: %w", locator, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// uniqueChunks keeps the first chunk for every content hash.
func (s *IngestionService) uniqueChunks(pages []types.Page) []types.Chunk {
	seen := make(map[string]struct{})
	var chunks []types.Chunk
	for chunk := range s.chunker.ChunkPages(pages) {
		if _, ok := seen[chunk.ID]; ok {
			continue
		}
		seen[chunk.ID] = struct{}{}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func (s *IngestionService) embedChunks(ctx context.Context, chunks []types.Chunk, totalPages int, progress chan<- types.ProcessingDocumentStatus) ([]types.VectorRecord, error) {
	records := make([]types.VectorRecord, len(chunks))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, chunk := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			vector, err := s.embedder.Embed(gctx, chunk.Text)
			if err != nil {
				return fmt.Errorf("chunk %s on page %d: %w", chunk.ID, chunk.PageNumber, err)
			}
			records[i] = types.VectorRecord{
				ID:     chunk.ID,
				Vector: vector,
				Metadata: types.ChunkMetadata{
					Text:       chunk.PageText,
					PageNumber: chunk.PageNumber,
				},
			}
			n := int(done.Add(1))
			report(gctx, progress, types.ProcessingDocumentStatus{
				Status:          types.ProcessingStatusEmbedding,
				Message:         "Embedding chunks",
				Progress:        0.1 + 0.85*float64(n)/float64(len(chunks)),
				TotalPages:      totalPages,
				TotalChunks:     len(chunks),
				ProcessedChunks: n,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func report(ctx context.Context, progress chan<- types.ProcessingDocumentStatus, status types.ProcessingDocumentStatus) {
	if progress == nil {
		return
	}
	select {
	case progress <- status:
	case <-ctx.Done():
	}
}

