/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/config"
	"github.com/tieubaoca/pdfchat-be/database"
	"github.com/tieubaoca/pdfchat-be/repository"
	"github.com/tieubaoca/pdfchat-be/service"
	"github.com/tieubaoca/pdfchat-be/storage"
)

// app holds the service handles shared by every command. They are built
// once and passed down explicitly.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	store     storage.ObjectStore
	index     database.VectorIndex
	documents repository.DocumentRepo
	chats     repository.ChatRepo
	embedder  service.Embedder
	generator service.Generator

	ingestion *service.IngestionService
	chat      *service.ChatService
	docs      *service.DocumentService

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	steps := []func(context.Context) error{
		a.initStorage,
		a.initIndex,
		a.initRepositories,
		a.initAI,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			a.Close(context.Background())
			return nil, err
		}
	}

	ing := cfg.Ingestion
	chunker := service.NewChunker(service.NewTextSplitter(ing.ChunkSize, ing.ChunkOverlap), ing.MaxMetadataBytes)
	extractor := service.NewPDFService(ing.OCRLanguages, ing.TempDir, log)
	a.ingestion = service.NewIngestionService(a.store, extractor, chunker, a.embedder, a.index,
		a.documents, a.chats, ing.Concurrency, ing.TempDir, log)

	assembler := service.NewContextAssembler(a.embedder, a.index,
		cfg.Retrieval.TopK, cfg.Retrieval.MaxContextChars, cfg.Retrieval.MinScore, log)
	a.chat = service.NewChatService(a.documents, a.chats, assembler, a.generator, cfg.Chat.HistoryWindow, log)
	a.docs = service.NewDocumentService(a.documents, a.chats, a.index, cfg.Documents.PurgeVectorsOnDelete, log)
	return a, nil
}

func (a *app) initStorage(ctx context.Context) error {
	switch a.cfg.ObjectStorage.Type {
	case config.ObjectStorageS3:
		store, err := storage.NewS3Store(ctx, a.cfg.ObjectStorage.S3, a.log)
		if err != nil {
			return err
		}
		a.store = store
	default:
		store, err := storage.NewLocalStore(a.cfg.ObjectStorage.LocalDir)
		if err != nil {
			return err
		}
		a.store = store
	}
	return nil
}

func (a *app) initIndex(ctx context.Context) error {
	index, err := newVectorIndex(a.cfg, a.log)
	if err != nil {
		return err
	}
	if err := index.Init(ctx); err != nil {
		return fmt.Errorf("failed to init vector index: %w", err)
	}
	a.index = index
	return nil
}

func newVectorIndex(cfg *config.Config, log zerolog.Logger) (database.VectorIndex, error) {
	if cfg.VectorStore.Type == config.VectorStoreMemory {
		return database.NewMemoryIndex(cfg.AI.EmbeddingDimension), nil
	}
	index, err := database.NewWeaviateIndex(cfg.VectorStore.Weaviate, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to weaviate: %w", err)
	}
	return index, nil
}

func (a *app) initRepositories(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case config.StoreMongo:
		client, err := database.NewMongoClient(ctx, a.cfg.Store.MongoURI)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Disconnect)
		db := client.Database(a.cfg.Store.MongoDatabase)
		documents := repository.NewMongoDocumentRepo(db)
		chats := repository.NewMongoChatRepo(db)
		if err := documents.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := chats.EnsureIndexes(ctx); err != nil {
			return err
		}
		a.documents, a.chats = documents, chats
	case config.StorePostgres:
		db, err := database.NewPostgres(database.PostgresConfig{
			DSN:             a.cfg.Store.PostgresDSN,
			MaxIdleConns:    5,
			MaxOpenConns:    20,
			ConnMaxLifetime: time.Hour,
		})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
		if err := repository.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		a.documents, a.chats = repository.NewGormDocumentRepo(db), repository.NewGormChatRepo(db)
	default:
		a.log.Warn().Msg("using in-memory store, data is lost on exit")
		store := repository.NewMemoryStore()
		a.documents, a.chats = store, store
	}
	return nil
}

func (a *app) initAI(ctx context.Context) error {
	ai := a.cfg.AI
	var embedder service.Embedder
	switch ai.Provider {
	case config.ProviderOpenAI:
		openai := service.NewOpenAIService(ai.AIEndpoint, ai.OpenAIAPIKey, ai.ChatModel, ai.EmbeddingModel, ai.EmbeddingDimension, a.log)
		embedder, a.generator = openai, openai
	default:
		gemini, err := service.NewGeminiService(ctx, service.SplitAPIKeys(ai.GeminiAPIKey),
			ai.ChatModel, ai.EmbeddingModel, ai.EmbeddingDimension, a.log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return gemini.Close() })
		embedder, a.generator = gemini, gemini
	}

	cache, err := a.newEmbeddingCache(ctx)
	if err != nil {
		return err
	}
	if cache != nil {
		embedder = service.NewCachedEmbedder(embedder, cache, ai.EmbeddingModel)
	}
	a.embedder = embedder
	return nil
}

func (a *app) newEmbeddingCache(ctx context.Context) (service.EmbeddingCache, error) {
	c := a.cfg.EmbeddingCache
	switch c.Type {
	case config.CacheLRU:
		cache, err := service.NewLRUEmbeddingCache(c.Size)
		if err != nil {
			return nil, err
		}
		return cache, nil
	case config.CacheRedis:
		cache, err := service.NewRedisEmbeddingCache(c.RedisURL, "pdfchat:embedding:", c.TTL, a.log)
		if err != nil {
			return nil, err
		}
		if err := cache.Ping(ctx); err != nil {
			cache.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return cache.Close() })
		return cache, nil
	}
	return nil, nil
}

func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn().Err(err).Msg("error while closing")
		}
	}
}
