package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/metrics"
	"github.com/tieubaoca/pdfchat-be/utils"
)

type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vector []float32)
}

type LRUEmbeddingCache struct {
	cache *lru.Cache
}

func NewLRUEmbeddingCache(size int) (*LRUEmbeddingCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUEmbeddingCache{cache: cache}, nil
}

func (c *LRUEmbeddingCache) Get(ctx context.Context, key string) ([]float32, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	vector, ok := v.([]float32)
	if !ok {
		return nil, false
	}
	return append([]float32(nil), vector...), true
}

func (c *LRUEmbeddingCache) Set(ctx context.Context, key string, vector []float32) {
	c.cache.Add(key, append([]float32(nil), vector...))
}

// RedisEmbeddingCache stores vectors as little-endian float32 bytes.
type RedisEmbeddingCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	log       zerolog.Logger
}

func NewRedisEmbeddingCache(redisURL, keyPrefix string, ttl time.Duration, log zerolog.Logger) (*RedisEmbeddingCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisEmbeddingCache{
		client:    redis.NewClient(opts),
		keyPrefix: keyPrefix,
		ttl:       ttl,
		log:       log.With().Str("component", "embedding-cache").Logger(),
	}, nil
}

func (c *RedisEmbeddingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisEmbeddingCache) Close() error {
	return c.client.Close()
}

func (c *RedisEmbeddingCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Msg("redis get failed")
		}
		return nil, false
	}
	vector, ok := decodeVector(data)
	return vector, ok
}

func (c *RedisEmbeddingCache) Set(ctx context.Context, key string, vector []float32) {
	if err := c.client.Set(ctx, c.keyPrefix+key, encodeVector(vector), c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("redis set failed")
	}
}

func encodeVector(vector []float32) []byte {
	data := make([]byte, len(vector)*4)
	for i, f := range vector {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	return data
}

func decodeVector(data []byte) ([]float32, bool) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, false
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector, true
}

// CachedEmbedder serves repeated texts from a cache keyed by model and content hash.
type CachedEmbedder struct {
	next  Embedder
	cache EmbeddingCache
	model string
}

func NewCachedEmbedder(next Embedder, cache EmbeddingCache, model string) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, model: model}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.model + ":" + utils.ContentHash(text)
	if vector, ok := e.cache.Get(ctx, key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return vector, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	vector, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(ctx, key, vector)
	return vector, nil
}

func (e *CachedEmbedder) Dimension() int {
	return e.next.Dimension()
}
