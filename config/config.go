package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tieubaoca/pdfchat-be/types"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	VectorStoreWeaviate = "weaviate"
	VectorStoreMemory   = "memory"

	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	ObjectStorageLocal = "local"
	ObjectStorageS3    = "s3"

	CacheNone  = "none"
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	JWTSecret      string               `mapstructure:"jwt_secret"`
	Log            LogConfig            `mapstructure:"log"`
	AI             AIConfig             `mapstructure:"ai"`
	VectorStore    VectorStoreConfig    `mapstructure:"vector_store"`
	Store          StoreConfig          `mapstructure:"store"`
	ObjectStorage  ObjectStorageConfig  `mapstructure:"object_storage"`
	EmbeddingCache EmbeddingCacheConfig `mapstructure:"embedding_cache"`
	Ingestion      IngestionConfig      `mapstructure:"ingestion"`
	Retrieval      RetrievalConfig      `mapstructure:"retrieval"`
	Chat           ChatConfig           `mapstructure:"chat"`
	Documents      DocumentsConfig      `mapstructure:"documents"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AIConfig struct {
	Provider           string `mapstructure:"provider"`
	GeminiAPIKey       string `mapstructure:"gemini_api_key"`
	OpenAIAPIKey       string `mapstructure:"openai_api_key"`
	AIEndpoint         string `mapstructure:"ai_endpoint"`
	ChatModel          string `mapstructure:"chat_model"`
	EmbeddingModel     string `mapstructure:"embedding_model"`
	EmbeddingDimension int    `mapstructure:"embedding_dimension"`
}

type VectorStoreConfig struct {
	Type     string              `mapstructure:"type"`
	Weaviate WeaviateStoreConfig `mapstructure:"weaviate"`
}

type WeaviateStoreConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"api_key"`
}

type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
}

type ObjectStorageConfig struct {
	Type     string   `mapstructure:"type"`
	LocalDir string   `mapstructure:"local_dir"`
	S3       S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

type EmbeddingCacheConfig struct {
	Type     string        `mapstructure:"type"`
	Size     int           `mapstructure:"size"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type IngestionConfig struct {
	ChunkSize        int    `mapstructure:"chunk_size"`
	ChunkOverlap     int    `mapstructure:"chunk_overlap"`
	MaxMetadataBytes int    `mapstructure:"max_metadata_bytes"`
	Concurrency      int    `mapstructure:"concurrency"`
	OCRLanguages     string `mapstructure:"ocr_languages"`
	TempDir          string `mapstructure:"temp_dir"`
}

type RetrievalConfig struct {
	TopK            int     `mapstructure:"top_k"`
	MaxContextChars int     `mapstructure:"max_context_chars"`
	MinScore        float32 `mapstructure:"min_score"`
}

type ChatConfig struct {
	HistoryWindow int           `mapstructure:"history_window"`
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
}

type DocumentsConfig struct {
	PurgeVectorsOnDelete bool `mapstructure:"purge_vectors_on_delete"`
}

// secrets are only read from the environment.
var envBindings = map[string]string{
	"ai.gemini_api_key":                   "GEMINI_API_KEY",
	"ai.openai_api_key":                   "OPENAI_API_KEY",
	"vector_store.weaviate.api_key":       "WEAVIATE_APIKEY",
	"store.mongo_uri":                     "MONGODB_URI",
	"store.postgres_dsn":                  "POSTGRES_DSN",
	"jwt_secret":                          "JWT_SECRET",
	"object_storage.s3.access_key_id":     "S3_ACCESS_KEY_ID",
	"object_storage.s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
	"embedding_cache.redis_url":           "REDIS_URL",
}

// LoadConfig reads configPath when it exists and overlays the environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.max_upload_bytes", 10<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.chat_model", "gemini-2.5-flash")
	v.SetDefault("ai.embedding_model", "text-embedding-004")
	v.SetDefault("ai.embedding_dimension", 768)

	v.SetDefault("vector_store.type", VectorStoreWeaviate)
	v.SetDefault("vector_store.weaviate.host", "http://localhost:8080")

	v.SetDefault("store.driver", StoreMongo)
	v.SetDefault("store.mongo_database", "pdfchat")

	v.SetDefault("object_storage.type", ObjectStorageLocal)
	v.SetDefault("object_storage.local_dir", "uploads")

	v.SetDefault("embedding_cache.type", CacheLRU)
	v.SetDefault("embedding_cache.size", 4096)
	v.SetDefault("embedding_cache.ttl", "24h")

	v.SetDefault("ingestion.chunk_size", 1000)
	v.SetDefault("ingestion.chunk_overlap", 200)
	v.SetDefault("ingestion.max_metadata_bytes", 36000)
	v.SetDefault("ingestion.concurrency", 8)
	v.SetDefault("ingestion.ocr_languages", "eng")

	v.SetDefault("retrieval.top_k", 10)
	v.SetDefault("retrieval.max_context_chars", 10000)
	v.SetDefault("retrieval.min_score", 0)

	v.SetDefault("chat.history_window", 4)
	v.SetDefault("chat.stream_timeout", "5m")

	v.SetDefault("documents.purge_vectors_on_delete", false)
}

func invalid(format string, args ...interface{}) error {
	return types.NewError(types.KindConfiguration, types.CodeInvalidConfig, fmt.Sprintf(format, args...))
}

func missing(what string) error {
	return types.NewError(types.KindConfiguration, types.CodeMissingCredentials, what+" is required")
}

// Validate checks the settings the selected backends need.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return missing("JWT_SECRET")
	}

	switch c.AI.Provider {
	case ProviderGemini:
		if c.AI.GeminiAPIKey == "" {
			return missing("GEMINI_API_KEY")
		}
	case ProviderOpenAI:
		if c.AI.OpenAIAPIKey == "" && c.AI.AIEndpoint == "" {
			return missing("OPENAI_API_KEY")
		}
	default:
		return invalid("unknown ai.provider %q", c.AI.Provider)
	}
	if c.AI.ChatModel == "" || c.AI.EmbeddingModel == "" {
		return invalid("ai.chat_model and ai.embedding_model must be set")
	}

	switch c.VectorStore.Type {
	case VectorStoreWeaviate:
		if c.VectorStore.Weaviate.Host == "" {
			return invalid("vector_store.weaviate.host must be set")
		}
	case VectorStoreMemory:
	default:
		return invalid("unknown vector_store.type %q", c.VectorStore.Type)
	}

	switch c.Store.Driver {
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return missing("MONGODB_URI")
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return missing("POSTGRES_DSN")
		}
	case StoreMemory:
	default:
		return invalid("unknown store.driver %q", c.Store.Driver)
	}

	switch c.ObjectStorage.Type {
	case ObjectStorageLocal:
		if c.ObjectStorage.LocalDir == "" {
			return invalid("object_storage.local_dir must be set")
		}
	case ObjectStorageS3:
		if c.ObjectStorage.S3.Bucket == "" || c.ObjectStorage.S3.Region == "" {
			return invalid("object_storage.s3.bucket and region must be set")
		}
	default:
		return invalid("unknown object_storage.type %q", c.ObjectStorage.Type)
	}

	switch c.EmbeddingCache.Type {
	case CacheNone:
	case CacheLRU:
		if c.EmbeddingCache.Size <= 0 {
			return invalid("embedding_cache.size must be positive")
		}
	case CacheRedis:
		if c.EmbeddingCache.RedisURL == "" {
			return missing("REDIS_URL")
		}
	default:
		return invalid("unknown embedding_cache.type %q", c.EmbeddingCache.Type)
	}

	if c.Ingestion.ChunkSize <= 0 || c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return invalid("ingestion.chunk_overlap must be smaller than ingestion.chunk_size")
	}
	if c.Ingestion.Concurrency <= 0 {
		return invalid("ingestion.concurrency must be positive")
	}
	if c.Retrieval.TopK <= 0 || c.Retrieval.MaxContextChars <= 0 {
		return invalid("retrieval.top_k and retrieval.max_context_chars must be positive")
	}
	if c.Chat.HistoryWindow < 0 {
		return invalid("chat.history_window cannot be negative")
	}
	return nil
}
