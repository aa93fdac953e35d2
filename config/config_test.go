package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdfchat-be/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "text-embedding-004", cfg.AI.EmbeddingModel)
	assert.Equal(t, 1000, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 200, cfg.Ingestion.ChunkOverlap)
	assert.Equal(t, 36000, cfg.Ingestion.MaxMetadataBytes)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, 10000, cfg.Retrieval.MaxContextChars)
	assert.Equal(t, 4, cfg.Chat.HistoryWindow)
	assert.False(t, cfg.Documents.PurgeVectorsOnDelete)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
ai:
  provider: openai
  chat_model: gpt-4o-mini
  embedding_model: text-embedding-3-small
store:
  driver: postgres
retrieval:
  top_k: 5
documents:
  purge_vectors_on_delete: true
`)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/pdfchat")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("CHAT_HISTORY_WINDOW", "6")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "sk-test", cfg.AI.OpenAIAPIKey)
	assert.Equal(t, "postgres://localhost/pdfchat", cfg.Store.PostgresDSN)
	assert.Equal(t, "jwt", cfg.JWTSecret)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 6, cfg.Chat.HistoryWindow)
	assert.True(t, cfg.Documents.PurgeVectorsOnDelete)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigRejectsBrokenFile(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.JWTSecret = "jwt"
	cfg.AI.GeminiAPIKey = "key"
	cfg.Store.MongoURI = "mongodb://localhost:27017"
	return cfg
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())

	cases := map[string]struct {
		mutate func(*Config)
		code   string
	}{
		"missing jwt secret":      {func(c *Config) { c.JWTSecret = "" }, types.CodeMissingCredentials},
		"missing gemini key":      {func(c *Config) { c.AI.GeminiAPIKey = "" }, types.CodeMissingCredentials},
		"unknown provider":        {func(c *Config) { c.AI.Provider = "llama" }, types.CodeInvalidConfig},
		"missing mongo uri":       {func(c *Config) { c.Store.MongoURI = "" }, types.CodeMissingCredentials},
		"redis cache without url": {func(c *Config) { c.EmbeddingCache.Type = CacheRedis }, types.CodeMissingCredentials},
		"s3 without bucket":       {func(c *Config) { c.ObjectStorage.Type = ObjectStorageS3 }, types.CodeInvalidConfig},
		"overlap too large":       {func(c *Config) { c.Ingestion.ChunkOverlap = 1000 }, types.CodeInvalidConfig},
		"zero top k":              {func(c *Config) { c.Retrieval.TopK = 0 }, types.CodeInvalidConfig},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, types.IsKind(err, types.KindConfiguration))
			assert.True(t, types.HasCode(err, tc.code))
		})
	}
}

func TestValidateOpenAICompatibleEndpointWithoutKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.AI.Provider = ProviderOpenAI
	cfg.AI.AIEndpoint = "http://localhost:1234/v1"
	assert.NoError(t, cfg.Validate())
}
