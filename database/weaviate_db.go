package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/config"
	"github.com/tieubaoca/pdfchat-be/types"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const (
	BATCH_SIZE  = 200
	CHUNK_CLASS = "Chunk"
)

// chunkClass is a multi-tenant class: every document namespace is a tenant,
// created on first write.
func chunkClass() *models.Class {
	return &models.Class{
		Class:      CHUNK_CLASS,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "text", DataType: []string{"text"}},
			{Name: "pageNumber", DataType: []string{"int"}},
		},
		VectorIndexType: "hnsw",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		MultiTenancyConfig: &models.MultiTenancyConfig{
			Enabled:            true,
			AutoTenantCreation: true,
		},
	}
}

type WeaviateIndex struct {
	client *weaviate.Client
	log    zerolog.Logger
}

func NewWeaviateIndex(cfg config.WeaviateStoreConfig, log zerolog.Logger) (*WeaviateIndex, error) {
	var scheme string
	if strings.HasPrefix(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	wcfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
		wcfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     cfg.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &WeaviateIndex{
		client: client,
		log:    log.With().Str("component", "weaviate").Logger(),
	}, nil
}

func (s *WeaviateIndex) Init(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	for _, class := range schema.Classes {
		if class.Class == CHUNK_CLASS {
			return nil
		}
	}
	if err := s.client.Schema().ClassCreator().WithClass(chunkClass()).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", CHUNK_CLASS, err)
	}
	s.log.Info().Str("class", CHUNK_CLASS).Msg("created vector class")
	return nil
}

// Reset drops the class with every namespace in it and creates it again.
func (s *WeaviateIndex) Reset(ctx context.Context) error {
	if err := s.client.Schema().ClassDeleter().WithClassName(CHUNK_CLASS).Do(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to delete vector class")
	}
	if err := s.client.Schema().ClassCreator().WithClass(chunkClass()).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", CHUNK_CLASS, err)
	}
	return nil
}

func (s *WeaviateIndex) Upsert(ctx context.Context, namespace string, records []types.VectorRecord) error {
	total := len(records)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for _, r := range records[i:end] {
			batcher = batcher.WithObjects(&models.Object{
				Class:  CHUNK_CLASS,
				ID:     strfmt.UUID(r.ID),
				Tenant: namespace,
				Properties: map[string]interface{}{
					"text":       r.Metadata.Text,
					"pageNumber": r.Metadata.PageNumber,
				},
				Vector: r.Vector,
			})
		}

		resp, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %w", i, end, err)
		}
		for _, obj := range resp {
			if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
				return fmt.Errorf("failed to insert object %s: %s", obj.ID, obj.Result.Errors.Error[0].Message)
			}
		}
		s.log.Debug().Str("namespace", namespace).Msgf("inserted batch %d-%d of %d records", i, end, total)
	}
	return nil
}

func (s *WeaviateIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]types.Match, error) {
	fields := []graphql.Field{
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}
	if includeMetadata {
		fields = append(fields, graphql.Field{Name: "text"}, graphql.Field{Name: "pageNumber"})
	}
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	result, err := s.client.GraphQL().Get().
		WithClassName(CHUNK_CLASS).
		WithTenant(namespace).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		if isMissingTenant(err.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		if isMissingTenant(result.Errors[0].Message) {
			return nil, nil
		}
		return nil, fmt.Errorf("search failed: %s", result.Errors[0].Message)
	}

	get, _ := result.Data["Get"].(map[string]interface{})
	return parseMatches(get, includeMetadata), nil
}

func (s *WeaviateIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	err := s.client.Schema().TenantsDeleter().
		WithClassName(CHUNK_CLASS).
		WithTenants(namespace).
		Do(ctx)
	if err != nil && !isMissingTenant(err.Error()) {
		return fmt.Errorf("failed to delete namespace %s: %w", namespace, err)
	}
	return nil
}

func isMissingTenant(message string) bool {
	message = strings.ToLower(message)
	return strings.Contains(message, "tenant not found") ||
		strings.Contains(message, "has no tenant")
}

// parseMatches reads the Get.<class> array of a GraphQL response. Weaviate
// already orders hits by ascending distance.
func parseMatches(get map[string]interface{}, includeMetadata bool) []types.Match {
	items, _ := get[CHUNK_CLASS].([]interface{})
	matches := make([]types.Match, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var match types.Match
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			match.ID, _ = additional["id"].(string)
			if distance, ok := additional["distance"].(float64); ok {
				match.Score = float32(1 - distance)
			}
		}
		if includeMetadata {
			meta := types.ChunkMetadata{}
			meta.Text, _ = obj["text"].(string)
			if page, ok := obj["pageNumber"].(float64); ok {
				meta.PageNumber = int(page)
			}
			match.Metadata = &meta
		}
		matches = append(matches, match)
	}
	return matches
}
