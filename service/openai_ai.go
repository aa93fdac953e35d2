package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/tieubaoca/pdfchat-be/types"
)

// OpenAIService serves embeddings and chat from any OpenAI compatible endpoint.
type OpenAIService struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	dimension      int
	log            zerolog.Logger
}

func NewOpenAIService(endpoint, apiKey, chatModel, embeddingModel string, dimension int, log zerolog.Logger) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	return &OpenAIService{
		client:         openai.NewClientWithConfig(cfg),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		dimension:      dimension,
		log:            log.With().Str("component", "openai").Logger(),
	}
}

func (s *OpenAIService) Dimension() int {
	return s.dimension
}

func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(s.embeddingModel),
	})
	if err != nil {
		return nil, embeddingError(s.embeddingModel, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, embeddingError(s.embeddingModel, errors.New("empty embedding"))
	}
	return resp.Data[0].Embedding, nil
}

func toOpenAIMessages(messages []types.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case types.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case types.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}

func (s *OpenAIService) Generate(ctx context.Context, messages []types.ChatMessage) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.chatModel,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response generated")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *OpenAIService) Stream(ctx context.Context, messages []types.ChatMessage) (<-chan types.Fragment, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.chatModel,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}

	out := make(chan types.Fragment)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				sendFragment(ctx, out, types.Fragment{Err: err})
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !sendFragment(ctx, out, types.Fragment{Text: resp.Choices[0].Delta.Content}) {
				return
			}
		}
	}()
	return out, nil
}
