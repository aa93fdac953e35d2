package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	roleGeminiUser  = "user"
	roleGeminiModel = "model"
)

// GeminiService talks to the Gemini API for both embeddings and chat. Several
// API keys may be given; after a failed call the next key is used.
type GeminiService struct {
	apiKeys        []string
	currentKey     int
	client         *genai.Client
	mu             sync.Mutex
	chatModel      string
	embeddingModel string
	dimension      int
	log            zerolog.Logger
}

func NewGeminiService(ctx context.Context, apiKeys []string, chatModel, embeddingModel string, dimension int, log zerolog.Logger) (*GeminiService, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}
	s := &GeminiService{
		apiKeys:        apiKeys,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		dimension:      dimension,
		log:            log.With().Str("component", "gemini").Logger(),
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKeys[0]))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	s.client = client
	return s, nil
}

// SplitAPIKeys parses a comma separated key list.
func SplitAPIKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *GeminiService) currentClient() *genai.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *GeminiService) rotateAPIKey(failed *genai.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.apiKeys) < 2 || s.client != failed {
		return
	}
	s.currentKey = (s.currentKey + 1) % len(s.apiKeys)
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(s.apiKeys[s.currentKey]))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to rotate api key")
		return
	}
	// in-flight calls may still hold the old client, so it is not closed here
	s.client = client
	s.log.Warn().Int("key_index", s.currentKey).Msg("rotated gemini api key")
}

func (s *GeminiService) Close() error {
	return s.currentClient().Close()
}

func (s *GeminiService) Dimension() int {
	return s.dimension
}

func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	client := s.currentClient()
	res, err := client.EmbeddingModel(s.embeddingModel).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		s.rotateAPIKey(client)
		return nil, embeddingError(s.embeddingModel, err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, embeddingError(s.embeddingModel, errors.New("empty embedding"))
	}
	return res.Embedding.Values, nil
}

func (s *GeminiService) Generate(ctx context.Context, messages []types.ChatMessage) (string, error) {
	client := s.currentClient()
	session, last, err := s.startChat(client, messages)
	if err != nil {
		return "", err
	}
	resp, err := session.SendMessage(ctx, last...)
	if err != nil {
		s.rotateAPIKey(client)
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no response generated")
	}
	return responseText(resp), nil
}

func (s *GeminiService) Stream(ctx context.Context, messages []types.ChatMessage) (<-chan types.Fragment, error) {
	client := s.currentClient()
	session, last, err := s.startChat(client, messages)
	if err != nil {
		return nil, err
	}
	iter := session.SendMessageStream(ctx, last...)

	out := make(chan types.Fragment)
	go func() {
		defer close(out)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					s.rotateAPIKey(client)
				}
				sendFragment(ctx, out, types.Fragment{Err: err})
				return
			}
			text := responseText(resp)
			if text == "" {
				continue
			}
			if !sendFragment(ctx, out, types.Fragment{Text: text}) {
				return
			}
		}
	}()
	return out, nil
}

func (s *GeminiService) startChat(client *genai.Client, messages []types.ChatMessage) (*genai.ChatSession, []genai.Part, error) {
	system, contents := toGeminiContents(messages)
	if len(contents) == 0 || contents[len(contents)-1].Role != roleGeminiUser {
		return nil, nil, errors.New("prompt must end with a user message")
	}
	model := client.GenerativeModel(s.chatModel)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	session := model.StartChat()
	session.History = contents[:len(contents)-1]
	return session, contents[len(contents)-1].Parts, nil
}

// toGeminiContents maps roles to Gemini's vocabulary. Consecutive turns of
// the same role are merged and history never starts with a model turn.
func toGeminiContents(messages []types.ChatMessage) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, msg := range messages {
		role := roleGeminiUser
		switch msg.Role {
		case types.RoleSystem:
			system = append(system, msg.Content)
			continue
		case types.RoleAssistant:
			role = roleGeminiModel
		}
		if len(contents) == 0 && role == roleGeminiModel {
			continue
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, genai.Text(msg.Content))
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return strings.Join(system, "\n\n"), contents
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}
