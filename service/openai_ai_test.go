package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdfchat-be/types"
)

func newOpenAITestServer(t *testing.T, deltas []string, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"embed","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,1]}]}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
			return
		}
		var req struct {
			Stream bool `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"full answer"},"finish_reason":"stop"}]}`))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			payload, _ := json.Marshal(d)
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%s}}]}\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIServiceEmbed(t *testing.T) {
	srv := newOpenAITestServer(t, nil, http.StatusOK)
	s := NewOpenAIService(srv.URL+"/v1", "key", "chat", "embed", 3, zerolog.Nop())

	vec, err := s.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 1}, vec)
	assert.Equal(t, 3, s.Dimension())
}

func TestOpenAIServiceGenerate(t *testing.T) {
	srv := newOpenAITestServer(t, nil, http.StatusOK)
	s := NewOpenAIService(srv.URL+"/v1", "key", "chat", "embed", 3, zerolog.Nop())

	answer, err := s.Generate(context.Background(), []types.ChatMessage{
		{Role: types.RoleSystem, Content: "be brief"},
		{Role: types.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "full answer", answer)
}

func TestOpenAIServiceStream(t *testing.T) {
	srv := newOpenAITestServer(t, []string{"Hel", "lo", " world"}, http.StatusOK)
	s := NewOpenAIService(srv.URL+"/v1", "key", "chat", "embed", 3, zerolog.Nop())

	fragments, err := s.Stream(context.Background(), []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}})
	require.NoError(t, err)

	var text string
	for f := range fragments {
		require.NoError(t, f.Err)
		text += f.Text
	}
	assert.Equal(t, "Hello world", text)
}

func TestOpenAIServiceStreamStartFailure(t *testing.T) {
	srv := newOpenAITestServer(t, nil, http.StatusInternalServerError)
	s := NewOpenAIService(srv.URL+"/v1", "key", "chat", "embed", 3, zerolog.Nop())

	_, err := s.Stream(context.Background(), []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}})
	assert.Error(t, err)
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]types.ChatMessage{
		{Role: types.RoleSystem, Content: "rules"},
		{Role: types.RoleAssistant, Content: "dangling answer"},
		{Role: types.RoleUser, Content: "q1"},
		{Role: types.RoleAssistant, Content: "a1"},
		{Role: types.RoleUser, Content: "q2"},
		{Role: types.RoleUser, Content: "q3"},
	})

	assert.Equal(t, "rules", system)
	require.Len(t, contents, 3)
	assert.Equal(t, roleGeminiUser, contents[0].Role)
	assert.Equal(t, roleGeminiModel, contents[1].Role)
	assert.Equal(t, roleGeminiUser, contents[2].Role)
	assert.Len(t, contents[2].Parts, 2)
}

func TestSplitAPIKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitAPIKeys(" a, ,b "))
	assert.Nil(t, SplitAPIKeys(""))
}
