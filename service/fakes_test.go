package service

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdfchat-be/storage"
	"github.com/tieubaoca/pdfchat-be/types"
)

var vocabulary = []string{"vacation", "policy", "salary", "handbook", "holiday", "review", "office", "security"}

// keywordEmbedder counts vocabulary words. The last dimension is a constant
// so no vector is all zeros.
type keywordEmbedder struct {
	failOn string
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lower := strings.ToLower(text)
	if e.failOn != "" && strings.Contains(lower, e.failOn) {
		return nil, embeddingError("keyword", errors.New("quota exceeded"))
	}
	vec := make([]float32, len(vocabulary)+1)
	for i, w := range vocabulary {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(vocabulary)] = 0.1
	return vec, nil
}

func (e *keywordEmbedder) Dimension() int { return len(vocabulary) + 1 }

// scriptedGenerator replays fragments. When failAfter >= 0 an error is
// sent after that many fragments. When hold is set the stream stays open
// until ctx is done.
type scriptedGenerator struct {
	fragments []string
	failAfter int
	startErr  error
	hold      bool

	mu      sync.Mutex
	prompts [][]types.ChatMessage
}

func newScriptedGenerator(fragments ...string) *scriptedGenerator {
	return &scriptedGenerator{fragments: fragments, failAfter: -1}
}

func (g *scriptedGenerator) record(messages []types.ChatMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, messages)
}

func (g *scriptedGenerator) lastPrompt() []types.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return nil
	}
	return g.prompts[len(g.prompts)-1]
}

func (g *scriptedGenerator) Generate(ctx context.Context, messages []types.ChatMessage) (string, error) {
	g.record(messages)
	if g.startErr != nil {
		return "", g.startErr
	}
	return strings.Join(g.fragments, ""), nil
}

func (g *scriptedGenerator) Stream(ctx context.Context, messages []types.ChatMessage) (<-chan types.Fragment, error) {
	g.record(messages)
	if g.startErr != nil {
		return nil, g.startErr
	}
	out := make(chan types.Fragment)
	go func() {
		defer close(out)
		for i, text := range g.fragments {
			if i == g.failAfter {
				sendFragment(ctx, out, types.Fragment{Err: errors.New("connection reset")})
				return
			}
			if !sendFragment(ctx, out, types.Fragment{Text: text}) {
				return
			}
		}
		if g.failAfter >= len(g.fragments) {
			sendFragment(ctx, out, types.Fragment{Err: errors.New("connection reset")})
			return
		}
		if g.hold {
			<-ctx.Done()
		}
	}()
	return out, nil
}

var pageMarker = regexp.MustCompile(`\[Page (\d+)\]`)

// citingGenerator answers with the first page cited in the prompt.
type citingGenerator struct{}

func (citingGenerator) answer(messages []types.ChatMessage) string {
	last := messages[len(messages)-1].Content
	if m := pageMarker.FindStringSubmatch(last); m != nil {
		return "According to page " + m[1] + ", employees get 20 vacation days."
	}
	return "The document does not mention this."
}

func (g citingGenerator) Generate(ctx context.Context, messages []types.ChatMessage) (string, error) {
	return g.answer(messages), nil
}

func (g citingGenerator) Stream(ctx context.Context, messages []types.ChatMessage) (<-chan types.Fragment, error) {
	out := make(chan types.Fragment)
	go func() {
		defer close(out)
		for _, word := range strings.SplitAfter(g.answer(messages), " ") {
			if !sendFragment(ctx, out, types.Fragment{Text: word}) {
				return
			}
		}
	}()
	return out, nil
}

// stubExtractor returns fixed pages and remembers the file it was given.
type stubExtractor struct {
	pages   []types.Page
	err     error
	content string
}

func (e *stubExtractor) ExtractPages(ctx context.Context, path string) ([]types.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	e.content = string(data)
	return e.pages, e.err
}

func newStoreWithFile(t *testing.T, name, content string) (*storage.LocalStore, string) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	locator, err := store.Put(context.Background(), name, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	return store, locator
}

func drain(fragments <-chan types.Fragment) (string, error) {
	var b strings.Builder
	var err error
	for f := range fragments {
		if f.Err != nil {
			err = f.Err
			continue
		}
		b.WriteString(f.Text)
	}
	return b.String(), err
}
