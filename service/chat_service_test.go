package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdfchat-be/database"
	"github.com/tieubaoca/pdfchat-be/repository"
	"github.com/tieubaoca/pdfchat-be/types"
)

type chatFixture struct {
	repo     *repository.MemoryStore
	index    *database.MemoryIndex
	embedder *keywordEmbedder
	doc      *types.Document
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		repo:     repository.NewMemoryStore(),
		index:    database.NewMemoryIndex(0),
		embedder: &keywordEmbedder{},
		doc: &types.Document{
			ID:        "doc-1",
			Name:      "Handbook",
			Locator:   "handbook.pdf",
			OwnerID:   "u1",
			Namespace: "ns_handbook",
			CreatedAt: 1,
		},
	}
	ctx := context.Background()
	require.NoError(t, f.repo.CreateDocument(ctx, f.doc))
	require.NoError(t, f.repo.CreateChat(ctx, &types.Chat{ID: f.doc.ID, DocumentID: f.doc.ID, UserID: "u1"}))
	return f
}

func (f *chatFixture) service(gen Generator) *ChatService {
	assembler := NewContextAssembler(f.embedder, f.index, 10, 10000, 0, zerolog.Nop())
	return NewChatService(f.repo, f.repo, assembler, gen, 4, zerolog.Nop())
}

func (f *chatFixture) messages(t *testing.T) []types.Message {
	t.Helper()
	msgs, err := f.repo.GetMessages(context.Background(), f.doc.ID)
	require.NoError(t, err)
	return msgs
}

func TestAnswerVacationPolicy(t *testing.T) {
	f := newChatFixture(t)
	upsertTexts(t, f.index, f.embedder, f.doc.Namespace, map[int]string{
		4: "Vacation policy: employees get 20 vacation days.",
		9: "Office security badge rules.",
	})
	svc := f.service(citingGenerator{})

	fragments, err := svc.Answer(context.Background(), types.AnswerRequest{
		DocumentID: f.doc.ID,
		Question:   "What is the vacation policy?",
		UserID:     "u1",
	})
	require.NoError(t, err)
	answer, err := drain(fragments)
	require.NoError(t, err)
	assert.Contains(t, answer, "page 4")

	msgs := f.messages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is the vacation policy?", msgs[0].Content)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
	assert.Equal(t, answer, msgs[1].Content)
	assert.Less(t, msgs[0].CreatedAt, msgs[1].CreatedAt)
}

func TestAnswerPromptCarriesContextAndHistory(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	upsertTexts(t, f.index, f.embedder, f.doc.Namespace, map[int]string{4: "Vacation policy: 20 days."})
	for i, content := range []string{"q1", "a1", "q2", "a2", "q3", "a3"} {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		require.NoError(t, f.repo.CreateMessage(ctx, &types.Message{
			ID: content, ChatID: f.doc.ID, DocumentID: f.doc.ID, Role: role, Content: content, CreatedAt: int64(i + 1),
		}))
	}
	gen := newScriptedGenerator("ok")
	svc := f.service(gen)

	fragments, err := svc.Answer(ctx, types.AnswerRequest{DocumentID: f.doc.ID, Question: "vacation policy?"})
	require.NoError(t, err)
	_, err = drain(fragments)
	require.NoError(t, err)

	prompt := gen.lastPrompt()
	require.Len(t, prompt, 6)
	assert.Equal(t, types.RoleSystem, prompt[0].Role)
	var history []string
	for _, m := range prompt[1:5] {
		history = append(history, m.Content)
	}
	assert.Equal(t, []string{"q2", "a2", "q3", "a3"}, history)
	final := prompt[5].Content
	assert.True(t, strings.HasPrefix(final, "Context from PDF:\n[Page 4]\nVacation policy: 20 days.\n\n---\n\nQuestion: \"vacation policy?\""))
}

func TestAnswerEmptyNamespaceStillCompletes(t *testing.T) {
	f := newChatFixture(t)
	svc := f.service(citingGenerator{})

	fragments, err := svc.Answer(context.Background(), types.AnswerRequest{DocumentID: f.doc.ID, Question: "What is the vacation policy?"})
	require.NoError(t, err)
	answer, err := drain(fragments)
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.Len(t, f.messages(t), 2)
}

func TestAnswerStreamFailureLeavesNoOrphan(t *testing.T) {
	f := newChatFixture(t)
	gen := newScriptedGenerator("Employees ", "get ", "twenty")
	gen.failAfter = 1
	svc := f.service(gen)

	fragments, err := svc.Answer(context.Background(), types.AnswerRequest{DocumentID: f.doc.ID, Question: "vacation?"})
	require.NoError(t, err)
	partial, err := drain(fragments)
	assert.Equal(t, "Employees ", partial)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindGeneration))
	assert.True(t, types.HasCode(err, types.CodeStreamInterrupted))

	msgs := f.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
}

func TestAnswerFailureBeforeFirstFragment(t *testing.T) {
	f := newChatFixture(t)
	gen := newScriptedGenerator("never")
	gen.failAfter = 0
	svc := f.service(gen)

	fragments, err := svc.Answer(context.Background(), types.AnswerRequest{DocumentID: f.doc.ID, Question: "vacation?"})
	require.NoError(t, err)
	_, err = drain(fragments)
	assert.True(t, types.HasCode(err, types.CodeServiceUnavailable))
	assert.Len(t, f.messages(t), 1)
}

func TestAnswerStartFailureKeepsQuestion(t *testing.T) {
	f := newChatFixture(t)
	gen := newScriptedGenerator()
	gen.startErr = errors.New("503")
	svc := f.service(gen)

	_, err := svc.Answer(context.Background(), types.AnswerRequest{DocumentID: f.doc.ID, Question: "vacation?"})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.CodeServiceUnavailable))
	msgs := f.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
}

func TestAnswerRetrievalFailurePersistsNothing(t *testing.T) {
	f := newChatFixture(t)
	f.embedder.failOn = "vacation"
	svc := f.service(newScriptedGenerator("x"))

	_, err := svc.Answer(context.Background(), types.AnswerRequest{DocumentID: f.doc.ID, Question: "vacation?"})
	require.Error(t, err)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.KindRetrieval, e.Kind)
	assert.Equal(t, f.doc.ID, e.DocumentID)
	assert.Empty(t, f.messages(t))
}

func TestAnswerCancelledStreamIsNotPersisted(t *testing.T) {
	f := newChatFixture(t)
	gen := newScriptedGenerator("partial ")
	gen.hold = true
	svc := f.service(gen)

	ctx, cancel := context.WithCancel(context.Background())
	fragments, err := svc.Answer(ctx, types.AnswerRequest{DocumentID: f.doc.ID, Question: "vacation?"})
	require.NoError(t, err)

	first := <-fragments
	assert.Equal(t, "partial ", first.Text)
	cancel()
	for range fragments {
	}

	msgs := f.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
}

func TestAnswerLookupErrors(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.CreateChat(ctx, &types.Chat{ID: "other-chat", DocumentID: "doc-2"}))
	svc := f.service(newScriptedGenerator("x"))

	_, err := svc.Answer(ctx, types.AnswerRequest{DocumentID: "missing", Question: "q"})
	assert.True(t, types.HasCode(err, types.CodeDocumentNotFound))

	_, err = svc.Answer(ctx, types.AnswerRequest{DocumentID: f.doc.ID, Question: "q", UserID: "intruder"})
	assert.True(t, types.HasCode(err, types.CodeDocumentNotFound))

	_, err = svc.Answer(ctx, types.AnswerRequest{DocumentID: f.doc.ID, ChatID: "other-chat", Question: "q"})
	assert.True(t, types.HasCode(err, types.CodeConversationNotFound))

	_, err = svc.Answer(ctx, types.AnswerRequest{DocumentID: f.doc.ID, Question: "   "})
	assert.True(t, types.IsKind(err, types.KindInvalidInput))

	assert.Empty(t, f.messages(t))
}

func TestAskUsesLatestDocument(t *testing.T) {
	f := newChatFixture(t)
	upsertTexts(t, f.index, f.embedder, f.doc.Namespace, map[int]string{4: "Vacation policy: 20 days."})
	gen := newScriptedGenerator("Twenty days.")
	svc := f.service(gen)

	resp, err := svc.Ask(context.Background(), "u1", types.AskRequest{Question: " vacation policy? "})
	require.NoError(t, err)
	assert.Equal(t, "vacation policy?", resp.Question)
	assert.Equal(t, "Twenty days.", resp.Answer)
	assert.Equal(t, f.doc.ID, resp.DocumentID)
	assert.Equal(t, "Handbook", resp.DocumentName)
	assert.Contains(t, gen.lastPrompt()[0].Content, "Context from PDF \"Handbook\":\n[Page 4]")
	assert.Empty(t, f.messages(t))

	_, err = svc.Ask(context.Background(), "nobody", types.AskRequest{Question: "q"})
	assert.True(t, types.HasCode(err, types.CodeDocumentNotFound))
}
