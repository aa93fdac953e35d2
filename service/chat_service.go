package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/metrics"
	"github.com/tieubaoca/pdfchat-be/repository"
	"github.com/tieubaoca/pdfchat-be/types"
)

const DefaultHistoryWindow = 4

// ChatService answers questions about a document. A turn moves from
// retrieval to generation and ends persisted or failed.
type ChatService struct {
	documents     repository.DocumentRepo
	chats         repository.ChatRepo
	assembler     *ContextAssembler
	generator     Generator
	historyWindow int
	log           zerolog.Logger
}

func NewChatService(
	documents repository.DocumentRepo,
	chats repository.ChatRepo,
	assembler *ContextAssembler,
	generator Generator,
	historyWindow int,
	log zerolog.Logger,
) *ChatService {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &ChatService{
		documents:     documents,
		chats:         chats,
		assembler:     assembler,
		generator:     generator,
		historyWindow: historyWindow,
		log:           log.With().Str("component", "chat").Logger(),
	}
}

// Answer persists the question, then streams the answer. The returned
// channel is closed when the turn ends; the assistant message is stored
// only when generation completed and ctx is still live.
func (s *ChatService) Answer(ctx context.Context, req types.AnswerRequest) (<-chan types.Fragment, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, types.NewError(types.KindInvalidInput, types.CodeEmptyQuestion, "question is empty")
	}
	doc, err := s.ownedDocument(ctx, req.UserID, req.DocumentID)
	if err != nil {
		return nil, err
	}
	chatID := req.ChatID
	if chatID == "" {
		chatID = doc.ID
	}
	if _, err := s.documentChat(ctx, doc.ID, chatID); err != nil {
		return nil, err
	}
	log := s.log.With().Str("document_id", doc.ID).Str("chat_id", chatID).Logger()

	pdfContext, err := s.assembler.Assemble(ctx, question, doc.Namespace)
	if err != nil {
		metrics.AnswersTotal.WithLabelValues("retrieval_failed").Inc()
		if e, ok := types.AsError(err); ok {
			e.WithDocument(doc.ID)
		}
		return nil, err
	}

	history, err := s.chats.RecentMessages(ctx, chatID, s.historyWindow)
	if err != nil {
		return nil, persistenceError("failed to load chat history", err).WithDocument(doc.ID)
	}

	userMsg := newMessage(chatID, doc.ID, types.RoleUser, question, 0)
	if err := s.chats.CreateMessage(ctx, userMsg); err != nil {
		return nil, persistenceError("failed to save question", err).WithDocument(doc.ID)
	}

	stream, err := s.generator.Stream(ctx, buildPrompt(history, answerPrompt(pdfContext, question)))
	if err != nil {
		metrics.AnswersTotal.WithLabelValues("generation_failed").Inc()
		return nil, types.NewError(types.KindGeneration, types.CodeServiceUnavailable, "failed to start generation").
			WithStage("generate").
			WithDocument(doc.ID).
			WithCause(err)
	}

	out := make(chan types.Fragment)
	go func() {
		defer close(out)
		var answer strings.Builder
		for f := range stream {
			if f.Err != nil {
				code := types.CodeServiceUnavailable
				if answer.Len() > 0 {
					code = types.CodeStreamInterrupted
				}
				log.Error().Err(f.Err).Int("received", answer.Len()).Msg("generation stream failed")
				metrics.AnswersTotal.WithLabelValues("generation_failed").Inc()
				sendFragment(ctx, out, types.Fragment{Err: types.NewError(types.KindGeneration, code, "generation failed").
					WithStage("generate").
					WithDocument(doc.ID).
					WithCause(f.Err)})
				return
			}
			answer.WriteString(f.Text)
			if !sendFragment(ctx, out, f) {
				break
			}
		}
		if ctx.Err() != nil {
			log.Info().Msg("answer cancelled by caller")
			metrics.AnswersTotal.WithLabelValues("cancelled").Inc()
			return
		}

		reply := newMessage(chatID, doc.ID, types.RoleAssistant, answer.String(), userMsg.CreatedAt)
		if err := s.chats.CreateMessage(ctx, reply); err != nil {
			metrics.AnswersTotal.WithLabelValues("persist_failed").Inc()
			sendFragment(ctx, out, types.Fragment{Err: persistenceError("failed to save answer", err).WithDocument(doc.ID)})
			return
		}
		metrics.AnswersTotal.WithLabelValues("success").Inc()
		log.Debug().Int("length", answer.Len()).Msg("answer persisted")
	}()
	return out, nil
}

// Ask answers once without touching chat history. An empty document id
// means the owner's most recent document.
func (s *ChatService) Ask(ctx context.Context, userID string, req types.AskRequest) (*types.AskResponse, error) {
	start := time.Now()
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, types.NewError(types.KindInvalidInput, types.CodeEmptyQuestion, "question is empty")
	}

	var doc *types.Document
	var err error
	if req.DocumentID != "" {
		doc, err = s.ownedDocument(ctx, userID, req.DocumentID)
	} else {
		doc, err = s.documents.LatestDocument(ctx, userID)
		err = documentLookupError(err, "")
	}
	if err != nil {
		return nil, err
	}

	pdfContext, err := s.assembler.Assemble(ctx, question, doc.Namespace)
	if err != nil {
		return nil, err
	}
	answer, err := s.generator.Generate(ctx, []types.ChatMessage{
		{Role: types.RoleUser, Content: queryPrompt(doc.Name, pdfContext, question)},
	})
	if err != nil {
		return nil, types.NewError(types.KindGeneration, types.CodeServiceUnavailable, "generation failed").
			WithStage("generate").
			WithDocument(doc.ID).
			WithCause(err)
	}
	return &types.AskResponse{
		Question:         question,
		Answer:           answer,
		DocumentName:     doc.Name,
		DocumentID:       doc.ID,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// ownedDocument hides documents of other owners. An empty userID skips the
// owner check.
func (s *ChatService) ownedDocument(ctx context.Context, userID, documentID string) (*types.Document, error) {
	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, documentLookupError(err, documentID)
	}
	if userID != "" && doc.OwnerID != userID {
		return nil, documentLookupError(repository.ErrNotFound, documentID)
	}
	return doc, nil
}

func (s *ChatService) documentChat(ctx context.Context, documentID, chatID string) (*types.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && chat.DocumentID != documentID) {
		return nil, types.NewError(types.KindNotFound, types.CodeConversationNotFound, "chat "+chatID+" not found").
			WithDocument(documentID)
	}
	if err != nil {
		return nil, persistenceError("failed to load chat", err).WithDocument(documentID)
	}
	return chat, nil
}

func buildPrompt(history []types.Message, final string) []types.ChatMessage {
	prompt := make([]types.ChatMessage, 0, len(history)+2)
	prompt = append(prompt, types.ChatMessage{Role: types.RoleSystem, Content: answerSystemPrompt})
	for _, m := range history {
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			continue
		}
		prompt = append(prompt, types.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return append(prompt, types.ChatMessage{Role: types.RoleUser, Content: final})
}

// newMessage stamps a message strictly after notBefore so a reply always
// sorts after its question.
func newMessage(chatID, documentID, role, content string, notBefore int64) *types.Message {
	created := time.Now().UnixMilli()
	if created <= notBefore {
		created = notBefore + 1
	}
	return &types.Message{
		ID:         uuid.Must(uuid.NewV7()).String(),
		ChatID:     chatID,
		DocumentID: documentID,
		Role:       role,
		Content:    content,
		CreatedAt:  created,
	}
}
