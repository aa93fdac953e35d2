package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/database"
	"github.com/tieubaoca/pdfchat-be/repository"
	"github.com/tieubaoca/pdfchat-be/types"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// DocumentService manages ingested documents and their conversations for
// one owner at a time.
type DocumentService struct {
	documents    repository.DocumentRepo
	chats        repository.ChatRepo
	index        database.VectorIndex
	purgeVectors bool
	log          zerolog.Logger
}

func NewDocumentService(documents repository.DocumentRepo, chats repository.ChatRepo, index database.VectorIndex, purgeVectors bool, log zerolog.Logger) *DocumentService {
	return &DocumentService{
		documents:    documents,
		chats:        chats,
		index:        index,
		purgeVectors: purgeVectors,
		log:          log.With().Str("component", "documents").Logger(),
	}
}

func (s *DocumentService) List(ctx context.Context, ownerID string, page, limit int) (*types.DocumentList, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	docs, total, err := s.documents.ListDocuments(ctx, ownerID, (page-1)*limit, limit)
	if err != nil {
		return nil, persistenceError("failed to list documents", err)
	}
	if docs == nil {
		docs = []types.Document{}
	}
	return &types.DocumentList{Documents: docs, Page: page, Limit: limit, Total: total}, nil
}

func (s *DocumentService) Get(ctx context.Context, ownerID, id string) (*types.Document, error) {
	doc, err := s.documents.GetDocument(ctx, id)
	if err != nil {
		return nil, documentLookupError(err, id)
	}
	if doc.OwnerID != ownerID {
		return nil, documentLookupError(repository.ErrNotFound, id)
	}
	return doc, nil
}

func (s *DocumentService) Latest(ctx context.Context, ownerID string) (*types.Document, error) {
	doc, err := s.documents.LatestDocument(ctx, ownerID)
	if err != nil {
		return nil, documentLookupError(err, "")
	}
	return doc, nil
}

// Delete removes a document with its chats and messages. Its vector
// namespace is only dropped when purging is enabled.
func (s *DocumentService) Delete(ctx context.Context, ownerID, id string) error {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.chats.DeleteChats(ctx, doc.ID); err != nil {
		return persistenceError("failed to delete chats", err).WithDocument(doc.ID)
	}
	if err := s.documents.DeleteDocument(ctx, doc.ID); err != nil {
		return persistenceError("failed to delete document", err).WithDocument(doc.ID)
	}

	log := s.log.With().Str("document_id", doc.ID).Str("namespace", doc.Namespace).Logger()
	if !s.purgeVectors {
		log.Info().Msg("document deleted, vectors retained")
		return nil
	}
	if err := s.index.DeleteNamespace(ctx, doc.Namespace); err != nil {
		return types.NewError(types.KindPersistence, types.CodeIndexWriteFailed, "failed to purge vectors").
			WithStage("purge").
			WithNamespace(doc.Namespace).
			WithDocument(doc.ID).
			WithCause(err)
	}
	log.Info().Msg("document deleted, vectors purged")
	return nil
}

func (s *DocumentService) CreateChat(ctx context.Context, ownerID, documentID, title string) (*types.Chat, error) {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = doc.Name
	}
	chat := &types.Chat{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		UserID:     ownerID,
		Title:      title,
		CreatedAt:  time.Now().UnixMilli(),
	}
	if err := s.chats.CreateChat(ctx, chat); err != nil {
		return nil, persistenceError("failed to create chat", err).WithDocument(doc.ID)
	}
	return chat, nil
}

func (s *DocumentService) ListChats(ctx context.Context, ownerID, documentID string) ([]types.Chat, error) {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	chats, err := s.chats.ListChats(ctx, doc.ID)
	if err != nil {
		return nil, persistenceError("failed to list chats", err).WithDocument(doc.ID)
	}
	if chats == nil {
		chats = []types.Chat{}
	}
	return chats, nil
}

// ListMessages returns a chat's messages oldest first.
func (s *DocumentService) ListMessages(ctx context.Context, ownerID, chatID string) ([]types.Message, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewError(types.KindNotFound, types.CodeConversationNotFound, "chat "+chatID+" not found")
	}
	if err != nil {
		return nil, persistenceError("failed to load chat", err)
	}
	if _, err := s.Get(ctx, ownerID, chat.DocumentID); err != nil {
		if types.IsKind(err, types.KindNotFound) {
			return nil, types.NewError(types.KindNotFound, types.CodeConversationNotFound, "chat "+chatID+" not found")
		}
		return nil, err
	}
	messages, err := s.chats.GetMessages(ctx, chat.ID)
	if err != nil {
		return nil, persistenceError("failed to load messages", err).WithDocument(chat.DocumentID)
	}
	if messages == nil {
		messages = []types.Message{}
	}
	return messages, nil
}

func documentLookupError(err error, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		msg := "document not found"
		if id != "" {
			msg = "document " + id + " not found"
		}
		return types.NewError(types.KindNotFound, types.CodeDocumentNotFound, msg)
	}
	return persistenceError("failed to load document", err).WithDocument(id)
}

func persistenceError(msg string, err error) *types.Error {
	return types.NewError(types.KindPersistence, types.CodeStoreFailed, msg).WithCause(err)
}
