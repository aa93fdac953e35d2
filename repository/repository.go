package repository

import (
	"context"
	"errors"

	"github.com/tieubaoca/pdfchat-be/types"
)

var ErrNotFound = errors.New("record not found")

type DocumentRepo interface {
	CreateDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	// ListDocuments pages through an owner's documents, newest first.
	ListDocuments(ctx context.Context, ownerID string, offset, limit int) ([]types.Document, int64, error)
	LatestDocument(ctx context.Context, ownerID string) (*types.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

type ChatRepo interface {
	CreateChat(ctx context.Context, chat *types.Chat) error
	GetChat(ctx context.Context, id string) (*types.Chat, error)
	ListChats(ctx context.Context, documentID string) ([]types.Chat, error)
	// DeleteChats removes every chat of a document and their messages.
	DeleteChats(ctx context.Context, documentID string) error

	CreateMessage(ctx context.Context, message *types.Message) error
	// GetMessages returns a chat's messages, oldest first.
	GetMessages(ctx context.Context, chatID string) ([]types.Message, error)
	// RecentMessages returns the last limit messages of a chat, oldest first.
	RecentMessages(ctx context.Context, chatID string, limit int) ([]types.Message, error)
}
