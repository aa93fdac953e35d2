package repository

import (
	"context"
	"errors"

	"github.com/tieubaoca/pdfchat-be/types"
	"gorm.io/gorm"
)

// AutoMigrate creates the documents, chats and messages tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&DocumentModel{}, &ChatModel{}, &MessageModel{})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type GormDocumentRepo struct {
	db *gorm.DB
}

func NewGormDocumentRepo(db *gorm.DB) *GormDocumentRepo {
	return &GormDocumentRepo{db: db}
}

func (r *GormDocumentRepo) CreateDocument(ctx context.Context, doc *types.Document) error {
	return r.db.WithContext(ctx).Create(documentModelFrom(doc)).Error
}

func (r *GormDocumentRepo) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	var m DocumentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	doc := m.toType()
	return &doc, nil
}

func (r *GormDocumentRepo) ListDocuments(ctx context.Context, ownerID string, offset, limit int) ([]types.Document, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&DocumentModel{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []DocumentModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	docs := make([]types.Document, 0, len(models))
	for i := range models {
		docs = append(docs, models[i].toType())
	}
	return docs, total, nil
}

func (r *GormDocumentRepo) LatestDocument(ctx context.Context, ownerID string) (*types.Document, error) {
	var m DocumentModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	doc := m.toType()
	return &doc, nil
}

// DeleteDocument relies on ON DELETE CASCADE for chats and messages.
func (r *GormDocumentRepo) DeleteDocument(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&DocumentModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type GormChatRepo struct {
	db *gorm.DB
}

func NewGormChatRepo(db *gorm.DB) *GormChatRepo {
	return &GormChatRepo{db: db}
}

func (r *GormChatRepo) CreateChat(ctx context.Context, chat *types.Chat) error {
	return r.db.WithContext(ctx).Create(chatModelFrom(chat)).Error
}

func (r *GormChatRepo) GetChat(ctx context.Context, id string) (*types.Chat, error) {
	var m ChatModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	chat := m.toType()
	return &chat, nil
}

func (r *GormChatRepo) ListChats(ctx context.Context, documentID string) ([]types.Chat, error) {
	var models []ChatModel
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	chats := make([]types.Chat, 0, len(models))
	for i := range models {
		chats = append(chats, models[i].toType())
	}
	return chats, nil
}

func (r *GormChatRepo) DeleteChats(ctx context.Context, documentID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&MessageModel{}).Error; err != nil {
			return err
		}
		return tx.Where("document_id = ?", documentID).Delete(&ChatModel{}).Error
	})
}

func (r *GormChatRepo) CreateMessage(ctx context.Context, message *types.Message) error {
	return r.db.WithContext(ctx).Create(messageModelFrom(message)).Error
}

func (r *GormChatRepo) GetMessages(ctx context.Context, chatID string) ([]types.Message, error) {
	var models []MessageModel
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toMessages(models), nil
}

func (r *GormChatRepo) RecentMessages(ctx context.Context, chatID string, limit int) ([]types.Message, error) {
	if limit <= 0 {
		return []types.Message{}, nil
	}
	var models []MessageModel
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	messages := toMessages(models)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func toMessages(models []MessageModel) []types.Message {
	messages := make([]types.Message, 0, len(models))
	for i := range models {
		messages = append(messages, models[i].toType())
	}
	return messages
}
