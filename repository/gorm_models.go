package repository

import "github.com/tieubaoca/pdfchat-be/types"

type DocumentModel struct {
	ID         string `gorm:"primaryKey;type:varchar(64)"`
	Name       string `gorm:"not null"`
	Locator    string `gorm:"not null"`
	OwnerID    string `gorm:"index:idx_documents_owner_created,priority:1;not null"`
	Namespace  string `gorm:"not null"`
	PageCount  int
	ChunkCount int
	CreatedAt  int64 `gorm:"autoCreateTime:false;index:idx_documents_owner_created,priority:2"`

	Chats []ChatModel `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

func (DocumentModel) TableName() string { return "documents" }

type ChatModel struct {
	ID         string `gorm:"primaryKey;type:varchar(64)"`
	DocumentID string `gorm:"index;not null;type:varchar(64)"`
	UserID     string `gorm:"not null"`
	Title      string
	CreatedAt  int64 `gorm:"autoCreateTime:false"`

	Messages []MessageModel `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

func (ChatModel) TableName() string { return "chats" }

type MessageModel struct {
	ID         string `gorm:"primaryKey;type:varchar(64)"`
	ChatID     string `gorm:"index:idx_messages_chat_created,priority:1;not null;type:varchar(64)"`
	DocumentID string `gorm:"index;not null;type:varchar(64)"`
	Role       string `gorm:"type:varchar(16);not null"`
	Content    string `gorm:"type:text;not null"`
	CreatedAt  int64  `gorm:"autoCreateTime:false;index:idx_messages_chat_created,priority:2"`
}

func (MessageModel) TableName() string { return "messages" }

func documentModelFrom(d *types.Document) *DocumentModel {
	return &DocumentModel{
		ID:         d.ID,
		Name:       d.Name,
		Locator:    d.Locator,
		OwnerID:    d.OwnerID,
		Namespace:  d.Namespace,
		PageCount:  d.PageCount,
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt,
	}
}

func (m *DocumentModel) toType() types.Document {
	return types.Document{
		ID:         m.ID,
		Name:       m.Name,
		Locator:    m.Locator,
		OwnerID:    m.OwnerID,
		Namespace:  m.Namespace,
		PageCount:  m.PageCount,
		ChunkCount: m.ChunkCount,
		CreatedAt:  m.CreatedAt,
	}
}

func chatModelFrom(c *types.Chat) *ChatModel {
	return &ChatModel{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		UserID:     c.UserID,
		Title:      c.Title,
		CreatedAt:  c.CreatedAt,
	}
}

func (m *ChatModel) toType() types.Chat {
	return types.Chat{
		ID:         m.ID,
		DocumentID: m.DocumentID,
		UserID:     m.UserID,
		Title:      m.Title,
		CreatedAt:  m.CreatedAt,
	}
}

func messageModelFrom(msg *types.Message) *MessageModel {
	return &MessageModel{
		ID:         msg.ID,
		ChatID:     msg.ChatID,
		DocumentID: msg.DocumentID,
		Role:       msg.Role,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}
}

func (m *MessageModel) toType() types.Message {
	return types.Message{
		ID:         m.ID,
		ChatID:     m.ChatID,
		DocumentID: m.DocumentID,
		Role:       m.Role,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}
