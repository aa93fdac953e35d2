package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/tieubaoca/pdfchat-be/types"
)

// MemoryStore keeps documents, chats and messages in process. It satisfies
// both DocumentRepo and ChatRepo.
type MemoryStore struct {
	mu        sync.RWMutex
	documents []types.Document
	chats     []types.Chat
	messages  []types.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) CreateDocument(ctx context.Context, doc *types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, *doc)
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.documents {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ownedDocuments(ownerID string) []types.Document {
	var owned []types.Document
	for i := len(s.documents) - 1; i >= 0; i-- {
		if s.documents[i].OwnerID == ownerID {
			owned = append(owned, s.documents[i])
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt > owned[j].CreatedAt
	})
	return owned
}

func (s *MemoryStore) ListDocuments(ctx context.Context, ownerID string, offset, limit int) ([]types.Document, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := s.ownedDocuments(ownerID)
	total := int64(len(owned))
	if offset >= len(owned) {
		return []types.Document{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], total, nil
}

func (s *MemoryStore) LatestDocument(ctx context.Context, ownerID string) (*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := s.ownedDocuments(ownerID)
	if len(owned) == 0 {
		return nil, ErrNotFound
	}
	return &owned[0], nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.documents {
		if d.ID == id {
			s.documents = append(s.documents[:i], s.documents[i+1:]...)
			s.deleteChatsLocked(id)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) CreateChat(ctx context.Context, chat *types.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, *chat)
	return nil
}

func (s *MemoryStore) GetChat(ctx context.Context, id string) (*types.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chats {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListChats(ctx context.Context, documentID string) ([]types.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chats := []types.Chat{}
	for _, c := range s.chats {
		if c.DocumentID == documentID {
			chats = append(chats, c)
		}
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].CreatedAt < chats[j].CreatedAt
	})
	return chats, nil
}

func (s *MemoryStore) DeleteChats(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteChatsLocked(documentID)
	return nil
}

func (s *MemoryStore) deleteChatsLocked(documentID string) {
	chats := s.chats[:0]
	for _, c := range s.chats {
		if c.DocumentID != documentID {
			chats = append(chats, c)
		}
	}
	s.chats = chats

	messages := s.messages[:0]
	for _, m := range s.messages {
		if m.DocumentID != documentID {
			messages = append(messages, m)
		}
	}
	s.messages = messages
}

func (s *MemoryStore) CreateMessage(ctx context.Context, message *types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *message)
	return nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, chatID string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := []types.Message{}
	for _, m := range s.messages {
		if m.ChatID == chatID {
			messages = append(messages, m)
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt < messages[j].CreatedAt
	})
	return messages, nil
}

func (s *MemoryStore) RecentMessages(ctx context.Context, chatID string, limit int) ([]types.Message, error) {
	messages, err := s.GetMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []types.Message{}, nil
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}
