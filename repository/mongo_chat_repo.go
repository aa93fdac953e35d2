package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tieubaoca/pdfchat-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoChatRepo struct {
	chats    *mongo.Collection
	messages *mongo.Collection
}

func NewMongoChatRepo(db *mongo.Database) *MongoChatRepo {
	return &MongoChatRepo{
		chats:    db.Collection(ChatsCollection),
		messages: db.Collection(MessagesCollection),
	}
}

func (r *MongoChatRepo) EnsureIndexes(ctx context.Context) error {
	if _, err := r.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "document_id", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := r.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "document_id", Value: 1}}},
	})
	return err
}

func (r *MongoChatRepo) CreateChat(ctx context.Context, chat *types.Chat) error {
	_, err := r.chats.InsertOne(ctx, chat)
	return err
}

func (r *MongoChatRepo) GetChat(ctx context.Context, id string) (*types.Chat, error) {
	var chat types.Chat
	err := r.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *MongoChatRepo) ListChats(ctx context.Context, documentID string) ([]types.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.chats.Find(ctx, bson.M{"document_id": documentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	chats := []types.Chat{}
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *MongoChatRepo) DeleteChats(ctx context.Context, documentID string) error {
	if _, err := r.messages.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := r.chats.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return fmt.Errorf("delete chats: %w", err)
	}
	return nil
}

func (r *MongoChatRepo) CreateMessage(ctx context.Context, message *types.Message) error {
	_, err := r.messages.InsertOne(ctx, message)
	return err
}

func (r *MongoChatRepo) GetMessages(ctx context.Context, chatID string) ([]types.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.findMessages(ctx, chatID, opts)
}

func (r *MongoChatRepo) RecentMessages(ctx context.Context, chatID string, limit int) ([]types.Message, error) {
	if limit <= 0 {
		return []types.Message{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	messages, err := r.findMessages(ctx, chatID, opts)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MongoChatRepo) findMessages(ctx context.Context, chatID string, opts *options.FindOptionsBuilder) ([]types.Message, error) {
	cursor, err := r.messages.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []types.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
