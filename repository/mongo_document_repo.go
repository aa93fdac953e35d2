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

const (
	DocumentsCollection = "documents"
	ChatsCollection     = "chats"
	MessagesCollection  = "messages"
)

type MongoDocumentRepo struct {
	collection *mongo.Collection
}

func NewMongoDocumentRepo(db *mongo.Database) *MongoDocumentRepo {
	return &MongoDocumentRepo{
		collection: db.Collection(DocumentsCollection),
	}
}

func (r *MongoDocumentRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

func (r *MongoDocumentRepo) CreateDocument(ctx context.Context, doc *types.Document) error {
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

func (r *MongoDocumentRepo) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	var doc types.Document
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *MongoDocumentRepo) ListDocuments(ctx context.Context, ownerID string, offset, limit int) ([]types.Document, int64, error) {
	filter := bson.M{"owner_id": ownerID}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	docs := []types.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *MongoDocumentRepo) LatestDocument(ctx context.Context, ownerID string) (*types.Document, error) {
	var doc types.Document
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{"owner_id": ownerID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *MongoDocumentRepo) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
