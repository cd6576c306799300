package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoContactListRepository implements the ContactListRepository interface for MongoDB
type MongoContactListRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoContactListRepository creates a new MongoContactListRepository
func NewMongoContactListRepository(client *mongo.Client, database, collection string) *MongoContactListRepository {
	return &MongoContactListRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

// Close closes the MongoDB connection
func (r *MongoContactListRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

// Get loads the owner's contact list document.
func (r *MongoContactListRepository) Get(ctx context.Context, ownerID string) (*models.ContactList, error) {
	var list models.ContactList
	err := r.client.Database(r.database).Collection(r.collection).
		FindOne(ctx, bson.M{"_id": ownerID}).Decode(&list)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding contact list: %w", err)
	}

	return &list, nil
}

// Set replaces the owner's whole contact list document, creating it if needed.
func (r *MongoContactListRepository) Set(ctx context.Context, list *models.ContactList) error {
	list.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := r.client.Database(r.database).Collection(r.collection).
		ReplaceOne(ctx, bson.M{"_id": list.OwnerID}, list, opts)
	if err != nil {
		return fmt.Errorf("error replacing contact list: %w", err)
	}

	return nil
}

// FindAllOwnerIDs lists every owner that has a contact list document.
func (r *MongoContactListRepository) FindAllOwnerIDs(ctx context.Context) ([]string, error) {
	cursor, err := r.client.Database(r.database).Collection(r.collection).
		Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("error listing contact lists: %w", err)
	}
	defer cursor.Close(ctx)

	var ownerIDs []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding contact list id: %w", err)
		}
		ownerIDs = append(ownerIDs, doc.ID)
	}
	return ownerIDs, cursor.Err()
}
