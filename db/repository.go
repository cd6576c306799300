package db

import (
	"context"
	"database/sql"
	"errors"

	"cardbook/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repository defines a common interface for all repositories
type Repository interface {
	Close() error
}

// ContactListRepository stores one contact-list document per owner. Both
// operations work on the whole document; there are no field-level updates.
type ContactListRepository interface {
	Repository
	Get(ctx context.Context, ownerID string) (*models.ContactList, error)
	Set(ctx context.Context, list *models.ContactList) error
}

// RepositoryFactory creates repositories based on the database type
type RepositoryFactory struct {
	SQLiteDB     *sql.DB
	MongoClient  *mongo.Client
	DynamoClient *dynamodb.Client
	DBName       string
	DynamoTable  string
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(sqliteDB *sql.DB, mongoClient *mongo.Client, dbName string) *RepositoryFactory {
	return &RepositoryFactory{
		SQLiteDB:    sqliteDB,
		MongoClient: mongoClient,
		DBName:      dbName,
	}
}

// WithDynamo switches the factory to DynamoDB-backed repositories.
func (f *RepositoryFactory) WithDynamo(client *dynamodb.Client, table string) *RepositoryFactory {
	f.DynamoClient = client
	f.DynamoTable = table
	return f
}

// NewContactListRepository creates a new contact list repository
func (f *RepositoryFactory) NewContactListRepository() ContactListRepository {
	switch {
	case f.SQLiteDB != nil:
		return NewSQLiteContactListRepository(f.SQLiteDB)
	case f.MongoClient != nil:
		return NewMongoContactListRepository(f.MongoClient, f.DBName, "contact_lists")
	default:
		return NewDynamoContactListRepository(f.DynamoClient, f.DynamoTable)
	}
}

// NewGeolocationRepository returns the persistent geolocation cache, which
// only exists for SQLite.
func (f *RepositoryFactory) NewGeolocationRepository() *GeolocationRepository {
	if f.SQLiteDB == nil {
		return nil
	}
	return NewGeolocationRepository(f.SQLiteDB)
}

// GenerateID generates a unique ID for a record
func GenerateID() string {
	return uuid.New().String()
}
