package main

import (
	"context"
	"fmt"

	"cardbook/db"
	"cardbook/internal/config"
)

type stores struct {
	contacts db.ContactListRepository
	geoCache *db.GeolocationRepository
	closers  []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects to the configured document store and builds the
// repositories the enrichment pipeline needs.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}
	var factory *db.RepositoryFactory

	switch cfg.DatabaseType {
	case config.SQLite:
		infoLogger.Printf("Using SQLite database at %s", cfg.SQLitePath)
		sqliteDB, err := db.ConnectToSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("connect to sqlite: %w", err)
		}
		s.closers = append(s.closers, func() { sqliteDB.Close() })
		if err := db.InitializeSchema(sqliteDB); err != nil {
			s.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
		factory = db.NewRepositoryFactory(sqliteDB, nil, cfg.DatabaseName)

	case config.MongoDB:
		infoLogger.Printf("Using MongoDB database %s", cfg.DatabaseName)
		client, err := db.ConnectToMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		s.closers = append(s.closers, func() { client.Disconnect(context.Background()) })
		factory = db.NewRepositoryFactory(nil, client, cfg.DatabaseName)

	case config.DynamoDB:
		infoLogger.Printf("Using DynamoDB table %s in %s", cfg.DynamoTable, cfg.AWSRegion)
		client, err := db.ConnectToDynamo(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, fmt.Errorf("connect to dynamodb: %w", err)
		}
		factory = db.NewRepositoryFactory(nil, nil, cfg.DatabaseName).WithDynamo(client, cfg.DynamoTable)

	default:
		return nil, fmt.Errorf("unsupported DATABASE_TYPE: %s", cfg.DatabaseType)
	}

	s.contacts = factory.NewContactListRepository()
	if cfg.Geo.PersistentCache {
		s.geoCache = factory.NewGeolocationRepository()
	}
	return s, nil
}
