package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"cardbook/db"
	"cardbook/internal/config"
	"cardbook/models"
)

// Copies every owner's contact list from MongoDB into SQLite, assigning
// stable ids to entries written before contacts carried one.
func main() {
	dryRun := flag.Bool("dry-run", false, "report what would be copied without writing")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.MongoURI == "" {
		log.Fatalf("MONGODB_URI is not set in .env file. Migration cannot continue.")
	}

	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join("data", cfg.DatabaseName+".db")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	ctx := context.Background()

	log.Println("Connecting to MongoDB...")
	mongoClient, err := db.ConnectToMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	log.Println("Connecting to SQLite...")
	sqliteDB, err := db.ConnectToSQLite(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to connect to SQLite: %v", err)
	}
	defer sqliteDB.Close()

	if err := db.InitializeSchema(sqliteDB); err != nil {
		log.Fatalf("Failed to initialize SQLite schema: %v", err)
	}

	source := db.NewMongoContactListRepository(mongoClient, cfg.DatabaseName, "contact_lists")
	target := db.NewSQLiteContactListRepository(sqliteDB)

	owners, err := source.FindAllOwnerIDs(ctx)
	if err != nil {
		log.Fatalf("Failed to list owners: %v", err)
	}
	log.Printf("Migrating contact lists for %d owners...", len(owners))

	var copied, contacts, backfilled int
	for _, ownerID := range owners {
		list, err := source.Get(ctx, ownerID)
		if err != nil {
			log.Printf("Error reading contact list %s: %v", ownerID, err)
			continue
		}

		backfilled += backfillIDs(list)
		contacts += len(list.Contacts)

		if *dryRun {
			continue
		}
		if err := target.Set(ctx, list); err != nil {
			log.Printf("Error writing contact list %s: %v", ownerID, err)
			continue
		}
		copied++
	}

	log.Printf("Migration completed: %d lists, %d contacts, %d ids assigned (dry run: %v)", copied, contacts, backfilled, *dryRun)
}

func backfillIDs(list *models.ContactList) int {
	n := 0
	for i := range list.Contacts {
		if list.Contacts[i].ID == "" {
			list.Contacts[i].ID = db.GenerateID()
			n++
		}
		if list.Contacts[i].CreatedAt.IsZero() {
			list.Contacts[i].CreatedAt = time.Now().UTC()
		}
	}
	return n
}
