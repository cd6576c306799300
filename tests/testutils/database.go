package testutils

import (
	"database/sql"
	"path/filepath"
	"testing"

	"cardbook/db"
	"cardbook/internal/config"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func SetupTestDatabase(t *testing.T) (*sql.DB, func()) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	testDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_timeout=10000")
	require.NoError(t, err)

	err = db.InitializeSchema(testDB)
	require.NoError(t, err)

	cleanup := func() {
		testDB.Close()
	}

	return testDB, cleanup
}

func SetupTestRepositoryFactory(t *testing.T) (*db.RepositoryFactory, func()) {
	testDB, cleanup := SetupTestDatabase(t)
	factory := db.NewRepositoryFactory(testDB, nil, "cardbook_test")
	return factory, cleanup
}

func GetTestConfig() *config.Config {
	return &config.Config{
		Port:         "0",
		DatabaseType: config.SQLite,
		SQLitePath:   ":memory:",
		DatabaseName: "cardbook_test",
		JwtKey:       []byte("test_jwt_secret_key_for_testing_only"),
		Username:     "test_admin",
		Password:     "test_password",
		Enrichment: config.EnrichmentConfig{
			Mode:        config.ModeDirect,
			MaxAttempts: 3,
			Workers:     1,
			PoolSize:    2,
			QueueSize:   16,
		},
	}
}
