package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardbook/internal/util"
	"cardbook/models"
)

// SQLiteContactListRepository implements the ContactListRepository interface
// for SQLite, storing each list as a JSON document.
type SQLiteContactListRepository struct {
	db *sql.DB
}

// NewSQLiteContactListRepository creates a new SQLiteContactListRepository
func NewSQLiteContactListRepository(db *sql.DB) *SQLiteContactListRepository {
	return &SQLiteContactListRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteContactListRepository) Close() error {
	return r.db.Close()
}

// Get loads the owner's contact list document.
func (r *SQLiteContactListRepository) Get(ctx context.Context, ownerID string) (*models.ContactList, error) {
	query := `SELECT document FROM contact_lists WHERE owner_id = ?`

	var document string
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning contact list: %w", err)
	}

	var list models.ContactList
	if err := json.Unmarshal([]byte(document), &list); err != nil {
		return nil, fmt.Errorf("error decoding contact list document: %w", err)
	}
	list.OwnerID = ownerID

	return &list, nil
}

// Set replaces the owner's whole contact list document, creating it if needed.
func (r *SQLiteContactListRepository) Set(ctx context.Context, list *models.ContactList) error {
	list.UpdatedAt = time.Now()

	document, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("error encoding contact list document: %w", err)
	}

	query := `
		INSERT INTO contact_lists (owner_id, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`

	return util.RetryOnLock(func() error {
		_, err := r.db.ExecContext(ctx, query, list.OwnerID, string(document), list.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error upserting contact list: %w", err)
		}
		return nil
	})
}

// FindAllOwnerIDs lists every owner that has a contact list document.
func (r *SQLiteContactListRepository) FindAllOwnerIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT owner_id FROM contact_lists ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("error listing contact lists: %w", err)
	}
	defer rows.Close()

	var ownerIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning owner id: %w", err)
		}
		ownerIDs = append(ownerIDs, id)
	}
	return ownerIDs, rows.Err()
}
