package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardbook/db"
	"cardbook/models"
)

// ContactService covers the slice of contact CRUD the enrichment flow needs:
// appending a contact and reading an owner's list back.
type ContactService struct {
	repo    db.ContactListRepository
	manager *db.DBManager
}

func NewContactService(repo db.ContactListRepository, manager *db.DBManager) *ContactService {
	return &ContactService{repo: repo, manager: manager}
}

// AddContact appends c to ownerID's list, creating the list if needed, and
// returns the stored contact with its positional index.
func (s *ContactService) AddContact(ctx context.Context, ownerID string, c models.Contact) (int, models.Contact, error) {
	if c.ID == "" {
		c.ID = db.GenerateID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Location = nil

	index := -1
	err := s.manager.ExecuteForOwner(ctx, ownerID, func() error {
		list, err := s.repo.Get(ctx, ownerID)
		if errors.Is(err, db.ErrNotFound) {
			list = &models.ContactList{OwnerID: ownerID}
		} else if err != nil {
			return fmt.Errorf("load contact list %s: %w", ownerID, err)
		}

		index = list.Append(c)
		if err := s.repo.Set(ctx, list); err != nil {
			return fmt.Errorf("save contact list %s: %w", ownerID, err)
		}
		return nil
	})
	if err != nil {
		return -1, models.Contact{}, err
	}
	return index, c, nil
}

// List returns ownerID's contacts, or an empty list if none exist.
func (s *ContactService) List(ctx context.Context, ownerID string) (*models.ContactList, error) {
	list, err := s.repo.Get(ctx, ownerID)
	if errors.Is(err, db.ErrNotFound) {
		return &models.ContactList{OwnerID: ownerID, Contacts: []models.Contact{}}, nil
	}
	return list, err
}
