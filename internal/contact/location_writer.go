package contact

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cardbook/db"
	"cardbook/models"
)

// WriteOutcome reports what Apply did to the contact list.
type WriteOutcome string

const (
	Applied WriteOutcome = "applied"
	NoOp    WriteOutcome = "noop"
)

var (
	ErrIndexOutOfRange = errors.New("contact index out of range")
	ErrContactMoved    = errors.New("contact no longer at index")
)

// LocationWriter attaches a resolved location to one entry of an owner's
// contact list with a whole-document read-modify-write.
type LocationWriter struct {
	repo    db.ContactListRepository
	manager *db.DBManager
}

// NewLocationWriter returns a writer. When manager is non-nil, writes for the
// same owner are serialized within this process.
func NewLocationWriter(repo db.ContactListRepository, manager *db.DBManager) *LocationWriter {
	return &LocationWriter{repo: repo, manager: manager}
}

// Apply sets loc on the contact at index in ownerID's list. A missing
// document, an index that no longer points at contactID, or an entry that
// already has a location yields NoOp with a nil error. Only store failures
// are returned as errors.
func (w *LocationWriter) Apply(ctx context.Context, ownerID string, index int, contactID string, loc *models.Location) (WriteOutcome, error) {
	if loc == nil {
		return NoOp, nil
	}

	outcome := NoOp
	apply := func() error {
		list, err := w.repo.Get(ctx, ownerID)
		if errors.Is(err, db.ErrNotFound) {
			log.Printf("[contacts] no contact list for owner %s, dropping location", ownerID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load contact list %s: %w", ownerID, err)
		}

		target, err := locate(list, index, contactID)
		if err != nil {
			log.Printf("[contacts] owner %s index %d: %v, dropping location", ownerID, index, err)
			return nil
		}
		if target != index {
			log.Printf("[contacts] owner %s contact %s moved from %d to %d", ownerID, contactID, index, target)
		}

		entry := &list.Contacts[target]
		if entry.Location != nil {
			log.Printf("[contacts] owner %s index %d already has a location, skipping", ownerID, target)
			return nil
		}
		entry.Location = loc

		if err := w.repo.Set(ctx, list); err != nil {
			return fmt.Errorf("save contact list %s: %w", ownerID, err)
		}
		outcome = Applied
		return nil
	}

	var err error
	if w.manager != nil {
		err = w.manager.ExecuteForOwner(ctx, ownerID, apply)
	} else {
		err = apply()
	}
	if err != nil {
		return NoOp, err
	}
	return outcome, nil
}

// locate finds the entry a job addresses. The positional index wins when it
// still holds the expected contact; otherwise the stable id is searched.
func locate(list *models.ContactList, index int, contactID string) (int, error) {
	if index >= 0 && index < len(list.Contacts) {
		id := list.Contacts[index].ID
		if contactID == "" || id == "" || id == contactID {
			return index, nil
		}
	}
	if contactID == "" {
		return -1, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(list.Contacts))
	}
	if found := list.IndexOf(contactID); found >= 0 {
		return found, nil
	}
	return -1, fmt.Errorf("%w: contact %s not found", ErrContactMoved, contactID)
}
