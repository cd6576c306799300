package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"cardbook/db"
	"cardbook/models"
)

// MemoryContactListRepository is an in-memory db.ContactListRepository that
// stores deep copies, so callers see the same whole-document semantics as a
// real store. Failures can be injected per operation.
type MemoryContactListRepository struct {
	mu       sync.Mutex
	docs     map[string][]byte
	getCalls int
	setCalls int
	failGets int
	failSets int
	SetDelay time.Duration
}

var ErrInjected = errors.New("injected store failure")

func NewMemoryContactListRepository() *MemoryContactListRepository {
	return &MemoryContactListRepository{docs: make(map[string][]byte)}
}

// FailNextGets makes the next n Get calls fail with ErrInjected.
func (r *MemoryContactListRepository) FailNextGets(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failGets = n
}

// FailNextSets makes the next n Set calls fail with ErrInjected.
func (r *MemoryContactListRepository) FailNextSets(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failSets = n
}

func (r *MemoryContactListRepository) Calls() (gets, sets int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls, r.setCalls
}

func (r *MemoryContactListRepository) Get(_ context.Context, ownerID string) (*models.ContactList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.getCalls++
	if r.failGets > 0 {
		r.failGets--
		return nil, ErrInjected
	}
	raw, ok := r.docs[ownerID]
	if !ok {
		return nil, db.ErrNotFound
	}
	var list models.ContactList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *MemoryContactListRepository) Set(_ context.Context, list *models.ContactList) error {
	if r.SetDelay > 0 {
		time.Sleep(r.SetDelay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.setCalls++
	if r.failSets > 0 {
		r.failSets--
		return ErrInjected
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	r.docs[list.OwnerID] = raw
	return nil
}

func (r *MemoryContactListRepository) Close() error {
	return nil
}

// MustGet returns the stored list or panics; for assertions only.
func (r *MemoryContactListRepository) MustGet(ownerID string) *models.ContactList {
	list, err := r.Get(context.Background(), ownerID)
	if err != nil {
		panic(err)
	}
	return list
}
