package db

import (
	"context"
	"sync"
)

// ownerLane serializes operations for a single owner.
type ownerLane struct {
	sem  chan struct{}
	refs int
}

// DBManager serializes read-modify-write sequences per owner so that two
// updates to the same contact list inside this process never interleave.
// Different owners proceed in parallel.
type DBManager struct {
	mu    sync.Mutex
	lanes map[string]*ownerLane
}

// NewDBManager creates a new database manager
func NewDBManager() *DBManager {
	return &DBManager{lanes: make(map[string]*ownerLane)}
}

// ExecuteForOwner runs execute while holding ownerID's lane. It returns
// ctx.Err() if the lane could not be acquired before ctx was done.
func (m *DBManager) ExecuteForOwner(ctx context.Context, ownerID string, execute func() error) error {
	lane := m.acquire(ownerID)
	defer m.release(ownerID, lane)

	select {
	case lane.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-lane.sem }()

	return execute()
}

// ActiveOwners reports how many owners currently hold or wait on a lane.
func (m *DBManager) ActiveOwners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lanes)
}

func (m *DBManager) acquire(ownerID string) *ownerLane {
	m.mu.Lock()
	defer m.mu.Unlock()

	lane, ok := m.lanes[ownerID]
	if !ok {
		lane = &ownerLane{sem: make(chan struct{}, 1)}
		m.lanes[ownerID] = lane
	}
	lane.refs++
	return lane
}

func (m *DBManager) release(ownerID string, lane *ownerLane) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lane.refs--
	if lane.refs == 0 {
		delete(m.lanes, ownerID)
	}
}
