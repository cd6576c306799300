package contact

import (
	"context"
	"sync"
	"testing"

	"cardbook/db"
	"cardbook/models"
	"cardbook/tests/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationWriter_AppliesToIndexedEntryOnly(t *testing.T) {
	repo := testutils.NewMemoryContactListRepository()
	seeded := testutils.SeedContactList(t, repo, "U1", 3)
	writer := NewLocationWriter(repo, db.NewDBManager())

	loc := testutils.TembisaLocation()
	outcome, err := writer.Apply(context.Background(), "U1", 2, seeded.Contacts[2].ID, loc)
	require.NoError(t, err)
	assert.Equal(t, Applied, outcome)

	stored := repo.MustGet("U1")
	require.Len(t, stored.Contacts, 3)
	assert.Nil(t, stored.Contacts[0].Location)
	assert.Nil(t, stored.Contacts[1].Location)
	require.NotNil(t, stored.Contacts[2].Location)
	assert.Equal(t, "Tembisa", stored.Contacts[2].Location.City)
	assert.Equal(t, "Africa/Johannesburg", *stored.Contacts[2].Location.Timezone)
	assert.Equal(t, seeded.Contacts[0], stored.Contacts[0])
}

func TestLocationWriter_NilLocationIsNoOp(t *testing.T) {
	repo := testutils.NewMemoryContactListRepository()
	testutils.SeedContactList(t, repo, "U1", 1)
	writer := NewLocationWriter(repo, nil)

	outcome, err := writer.Apply(context.Background(), "U1", 0, "", nil)
	require.NoError(t, err)
	assert.Equal(t, NoOp, outcome)

	gets, sets := repo.Calls()
	assert.Equal(t, 0, gets)
	assert.Equal(t, 1, sets)
}

func TestLocationWriter_OutOfRangeIndexIsNoOp(t *testing.T) {
	repo := testutils.NewMemoryContactListRepository()
	testutils.SeedContactList(t, repo, "U1", 2)
	writer := NewLocationWriter(repo, nil)

	for _, index := range []int{2, 10, -1} {
		outcome, err := writer.Apply(context.Background(), "U1", index, "", testutils.TembisaLocation())
		require.NoError(t, err)
		assert.Equal(t, NoOp, outcome, "index %d", index)
	}

	stored := repo.MustGet("U1")
	for _, c := range stored.Contacts {
		assert.Nil(t, c.Location)
	}
	_, sets := repo.Calls()
	assert.Equal(t, 1, sets, "only the seed write should have happened")
}

func TestLocationWriter_MissingDocumentIsNoOp(t *testing.T) {
	repo := testutils.NewMemoryContactListRepository()
	writer := NewLocationWriter(repo, nil)

	outcome, err := writer.Apply(context.Background(), "ghost", 0, "", testutils.TembisaLocation())
	require.NoError(t, err)
	assert.Equal(t, NoOp, outcome)

	_, err = repo.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestLocationWriter_FollowsMovedContactByID(t *testing.T) {
	repo := testutils.NewMemoryContactListRepository()
	seeded := testutils.SeedContactList(t, repo, "U1", 3)
	target := seeded.Contacts[2]

	// Entry 0 is removed out of band; the target shifts to index 1.
	list := repo.MustGet("U1")
	list.Contacts = list.Contacts[1:]
	require.NoError(t, repo.Set(context.Background(), list))

	writer := NewLocationWriter(repo, nil)
	outcome, err := writer.Apply(context.Background(), "U1", 2, target.ID, testutils.TembisaLocation())
	require.NoError(t, err)
	assert.Equal(t, Applied, outcome)

	stored := repo.MustGet("U1")
	assert.Nil(t, stored.Contacts[0].Location)
	require.NotNil(t, stored.Contacts[1].Location)
	assert.Equal(t, target.ID, stored.Contacts[1].ID)
}

func TestLocationWriter_DeletedContactIsNoOp(t *testing.T) {
	repo := testutils.NewMemoryContactListRepository()
	testutils.SeedContactList(t, repo, "U1", 2)
	writer := NewLocationWriter(repo, nil)

	outcome, err := writer.Apply(context.Background(), "U1", 0, "does-not-exist", testutils.TembisaLocation())
	require.NoError(t, err)
	assert.Equal(t, NoOp, outcome)
	assert.Nil(t, repo.MustGet("U1").Contacts[0].Location)
}

func TestLocationWriter_ExistingLocationIsKept(t *testing.T) {
	repo := testutils.NewMemoryContactListRepository()
	seeded := testutils.SeedContactList(t, repo, "U1", 1)
	writer := NewLocationWriter(repo, nil)

	first := testutils.TembisaLocation()
	_, err := writer.Apply(context.Background(), "U1", 0, seeded.Contacts[0].ID, first)
	require.NoError(t, err)

	second := testutils.TembisaLocation()
	second.City = "Pretoria"
	outcome, err := writer.Apply(context.Background(), "U1", 0, seeded.Contacts[0].ID, second)
	require.NoError(t, err)
	assert.Equal(t, NoOp, outcome)
	assert.Equal(t, "Tembisa", repo.MustGet("U1").Contacts[0].Location.City)
}

func TestLocationWriter_StoreErrorsAreReturned(t *testing.T) {
	repo := testutils.NewMemoryContactListRepository()
	testutils.SeedContactList(t, repo, "U1", 1)
	writer := NewLocationWriter(repo, nil)

	repo.FailNextGets(1)
	_, err := writer.Apply(context.Background(), "U1", 0, "", testutils.TembisaLocation())
	assert.ErrorIs(t, err, testutils.ErrInjected)

	repo.FailNextSets(1)
	outcome, err := writer.Apply(context.Background(), "U1", 0, "", testutils.TembisaLocation())
	assert.ErrorIs(t, err, testutils.ErrInjected)
	assert.Equal(t, NoOp, outcome)
	assert.Nil(t, repo.MustGet("U1").Contacts[0].Location)
}

func TestLocationWriter_ConcurrentWritesForSameOwnerDoNotLoseUpdates(t *testing.T) {
	repo := testutils.NewMemoryContactListRepository()
	seeded := testutils.SeedContactList(t, repo, "U1", 8)
	writer := NewLocationWriter(repo, db.NewDBManager())

	var wg sync.WaitGroup
	for i := range seeded.Contacts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loc := testutils.TembisaLocation()
			_, err := writer.Apply(context.Background(), "U1", i, seeded.Contacts[i].ID, loc)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i, c := range repo.MustGet("U1").Contacts {
		assert.NotNil(t, c.Location, "contact %d lost its location", i)
	}
}

func TestLocate(t *testing.T) {
	list := &models.ContactList{Contacts: []models.Contact{{ID: "a"}, {ID: "b"}, {ID: ""}}}

	tests := []struct {
		name      string
		index     int
		contactID string
		want      int
		wantErr   error
	}{
		{"index matches id", 1, "b", 1, nil},
		{"index without id", 0, "", 0, nil},
		{"legacy entry without id", 2, "c", 2, nil},
		{"moved", 0, "b", 1, nil},
		{"out of range without id", 5, "", -1, ErrIndexOutOfRange},
		{"gone", 0, "z", -1, ErrContactMoved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := locate(list, tt.index, tt.contactID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
