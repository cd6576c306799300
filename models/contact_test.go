package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestContactList_Append(t *testing.T) {
	list := &ContactList{OwnerID: "U1"}

	first := list.Append(Contact{ID: uuid.New().String(), Name: "Thabo"})
	second := list.Append(Contact{ID: uuid.New().String(), Name: "Lerato"})

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Len(t, list.Contacts, 2)
	assert.Equal(t, "Lerato", list.Contacts[second].Name)
}

func TestContactList_IndexOf(t *testing.T) {
	id := uuid.New().String()
	list := &ContactList{
		OwnerID: "U1",
		Contacts: []Contact{
			{ID: uuid.New().String()},
			{ID: id},
			{},
		},
	}

	assert.Equal(t, 1, list.IndexOf(id))
	assert.Equal(t, -1, list.IndexOf("missing"))
	assert.Equal(t, -1, list.IndexOf(""), "empty id never matches entries without an id")
}

func TestGeolocationCache_LocationRoundTrip(t *testing.T) {
	tz := "Africa/Johannesburg"
	now := time.Now().UTC()
	loc := &Location{
		Latitude:    -25.98,
		Longitude:   28.25,
		City:        "Tembisa",
		Region:      "Gauteng",
		Country:     "South Africa",
		CountryCode: "ZA",
		Timezone:    &tz,
		Provider:    "ipapi.co",
		ResolvedAt:  now,
	}

	row := NewGeolocationCache("196.25.1.1", loc)

	assert.Equal(t, "196.25.1.1", row.IP)
	assert.Equal(t, loc, row.Location())
}
