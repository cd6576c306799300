package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cardbook/db"
	"cardbook/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// SeedContactList stores a list of n plain contacts for ownerID.
func SeedContactList(t *testing.T, repo db.ContactListRepository, ownerID string, n int) *models.ContactList {
	t.Helper()
	list := &models.ContactList{OwnerID: ownerID}
	for i := 0; i < n; i++ {
		list.Append(CreateTestContact(fmt.Sprintf("Contact %d", i)))
	}
	require.NoError(t, repo.Set(context.Background(), list))
	return list
}

func CreateTestContact(name string) models.Contact {
	return models.Contact{
		ID:        uuid.New().String(),
		Name:      name,
		Surname:   "Test",
		Phone:     "+27 11 555 0100",
		Email:     "contact@example.com",
		HowWeMet:  "Trade fair",
		CreatedAt: time.Now().UTC(),
	}
}

// TembisaLocation is what ipapi.co reports for the test address 196.25.1.1.
func TembisaLocation() *models.Location {
	tz := "Africa/Johannesburg"
	return &models.Location{
		Latitude:    -25.98,
		Longitude:   28.25,
		City:        "Tembisa",
		Region:      "Gauteng",
		Country:     "South Africa",
		CountryCode: "ZA",
		Timezone:    &tz,
		Provider:    "ipapi.co",
		ResolvedAt:  time.Now().UTC(),
	}
}
